package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/logger"
	"github.com/rastromax/rastromax-backend/pkg/metrics"
)

type trackerLister interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Tracker, error)
}

// Poller refreshes the snapshot cache for one dashboard session. One poller
// goroutine runs per session and stops when the session context is cancelled,
// so no periodic work outlives the session that asked for it.
type Poller struct {
	cache    *Cache
	gateway  Gateway
	trackers trackerLister
	interval time.Duration
	logg     *logger.Logger
	metrics  *metrics.PollMetrics
}

// PollerParams bundles the poller dependencies.
type PollerParams struct {
	Cache    *Cache
	Gateway  Gateway
	Trackers trackerLister
	Interval time.Duration
	Logger   *logger.Logger
	Metrics  *metrics.PollMetrics
}

// NewPoller builds a session poller. Metrics are optional.
func NewPoller(params PollerParams) (*Poller, error) {
	if params.Cache == nil {
		return nil, fmt.Errorf("snapshot cache required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("telemetry gateway required")
	}
	if params.Trackers == nil {
		return nil, fmt.Errorf("tracker lister required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Interval <= 0 {
		params.Interval = 10 * time.Second
	}
	return &Poller{
		cache:    params.Cache,
		gateway:  params.Gateway,
		trackers: params.Trackers,
		interval: params.Interval,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Run polls the owner's devices until ctx is cancelled. It cycles once
// immediately, then on every interval tick. Fetch failures are logged as
// "no new observation this cycle" and never stop the loop.
func (p *Poller) Run(ctx context.Context, ownerID uuid.UUID) {
	p.cycle(ctx, ownerID)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx, ownerID)
		}
	}
}

func (p *Poller) cycle(ctx context.Context, ownerID uuid.UUID) {
	started := time.Now()

	trackers, err := p.trackers.ListByOwner(ctx, ownerID)
	if err != nil {
		p.metrics.ObserveCycle("error", time.Since(started))
		p.logg.Error(ctx, "telemetry cycle: list devices", err)
		return
	}

	var errs error
	for i := range trackers {
		identifier := trackers[i].Identifier

		obs, err := p.gateway.FetchPosition(ctx, identifier)
		if err != nil {
			p.metrics.IncFetch("failure")
			errs = multierr.Append(errs, fmt.Errorf("position %s: %w", identifier, err))
			continue
		}
		p.metrics.IncFetch("success")
		p.applyObservation(identifier, obs)
	}

	// battery and power state only for the first device, matching the
	// dashboard's single status panel
	if len(trackers) > 0 {
		identifier := trackers[0].Identifier
		obs, err := p.gateway.FetchStatus(ctx, identifier)
		if err != nil {
			p.metrics.IncFetch("failure")
			errs = multierr.Append(errs, fmt.Errorf("status %s: %w", identifier, err))
		} else {
			p.metrics.IncFetch("success")
			p.applyObservation(identifier, obs)
		}
	}

	outcome := "ok"
	if errs != nil {
		outcome = "degraded"
		p.logg.Warn(p.logg.WithField(ctx, "error", errs.Error()), "telemetry cycle completed with fetch failures")
	}
	p.metrics.ObserveCycle(outcome, time.Since(started))
}

func (p *Poller) applyObservation(identifier string, obs *Observation) {
	observedAt := obs.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}
	p.cache.RecordObservation(identifier, obs.Lat, obs.Lng, obs.BatteryPct, obs.PoweredOn, observedAt)
}
