package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/logger"
	"github.com/rastromax/rastromax-backend/pkg/metrics"
)

type stubLister struct {
	trackers []models.Tracker
	err      error
}

func (s *stubLister) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Tracker, error) {
	return s.trackers, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func newGatewayServer(t *testing.T, failAll bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failAll {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		switch r.URL.Path {
		case "/devices/123456789012345/position":
			fmt.Fprint(w, `{"lat":-23.55,"lng":-46.63,"observed_at":"2026-08-28T10:00:05Z"}`)
		case "/devices/123456789012345/status":
			fmt.Fprint(w, `{"lat":-23.55,"lng":-46.63,"battery_pct":72.5,"powered_on":true,"observed_at":"2026-08-28T10:00:05Z"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newPollerForTests(t *testing.T, gatewayURL string, lister trackerLister) (*Poller, *Cache) {
	t.Helper()
	cache := NewCache()
	poller, err := NewPoller(PollerParams{
		Cache:    cache,
		Gateway:  NewHTTPGateway(gatewayURL, 2*time.Second),
		Trackers: lister,
		Interval: 10 * time.Millisecond,
		Logger:   testLogger(),
		Metrics:  metrics.NewPollMetrics(nil),
	})
	if err != nil {
		t.Fatalf("NewPoller returned error: %v", err)
	}
	return poller, cache
}

func TestCycleRecordsPositionAndStatus(t *testing.T) {
	srv := newGatewayServer(t, false)
	defer srv.Close()

	owner := uuid.New()
	lister := &stubLister{trackers: []models.Tracker{{Identifier: "123456789012345", OwnerID: owner}}}
	poller, cache := newPollerForTests(t, srv.URL, lister)

	poller.cycle(context.Background(), owner)

	snap, ok := cache.Latest("123456789012345")
	if !ok {
		t.Fatal("expected a snapshot after the cycle")
	}
	if snap.Lat != -23.55 || snap.Lng != -46.63 {
		t.Fatalf("unexpected position %+v", snap)
	}
	if snap.BatteryPct == nil || *snap.BatteryPct != 72.5 {
		t.Fatal("status fetch must fill in battery")
	}
	if snap.PoweredOn == nil || !*snap.PoweredOn {
		t.Fatal("status fetch must fill in power state")
	}
}

func TestCycleFetchFailureLeavesCacheUntouched(t *testing.T) {
	srv := newGatewayServer(t, true)
	defer srv.Close()

	owner := uuid.New()
	lister := &stubLister{trackers: []models.Tracker{{Identifier: "123456789012345", OwnerID: owner}}}
	poller, cache := newPollerForTests(t, srv.URL, lister)

	earlier := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	cache.RecordObservation("123456789012345", -10, -20, nil, nil, earlier)

	poller.cycle(context.Background(), owner)

	snap, _ := cache.Latest("123456789012345")
	if snap.Lat != -10 || !snap.ObservedAt.Equal(earlier) {
		t.Fatalf("failed fetches must mean no new observation this cycle, got %+v", snap)
	}
}

func TestRunStopsWhenSessionEnds(t *testing.T) {
	srv := newGatewayServer(t, false)
	defer srv.Close()

	poller, _ := newPollerForTests(t, srv.URL, &stubLister{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx, uuid.New())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller must stop when the session context is cancelled")
	}
}
