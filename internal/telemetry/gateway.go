package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Observation is one telemetry reading fetched from the upstream gateway.
type Observation struct {
	Lat        float64
	Lng        float64
	BatteryPct *float64
	PoweredOn  *bool
	ObservedAt time.Time
}

// Gateway fetches telemetry from the upstream device platform.
type Gateway interface {
	FetchPosition(ctx context.Context, identifier string) (*Observation, error)
	FetchStatus(ctx context.Context, identifier string) (*Observation, error)
}

// HTTPGateway talks to the device platform's REST API. Every call carries a
// bounded timeout so a slow upstream cannot stall a poll cycle.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway builds a gateway client for the given base URL.
func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type positionPayload struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	ObservedAt time.Time `json:"observed_at"`
}

type statusPayload struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	BatteryPct *float64  `json:"battery_pct"`
	PoweredOn  *bool     `json:"powered_on"`
	ObservedAt time.Time `json:"observed_at"`
}

// FetchPosition retrieves the latest position for one device.
func (g *HTTPGateway) FetchPosition(ctx context.Context, identifier string) (*Observation, error) {
	var payload positionPayload
	if err := g.get(ctx, "/devices/"+url.PathEscape(identifier)+"/position", &payload); err != nil {
		return nil, err
	}
	return &Observation{
		Lat:        payload.Lat,
		Lng:        payload.Lng,
		ObservedAt: payload.ObservedAt,
	}, nil
}

// FetchStatus retrieves position plus battery and power state.
func (g *HTTPGateway) FetchStatus(ctx context.Context, identifier string) (*Observation, error) {
	var payload statusPayload
	if err := g.get(ctx, "/devices/"+url.PathEscape(identifier)+"/status", &payload); err != nil {
		return nil, err
	}
	return &Observation{
		Lat:        payload.Lat,
		Lng:        payload.Lng,
		BatteryPct: payload.BatteryPct,
		PoweredOn:  payload.PoweredOn,
		ObservedAt: payload.ObservedAt,
	}, nil
}

func (g *HTTPGateway) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build telemetry request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telemetry fetch: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode telemetry response: %w", err)
	}
	return nil
}
