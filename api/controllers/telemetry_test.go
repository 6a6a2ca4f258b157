package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/api/middleware"
	"github.com/rastromax/rastromax-backend/internal/policy"
	"github.com/rastromax/rastromax-backend/internal/telemetry"
	"github.com/rastromax/rastromax-backend/pkg/enums"
)

type stubTelemetryService struct {
	position *telemetry.PositionDTO
	status   *telemetry.StatusDTO
	err      error
}

func (s *stubTelemetryService) Position(ctx context.Context, p policy.Principal, identifier string) (*telemetry.PositionDTO, error) {
	return s.position, s.err
}

func (s *stubTelemetryService) Status(ctx context.Context, p policy.Principal, identifier string) (*telemetry.StatusDTO, error) {
	return s.status, s.err
}

func telemetryRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	p := policy.Principal{ID: uuid.New(), Role: enums.RoleClient}
	return req.WithContext(middleware.WithPrincipal(req.Context(), p))
}

func TestTrackerPositionReturnsSnapshot(t *testing.T) {
	svc := &stubTelemetryService{position: &telemetry.PositionDTO{
		Identifier: "123456789012345",
		Lat:        -23.55,
		Lng:        -46.63,
	}}
	handler := TrackerPosition(svc, controllerTestLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, telemetryRequest(t, "/api/v1/trackers/position?imei=123456789012345"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data telemetry.PositionDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Lat != -23.55 || envelope.Data.Lng != -46.63 {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestTrackerPositionRejectsBadIdentifier(t *testing.T) {
	handler := TrackerPosition(&stubTelemetryService{}, controllerTestLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, telemetryRequest(t, "/api/v1/trackers/position?imei=abc"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTrackerPositionRequiresPrincipal(t *testing.T) {
	handler := TrackerPosition(&stubTelemetryService{}, controllerTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trackers/position?imei=123456789012345", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestTrackerStatusReturnsPanelData(t *testing.T) {
	battery := 72.5
	powered := true
	svc := &stubTelemetryService{status: &telemetry.StatusDTO{
		Identifier: "123456789012345",
		Lat:        -23.55,
		Lng:        -46.63,
		BatteryPct: &battery,
		PoweredOn:  &powered,
	}}
	handler := TrackerStatus(svc, controllerTestLogger())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, telemetryRequest(t, "/api/v1/trackers/status?imei=123456789012345"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data telemetry.StatusDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.BatteryPct == nil || *envelope.Data.BatteryPct != 72.5 {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}
