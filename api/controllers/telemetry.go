package controllers

import (
	"net/http"

	"github.com/rastromax/rastromax-backend/api/responses"
	"github.com/rastromax/rastromax-backend/api/validators"
	"github.com/rastromax/rastromax-backend/internal/telemetry"
	"github.com/rastromax/rastromax-backend/pkg/logger"
)

// TrackerPosition reads the last known position for a device. Devices that
// have not reported yet answer with the default coordinates, not an error.
func TrackerPosition(svc telemetry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		identifier, err := validators.ParseIMEIQuery(r, "imei")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Position(r.Context(), p, identifier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// TrackerStatus reads the last known status panel data for a device.
func TrackerStatus(svc telemetry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		identifier, err := validators.ParseIMEIQuery(r, "imei")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Status(r.Context(), p, identifier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
