package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rastromax/rastromax-backend/api/responses"
	"github.com/rastromax/rastromax-backend/api/validators"
	"github.com/rastromax/rastromax-backend/internal/trackers"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
	"github.com/rastromax/rastromax-backend/pkg/logger"
)

type trackerCreateRequest struct {
	Identifier     string    `json:"identificador" validate:"required,len=15"`
	Model          string    `json:"modelo" validate:"required"`
	VehicleID      string    `json:"vehicle_id" validate:"required"`
	OwnerID        string    `json:"user_id" validate:"required"`
	ChipNumber     *string   `json:"chip_number"`
	LicenseAmount  string    `json:"valor_licenca" validate:"required"`
	LicenseDueDate time.Time `json:"data_vencimento" validate:"required"`
}

func (r trackerCreateRequest) toInput() (trackers.CreateTrackerInput, error) {
	vehicleID, err := validators.ParseUUIDParam(r.VehicleID, "vehicle_id")
	if err != nil {
		return trackers.CreateTrackerInput{}, err
	}
	ownerID, err := validators.ParseUUIDParam(r.OwnerID, "user_id")
	if err != nil {
		return trackers.CreateTrackerInput{}, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(r.LicenseAmount))
	if err != nil {
		return trackers.CreateTrackerInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid license amount").WithDetails(map[string]any{"field": "valor_licenca"})
	}
	return trackers.CreateTrackerInput{
		Identifier:     strings.TrimSpace(r.Identifier),
		Model:          strings.TrimSpace(r.Model),
		VehicleID:      vehicleID,
		OwnerID:        ownerID,
		ChipNumber:     r.ChipNumber,
		LicenseAmount:  amount,
		LicenseDueDate: r.LicenseDueDate,
	}, nil
}

type trackerUpdateRequest struct {
	Model      *string `json:"modelo"`
	ChipNumber *string `json:"chip_number"`
}

// TrackersList lists trackers, or answers a duplicate check when the
// identifier query parameter is present.
func TrackersList(svc trackers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("identifier")); raw != "" {
			check, err := svc.CheckIdentifier(r.Context(), p, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, check)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListTrackers(r.Context(), p, trackers.ListParams{Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TrackersCreate provisions a tracker and its first license invoice.
func TrackersCreate(svc trackers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload trackerCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateTracker(r.Context(), p, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// TrackersUpdate edits mutable tracker fields; the identifier is immutable.
func TrackersUpdate(svc trackers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "trackerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload trackerUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateTracker(r.Context(), p, id, trackers.UpdateTrackerInput{
			Model:      payload.Model,
			ChipNumber: payload.ChipNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// TrackersDelete decommissions a device and drops its telemetry snapshot.
func TrackersDelete(svc trackers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "trackerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteTracker(r.Context(), p, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// InvoicesList returns license invoices visible to the caller.
func InvoicesList(svc trackers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListInvoices(r.Context(), p, trackers.ListParams{Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
