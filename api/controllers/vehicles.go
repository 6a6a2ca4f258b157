package controllers

import (
	"net/http"
	"strings"

	"github.com/rastromax/rastromax-backend/api/responses"
	"github.com/rastromax/rastromax-backend/api/validators"
	"github.com/rastromax/rastromax-backend/internal/vehicles"
	"github.com/rastromax/rastromax-backend/pkg/logger"
)

type vehicleCreateRequest struct {
	OwnerID string  `json:"owner_id" validate:"required"`
	Plate   string  `json:"plate" validate:"required"`
	Brand   string  `json:"brand" validate:"required"`
	Model   string  `json:"model" validate:"required"`
	Year    int     `json:"year" validate:"required"`
	Color   *string `json:"color"`
}

func (r vehicleCreateRequest) toInput() (vehicles.CreateVehicleInput, error) {
	ownerID, err := validators.ParseUUIDParam(r.OwnerID, "owner_id")
	if err != nil {
		return vehicles.CreateVehicleInput{}, err
	}
	return vehicles.CreateVehicleInput{
		OwnerID: ownerID,
		Plate:   strings.TrimSpace(r.Plate),
		Brand:   strings.TrimSpace(r.Brand),
		Model:   strings.TrimSpace(r.Model),
		Year:    r.Year,
		Color:   r.Color,
	}, nil
}

type vehicleUpdateRequest struct {
	Plate *string `json:"plate"`
	Brand *string `json:"brand"`
	Model *string `json:"model"`
	Year  *int    `json:"year"`
	Color *string `json:"color"`
}

// VehiclesList returns the vehicles visible to the caller's role.
func VehiclesList(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
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

		result, err := svc.ListVehicles(r.Context(), p, vehicles.ListParams{Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// VehiclesGet returns one vehicle record.
func VehiclesGet(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetVehicle(r.Context(), p, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// VehiclesCreate registers a vehicle under a client account.
func VehiclesCreate(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload vehicleCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateVehicle(r.Context(), p, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// VehiclesUpdate applies a role-masked update; ownership never changes.
func VehiclesUpdate(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload vehicleUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateVehicle(r.Context(), p, id, vehicles.UpdateVehicleInput{
			Plate: payload.Plate,
			Brand: payload.Brand,
			Model: payload.Model,
			Year:  payload.Year,
			Color: payload.Color,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// VehiclesDelete removes a vehicle record.
func VehiclesDelete(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteVehicle(r.Context(), p, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
