package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/api/middleware"
	"github.com/rastromax/rastromax-backend/api/validators"
	"github.com/rastromax/rastromax-backend/internal/policy"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
	"github.com/rastromax/rastromax-backend/pkg/pagination"
)

func principalFrom(r *http.Request) (policy.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return policy.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return p, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	return validators.ParseUUIDParam(chi.URLParam(r, key), key)
}
