package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rastromax/rastromax-backend/api/middleware"
	"github.com/rastromax/rastromax-backend/internal/auth"
	"github.com/rastromax/rastromax-backend/pkg/enums"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
	"github.com/rastromax/rastromax-backend/pkg/logger"
)

type stubAuthService struct {
	result     *auth.LoginResult
	err        error
	loggedOut  []string
	resetEmail string
}

func (s *stubAuthService) Login(ctx context.Context, input auth.LoginInput) (*auth.LoginResult, error) {
	return s.result, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	if s.err != nil {
		return s.err
	}
	s.loggedOut = append(s.loggedOut, accessID)
	return nil
}

func (s *stubAuthService) ResetPassword(ctx context.Context, input auth.ResetPasswordInput) error {
	if s.err != nil {
		return s.err
	}
	s.resetEmail = input.Email
	return nil
}

func controllerTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func TestAuthLoginSuccess(t *testing.T) {
	principal := auth.PrincipalDTO{ID: uuid.New(), Email: "maria@example.com", Name: "Maria", Role: enums.RoleClient}
	svc := &stubAuthService{result: &auth.LoginResult{Token: "signed-token", Principal: principal}}
	handler := AuthLogin(svc, controllerTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader([]byte(`{"email":"maria@example.com","password":"s3nha-forte"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data struct {
			Token     string            `json:"token"`
			Principal auth.PrincipalDTO `json:"principal"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Token != "signed-token" {
		t.Fatalf("expected token in payload got %q", envelope.Data.Token)
	}
	if envelope.Data.Principal.Email != principal.Email {
		t.Fatalf("expected principal in payload got %+v", envelope.Data.Principal)
	}
}

func TestAuthLoginRejectsUnknownFields(t *testing.T) {
	handler := AuthLogin(&stubAuthService{}, controllerTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader([]byte(`{"email":"maria@example.com","password":"x","extra":true}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLoginBadCredentialsPassThrough(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handler := AuthLogin(svc, controllerTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader([]byte(`{"email":"maria@example.com","password":"wrong"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutUsesSessionFromContext(t *testing.T) {
	svc := &stubAuthService{}
	handler := AuthLogout(svc, controllerTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(middleware.WithAccessID(req.Context(), "jti-123"))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.loggedOut) != 1 || svc.loggedOut[0] != "jti-123" {
		t.Fatalf("expected logout with jti-123, got %v", svc.loggedOut)
	}
}

func TestAuthLogoutWithoutSessionContext(t *testing.T) {
	handler := AuthLogout(&stubAuthService{}, controllerTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthResetPasswordAcknowledges(t *testing.T) {
	svc := &stubAuthService{}
	handler := AuthResetPassword(svc, controllerTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/reset-password",
		bytes.NewReader([]byte(`{"email":"maria@example.com"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.resetEmail != "maria@example.com" {
		t.Fatalf("expected reset for maria@example.com got %q", svc.resetEmail)
	}
}
