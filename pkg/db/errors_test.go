package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := errors.New(`duplicate key value violates unique constraint "users_email_key"`)
	sqliteErr := errors.New("UNIQUE constraint failed: users.email")

	if !IsUniqueViolation(pgErr) {
		t.Fatal("postgres duplicate key must be detected without a constraint name")
	}
	if !IsUniqueViolation(sqliteErr) {
		t.Fatal("sqlite unique failure must be detected without a constraint name")
	}
	if !IsUniqueViolation(pgErr, "users_email_key") {
		t.Fatal("named constraint must match")
	}
	if IsUniqueViolation(pgErr, "vehicles_plate_key") {
		t.Fatal("mismatched constraint name must not match")
	}
	if IsUniqueViolation(nil) {
		t.Fatal("nil error is never a violation")
	}
	if IsUniqueViolation(errors.New("connection refused")) {
		t.Fatal("unrelated errors must not match")
	}
}
