package mirror

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/enums"
	"github.com/rastromax/rastromax-backend/pkg/logger"
	"github.com/rastromax/rastromax-backend/pkg/metrics"
	redisclient "github.com/rastromax/rastromax-backend/pkg/redis"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, collection string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "collection" && label.GetValue() == collection {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestMirrorUserWritesLegacyDocument(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redisclient.NewFromAddr(srv.Addr())
	reg := prometheus.NewRegistry()
	writer := NewWriter(client, quietLogger(), metrics.NewMirrorMetrics(reg))

	phone := "11987654321"
	user := &models.User{
		ID:        uuid.New(),
		Email:     "cliente@example.com",
		Name:      "Cliente Teste",
		Phone:     &phone,
		Role:      enums.RoleClient,
		IsActive:  true,
		UpdatedAt: time.Now(),
	}

	writer.MirrorUser(context.Background(), user)

	raw, err := srv.Get("rm:legacy:users:" + user.ID.String())
	if err != nil {
		t.Fatalf("expected legacy document: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal doc: %v", err)
	}
	if doc["email"] != user.Email {
		t.Fatalf("email = %v, want %s", doc["email"], user.Email)
	}
	if doc["tipo"] != "client" {
		t.Fatalf("tipo = %v, want client", doc["tipo"])
	}
	if got := counterValue(t, reg, "mirror_write_success_total", "users"); got != 1 {
		t.Fatalf("success counter = %v, want 1", got)
	}
}

func TestMirrorTicketAndRemove(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redisclient.NewFromAddr(srv.Addr())
	reg := prometheus.NewRegistry()
	writer := NewWriter(client, quietLogger(), metrics.NewMirrorMetrics(reg))

	assignee := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		AssigneeID:  &assignee,
		Title:       "Sem sinal",
		Description: "Rastreador parou de reportar",
		Status:      enums.TicketStatusInProgress,
		Priority:    enums.TicketPriorityAlta,
		UpdatedAt:   time.Now(),
	}

	key := "rm:legacy:tickets:" + ticket.ID.String()

	writer.MirrorTicket(context.Background(), ticket)
	if !srv.Exists(key) {
		t.Fatal("expected ticket document in legacy store")
	}

	writer.RemoveTicket(context.Background(), ticket.ID)
	if srv.Exists(key) {
		t.Fatal("expected ticket document removed from legacy store")
	}
}

func TestMirrorFailureIsSwallowedAndCounted(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redisclient.NewFromAddr(srv.Addr())
	reg := prometheus.NewRegistry()
	writer := NewWriter(client, quietLogger(), metrics.NewMirrorMetrics(reg))

	// kill the backend so the Set fails
	srv.Close()

	user := &models.User{ID: uuid.New(), Email: "x@example.com", Name: "X", Role: enums.RoleClient}
	writer.MirrorUser(context.Background(), user)

	if got := counterValue(t, reg, "mirror_write_failure_total", "users"); got != 1 {
		t.Fatalf("failure counter = %v, want 1", got)
	}
}
