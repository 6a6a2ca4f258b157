package telemetry

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newRegistryForTests(t *testing.T) *SessionPollers {
	t.Helper()
	srv := newGatewayServer(t, false)
	t.Cleanup(srv.Close)
	poller, _ := newPollerForTests(t, srv.URL, &stubLister{})
	return NewSessionPollers(poller, time.Minute)
}

func waitForSessionCount(t *testing.T, reg *SessionPollers, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		reg.mu.Lock()
		got := len(reg.sessions)
		reg.mu.Unlock()
		if got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d running sessions", want)
}

func TestEndSessionStopsLoop(t *testing.T) {
	reg := newRegistryForTests(t)

	reg.StartSession("session-a", uuid.New())
	waitForSessionCount(t, reg, 1)

	reg.EndSession("session-a")
	waitForSessionCount(t, reg, 0)
}

func TestStartSessionReplacesPreviousLoop(t *testing.T) {
	reg := newRegistryForTests(t)

	reg.StartSession("session-a", uuid.New())
	reg.StartSession("session-a", uuid.New())
	waitForSessionCount(t, reg, 1)

	reg.EndSession("session-a")
	waitForSessionCount(t, reg, 0)
}

func TestStopAllDrainsSessions(t *testing.T) {
	reg := newRegistryForTests(t)

	reg.StartSession("session-a", uuid.New())
	reg.StartSession("session-b", uuid.New())
	waitForSessionCount(t, reg, 2)

	reg.StopAll()
	waitForSessionCount(t, reg, 0)
}

func TestNilRegistryIsSafe(t *testing.T) {
	var reg *SessionPollers
	reg.StartSession("session-a", uuid.New())
	reg.EndSession("session-a")
	reg.StopAll()
}
