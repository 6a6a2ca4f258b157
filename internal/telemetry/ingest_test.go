package telemetry

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestParsePacket(t *testing.T) {
	cases := []struct {
		name string
		line string
		ok   bool
	}{
		{"valid", "123456789012345,-23.5505,-46.6333", true},
		{"valid with spaces", "123456789012345, -23.5505, -46.6333", true},
		{"missing field", "123456789012345,-23.5505", false},
		{"extra field", "123456789012345,-23.5,-46.6,99", false},
		{"bad identifier", "12345,-23.5,-46.6", false},
		{"bad latitude", "123456789012345,north,-46.6", false},
		{"bad longitude", "123456789012345,-23.5,west", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			identifier, lat, lng, err := parsePacket(tc.line)
			if tc.ok && err != nil {
				t.Fatalf("parsePacket(%q) returned error: %v", tc.line, err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatalf("parsePacket(%q) should fail", tc.line)
				}
				return
			}
			if identifier != "123456789012345" || lat != -23.5505 || lng != -46.6333 {
				t.Fatalf("unexpected parse result %q %f %f", identifier, lat, lng)
			}
		})
	}
}

func TestListenerRecordsAndDropsMalformed(t *testing.T) {
	cache := NewCache()
	listener, err := NewListener("127.0.0.1:0", cache, testLogger())
	if err != nil {
		t.Fatalf("NewListener returned error: %v", err)
	}

	// grab a free port, then point the listener at it
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("probe listen: %v", err)
	}
	addr := probe.Addr().String()
	probe.Close()
	listener.addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- listener.Serve(ctx) }()

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial ingest listener: %v", err)
	}

	if _, err := conn.Write([]byte("garbage line\n123456789012345,-23.5505,-46.6333\n")); err != nil {
		t.Fatalf("write packets: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if snap, ok := cache.Latest("123456789012345"); ok {
			if snap.Lat != -23.5505 || snap.Lng != -46.6333 {
				t.Fatalf("unexpected snapshot %+v", snap)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("valid packet never reached the cache")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, ok := cache.Latest("garbage line"); ok {
		t.Fatal("malformed packet must be dropped")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener must stop on context cancellation")
	}
}
