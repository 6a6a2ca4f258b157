package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rastromax/rastromax-backend/internal/trackers"
	"github.com/rastromax/rastromax-backend/pkg/logger"
)

// Listener ingests raw device packets over TCP. Each line carries one
// observation in "identifier,lat,lng" form. Malformed packets are logged and
// dropped; there is no acknowledgement protocol.
type Listener struct {
	addr  string
	cache *Cache
	logg  *logger.Logger
}

// NewListener builds a TCP ingest listener feeding the snapshot cache.
func NewListener(addr string, cache *Cache, logg *logger.Logger) (*Listener, error) {
	if cache == nil {
		return nil, fmt.Errorf("snapshot cache required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Listener{addr: addr, cache: cache, logg: logg}, nil
}

// Serve accepts device connections until ctx is cancelled.
func (l *Listener) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("telemetry ingest listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	l.logg.Info(l.logg.WithField(ctx, "addr", l.addr), "telemetry ingest listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.logg.Error(ctx, "telemetry ingest accept", err)
			continue
		}
		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		identifier, lat, lng, err := parsePacket(line)
		if err != nil {
			l.logg.Warn(l.logg.WithFields(ctx, map[string]any{
				"remote": conn.RemoteAddr().String(),
				"error":  err.Error(),
			}), "malformed telemetry packet dropped")
			continue
		}
		l.cache.RecordObservation(identifier, lat, lng, nil, nil, time.Now())
	}
}

func parsePacket(line string) (identifier string, lat, lng float64, err error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("expected 3 fields, got %d", len(parts))
	}

	identifier = strings.TrimSpace(parts[0])
	if !trackers.ValidIdentifier(identifier) {
		return "", 0, 0, fmt.Errorf("invalid device identifier %q", identifier)
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	return identifier, lat, lng, nil
}
