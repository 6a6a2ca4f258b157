package telemetry

import (
	"sync"
	"time"
)

// Default coordinates rendered while a device awaits its first signal.
// Absence of telemetry is not an error state.
const (
	DefaultLat = -23.5505
	DefaultLng = -46.6333
)

// Snapshot is the last known state of one device, keyed by its hardware
// identifier. At most one snapshot exists per device.
type Snapshot struct {
	Identifier string
	Lat        float64
	Lng        float64
	BatteryPct *float64
	PoweredOn  *bool
	ObservedAt time.Time
}

// Cache holds per-device snapshots with last-write-wins semantics on
// ObservedAt. It is the only shared mutable state in the process and is safe
// for concurrent use.
type Cache struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewCache returns an empty snapshot cache.
func NewCache() *Cache {
	return &Cache{snapshots: make(map[string]Snapshot)}
}

// RecordObservation applies one observation. Observations older than the
// stored snapshot are discarded regardless of arrival order. Battery and
// power state are carried over from the previous snapshot when the new
// observation does not include them. Returns false when the observation was
// discarded as stale.
func (c *Cache) RecordObservation(identifier string, lat, lng float64, batteryPct *float64, poweredOn *bool, observedAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.snapshots[identifier]
	if ok && observedAt.Before(current.ObservedAt) {
		return false
	}

	next := Snapshot{
		Identifier: identifier,
		Lat:        lat,
		Lng:        lng,
		BatteryPct: batteryPct,
		PoweredOn:  poweredOn,
		ObservedAt: observedAt,
	}
	if next.BatteryPct == nil {
		next.BatteryPct = current.BatteryPct
	}
	if next.PoweredOn == nil {
		next.PoweredOn = current.PoweredOn
	}
	c.snapshots[identifier] = next
	return true
}

// Latest returns the most recent snapshot for a device. The second return is
// false when the device has not reported yet.
func (c *Cache) Latest(identifier string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[identifier]
	return snap, ok
}

// Forget drops a device's snapshot. Called when the owning device record is
// deleted; snapshots are never removed otherwise.
func (c *Cache) Forget(identifier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, identifier)
}
