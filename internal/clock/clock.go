// Package clock provides the single source of "now" used by the persistence layer.
// Every timestamp written by the application (created_at, updated_at, deleted_at,
// audit timestamps, purge horizons) goes through a Clock so tests can pin time.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is the zone used when none is configured.
const DefaultTimezone = "Europe/Paris"

// Clock returns the current time in the application timezone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// System reads the wall clock and reports it in a fixed location.
type System struct {
	loc *time.Location
}

// NewSystem loads tz (IANA name). An empty tz falls back to DefaultTimezone.
func NewSystem(tz string) (*System, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return &System{loc: loc}, nil
}

func (s *System) Now() time.Time { return time.Now().In(s.loc) }

func (s *System) Location() *time.Location { return s.loc }

// Mock is a manually driven clock for tests.
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock returns a Mock frozen at t.
func NewMock(t time.Time) *Mock { return &Mock{now: t} }

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) Location() *time.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now.Location()
}

// Set moves the clock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d (negative values move it back).
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// UTC is the storage form of c.Now(). Timestamps are persisted in UTC so that
// text-backed drivers (SQLite) compare them correctly.
func UTC(c Clock) func() time.Time {
	return func() time.Time { return c.Now().UTC() }
}
