package clock

import (
	"testing"
	"time"
)

func TestNewSystemDefaultsToParis(t *testing.T) {
	c, err := NewSystem("")
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	if c.Location().String() != DefaultTimezone {
		t.Fatalf("expected %s got %s", DefaultTimezone, c.Location())
	}
	if c.Now().Location() != c.Location() {
		t.Fatalf("Now() not reported in configured location")
	}
}

func TestNewSystemUnknownZone(t *testing.T) {
	if _, err := NewSystem("Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestMockAdvance(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	m := NewMock(start)
	m.Advance(48 * time.Hour)
	if got := m.Now(); !got.Equal(start.Add(48 * time.Hour)) {
		t.Fatalf("Advance: got %v", got)
	}
	m.Set(start)
	if !m.Now().Equal(start) {
		t.Fatalf("Set: got %v", m.Now())
	}
}

func TestUTC(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	m := NewMock(time.Date(2024, 6, 1, 12, 0, 0, 0, paris))
	got := UTC(m)()
	if got.Location() != time.UTC || got.Hour() != 10 {
		t.Fatalf("expected 10:00 UTC got %v", got)
	}
}
