package store

import (
	"sync"

	"gorm.io/gorm"
)

// Change is the before/after pair of one column in an update.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Event describes a successful write. It is emitted inside the transaction of
// the write, so an observer error rolls the write back.
type Event struct {
	Action   string
	Kind     string
	EntityID uint
	Changes  map[string]Change
	Actor    *uint
	IP       string
}

// Observer receives write events. tx is the transaction of the write.
type Observer interface {
	Observe(tx *gorm.DB, ev Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(tx *gorm.DB, ev Event) error

func (f ObserverFunc) Observe(tx *gorm.DB, ev Event) error { return f(tx, ev) }

// InfrastructureKinds never produce events.
var InfrastructureKinds = []string{"audit_log", "session", "content_type", "admin_log"}

// Hooks is the explicit observer registry the write path notifies.
type Hooks struct {
	mu        sync.RWMutex
	observers []Observer
	excluded  map[string]bool
}

// NewHooks returns a registry that already excludes InfrastructureKinds.
func NewHooks() *Hooks {
	h := &Hooks{excluded: make(map[string]bool)}
	h.Exclude(InfrastructureKinds...)
	return h
}

// Register adds an observer. Observers are called in registration order.
func (h *Hooks) Register(o Observer) {
	h.mu.Lock()
	h.observers = append(h.observers, o)
	h.mu.Unlock()
}

// Exclude silences events for the given kinds.
func (h *Hooks) Exclude(kinds ...string) {
	h.mu.Lock()
	for _, k := range kinds {
		h.excluded[k] = true
	}
	h.mu.Unlock()
}

// Excluded reports whether kind is silenced.
func (h *Hooks) Excluded(kind string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.excluded[kind]
}

func (h *Hooks) emit(tx *gorm.DB, ev Event) error {
	if h == nil || h.Excluded(ev.Kind) {
		return nil
	}
	h.mu.RLock()
	observers := append([]Observer(nil), h.observers...)
	h.mu.RUnlock()
	for _, o := range observers {
		if err := o.Observe(tx, ev); err != nil {
			return err
		}
	}
	return nil
}
