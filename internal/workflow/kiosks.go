package workflow

import (
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Kiosks keeps one Orchestrator per kiosk, so the one-submission guard applies
// to a single terminal and never to the whole server. Orchestrators idle for
// longer than the idle timeout are dropped unless a submission is running.
type Kiosks struct {
	factory func() *Orchestrator
	idle    time.Duration
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*kioskEntry
	lastSweep time.Time
}

type kioskEntry struct {
	orch     *Orchestrator
	lastSeen time.Time
}

// NewKiosks creates a registry that builds orchestrators with factory.
// A non-positive idle uses constants.KioskIdleTimeout.
func NewKiosks(factory func() *Orchestrator, idle time.Duration) *Kiosks {
	if idle <= 0 {
		idle = constants.KioskIdleTimeout
	}
	return &Kiosks{
		factory: factory,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*kioskEntry),
	}
}

// For returns the orchestrator of kiosk id, creating it on first use.
func (k *Kiosks) For(id string) *Orchestrator {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	k.sweep(now)

	e, ok := k.entries[id]
	if !ok {
		e = &kioskEntry{orch: k.factory()}
		k.entries[id] = e
	}
	e.lastSeen = now
	return e.orch
}

// Len returns the number of kiosks currently tracked.
func (k *Kiosks) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// sweep drops idle entries at most once per idle period. Caller holds mu.
func (k *Kiosks) sweep(now time.Time) {
	if now.Sub(k.lastSweep) < k.idle {
		return
	}
	k.lastSweep = now
	for id, e := range k.entries {
		if now.Sub(e.lastSeen) >= k.idle && !e.orch.Busy() {
			delete(k.entries, id)
		}
	}
}
