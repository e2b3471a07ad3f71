package auction

import (
	"sync"
	"time"
)

// phaseTimer arms at most one countdown at a time and guarantees its fire
// callback runs exactly once for the armed generation, or not at all if
// disarmed first (§4.3). A generation counter survives races between a
// just-fired timer and a concurrent disarm because the fire is delivered
// through the coordinator's inbox and re-checked there against the
// generation recorded at arm time.
type phaseTimer struct {
	mu         sync.Mutex
	generation int
	stop       *time.Timer
}

// arm schedules onFire to run after d, tagged with the generation active at
// arm time. Any previously armed timer is cancelled first.
func (t *phaseTimer) arm(d time.Duration, onFire func(generation int)) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		t.stop.Stop()
	}
	t.generation++
	gen := t.generation
	t.stop = time.AfterFunc(d, func() { onFire(gen) })
	return gen
}

// disarm cancels any in-flight timer and invalidates its generation so a
// fire already in transit is recognized as stale by validGeneration.
func (t *phaseTimer) disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		t.stop.Stop()
		t.stop = nil
	}
	t.generation++
}

// validGeneration reports whether gen is still the currently armed
// generation. Call this from inside the per-auction serialization boundary
// before acting on a fired timer.
func (t *phaseTimer) validGeneration(gen int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil && t.generation == gen
}
