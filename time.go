package splitworld

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Time counts simulation ticks and measures the tick rate over one second
// windows.
type Time struct {
	mu deadlock.Mutex

	last        time.Time
	dt          time.Duration
	ticks       uint64
	windowStart time.Time
	windowTicks int
	tps         float64
}

func NewTime() *Time {
	t := &Time{}
	t.Reset()
	return t
}

func (t *Time) Tick() {
	t.tickAt(time.Now())
}

func (t *Time) tickAt(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dt = now.Sub(t.last)
	t.last = now
	t.ticks++
	t.windowTicks++

	if elapsed := now.Sub(t.windowStart); elapsed >= time.Second {
		t.tps = float64(t.windowTicks) / elapsed.Seconds()
		t.windowStart = now
		t.windowTicks = 0
	}
}

// Reset clears the counters.
func (t *Time) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.last = now
	t.windowStart = now
	t.dt = 0
	t.ticks = 0
	t.windowTicks = 0
	t.tps = 0
}

func (t *Time) Ticks() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

// Dt is the wall time between the last two ticks.
func (t *Time) Dt() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dt
}

// TicksPerSecond is the rate measured over the last complete window.
func (t *Time) TicksPerSecond() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tps
}
