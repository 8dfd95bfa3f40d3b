package rtos

import (
	"math/rand"
	"time"
)

// WatchdogSlot is a stand-in for a hardware watchdog timer's per-task
// service slot. The PSE flush thread (§5) feeds one on every dequeue so a
// stalled flush loop is independently detectable; a real platform would
// wire Feed to the board's watchdog IP instead of doing nothing.
type WatchdogSlot struct {
	name   string
	fedAt  time.Time
	period time.Duration
}

func NewWatchdogSlot(name string, period time.Duration) *WatchdogSlot {
	return &WatchdogSlot{name: name, period: period}
}

func (w *WatchdogSlot) Feed() { w.fedAt = time.Now() }

// Starved reports whether the slot has gone unfed longer than its period.
// Used only by tests and diagnostics; it never panics or halts on its own.
func (w *WatchdogSlot) Starved() bool {
	if w.fedAt.IsZero() {
		return false
	}
	return time.Since(w.fedAt) > w.period
}

// Jittered returns interval plus a uniform random extra in [0, jitter],
// generalized from the HAL poller's re-arm jitter so any periodic task
// (the PSE's idle flush timer, a sensor polling loop) can avoid lockstep
// wakeups across many PMC instances sharing a power rail.
func Jittered(rng *rand.Rand, interval, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return interval
	}
	extra := time.Duration(rng.Int63n(int64(jitter) + 1))
	return interval + extra
}
