package pokertableview

import (
	"sync"
	"time"

	"github.com/weedbox/timebank"
)

// turnTimer converts the server-supplied turn start time and duration into a
// local countdown against an absolute deadline, so every client converges on
// the same expiry regardless of message latency. The expiry callback fires at
// most once per Start; a duplicate tick, a Start/expiry race, or a superseded
// deadline task that slipped past cancellation cannot fire the new countdown.
type turnTimer struct {
	tb       *timebank.TimeBank
	mu       sync.Mutex
	gen      uint64
	seat     int
	deadline time.Time
	fired    bool
	running  bool
	onExpire func(seat int)
}

func newTurnTimer() *turnTimer {
	return &turnTimer{
		tb:       timebank.NewTimeBank(),
		seat:     UnsetValue,
		onExpire: func(int) {},
	}
}

func (t *turnTimer) OnExpire(fn func(seat int)) {
	t.onExpire = fn
}

// Start supersedes any previous countdown. turnStartTime is Unix seconds as
// reported by the server; an already-passed deadline expires immediately.
func (t *turnTimer) Start(seat int, turnStartTime int64, durationSeconds int) {
	t.tb.Cancel()

	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.seat = seat
	t.deadline = time.Unix(turnStartTime, 0).Add(time.Duration(durationSeconds) * time.Second)
	t.fired = false
	t.running = true
	deadline := t.deadline
	t.mu.Unlock()

	if !deadline.After(time.Now()) {
		// Off the caller's goroutine: Start may run inside a locked dispatch
		// and the expiry callback re-enters the engine.
		go t.expireGen(gen)
		return
	}

	// Cancel cannot reach a task callback already past its isCancelled check;
	// the captured generation keeps such a straggler from firing the new
	// countdown.
	_ = t.tb.NewTaskWithDeadline(deadline, func(isCancelled bool) {
		if isCancelled {
			return
		}
		t.expireGen(gen)
	})
}

// Cancel stops the countdown without firing: a new prompt superseded the old
// one, the hand ended, or the local player's action beat the clock.
func (t *turnTimer) Cancel() {
	t.tb.Cancel()

	t.mu.Lock()
	t.gen++
	t.running = false
	t.seat = UnsetValue
	t.mu.Unlock()
}

// Remaining reports the time left on the live countdown, zero floor.
func (t *turnTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return 0
	}
	remaining := time.Until(t.deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *turnTimer) Seat() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seat
}

// expire fires whatever countdown is currently live.
func (t *turnTimer) expire() {
	t.mu.Lock()
	gen := t.gen
	t.mu.Unlock()
	t.expireGen(gen)
}

func (t *turnTimer) expireGen(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.fired || !t.running {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.running = false
	seat := t.seat
	t.mu.Unlock()

	t.onExpire(seat)
}
