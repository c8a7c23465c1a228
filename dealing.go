package pokertableview

import (
	"sort"
	"time"

	"github.com/weedbox/syncsaga"
	"github.com/weedbox/timebank"
)

// DealStep is one card handed to one seat.
type DealStep struct {
	Seat      int `json:"seat"`
	CardIndex int `json:"card_index"`
}

// ComputeDealOrder returns the per-seat, per-card deal order: active seats
// sorted ascending, rotated so iteration starts at the small blind seat (or
// the lowest seat when no blind is known), then two full passes, one card per
// seat per pass. Fewer than two active seats cannot deal; the caller must
// treat dealing as already complete.
func ComputeDealOrder(activeSeats []int, smallBlindSeat int) []DealStep {
	if len(activeSeats) < 2 {
		return []DealStep{}
	}

	sorted := make([]int, len(activeSeats))
	copy(sorted, activeSeats)
	sort.Ints(sorted)

	startIdx := 0
	if smallBlindSeat != UnsetValue {
		for idx, seat := range sorted {
			if seat == smallBlindSeat {
				startIdx = idx
				break
			}
		}
	}

	steps := make([]DealStep, 0, len(sorted)*2)
	for cardIndex := 0; cardIndex < 2; cardIndex++ {
		for i := 0; i < len(sorted); i++ {
			seat := sorted[(startIdx+i)%len(sorted)]
			steps = append(steps, DealStep{Seat: seat, CardIndex: cardIndex})
		}
	}
	return steps
}

// dealingSequencer paces the deal steps and reports completion exactly once.
// Each step is a ready-group participant, marked ready as its card goes out;
// the group timeout auto-readies leftovers so completion always fires even
// when pacing is cut short.
type dealingSequencer struct {
	engine   *viewEngine
	rg       *syncsaga.ReadyGroup
	tb       *timebank.TimeBank
	steps    []DealStep
	gen      int
	interval time.Duration
}

// dealTimeoutSeconds bounds how long the ready group waits before
// auto-readying leftover steps: the full pacing time plus slack, never less
// than the slack alone. Sub-second intervals must not truncate to zero or
// the timeout undercuts the pacing and reports completion mid-deal.
func dealTimeoutSeconds(interval time.Duration, stepCount int) int {
	return int((interval*time.Duration(stepCount))/time.Second) + 2
}

func newDealingSequencer(engine *viewEngine, interval time.Duration) *dealingSequencer {
	return &dealingSequencer{
		engine:   engine,
		rg:       syncsaga.NewReadyGroup(),
		tb:       timebank.NewTimeBank(),
		interval: interval,
	}
}

// Start begins pacing the given steps. Caller holds the engine lock. An
// empty order marks dealing complete on the spot.
func (ds *dealingSequencer) Start(steps []DealStep) {
	ds.Stop()
	ds.steps = steps

	if len(steps) == 0 {
		ds.engine.markDealingDone()
		return
	}

	ds.rg.Stop()
	ds.rg.SetTimeoutInterval(dealTimeoutSeconds(ds.interval, len(steps)))
	ds.rg.OnTimeout(func(rg *syncsaga.ReadyGroup) {
		for stepIdx, isReady := range rg.GetParticipantStates() {
			if !isReady {
				rg.Ready(stepIdx)
			}
		}
	})
	ds.rg.OnCompleted(func(rg *syncsaga.ReadyGroup) {
		// Off the caller's goroutine: completion may be reported from inside
		// a locked dispatch.
		go ds.engine.completeDealing()
	})

	ds.rg.ResetParticipants()
	for stepIdx := range steps {
		ds.rg.Add(int64(stepIdx), false)
	}
	ds.rg.Start()

	if ds.interval <= 0 {
		for stepIdx, step := range steps {
			ds.engine.applyDealStep(step)
			ds.rg.Ready(int64(stepIdx))
		}
		return
	}

	ds.scheduleStep(ds.gen, 0)
}

// scheduleStep paces one step and chains the next; a TimeBank carries a
// single task at a time. Caller holds the engine lock. The generation guard
// drops a task whose deal was superseded while it waited, and ds.steps is
// only ever touched under the engine lock.
func (ds *dealingSequencer) scheduleStep(gen int, stepIdx int) {
	if stepIdx >= len(ds.steps) {
		return
	}

	_ = ds.tb.NewTask(ds.interval, func(isCancelled bool) {
		if isCancelled {
			return
		}

		ds.engine.lock.Lock()
		defer ds.engine.lock.Unlock()

		if gen != ds.gen || stepIdx >= len(ds.steps) {
			return
		}
		ds.engine.applyDealStep(ds.steps[stepIdx])
		ds.rg.Ready(int64(stepIdx))
		ds.scheduleStep(gen, stepIdx+1)
	})
}

// Stop cancels any paced deal in flight. Caller holds the engine lock.
func (ds *dealingSequencer) Stop() {
	ds.gen++
	ds.tb.Cancel()
	ds.rg.Stop()
	ds.steps = nil
}
