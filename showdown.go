package pokertableview

import (
	"time"

	"github.com/weedbox/timebank"
	"go.uber.org/zap"
)

// showdownSequencer owns the table view exclusively from HAND_RESULT until
// the settled result has been fully presented. Every table-mutating event
// arriving in that window is queued and replayed, in arrival order, once the
// sequencer returns to idle; a queued HAND_STARTED always replays last since
// it defines the next hand's canonical state.
//
// Stages: idle -> intro -> revealing -> winner_announced -> settling -> idle.
// Win-by-fold skips revealing. The sequencer never gets stuck in exclusivity:
// a malformed result still walks the full cycle.
type showdownSequencer struct {
	engine    *viewEngine
	tb        *timebank.TimeBank
	stage     ShowdownStage
	exclusive bool
	queue     []Event
	revealIdx int
}

func newShowdownSequencer(engine *viewEngine) *showdownSequencer {
	return &showdownSequencer{
		engine: engine,
		tb:     timebank.NewTimeBank(),
		stage:  ShowdownStage_Idle,
	}
}

func (ss *showdownSequencer) Stage() ShowdownStage {
	return ss.stage
}

func (ss *showdownSequencer) IsExclusive() bool {
	return ss.exclusive
}

// Defer captures an event received during exclusivity, arrival order
// preserved. Caller holds the engine lock.
func (ss *showdownSequencer) Defer(event Event) {
	ss.queue = append(ss.queue, event)
}

// Begin enters the intro stage. Caller holds the engine lock.
func (ss *showdownSequencer) Begin(payload *HandResultPayload) {
	view := ss.engine.view

	ss.exclusive = true
	ss.revealIdx = 0

	// The live prompt and countdown are over regardless of what the result
	// says.
	ss.engine.timer.Cancel()
	view.Prompt = nil
	view.Hand.CurrentTurnSeat = UnsetValue

	if len(payload.CommunityCards) > 0 {
		view.Hand.CommunityCards = payload.CommunityCards
	}
	if PhaseOrder(GamePhase_Showdown) > PhaseOrder(view.Hand.Phase) {
		view.Hand.Phase = GamePhase_Showdown
	}

	// Chip collection: outstanding round bets join the pot before anything is
	// presented. The pot only reaches zero through explicit distribution.
	collected := view.Hand.Pot
	for _, seat := range view.Seats {
		collected += seat.RoundBet
		seat.RoundBet = 0
	}
	view.Hand.Pot = collected

	showdown := &ShowdownView{
		Stage:           ShowdownStage_Intro,
		RevealOrder:     ss.computeRevealOrder(payload.Showdown),
		RevealedSeats:   make([]int, 0),
		HoleCardsBySeat: make(map[int][]string),
		Winners:         payload.Winners,
		CollectedPot:    collected,
	}
	for _, entry := range payload.Showdown {
		showdown.HoleCardsBySeat[entry.Seat] = entry.HoleCards
	}

	if ss.engine.ranker != nil && len(payload.Showdown) > 0 {
		showdown.HandRankBySeat = make(map[int]string)
		showdown.BestFiveBySeat = make(map[int][]string)
		for _, entry := range payload.Showdown {
			result, err := ss.engine.ranker.Rank(entry.HoleCards, view.Hand.CommunityCards)
			if err != nil {
				ss.engine.logger.Warn("showdown: rank evaluation failed",
					zap.Int("seat", entry.Seat),
					zap.Error(err))
				continue
			}
			showdown.HandRankBySeat[entry.Seat] = result.Name
			showdown.BestFiveBySeat[entry.Seat] = result.BestFive
		}
	}

	view.Showdown = showdown
	ss.setStage(ShowdownStage_Intro)
	ss.engine.emitViewUpdated()

	ss.schedule(ss.engine.options.IntroDelay, ss.enterRevealing)
}

// computeRevealOrder walks clockwise starting at the seat after the dealer,
// keeping only seats with hole cards to show.
func (ss *showdownSequencer) computeRevealOrder(entries []ShowdownEntry) []int {
	view := ss.engine.view

	bySeat := make(map[int]bool)
	for _, entry := range entries {
		if len(entry.HoleCards) > 0 {
			bySeat[entry.Seat] = true
		}
	}

	maxSeats := len(view.Seats)
	start := 0
	if view.DealerSeat != UnsetValue && maxSeats > 0 {
		start = (view.DealerSeat + 1) % maxSeats
	}

	order := make([]int, 0, len(bySeat))
	for i := 0; i < maxSeats; i++ {
		seat := (start + i) % maxSeats
		if bySeat[seat] {
			order = append(order, seat)
		}
	}
	return order
}

func (ss *showdownSequencer) enterRevealing() {
	if ss.engine.view.Showdown == nil {
		// Torn down underneath us; release and recover.
		ss.finish()
		return
	}

	// Win-by-fold: nothing to reveal, go straight to the winner.
	if len(ss.engine.view.Showdown.RevealOrder) == 0 {
		ss.enterWinnerAnnounced()
		return
	}

	ss.setStage(ShowdownStage_Revealing)
	ss.revealNext()
}

func (ss *showdownSequencer) revealNext() {
	view := ss.engine.view
	showdown := view.Showdown
	if showdown == nil || ss.revealIdx >= len(showdown.RevealOrder) {
		ss.enterWinnerAnnounced()
		return
	}

	seat := showdown.RevealOrder[ss.revealIdx]
	ss.revealIdx++

	showdown.RevealedSeats = append(showdown.RevealedSeats, seat)
	if seatState := view.FindSeat(seat); seatState != nil {
		if cards, ok := showdown.HoleCardsBySeat[seat]; ok {
			seatState.HoleCards = cards
			if seat == view.MySeat {
				ss.engine.holeCardSource = holeCardSource_Reveal
			}
		}
	}
	ss.engine.emitViewUpdated()

	if ss.revealIdx >= len(showdown.RevealOrder) {
		ss.schedule(ss.engine.options.RevealInterval, ss.enterWinnerAnnounced)
		return
	}
	ss.schedule(ss.engine.options.RevealInterval, ss.revealNext)
}

func (ss *showdownSequencer) enterWinnerAnnounced() {
	view := ss.engine.view
	showdown := view.Showdown

	ss.setStage(ShowdownStage_WinnerAnnounced)

	if showdown == nil || len(showdown.Winners) == 0 {
		// Malformed result: keep walking the cycle so exclusivity is always
		// released.
		ss.engine.logger.Warn("showdown: empty or malformed winners list",
			zap.String("table_id", view.TableID))
	} else {
		distributed := int64(0)
		for _, winner := range showdown.Winners {
			seatState := view.FindSeat(winner.Seat)
			if seatState == nil {
				ss.engine.logger.Warn("showdown: winner references unknown seat",
					zap.Int("seat", winner.Seat))
				continue
			}
			seatState.Stack += winner.Amount
			distributed += winner.Amount
		}

		// Pot-to-winner distribution is the only way the pot reaches zero.
		view.Hand.Pot -= distributed
		if view.Hand.Pot < 0 {
			ss.engine.logger.Warn("showdown: winners exceed collected pot",
				zap.Int64("over", -view.Hand.Pot))
			view.Hand.Pot = 0
		}
	}

	ss.engine.emitViewUpdated()
	ss.schedule(ss.engine.options.WinnerDisplay, ss.enterSettling)
}

func (ss *showdownSequencer) enterSettling() {
	ss.setStage(ShowdownStage_Settling)
	ss.engine.emitViewUpdated()
	ss.schedule(ss.engine.options.SettleDelay, ss.finish)
}

// finish returns to idle: exclusivity released, showdown-scoped state
// cleared, buffered seat stacks applied, and the deferral queue replayed
// exactly once through the normal dispatch path.
func (ss *showdownSequencer) finish() {
	view := ss.engine.view

	ss.stage = ShowdownStage_Idle
	ss.exclusive = false
	ss.revealIdx = 0
	view.Showdown = nil

	ss.engine.applyPendingStacks()
	ss.engine.emitStageUpdated(ShowdownStage_Idle)
	ss.engine.emitViewUpdated()

	ss.replayDeferred()
}

func (ss *showdownSequencer) replayDeferred() {
	if len(ss.queue) == 0 {
		return
	}

	deferred := ss.queue
	ss.queue = nil

	// A deferred HAND_STARTED defines the next hand's canonical state; it
	// replays after everything else so stale leftovers cannot clobber it.
	handStarts := make([]Event, 0, 1)
	for _, event := range deferred {
		if event.Type == EventType_HandStarted {
			handStarts = append(handStarts, event)
			continue
		}
		ss.engine.dispatch(event)
	}
	for _, event := range handStarts {
		ss.engine.dispatch(event)
	}
}

func (ss *showdownSequencer) setStage(stage ShowdownStage) {
	ss.stage = stage
	if ss.engine.view.Showdown != nil {
		ss.engine.view.Showdown.Stage = stage
	}
	ss.engine.emitStageUpdated(stage)
}

// schedule runs fn after the given delay, inline when the delay is zero so
// tests and degenerate configurations stay deterministic. The timebank path
// re-enters through the engine lock.
func (ss *showdownSequencer) schedule(delay time.Duration, fn func()) {
	if delay <= 0 {
		fn()
		return
	}

	_ = ss.tb.NewTask(delay, func(isCancelled bool) {
		if isCancelled {
			return
		}

		ss.engine.lock.Lock()
		defer ss.engine.lock.Unlock()
		fn()
	})
}
