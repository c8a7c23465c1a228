package pokertableview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fullSnapshot() Event {
	return NewEvent(EventType_TableSnapshot, fullSnapshotPayload())
}

func fullSnapshotPayload() TableSnapshotPayload {
	return TableSnapshotPayload{
		TableID:    "t1",
		MyPosition: intPtr(3),
		Seats: []SnapshotSeat{
			seatSnapshot(1, "p1", 800, SeatStatus_Active),
			seatSnapshot(3, "p3", 1200, SeatStatus_Active),
			seatSnapshot(5, "p5", 600, SeatStatus_Folded),
		},
		HandState: &SnapshotHandState{
			Phase:           GamePhase_Turn,
			Pot:             450,
			CommunityCards:  []string{"AS", "KD", "7C", "2H"},
			CurrentBet:      100,
			MinRaise:        200,
			CurrentTurnSeat: intPtr(1),
			DealerSeat:      intPtr(5),
			SBSeat:          intPtr(1),
			BBSeat:          intPtr(3),
		},
	}
}

func TestSnapshot_ReapplyIsIdempotent(t *testing.T) {
	ve, _ := newTestEngine()

	ve.Dispatch(fullSnapshot())
	first, _ := ve.GetView()

	ve.Dispatch(fullSnapshot())
	second, _ := ve.GetView()

	// Identical snapshots produce semantically identical views; only the
	// update bookkeeping advances.
	first.UpdateAt = 0
	first.UpdateSerial = 0
	second.UpdateAt = 0
	second.UpdateSerial = 0
	assert.Equal(t, first, second)
}

func TestSnapshot_ReplacesSeatsWholesale(t *testing.T) {
	ve, _ := newTestEngine()

	ve.Dispatch(fullSnapshot())

	// A player left; the new snapshot no longer lists seat 5.
	ve.Dispatch(NewEvent(EventType_TableSnapshot, TableSnapshotPayload{
		TableID: "t1",
		Seats: []SnapshotSeat{
			seatSnapshot(1, "p1", 800, SeatStatus_Active),
			seatSnapshot(3, "p3", 1200, SeatStatus_Active),
		},
	}))

	view, _ := ve.GetView()
	assert.Equal(t, SeatStatus_Empty, view.FindSeat(5).Status)
	assert.Equal(t, "", view.FindSeat(5).PlayerID)
	assert.Equal(t, int64(0), view.FindSeat(5).Stack)
}

func TestSnapshot_MatchesLocalPlayerByID(t *testing.T) {
	ve := NewViewEngine(zeroDelayOptions(),
		WithTransport(&fakeTransport{}),
		WithLocalPlayerID("p5"),
	).(*viewEngine)

	ve.Dispatch(NewEvent(EventType_TableSnapshot, TableSnapshotPayload{
		TableID: "t1",
		Seats: []SnapshotSeat{
			seatSnapshot(1, "p1", 800, SeatStatus_Active),
			seatSnapshot(5, "p5", 600, SeatStatus_Active),
		},
	}))

	view, _ := ve.GetView()
	assert.Equal(t, 5, view.MySeat)
}

func TestSnapshot_HoleCardFallbackChain(t *testing.T) {
	ve, _ := newTestEngine()

	// No top-level my_hole_cards; the per-seat record for the local seat is
	// the fallback.
	ve.Dispatch(NewEvent(EventType_TableSnapshot, TableSnapshotPayload{
		TableID:    "t1",
		MyPosition: intPtr(3),
		Seats: []SnapshotSeat{
			seatSnapshot(1, "p1", 800, SeatStatus_Active),
			{Position: 3, PlayerID: "p3", Stack: 1200, Status: SeatStatus_Active, HoleCards: []string{"9C", "9D"}},
		},
	}))

	view, _ := ve.GetView()
	assert.Equal(t, []string{"9C", "9D"}, view.FindSeat(3).HoleCards)
}

func TestSnapshot_TopLevelHoleCardsPreferred(t *testing.T) {
	ve, _ := newTestEngine()

	ve.Dispatch(NewEvent(EventType_TableSnapshot, TableSnapshotPayload{
		TableID:     "t1",
		MyPosition:  intPtr(3),
		MyHoleCards: []string{"AH", "AC"},
		Seats: []SnapshotSeat{
			{Position: 3, PlayerID: "p3", Stack: 1200, Status: SeatStatus_Active, HoleCards: []string{"9C", "9D"}},
		},
	}))

	view, _ := ve.GetView()
	assert.Equal(t, []string{"AH", "AC"}, view.FindSeat(3).HoleCards)
}

func TestSnapshot_DoesNotDowngradeRevealedHoleCards(t *testing.T) {
	ve, _ := handResultEngine(t, zeroDelayOptions())

	// Showdown revealed the local seat's cards.
	ve.Dispatch(NewEvent(EventType_HandResult, HandResultPayload{
		Showdown: []ShowdownEntry{
			{Seat: 3, HoleCards: []string{"KS", "KD"}},
		},
		Winners:        []Winner{{Seat: 3, Amount: 500}},
		CommunityCards: []string{"2C", "7D", "9H", "JC", "4S"},
	}))

	assert.Equal(t, holeCardSource_Reveal, ve.holeCardSource)

	// A snapshot's stale hole cards must not overwrite the revealed ones...
	ve.lock.Lock()
	ve.commitHoleCards([]string{"2C", "3C"}, holeCardSource_Snapshot)
	ve.lock.Unlock()

	view, _ := ve.GetView()
	assert.Equal(t, []string{"KS", "KD"}, view.FindSeat(3).HoleCards)
}

func TestSnapshot_PromptFromAllowedActionsWithoutTimer(t *testing.T) {
	ve, _ := newTestEngine()

	ve.Dispatch(NewEvent(EventType_TableSnapshot, TableSnapshotPayload{
		TableID:    "t1",
		MyPosition: intPtr(3),
		Seats: []SnapshotSeat{
			seatSnapshot(3, "p3", 1200, SeatStatus_Active),
			seatSnapshot(5, "p5", 600, SeatStatus_Active),
		},
		AllowedActions: []AllowedAction{
			{Type: WagerAction_Check},
			{Type: WagerAction_Bet, MinAmount: 20, MaxAmount: 1200},
		},
	}))

	view, _ := ve.GetView()
	assert.NotNil(t, view.Prompt)
	assert.Equal(t, 3, view.Prompt.Seat)
	assert.Equal(t, int64(UnsetValue), view.Prompt.TurnStartTime)

	// No deadline, no countdown; the next TURN_PROMPT re-arms the clock.
	assert.Equal(t, UnsetValue, ve.timer.Seat())
	assert.True(t, view.IsActionAllowed(WagerAction_Check))
}

func TestSnapshot_StateRestoreReconstructsDealing(t *testing.T) {
	ve, _ := newTestEngine()

	payload := fullSnapshotPayload()
	payload.IsStateRestore = true

	ve.Dispatch(NewEvent(EventType_TableSnapshot, payload))

	view, _ := ve.GetView()
	assert.True(t, view.DealingDone)
	// Two active seats rejoin mid-hand: both cards per seat accounted for.
	assert.Equal(t, 4, view.DealProgress)
}

func TestSnapshot_StateRestoreBetweenHands(t *testing.T) {
	ve, _ := newTestEngine()

	ve.Dispatch(NewEvent(EventType_TableSnapshot, TableSnapshotPayload{
		TableID: "t1",
		Seats: []SnapshotSeat{
			seatSnapshot(1, "p1", 800, SeatStatus_Active),
			seatSnapshot(3, "p3", 1200, SeatStatus_Active),
		},
		HandState: &SnapshotHandState{
			Phase: GamePhase_Waiting,
		},
		IsStateRestore: true,
	}))

	view, _ := ve.GetView()
	assert.False(t, view.DealingDone)
	assert.Equal(t, 0, view.DealProgress)
}

func TestSnapshot_MidShowdownBuffersStacksAppliesStatuses(t *testing.T) {
	options := zeroDelayOptions()
	options.WinnerDisplay = 150 * time.Millisecond

	ve, _ := handResultEngine(t, options)

	ve.Dispatch(NewEvent(EventType_HandResult, HandResultPayload{
		Winners: []Winner{{Seat: 3, Amount: 500}},
	}))
	assert.True(t, ve.sequencer.IsExclusive())

	potBefore := func() int64 {
		view, _ := ve.GetView()
		return view.Hand.Pot
	}()

	ve.Dispatch(NewEvent(EventType_TableSnapshot, TableSnapshotPayload{
		TableID: "t1",
		Seats: []SnapshotSeat{
			{Position: 1, PlayerID: "p1", Stack: 123, Status: SeatStatus_SittingOut},
			{Position: 3, PlayerID: "p3", Stack: 1500, Status: SeatStatus_Active},
		},
		HandState: &SnapshotHandState{
			Phase: GamePhase_Waiting,
			Pot:   0,
		},
	}))

	view, _ := ve.GetView()
	// Status lands immediately, stack and pot and phase stay frozen.
	assert.Equal(t, SeatStatus_SittingOut, view.FindSeat(1).Status)
	assert.Equal(t, int64(1000), view.FindSeat(1).Stack)
	assert.Equal(t, potBefore, view.Hand.Pot)
	assert.Equal(t, GamePhase_Showdown, view.Hand.Phase)

	// Buffered stacks and the deferred snapshot's hand state land once the
	// sequencer returns to idle.
	assert.Eventually(t, func() bool {
		view, _ := ve.GetView()
		return view.FindSeat(1).Stack == 123 &&
			view.FindSeat(3).Stack == 1500 &&
			view.Hand.Phase == GamePhase_Waiting &&
			view.Hand.Pot == 0
	}, time.Second, 10*time.Millisecond)
}
