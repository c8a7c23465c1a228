package pokertableview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeDealOrder_SixSeatsFromSmallBlind(t *testing.T) {
	steps := ComputeDealOrder([]int{0, 1, 2, 3, 4, 5}, 2)

	expected := []DealStep{
		{Seat: 2, CardIndex: 0},
		{Seat: 3, CardIndex: 0},
		{Seat: 4, CardIndex: 0},
		{Seat: 5, CardIndex: 0},
		{Seat: 0, CardIndex: 0},
		{Seat: 1, CardIndex: 0},
		{Seat: 2, CardIndex: 1},
		{Seat: 3, CardIndex: 1},
		{Seat: 4, CardIndex: 1},
		{Seat: 5, CardIndex: 1},
		{Seat: 0, CardIndex: 1},
		{Seat: 1, CardIndex: 1},
	}
	assert.Equal(t, expected, steps)
}

func TestComputeDealOrder_SparseSeats(t *testing.T) {
	steps := ComputeDealOrder([]int{7, 1, 4}, 4)

	expected := []DealStep{
		{Seat: 4, CardIndex: 0},
		{Seat: 7, CardIndex: 0},
		{Seat: 1, CardIndex: 0},
		{Seat: 4, CardIndex: 1},
		{Seat: 7, CardIndex: 1},
		{Seat: 1, CardIndex: 1},
	}
	assert.Equal(t, expected, steps)
}

func TestComputeDealOrder_TwoCardsPerSeat(t *testing.T) {
	for _, activeSeats := range [][]int{
		{0, 1},
		{2, 5, 8},
		{0, 1, 2, 3, 4, 5, 6, 7, 8},
	} {
		steps := ComputeDealOrder(activeSeats, activeSeats[0])
		assert.Len(t, steps, len(activeSeats)*2)

		perSeat := make(map[int]int)
		for _, step := range steps {
			perSeat[step.Seat]++
		}
		for _, seat := range activeSeats {
			assert.Equal(t, 2, perSeat[seat])
		}
	}
}

func TestComputeDealOrder_NoSmallBlindStartsAtLowestSeat(t *testing.T) {
	steps := ComputeDealOrder([]int{6, 3, 8}, UnsetValue)

	assert.Equal(t, DealStep{Seat: 3, CardIndex: 0}, steps[0])
	assert.Equal(t, DealStep{Seat: 6, CardIndex: 0}, steps[1])
}

func TestComputeDealOrder_FewerThanTwoSeats(t *testing.T) {
	assert.Empty(t, ComputeDealOrder([]int{}, UnsetValue))
	assert.Empty(t, ComputeDealOrder([]int{4}, 4))
}

func TestDealing_HandStartedDealsEveryCard(t *testing.T) {
	ve, _ := newTestEngine()

	completed := make(chan struct{}, 1)
	ve.OnDealingCompleted(func() {
		completed <- struct{}{}
	})

	ve.Dispatch(NewEvent(EventType_HandStarted, HandStartedPayload{
		Phase:          GamePhase_Preflop,
		Dealer:         0,
		SmallBlindSeat: 2,
		BigBlindSeat:   4,
		Seats: []SnapshotSeat{
			seatSnapshot(0, "p0", 1000, SeatStatus_Active),
			seatSnapshot(2, "p2", 1000, SeatStatus_Active),
			seatSnapshot(4, "p4", 1000, SeatStatus_Active),
		},
	}))

	view, _ := ve.GetView()
	assert.Equal(t, 6, view.DealProgress)

	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("dealing completion did not fire")
	}

	view, _ = ve.GetView()
	assert.True(t, view.DealingDone)
}

func TestDealing_SingleActivePlayerCompletesImmediately(t *testing.T) {
	ve, _ := newTestEngine()

	ve.Dispatch(NewEvent(EventType_HandStarted, HandStartedPayload{
		Phase:          GamePhase_Preflop,
		Dealer:         0,
		SmallBlindSeat: UnsetValue,
		BigBlindSeat:   UnsetValue,
		Seats: []SnapshotSeat{
			seatSnapshot(0, "p0", 1000, SeatStatus_Active),
		},
	}))

	view, _ := ve.GetView()
	assert.True(t, view.DealingDone)
	assert.Equal(t, 0, view.DealProgress)
}

func TestDealing_PacedDealReachesCompletion(t *testing.T) {
	options := zeroDelayOptions()
	options.DealInterval = 5 * time.Millisecond

	ft := &fakeTransport{}
	ve := NewViewEngine(options, WithTransport(ft)).(*viewEngine)

	ve.Dispatch(NewEvent(EventType_HandStarted, HandStartedPayload{
		Phase:          GamePhase_Preflop,
		Dealer:         0,
		SmallBlindSeat: 1,
		BigBlindSeat:   3,
		Seats: []SnapshotSeat{
			seatSnapshot(1, "p1", 1000, SeatStatus_Active),
			seatSnapshot(3, "p3", 1000, SeatStatus_Active),
		},
	}))

	assert.Eventually(t, func() bool {
		view, _ := ve.GetView()
		return view.DealingDone && view.DealProgress == 4
	}, time.Second, 10*time.Millisecond)
}

func TestDealing_TimeoutCoversSubSecondPacing(t *testing.T) {
	// 250ms over 12 steps takes 3s of wall time; the auto-ready timeout must
	// sit beyond that instead of collapsing to the bare slack.
	assert.Equal(t, 5, dealTimeoutSeconds(250*time.Millisecond, 12))
	assert.Equal(t, 2, dealTimeoutSeconds(0, 12))
	assert.Equal(t, 20, dealTimeoutSeconds(3*time.Second, 6))

	for _, stepCount := range []int{2, 6, 12, 18} {
		interval := 250 * time.Millisecond
		timeout := time.Duration(dealTimeoutSeconds(interval, stepCount)) * time.Second
		assert.Greater(t, timeout, interval*time.Duration(stepCount))
	}
}

func TestDealing_RestartMidPacingStaysConsistent(t *testing.T) {
	options := zeroDelayOptions()
	options.DealInterval = time.Millisecond

	ft := &fakeTransport{}
	ve := NewViewEngine(options, WithTransport(ft)).(*viewEngine)

	start := NewEvent(EventType_HandStarted, HandStartedPayload{
		Phase:          GamePhase_Preflop,
		Dealer:         0,
		SmallBlindSeat: 2,
		BigBlindSeat:   4,
		Seats: []SnapshotSeat{
			seatSnapshot(0, "p0", 1000, SeatStatus_Active),
			seatSnapshot(2, "p2", 1000, SeatStatus_Active),
			seatSnapshot(4, "p4", 1000, SeatStatus_Active),
			seatSnapshot(6, "p6", 1000, SeatStatus_Active),
		},
	})

	// Rapid restarts while steps are in flight: superseded tasks must drop
	// out without touching the restarted sequence.
	for i := 0; i < 20; i++ {
		ve.Dispatch(start)
	}

	assert.Eventually(t, func() bool {
		view, _ := ve.GetView()
		return view.DealingDone && view.DealProgress == 8
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDealing_HandStartedRestartsSequence(t *testing.T) {
	ve, _ := newTestEngine()

	start := NewEvent(EventType_HandStarted, HandStartedPayload{
		Phase:          GamePhase_Preflop,
		Dealer:         0,
		SmallBlindSeat: 2,
		BigBlindSeat:   4,
		Seats: []SnapshotSeat{
			seatSnapshot(0, "p0", 1000, SeatStatus_Active),
			seatSnapshot(2, "p2", 1000, SeatStatus_Active),
			seatSnapshot(4, "p4", 1000, SeatStatus_Active),
		},
	})

	ve.Dispatch(start)
	ve.Dispatch(start)

	// Progress resets per hand; the second hand deals its own full set.
	view, _ := ve.GetView()
	assert.Equal(t, 6, view.DealProgress)
}
