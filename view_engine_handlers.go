package pokertableview

import (
	"encoding/json"

	"go.uber.org/zap"
)

// decode unmarshals the raw payload. A malformed payload is a logged anomaly,
// never a crash; the handler simply does not run and the view stays
// consistent.
func (ve *viewEngine) decode(event Event, out interface{}) bool {
	if err := json.Unmarshal(event.Payload, out); err != nil {
		ve.logger.Warn("view: malformed payload",
			zap.String("event_type", event.Type),
			zap.Error(err))
		ve.emitErrorUpdated(err)
		return false
	}
	return true
}

func (ve *viewEngine) handleHandStarted(event Event) {
	var payload HandStartedPayload
	if !ve.decode(event, &payload) {
		return
	}

	ve.timer.Cancel()
	ve.dealing.Stop()
	ve.view.resetHand()
	ve.holeCardSource = holeCardSource_None
	ve.view.Stale = false

	if PhaseOrder(payload.Phase) != UnsetValue {
		ve.view.Hand.Phase = payload.Phase
	} else {
		ve.view.Hand.Phase = GamePhase_Preflop
	}
	ve.view.Hand.Pot = payload.Pot
	if payload.CommunityCards != nil {
		ve.view.Hand.CommunityCards = payload.CommunityCards
	}

	ve.view.DealerSeat = payload.Dealer
	ve.view.SBSeat = payload.SmallBlindSeat
	ve.view.BBSeat = payload.BigBlindSeat

	ve.applySeats(payload.Seats)

	if payload.MyPosition != nil {
		ve.view.MySeat = *payload.MyPosition
	}
	ve.commitHoleCards(payload.MyHoleCards, holeCardSource_Deal)

	if payload.CurrentTurn != nil {
		ve.view.Hand.CurrentTurnSeat = *payload.CurrentTurn
	}

	ve.emitViewUpdated()

	ve.dealing.Start(ComputeDealOrder(ve.view.ActiveSeats(), ve.view.SBSeat))
}

func (ve *viewEngine) handleTurnPrompt(event Event) {
	var payload TurnPromptPayload
	if !ve.decode(event, &payload) {
		return
	}

	// The new prompt supersedes whatever countdown is running; at most one
	// prompt is live.
	ve.timer.Cancel()

	ve.view.Prompt = &TurnPrompt{
		Seat:           payload.Position,
		AllowedActions: payload.AllowedActions,
		TurnStartTime:  payload.TurnStartTime,
		TurnDuration:   payload.TurnTime,
	}
	ve.view.Hand.CurrentTurnSeat = payload.Position
	if payload.CurrentBet != nil {
		ve.view.Hand.CurrentBet = *payload.CurrentBet
	}

	ve.emitViewUpdated()

	ve.timer.Start(payload.Position, payload.TurnStartTime, payload.TurnTime)
}

func (ve *viewEngine) handleTurnChanged(event Event) {
	var payload TurnChangedPayload
	if !ve.decode(event, &payload) {
		return
	}

	ve.view.Hand.CurrentTurnSeat = payload.CurrentPlayer
	if payload.CurrentBet != nil {
		ve.view.Hand.CurrentBet = *payload.CurrentBet
	}

	if ve.view.Prompt != nil && ve.view.Prompt.Seat != payload.CurrentPlayer {
		ve.view.Prompt = nil
		ve.timer.Cancel()
	}

	ve.emitViewUpdated()
}

func (ve *viewEngine) handleTimeoutFold(event Event) {
	var payload TimeoutFoldPayload
	if !ve.decode(event, &payload) {
		return
	}

	if seat := ve.view.FindSeat(payload.Position); seat != nil {
		seat.Status = SeatStatus_Folded
	}

	if ve.view.Prompt != nil && ve.view.Prompt.Seat == payload.Position {
		ve.view.Prompt = nil
		ve.view.Hand.CurrentTurnSeat = UnsetValue
		ve.timer.Cancel()
	}

	ve.emitViewUpdated()
}

func (ve *viewEngine) handleCommunityCards(event Event) {
	var payload CommunityCardsPayload
	if !ve.decode(event, &payload) {
		return
	}

	currentOrder := PhaseOrder(ve.view.Hand.Phase)
	newOrder := PhaseOrder(payload.Phase)
	if newOrder == UnsetValue {
		ve.logger.Debug("view: community cards with unknown phase",
			zap.String("phase", string(payload.Phase)))
		return
	}
	if newOrder < currentOrder {
		// Phase never regresses within a hand.
		ve.logger.Debug("view: stale community cards ignored",
			zap.String("phase", string(payload.Phase)),
			zap.String("current", string(ve.view.Hand.Phase)))
		return
	}

	if newOrder > currentOrder {
		// Street closed: outstanding bets join the pot, the turn goes dark
		// until the next prompt.
		ve.view.Hand.Phase = payload.Phase
		ve.collectRoundBets()
		ve.view.Hand.CurrentBet = 0
		ve.view.Hand.CurrentTurnSeat = UnsetValue
		ve.view.Prompt = nil
		ve.timer.Cancel()
	}

	if len(payload.Cards) >= len(ve.view.Hand.CommunityCards) {
		ve.view.Hand.CommunityCards = payload.Cards
	}

	ve.emitViewUpdated()
}

func (ve *viewEngine) handleTableStateUpdate(event Event) {
	var payload TableStateUpdatePayload
	if !ve.decode(event, &payload) {
		return
	}

	changes := payload.Changes
	if changes.Pot != nil {
		ve.view.Hand.Pot = *changes.Pot
	}
	if changes.Phase != nil {
		if PhaseOrder(*changes.Phase) >= PhaseOrder(ve.view.Hand.Phase) {
			ve.view.Hand.Phase = *changes.Phase
		} else {
			ve.logger.Debug("view: phase regression ignored",
				zap.String("phase", string(*changes.Phase)))
		}
	}
	if changes.CurrentBet != nil {
		ve.view.Hand.CurrentBet = *changes.CurrentBet
	}
	if changes.MinRaise != nil {
		ve.view.Hand.MinRaise = *changes.MinRaise
	}
	if changes.CurrentPlayer != nil {
		ve.view.Hand.CurrentTurnSeat = *changes.CurrentPlayer
		if ve.view.Prompt != nil && ve.view.Prompt.Seat != *changes.CurrentPlayer {
			ve.view.Prompt = nil
			ve.timer.Cancel()
		}
	}

	for _, change := range changes.Players {
		seat := ve.view.FindSeat(change.Position)
		if seat == nil {
			continue
		}
		if change.Stack != nil {
			seat.Stack = *change.Stack
		}
		if change.Bet != nil {
			delta := *change.Bet - seat.RoundBet
			if delta > 0 {
				seat.TotalBet += delta
			}
			seat.RoundBet = *change.Bet
		}
		if change.Status != nil {
			seat.Status = *change.Status
		}
	}

	if changes.LastAction != nil {
		ve.applyLastAction(changes.LastAction)
	}

	ve.emitViewUpdated()
}

func (ve *viewEngine) applyLastAction(action *LastAction) {
	seat := ve.view.FindSeat(action.Position)
	if seat == nil {
		return
	}

	switch action.Type {
	case WagerAction_Fold:
		seat.Status = SeatStatus_Folded
	case WagerAction_AllIn:
		seat.Status = SeatStatus_AllIn
	}
	if action.Amount != nil {
		delta := *action.Amount - seat.RoundBet
		if delta > 0 {
			seat.TotalBet += delta
		}
		seat.RoundBet = *action.Amount
	}

	// A voluntary action from the local seat beats the clock; the countdown
	// must not double-fire after it.
	if action.Position == ve.view.MySeat {
		ve.timer.Cancel()
		if ve.view.Prompt != nil && ve.view.Prompt.Seat == action.Position {
			ve.view.Prompt = nil
		}
	}
}

func (ve *viewEngine) handleHandResult(event Event) {
	var payload HandResultPayload
	if !ve.decode(event, &payload) {
		return
	}

	ve.sequencer.Begin(&payload)
}

func (ve *viewEngine) handleActionResult(event Event) {
	var payload ActionResultPayload
	if !ve.decode(event, &payload) {
		return
	}

	if !payload.Success {
		if payload.ErrorMessage != nil {
			ve.emitNotice("action rejected: " + *payload.ErrorMessage)
		} else {
			ve.emitNotice("action rejected")
		}
		if payload.ShouldRefresh {
			// Local state may be stale; ask for a fresh snapshot rather than
			// trusting it.
			ve.resubscribe()
		}
		return
	}

	if ve.view.Prompt != nil && ve.view.Prompt.Seat == ve.view.MySeat {
		ve.view.Prompt = nil
		ve.timer.Cancel()
		ve.emitViewUpdated()
	}
}

func (ve *viewEngine) handleSeatResult(event Event) {
	var payload SeatResultPayload
	if !ve.decode(event, &payload) {
		return
	}

	if !payload.Success {
		if payload.ErrorMessage != nil {
			ve.emitNotice("seat request rejected: " + *payload.ErrorMessage)
		} else {
			ve.emitNotice("seat request rejected")
		}
		return
	}

	if payload.Position != nil {
		ve.view.MySeat = *payload.Position
		ve.emitViewUpdated()
	}
}

func (ve *viewEngine) handleError(event Event) {
	var payload ErrorPayload
	if !ve.decode(event, &payload) {
		return
	}
	ve.emitNotice(payload.ErrorMessage)
}

func (ve *viewEngine) handleConnectionState(event Event) {
	var payload ConnectionStatePayload
	if !ve.decode(event, &payload) {
		return
	}
	ve.emitNotice("connection: " + payload.State)
}

func (ve *viewEngine) handleConnectionLost(event Event) {
	// The turn deadline is meaningless while offline; the next snapshot
	// (is_state_restore) heals the view.
	ve.timer.Cancel()
	ve.view.Prompt = nil
	ve.view.Stale = true
	ve.emitNotice("connection lost")
	ve.emitViewUpdated()
}

func (ve *viewEngine) handleStackZero(event Event) {
	if seat := ve.view.MySeatState(); seat != nil {
		seat.Status = SeatStatus_SittingOut
	}
	ve.emitNotice("stack depleted")
	ve.emitViewUpdated()
}

func (ve *viewEngine) handleRebuyResult(event Event) {
	var payload RebuyResultPayload
	if !ve.decode(event, &payload) {
		return
	}

	if !payload.Success {
		ve.emitNotice("rebuy rejected")
		return
	}

	if seat := ve.view.MySeatState(); seat != nil {
		if payload.Stack != nil {
			seat.Stack = *payload.Stack
		}
		if seat.Status == SeatStatus_SittingOut {
			seat.Status = SeatStatus_Waiting
		}
	}
	ve.emitViewUpdated()
}

// collectRoundBets moves outstanding per-seat round bets into the pot at
// street end. Absolute pot values pushed by the server overwrite any local
// drift.
func (ve *viewEngine) collectRoundBets() {
	for _, seat := range ve.view.Seats {
		ve.view.Hand.Pot += seat.RoundBet
		seat.RoundBet = 0
	}
}

// commitHoleCards applies the local seat's hole cards if the source outranks
// whatever already populated them this hand.
func (ve *viewEngine) commitHoleCards(cards []string, source int) {
	if len(cards) == 0 || ve.view.MySeat == UnsetValue {
		return
	}
	if source < ve.holeCardSource {
		return
	}

	if seat := ve.view.MySeatState(); seat != nil {
		seat.HoleCards = cards
		ve.holeCardSource = source
	}
}

// resubscribe requests a fresh snapshot off the dispatch goroutine.
func (ve *viewEngine) resubscribe() {
	if ve.transport == nil || ve.view.TableID == "" {
		return
	}

	tableID := ve.view.TableID
	go func() {
		if err := ve.transport.SendCommand(NewSubscribeTableCommand(tableID)); err != nil {
			ve.logger.Warn("view: resubscribe failed", zap.Error(err))
		}
	}()
}
