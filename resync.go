package pokertableview

// Resync: a full table snapshot arrives on subscribe and after reconnect. It
// must merge with in-flight local state, not blindly overwrite it — in
// particular the showdown sequencer keeps its grip on stacks, pot and phase
// while it is presenting a result.

func (ve *viewEngine) handleTableSnapshot(event Event) {
	var payload TableSnapshotPayload
	if !ve.decode(event, &payload) {
		return
	}

	if ve.sequencer.IsExclusive() {
		// Seat statuses apply now so folded/all-in visuals stay correct;
		// stacks are buffered until the sequencer reaches idle. The snapshot
		// itself joins the deferral queue so its pot/phase/community land in
		// arrival order once exclusivity lifts.
		ve.bufferSnapshotDuringShowdown(&payload)
		ve.sequencer.Defer(event)
		return
	}

	ve.applySnapshot(&payload, payload.IsStateRestore)
}

// bufferSnapshotDuringShowdown applies the parts of a snapshot the showdown
// sequencer does not own. Caller holds the engine lock.
func (ve *viewEngine) bufferSnapshotDuringShowdown(payload *TableSnapshotPayload) {
	view := ve.view

	if payload.TableID != "" {
		view.TableID = payload.TableID
	}
	view.Stale = false

	if payload.MyPosition != nil {
		view.MySeat = *payload.MyPosition
	}

	for _, snapSeat := range payload.Seats {
		seat := view.FindSeat(snapSeat.Position)
		if seat == nil {
			continue
		}
		seat.Status = snapSeat.Status
		ve.pendingStacks[snapSeat.Position] = snapSeat.Stack
	}
	ve.commitSnapshotHoleCards(payload)
	ve.emitViewUpdated()
}

func (ve *viewEngine) applySnapshot(payload *TableSnapshotPayload, isRestore bool) {
	view := ve.view

	if payload.TableID != "" {
		view.TableID = payload.TableID
	}
	view.Stale = false

	if payload.MyPosition != nil {
		view.MySeat = *payload.MyPosition
	}

	ve.applySeats(payload.Seats)

	if payload.HandState != nil {
		hand := payload.HandState
		view.Hand.Phase = hand.Phase
		view.Hand.Pot = hand.Pot
		view.Hand.SidePots = hand.SidePots
		if hand.CommunityCards != nil {
			view.Hand.CommunityCards = hand.CommunityCards
		} else {
			view.Hand.CommunityCards = make([]string, 0)
		}
		view.Hand.CurrentBet = hand.CurrentBet
		view.Hand.MinRaise = hand.MinRaise
		if hand.CurrentTurnSeat != nil {
			view.Hand.CurrentTurnSeat = *hand.CurrentTurnSeat
		} else {
			view.Hand.CurrentTurnSeat = UnsetValue
		}
		if hand.DealerSeat != nil {
			view.DealerSeat = *hand.DealerSeat
		}
		if hand.SBSeat != nil {
			view.SBSeat = *hand.SBSeat
		}
		if hand.BBSeat != nil {
			view.BBSeat = *hand.BBSeat
		}
	}

	ve.commitSnapshotHoleCards(payload)

	if payload.AllowedActions != nil && view.MySeat != UnsetValue {
		// The snapshot carries a live prompt only as its allowed-action set;
		// without a deadline there is nothing to count down, so no timer
		// starts here. The next TURN_PROMPT re-arms it.
		view.Prompt = &TurnPrompt{
			Seat:           view.MySeat,
			AllowedActions: payload.AllowedActions,
			TurnStartTime:  UnsetValue,
			TurnDuration:   0,
		}
	}

	if isRestore {
		// Rejoining a hand in progress: reconstruct the presentation state
		// without replaying animations.
		ve.dealing.Stop()
		inHand := PhaseOrder(view.Hand.Phase) > PhaseOrder(GamePhase_Waiting)
		view.DealingDone = inHand
		if inHand {
			view.DealProgress = len(ComputeDealOrder(view.ActiveSeats(), view.SBSeat))
		}
	}

	ve.emitViewUpdated()
}

// applySeats replaces seat occupancy wholesale. Caller holds the engine lock.
func (ve *viewEngine) applySeats(snapSeats []SnapshotSeat) {
	if len(snapSeats) == 0 {
		return
	}

	for _, seat := range ve.view.Seats {
		seat.PlayerID = ""
		seat.Status = SeatStatus_Empty
		seat.Stack = 0
		seat.RoundBet = 0
		seat.TotalBet = 0
		seat.HoleCards = nil
	}

	for _, snapSeat := range snapSeats {
		seat := ve.view.FindSeat(snapSeat.Position)
		if seat == nil {
			continue
		}
		seat.PlayerID = snapSeat.PlayerID
		seat.Stack = snapSeat.Stack
		seat.Status = snapSeat.Status
		seat.RoundBet = snapSeat.RoundBet
		seat.TotalBet = snapSeat.TotalBet
		if len(snapSeat.HoleCards) > 0 {
			seat.HoleCards = snapSeat.HoleCards
		}

		if ve.localPlayerID != "" && snapSeat.PlayerID == ve.localPlayerID {
			ve.view.MySeat = snapSeat.Position
		}
	}
}

// commitSnapshotHoleCards resolves the local seat's hole cards through the
// fallback chain: explicit top-level field first, then the per-seat record
// keyed by the local seat. Snapshot-derived cards never override a
// higher-priority reveal already committed.
func (ve *viewEngine) commitSnapshotHoleCards(payload *TableSnapshotPayload) {
	if len(payload.MyHoleCards) > 0 {
		ve.commitHoleCards(payload.MyHoleCards, holeCardSource_Snapshot)
		return
	}

	if ve.view.MySeat == UnsetValue {
		return
	}
	for _, snapSeat := range payload.Seats {
		if snapSeat.Position == ve.view.MySeat && len(snapSeat.HoleCards) > 0 {
			ve.commitHoleCards(snapSeat.HoleCards, holeCardSource_Snapshot)
			return
		}
	}
}
