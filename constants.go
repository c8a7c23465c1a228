package pokertableview

const (
	// General
	UnsetValue = -1

	// Wager Action
	WagerAction_Fold  = "fold"
	WagerAction_Check = "check"
	WagerAction_Call  = "call"
	WagerAction_Bet   = "bet"
	WagerAction_Raise = "raise"
	WagerAction_AllIn = "allin"
)

// GamePhase is the betting phase of a single hand. It only moves forward
// within one hand; HandStarted is the only reset point.
type GamePhase string

const (
	GamePhase_Waiting  GamePhase = "waiting"
	GamePhase_Preflop  GamePhase = "preflop"
	GamePhase_Flop     GamePhase = "flop"
	GamePhase_Turn     GamePhase = "turn"
	GamePhase_River    GamePhase = "river"
	GamePhase_Showdown GamePhase = "showdown"
)

var gamePhaseOrder = map[GamePhase]int{
	GamePhase_Waiting:  0,
	GamePhase_Preflop:  1,
	GamePhase_Flop:     2,
	GamePhase_Turn:     3,
	GamePhase_River:    4,
	GamePhase_Showdown: 5,
}

// PhaseOrder returns the ordinal of a phase, or UnsetValue for an unknown one.
func PhaseOrder(phase GamePhase) int {
	if order, ok := gamePhaseOrder[phase]; ok {
		return order
	}
	return UnsetValue
}

type SeatStatus string

const (
	SeatStatus_Empty      SeatStatus = "empty"
	SeatStatus_Active     SeatStatus = "active"
	SeatStatus_Waiting    SeatStatus = "waiting"
	SeatStatus_Folded     SeatStatus = "folded"
	SeatStatus_AllIn      SeatStatus = "all_in"
	SeatStatus_SittingOut SeatStatus = "sitting_out"
)

// Inbound event types (server -> client)
const (
	EventType_TableSnapshot    = "TABLE_SNAPSHOT"
	EventType_TableStateUpdate = "TABLE_STATE_UPDATE"
	EventType_HandStarted      = "HAND_STARTED"
	EventType_TurnPrompt       = "TURN_PROMPT"
	EventType_TurnChanged      = "TURN_CHANGED"
	EventType_TimeoutFold      = "TIMEOUT_FOLD"
	EventType_CommunityCards   = "COMMUNITY_CARDS"
	EventType_HandResult       = "HAND_RESULT"
	EventType_ActionResult     = "ACTION_RESULT"
	EventType_SeatResult       = "SEAT_RESULT"
	EventType_Error            = "ERROR"
	EventType_ConnectionState  = "CONNECTION_STATE"
	EventType_ConnectionLost   = "CONNECTION_LOST"
	EventType_StackZero        = "STACK_ZERO"
	EventType_RebuyResult      = "REBUY_RESULT"
)

// Outbound command types (client -> server)
const (
	CommandType_SubscribeTable   = "SUBSCRIBE_TABLE"
	CommandType_UnsubscribeTable = "UNSUBSCRIBE_TABLE"
	CommandType_ActionRequest    = "ACTION_REQUEST"
	CommandType_SeatRequest      = "SEAT_REQUEST"
	CommandType_LeaveRequest     = "LEAVE_REQUEST"
	CommandType_Rebuy            = "REBUY"
)

// Transport connection states reported via Transport.OnStateChanged
const (
	TransportState_Connected    = "connected"
	TransportState_Disconnected = "disconnected"
	TransportState_Closed       = "closed"
)

// Hole-card sources, lowest to highest precedence. A committed higher
// precedence source is never overwritten by a lower one within one hand.
const (
	holeCardSource_None     = 0
	holeCardSource_Snapshot = 1
	holeCardSource_Deal     = 2
	holeCardSource_Reveal   = 3
)
