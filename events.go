package pokertableview

import (
	"encoding/json"
)

// Event is the inbound envelope pushed by the server. Payload stays raw until
// the router knows the type; unknown types are ignored for forward
// compatibility.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Optional payload fields are pointers: a missing field leaves the
// corresponding view field untouched instead of nulling it.

type SnapshotSeat struct {
	Position  int        `json:"position"`
	PlayerID  string     `json:"player_id,omitempty"`
	Stack     int64      `json:"stack"`
	Status    SeatStatus `json:"status"`
	RoundBet  int64      `json:"round_bet"`
	TotalBet  int64      `json:"total_bet"`
	HoleCards []string   `json:"hole_cards,omitempty"`
}

type SnapshotHandState struct {
	Phase           GamePhase `json:"phase"`
	Pot             int64     `json:"pot"`
	SidePots        []SidePot `json:"side_pots,omitempty"`
	CommunityCards  []string  `json:"community_cards,omitempty"`
	CurrentBet      int64     `json:"current_bet"`
	MinRaise        int64     `json:"min_raise"`
	CurrentTurnSeat *int      `json:"current_turn_seat,omitempty"`
	DealerSeat      *int      `json:"dealer_seat,omitempty"`
	SBSeat          *int      `json:"sb_seat,omitempty"`
	BBSeat          *int      `json:"bb_seat,omitempty"`
}

type TableSnapshotPayload struct {
	TableID        string             `json:"table_id"`
	Seats          []SnapshotSeat     `json:"seats"`
	HandState      *SnapshotHandState `json:"hand_state,omitempty"`
	MyPosition     *int               `json:"my_position,omitempty"`
	MyHoleCards    []string           `json:"my_hole_cards,omitempty"`
	AllowedActions []AllowedAction    `json:"allowed_actions,omitempty"`
	IsStateRestore bool               `json:"is_state_restore,omitempty"`
}

type PlayerChange struct {
	Position int         `json:"position"`
	Stack    *int64      `json:"stack,omitempty"`
	Bet      *int64      `json:"bet,omitempty"`
	Status   *SeatStatus `json:"status,omitempty"`
}

type LastAction struct {
	Type     string `json:"type"`
	Amount   *int64 `json:"amount,omitempty"`
	Position int    `json:"position"`
}

type StateChanges struct {
	Pot           *int64         `json:"pot,omitempty"`
	Phase         *GamePhase     `json:"phase,omitempty"`
	CurrentBet    *int64         `json:"current_bet,omitempty"`
	MinRaise      *int64         `json:"min_raise,omitempty"`
	CurrentPlayer *int           `json:"current_player,omitempty"`
	Players       []PlayerChange `json:"players,omitempty"`
	LastAction    *LastAction    `json:"last_action,omitempty"`
}

type TableStateUpdatePayload struct {
	UpdateType string       `json:"update_type,omitempty"`
	Changes    StateChanges `json:"changes"`
}

type HandStartedPayload struct {
	Phase          GamePhase      `json:"phase"`
	Pot            int64          `json:"pot"`
	CommunityCards []string       `json:"community_cards,omitempty"`
	MyPosition     *int           `json:"my_position,omitempty"`
	MyHoleCards    []string       `json:"my_hole_cards,omitempty"`
	CurrentTurn    *int           `json:"current_turn,omitempty"`
	Dealer         int            `json:"dealer"`
	SmallBlindSeat int            `json:"small_blind_seat"`
	BigBlindSeat   int            `json:"big_blind_seat"`
	Seats          []SnapshotSeat `json:"seats"`
}

type TurnPromptPayload struct {
	Position       int             `json:"position"`
	AllowedActions []AllowedAction `json:"allowed_actions"`
	CurrentBet     *int64          `json:"current_bet,omitempty"`
	TurnStartTime  int64           `json:"turn_start_time"` // Unix seconds
	TurnTime       int             `json:"turn_time"`       // Seconds
}

type TurnChangedPayload struct {
	CurrentPlayer int    `json:"current_player"`
	CurrentBet    *int64 `json:"current_bet,omitempty"`
}

type TimeoutFoldPayload struct {
	Position int    `json:"position"`
	Action   string `json:"action"`
}

type CommunityCardsPayload struct {
	Cards []string  `json:"cards"`
	Phase GamePhase `json:"phase"`
}

type ShowdownEntry struct {
	Seat      int      `json:"seat"`
	HoleCards []string `json:"hole_cards"`
}

type Winner struct {
	Seat   int   `json:"seat"`
	Amount int64 `json:"amount"`
}

type HandResultPayload struct {
	Showdown       []ShowdownEntry `json:"showdown,omitempty"`
	Winners        []Winner        `json:"winners,omitempty"`
	CommunityCards []string        `json:"community_cards,omitempty"`
}

type ActionResultPayload struct {
	Success       bool    `json:"success"`
	Action        *string `json:"action,omitempty"`
	ErrorMessage  *string `json:"error_message,omitempty"`
	ShouldRefresh bool    `json:"should_refresh,omitempty"`
}

type SeatResultPayload struct {
	Success      bool    `json:"success"`
	Position     *int    `json:"position,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

type ErrorPayload struct {
	ErrorMessage string `json:"error_message"`
}

type ConnectionStatePayload struct {
	State string `json:"state"`
}

type RebuyResultPayload struct {
	Success bool   `json:"success"`
	Stack   *int64 `json:"stack,omitempty"`
}

// ParseEvent decodes one inbound wire frame.
func ParseEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// NewEvent packs a typed payload into an envelope. It is mainly a test and
// transport helper; marshal failures surface as an empty payload, which the
// router treats like any other malformed message.
func NewEvent(eventType string, payload interface{}) Event {
	e := Event{Type: eventType}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			e.Payload = data
		}
	}
	return e
}

// deferrable event types get queued behind the showdown sequencer while it
// owns the table state. Everything else is applied immediately.
var deferrableEventTypes = map[string]bool{
	EventType_TableStateUpdate: true,
	EventType_HandStarted:      true,
	EventType_TurnPrompt:       true,
	EventType_TurnChanged:      true,
	EventType_TimeoutFold:      true,
	EventType_CommunityCards:   true,
	EventType_HandResult:       true,
}

func isDeferrable(eventType string) bool {
	return deferrableEventTypes[eventType]
}
