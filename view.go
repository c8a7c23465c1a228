package pokertableview

import (
	"encoding/json"
	"time"

	"github.com/thoas/go-funk"
)

type AllowedAction struct {
	Type      string `json:"type"`
	MinAmount int64  `json:"min_amount,omitempty"`
	MaxAmount int64  `json:"max_amount,omitempty"`
}

type SeatState struct {
	Position  int        `json:"position"`
	PlayerID  string     `json:"player_id,omitempty"`  // empty when unoccupied
	Stack     int64      `json:"stack"`
	Status    SeatStatus `json:"status"`
	RoundBet  int64      `json:"round_bet"`            // chips wagered in the current betting round
	TotalBet  int64      `json:"total_bet"`            // chips wagered in the whole hand
	HoleCards []string   `json:"hole_cards,omitempty"` // own seat during play, every revealed seat at showdown
}

type SidePot struct {
	Amount        int64 `json:"amount"`
	EligibleSeats []int `json:"eligible_seats"`
}

type HandState struct {
	Phase           GamePhase `json:"phase"`
	Pot             int64     `json:"pot"`
	SidePots        []SidePot `json:"side_pots,omitempty"`
	CommunityCards  []string  `json:"community_cards"`
	CurrentBet      int64     `json:"current_bet"`
	MinRaise        int64     `json:"min_raise"`
	CurrentTurnSeat int       `json:"current_turn_seat"` // UnsetValue outside an active betting round
}

type TurnPrompt struct {
	Seat           int             `json:"seat"`
	AllowedActions []AllowedAction `json:"allowed_actions"`
	TurnStartTime  int64           `json:"turn_start_time"` // Unix seconds
	TurnDuration   int             `json:"turn_duration"`   // Seconds
}

// ShowdownStage drives the staged reveal sequence at hand end.
type ShowdownStage string

const (
	ShowdownStage_Idle            ShowdownStage = "idle"
	ShowdownStage_Intro           ShowdownStage = "intro"
	ShowdownStage_Revealing       ShowdownStage = "revealing"
	ShowdownStage_WinnerAnnounced ShowdownStage = "winner_announced"
	ShowdownStage_Settling        ShowdownStage = "settling"
)

type ShowdownView struct {
	Stage           ShowdownStage    `json:"stage"`
	RevealOrder     []int            `json:"reveal_order"`
	RevealedSeats   []int            `json:"revealed_seats"`
	HoleCardsBySeat map[int][]string `json:"hole_cards_by_seat,omitempty"`
	HandRankBySeat  map[int]string   `json:"hand_rank_by_seat,omitempty"`
	BestFiveBySeat  map[int][]string `json:"best_five_by_seat,omitempty"`
	Winners         []Winner         `json:"winners,omitempty"`
	CollectedPot    int64            `json:"collected_pot"`
}

// TableView is the single source of truth for what is currently true at the
// table. It has exactly one writer, the view engine; consumers read snapshots
// via Clone.
type TableView struct {
	TableID      string        `json:"table_id"`
	MySeat       int           `json:"my_seat"` // UnsetValue while observing
	Seats        []*SeatState  `json:"seats"`
	Hand         *HandState    `json:"hand"`
	Prompt       *TurnPrompt   `json:"prompt,omitempty"` // at most one live prompt
	Showdown     *ShowdownView `json:"showdown,omitempty"`
	DealerSeat   int           `json:"dealer_seat"`
	SBSeat       int           `json:"sb_seat"`
	BBSeat       int           `json:"bb_seat"`
	DealingDone  bool          `json:"dealing_done"`
	DealProgress int           `json:"deal_progress"` // cards dealt so far this hand
	Stale        bool          `json:"stale"`         // true between connection loss and next snapshot
	UpdateAt     int64         `json:"update_at"`     // Unix seconds
	UpdateSerial int64         `json:"update_serial"` // monotonically increasing per emit
}

func NewTableView(maxSeats int) *TableView {
	seats := make([]*SeatState, maxSeats)
	for i := 0; i < maxSeats; i++ {
		seats[i] = &SeatState{
			Position: i,
			Status:   SeatStatus_Empty,
		}
	}

	return &TableView{
		MySeat:     UnsetValue,
		Seats:      seats,
		Hand:       NewHandState(),
		DealerSeat: UnsetValue,
		SBSeat:     UnsetValue,
		BBSeat:     UnsetValue,
	}
}

func NewHandState() *HandState {
	return &HandState{
		Phase:           GamePhase_Waiting,
		CommunityCards:  make([]string, 0),
		CurrentTurnSeat: UnsetValue,
	}
}

// Setters
func (v *TableView) RefreshUpdateAt() {
	v.UpdateAt = time.Now().Unix()
	v.UpdateSerial++
}

// Getters
func (v *TableView) Clone() (*TableView, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var cloned TableView
	if err := json.Unmarshal(encoded, &cloned); err != nil {
		return nil, err
	}
	return &cloned, nil
}

func (v *TableView) GetJSON() (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (v *TableView) FindSeat(position int) *SeatState {
	if position < 0 || position >= len(v.Seats) {
		return nil
	}
	return v.Seats[position]
}

func (v *TableView) MySeatState() *SeatState {
	if v.MySeat == UnsetValue {
		return nil
	}
	return v.FindSeat(v.MySeat)
}

// ActiveSeats lists positions still contesting the hand, ascending.
func (v *TableView) ActiveSeats() []int {
	activeSeats := make([]int, 0)
	for _, seat := range v.Seats {
		if seat.Status == SeatStatus_Active || seat.Status == SeatStatus_AllIn {
			activeSeats = append(activeSeats, seat.Position)
		}
	}
	return activeSeats
}

func (v *TableView) OccupiedSeats() []int {
	occupied := make([]int, 0)
	for _, seat := range v.Seats {
		if seat.PlayerID != "" {
			occupied = append(occupied, seat.Position)
		}
	}
	return occupied
}

// IsActionAllowed gates outbound wager actions on the live prompt.
func (v *TableView) IsActionAllowed(actionType string) bool {
	if v.Prompt == nil || v.Prompt.Seat != v.MySeat {
		return false
	}
	return funk.Contains(v.Prompt.AllowedActions, func(a AllowedAction) bool {
		return a.Type == actionType
	})
}

func (v *TableView) resetHand() {
	v.Hand = NewHandState()
	v.Prompt = nil
	v.Showdown = nil
	v.DealingDone = false
	v.DealProgress = 0
	for _, seat := range v.Seats {
		seat.RoundBet = 0
		seat.TotalBet = 0
		seat.HoleCards = nil
		if seat.Status == SeatStatus_Folded || seat.Status == SeatStatus_AllIn {
			seat.Status = SeatStatus_Active
		}
	}
}
