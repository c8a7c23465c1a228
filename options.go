package pokertableview

import "time"

type ViewEngineCallbacks struct {
	OnViewUpdated          func(view *TableView)
	OnViewErrorUpdated     func(view *TableView, err error)
	OnNoticeUpdated        func(notice string)
	OnShowdownStageUpdated func(stage ShowdownStage)
	OnDealingCompleted     func()
	OnAutoFold             func(seat int)
}

func NewViewEngineCallbacks() *ViewEngineCallbacks {
	return &ViewEngineCallbacks{
		OnViewUpdated:          func(*TableView) {},
		OnViewErrorUpdated:     func(*TableView, error) {},
		OnNoticeUpdated:        func(string) {},
		OnShowdownStageUpdated: func(ShowdownStage) {},
		OnDealingCompleted:     func() {},
		OnAutoFold:             func(int) {},
	}
}

// ViewEngineOptions carries the tunable pacing of the presentation sequence.
// The delays are UX pacing, not correctness: any values keep the engine's
// ordering guarantees, and zero collapses the sequence into a synchronous
// walk.
type ViewEngineOptions struct {
	MaxSeatCount   int
	IntroDelay     time.Duration // HAND_RESULT received -> first reveal
	RevealInterval time.Duration // between per-seat reveals
	WinnerDisplay  time.Duration // winner announcement display window
	SettleDelay    time.Duration // settling -> idle
	DealInterval   time.Duration // between dealt cards
}

func NewViewEngineOptions() *ViewEngineOptions {
	return &ViewEngineOptions{
		MaxSeatCount:   9,
		IntroDelay:     time.Second,
		RevealInterval: 800 * time.Millisecond,
		WinnerDisplay:  3 * time.Second,
		SettleDelay:    time.Second,
		DealInterval:   250 * time.Millisecond,
	}
}
