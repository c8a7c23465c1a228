package pokertableview

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrViewNoTransport      = errors.New("view: no transport configured")
	ErrViewNotSubscribed    = errors.New("view: not subscribed to a table")
	ErrViewActionNotAllowed = errors.New("view: action not allowed by the live prompt")
	ErrViewNoSeat           = errors.New("view: local player has no seat")
)

// Ranker is the pure hand-strength collaborator. Implementations live
// outside the engine (see the ranking package).
type Ranker interface {
	Rank(holeCards []string, communityCards []string) (*RankResult, error)
}

type RankResult struct {
	Name     string   `json:"name"`
	BestFive []string `json:"best_five"`
}

// Transport is the duplex message transport collaborator. Reconnect policy
// belongs to the implementation; the engine only consumes events and state
// changes.
type Transport interface {
	Connect() error
	Close() error
	SendCommand(cmd Command) error
	OnEvent(fn func(event Event))
	OnStateChanged(fn func(state string))
}

type ViewEngineOpt func(*viewEngine)

// ViewEngine reconciles the asynchronous stream of authoritative server
// events into one consistent table view. Dispatch never panics outward;
// unknown event types are ignored.
type ViewEngine interface {
	// Events
	OnViewUpdated(fn func(view *TableView))
	OnViewErrorUpdated(fn func(view *TableView, err error))
	OnNoticeUpdated(fn func(notice string))
	OnShowdownStageUpdated(fn func(stage ShowdownStage))
	OnDealingCompleted(fn func())
	OnAutoFold(fn func(seat int))

	// View Actions
	GetView() (*TableView, error)
	TurnRemaining() time.Duration
	Dispatch(event Event)

	// Table Actions
	Subscribe(tableID string) error
	Unsubscribe() error

	// Player Actions
	SubmitAction(actionType string, amount int64) error
	RequestSeat(buyInAmount int64) error
	Leave() error
	Rebuy(amount int64) error
}

type viewEngine struct {
	lock           sync.Mutex
	options        *ViewEngineOptions
	view           *TableView
	transport      Transport
	ranker         Ranker
	logger         *zap.Logger
	timer          *turnTimer
	dealing        *dealingSequencer
	sequencer      *showdownSequencer
	localPlayerID  string
	holeCardSource int
	pendingStacks  map[int]int64 // snapshot stacks buffered during exclusivity

	onViewUpdated          func(*TableView)
	onViewErrorUpdated     func(*TableView, error)
	onNoticeUpdated        func(string)
	onShowdownStageUpdated func(ShowdownStage)
	onDealingCompleted     func()
	onAutoFold             func(int)
}

func NewViewEngine(options *ViewEngineOptions, opts ...ViewEngineOpt) ViewEngine {
	callbacks := NewViewEngineCallbacks()
	ve := &viewEngine{
		options:                options,
		view:                   NewTableView(options.MaxSeatCount),
		logger:                 zap.NewNop(),
		timer:                  newTurnTimer(),
		pendingStacks:          make(map[int]int64),
		onViewUpdated:          callbacks.OnViewUpdated,
		onViewErrorUpdated:     callbacks.OnViewErrorUpdated,
		onNoticeUpdated:        callbacks.OnNoticeUpdated,
		onShowdownStageUpdated: callbacks.OnShowdownStageUpdated,
		onDealingCompleted:     callbacks.OnDealingCompleted,
		onAutoFold:             callbacks.OnAutoFold,
	}
	ve.sequencer = newShowdownSequencer(ve)
	ve.dealing = newDealingSequencer(ve, options.DealInterval)

	for _, opt := range opts {
		opt(ve)
	}

	ve.timer.OnExpire(ve.onTurnExpired)

	if ve.transport != nil {
		ve.transport.OnEvent(ve.Dispatch)
		ve.transport.OnStateChanged(ve.onTransportStateChanged)
	}

	return ve
}

func WithTransport(t Transport) ViewEngineOpt {
	return func(ve *viewEngine) {
		ve.transport = t
	}
}

func WithRanker(r Ranker) ViewEngineOpt {
	return func(ve *viewEngine) {
		ve.ranker = r
	}
}

func WithLogger(logger *zap.Logger) ViewEngineOpt {
	return func(ve *viewEngine) {
		ve.logger = logger
	}
}

func WithLocalPlayerID(playerID string) ViewEngineOpt {
	return func(ve *viewEngine) {
		ve.localPlayerID = playerID
	}
}

func (ve *viewEngine) OnViewUpdated(fn func(*TableView)) {
	ve.onViewUpdated = fn
}

func (ve *viewEngine) OnViewErrorUpdated(fn func(*TableView, error)) {
	ve.onViewErrorUpdated = fn
}

func (ve *viewEngine) OnNoticeUpdated(fn func(string)) {
	ve.onNoticeUpdated = fn
}

func (ve *viewEngine) OnShowdownStageUpdated(fn func(ShowdownStage)) {
	ve.onShowdownStageUpdated = fn
}

func (ve *viewEngine) OnDealingCompleted(fn func()) {
	ve.onDealingCompleted = fn
}

func (ve *viewEngine) OnAutoFold(fn func(int)) {
	ve.onAutoFold = fn
}

// GetView returns a snapshot clone; the engine keeps the only mutable copy.
func (ve *viewEngine) GetView() (*TableView, error) {
	ve.lock.Lock()
	defer ve.lock.Unlock()
	return ve.view.Clone()
}

func (ve *viewEngine) TurnRemaining() time.Duration {
	return ve.timer.Remaining()
}

// Dispatch routes one inbound event. It never propagates a panic: a handler
// blowing up on a hostile payload degrades to a logged anomaly and a stale
// but consistent view.
func (ve *viewEngine) Dispatch(event Event) {
	ve.lock.Lock()
	defer ve.lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			ve.logger.Error("view: dispatch panic recovered",
				zap.String("event_type", event.Type),
				zap.Any("panic", r))
		}
	}()

	ve.dispatch(event)
}

// dispatch runs with the engine lock held. Deferral-queue replay re-enters
// here directly.
func (ve *viewEngine) dispatch(event Event) {
	if ve.sequencer.IsExclusive() && isDeferrable(event.Type) {
		ve.sequencer.Defer(event)
		return
	}

	switch event.Type {
	case EventType_TableSnapshot:
		ve.handleTableSnapshot(event)
	case EventType_TableStateUpdate:
		ve.handleTableStateUpdate(event)
	case EventType_HandStarted:
		ve.handleHandStarted(event)
	case EventType_TurnPrompt:
		ve.handleTurnPrompt(event)
	case EventType_TurnChanged:
		ve.handleTurnChanged(event)
	case EventType_TimeoutFold:
		ve.handleTimeoutFold(event)
	case EventType_CommunityCards:
		ve.handleCommunityCards(event)
	case EventType_HandResult:
		ve.handleHandResult(event)
	case EventType_ActionResult:
		ve.handleActionResult(event)
	case EventType_SeatResult:
		ve.handleSeatResult(event)
	case EventType_Error:
		ve.handleError(event)
	case EventType_ConnectionState:
		ve.handleConnectionState(event)
	case EventType_ConnectionLost:
		ve.handleConnectionLost(event)
	case EventType_StackZero:
		ve.handleStackZero(event)
	case EventType_RebuyResult:
		ve.handleRebuyResult(event)
	default:
		// Unknown types are ignored for forward compatibility.
		ve.logger.Debug("view: ignoring unknown event type",
			zap.String("event_type", event.Type))
	}
}

func (ve *viewEngine) Subscribe(tableID string) error {
	if ve.transport == nil {
		return ErrViewNoTransport
	}

	ve.lock.Lock()
	ve.view.TableID = tableID
	ve.lock.Unlock()

	return ve.transport.SendCommand(NewSubscribeTableCommand(tableID))
}

func (ve *viewEngine) Unsubscribe() error {
	if ve.transport == nil {
		return ErrViewNoTransport
	}

	ve.lock.Lock()
	tableID := ve.view.TableID
	ve.lock.Unlock()

	if tableID == "" {
		return ErrViewNotSubscribed
	}
	return ve.transport.SendCommand(NewUnsubscribeTableCommand(tableID))
}

func (ve *viewEngine) SubmitAction(actionType string, amount int64) error {
	if ve.transport == nil {
		return ErrViewNoTransport
	}

	ve.lock.Lock()
	tableID := ve.view.TableID
	allowed := ve.view.IsActionAllowed(actionType)
	ve.lock.Unlock()

	if !allowed {
		return ErrViewActionNotAllowed
	}
	return ve.transport.SendCommand(NewActionRequestCommand(tableID, actionType, amount))
}

func (ve *viewEngine) RequestSeat(buyInAmount int64) error {
	if ve.transport == nil {
		return ErrViewNoTransport
	}

	ve.lock.Lock()
	tableID := ve.view.TableID
	ve.lock.Unlock()

	if tableID == "" {
		return ErrViewNotSubscribed
	}
	return ve.transport.SendCommand(NewSeatRequestCommand(tableID, buyInAmount))
}

func (ve *viewEngine) Leave() error {
	if ve.transport == nil {
		return ErrViewNoTransport
	}

	ve.lock.Lock()
	tableID := ve.view.TableID
	hasSeat := ve.view.MySeat != UnsetValue
	ve.lock.Unlock()

	if !hasSeat {
		return ErrViewNoSeat
	}
	return ve.transport.SendCommand(NewLeaveRequestCommand(tableID))
}

func (ve *viewEngine) Rebuy(amount int64) error {
	if ve.transport == nil {
		return ErrViewNoTransport
	}

	ve.lock.Lock()
	tableID := ve.view.TableID
	hasSeat := ve.view.MySeat != UnsetValue
	ve.lock.Unlock()

	if !hasSeat {
		return ErrViewNoSeat
	}
	return ve.transport.SendCommand(NewRebuyCommand(tableID, amount))
}

// onTurnExpired runs off the timer goroutine. Auto-fold fires for the local
// seat only, and the timer's single-shot guard makes it fire at most once per
// prompt.
func (ve *viewEngine) onTurnExpired(seat int) {
	ve.lock.Lock()

	isLocal := seat != UnsetValue && seat == ve.view.MySeat
	tableID := ve.view.TableID
	if ve.view.Prompt != nil && ve.view.Prompt.Seat == seat {
		ve.view.Prompt = nil
		ve.view.Hand.CurrentTurnSeat = UnsetValue
		ve.emitViewUpdated()
	}
	ve.lock.Unlock()

	if !isLocal {
		return
	}

	if ve.transport != nil {
		if err := ve.transport.SendCommand(NewActionRequestCommand(tableID, WagerAction_Fold, 0)); err != nil {
			ve.emitNotice("auto-fold send failed: " + err.Error())
		}
	}
	ve.onAutoFold(seat)
}

// applyDealStep advances the deal presentation by one card. Caller holds the
// engine lock.
func (ve *viewEngine) applyDealStep(step DealStep) {
	ve.view.DealProgress++
	ve.logger.Debug("view: card dealt",
		zap.Int("seat", step.Seat),
		zap.Int("card_index", step.CardIndex))
	ve.emitViewUpdated()
}

// markDealingDone flags completion. Caller holds the engine lock.
func (ve *viewEngine) markDealingDone() {
	if ve.view.DealingDone {
		return
	}
	ve.view.DealingDone = true
	ve.emitViewUpdated()
	ve.onDealingCompleted()
}

// completeDealing is the goroutine-safe completion entry used by the dealing
// ready group.
func (ve *viewEngine) completeDealing() {
	ve.lock.Lock()
	defer ve.lock.Unlock()
	ve.markDealingDone()
}

func (ve *viewEngine) onTransportStateChanged(state string) {
	ve.emitNotice("connection: " + state)
}

// applyPendingStacks flushes snapshot stacks buffered while the showdown
// sequencer was exclusive. Caller holds the engine lock.
func (ve *viewEngine) applyPendingStacks() {
	if len(ve.pendingStacks) == 0 {
		return
	}

	for position, stack := range ve.pendingStacks {
		if seat := ve.view.FindSeat(position); seat != nil {
			seat.Stack = stack
		}
	}
	ve.pendingStacks = make(map[int]int64)
}
