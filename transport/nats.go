package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/weedbox/pokertableview"
)

// NATS subject layout
//
//	poker.table.{table_id}.events    server -> clients, per-table fanout
//	poker.table.{table_id}.commands  clients -> server
const (
	subjectTableEventsFormat   = "poker.table.%s.events"
	subjectTableCommandsFormat = "poker.table.%s.commands"
)

func buildTableEventsSubject(tableID string) string {
	return fmt.Sprintf(subjectTableEventsFormat, tableID)
}

func buildTableCommandsSubject(tableID string) string {
	return fmt.Sprintf(subjectTableCommandsFormat, tableID)
}

type NATSTransportOpt func(*natsTransport)

type natsTransport struct {
	url    string
	logger *zap.Logger

	maxReconnects int
	reconnectWait time.Duration

	mu      sync.Mutex
	conn    *nats.Conn
	sub     *nats.Subscription
	tableID string
	closed  bool

	onEvent        func(event pokertableview.Event)
	onStateChanged func(state string)
}

func WithNATSLogger(logger *zap.Logger) NATSTransportOpt {
	return func(t *natsTransport) {
		t.logger = logger
	}
}

func WithReconnectPolicy(maxReconnects int, wait time.Duration) NATSTransportOpt {
	return func(t *natsTransport) {
		t.maxReconnects = maxReconnects
		t.reconnectWait = wait
	}
}

// NewNATSTransport creates a transport backed by per-table NATS subjects.
// The event subscription is established when a SUBSCRIBE_TABLE command is
// sent and torn down on UNSUBSCRIBE_TABLE.
func NewNATSTransport(url string, opts ...NATSTransportOpt) pokertableview.Transport {
	t := &natsTransport{
		url:            url,
		logger:         zap.NewNop(),
		maxReconnects:  -1,
		reconnectWait:  2 * time.Second,
		onEvent:        func(event pokertableview.Event) {},
		onStateChanged: func(state string) {},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *natsTransport) OnEvent(fn func(event pokertableview.Event)) {
	t.onEvent = fn
}

func (t *natsTransport) OnStateChanged(fn func(state string)) {
	t.onStateChanged = fn
}

func (t *natsTransport) Connect() error {

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}

	if t.conn != nil {
		return nil
	}

	conn, err := nats.Connect(t.url,
		nats.MaxReconnects(t.maxReconnects),
		nats.ReconnectWait(t.reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			t.logger.Warn("nats disconnected", zap.Error(err))
			t.onStateChanged(pokertableview.TransportState_Disconnected)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			t.logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
			t.onStateChanged(pokertableview.TransportState_Connected)
			t.restoreSubscription()
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "transport: nats connect %s failed", t.url)
	}

	t.conn = conn
	t.onStateChanged(pokertableview.TransportState_Connected)

	return nil
}

func (t *natsTransport) Close() error {

	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return nil
	}

	t.closed = true
	conn := t.conn
	t.conn = nil
	t.sub = nil
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	t.onStateChanged(pokertableview.TransportState_Closed)

	return nil
}

func (t *natsTransport) SendCommand(cmd pokertableview.Command) error {

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}

	if t.conn == nil {
		return ErrTransportNotConnected
	}

	switch cmd.Type {
	case pokertableview.CommandType_SubscribeTable:
		var payload pokertableview.SubscribeTablePayload
		if err := cmd.UnmarshalPayload(&payload); err != nil {
			return errors.Wrap(err, "transport: decode subscribe payload failed")
		}
		if err := t.subscribeTable(payload.TableID); err != nil {
			return err
		}
	case pokertableview.CommandType_UnsubscribeTable:
		// Publish before dropping the subscription so the unsubscribe
		// reaches the server on the table's command subject.
		err := t.publish(cmd)
		t.unsubscribeTable()
		return err
	}

	return t.publish(cmd)
}

// subscribeTable swaps the table event subscription. Caller holds mu.
func (t *natsTransport) subscribeTable(tableID string) error {

	if t.sub != nil {
		t.sub.Unsubscribe()
		t.sub = nil
	}

	sub, err := t.conn.Subscribe(buildTableEventsSubject(tableID), func(msg *nats.Msg) {
		event, err := pokertableview.ParseEvent(msg.Data)
		if err != nil {
			t.logger.Warn("discarding malformed frame",
				zap.String("subject", msg.Subject),
				zap.Error(err))
			return
		}
		t.onEvent(*event)
	})
	if err != nil {
		return errors.Wrapf(err, "transport: subscribe table %s failed", tableID)
	}

	t.sub = sub
	t.tableID = tableID

	return nil
}

// unsubscribeTable drops the table event subscription. Caller holds mu.
func (t *natsTransport) unsubscribeTable() {
	if t.sub != nil {
		t.sub.Unsubscribe()
		t.sub = nil
	}
	t.tableID = ""
}

// restoreSubscription re-establishes the table subscription after a NATS
// reconnect so the engine can resync from the next snapshot.
func (t *natsTransport) restoreSubscription() {

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.conn == nil || t.tableID == "" {
		return
	}

	if err := t.subscribeTable(t.tableID); err != nil {
		t.logger.Error("restore subscription failed",
			zap.String("table_id", t.tableID),
			zap.Error(err))
		return
	}

	if err := t.publish(pokertableview.NewSubscribeTableCommand(t.tableID)); err != nil {
		t.logger.Error("resubscribe publish failed",
			zap.String("table_id", t.tableID),
			zap.Error(err))
	}
}

// publish sends a command on the current table's command subject. Caller
// holds mu.
func (t *natsTransport) publish(cmd pokertableview.Command) error {

	tableID := t.tableID
	if tableID == "" {
		return pokertableview.ErrViewNotSubscribed
	}

	data, err := cmd.GetJSON()
	if err != nil {
		return errors.Wrap(err, "transport: encode command failed")
	}

	return t.conn.Publish(buildTableCommandsSubject(tableID), data)
}
