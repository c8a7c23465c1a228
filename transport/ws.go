package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/weedbox/pokertableview"
)

var (
	ErrTransportClosed       = errors.New("transport: closed")
	ErrTransportNotConnected = errors.New("transport: not connected")
)

// TokenProvider supplies the bearer token sent on the websocket handshake.
type TokenProvider func() (string, error)

type WebSocketTransportOpt func(*webSocketTransport)

type webSocketTransport struct {
	url           string
	clientID      string
	tokenProvider TokenProvider
	logger        *zap.Logger

	dialer       *websocket.Dialer
	pingInterval time.Duration
	writeTimeout time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	sendCh    chan []byte
	closeCh   chan struct{}
	closed    bool
	connected bool

	onEvent        func(event pokertableview.Event)
	onStateChanged func(state string)
}

func WithTokenProvider(fn TokenProvider) WebSocketTransportOpt {
	return func(t *webSocketTransport) {
		t.tokenProvider = fn
	}
}

func WithWebSocketLogger(logger *zap.Logger) WebSocketTransportOpt {
	return func(t *webSocketTransport) {
		t.logger = logger
	}
}

func WithPingInterval(interval time.Duration) WebSocketTransportOpt {
	return func(t *webSocketTransport) {
		t.pingInterval = interval
	}
}

// NewWebSocketTransport creates a websocket transport dialing url. Each
// transport carries a generated client id sent as a handshake header so the
// server can correlate resubscribes from the same client.
func NewWebSocketTransport(url string, opts ...WebSocketTransportOpt) pokertableview.Transport {
	t := &webSocketTransport{
		url:            url,
		clientID:       uuid.NewString(),
		logger:         zap.NewNop(),
		dialer:         websocket.DefaultDialer,
		pingInterval:   30 * time.Second,
		writeTimeout:   10 * time.Second,
		onEvent:        func(event pokertableview.Event) {},
		onStateChanged: func(state string) {},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *webSocketTransport) OnEvent(fn func(event pokertableview.Event)) {
	t.onEvent = fn
}

func (t *webSocketTransport) OnStateChanged(fn func(state string)) {
	t.onStateChanged = fn
}

func (t *webSocketTransport) Connect() error {

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}

	if t.connected {
		return nil
	}

	header := http.Header{}
	header.Set("X-Client-ID", t.clientID)

	if t.tokenProvider != nil {
		token, err := t.tokenProvider()
		if err != nil {
			return errors.Wrap(err, "transport: token provider failed")
		}
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := t.dialer.Dial(t.url, header)
	if err != nil {
		return errors.Wrapf(err, "transport: dial %s failed", t.url)
	}

	t.conn = conn
	t.sendCh = make(chan []byte, 64)
	t.closeCh = make(chan struct{})
	t.connected = true

	go t.readPump(conn)
	go t.writePump(conn, t.sendCh, t.closeCh)

	t.onStateChanged(pokertableview.TransportState_Connected)

	return nil
}

func (t *webSocketTransport) Close() error {

	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return nil
	}

	t.closed = true
	conn := t.conn
	closeCh := t.closeCh
	t.conn = nil
	t.connected = false
	t.mu.Unlock()

	if closeCh != nil {
		close(closeCh)
	}

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}

	t.onStateChanged(pokertableview.TransportState_Closed)

	return nil
}

func (t *webSocketTransport) SendCommand(cmd pokertableview.Command) error {

	data, err := cmd.GetJSON()
	if err != nil {
		return errors.Wrap(err, "transport: encode command failed")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}

	if !t.connected {
		return ErrTransportNotConnected
	}

	select {
	case t.sendCh <- data:
		return nil
	default:
		return errors.New("transport: send buffer full")
	}
}

func (t *webSocketTransport) readPump(conn *websocket.Conn) {

	defer t.dropConnection(conn)

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(2 * t.pingInterval))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(2 * t.pingInterval))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		event, err := pokertableview.ParseEvent(data)
		if err != nil {
			t.logger.Warn("discarding malformed frame", zap.Error(err))
			continue
		}

		t.onEvent(*event)
	}
}

func (t *webSocketTransport) writePump(conn *websocket.Conn, sendCh chan []byte, closeCh chan struct{}) {

	ticker := time.NewTicker(t.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-sendCh:
			conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				t.logger.Warn("websocket write failed", zap.Error(err))
				t.dropConnection(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.dropConnection(conn)
				return
			}
		case <-closeCh:
			return
		}
	}
}

// dropConnection tears down a broken connection. Safe to call from both
// pumps; only the first caller for a given conn emits the state change.
func (t *webSocketTransport) dropConnection(conn *websocket.Conn) {

	t.mu.Lock()

	if t.conn != conn {
		t.mu.Unlock()
		return
	}

	t.conn = nil
	t.connected = false
	closeCh := t.closeCh
	t.closeCh = nil
	closedAlready := t.closed
	t.mu.Unlock()

	conn.Close()

	if closeCh != nil {
		close(closeCh)
	}

	if !closedAlready {
		t.onStateChanged(pokertableview.TransportState_Disconnected)
	}
}
