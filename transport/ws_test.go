package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/weedbox/pokertableview"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebSocketTransport_CommandAndEventRoundTrip(t *testing.T) {
	received := make(chan pokertableview.Command, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd pokertableview.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			return
		}
		received <- cmd

		event := pokertableview.NewEvent(pokertableview.EventType_Error, pokertableview.ErrorPayload{
			ErrorMessage: "table closed",
		})
		frame, _ := json.Marshal(event)
		conn.WriteMessage(websocket.TextMessage, frame)

		// Keep the connection open until the client disconnects.
		conn.ReadMessage()
	}))
	defer server.Close()

	events := make(chan pokertableview.Event, 1)

	transport := NewWebSocketTransport(wsURL(server))
	transport.OnEvent(func(event pokertableview.Event) {
		events <- event
	})

	assert.NoError(t, transport.Connect())
	defer transport.Close()

	assert.NoError(t, transport.SendCommand(pokertableview.NewSubscribeTableCommand("t1")))

	select {
	case cmd := <-received:
		assert.Equal(t, pokertableview.CommandType_SubscribeTable, cmd.Type)

		var payload pokertableview.SubscribeTablePayload
		assert.NoError(t, cmd.UnmarshalPayload(&payload))
		assert.Equal(t, "t1", payload.TableID)
	case <-time.After(time.Second):
		t.Fatal("server did not receive the command")
	}

	select {
	case event := <-events:
		assert.Equal(t, pokertableview.EventType_Error, event.Type)
	case <-time.After(time.Second):
		t.Fatal("client did not receive the event")
	}
}

func TestWebSocketTransport_HandshakeCarriesToken(t *testing.T) {
	headers := make(chan http.Header, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
	}))
	defer server.Close()

	transport := NewWebSocketTransport(wsURL(server),
		WithTokenProvider(func() (string, error) {
			return "secret-token", nil
		}),
	)

	assert.NoError(t, transport.Connect())
	defer transport.Close()

	select {
	case header := <-headers:
		assert.Equal(t, "Bearer secret-token", header.Get("Authorization"))
		assert.NotEmpty(t, header.Get("X-Client-ID"))
	case <-time.After(time.Second):
		t.Fatal("handshake did not reach the server")
	}
}

func TestWebSocketTransport_StateTransitions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
	}))
	defer server.Close()

	states := make(chan string, 4)

	transport := NewWebSocketTransport(wsURL(server))
	transport.OnStateChanged(func(state string) {
		states <- state
	})

	assert.NoError(t, transport.Connect())
	assert.Equal(t, pokertableview.TransportState_Connected, <-states)

	assert.NoError(t, transport.Close())
	assert.Equal(t, pokertableview.TransportState_Closed, <-states)
}

func TestWebSocketTransport_SendBeforeConnect(t *testing.T) {
	transport := NewWebSocketTransport("ws://localhost:0")

	err := transport.SendCommand(pokertableview.NewSubscribeTableCommand("t1"))
	assert.ErrorIs(t, err, ErrTransportNotConnected)
}

func TestWebSocketTransport_SendAfterClose(t *testing.T) {
	transport := NewWebSocketTransport("ws://localhost:0")
	assert.NoError(t, transport.Close())

	err := transport.SendCommand(pokertableview.NewSubscribeTableCommand("t1"))
	assert.ErrorIs(t, err, ErrTransportClosed)

	assert.ErrorIs(t, transport.Connect(), ErrTransportClosed)
}

func TestWebSocketTransport_MalformedFrameIsDiscarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`))

		event := pokertableview.NewEvent(pokertableview.EventType_ConnectionState, pokertableview.ConnectionStatePayload{
			State: "ok",
		})
		frame, _ := json.Marshal(event)
		conn.WriteMessage(websocket.TextMessage, frame)

		conn.ReadMessage()
	}))
	defer server.Close()

	events := make(chan pokertableview.Event, 2)

	transport := NewWebSocketTransport(wsURL(server))
	transport.OnEvent(func(event pokertableview.Event) {
		events <- event
	})

	assert.NoError(t, transport.Connect())
	defer transport.Close()

	// Only the well-formed frame comes through.
	select {
	case event := <-events:
		assert.Equal(t, pokertableview.EventType_ConnectionState, event.Type)
	case <-time.After(time.Second):
		t.Fatal("valid event did not arrive")
	}
}
