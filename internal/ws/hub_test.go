package ws_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"txledger/internal/module/ingest/txdomain"
	"txledger/internal/ws"
)

func newTestServer(t *testing.T) (*ws.Hub, *httptest.Server) {
	hub := ws.NewHub(zap.NewNop())
	go hub.Run()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(conn)
	}))
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsEventToConnectedClient(t *testing.T) {
	hub, server := newTestServer(t)
	conn := dial(t, server)

	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 10*time.Millisecond)

	hub.RunStarted(txdomain.RunTypeNormalisation)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(message), `"run_started"`)
	require.Contains(t, string(message), `"NORMALISATION"`)
}

func TestHub_RunFinishedCarriesRunState(t *testing.T) {
	hub, server := newTestServer(t)
	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 10*time.Millisecond)

	run := &txdomain.ProcessingRun{
		Type:           txdomain.RunTypeCategorisation,
		Status:         txdomain.RunStatusCompleted,
		SucceededCount: 3,
	}
	hub.RunFinished(run, nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(message), `"succeeded":3`)
}

func TestHub_MultipleClientsAllReceiveBroadcast(t *testing.T) {
	hub, server := newTestServer(t)
	connA := dial(t, server)
	connB := dial(t, server)

	require.Eventually(t, func() bool { return hub.ConnectedClients() == 2 }, time.Second, 10*time.Millisecond)

	hub.RunStarted(txdomain.RunTypeNormalisation)

	for _, conn := range []*websocket.Conn{connA, connB} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := conn.ReadMessage()
		require.NoError(t, err)
	}
}
