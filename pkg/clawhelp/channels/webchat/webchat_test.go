package webchat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
)

func startWebChat(t *testing.T) (*WebChat, *httptest.Server) {
	t.Helper()
	w := New(Config{}, nil)
	require.NoError(t, w.Connect(context.Background()))
	srv := httptest.NewServer(w)
	t.Cleanup(func() {
		_ = w.Disconnect()
		srv.Close()
	})
	return w, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		_ = resp.Body.Close()
	})

	var hello frame
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "hello", hello.Type)
	require.NotEmpty(t, hello.ClientID)
	return conn
}

func receive(t *testing.T, w *WebChat) *channels.IncomingMessage {
	t.Helper()
	select {
	case msg := <-w.Receive():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestWebChat_DirectConversation(t *testing.T) {
	w, srv := startWebChat(t)
	conn := dial(t, srv, "user=alice")

	require.NoError(t, conn.WriteJSON(frame{Type: "message", Content: "/help"}))
	msg := receive(t, w)
	assert.Equal(t, "alice", msg.From)
	assert.False(t, msg.IsGroup)
	assert.Equal(t, channels.UserTarget("alice"), msg.ReplyTarget())

	require.NoError(t, w.Send(context.Background(), msg.ReplyTarget(), &channels.OutgoingMessage{Content: "Command Help"}))

	var reply frame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "reply", reply.Type)
	assert.Equal(t, "Command Help", reply.Content)
}

func TestWebChat_RoomBroadcast(t *testing.T) {
	w, srv := startWebChat(t)
	a := dial(t, srv, "user=alice&room=lobby")
	b := dial(t, srv, "user=bob&room=lobby")
	dial(t, srv, "user=carol&room=other")

	require.Eventually(t, func() bool { return w.Clients() == 3 }, time.Second, 10*time.Millisecond)

	require.NoError(t, a.WriteJSON(frame{Type: "message", Content: "/help 1"}))
	msg := receive(t, w)
	assert.True(t, msg.IsGroup)
	assert.Equal(t, channels.GroupTarget("lobby"), msg.ReplyTarget())

	require.NoError(t, w.Send(context.Background(), msg.ReplyTarget(), &channels.OutgoingMessage{Content: "detail"}))
	for _, conn := range []*websocket.Conn{a, b} {
		var reply frame
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, "detail", reply.Content)
		assert.Equal(t, "lobby", reply.Room)
	}
}

func TestWebChat_BadFrames(t *testing.T) {
	_, srv := startWebChat(t)
	conn := dial(t, srv, "user=alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var out frame
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "error", out.Type)

	require.NoError(t, conn.WriteJSON(frame{Type: "ping"}))
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "expected type=message", out.Error)
}

func TestWebChat_MissingUser(t *testing.T) {
	_, srv := startWebChat(t)
	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebChat_SendErrors(t *testing.T) {
	w := New(Config{}, nil)
	err := w.Send(context.Background(), channels.UserTarget("x"), &channels.OutgoingMessage{})
	assert.ErrorIs(t, err, channels.ErrChannelDisconnected)

	require.NoError(t, w.Connect(context.Background()))
	assert.Error(t, w.Send(context.Background(), channels.UserTarget("nobody"), &channels.OutgoingMessage{}))

	err = w.Send(context.Background(), channels.Target{Type: "thread"}, &channels.OutgoingMessage{})
	assert.ErrorIs(t, err, channels.ErrUnsupportedTarget)

	require.NoError(t, w.Disconnect())
	require.NoError(t, w.Disconnect())
	_, open := <-w.Receive()
	assert.False(t, open)
}

func TestWebChat_DisconnectClosesClients(t *testing.T) {
	w, srv := startWebChat(t)
	conn := dial(t, srv, "user=alice")

	require.NoError(t, w.Disconnect())
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, w.Clients())
}
