package connectionhub

import (
	"sync"
	"testing"
	"time"

	wsmodels "approvals-backend/models/ws"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []any
	closed   bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, v)
	return nil
}

func (f *fakeConn) WriteControl(int, []byte, time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestHub(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}
	hub.AddClient("A", conn)
	require.True(t, hub.IsConnected("A"))
	require.False(t, hub.IsConnected("B"))

	require.True(t, hub.SendMessage(wsmodels.ServerMessage{ToUserID: "A", Code: wsmodels.ApprovalChangedCode}))
	require.False(t, hub.SendMessage(wsmodels.ServerMessage{ToUserID: "B"}))
	require.Eventually(t, func() bool { return conn.received() == 1 }, time.Second, 5*time.Millisecond)

	t.Run(`reconnect replaces the session`, func(t *testing.T) {
		newConn := &fakeConn{}
		hub.AddClient("A", newConn)
		require.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)

		hub.DeleteClient("A", conn)
		require.True(t, hub.IsConnected("A"))

		hub.DeleteClient("A", newConn)
		require.False(t, hub.IsConnected("A"))
		require.Eventually(t, newConn.isClosed, time.Second, 5*time.Millisecond)
	})
}
