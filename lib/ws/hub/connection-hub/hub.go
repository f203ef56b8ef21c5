package connectionhub

import (
	"sync"
	"time"

	wsmodels "approvals-backend/models/ws"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

type Provider interface {
	AddClient(userID string, conn Conn)
	DeleteClient(userID string, conn Conn)
	SendMessage(msg wsmodels.ServerMessage) bool
	IsConnected(userID string) bool
}

func NewHub() Provider {
	return &impl{
		clients: map[string]*clientSession{},
	}
}

type impl struct {
	mu      sync.RWMutex
	clients map[string]*clientSession // map[userID]
}

// DeleteClient removes the session only if it still belongs to conn,
// so a stale handler cannot close a newer connection of the same user.
func (i *impl) DeleteClient(userID string, conn Conn) {
	i.mu.Lock()
	sess, ok := i.clients[userID]
	if !ok || sess.conn != conn {
		i.mu.Unlock()
		return
	}
	delete(i.clients, userID)
	i.mu.Unlock()
	sess.stop()
}

func (i *impl) AddClient(userID string, conn Conn) {
	i.mu.Lock()
	oldSess, ok := i.clients[userID]
	i.clients[userID] = newSession(conn)
	i.mu.Unlock()
	if ok {
		oldSess.stop()
	}
}

// SendMessage queues msg for its recipient. Messages for users without a live
// session, or with a full outbound buffer, are dropped.
func (i *impl) SendMessage(msg wsmodels.ServerMessage) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	sess, ok := i.clients[msg.ToUserID]
	if !ok {
		return false
	}
	return sess.enqueue(msg)
}

func (i *impl) IsConnected(userID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.clients[userID]
	return ok
}
