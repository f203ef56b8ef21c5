package connectionhub

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	log "github.com/sirupsen/logrus"
)

const sendBufferSize = 16

type clientSession struct {
	conn Conn

	// Outbound messages, buffered.
	sendCh   chan any
	ctx      context.Context
	cancel   func()
	stopOnce sync.Once
}

func newSession(conn Conn) *clientSession {
	ctx, cancelFn := context.WithCancel(context.Background())
	sess := &clientSession{
		conn:   conn,
		sendCh: make(chan any, sendBufferSize),
		ctx:    ctx,
		cancel: cancelFn,
	}
	go sess.startSend()
	return sess
}

func (s *clientSession) enqueue(msg any) bool {
	select {
	case <-s.ctx.Done():
		return false
	case s.sendCh <- msg:
		return true
	default:
		log.Warn("ws send buffer is full, message dropped")
		return false
	}
}

func (s *clientSession) stop() {
	s.stopOnce.Do(s.cancel)
}

func (s *clientSession) startSend() {
	for {
		select {
		case <-s.ctx.Done():
			s.close()
			return
		case msg := <-s.sendCh:
			if err := s.conn.WriteJSON(msg); err != nil {
				log.WithError(err).Error("ws message sending failed")
			}
		}
	}
}

func (s *clientSession) close() {
	err := s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	if err != nil {
		log.WithError(err).Debug("ws close failed")
	}
}
