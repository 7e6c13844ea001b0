package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"RelayProject/logger"
	"RelayProject/tools/errs"
)

const (
	wsWriteDeadline = 5 * time.Second
	wsOutboundCap   = 64
)

// wsSession 每连接单写协程 + 缓冲队列的写泵模型；
// gorilla/websocket 的 WriteMessage 不能并发调用。
type wsSession struct {
	id   string
	conn *websocket.Conn

	out       chan *Frame
	stopCh    chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

func newWSSession(id string, conn *websocket.Conn) *wsSession {
	s := &wsSession{
		id:     id,
		conn:   conn,
		out:    make(chan *Frame, wsOutboundCap),
		stopCh: make(chan struct{}),
	}
	go s.writePump()
	return s
}

func (s *wsSession) ID() string { return s.id }

func (s *wsSession) Send(event string, data any) error {
	if s.closed.Load() {
		return errs.ErrTransportFault.WrapMsg("session closed", "session_id", s.id)
	}
	f := &Frame{Event: event, Data: data}
	select {
	case s.out <- f:
		return nil
	default:
		// 慢消费者：丢帧而不是阻塞其他会话的投递
		logger.Warnf("[WS] outbound full, drop event=%s session=%s", event, s.id)
		return errs.ErrTransportFault.WrapMsg("outbound queue full", "session_id", s.id)
	}
}

func (s *wsSession) IsOpen() bool { return !s.closed.Load() }

func (s *wsSession) Close(reason string) {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopCh)
		if err := s.conn.Close(); err != nil {
			logger.Debug("[WS] close conn: " + err.Error())
		}
		logger.Infof("[WS] session closed id=%s reason=%s", s.id, reason)
	})
}

func (s *wsSession) RemoteAddr() string {
	if ra := s.conn.RemoteAddr(); ra != nil {
		return ra.String()
	}
	return ""
}

func (s *wsSession) writePump() {
	for {
		select {
		case <-s.stopCh:
			return
		case f := <-s.out:
			data, err := f.Marshal()
			if err != nil {
				logger.Errorf("[WS] marshal frame event=%s err=%v", f.Event, err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[WS] write failed session=%s err=%v", s.id, err)
				s.Close("write error")
				return
			}
		}
	}
}
