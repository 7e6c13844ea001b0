package relay

import (
	"context"
	"sync"
	"time"

	"RelayProject/tools/errs"
)

const (
	pollQueueCap = 256
)

// pollSession 长轮询退路：出站帧先进队列，客户端用 GET 把队列取走。
// 只要客户端在 TTL 内来轮询过，会话就算活着；超时由 sweeper 收走。
type pollSession struct {
	id    string
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	queue    []*Frame
	notify   chan struct{}
	lastSeen time.Time
	closed   bool
}

func newPollSession(id string, ttl time.Duration, clock func() time.Time) *pollSession {
	if clock == nil {
		clock = time.Now
	}
	return &pollSession{
		id:       id,
		ttl:      ttl,
		clock:    clock,
		notify:   make(chan struct{}, 1),
		lastSeen: clock(),
	}
}

func (s *pollSession) ID() string { return s.id }

func (s *pollSession) Send(event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errs.ErrTransportFault.WrapMsg("session closed", "session_id", s.id)
	}
	if len(s.queue) >= pollQueueCap {
		return errs.ErrTransportFault.WrapMsg("outbound queue full", "session_id", s.id)
	}
	s.queue = append(s.queue, &Frame{Event: event, Data: data})
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

func (s *pollSession) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.clock().Sub(s.lastSeen) <= s.ttl
}

func (s *pollSession) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *pollSession) RemoteAddr() string { return "" }

// Touch 每次 HTTP 交互续期
func (s *pollSession) Touch() {
	s.mu.Lock()
	s.lastSeen = s.clock()
	s.mu.Unlock()
}

// Poll 取走当前积压的出站帧；空队列时最多等 wait。
// 返回空切片表示本轮无数据，客户端应继续轮询。
func (s *pollSession) Poll(ctx context.Context, wait time.Duration) []*Frame {
	s.Touch()
	if out := s.drain(); len(out) > 0 {
		return out
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
		return s.drain()
	case <-s.notify:
		return s.drain()
	}
}

func (s *pollSession) drain() []*Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.queue
	s.queue = nil
	return out
}
