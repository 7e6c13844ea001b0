package relay

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock 可推进的测试时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestPollSessionQueueAndDrain(t *testing.T) {
	s := newPollSession("p1", time.Minute, nil)

	if err := s.Send("a", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Send("b", 2); err != nil {
		t.Fatal(err)
	}

	out := s.Poll(context.Background(), time.Second)
	if len(out) != 2 || out[0].Event != "a" || out[1].Event != "b" {
		t.Fatalf("Poll = %v", out)
	}

	// 队列已取空：短等待后返回空
	out = s.Poll(context.Background(), 10*time.Millisecond)
	if len(out) != 0 {
		t.Fatalf("second Poll = %v, want empty", out)
	}
}

func TestPollSessionWakesOnSend(t *testing.T) {
	s := newPollSession("p1", time.Minute, nil)

	done := make(chan []*Frame, 1)
	go func() {
		done <- s.Poll(context.Background(), 5*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	if err := s.Send("wake", nil); err != nil {
		t.Fatal(err)
	}

	select {
	case out := <-done:
		if len(out) != 1 || out[0].Event != "wake" {
			t.Fatalf("Poll = %v", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Poll did not wake on Send")
	}
}

func TestPollSessionTTL(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	s := newPollSession("p1", 45*time.Second, clk.Now)

	if !s.IsOpen() {
		t.Fatal("fresh session must be open")
	}
	clk.Advance(44 * time.Second)
	if !s.IsOpen() {
		t.Fatal("session within TTL must be open")
	}
	clk.Advance(2 * time.Second)
	if s.IsOpen() {
		t.Fatal("session past TTL must be closed")
	}

	// Touch 续期
	s.Touch()
	if !s.IsOpen() {
		t.Fatal("touched session must be open again")
	}
}

func TestPollSessionClose(t *testing.T) {
	s := newPollSession("p1", time.Minute, nil)
	s.Close("test")
	if s.IsOpen() {
		t.Error("closed session reports open")
	}
	if err := s.Send("x", nil); err == nil {
		t.Error("Send on closed session must fail")
	}
}

func TestPollSessionQueueFull(t *testing.T) {
	s := newPollSession("p1", time.Minute, nil)
	for i := 0; i < pollQueueCap; i++ {
		if err := s.Send("e", i); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	if err := s.Send("overflow", nil); err == nil {
		t.Error("Send past capacity must fail")
	}
}

func TestPollSessionContextCancel(t *testing.T) {
	s := newPollSession("p1", time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	out := s.Poll(ctx, 5*time.Second)
	if len(out) != 0 {
		t.Fatalf("Poll = %v, want nil on cancel", out)
	}
}
