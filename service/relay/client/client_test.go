package client

import (
	"testing"
	"time"
)

func TestTransportPolicyPrefersWebSocket(t *testing.T) {
	p := newTransportPolicy()
	if got := p.pick(); got != TransportWebSocket {
		t.Errorf("pick = %s, want websocket", got)
	}
}

func TestTransportPolicyToggleOnError(t *testing.T) {
	p := newTransportPolicy()

	// websocket 失败 => 切 polling
	p.pick()
	p.onError()
	if got := p.pick(); got != TransportPolling {
		t.Fatalf("after ws error pick = %s, want polling", got)
	}

	// polling 也失败 => 切回 websocket
	p.onError()
	if got := p.pick(); got != TransportWebSocket {
		t.Fatalf("after polling error pick = %s, want websocket", got)
	}

	// 持续失败时两种模式交替
	for i := 0; i < 6; i++ {
		p.onError()
	}
	if got := p.pick(); got != TransportWebSocket {
		t.Errorf("after even number of errors pick = %s, want websocket", got)
	}
}

func TestTransportPolicyReconnectReenables(t *testing.T) {
	p := newTransportPolicy()
	p.pick()
	p.onError() // websocket 被禁用

	p.onReconnectAttempt()
	if !p.enabled[TransportWebSocket] || !p.enabled[TransportPolling] {
		t.Fatalf("enabled = %v, want both", p.enabled)
	}
	// 新一轮重新偏好 websocket（升级路径重试）
	if got := p.pick(); got != TransportWebSocket {
		t.Errorf("pick = %s, want websocket", got)
	}
}

func TestNextDelay(t *testing.T) {
	max := 5 * time.Second
	cases := []struct {
		cur, want time.Duration
	}{
		{1 * time.Second, 2 * time.Second},
		{2 * time.Second, 4 * time.Second},
		{4 * time.Second, 5 * time.Second}, // 封顶
		{5 * time.Second, 5 * time.Second},
	}
	for _, c := range cases {
		if got := nextDelay(c.cur, max); got != c.want {
			t.Errorf("nextDelay(%v) = %v, want %v", c.cur, got, c.want)
		}
	}
}

func TestConfigNorm(t *testing.T) {
	c := Config{URL: "http://localhost:3000"}
	c.norm()
	if c.MaxAttempts != defaultMaxAttempts {
		t.Errorf("MaxAttempts = %d", c.MaxAttempts)
	}
	if c.DelayMin != defaultDelayMin || c.DelayMax != defaultDelayMax {
		t.Errorf("delays = %v / %v", c.DelayMin, c.DelayMax)
	}
	if c.DialTimeout != defaultDialTimeout {
		t.Errorf("DialTimeout = %v", c.DialTimeout)
	}

	// 显式给的值不被覆盖
	c2 := Config{MaxAttempts: 3, DelayMin: 100 * time.Millisecond, DelayMax: time.Second, DialTimeout: time.Second}
	c2.norm()
	if c2.MaxAttempts != 3 || c2.DelayMin != 100*time.Millisecond {
		t.Errorf("norm clobbered explicit values: %+v", c2)
	}
}

func TestEmitBeforeConnect(t *testing.T) {
	c := New(Config{URL: "http://localhost:3000"})
	if err := c.Emit("ping", nil); err == nil {
		t.Fatal("Emit before Connect must fail")
	}
	if c.Connected() {
		t.Error("Connected = true before Connect")
	}
}

func TestTransportString(t *testing.T) {
	if TransportWebSocket.String() != "websocket" || TransportPolling.String() != "polling" {
		t.Error("unexpected transport names")
	}
}
