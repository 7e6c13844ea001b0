package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"RelayProject/service/relay"
)

// Transport 两种可协商的传输模式
type Transport int

const (
	TransportWebSocket Transport = iota
	TransportPolling
)

func (t Transport) String() string {
	if t == TransportWebSocket {
		return "websocket"
	}
	return "polling"
}

// transportPolicy 二态协商开关。
// 转换规则：连接错误 => 切到当前未使用的那一种；
// 新一轮重连开始 => 两种全部重新启用（升级路径重试），偏好 websocket。
type transportPolicy struct {
	enabled [2]bool
	active  Transport
}

func newTransportPolicy() transportPolicy {
	return transportPolicy{enabled: [2]bool{true, true}, active: TransportWebSocket}
}

func (p *transportPolicy) pick() Transport {
	if p.enabled[TransportWebSocket] {
		p.active = TransportWebSocket
	} else {
		p.active = TransportPolling
	}
	return p.active
}

func (p *transportPolicy) onError() {
	if p.active == TransportWebSocket {
		p.enabled = [2]bool{false, true}
		p.active = TransportPolling
	} else {
		p.enabled = [2]bool{true, false}
		p.active = TransportWebSocket
	}
}

func (p *transportPolicy) onReconnectAttempt() {
	p.enabled = [2]bool{true, true}
}

// transportConn 客户端侧的一条物理连接
type transportConn interface {
	WriteFrame(f *relay.Frame) error
	ReadFrame() (*relay.Frame, error)
	Close() error
}

// ===== websocket 模式 =====

type wsTransport struct {
	conn *websocket.Conn
}

func dialWebSocket(ctx context.Context, baseURL string, timeout time.Duration) (transportConn, error) {
	u := strings.Replace(baseURL, "http", "ws", 1) + "/api/relay/ws"
	d := websocket.Dialer{HandshakeTimeout: timeout}
	conn, resp, err := d.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial websocket %s: %w", u, err)
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) WriteFrame(f *relay.Frame) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) ReadFrame() (*relay.Frame, error) {
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		return relay.ParseFrameJSON(data)
	}
}

func (t *wsTransport) Close() error { return t.conn.Close() }

// ===== 长轮询模式 =====

type pollTransport struct {
	base      string
	sessionID string
	http      *http.Client

	queue []*relay.Frame
}

func dialPolling(ctx context.Context, baseURL string, timeout time.Duration) (transportConn, error) {
	hc := &http.Client{Timeout: 0} // 长轮询请求自己带超时语义
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/relay/poll", nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open poll session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open poll session: status %d", resp.StatusCode)
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode poll session: %w", err)
	}
	if out.SessionID == "" {
		return nil, fmt.Errorf("empty poll session id")
	}
	return &pollTransport{base: baseURL, sessionID: out.SessionID, http: hc}, nil
}

func (t *pollTransport) WriteFrame(f *relay.Frame) error {
	body, err := json.Marshal([]*relay.Frame{f})
	if err != nil {
		return err
	}
	resp, err := t.http.Post(t.base+"/api/relay/poll/"+t.sessionID, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("emit: status %d", resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (t *pollTransport) ReadFrame() (*relay.Frame, error) {
	for {
		if len(t.queue) > 0 {
			f := t.queue[0]
			t.queue = t.queue[1:]
			return f, nil
		}
		resp, err := t.http.Get(t.base + "/api/relay/poll/" + t.sessionID)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("poll: status %d", resp.StatusCode)
		}
		var frames []*relay.Frame
		err = json.NewDecoder(resp.Body).Decode(&frames)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode poll frames: %w", err)
		}
		t.queue = frames
	}
}

func (t *pollTransport) Close() error {
	req, err := http.NewRequest(http.MethodDelete, t.base+"/api/relay/poll/"+t.sessionID, nil)
	if err != nil {
		return err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}
