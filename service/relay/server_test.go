package relay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := NewRegistry(Config{SweepEvery: time.Hour})
	t.Cleanup(reg.Close)
	rt := NewRouter(reg, Hooks{})
	srv := NewServer(rt, ServerConf{PollWait: 200 * time.Millisecond})
	t.Cleanup(srv.Close)

	r := gin.New()
	srv.RegisterRoutes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	u := strings.Replace(ts.URL, "http", "ws", 1) + "/api/relay/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func wsSend(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	f := &Frame{Event: event, Data: data}
	b, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatal(err)
	}
}

func wsRead(t *testing.T, conn *websocket.Conn) *Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	f, err := ParseFrameJSON(data)
	if err != nil {
		t.Fatalf("parse %q: %v", data, err)
	}
	return f
}

func TestWSNoAdminAvailable(t *testing.T) {
	ts := newTestServer(t)
	conn := dialWS(t, ts)

	wsSend(t, conn, EventRegister, RegisterPayload{UserID: "u1", Role: RoleUser})
	wsSend(t, conn, "userRegister", map[string]any{"userId": "u1", "message": "hi"})

	f := wsRead(t, conn)
	if f.Event != EventMessageSent {
		t.Fatalf("event = %s", f.Event)
	}
	m := f.Data.(map[string]any)
	if m["success"] != false || m["error"] != ErrMsgNoAdminAvailable {
		t.Errorf("ack = %v", m)
	}
}

func TestWSUserToAdminEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	admin := dialWS(t, ts)
	user := dialWS(t, ts)

	wsSend(t, admin, EventRegister, RegisterPayload{UserID: "admin1", Role: RoleAdmin})
	wsSend(t, user, EventRegister, RegisterPayload{UserID: "u1", Role: RoleUser})

	// register 没有回执，直接给一小段时间让两条注册先落地
	time.Sleep(50 * time.Millisecond)

	wsSend(t, user, "userVerify", map[string]any{"userId": "u1", "message": "code-1234"})

	got := wsRead(t, admin)
	if got.Event != EventReceiveMessage || got.Data != "code-1234" {
		t.Errorf("admin got %+v", got)
	}
	ack := wsRead(t, user)
	if ack.Event != EventMessageSent {
		t.Fatalf("user got %s", ack.Event)
	}
	if m := ack.Data.(map[string]any); m["success"] != true {
		t.Errorf("ack = %v", m)
	}
}

func TestPollLifecycle(t *testing.T) {
	ts := newTestServer(t)
	hc := ts.Client()

	// 开会话
	resp, err := hc.Post(ts.URL+"/api/relay/poll", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var opened struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&opened); err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if opened.SessionID == "" {
		t.Fatal("empty session id")
	}

	// 入站：注册 + 一条请求族事件
	frames := []*Frame{
		{Event: EventRegister, Data: map[string]any{"userId": "u1", "role": RoleUser}},
		{Event: "depositRequest", Data: map[string]any{"amount": 5}},
	}
	body, _ := json.Marshal(frames)
	resp, err = hc.Post(ts.URL+"/api/relay/poll/"+opened.SessionID, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("emit status = %d", resp.StatusCode)
	}

	// 出站：回显 + 回执
	resp, err = hc.Get(ts.URL + "/api/relay/poll/" + opened.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	var out []*Frame
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if len(out) != 2 {
		t.Fatalf("polled %d frames: %+v", len(out), out)
	}
	if out[0].Event != "depositRecieve" {
		t.Errorf("echo event = %s", out[0].Event)
	}
	if out[1].Event != "depositRequestAck" {
		t.Errorf("ack event = %s", out[1].Event)
	}

	// 关会话后再访问 => 404
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/relay/poll/"+opened.SessionID, nil)
	resp, err = hc.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	resp, err = hc.Get(ts.URL + "/api/relay/poll/" + opened.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status after close = %d, want 404", resp.StatusCode)
	}
}

func TestPollUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.Client().Get(ts.URL + "/api/relay/poll/nope")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
