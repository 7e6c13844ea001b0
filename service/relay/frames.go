package relay

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Frame 统一的事件帧：两种传输模式共用
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func ParseFrameJSON(raw []byte) (*Frame, error) {
	frame := &Frame{}
	if err := json.Unmarshal(raw, frame); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if frame.Event == "" {
		return nil, fmt.Errorf("frame has empty event name")
	}
	return frame, nil
}

func (f *Frame) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// ---- 事件名（线上契约，逐字保留，包括 "Recieve" 的拼写） ----

const (
	EventRegister       = "register"
	EventDisconnect     = "disconnect"
	EventReceiveMessage = "receiveMessage"
	EventMessageSent    = "messageSent"
	AckSuffix           = "Ack"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// 定向路由的错误文案
const (
	ErrMsgNoAdminAvailable = "No admin available"
	ErrMsgUserNotFound     = "User not found"
	ErrMsgInternalServer   = "Internal server error"
)

var userToAdminEvents = map[string]struct{}{
	"userRegister": {},
	"userVerify":   {},
}

var adminToUserEvents = map[string]struct{}{
	"adminRegister":     {},
	"adminLoginId":      {},
	"adminPasswordCode": {},
}

// RequestEvents 自回显请求族；收件人永远是发送方自己
var RequestEvents = []string{
	"registerRequest",
	"verifyRequest",
	"depositRequest",
	"withdrawalRequest",
	"selectAllIds",
	"selectIds",
	"selectHistoryAllIds",
	"selectHistoryIds",
	"selectWithdrawalAllIds",
	"selectWithdrawalIds",
	"selectWithdrawalHistoryAllIds",
	"selectWithdrawalHistoryIds",
	"selectCodeVerifyAllIds",
	"selectCodeVerifyIds",
	"selectRegisterAllIds",
	"selectRegisterIds",
}

var requestEventSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(RequestEvents))
	for _, name := range RequestEvents {
		m[name] = struct{}{}
	}
	return m
}()

func IsUserToAdminEvent(name string) bool {
	_, ok := userToAdminEvents[name]
	return ok
}

func IsAdminToUserEvent(name string) bool {
	_, ok := adminToUserEvents[name]
	return ok
}

func IsRequestEvent(name string) bool {
	_, ok := requestEventSet[name]
	return ok
}

// TransformRequestName 由入站事件名推导回显事件名：
// 后缀 "Request" 换成 "Recieve"，"…Ids" 归一为 "…MultiIds"，"…Id" 归一为 "…MultiId"。
// 已归一的名字原样返回，函数对自身幂等。
func TransformRequestName(name string) string {
	out := name
	if strings.HasSuffix(out, "Request") {
		out = strings.TrimSuffix(out, "Request") + "Recieve"
	}
	if strings.HasSuffix(out, "MultiIds") || strings.HasSuffix(out, "MultiId") {
		return out
	}
	if strings.HasSuffix(out, "Ids") {
		return strings.TrimSuffix(out, "Ids") + "MultiIds"
	}
	if strings.HasSuffix(out, "Id") {
		return strings.TrimSuffix(out, "Id") + "MultiId"
	}
	return out
}

// ---- 负载 ----

type RegisterPayload struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type UserMessagePayload struct {
	UserID  string `json:"userId"`
	Message any    `json:"message"`
}

type AdminMessagePayload struct {
	ReceiveUserID string `json:"receiveuserId"`
	Message       any    `json:"message"`
}

type AckPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
