package relay

import (
	"RelayProject/logger"
	"RelayProject/tools/decode"
	"RelayProject/tools/errs"
)

// Hooks 注册/下线/投递的旁路回调；全部可为 nil。
// 回调失败不影响路由结果（presence 镜像、审计流水都只是旁路）。
type Hooks struct {
	OnRegister   func(userID, sessionID, role string)
	OnDisconnect func(userID, sessionID string)
	OnDeliver    func(from, to, event string, payload any)
}

// Router 无状态路由：入站帧 + 注册表 => 目的会话 + 回执。
// 任何一帧的失败都被限制在这一帧之内，发送方会话保持打开。
type Router struct {
	reg   *Registry
	hooks Hooks
}

func NewRouter(reg *Registry, hooks Hooks) *Router {
	return &Router{reg: reg, hooks: hooks}
}

func (rt *Router) HandleFrame(sess Session, f *Frame) {
	if f == nil || sess == nil {
		return
	}
	switch {
	case f.Event == EventRegister:
		rt.handleRegister(sess, f)
	case f.Event == EventDisconnect:
		rt.HandleDisconnect(sess, "client disconnect")
	case IsUserToAdminEvent(f.Event):
		rt.handleDirected(sess, f, true)
	case IsAdminToUserEvent(f.Event):
		rt.handleDirected(sess, f, false)
	case IsRequestEvent(f.Event):
		rt.handleRequest(sess, f)
	default:
		logger.Infof("[Router] no handler for event=%s session=%s", f.Event, sess.ID())
	}
}

func (rt *Router) handleRegister(sess Session, f *Frame) {
	p, err := decode.DecodePayload[RegisterPayload](f.Data)
	if err != nil || p.UserID == "" {
		logger.Warnf("[Router] bad register payload session=%s err=%v", sess.ID(), err)
		return
	}
	rt.reg.Register(sess.ID(), p.UserID, p.Role, sess)
	logger.Infof("[Router] registered user=%s role=%s session=%s", p.UserID, p.Role, sess.ID())
	if rt.hooks.OnRegister != nil {
		rt.hooks.OnRegister(p.UserID, sess.ID(), p.Role)
	}
}

// HandleDisconnect 由 disconnect 事件或传输层读循环退出触发
func (rt *Router) HandleDisconnect(sess Session, reason string) {
	userID := ""
	if c, ok := rt.reg.GetBySession(sess.ID()); ok {
		userID = c.UserID
	}
	rt.reg.Remove(sess.ID())
	logger.Infof("[Router] disconnected session=%s user=%s reason=%s", sess.ID(), userID, reason)
	if userID != "" && rt.hooks.OnDisconnect != nil {
		rt.hooks.OnDisconnect(userID, sess.ID())
	}
}

// 定向路由：user 发给"那个" admin，admin 按 receiveuserId 发给指定 user。
// 找不到目的方只是给发送方一个失败回执，什么都不排队。
func (rt *Router) handleDirected(sess Session, f *Frame, toAdmin bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[Router] panic in %s: %v", f.Event, errs.ErrPanic(r))
			rt.ack(sess, EventMessageSent, AckPayload{Success: false, Error: ErrMsgInternalServer})
		}
	}()

	var (
		dest    *Conn
		ok      bool
		failMsg string
		message any
		from    string
	)
	if toAdmin {
		p, err := decode.DecodePayload[UserMessagePayload](f.Data)
		if err != nil {
			rt.ack(sess, EventMessageSent, AckPayload{Success: false, Error: ErrMsgInternalServer})
			return
		}
		message, from = p.Message, p.UserID
		dest, ok = rt.reg.FindAdmin()
		failMsg = ErrMsgNoAdminAvailable
	} else {
		p, err := decode.DecodePayload[AdminMessagePayload](f.Data)
		if err != nil {
			rt.ack(sess, EventMessageSent, AckPayload{Success: false, Error: ErrMsgInternalServer})
			return
		}
		message = p.Message
		dest, ok = rt.reg.FindByUser(p.ReceiveUserID)
		failMsg = ErrMsgUserNotFound
		// admin 的负载里没有自己的身份，从注册表反查作为流水的 from
		if sender, found := rt.reg.GetBySession(sess.ID()); found {
			from = sender.UserID
		}
	}

	if !ok {
		rt.ack(sess, EventMessageSent, AckPayload{Success: false, Error: failMsg})
		return
	}

	// 传输层的发送失败只记日志：发送方只有本地回执，没有端到端送达回执，
	// 已死的目的方会在下一次查找时走"找不到"的路径。
	if err := dest.Sess.Send(EventReceiveMessage, message); err != nil {
		logger.Infof("[Router] forward %s to session=%s failed: %v", f.Event, dest.SessionID, err)
	}
	if rt.hooks.OnDeliver != nil {
		rt.hooks.OnDeliver(from, dest.UserID, f.Event, message)
	}
	rt.ack(sess, EventMessageSent, AckPayload{Success: true})
}

// 请求/回执族：负载原样回显给发送方自己，事件名做确定性变换，
// 再补一条 <event>Ack。收件人就是发送方，不存在"找不到"。
func (rt *Router) handleRequest(sess Session, f *Frame) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[Router] panic in %s: %v", f.Event, errs.ErrPanic(r))
			rt.ack(sess, f.Event+AckSuffix, AckPayload{Success: false, Error: ErrMsgInternalServer})
		}
	}()

	resp := TransformRequestName(f.Event)
	if err := sess.Send(resp, f.Data); err != nil {
		logger.Infof("[Router] echo %s failed session=%s: %v", resp, sess.ID(), err)
	}
	rt.ack(sess, f.Event+AckSuffix, AckPayload{Success: true})
}

func (rt *Router) ack(sess Session, event string, p AckPayload) {
	if err := sess.Send(event, p); err != nil {
		logger.Infof("[Router] ack %s failed session=%s: %v", event, sess.ID(), err)
	}
}
