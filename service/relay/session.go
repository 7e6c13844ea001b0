package relay

// Session 一条活跃的逻辑连接，与传输模式无关。
// Send 不保证送达：会话已关闭或出站队列满时返回错误，
// 消息直接丢弃（at-most-once，不排队补发）。
type Session interface {
	ID() string
	Send(event string, data any) error
	IsOpen() bool
	Close(reason string)
	RemoteAddr() string
}
