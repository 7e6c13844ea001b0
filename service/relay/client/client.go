package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"RelayProject/logger"
	"RelayProject/service/relay"
	"RelayProject/tools/errs"
)

// 原实现的重连参数：10 次封顶，延迟 1s 起倍增到 5s 封顶
const (
	defaultMaxAttempts = 10
	defaultDelayMin    = 1 * time.Second
	defaultDelayMax    = 5 * time.Second
	defaultDialTimeout = 30 * time.Second
)

var (
	ErrNotConnected = errs.ErrTransportFault.WithDetail("not connected")
	ErrMaxAttempts  = errs.ErrTransportFault.WithDetail("reconnect attempts exhausted")
)

type Config struct {
	URL         string // http(s)://host:port
	MaxAttempts int
	DelayMin    time.Duration
	DelayMax    time.Duration
	DialTimeout time.Duration
}

func (c *Config) norm() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.DelayMin <= 0 {
		c.DelayMin = defaultDelayMin
	}
	if c.DelayMax < c.DelayMin {
		c.DelayMax = defaultDelayMax
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
}

type Handler func(data any)

// Client 客户端侧的连接管理：传输协商 + 有界退避重连。
// 断线期间 Emit 直接报错，什么都不缓存——调用方要么先查连通性，要么接受丢失。
type Client struct {
	conf Config

	mu       sync.Mutex
	conn     transportConn
	policy   transportPolicy
	handlers map[string]Handler

	lastUserID string
	lastRole   string

	closed atomic.Bool
}

func New(conf Config) *Client {
	conf.norm()
	return &Client{
		conf:     conf,
		policy:   newTransportPolicy(),
		handlers: make(map[string]Handler),
	}
}

// On 注册入站事件处理器；需在 Connect 之前调用
func (c *Client) On(event string, h Handler) {
	c.mu.Lock()
	c.handlers[event] = h
	c.mu.Unlock()
}

// Connect 按退避策略尝试建立连接，耗尽次数后返回 ErrMaxAttempts。
// 成功后启动读循环；读循环断开时自动重连并重发 register。
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dialLoop(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	go c.readLoop(conn)
	return nil
}

// Register 记住身份并发送 register 帧；每次重连成功后会自动重发
func (c *Client) Register(userID, role string) error {
	c.mu.Lock()
	c.lastUserID, c.lastRole = userID, role
	c.mu.Unlock()
	return c.Emit(relay.EventRegister, relay.RegisterPayload{UserID: userID, Role: role})
}

func (c *Client) Emit(event string, data any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.WriteFrame(&relay.Frame{Event: event, Data: data})
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Close() {
	c.closed.Store(true)
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// ===== 内部 =====

func (c *Client) dialLoop(ctx context.Context) (transportConn, error) {
	// 新一轮重连：两种传输全部重新启用
	c.mu.Lock()
	c.policy.onReconnectAttempt()
	c.mu.Unlock()

	delay := c.conf.DelayMin
	for attempt := 1; attempt <= c.conf.MaxAttempts; attempt++ {
		c.mu.Lock()
		mode := c.policy.pick()
		c.mu.Unlock()

		conn, err := c.dial(ctx, mode)
		if err == nil {
			logger.Infof("[Client] connected transport=%s attempt=%d", mode, attempt)
			return conn, nil
		}
		logger.Warnf("[Client] connect failed transport=%s attempt=%d err=%v", mode, attempt, err)

		// 连接错误：切到未使用的那一种传输
		c.mu.Lock()
		c.policy.onError()
		c.mu.Unlock()

		if attempt == c.conf.MaxAttempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay = nextDelay(delay, c.conf.DelayMax)
	}
	return nil, ErrMaxAttempts
}

func nextDelay(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func (c *Client) dial(ctx context.Context, mode Transport) (transportConn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.conf.DialTimeout)
	defer cancel()
	if mode == TransportWebSocket {
		return dialWebSocket(dctx, c.conf.URL, c.conf.DialTimeout)
	}
	return dialPolling(dctx, c.conf.URL, c.conf.DialTimeout)
}

func (c *Client) readLoop(conn transportConn) {
	for {
		f, err := conn.ReadFrame()
		if err != nil {
			if c.closed.Load() {
				return
			}
			logger.Infof("[Client] read failed, reconnecting: %v", err)
			c.reconnect()
			return
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f *relay.Frame) {
	c.mu.Lock()
	h := c.handlers[f.Event]
	c.mu.Unlock()
	if h == nil {
		logger.Debug("[Client] no handler for event " + f.Event)
		return
	}
	h(f.Data)
}

func (c *Client) reconnect() {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	userID, role := c.lastUserID, c.lastRole
	c.mu.Unlock()

	conn, err := c.dialLoop(context.Background())
	if err != nil {
		logger.Errorf("[Client] reconnect failed: %v", err)
		return
	}
	// Close 可能在重拨期间落地；关停赢了就丢弃新连接
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	// 注册表对断线前的身份没有记忆，重连后必须重发 register
	if userID != "" {
		if err := c.Emit(relay.EventRegister, relay.RegisterPayload{UserID: userID, Role: role}); err != nil {
			logger.Warnf("[Client] re-register failed: %v", err)
		}
	}
	go c.readLoop(conn)
}
