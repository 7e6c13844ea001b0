package relay

import (
	"sync"
	"time"
)

// ===== 配置 =====

type Config struct {
	SweepEvery time.Duration    // 清理周期（生产 15s，其他 30s）
	Clock      func() time.Time // 可注入时钟（单测用）；nil => time.Now
}

func (c *Config) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 30 * time.Second
	}
}

// ===== 数据结构 =====

// Conn 一个在线参与方
type Conn struct {
	SessionID   string // 传输层分配，重连后会变
	UserID      string // 调用方自报，不校验
	Role        string // user / admin，按给定值信任
	Sess        Session
	ConnectedAt time.Time
}

// Registry 进程内唯一的在线目录。
// 单写者：所有读写都经这把锁，路由只信这里的结果。
type Registry struct {
	mu        sync.RWMutex
	bySession map[string]*Conn  // 主索引：sessionID -> Conn
	byUser    map[string]string // 辅助索引：userID -> sessionID，每用户至多一条
	admins    []string          // admin 的 sessionID，按注册顺序

	conf     Config
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewRegistry(conf Config) *Registry {
	conf.norm()
	r := &Registry{
		bySession: make(map[string]*Conn),
		byUser:    make(map[string]string),
		conf:      conf,
		stopCh:    make(chan struct{}),
	}
	go r.sweeper()
	return r
}

func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Register last-register-wins：同 userID 的旧会话只是失去路由，
// 不主动关闭底层连接。重复的相同注册是幂等的。
func (r *Registry) Register(sessionID, userID, role string, sess Session) {
	if sessionID == "" || sess == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok && old != sessionID {
		r.removeLocked(old)
	}
	if _, ok := r.bySession[sessionID]; ok {
		// 同一物理会话换身份重新注册
		r.removeLocked(sessionID)
	}

	c := &Conn{
		SessionID:   sessionID,
		UserID:      userID,
		Role:        role,
		Sess:        sess,
		ConnectedAt: r.conf.Clock(),
	}
	r.bySession[sessionID] = c
	r.byUser[userID] = sessionID
	if role == RoleAdmin {
		r.admins = append(r.admins, sessionID)
	}
}

// FindByUser 返回该用户最近一次注册的会话
func (r *Registry) FindByUser(userID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	c, ok := r.bySession[sid]
	return c, ok
}

// FindAdmin 返回最早注册的 admin；没有 admin 在线时返回 false。
func (r *Registry) FindAdmin() (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sid := range r.admins {
		if c, ok := r.bySession[sid]; ok {
			return c, true
		}
	}
	return nil, false
}

// GetBySession 按 sessionID 查
func (r *Registry) GetBySession(sessionID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.bySession[sessionID]
	return c, ok
}

// Remove 删除该会话的条目；不存在则无事发生
func (r *Registry) Remove(sessionID string) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(sessionID)
}

// Sweep 清除底层会话已不在线的条目；漏掉 disconnect 通知时的兜底。
// 幂等：连续执行两次与一次效果相同。
func (r *Registry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid, c := range r.bySession {
		if !c.Sess.IsOpen() {
			r.removeLocked(sid)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySession)
}

// 需要在持锁状态下调用
func (r *Registry) removeLocked(sessionID string) {
	c, ok := r.bySession[sessionID]
	if !ok {
		return
	}
	delete(r.bySession, sessionID)
	if sid, ok := r.byUser[c.UserID]; ok && sid == sessionID {
		delete(r.byUser, c.UserID)
	}
	if c.Role == RoleAdmin {
		for i, sid := range r.admins {
			if sid == sessionID {
				r.admins = append(r.admins[:i], r.admins[i+1:]...)
				break
			}
		}
	}
}

// ===== 清理协程 =====

func (r *Registry) sweeper() {
	t := time.NewTicker(r.conf.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-t.C:
			r.Sweep()
		}
	}
}
