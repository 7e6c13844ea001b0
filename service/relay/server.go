package relay

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"RelayProject/logger"
	"RelayProject/tools/ids"
	"RelayProject/tools/security"
)

var upgrader = websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(r *http.Request) bool { return true }}

type ServerConf struct {
	PollTTL   time.Duration      // 轮询会话的存活窗口
	PollWait  time.Duration      // 长轮询单次最长等待
	TokenOpts *security.Options  // 可选：握手时校验 Authorization 里的 JWT，只记日志不拦截
	Clock     func() time.Time
}

func (c *ServerConf) norm() {
	if c.PollTTL <= 0 {
		c.PollTTL = 45 * time.Second
	}
	if c.PollWait <= 0 {
		c.PollWait = 20 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Server HTTP 面：websocket 升级端点 + 长轮询端点。
// 两种模式产出同样的 Session，路由层不感知差别。
type Server struct {
	router *Router
	conf   ServerConf

	pollMu sync.Mutex
	polls  map[string]*pollSession

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewServer(router *Router, conf ServerConf) *Server {
	conf.norm()
	s := &Server{
		router: router,
		conf:   conf,
		polls:  make(map[string]*pollSession),
		stopCh: make(chan struct{}),
	}
	go s.pollJanitor()
	return s
}

func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/relay/ws", s.HandleWS)
	r.POST("/api/relay/poll", s.HandleOpenPoll)
	r.GET("/api/relay/poll/:id", s.HandlePoll)
	r.POST("/api/relay/poll/:id", s.HandleEmit)
	r.DELETE("/api/relay/poll/:id", s.HandleClosePoll)
}

// ===== WebSocket 模式 =====

func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	s.logHandshakeIdentity(c)

	sid := ids.GenerateString()
	sess := newWSSession(sid, ws)
	logger.Infof("[HandleWS] connected session=%s remote=%s", sid, sess.RemoteAddr())

	// ---- 读循环：只读，不写；出错即退出（写协程收尾） ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed session=%s err=%v", sid, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout session=%s err=%v", sid, rerr)
			} else {
				logger.Infof("[WS] read err session=%s err=%v", sid, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrameJSON(data)
		if perr != nil {
			// 只打印简短样本
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] ParseFrameJSON err session=%s err=%v sample=%q len=%d",
				sid, perr, sample, len(data))
			continue
		}

		s.router.HandleFrame(sess, frame)
	}

	// ---- 退出阶段：注销并关闭 ----
	sess.Close("read loop exit")
	s.router.HandleDisconnect(sess, "transport closed")
}

// 握手带了 Authorization 就校验并记录身份；注册表照旧信任 register 自报的身份。
func (s *Server) logHandshakeIdentity(c *gin.Context) {
	if s.conf.TokenOpts == nil {
		return
	}
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	claims, err := security.Verify(*s.conf.TokenOpts, token, "")
	if err != nil {
		logger.Warnf("[HandleWS] handshake token rejected: %v", err)
		return
	}
	if sub, err := claims.GetSubject(); err == nil {
		logger.Infof("[HandleWS] handshake token subject=%s", sub)
	}
}

// ===== 长轮询模式 =====

func (s *Server) HandleOpenPoll(c *gin.Context) {
	sid := ids.GenerateString()
	ps := newPollSession(sid, s.conf.PollTTL, s.conf.Clock)

	s.pollMu.Lock()
	s.polls[sid] = ps
	s.pollMu.Unlock()

	logger.Infof("[Poll] opened session=%s", sid)
	c.JSON(http.StatusOK, gin.H{"sessionId": sid})
}

func (s *Server) HandlePoll(c *gin.Context) {
	ps, ok := s.lookupPoll(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	frames := ps.Poll(c.Request.Context(), s.conf.PollWait)
	if frames == nil {
		frames = []*Frame{}
	}
	c.JSON(http.StatusOK, frames)
}

func (s *Server) HandleEmit(c *gin.Context) {
	ps, ok := s.lookupPoll(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	var frames []*Frame
	if err := c.ShouldBindJSON(&frames); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid frames"})
		return
	}
	ps.Touch()
	for _, f := range frames {
		if f == nil || f.Event == "" {
			continue
		}
		s.router.HandleFrame(ps, f)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) HandleClosePoll(c *gin.Context) {
	sid := c.Param("id")
	ps, ok := s.lookupPoll(sid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	s.router.HandleDisconnect(ps, "client close")
	ps.Close("client close")

	s.pollMu.Lock()
	delete(s.polls, sid)
	s.pollMu.Unlock()

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) lookupPoll(sid string) (*pollSession, bool) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	ps, ok := s.polls[sid]
	if !ok || !ps.IsOpen() {
		return nil, false
	}
	return ps, true
}

// 过期的轮询会话从传输层索引里收走；注册表那边由 Sweep 兜底。
func (s *Server) pollJanitor() {
	t := time.NewTicker(s.conf.PollTTL)
	defer t.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			s.pollMu.Lock()
			for sid, ps := range s.polls {
				if !ps.IsOpen() {
					delete(s.polls, sid)
				}
			}
			s.pollMu.Unlock()
		}
	}
}
