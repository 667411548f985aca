package chat

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/streamverse/realtime-gateway/logger"
	"github.com/streamverse/realtime-gateway/middleware"
	errs "github.com/streamverse/realtime-gateway/tools/errs"
	"github.com/streamverse/realtime-gateway/tools/ids"
	"github.com/streamverse/realtime-gateway/tools/security"
)

// Options 网关运行参数。确切阈值是部署配置，见 global 包的默认值。
type Options struct {
	GatewayID      string
	JWTSecret      []byte
	AllowedOrigins []string

	AuthTimeout  time.Duration // Authenticating 态超时
	PingInterval time.Duration
	IdleTimeout  time.Duration // 读 deadline，pong/业务帧都会续期
	WriteTimeout time.Duration

	SendQueueSize int
	MaxBodyBytes  int
	RateBurst     int
	RateInterval  time.Duration
	MaxViolations int
	MaxQueueDrops int
}

func (o *Options) norm() {
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 3 * o.PingInterval
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 32
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 2000
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 100
	}
	if o.RateInterval <= 0 {
		o.RateInterval = time.Second
	}
	if o.MaxViolations <= 0 {
		o.MaxViolations = 10
	}
	if o.MaxQueueDrops <= 0 {
		o.MaxQueueDrops = 50
	}
}

// Server 网关本体：升级连接、走认证握手、再把连接交给读写协程。
type Server struct {
	opts     Options
	upgrader websocket.Upgrader
	jwtOpts  security.Options

	reg    *Registry
	rooms  *RoomIndex
	router *Router
	sink   *SinkDispatcher

	closed   chan struct{}
	shutOnce sync.Once
	wg       sync.WaitGroup
}

func NewServer(opts Options, sink *SinkDispatcher) *Server {
	opts.norm()
	s := &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     middleware.CheckOrigin(opts.AllowedOrigins),
		},
		jwtOpts: security.DefaultOptions(opts.JWTSecret),
		reg:     NewRegistry(),
		sink:    sink,
		closed:  make(chan struct{}),
	}
	s.rooms = NewRoomIndex(sink)
	s.router = NewRouter(s.reg, s.rooms, opts.MaxBodyBytes, sink)
	return s
}

func (s *Server) Registry() *Registry { return s.reg }

func (s *Server) Rooms() *RoomIndex { return s.rooms }

func (s *Server) Router() *Router { return s.router }

// Stats 活跃连接数 / 房间数 / 房间成员总数
func (s *Server) Stats() (conns, rooms, members int) {
	rooms, members = s.rooms.Stats()
	return s.reg.Count(), rooms, members
}

// HandleWS GET /ws 的 gin 处理器
func (s *Server) HandleWS(c *gin.Context) {
	select {
	case <-s.closed:
		c.String(http.StatusServiceUnavailable, "shutting down")
		return
	default:
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 非 WebSocket 请求 / Origin 被拒 / 握手失败
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	cl := newClient(
		ids.GenerateString(), ws,
		s.opts.SendQueueSize,
		newRateLimiter(s.opts.RateBurst, s.opts.RateInterval),
		s.opts.MaxQueueDrops,
	)
	cl.setState(StateAuthenticating)

	ident, aerr := s.handshake(c.Request, ws)
	if aerr != nil {
		s.rejectAuth(ws, cl, aerr)
		return
	}

	// 注册表/房间状态只在认证成功后才创建
	cl.userID = ident.UserID
	cl.setState(StateAuthenticated)
	s.reg.Register(cl)
	s.sink.Online(cl.userID, cl.ConnID)
	cl.enqueue(BuildAuthOK(cl.userID, s.opts.PingInterval))

	logger.Infof("[ws] authenticated conn=%s user=%s remote=%s", cl.ConnID, cl.userID, ws.RemoteAddr())

	s.startWriter(cl)
	s.readLoop(cl)
	s.teardown(cl)
}

// handshake 提取并校验 bearer token。
// 优先取升级请求本身（Authorization 头 / token 查询参数），
// 否则等第一条 auth 帧，限时 AuthTimeout。
func (s *Server) handshake(r *http.Request, ws *websocket.Conn) (*security.Identity, error) {
	if tok := bearerToken(r); tok != "" {
		return security.Verify(s.jwtOpts, tok)
	}

	_ = ws.SetReadDeadline(time.Now().Add(s.opts.AuthTimeout))
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, errs.ErrAuthTimeout
			}
			return nil, errs.ErrTransport.WithDetail(err.Error())
		}
		f, perr := ParseFrame(raw)
		if perr != nil || f.Type != FrameAuth {
			// 认证完成前的其它帧一律丢弃
			continue
		}
		return security.Verify(s.jwtOpts, f.Token)
	}
}

func (s *Server) rejectAuth(ws *websocket.Conn, cl *Client, aerr error) {
	cl.setState(StateDisconnected)
	reason := errs.AuthReason(aerr)
	if ce := errs.AsCode(aerr); ce == nil || ce.Code != errs.ErrTransport.Code {
		deadline := time.Now().Add(s.opts.WriteTimeout)
		_ = ws.SetWriteDeadline(deadline)
		_ = ws.WriteMessage(websocket.TextMessage, BuildAuthError(reason))
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	}
	_ = ws.Close()
	logger.Infof("[ws] auth rejected conn=%s reason=%s err=%v", cl.ConnID, reason, aerr)
}

// readLoop 只读不写；任何退出路径都走同一个 teardown
func (s *Server) readLoop(cl *Client) {
	ws := cl.ws
	ws.SetReadLimit(int64(s.opts.MaxBodyBytes) + 512)
	refresh := func() { _ = ws.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout)) }
	refresh()
	ws.SetPongHandler(func(string) error {
		refresh()
		s.sink.Touch(cl.userID, cl.ConnID)
		return nil
	})

	for {
		mt, raw, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s user=%s", cl.ConnID, cl.userID)
			} else {
				var ne net.Error
				if errors.As(rerr, &ne) && ne.Timeout() {
					logger.Infof("[ws] idle timeout conn=%s user=%s", cl.ConnID, cl.userID)
				} else {
					logger.Infof("[ws] read err conn=%s user=%s err=%v", cl.ConnID, cl.userID, rerr)
				}
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		refresh()

		f, perr := ParseFrame(raw)
		if perr != nil {
			if s.violation(cl, perr) {
				return
			}
			continue
		}

		switch f.Type {
		case FrameJoin:
			if f.RoomID == "" {
				if s.violation(cl, errs.ErrFrameMalformed.WithDetail("join without roomId")) {
					return
				}
				continue
			}
			s.rooms.Join(f.RoomID, cl)

		case FrameLeave:
			if f.RoomID == "" {
				if s.violation(cl, errs.ErrFrameMalformed.WithDetail("leave without roomId")) {
					return
				}
				continue
			}
			s.rooms.Leave(f.RoomID, cl)

		case FrameChat:
			if rerr := s.router.Route(cl.ConnID, f.RoomID, f.Body); rerr != nil {
				if errors.Is(rerr, errs.ErrBodyTooLarge) {
					if s.violation(cl, rerr) {
						return
					}
				}
				// 限流丢弃不算违规：对发送方保持静默
			}

		case FrameAuth:
			// 已认证连接重复发 auth 视为违规
			if s.violation(cl, errs.ErrUnknownAction.WithDetail("auth after authenticated")) {
				return
			}
		}
	}
}

// violation 协议违规计数；超阈值返回 true，连接该断了
func (s *Server) violation(cl *Client, cause error) bool {
	n := cl.violations.Add(1)
	logger.Debugf("[ws] protocol violation conn=%s n=%d cause=%v", cl.ConnID, n, cause)
	if int(n) >= s.opts.MaxViolations {
		logger.Infof("[ws] violation threshold reached conn=%s user=%s", cl.ConnID, cl.userID)
		return true
	}
	return false
}

// teardown 单次执行：离开全部房间、摘除注册表、下线 presence、关底层连接。
// 读错误与写错误可能并发触发，Once 保证只收尾一遍。
func (s *Server) teardown(cl *Client) {
	cl.downOnce.Do(func() {
		cl.setState(StateDisconnected)
		s.rooms.LeaveAll(cl)
		s.reg.Remove(cl.ConnID)
		if cl.userID != "" {
			s.sink.Offline(cl.userID, cl.ConnID)
		}
		close(cl.done)
		_ = cl.ws.Close()
		logger.Infof("[ws] closed conn=%s user=%s", cl.ConnID, cl.userID)
	})
}

// Shutdown 拒绝新连接并强制断开存量连接，限时等待 handler 协程退出
func (s *Server) Shutdown(timeout time.Duration) error {
	s.shutOnce.Do(func() { close(s.closed) })
	for _, cl := range s.reg.Snapshot() {
		s.teardown(cl)
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

func bearerToken(r *http.Request) string {
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
