// Package viewserver 是视图与宿主之间的本地 HTTP 服务：页面、媒体文件、缩略图、元数据与 websocket 消息通道。
package viewserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/John-Robertt/imgutils/internal/app/host"
	"github.com/John-Robertt/imgutils/internal/app/planner"
	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/infra/imgx"
	"github.com/John-Robertt/imgutils/internal/message"
	"github.com/John-Robertt/imgutils/internal/view"
	"github.com/John-Robertt/imgutils/internal/viewer"
)

// Backend 是一个打开的视图在宿主侧的实现（host.Workspace）。
type Backend interface {
	Kind() view.Kind
	Dirs() []string
	Page() (view.Page, error)
	Total() int
	Playback() (intervalMs int, repeat bool)

	Resolve(side, name string) (string, error)
	Thumb(side, name string) ([]byte, error)
	Meta(side, name string) (imgx.Info, error)

	PlanRename(opts planner.Options) ([]domain.RenameEntry, error)
	ExecuteRename(ctx context.Context, list []domain.RenameEntry) (host.RenameResult, error)
}

// Options 控制服务器行为；零值可用。
type Options struct {
	// Addr 是监听地址；端口为 0 时由系统分配。
	Addr string
	// ConfirmTimeout 是等待视图确认重命名的最长时间，默认 2 分钟。
	ConfirmTimeout time.Duration
	// Debounce 是目录变化到推送 reload 的合并窗口，默认 300ms；小于 0 表示不监听目录。
	Debounce time.Duration

	// Clock 传给每个查看会话（测试用）。
	Clock  viewer.Clock
	Logger *slog.Logger
}

// Server 是视图服务器。New 之后 Start，结束时 Shutdown。
type Server struct {
	backend Backend
	opts    Options
	log     *slog.Logger
	hub     *hub

	// base 是重命名执行使用的上下文：连接断开不打断正在执行的批次。
	base   context.Context
	cancel context.CancelFunc

	httpServer *http.Server
	ln         net.Listener
	watch      *watcher
	errCh      chan error

	mu     sync.Mutex
	closed bool
}

func New(b Backend, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 2 * time.Minute
	}
	if opts.Debounce == 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		backend: b,
		opts:    opts,
		log:     log.With("component", "viewserver"),
		hub:     newHub(),
		base:    base,
		cancel:  cancel,
		errCh:   make(chan error, 1),
	}
	s.httpServer = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler 返回全部路由（不含 h2c 包装，便于 httptest 使用）。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.Handle("GET /static/", http.StripPrefix("/static/", view.Static()))
	mux.HandleFunc("GET /media/{side}/{name}", s.handleMedia)
	mux.HandleFunc("GET /thumb/{side}/{name}", s.handleThumb)
	mux.HandleFunc("GET /meta/{side}/{name}", s.handleMeta)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Start 开始监听并在后台提供服务；目录监听失败只记日志。
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败：%w", s.opts.Addr, err)
	}
	s.ln = ln
	s.log.Info("starting view server", "addr", ln.Addr().String(), "kind", string(s.backend.Kind()))

	if s.opts.Debounce > 0 {
		w, err := watchDirs(s.backend.Dirs(), s.opts.Debounce, s.reload, s.log)
		if err != nil {
			s.log.Warn("folder watcher not available", "err", err)
		} else {
			s.watch = w
		}
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()
	return nil
}

// URL 返回浏览器访问地址；Start 之前为空。
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String() + "/"
}

// Err 在服务异常退出时收到错误；正常 Shutdown 后关闭。
func (s *Server) Err() <-chan error { return s.errCh }

// Shutdown 停止目录监听、断开所有 websocket 连接并关闭 HTTP 服务。
// 返回前每个连接的查看会话都已关闭（ctx 先结束时返回 ctx 的错误）。
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.watch != nil {
		s.watch.Close()
	}
	err := s.hub.shutdown(ctx)
	if herr := s.httpServer.Shutdown(ctx); err == nil {
		err = herr
	}
	s.cancel()
	return err
}

// reload 通知所有连接重新加载页面。
func (s *Server) reload() {
	n := s.hub.broadcast(message.Reload())
	s.log.Debug("reload pushed", "conns", n)
}
