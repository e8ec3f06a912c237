package viewserver

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/John-Robertt/imgutils/internal/app/host"
	"github.com/John-Robertt/imgutils/internal/app/planner"
	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/message"
	"github.com/John-Robertt/imgutils/internal/view"
	"github.com/John-Robertt/imgutils/internal/viewer"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

// 默认的 CheckOrigin 只接受与 Host 同源的请求（或不带 Origin 的客户端）。
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// conn 是一个 websocket 连接：读循环处理命令，写 goroutine 独占写端。
// 每个连接最多持有一个查看会话。
type conn struct {
	srv *Server
	ws  *websocket.Conn
	out chan message.Outbound

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	session  *viewer.Session
	interval int
	repeat   bool
	pending  map[string]chan bool
	seq      int
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	interval, repeat := s.backend.Playback()
	c := &conn{
		srv:      s,
		ws:       ws,
		out:      make(chan message.Outbound, 32),
		ctx:      ctx,
		cancel:   cancel,
		interval: interval,
		repeat:   repeat,
		pending:  make(map[string]chan bool),
	}

	if err := ws.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		s.log.Warn("ws set read deadline failed", "err", err)
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	if !s.hub.add(c) {
		return
	}
	defer s.hub.remove(c)

	writerDone := make(chan struct{})
	go c.writeLoop(writerDone)
	defer c.closeSession()

	if s.backend.Kind() == view.KindCompare {
		c.openSession(0)
	}

	for {
		_, b, err := ws.ReadMessage()
		if err != nil {
			cancel()
			<-writerDone
			return
		}
		in, err := message.Decode(b)
		if err != nil {
			c.push(message.Error("无法识别的消息：" + err.Error()))
			continue
		}
		c.handle(in)
	}
}

func (c *conn) writeLoop(done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case out := <-c.out:
			if err := c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := c.ws.WriteJSON(out); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// push 不阻塞：队列满时丢弃最旧的一条。state 消息总是完整状态，丢掉旧的不影响结果。
func (c *conn) push(out message.Outbound) {
	select {
	case c.out <- out:
		return
	default:
	}
	select {
	case <-c.out:
	default:
	}
	select {
	case c.out <- out:
	default:
	}
}

// close 断开连接；读循环随之退出并清理会话。
func (c *conn) close() {
	c.cancel()
	_ = c.ws.Close()
}

func (c *conn) handle(in message.Inbound) {
	switch m := in.(type) {
	case message.Alert:
		c.srv.log.Warn("view alert", "text", m.Text)
		c.push(message.Error(m.Text))
	case message.PlanRename:
		plan, err := c.srv.backend.PlanRename(planner.Options{
			Prefix:  m.Prefix,
			Postfix: m.Postfix,
			Padding: m.Padding,
			Order:   domain.SortOrder(m.Order),
			Start:   m.Start,
		})
		c.push(message.PlanOf(plan, err))
	case message.ExecuteRename:
		go c.executeRename(m)
	case message.ConfirmReply:
		c.mu.Lock()
		ch, ok := c.pending[m.ID]
		delete(c.pending, m.ID)
		c.mu.Unlock()
		if ok {
			ch <- m.Accepted
		}
	case message.OpenFullscreen:
		c.openSession(m.Index)
	case message.CloseFullscreen:
		c.closeSession()
	default:
		c.viewerCommand(in)
	}
}

// viewerCommand 把播放/缩放命令交给当前会话；状态变化经 OnChange 推送。
func (c *conn) viewerCommand(in message.Inbound) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return
	}

	switch m := in.(type) {
	case message.Next:
		s.Next()
	case message.Prev:
		s.Prev()
	case message.Seek:
		s.SeekTo(m.Index)
	case message.Play:
		s.Play()
	case message.Pause:
		s.Pause()
	case message.Toggle:
		s.Toggle()
	case message.ToggleRepeat:
		s.ToggleRepeat()
	case message.SetRepeat:
		s.SetRepeat(m.Repeat)
	case message.SetInterval:
		if _, err := s.SetInterval(m.IntervalMs); err != nil {
			c.push(message.Error(err.Error()))
		}
	case message.Drag:
		s.Drag(m.DX, m.DY)
	case message.Wheel:
		s.Wheel(m.DeltaY)
	}
}

// openSession 以当前列表的条目数打开查看会话（替换已有会话），并推送初始状态。
func (c *conn) openSession(index int) {
	c.closeSession()

	c.mu.Lock()
	interval, repeat := c.interval, c.repeat
	c.mu.Unlock()

	s, err := viewer.Open(c.srv.backend.Total(), viewer.Options{
		IntervalMs: interval,
		Repeat:     repeat,
		Clock:      c.srv.opts.Clock,
		OnChange:   c.onChange,
	})
	if err != nil {
		c.push(message.Error(err.Error()))
		return
	}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.push(message.StateOf(s.SeekTo(index)))
}

// onChange 在会话 goroutine 中调用：只推送消息并记住用户选择的间隔/循环。
func (c *conn) onChange(st viewer.State) {
	if st.Phase != viewer.PhaseIdle {
		c.mu.Lock()
		c.interval, c.repeat = st.IntervalMs, st.Repeat
		c.mu.Unlock()
	}
	c.push(message.StateOf(st))
}

func (c *conn) closeSession() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// executeRename 先向视图请求确认，确认后执行。拒绝或超时什么都不做。
func (c *conn) executeRename(m message.ExecuteRename) {
	if len(m.RenameList) == 0 {
		c.push(message.Error("没有需要重命名的文件"))
		return
	}

	c.mu.Lock()
	c.seq++
	id := "confirm-" + strconv.Itoa(c.seq)
	reply := make(chan bool, 1)
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.push(message.Confirm(id, host.ConfirmText(len(m.RenameList), m.ConfirmMessage)))

	timer := time.NewTimer(c.srv.opts.ConfirmTimeout)
	defer timer.Stop()
	select {
	case ok := <-reply:
		if !ok {
			return
		}
	case <-timer.C:
		c.push(message.Info("确认超时，已取消重命名"))
		return
	case <-c.ctx.Done():
		return
	}

	res, err := c.srv.backend.ExecuteRename(c.srv.base, m.RenameList)
	if err != nil {
		c.push(message.Error("重命名失败：" + err.Error()))
		return
	}
	if res.Failed {
		c.push(message.Error(res.Message))
	} else {
		c.push(message.Info(res.Message))
	}
	c.srv.log.Info("rename done", "renamed", res.Report.Summary.Renamed, "failed", res.Report.Summary.Failed, "report", res.ReportPath)
	// 目录监听开着时由它推送 reload。
	if c.srv.watch == nil {
		c.srv.reload()
	}
}
