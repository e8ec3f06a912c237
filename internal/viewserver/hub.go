package viewserver

import (
	"context"
	"sync"

	"github.com/John-Robertt/imgutils/internal/message"
)

// hub 记录当前所有 websocket 连接，用于广播 reload，并在关闭时等待每个连接的处理 goroutine 收尾。
type hub struct {
	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func newHub() *hub {
	return &hub{conns: make(map[*conn]struct{})}
}

// add 登记连接；hub 已关闭时返回 false，调用方应直接断开。
func (h *hub) add(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	h.wg.Add(1)
	return true
}

// remove 在连接的查看会话关闭之后调用。
func (h *hub) remove(c *conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		h.wg.Done()
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(out message.Outbound) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.push(out)
	}
	return len(h.conns)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

// shutdown 拒绝新连接、断开现有连接，并等到它们全部退出（或 ctx 结束）。
func (h *hub) shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.closeAll()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
