package viewer

import (
	"sync"
	"time"
)

// Options 是打开会话时的初始参数。
type Options struct {
	IntervalMs int // 0 表示默认 2000
	Repeat     bool

	// Clock 为空时使用 RealClock。
	Clock Clock
	// OnChange 在状态变化后调用（在会话自己的 goroutine 中）。
	// 回调内不能再调用同一个 Session 的方法，否则会死锁。
	OnChange func(State)
}

// Session 是一次查看会话：一个 goroutine 独占状态与定时器，所有命令串行执行。
//
// 约束：
// - 同一时刻最多一个活动的 ticker：进入 Playing 时创建，离开时 Stop
// - Close 在循环退出前停止 ticker；Close 之后的调用都是 no-op，返回 Idle 状态
type Session struct {
	clock    Clock
	onChange func(State)

	reqs chan request
	done chan struct{}

	closeOnce sync.Once

	// 以下字段只在 loop goroutine 中访问。
	m        machine
	ticker   Ticker
	armedFor int
}

type request struct {
	fn    func(m *machine) error
	reply chan reply
}

type reply struct {
	st  State
	err error
}

// Open 创建会话（Viewing，index=0）并启动它的 goroutine。
func Open(total int, opts Options) (*Session, error) {
	m, err := newMachine(total, opts.IntervalMs, opts.Repeat)
	if err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	s := &Session{
		clock:    clock,
		onChange: opts.OnChange,
		reqs:     make(chan request),
		done:     make(chan struct{}),
		m:        m,
	}
	go s.loop()
	return s, nil
}

func (s *Session) loop() {
	defer close(s.done)
	defer s.disarm()

	for {
		var tickC <-chan time.Time
		if s.ticker != nil {
			tickC = s.ticker.C()
		}

		select {
		case req := <-s.reqs:
			before := s.m.st
			err := req.fn(&s.m)
			s.sync()
			req.reply <- reply{st: s.m.st, err: err}
			s.publish(before)
			if s.m.st.Phase == PhaseIdle {
				return
			}
		case <-tickC:
			before := s.m.st
			s.m.tick()
			s.sync()
			s.publish(before)
		}
	}
}

// sync 让 ticker 与当前 Phase/间隔保持一致。
func (s *Session) sync() {
	if !s.m.st.Playing() {
		s.disarm()
		return
	}
	if s.ticker != nil && s.armedFor == s.m.st.IntervalMs {
		return
	}
	s.disarm()
	s.ticker = s.clock.NewTicker(time.Duration(s.m.st.IntervalMs) * time.Millisecond)
	s.armedFor = s.m.st.IntervalMs
}

func (s *Session) disarm() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
		s.armedFor = 0
	}
}

func (s *Session) publish(before State) {
	if s.onChange != nil && s.m.st != before {
		s.onChange(s.m.st)
	}
}

func (s *Session) do(fn func(m *machine) error) (State, error) {
	req := request{fn: fn, reply: make(chan reply, 1)}
	select {
	case s.reqs <- req:
	case <-s.done:
		return State{Phase: PhaseIdle}, nil
	}
	r := <-req.reply
	return r.st, r.err
}

func (s *Session) apply(fn func(m *machine)) State {
	st, _ := s.do(func(m *machine) error { fn(m); return nil })
	return st
}

// State 返回当前状态快照。
func (s *Session) State() State { return s.apply(func(*machine) {}) }

func (s *Session) Next() State        { return s.apply((*machine).next) }
func (s *Session) Prev() State        { return s.apply((*machine).prev) }
func (s *Session) SeekTo(i int) State { return s.apply(func(m *machine) { m.seek(i) }) }
func (s *Session) Play() State        { return s.apply((*machine).play) }
func (s *Session) Pause() State       { return s.apply((*machine).pause) }
func (s *Session) Toggle() State      { return s.apply((*machine).toggle) }

func (s *Session) SetRepeat(v bool) State {
	return s.apply(func(m *machine) { m.setRepeat(v) })
}

func (s *Session) ToggleRepeat() State {
	return s.apply(func(m *machine) { m.setRepeat(!m.st.Repeat) })
}

// SetInterval 修改播放间隔；正在播放时按新间隔重新计时。
func (s *Session) SetInterval(ms int) (State, error) {
	return s.do(func(m *machine) error { return m.setInterval(ms) })
}

// Drag 处理一次指针拖动（dx/dy 为本次移动量）。
func (s *Session) Drag(dx, dy float64) State {
	return s.apply(func(m *machine) { m.drag(dx, dy) })
}

// Wheel 处理一次滚轮事件。
func (s *Session) Wheel(deltaY float64) State {
	return s.apply(func(m *machine) { m.wheel(deltaY) })
}

// ResetZoom 恢复 1:1、无平移。
func (s *Session) ResetZoom() State { return s.apply((*machine).resetZoom) }

// Close 结束会话：停止 ticker，等待 goroutine 退出。可重复调用。
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.do(func(m *machine) error { m.close(); return nil })
	})
	<-s.done
}

// Done 在会话结束后关闭。
func (s *Session) Done() <-chan struct{} { return s.done }
