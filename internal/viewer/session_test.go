package viewer

import (
	"sync"
	"testing"
	"time"
)

// fakeClock 由测试手动驱动 tick。
type fakeClock struct {
	mu      sync.Mutex
	cur     *fakeTicker
	created []time.Duration
}

type fakeTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (f *fakeClock) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time)}
	f.cur = t
	f.created = append(f.created, d)
	return t
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Tick 向当前活动的 ticker 投递一次 tick；没有活动 ticker 时返回 false。
func (f *fakeClock) Tick() bool {
	f.mu.Lock()
	t := f.cur
	f.mu.Unlock()
	if t == nil || t.isStopped() {
		return false
	}
	select {
	case t.c <- time.Now():
		return true
	case <-time.After(time.Second):
		return false
	}
}

func (f *fakeClock) intervals() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.created...)
}

func TestSession_PlayFiveAutoStops(t *testing.T) {
	fc := &fakeClock{}
	s, err := Open(5, Options{IntervalMs: 1000, Clock: fc})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer s.Close()

	if st := s.Play(); !st.Playing() || st.Index != 0 {
		t.Fatalf("play 后状态不符合预期：%+v", st)
	}
	for i := 0; i < 4; i++ {
		if !fc.Tick() {
			t.Fatalf("第 %d 次 tick 未被接收", i+1)
		}
	}
	st := s.State()
	if st.Index != 4 || st.Playing() {
		t.Fatalf("4 次 tick 后应停在 4 且停止播放：%+v", st)
	}
	if fc.Tick() {
		t.Fatalf("停止播放后不应再有 tick")
	}
	if got := fc.intervals(); len(got) != 1 || got[0] != time.Second {
		t.Fatalf("期望只创建一个 1s 的 ticker，实际：%v", got)
	}
}

func TestSession_RepeatWrapsUntilPause(t *testing.T) {
	fc := &fakeClock{}
	s, err := Open(3, Options{Repeat: true, Clock: fc})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer s.Close()

	s.SeekTo(2)
	if st := s.Play(); st.Index != 2 || !st.Playing() {
		t.Fatalf("循环模式下 play 应停在原位开始播放：%+v", st)
	}
	for i, want := range []int{0, 1, 2, 0} {
		fc.Tick()
		if st := s.State(); st.Index != want || !st.Playing() {
			t.Fatalf("第 %d 次 tick：期望 %d，实际 %+v", i+1, want, st)
		}
	}
	s.Pause()
	if fc.Tick() {
		t.Fatalf("暂停后 ticker 应已停止")
	}
}

func TestSession_SetIntervalRearms(t *testing.T) {
	fc := &fakeClock{}
	s, err := Open(4, Options{Clock: fc})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer s.Close()

	s.Play()
	if _, err := s.SetInterval(100); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := s.SetInterval(123); err == nil {
		t.Fatalf("非法间隔应报错")
	}
	got := fc.intervals()
	if len(got) != 2 || got[0] != 2*time.Second || got[1] != 100*time.Millisecond {
		t.Fatalf("播放中修改间隔应重新计时，实际：%v", got)
	}
	if st := s.State(); st.IntervalMs != 100 || !st.Playing() {
		t.Fatalf("状态不符合预期：%+v", st)
	}
}

func TestSession_CloseStopsTickerAndIsIdempotent(t *testing.T) {
	fc := &fakeClock{}
	var mu sync.Mutex
	var seen []State
	s, err := Open(3, Options{Clock: fc, OnChange: func(st State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, st)
	}})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	s.Play()
	s.Close()
	s.Close()

	select {
	case <-s.Done():
	default:
		t.Fatalf("Close 返回后会话应已结束")
	}
	if fc.Tick() {
		t.Fatalf("Close 后 ticker 应已停止")
	}
	if st := s.Next(); st.Phase != PhaseIdle {
		t.Fatalf("Close 之后的调用应返回 idle：%+v", st)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || !seen[0].Playing() || seen[1].Phase != PhaseIdle {
		t.Fatalf("OnChange 事件不符合预期：%+v", seen)
	}
}

func TestSession_NoChangeNoPublish(t *testing.T) {
	var n int
	var mu sync.Mutex
	s, err := Open(2, Options{Clock: &fakeClock{}, OnChange: func(State) {
		mu.Lock()
		n++
		mu.Unlock()
	}})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer s.Close()

	s.Prev()
	s.Pause()
	s.State()

	mu.Lock()
	defer mu.Unlock()
	if n != 0 {
		t.Fatalf("状态未变化时不应回调，实际 %d 次", n)
	}
}
