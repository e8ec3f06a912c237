package viewer

import (
	"fmt"
	"math"

	"github.com/John-Robertt/imgutils/internal/domain"
)

// Phase 是查看会话的阶段。
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseViewing Phase = "viewing"
	PhasePlaying Phase = "playing"
)

const (
	MinScale = 0.1
	MaxScale = 5.0

	DefaultIntervalMs = 2000
)

// Intervals 是幻灯片可选的播放间隔（毫秒）。
var Intervals = []int{100, 500, 1000, 2000}

// ValidInterval 判断 ms 是否在可选菜单里。
func ValidInterval(ms int) bool {
	for _, v := range Intervals {
		if v == ms {
			return true
		}
	}
	return false
}

// Zoom 是全屏查看时的缩放/平移变换。
type Zoom struct {
	Scale float64 `json:"scale"`
	PanX  float64 `json:"panX"`
	PanY  float64 `json:"panY"`
}

var identity = Zoom{Scale: 1}

// State 是一次查看会话的完整状态（值类型，可直接比较/序列化）。
type State struct {
	Phase      Phase `json:"phase"`
	Index      int   `json:"index"`
	Total      int   `json:"total"`
	IntervalMs int   `json:"intervalMs"`
	Repeat     bool  `json:"repeat"`
	Zoom       Zoom  `json:"zoom"`
}

// Playing 是 Phase == PhasePlaying 的简写。
func (s State) Playing() bool { return s.Phase == PhasePlaying }

// machine 只做纯状态迁移；定时器由 Session 依据 Phase 统一启停。
type machine struct {
	st State
}

func newMachine(total, intervalMs int, repeat bool) (machine, error) {
	if total <= 0 {
		return machine{}, domain.Errorf(domain.KindEmptyResult, "没有可查看的图片（total=%d）", total)
	}
	if intervalMs == 0 {
		intervalMs = DefaultIntervalMs
	}
	if !ValidInterval(intervalMs) {
		return machine{}, fmt.Errorf("播放间隔只能是 %v 之一，实际是 %d", Intervals, intervalMs)
	}
	return machine{st: State{
		Phase:      PhaseViewing,
		Index:      0,
		Total:      total,
		IntervalMs: intervalMs,
		Repeat:     repeat,
		Zoom:       identity,
	}}, nil
}

func (m *machine) last() int { return m.st.Total - 1 }

// setIndex 切换图片时重置缩放/平移。
func (m *machine) setIndex(i int) {
	if i < 0 {
		i = 0
	}
	if i > m.last() {
		i = m.last()
	}
	if i != m.st.Index {
		m.st.Index = i
		m.st.Zoom = identity
	}
}

// 手动导航隐式暂停。
func (m *machine) next() {
	m.pause()
	m.setIndex(m.st.Index + 1)
}

func (m *machine) prev() {
	m.pause()
	m.setIndex(m.st.Index - 1)
}

func (m *machine) seek(i int) {
	m.pause()
	m.setIndex(i)
}

// play 在最后一张时先回到第一张。
func (m *machine) play() {
	if m.st.Phase != PhaseViewing {
		return
	}
	// 停在最后一张且不循环时从头播放；循环模式下由下一次 tick 回绕。
	if m.st.Index == m.last() && !m.st.Repeat {
		m.setIndex(0)
	}
	m.st.Phase = PhasePlaying
}

func (m *machine) pause() {
	if m.st.Phase == PhasePlaying {
		m.st.Phase = PhaseViewing
	}
}

func (m *machine) toggle() {
	if m.st.Playing() {
		m.pause()
		return
	}
	m.play()
}

// tick 是定时器驱动的前进。前进到最后一张且不循环时立即停止，不再等下一次 tick。
func (m *machine) tick() {
	if !m.st.Playing() {
		return
	}
	switch {
	case m.st.Index < m.last():
		m.setIndex(m.st.Index + 1)
		if m.st.Index == m.last() && !m.st.Repeat {
			m.pause()
		}
	case m.st.Repeat:
		m.setIndex(0)
	default:
		m.pause()
	}
}

func (m *machine) setInterval(ms int) error {
	if !ValidInterval(ms) {
		return fmt.Errorf("播放间隔只能是 %v 之一，实际是 %d", Intervals, ms)
	}
	m.st.IntervalMs = ms
	return nil
}

func (m *machine) setRepeat(v bool) { m.st.Repeat = v }

// drag：纵向为主时缩放（向下缩小、向上放大），否则在放大状态下平移。
func (m *machine) drag(dx, dy float64) {
	if math.Abs(dy) > math.Abs(dx) {
		if dy > 0 {
			m.scale(0.99)
		} else {
			m.scale(1.01)
		}
		return
	}
	if m.st.Zoom.Scale > 1 {
		m.st.Zoom.PanX += dx
		m.st.Zoom.PanY += dy
	}
}

func (m *machine) wheel(deltaY float64) {
	switch {
	case deltaY > 0:
		m.scale(0.9)
	case deltaY < 0:
		m.scale(1.1)
	}
}

func (m *machine) scale(f float64) {
	m.st.Zoom.Scale = math.Max(MinScale, math.Min(MaxScale, m.st.Zoom.Scale*f))
}

func (m *machine) resetZoom() { m.st.Zoom = identity }

func (m *machine) close() {
	m.st = State{Phase: PhaseIdle}
}
