package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/imgutils/internal/app/run"
	"github.com/John-Robertt/imgutils/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的重命名进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - width > 0 时按终端宽度截断每一行
type progressUI struct {
	w     io.Writer
	width int

	mu        sync.Mutex
	startedAt time.Time
	ok        int
	fail      int
	skip      int
}

func newProgressUI(w io.Writer, width int) *progressUI {
	return &progressUI{w: w, width: width}
}

func (p *progressUI) OnStart(dir string, total int, dryRun bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startedAt = time.Now()
	mode := "apply"
	hint := ""
	if dryRun {
		mode = "dry-run"
		hint = " (只预检，不改名)"
	}
	fmt.Fprintf(p.w, "[%s] imgutils rename (%s)\n", p.startedAt.Format("15:04:05"), mode)
	fmt.Fprintf(p.w, "  dir: %s\n", dir)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, hint)
	fmt.Fprintf(p.w, "  files: %d\n\n", total)
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var line string
	switch res.Status {
	case domain.StatusRenamed:
		p.ok++
		line = fmt.Sprintf("[%d/%d] OK %s -> %s (%s)", idx, total, res.Old, res.New, formatShortDuration(dur))
	case domain.StatusPlanned:
		p.ok++
		line = fmt.Sprintf("[%d/%d] PLAN %s -> %s", idx, total, res.Old, res.New)
	case domain.StatusSkipped:
		p.skip++
		line = fmt.Sprintf("[%d/%d] SKIP %s", idx, total, res.Old)
		if res.ErrorMsg != "" {
			line += ": " + res.ErrorMsg
		}
	default:
		p.fail++
		line = fmt.Sprintf("[%d/%d] FAIL %s -> %s %s: %s", idx, total, res.Old, res.New, res.ErrorCode, res.ErrorMsg)
	}
	fmt.Fprintln(p.w, truncate(line, p.width))
}

func (p *progressUI) OnFinish(rr domain.RenameReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "\n用时 %s：ok=%d fail=%d skip=%d\n", formatShortDuration(time.Since(p.startedAt)), p.ok, p.fail, p.skip)
}

// truncate 按字符数截断（中文文件名不会被截成半个字符）。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
