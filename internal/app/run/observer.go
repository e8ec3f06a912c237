package run

import (
	"time"

	"github.com/John-Robertt/imgutils/internal/domain"
)

// Observer 用于把“批次开始/逐条结果/结束汇总”从执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件按执行顺序同步发出；Observer 不应阻塞太久。
type Observer interface {
	// OnStart 在第一条执行之前调用。
	OnStart(dir string, total int, dryRun bool)
	// OnItemDone 在每个条目得出结果后调用，idx 从 1 开始。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
	// OnFinish 在 report 定稿后调用。
	OnFinish(rr domain.RenameReport)
}

// nopObserver 让执行流程不必到处判空。
type nopObserver struct{}

func (nopObserver) OnStart(string, int, bool)                             {}
func (nopObserver) OnItemDone(int, int, domain.ItemResult, time.Duration) {}
func (nopObserver) OnFinish(domain.RenameReport)                          {}
