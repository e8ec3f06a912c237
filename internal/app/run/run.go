package run

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/imgutils/internal/app/planner"
	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/infra/fsx"
)

// Options 控制一次批量重命名的执行方式。
type Options struct {
	// DryRun 只预检不落盘：会失败的条目标记为 failed，其余保持 planned。
	DryRun bool
	// Strict 在动任何文件之前先预检整批；发现冲突时整批不执行。
	Strict bool

	Observer Observer
}

// Execute 在 dir 下按计划顺序逐条重命名，并返回对外稳定的 RenameReport。
//
// 规则：
// - 计划先过 planner.Validate：重复/非法名字直接返回 *domain.Error，不触碰文件系统
// - 逐条执行：源不存在 -> source_missing；目标已存在 -> target_exists；其它 I/O 错误 -> filesystem_error
// - 单条失败不影响后续条目，已成功的条目不回滚
// - OldName == NewName 的条目记为 skipped
// - ctx 取消后，剩余条目记为 failed（canceled）
func Execute(ctx context.Context, dir string, plan []domain.RenameEntry, opts Options) (domain.RenameReport, error) {
	if err := planner.Validate(plan); err != nil {
		return domain.RenameReport{}, err
	}

	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	dir = filepath.Clean(strings.TrimSpace(dir))
	rr := domain.RenameReport{
		Dir:       dir,
		DryRun:    opts.DryRun,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, len(plan)),
	}
	obs.OnStart(dir, len(plan), opts.DryRun)

	finish := func() (domain.RenameReport, error) {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		obs.OnFinish(rr)
		return rr, nil
	}

	if opts.DryRun || opts.Strict {
		conflicts := indexConflicts(planner.Preflight(dir, plan))
		if opts.DryRun {
			for i, e := range plan {
				started := time.Now()
				it := planned(e)
				if c, ok := conflicts[i]; ok {
					it = failed(e, c.Kind, c.Msg)
				}
				rr.Items = append(rr.Items, it)
				obs.OnItemDone(i+1, len(plan), it, time.Since(started))
			}
			return finish()
		}
		if len(conflicts) > 0 {
			for i, e := range plan {
				it := domain.ItemResult{
					Old:       e.OldName,
					New:       e.NewName,
					Status:    domain.StatusSkipped,
					ErrorCode: string(domain.KindCanceled),
					ErrorMsg:  fmt.Sprintf("严格模式：批次中有 %d 个冲突，未执行", len(conflicts)),
				}
				if c, ok := conflicts[i]; ok {
					it = failed(e, c.Kind, c.Msg)
				}
				rr.Items = append(rr.Items, it)
				obs.OnItemDone(i+1, len(plan), it, 0)
			}
			return finish()
		}
	}

	for i, e := range plan {
		started := time.Now()
		var it domain.ItemResult
		if err := ctx.Err(); err != nil {
			it = failed(e, domain.KindCanceled, fmt.Sprintf("已取消：%v", err))
		} else {
			it = renameOne(dir, e)
		}
		rr.Items = append(rr.Items, it)
		obs.OnItemDone(i+1, len(plan), it, time.Since(started))
	}
	return finish()
}

func renameOne(dir string, e domain.RenameEntry) domain.ItemResult {
	if e.OldName == e.NewName {
		return domain.ItemResult{Old: e.OldName, New: e.NewName, Status: domain.StatusSkipped}
	}

	src := filepath.Join(dir, e.OldName)
	dst := filepath.Join(dir, e.NewName)

	ok, err := fsx.Lexists(src)
	if err != nil {
		return failed(e, domain.KindFilesystem, fmt.Sprintf("检查源文件失败：%v", err))
	}
	if !ok {
		return failed(e, domain.KindSourceMissing, fmt.Sprintf("源文件不存在：%s", e.OldName))
	}

	ok, err = fsx.Lexists(dst)
	if err != nil {
		return failed(e, domain.KindFilesystem, fmt.Sprintf("检查目标文件失败：%v", err))
	}
	if ok && !(strings.EqualFold(e.OldName, e.NewName) && fsx.SameFile(src, dst)) {
		return failed(e, domain.KindTargetExists, fmt.Sprintf("目标文件已存在：%s", e.NewName))
	}

	if err := fsx.Rename(src, dst); err != nil {
		return failed(e, domain.KindFilesystem, fmt.Sprintf("重命名失败：%v", err))
	}
	return domain.ItemResult{Old: e.OldName, New: e.NewName, Status: domain.StatusRenamed}
}

func indexConflicts(cs []planner.Conflict) map[int]planner.Conflict {
	out := make(map[int]planner.Conflict, len(cs))
	for _, c := range cs {
		out[c.Index] = c
	}
	return out
}

func planned(e domain.RenameEntry) domain.ItemResult {
	if e.OldName == e.NewName {
		return domain.ItemResult{Old: e.OldName, New: e.NewName, Status: domain.StatusSkipped}
	}
	return domain.ItemResult{Old: e.OldName, New: e.NewName, Status: domain.StatusPlanned}
}

func failed(e domain.RenameEntry, kind domain.Kind, msg string) domain.ItemResult {
	return domain.ItemResult{
		Old:       e.OldName,
		New:       e.NewName,
		Status:    domain.StatusFailed,
		ErrorCode: string(kind),
		ErrorMsg:  msg,
	}
}
