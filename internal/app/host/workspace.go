package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/John-Robertt/imgutils/internal/app"
	"github.com/John-Robertt/imgutils/internal/app/planner"
	"github.com/John-Robertt/imgutils/internal/app/run"
	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/infra/cache"
	"github.com/John-Robertt/imgutils/internal/infra/fsx"
	"github.com/John-Robertt/imgutils/internal/infra/imgx"
	"github.com/John-Robertt/imgutils/internal/scan"
	"github.com/John-Robertt/imgutils/internal/view"
	"github.com/John-Robertt/imgutils/internal/viewer"
)

// ErrNotListed 表示请求的文件名不在当前目录列表里（含路径穿越、非图片、已被删除）。
var ErrNotListed = errors.New("文件不在当前列表中")

const metaEntries = 1024

// Options 描述一个打开的视图。
type Options struct {
	Kind view.Kind
	DirA string
	DirB string // 只有对比视图使用

	IntervalMs       int
	Repeat           bool
	NormalizeUnicode bool

	Rename planner.Options
	Strict bool

	Store     cache.Store
	ThumbSize int
	Logger    *slog.Logger
}

// Workspace 是一个打开的视图在宿主侧的全部状态。
// 页面、媒体与重命名都以请求当时的目录列表为准，不缓存列表。
type Workspace struct {
	opts   Options
	log    *slog.Logger
	thumbs *cache.Thumbs
	meta   *lru.Cache[string, imgx.Info]

	// renameMu 保证同一时刻只有一批重命名在执行。
	renameMu sync.Mutex
}

// RenameResult 是视图发起的一次重命名的结果。
type RenameResult struct {
	Report     domain.RenameReport
	ReportPath string

	// Message 是展示给用户的一句话；Failed 为 true 时应作为错误展示。
	Message string
	Failed  bool
}

func NewWorkspace(opts Options) (*Workspace, error) {
	switch opts.Kind {
	case view.KindCompare:
		if opts.DirB == "" {
			return nil, fmt.Errorf("对比视图需要两个目录")
		}
	case view.KindPreview, view.KindRename:
	default:
		return nil, fmt.Errorf("未知视图类型：%q", opts.Kind)
	}
	if opts.DirA == "" {
		return nil, fmt.Errorf("目录不能为空")
	}
	if opts.IntervalMs == 0 {
		opts.IntervalMs = viewer.DefaultIntervalMs
	}
	if opts.ThumbSize <= 0 {
		opts.ThumbSize = 256
	}
	if opts.Rename.Padding == 0 {
		opts.Rename = planner.DefaultOptions()
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	thumbs, err := cache.NewThumbs(opts.Store, opts.ThumbSize, 0, nil)
	if err != nil {
		return nil, err
	}
	meta, err := lru.New[string, imgx.Info](metaEntries)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		opts:   opts,
		log:    log.With("component", "workspace", "kind", string(opts.Kind)),
		thumbs: thumbs,
		meta:   meta,
	}, nil
}

func (w *Workspace) Kind() view.Kind { return w.opts.Kind }

// Playback 返回查看会话的初始播放间隔与循环设置。
func (w *Workspace) Playback() (int, bool) { return w.opts.IntervalMs, w.opts.Repeat }

// Dirs 返回视图关注的目录（用于监听变化）。
func (w *Workspace) Dirs() []string {
	if w.opts.Kind == view.KindCompare {
		return []string{w.opts.DirA, w.opts.DirB}
	}
	return []string{w.opts.DirA}
}

// Page 基于最新的目录列表构造页面数据。
// 对比视图没有任何配对、其它视图目录里没有图片时返回 empty_result。
func (w *Workspace) Page() (view.Page, error) {
	p := view.Page{
		Kind:       w.opts.Kind,
		DirA:       w.opts.DirA,
		DirB:       w.opts.DirB,
		Intervals:  viewer.Intervals,
		IntervalMs: w.opts.IntervalMs,
		Repeat:     w.opts.Repeat,
	}

	switch w.opts.Kind {
	case view.KindCompare:
		p.Title = "图片对比"
		pairs := w.pairs()
		if len(pairs) == 0 {
			return p, domain.Errorf(domain.KindEmptyResult, "没有找到匹配的图片")
		}
		for _, mp := range pairs {
			p.Pairs = append(p.Pairs, view.Pair{
				BaseName: mp.BaseName,
				NameA:    mp.NameInA,
				NameB:    mp.NameInB,
				URLA:     view.MediaURL(view.SideA, mp.NameInA),
				URLB:     view.MediaURL(view.SideB, mp.NameInB),
			})
		}
		return p, nil

	case view.KindPreview:
		p.Title = "图片预览"
	default:
		p.Title = "批量重命名"
	}

	entries := scan.ListImages(w.opts.DirA, scan.ImageExtensions)
	if len(entries) == 0 {
		return p, domain.Errorf(domain.KindEmptyResult, "目录中没有图片")
	}
	for _, e := range entries {
		p.Images = append(p.Images, view.Image{
			Name:  e.Filename,
			URL:   view.MediaURL(view.SideA, e.Filename),
			Thumb: view.ThumbURL(view.SideA, e.Filename),
			Meta:  view.MetaURL(view.SideA, e.Filename),
		})
	}

	if w.opts.Kind == view.KindRename {
		ro := w.opts.Rename
		p.Rename = view.RenameForm{
			Prefix:     ro.Prefix,
			Postfix:    ro.Postfix,
			Padding:    ro.Padding,
			MaxPadding: planner.MaxPadding,
			Order:      string(ro.Order),
			Start:      ro.Start,
		}
		plan, err := planner.Plan(entries, ro)
		if err != nil {
			p.Rename.Error = err.Error()
		}
		for _, e := range plan {
			p.Rename.Rows = append(p.Rename.Rows, view.RenameRow{Old: e.OldName, New: e.NewName})
		}
	}
	return p, nil
}

// Total 返回当前页面的条目数（查看会话的 N）。
func (w *Workspace) Total() int {
	if w.opts.Kind == view.KindCompare {
		return len(w.pairs())
	}
	return len(scan.ListImages(w.opts.DirA, scan.ImageExtensions))
}

func (w *Workspace) pairs() []domain.MatchedPair {
	a := scan.Names(scan.ListImages(w.opts.DirA, scan.ImageExtensions))
	b := scan.Names(scan.ListImages(w.opts.DirB, scan.ImageExtensions))
	return app.PairByBase(a, b, app.PairOptions{NormalizeUnicode: w.opts.NormalizeUnicode})
}

// Resolve 把视图里的 (side, name) 映射为绝对路径。
// name 必须出现在该目录当前的图片列表里，否则返回 ErrNotListed。
func (w *Workspace) Resolve(side, name string) (string, error) {
	var dir string
	switch {
	case side == view.SideA:
		dir = w.opts.DirA
	case side == view.SideB && w.opts.Kind == view.KindCompare:
		dir = w.opts.DirB
	default:
		return "", ErrNotListed
	}
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", ErrNotListed
	}
	for _, e := range scan.ListImages(dir, scan.ImageExtensions) {
		if e.Filename == name {
			return filepath.Join(dir, name), nil
		}
	}
	return "", ErrNotListed
}

// Thumb 返回 (side, name) 的 JPEG 缩略图。
func (w *Workspace) Thumb(side, name string) ([]byte, error) {
	p, err := w.Resolve(side, name)
	if err != nil {
		return nil, err
	}
	return w.thumbs.Get(p)
}

// Meta 返回 (side, name) 的元数据；文件大小或修改时间变化后重新读取。
func (w *Workspace) Meta(side, name string) (imgx.Info, error) {
	p, err := w.Resolve(side, name)
	if err != nil {
		return imgx.Info{}, err
	}
	fi, err := fsx.RegularFile(p)
	if err != nil {
		return imgx.Info{}, err
	}
	key := p + "|" + strconv.FormatInt(fi.Size(), 10) + "|" + strconv.FormatInt(fi.ModTime().UnixNano(), 10)
	if info, ok := w.meta.Get(key); ok {
		return info, nil
	}
	info, err := imgx.Probe(p)
	if err != nil {
		return imgx.Info{}, err
	}
	w.meta.Add(key, info)
	return info, nil
}

// PlanRename 按视图当前的参数生成预览；Locale 沿用配置。
func (w *Workspace) PlanRename(opts planner.Options) ([]domain.RenameEntry, error) {
	if opts.Locale == "" {
		opts.Locale = w.opts.Rename.Locale
	}
	return planner.Plan(scan.ListImages(w.opts.DirA, scan.ImageExtensions), opts)
}

// ConfirmText 返回确认提示。数量总是由宿主按计划条数写出，视图给的文本只作为补充说明附在后面。
func ConfirmText(n int, msg string) string {
	q := fmt.Sprintf("确定要重命名 %d 个文件吗？", n)
	msg = strings.TrimSpace(msg)
	if msg == "" || msg == q {
		return q
	}
	return q + "\n" + msg
}

// ExecuteRename 执行视图提交的计划（调用方负责事先取得用户确认）。
//
// - 计划不合法（重复/非法名字）：返回 error，不触碰文件系统
// - 否则逐条执行并写入 report；report 写入失败只记日志
func (w *Workspace) ExecuteRename(ctx context.Context, list []domain.RenameEntry) (RenameResult, error) {
	if w.opts.Kind != view.KindRename {
		return RenameResult{}, fmt.Errorf("当前视图不支持重命名")
	}
	w.renameMu.Lock()
	defer w.renameMu.Unlock()

	rr, err := run.Execute(ctx, w.opts.DirA, list, run.Options{
		Strict:   w.opts.Strict,
		Observer: logObserver{log: w.log},
	})
	if err != nil {
		w.log.Warn("rename rejected", "err", err)
		return RenameResult{}, err
	}

	res := RenameResult{Report: rr}
	if !w.opts.Store.ReadOnly && w.opts.Store.Root != "" {
		path, err := w.opts.Store.WriteReport(rr)
		if err != nil {
			w.log.Warn("write report failed", "err", err)
		} else {
			res.ReportPath = path
		}
	}

	if rr.Summary.Failed > 0 {
		res.Failed = true
		res.Message = fmt.Sprintf("重命名失败：%s（成功 %d 个）", strings.Join(rr.Errors(), "；"), rr.Summary.Renamed)
	} else {
		res.Message = fmt.Sprintf("成功重命名 %d 个文件", rr.Summary.Renamed)
	}
	return res, nil
}

// logObserver 把执行进度写进日志。
type logObserver struct {
	log *slog.Logger
}

func (o logObserver) OnStart(dir string, total int, dryRun bool) {
	o.log.Info("rename start", "dir", dir, "total", total, "dry_run", dryRun)
}

func (o logObserver) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	if res.Status == domain.StatusFailed {
		o.log.Warn("rename item failed", "old", res.Old, "new", res.New, "code", res.ErrorCode, "err", res.ErrorMsg)
		return
	}
	o.log.Debug("rename item", "idx", idx, "total", total, "old", res.Old, "new", res.New, "status", res.Status, "dur", dur)
}

func (o logObserver) OnFinish(rr domain.RenameReport) {
	o.log.Info("rename finish", "renamed", rr.Summary.Renamed, "failed", rr.Summary.Failed, "skipped", rr.Summary.Skipped)
}
