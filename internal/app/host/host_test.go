package host

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/imgutils/internal/app/planner"
	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/infra/cache"
	"github.com/John-Robertt/imgutils/internal/view"
)

type fakePrompter struct {
	answers []string // 空串表示取消
	titles  []string
}

func (p *fakePrompter) PickFolder(title string) (string, bool, error) {
	p.titles = append(p.titles, title)
	if len(p.answers) == 0 {
		return "", false, nil
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, a != "", nil
}

func TestResolveComparison_TwoSelected(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	gotA, gotB, err := ResolveComparison([]string{a, b}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if gotA != a || gotB != b {
		t.Fatalf("期望 %s %s，实际 %s %s", a, b, gotA, gotB)
	}
}

func TestResolveComparison_WrongCount(t *testing.T) {
	p := &fakePrompter{}
	_, _, err := ResolveComparison([]string{t.TempDir()}, p)
	if !domain.IsKind(err, domain.KindSelection) {
		t.Fatalf("期望 selection_error，实际：%v", err)
	}
	if !strings.Contains(err.Error(), "1") {
		t.Fatalf("错误信息应包含选择数量：%v", err)
	}
	if len(p.titles) != 0 {
		t.Fatalf("数量不对时不应询问：%v", p.titles)
	}
}

func TestResolveComparison_PromptTwice(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	p := &fakePrompter{answers: []string{a, b}}
	gotA, gotB, err := ResolveComparison(nil, p)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if gotA != a || gotB != b || len(p.titles) != 2 {
		t.Fatalf("期望依次询问两次：%s %s %v", gotA, gotB, p.titles)
	}
}

func TestResolveComparison_SecondCanceled(t *testing.T) {
	p := &fakePrompter{answers: []string{t.TempDir(), ""}}
	_, _, err := ResolveComparison(nil, p)
	if !domain.IsKind(err, domain.KindSelection) || !strings.Contains(err.Error(), "第二个") {
		t.Fatalf("期望第二个文件夹未选择的 selection_error，实际：%v", err)
	}
}

func TestResolveFolder(t *testing.T) {
	dir := t.TempDir()
	got, err := ResolveFolder([]string{dir}, nil)
	if err != nil || got != dir {
		t.Fatalf("期望 %s，实际 %s（%v）", dir, got, err)
	}

	file := filepath.Join(dir, "a.jpg")
	write(t, file)
	if _, err := ResolveFolder([]string{file}, nil); !domain.IsKind(err, domain.KindSelection) {
		t.Fatalf("文件不是目录，期望 selection_error，实际：%v", err)
	}
	if _, err := ResolveFolder(nil, &fakePrompter{}); !domain.IsKind(err, domain.KindSelection) {
		t.Fatalf("取消询问，期望 selection_error，实际：%v", err)
	}
}

func TestWorkspace_ComparePage(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	write(t, filepath.Join(a, "x.jpg"))
	write(t, filepath.Join(a, "only-a.jpg"))
	write(t, filepath.Join(b, "x.png"))
	write(t, filepath.Join(b, "notes.txt"))

	w := newWorkspace(t, Options{Kind: view.KindCompare, DirA: a, DirB: b})
	p, err := w.Page()
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(p.Pairs) != 1 || p.Pairs[0].NameA != "x.jpg" || p.Pairs[0].NameB != "x.png" {
		t.Fatalf("配对结果不对：%+v", p.Pairs)
	}
	if p.Pairs[0].URLB != "/media/b/x.png" {
		t.Fatalf("URL 不对：%s", p.Pairs[0].URLB)
	}
	if w.Total() != 1 || len(w.Dirs()) != 2 {
		t.Fatalf("Total/Dirs 不对：%d %v", w.Total(), w.Dirs())
	}
}

func TestWorkspace_EmptyResult(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	write(t, filepath.Join(a, "x.jpg"))
	write(t, filepath.Join(b, "y.jpg"))

	w := newWorkspace(t, Options{Kind: view.KindCompare, DirA: a, DirB: b})
	if _, err := w.Page(); !domain.IsKind(err, domain.KindEmptyResult) {
		t.Fatalf("没有配对，期望 empty_result，实际：%v", err)
	}

	w = newWorkspace(t, Options{Kind: view.KindPreview, DirA: t.TempDir()})
	if _, err := w.Page(); !domain.IsKind(err, domain.KindEmptyResult) {
		t.Fatalf("空目录，期望 empty_result，实际：%v", err)
	}
}

func TestWorkspace_ResolveOnlyListed(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.jpg"))
	write(t, filepath.Join(dir, "c.txt"))
	write(t, filepath.Join(filepath.Dir(dir), "outside.jpg"))

	w := newWorkspace(t, Options{Kind: view.KindPreview, DirA: dir})
	got, err := w.Resolve(view.SideA, "a.jpg")
	if err != nil || got != filepath.Join(dir, "a.jpg") {
		t.Fatalf("期望解析成功：%s（%v）", got, err)
	}
	for _, tc := range []struct{ side, name string }{
		{view.SideA, "c.txt"},
		{view.SideA, "../outside.jpg"},
		{view.SideA, ""},
		{view.SideB, "a.jpg"},
		{"z", "a.jpg"},
	} {
		if _, err := w.Resolve(tc.side, tc.name); !errors.Is(err, ErrNotListed) {
			t.Fatalf("%s/%s 期望 ErrNotListed，实际：%v", tc.side, tc.name, err)
		}
	}
}

func TestWorkspace_RenamePageDefaults(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "b.jpg"))
	write(t, filepath.Join(dir, "a.PNG"))

	w := newWorkspace(t, Options{Kind: view.KindRename, DirA: dir})
	p, err := w.Page()
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	r := p.Rename
	if r.Padding != 5 || r.Start != 1 || r.Order != "asc" || r.MaxPadding != 10 {
		t.Fatalf("默认参数不对：%+v", r)
	}
	if len(r.Rows) != 2 || r.Rows[0].Old != "a.PNG" || r.Rows[0].New != "00001.PNG" || r.Rows[1].New != "00002.jpg" {
		t.Fatalf("预览不对：%+v", r.Rows)
	}
}

func TestWorkspace_PlanRename(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.jpg"))
	write(t, filepath.Join(dir, "b.jpg"))

	w := newWorkspace(t, Options{Kind: view.KindRename, DirA: dir})
	plan, err := w.PlanRename(planner.Options{Prefix: "p_", Padding: 3, Order: domain.OrderDesc, Start: 0})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(plan) != 2 || plan[0].OldName != "b.jpg" || plan[0].NewName != "p_000.jpg" {
		t.Fatalf("计划不对：%+v", plan)
	}
	if _, err := w.PlanRename(planner.Options{Prefix: "a/", Padding: 1, Order: domain.OrderAsc}); !domain.IsKind(err, domain.KindInvalidName) {
		t.Fatalf("期望 invalid_name，实际：%v", err)
	}
}

func TestWorkspace_ExecuteRename(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.jpg"))
	write(t, filepath.Join(dir, "b.jpg"))
	store := cache.New(t.TempDir(), false)

	w := newWorkspace(t, Options{Kind: view.KindRename, DirA: dir, Store: store})
	res, err := w.ExecuteRename(context.Background(), []domain.RenameEntry{
		{OldName: "a.jpg", NewName: "1.jpg"},
		{OldName: "b.jpg", NewName: "2.jpg"},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Failed || res.Message != "成功重命名 2 个文件" {
		t.Fatalf("结果不对：%+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "2.jpg")); err != nil {
		t.Fatalf("期望 2.jpg 存在：%v", err)
	}
	rr, err := store.ReadReport(res.ReportPath)
	if err != nil || rr.Summary.Renamed != 2 {
		t.Fatalf("report 不对：%+v（%v）", rr.Summary, err)
	}
}

func TestWorkspace_ExecuteRenamePartialFailure(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.jpg"))
	write(t, filepath.Join(dir, "b.jpg"))
	write(t, filepath.Join(dir, "taken.jpg"))

	w := newWorkspace(t, Options{Kind: view.KindRename, DirA: dir})
	res, err := w.ExecuteRename(context.Background(), []domain.RenameEntry{
		{OldName: "a.jpg", NewName: "taken.jpg"},
		{OldName: "b.jpg", NewName: "2.jpg"},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !res.Failed || !strings.HasPrefix(res.Message, "重命名失败：") || !strings.Contains(res.Message, "taken.jpg") {
		t.Fatalf("结果不对：%+v", res)
	}
	if res.Report.Summary.Renamed != 1 || res.ReportPath != "" {
		t.Fatalf("期望成功 1 个且不写 report：%+v %q", res.Report.Summary, res.ReportPath)
	}
}

func TestWorkspace_ExecuteRenameRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.jpg"))
	write(t, filepath.Join(dir, "b.jpg"))

	w := newWorkspace(t, Options{Kind: view.KindRename, DirA: dir})
	_, err := w.ExecuteRename(context.Background(), []domain.RenameEntry{
		{OldName: "a.jpg", NewName: "x.jpg"},
		{OldName: "b.jpg", NewName: "x.jpg"},
	})
	if !domain.IsKind(err, domain.KindDuplicatePlan) {
		t.Fatalf("期望 duplicate_plan，实际：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.jpg")); err != nil {
		t.Fatalf("重复计划不应触碰文件系统：%v", err)
	}
}

func TestConfirmText(t *testing.T) {
	if got := ConfirmText(3, ""); got != "确定要重命名 3 个文件吗？" {
		t.Fatalf("默认文本不对：%s", got)
	}
	if got := ConfirmText(3, "确定要重命名 3 个文件吗？"); got != "确定要重命名 3 个文件吗？" {
		t.Fatalf("与宿主文本相同时不应重复：%s", got)
	}
	if got := ConfirmText(3, "继续吗？"); got != "确定要重命名 3 个文件吗？\n继续吗？" {
		t.Fatalf("视图文本应附在宿主文本之后：%s", got)
	}
	// 视图文本里的数字不能代替真实数量。
	if got := ConfirmText(1, "Are you sure you want to rename 12 files?"); got != "确定要重命名 1 个文件吗？\nAre you sure you want to rename 12 files?" {
		t.Fatalf("应以计划条数为准：%s", got)
	}
	if got := ConfirmText(2, "Rename 2024 holiday photos?"); !strings.HasPrefix(got, "确定要重命名 2 个文件吗？") {
		t.Fatalf("应以计划条数为准：%s", got)
	}
}

func TestWorkspace_MetaAndThumb(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "p.png"), 40, 20)

	w := newWorkspace(t, Options{Kind: view.KindPreview, DirA: dir, ThumbSize: 16})
	info, err := w.Meta(view.SideA, "p.png")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if info.Width != 40 || info.Height != 20 || info.Format != "png" {
		t.Fatalf("元数据不对：%+v", info)
	}
	b, err := w.Thumb(view.SideA, "p.png")
	if err != nil || len(b) == 0 {
		t.Fatalf("缩略图生成失败：%v", err)
	}
	if _, err := w.Thumb(view.SideA, "missing.png"); !errors.Is(err, ErrNotListed) {
		t.Fatalf("期望 ErrNotListed，实际：%v", err)
	}
}

func newWorkspace(t *testing.T, opts Options) *Workspace {
	t.Helper()
	if opts.Store.Root == "" {
		opts.Store = cache.New(t.TempDir(), true)
	}
	w, err := NewWorkspace(opts)
	if err != nil {
		t.Fatalf("创建 workspace 失败：%v", err)
	}
	return w
}

func write(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir 失败：%v", err)
	}
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
		t.Fatalf("写文件失败：%v", err)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建文件失败：%v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("编码 PNG 失败：%v", err)
	}
}
