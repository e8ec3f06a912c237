package planner

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/infra/fsx"
)

const (
	// DefaultPadding / DefaultStart 与重命名视图的初始值一致。
	DefaultPadding = 5
	DefaultStart   = 1
	// MaxPadding 是视图允许输入的最大补零宽度。
	MaxPadding = 10
)

// Options 描述一次重命名规划的全部参数。
type Options struct {
	Prefix  string
	Postfix string
	Padding int // 补零宽度 W，必须 >= 1
	Order   domain.SortOrder
	Start   int // 起始序号，允许 0 或负数

	// Locale 是排序使用的 BCP 47 语言标签；为空时使用 und（根排序规则）。
	Locale string
}

// DefaultOptions 返回视图初始状态对应的参数。
func DefaultOptions() Options {
	return Options{
		Padding: DefaultPadding,
		Order:   domain.OrderAsc,
		Start:   DefaultStart,
	}
}

// Plan 基于当前文件列表生成确定性的重命名计划（不做任何落盘）。
//
// 规则：
// 1) 按当前文件名做 locale 感知排序；desc 反转比较结果
// 2) 排序后依次编号 Start, Start+1, ...
// 3) newName = Prefix + ZeroPad(n, Padding) + Postfix + 原扩展名
//
// 校验闸门：任何新文件名不合法（*domain.Error, invalid_name）或重复（duplicate_plan）时，
// 返回错误且不返回计划。输出顺序是排序后的顺序，而不是输入顺序。
func Plan(entries []domain.ImageEntry, opts Options) ([]domain.RenameEntry, error) {
	if opts.Padding < 1 {
		return nil, fmt.Errorf("补零宽度必须 >= 1，实际是 %d", opts.Padding)
	}
	order, ok := domain.ParseSortOrder(string(opts.Order))
	if !ok {
		return nil, fmt.Errorf("排序方向只能是 asc 或 desc，实际是 %q", opts.Order)
	}
	sorted, err := Sorted(entries, order, opts.Locale)
	if err != nil {
		return nil, err
	}

	plan := make([]domain.RenameEntry, 0, len(sorted))
	for i, e := range sorted {
		n := opts.Start + i
		plan = append(plan, domain.RenameEntry{
			OldName: e.Filename,
			NewName: opts.Prefix + ZeroPad(n, opts.Padding) + opts.Postfix + e.Extension,
		})
	}

	if err := Validate(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Sorted 返回按文件名排序后的副本（不修改输入）。
// 比较结果相等时退回字节序，保证同样的输入永远得到同样的顺序。
func Sorted(entries []domain.ImageEntry, order domain.SortOrder, locale string) ([]domain.ImageEntry, error) {
	tag := language.Und
	if s := strings.TrimSpace(locale); s != "" {
		t, err := language.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("locale 无效：%q：%w", locale, err)
		}
		tag = t
	}
	// Collator 内部带缓冲，不能跨 goroutine 共享：每次排序单独构造。
	col := collate.New(tag)

	out := append([]domain.ImageEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		c := col.CompareString(out[i].Filename, out[j].Filename)
		if c == 0 {
			c = strings.Compare(out[i].Filename, out[j].Filename)
		}
		if order == domain.OrderDesc {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

// ZeroPad 把 n 的十进制字符串左侧补 '0' 到 width 个字符；超过 width 时完整保留（不截断）。
// 负号按普通字符计入长度，补的 '0' 在它前面（ZeroPad(-5, 3) == "0-5"）。
func ZeroPad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// Validate 对一份计划（可能来自视图，而不是 Plan）做执行前校验。
//
// - OldName 必须是单级文件名（不能含路径分隔符，不能是 "."/".."）
// - NewName 必须是合法文件名（见 InvalidNameReason）
// - NewName 在整份计划内必须唯一；重复时一次性报告所有重复的名字
func Validate(plan []domain.RenameEntry) error {
	var invalid []string
	for _, e := range plan {
		if reason := invalidSourceReason(e.OldName); reason != "" {
			invalid = append(invalid, fmt.Sprintf("%q（%s）", e.OldName, reason))
			continue
		}
		if reason := InvalidNameReason(e.NewName); reason != "" {
			invalid = append(invalid, fmt.Sprintf("%q（%s）", e.NewName, reason))
		}
	}
	if len(invalid) > 0 {
		return domain.Errorf(domain.KindInvalidName, "文件名不合法：%s", strings.Join(invalid, ", "))
	}

	if dups := Duplicates(plan); len(dups) > 0 {
		return domain.Errorf(domain.KindDuplicatePlan, "检测到重复的新文件名：%s", strings.Join(dups, ", "))
	}
	return nil
}

// Duplicates 返回计划中出现不止一次的新文件名（按第一次重复出现的顺序，去重）。
func Duplicates(plan []domain.RenameEntry) []string {
	seen := make(map[string]int, len(plan))
	var dups []string
	for _, e := range plan {
		seen[e.NewName]++
		if seen[e.NewName] == 2 {
			dups = append(dups, e.NewName)
		}
	}
	return dups
}

// InvalidNameReason 返回新文件名不合法的原因；合法时返回空串。
func InvalidNameReason(name string) string {
	if strings.TrimSpace(name) == "" {
		return "文件名为空"
	}
	if name == "." || name == ".." {
		return "保留名"
	}
	if strings.ContainsAny(name, `<>:"/\|?*`) {
		return "包含非法字符"
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "包含控制字符"
		}
	}
	return ""
}

func invalidSourceReason(name string) string {
	if name == "" || name == "." || name == ".." {
		return "不是文件名"
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "不能包含路径"
	}
	return ""
}

// Conflict 是执行前预检发现的问题。
type Conflict struct {
	Index int // 条目在计划中的下标
	Entry domain.RenameEntry
	Kind  domain.Kind // source_missing | target_exists
	Msg   string
}

// Preflight 在不修改文件系统的前提下，按计划顺序模拟执行，预先找出会失败的条目：
//
// - 源文件不存在（source_missing）
// - 目标已存在（target_exists），包括与尚未移走的后续条目的源文件撞名
//
// 模拟与 run.Execute 的逐条语义一致：失败条目不改变目录状态。
// OldName == NewName 的条目视为无需执行，不报告。
func Preflight(dir string, plan []domain.RenameEntry) []Conflict {
	dir = filepath.Clean(dir)

	// sim 记录模拟执行后名字的占用情况；未出现的名字以磁盘现状为准。
	sim := make(map[string]bool, 2*len(plan))
	present := func(name string) bool {
		if v, ok := sim[name]; ok {
			return v
		}
		return exists(filepath.Join(dir, name))
	}

	var out []Conflict
	for i, e := range plan {
		if e.OldName == e.NewName {
			continue
		}
		if !present(e.OldName) {
			out = append(out, Conflict{Index: i, Entry: e, Kind: domain.KindSourceMissing, Msg: fmt.Sprintf("源文件不存在：%s", e.OldName)})
			continue
		}
		if present(e.NewName) && !caseOnly(dir, e, sim) {
			out = append(out, Conflict{Index: i, Entry: e, Kind: domain.KindTargetExists, Msg: fmt.Sprintf("目标文件已存在：%s", e.NewName)})
			continue
		}
		sim[e.OldName] = false
		sim[e.NewName] = true
	}
	return out
}

// caseOnly 判断是否只改了大小写：大小写不敏感的文件系统上，新旧名字指向同一个文件。
func caseOnly(dir string, e domain.RenameEntry, sim map[string]bool) bool {
	if _, touched := sim[e.NewName]; touched {
		return false
	}
	return strings.EqualFold(e.OldName, e.NewName) &&
		fsx.SameFile(filepath.Join(dir, e.OldName), filepath.Join(dir, e.NewName))
}

// exists 把无法判断（权限等）的路径按“存在”处理。
func exists(path string) bool {
	ok, err := fsx.Lexists(path)
	return ok || err != nil
}
