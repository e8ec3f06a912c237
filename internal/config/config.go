package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/John-Robertt/imgutils/internal/app/planner"
	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/infra/cache"
	"github.com/John-Robertt/imgutils/internal/viewer"
)

const (
	// ErrCodeInvalid 表示配置文件/.env 无法读取或解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是工作目录下可选的配置文件名。
	FileName = "imgutils.json"

	// EnvAddr / EnvCacheDir 可以写在进程环境变量或工作目录的 .env 里。
	EnvAddr     = "IMGUTILS_ADDR"
	EnvCacheDir = "IMGUTILS_CACHE_DIR"

	// DefaultAddr 只监听本机，端口由系统分配。
	DefaultAddr = "127.0.0.1:0"
	// DefaultThumbSize 是缩略图最长边（像素）。
	DefaultThumbSize = 256
	MinThumbSize     = 32
	MaxThumbSize     = 2048
)

// CLIArgs 是 CLI 能覆盖的字段，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --strict=false 必须能覆盖 strict_rename=true，--start 0 必须能覆盖 rename.start。
type CLIArgs struct {
	Addr    string
	AddrSet bool

	Prefix     string
	PrefixSet  bool
	Postfix    string
	PostfixSet bool
	Padding    int
	PaddingSet bool
	Order      string
	OrderSet   bool
	Start      int
	StartSet   bool

	Apply     bool
	ApplySet  bool
	Strict    bool
	StrictSet bool
}

// FileConfig 对应 imgutils.json 的解析结构。指针字段用于区分“未填写”和“零值”。
type FileConfig struct {
	Addr             string        `json:"addr"`
	IntervalMs       int           `json:"interval_ms"`
	Repeat           *bool         `json:"repeat"`
	ThumbSize        int           `json:"thumb_size"`
	CacheDir         string        `json:"cache_dir"`
	Locale           string        `json:"locale"`
	NormalizeUnicode *bool         `json:"normalize_unicode"`
	StrictRename     *bool         `json:"strict_rename"`
	Rename           *RenameConfig `json:"rename"`
}

type RenameConfig struct {
	Prefix  *string `json:"prefix"`
	Postfix *string `json:"postfix"`
	Padding int     `json:"padding"`
	Order   string  `json:"order"`
	Start   *int    `json:"start"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Addr       string
	IntervalMs int
	Repeat     bool
	ThumbSize  int
	CacheDir   string

	NormalizeUnicode bool

	Apply  bool
	Strict bool

	// Rename 是重命名视图/CLI 的初始参数（Locale 与顶层 locale 一致）。
	Rename planner.Options
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：%q 无效：%v", e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("%s：%q 无效", e.Code, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEnv 读取 <cwd>/.env（可选），再用进程环境变量覆盖同名项。
// 只返回本工具认识的键；不修改进程环境。
func LoadEnv(cwd string) (map[string]string, error) {
	env := make(map[string]string, 2)

	path := filepath.Join(cwd, ".env")
	vals, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	for _, k := range []string{EnvAddr, EnvCacheDir} {
		if v, ok := vals[k]; ok {
			env[k] = v
		}
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	return env, nil
}

// LoadEffective 读取 <cwd>/imgutils.json（可选），并与环境变量、CLI 参数合并为最终配置。
//
// 覆盖优先级（固定）：CLI > 环境变量（含 .env） > 配置文件 > 默认值。
// - addr：CLI --addr > IMGUTILS_ADDR > addr > 127.0.0.1:0
// - cache_dir：IMGUTILS_CACHE_DIR > cache_dir > <UserCacheDir>/imgutils（相对路径以 cwd 为基准）
// - rename.*、strict：CLI > 配置文件 > 默认；apply 只由 CLI 控制（默认 dry-run）
// - 其它字段：仅由配置文件控制
func LoadEffective(cwd string, env map[string]string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return merge(cwdAbs, cfgPath, fc, env, cli)
}

func merge(cwdAbs, cfgPath string, fc FileConfig, env map[string]string, cli CLIArgs) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	addr := firstNonEmpty(strings.TrimSpace(fc.Addr), DefaultAddr)
	if v := strings.TrimSpace(env[EnvAddr]); v != "" {
		addr = v
	}
	if cli.AddrSet {
		addr = strings.TrimSpace(cli.Addr)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return invalid("addr 必须是 host:port：%q", addr)
	}

	interval := fc.IntervalMs
	if interval == 0 {
		interval = viewer.DefaultIntervalMs
	}
	if !viewer.ValidInterval(interval) {
		return invalid("interval_ms 只能是 %v 之一，实际是 %d", viewer.Intervals, interval)
	}

	thumb := fc.ThumbSize
	if thumb == 0 {
		thumb = DefaultThumbSize
	}
	if thumb < MinThumbSize || thumb > MaxThumbSize {
		return invalid("thumb_size 范围是 [%d, %d]，实际是 %d", MinThumbSize, MaxThumbSize, thumb)
	}

	cacheDir := strings.TrimSpace(fc.CacheDir)
	if v := strings.TrimSpace(env[EnvCacheDir]); v != "" {
		cacheDir = v
	}
	if cacheDir == "" {
		cacheDir = cache.DefaultRoot()
	} else {
		cacheDir = absCleanFrom(cwdAbs, cacheDir)
	}

	locale := strings.TrimSpace(fc.Locale)
	if locale != "" {
		if _, err := language.Parse(locale); err != nil {
			return invalid("locale 无效：%q", locale)
		}
	}

	ro := planner.DefaultOptions()
	ro.Locale = locale
	if r := fc.Rename; r != nil {
		if r.Prefix != nil {
			ro.Prefix = *r.Prefix
		}
		if r.Postfix != nil {
			ro.Postfix = *r.Postfix
		}
		if r.Padding != 0 {
			ro.Padding = r.Padding
		}
		if strings.TrimSpace(r.Order) != "" {
			ro.Order = domain.SortOrder(strings.ToLower(strings.TrimSpace(r.Order)))
		}
		if r.Start != nil {
			ro.Start = *r.Start
		}
	}
	if cli.PrefixSet {
		ro.Prefix = cli.Prefix
	}
	if cli.PostfixSet {
		ro.Postfix = cli.Postfix
	}
	if cli.PaddingSet {
		ro.Padding = cli.Padding
	}
	if cli.OrderSet {
		ro.Order = domain.SortOrder(strings.ToLower(strings.TrimSpace(cli.Order)))
	}
	if cli.StartSet {
		ro.Start = cli.Start
	}
	if ro.Padding < 1 || ro.Padding > planner.MaxPadding {
		return invalid("补零宽度范围是 [1, %d]，实际是 %d", planner.MaxPadding, ro.Padding)
	}
	if _, ok := domain.ParseSortOrder(string(ro.Order)); !ok {
		return invalid("排序方向只能是 asc 或 desc，实际是 %q", ro.Order)
	}

	// strict：CLI > config > 默认 false
	apply := cli.ApplySet && cli.Apply
	strict := false
	if fc.StrictRename != nil {
		strict = *fc.StrictRename
	}
	if cli.StrictSet {
		strict = cli.Strict
	}

	return EffectiveConfig{
		Addr:             addr,
		IntervalMs:       interval,
		Repeat:           fc.Repeat != nil && *fc.Repeat,
		ThumbSize:        thumb,
		CacheDir:         cacheDir,
		NormalizeUnicode: fc.NormalizeUnicode != nil && *fc.NormalizeUnicode,
		Apply:            apply,
		Strict:           strict,
		Rename:           ro,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
