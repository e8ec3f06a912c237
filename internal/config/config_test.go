package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/infra/cache"
)

func TestLoadEffective_Defaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, nil, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Addr != DefaultAddr || eff.IntervalMs != 2000 || eff.ThumbSize != DefaultThumbSize {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.CacheDir != cache.DefaultRoot() {
		t.Fatalf("期望默认缓存目录 %q，实际 %q", cache.DefaultRoot(), eff.CacheDir)
	}
	if eff.Apply || eff.Strict || eff.Repeat || eff.NormalizeUnicode {
		t.Fatalf("布尔开关默认应为 false：%+v", eff)
	}
	r := eff.Rename
	if r.Padding != 5 || r.Start != 1 || r.Order != domain.OrderAsc || r.Prefix != "" || r.Postfix != "" {
		t.Fatalf("重命名默认参数不符合预期：%+v", r)
	}
}

func TestLoadEffective_Precedence_CLI_Env_File(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{
		"addr": "127.0.0.1:7000",
		"cache_dir": "from-file",
		"interval_ms": 500,
		"repeat": true,
		"strict_rename": true,
		"rename": {"prefix": "IMG_", "padding": 3, "order": "DESC", "start": 10}
	}`))

	// 只有配置文件。
	eff, err := LoadEffective(cwd, nil, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Addr != "127.0.0.1:7000" || eff.CacheDir != filepath.Join(cwd, "from-file") {
		t.Fatalf("配置文件的值未生效：%+v", eff)
	}
	if eff.IntervalMs != 500 || !eff.Repeat || !eff.Strict {
		t.Fatalf("配置文件的值未生效：%+v", eff)
	}
	if eff.Rename.Prefix != "IMG_" || eff.Rename.Padding != 3 || eff.Rename.Order != domain.OrderDesc || eff.Rename.Start != 10 {
		t.Fatalf("rename 配置未生效：%+v", eff.Rename)
	}

	// 环境变量覆盖配置文件。
	env := map[string]string{EnvAddr: "127.0.0.1:8000", EnvCacheDir: "/tmp/imgutils-env"}
	eff, err = LoadEffective(cwd, env, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Addr != "127.0.0.1:8000" || eff.CacheDir != filepath.Clean("/tmp/imgutils-env") {
		t.Fatalf("环境变量应覆盖配置文件：%+v", eff)
	}

	// CLI 覆盖一切，包括显式的零值。
	eff, err = LoadEffective(cwd, env, CLIArgs{
		Addr: "localhost:9000", AddrSet: true,
		Prefix: "", PrefixSet: true,
		Start: 0, StartSet: true,
		Strict: false, StrictSet: true,
		Apply: true, ApplySet: true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Addr != "localhost:9000" || eff.Rename.Prefix != "" || eff.Rename.Start != 0 || eff.Strict || !eff.Apply {
		t.Fatalf("CLI 应覆盖环境变量与配置文件：%+v", eff)
	}
	if eff.Rename.Padding != 3 {
		t.Fatalf("CLI 未指定的字段应保留配置文件的值：%+v", eff.Rename)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := map[string]string{
		"坏 JSON":   `{`,
		"间隔不在菜单里": `{"interval_ms": 750}`,
		"缩略图太小":    `{"thumb_size": 8}`,
		"补零过宽":     `{"rename": {"padding": 11}}`,
		"排序方向":     `{"rename": {"order": "random"}}`,
		"addr":     `{"addr": "no-port"}`,
		"locale":   `{"locale": "??"}`,
	}
	for name, body := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, FileName), []byte(body))

		_, err := LoadEffective(cwd, nil, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v (code=%q)", name, ErrCodeInvalid, err, Code(err))
		}
	}
}

func TestLoadEffective_CLIPaddingValidated(t *testing.T) {
	_, err := LoadEffective(t.TempDir(), nil, CLIArgs{Padding: 0, PaddingSet: true})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("--pad 0 应报错，实际 err=%v", err)
	}
}

func TestLoadEnv_DotEnvAndProcessEnv(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, ".env"), []byte("IMGUTILS_ADDR=127.0.0.1:7777\nIMGUTILS_CACHE_DIR=dotenv-cache\nOTHER=1\n"))

	t.Setenv(EnvAddr, "")
	os.Unsetenv(EnvAddr)
	t.Setenv(EnvCacheDir, "/from/process")

	env, err := LoadEnv(cwd)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if env[EnvAddr] != "127.0.0.1:7777" {
		t.Fatalf(".env 的值未读取：%v", env)
	}
	if env[EnvCacheDir] != "/from/process" {
		t.Fatalf("进程环境变量应覆盖 .env：%v", env)
	}
	if _, ok := env["OTHER"]; ok {
		t.Fatalf("不认识的键不应返回：%v", env)
	}
	if _, ok := os.LookupEnv("OTHER"); ok {
		t.Fatalf("LoadEnv 不应修改进程环境")
	}
}

func TestLoadEnv_NoDotEnv(t *testing.T) {
	t.Setenv(EnvAddr, "")
	os.Unsetenv(EnvAddr)
	env, err := LoadEnv(t.TempDir())
	if err != nil {
		t.Fatalf("没有 .env 不应报错：%v", err)
	}
	if _, ok := env[EnvAddr]; ok {
		t.Fatalf("期望空结果：%v", env)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
