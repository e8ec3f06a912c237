package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/John-Robertt/imgutils/internal/app/host"
	"github.com/John-Robertt/imgutils/internal/app/planner"
	"github.com/John-Robertt/imgutils/internal/app/run"
	"github.com/John-Robertt/imgutils/internal/config"
	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/infra/cache"
	"github.com/John-Robertt/imgutils/internal/scan"
	"github.com/John-Robertt/imgutils/internal/view"
	"github.com/John-Robertt/imgutils/internal/viewserver"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	var code int
	switch args[0] {
	case "compare":
		code = compareCmd(args[1:])
	case "preview":
		code = previewCmd(args[1:])
	case "rename":
		code = renameCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		code = 2
	}
	if code != 0 {
		os.Exit(code)
	}
}

func compareCmd(args []string) int {
	if wantsHelp(args) {
		printUsage()
		return 0
	}
	ca, err := parseArgs(args, compareFlags)
	if err != nil {
		return usageError(err)
	}
	a, b, err := host.ResolveComparison(ca.Dirs, prompter())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	eff, err := loadConfig(ca.CLI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误：%v\n", err)
		return 1
	}
	return serve(host.Options{Kind: view.KindCompare, DirA: a, DirB: b}, eff, ca.Verbose)
}

func previewCmd(args []string) int {
	if wantsHelp(args) {
		printUsage()
		return 0
	}
	ca, err := parseArgs(args, previewFlags)
	if err != nil {
		return usageError(err)
	}
	dir, err := host.ResolveFolder(ca.Dirs, prompter())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	eff, err := loadConfig(ca.CLI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误：%v\n", err)
		return 1
	}
	return serve(host.Options{Kind: view.KindPreview, DirA: dir}, eff, ca.Verbose)
}

func renameCmd(args []string) int {
	if wantsHelp(args) {
		printRenameUsage()
		return 0
	}
	ca, err := parseArgs(args, renameFlags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRenameUsage()
		return 2
	}
	dir, err := host.ResolveFolder(ca.Dirs, prompter())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	eff, err := loadConfig(ca.CLI)
	if err != nil {
		if ca.Serve {
			fmt.Fprintf(os.Stderr, "配置错误：%v\n", err)
			return 1
		}
		emitReport(reportForError(dir, !(ca.CLI.ApplySet && ca.CLI.Apply), string(config.Code(err)), err))
		return 1
	}
	if ca.Serve {
		return serve(host.Options{Kind: view.KindRename, DirA: dir}, eff, ca.Verbose)
	}
	return renameBatch(dir, eff, ca.Yes)
}

// renameBatch 在终端里完成一次批量重命名：默认 dry-run，--apply 时先确认再执行。
func renameBatch(dir string, eff config.EffectiveConfig, yes bool) int {
	entries := scan.ListImages(dir, scan.ImageExtensions)
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "目录中没有图片")
		emitReport(reportForError(dir, !eff.Apply, "", nil))
		return 0
	}
	plan, err := planner.Plan(entries, eff.Rename)
	if err != nil {
		emitReport(reportForError(dir, !eff.Apply, string(domain.KindOf(err)), err))
		return 1
	}

	apply, aborted := eff.Apply, false
	if apply && !yes {
		if !isTTY(os.Stdin) {
			fmt.Fprintln(os.Stderr, "非交互环境下执行重命名需要 --yes；本次只做 dry-run")
			apply, aborted = false, true
		} else {
			ok, err := newLinePrompter(os.Stdin, os.Stderr).Confirm(host.ConfirmText(len(plan), ""))
			if err != nil || !ok {
				fmt.Fprintln(os.Stderr, "已取消，未做任何修改")
				apply = false
			}
		}
	}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW, termWidth(progressW))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rr, err := run.Execute(ctx, dir, plan, run.Options{DryRun: !apply, Strict: eff.Strict, Observer: obs})
	if err != nil {
		emitReport(reportForError(dir, !apply, string(domain.KindOf(err)), err))
		return 1
	}

	// apply：report 写到缓存目录；dry-run 不落盘。
	if apply {
		path, err := cache.New(eff.CacheDir, false).WriteReport(rr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "写入 report 失败：%v\n", err)
		} else if interactive {
			fmt.Fprintf(progressW, "report: %s\n", path)
		}
	}

	emitReport(rr)
	if aborted || rr.Summary.Failed > 0 {
		return 1
	}
	return 0
}

// serve 打开视图服务器并阻塞到 Ctrl-C / SIGTERM。
func serve(opts host.Options, eff config.EffectiveConfig, verbose bool) int {
	log := newLogger(verbose)

	opts.IntervalMs = eff.IntervalMs
	opts.Repeat = eff.Repeat
	opts.NormalizeUnicode = eff.NormalizeUnicode
	opts.Rename = eff.Rename
	opts.Strict = eff.Strict
	opts.Store = cache.New(eff.CacheDir, false)
	opts.ThumbSize = eff.ThumbSize
	opts.Logger = log

	ws, err := host.NewWorkspace(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if _, err := ws.Page(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if domain.IsKind(err, domain.KindEmptyResult) {
			return 0
		}
		return 1
	}

	srv := viewserver.New(ws, viewserver.Options{Addr: eff.Addr, Logger: log})
	if err := srv.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintln(os.Stdout, srv.URL())
	fmt.Fprintf(os.Stderr, "在浏览器中打开 %s ，按 Ctrl-C 退出\n", srv.URL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	select {
	case <-ctx.Done():
	case err, ok := <-srv.Err():
		if ok && err != nil {
			log.Error("view server stopped", "err", err)
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", "err", err)
	}
	return code
}

func loadConfig(cli config.CLIArgs) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, err
	}
	env, err := config.LoadEnv(cwd)
	if err != nil {
		return config.EffectiveConfig{}, err
	}
	return config.LoadEffective(cwd, env, cli)
}

// prompter 只在 stdin 是终端时提供交互式目录选择。
func prompter() host.Prompter {
	if !isTTY(os.Stdin) {
		return nil
	}
	return newLinePrompter(os.Stdin, os.Stderr)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func emitReport(rr domain.RenameReport) {
	summary := fmt.Sprintf("完成：planned=%d renamed=%d failed=%d skipped=%d",
		rr.Summary.Planned, rr.Summary.Renamed, rr.Summary.Failed, rr.Summary.Skipped,
	)
	if isTTY(os.Stdout) {
		fmt.Fprintln(os.Stdout, summary)
		for _, e := range rr.Errors() {
			fmt.Fprintln(os.Stderr, e)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RenameReport JSON（日志/摘要走 stderr）。
	_ = json.NewEncoder(os.Stdout).Encode(rr)
	fmt.Fprintln(os.Stderr, summary)
}

// reportForError 为整批被拒绝（配置错误、计划不合法）或没有图片的情况构造 report。
// err 为 nil 时得到一个空 report。
func reportForError(dir string, dryRun bool, code string, err error) domain.RenameReport {
	now := time.Now().UTC()
	abs, _ := filepath.Abs(dir)
	rr := domain.RenameReport{
		Dir:        abs,
		DryRun:     dryRun,
		StartedAt:  now,
		FinishedAt: now,
	}
	if err != nil {
		if code == "" {
			code = string(domain.KindFilesystem)
		}
		rr.Items = []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
		}}
	}
	rr.Finalize()
	return rr
}

func usageError(err error) int {
	fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
	printUsage()
	return 2
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		if isHelp(a) {
			return true
		}
	}
	return false
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  imgutils compare [dirA dirB] [--addr host:port] [-v]
  imgutils preview [dir]       [--addr host:port] [-v]
  imgutils rename  [dir] [选项]

命令：
  compare  并排对比两个目录中同名（忽略扩展名）的图片
  preview  以网格/列表/全屏方式浏览目录中的图片
  rename   按 前缀 + 补零序号 + 后缀 批量重命名（默认 dry-run）

不指定目录且在终端中运行时会逐个询问。
使用 "imgutils rename --help" 查看重命名的详细说明。
`)
}

func printRenameUsage() {
	fmt.Fprint(os.Stdout, `用法：
  imgutils rename [dir] [--prefix P] [--postfix S] [--pad N] [--order asc|desc]
                  [--start N] [--apply[=true|false]] [--yes] [--strict[=true|false]]
                  [--serve] [--addr host:port] [-v]

参数：
  --prefix    新文件名前缀（默认空）
  --postfix   新文件名后缀，位于扩展名之前（默认空）
  --pad       序号补零宽度 1..10（默认 5）
  --order     按当前文件名排序的方向：asc|desc（默认 asc）
  --start     起始序号，可以为 0 或负数（默认 1）
  --apply     真正执行重命名（默认 dry-run）；执行前需要确认
  --yes       跳过确认（非交互环境下 --apply 必须同时指定）
  --strict    先预检整批，有任何冲突则整批不执行
  --serve     打开重命名视图而不是在终端里执行
  -h, --help  显示帮助
`)
}
