// Package host 把核心逻辑接到宿主进程：选择目录、为视图服务器提供页面与媒体、执行视图发起的重命名。
package host

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/imgutils/internal/domain"
)

// Prompter 交互式地让用户选择一个目录。ok=false 表示用户取消。
type Prompter interface {
	PickFolder(title string) (dir string, ok bool, err error)
}

// ResolveComparison 决定对比视图使用的两个目录。
//
// - 恰好选了 2 个：直接使用
// - 一个都没选且有 Prompter：依次询问第一个、第二个
// - 其它数量或任一次询问被取消：selection_error，不打开任何视图
func ResolveComparison(selected []string, p Prompter) (string, string, error) {
	switch {
	case len(selected) == 2:
		a, err := checkDir(selected[0])
		if err != nil {
			return "", "", err
		}
		b, err := checkDir(selected[1])
		if err != nil {
			return "", "", err
		}
		return a, b, nil
	case len(selected) != 0 || p == nil:
		return "", "", domain.Errorf(domain.KindSelection, "请恰好选择 2 个文件夹（当前选择了 %d 个）", len(selected))
	}

	a, err := pick(p, "选择第一个文件夹", "未选择第一个文件夹")
	if err != nil {
		return "", "", err
	}
	b, err := pick(p, "选择第二个文件夹", "未选择第二个文件夹")
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

// ResolveFolder 决定预览/重命名视图使用的目录：选了 1 个就用它，没选就询问。
func ResolveFolder(selected []string, p Prompter) (string, error) {
	switch {
	case len(selected) == 1:
		return checkDir(selected[0])
	case len(selected) != 0 || p == nil:
		return "", domain.Errorf(domain.KindSelection, "请选择 1 个文件夹（当前选择了 %d 个）", len(selected))
	}
	return pick(p, "选择文件夹", "未选择文件夹")
}

func pick(p Prompter, title, canceled string) (string, error) {
	dir, ok, err := p.PickFolder(title)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindSelection, Msg: canceled + "：" + err.Error(), Err: err}
	}
	if !ok || strings.TrimSpace(dir) == "" {
		return "", domain.Errorf(domain.KindSelection, "%s", canceled)
	}
	return checkDir(dir)
}

// checkDir 返回目录的绝对路径；路径不存在或不是目录时报 selection_error。
func checkDir(dir string) (string, error) {
	abs, err := filepath.Abs(strings.TrimSpace(dir))
	if err != nil {
		return "", &domain.Error{Kind: domain.KindSelection, Msg: "无法解析路径：" + dir, Err: err}
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindSelection, Msg: "文件夹不存在：" + abs, Err: err}
	}
	if !fi.IsDir() {
		return "", domain.Errorf(domain.KindSelection, "不是文件夹：%s", abs)
	}
	return abs, nil
}
