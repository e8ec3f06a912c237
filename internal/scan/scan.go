package scan

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/imgutils/internal/domain"
)

// ImageExtensions 是固定识别的图片扩展名（小写，带 '.'）。
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

// ListImages 列出 dir 的直接子项中扩展名属于 exts 的普通文件。
//
// 规则：
// - 只看直接子项，不递归；目录一律排除
// - 扩展名大小写不敏感（exts 可以是任意大小写，但必须带 '.'）
// - 返回顺序就是底层 ReadDir 的顺序；需要稳定顺序的调用方必须自己排序
// - 失败降级：目录不存在/无权限等读取失败时返回空结果，而不是报错
//
// 注意：列举阶段只看 DirEntry，不读文件内容。
func ListImages(dir string, exts []string) []domain.ImageEntry {
	accept := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		accept[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}

	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil && len(entries) == 0 {
		return []domain.ImageEntry{}
	}

	out := make([]domain.ImageEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isRegular(dir, e) {
			continue
		}
		name := e.Name()
		if _, ok := accept[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		out = append(out, domain.NewImageEntry(name))
	}
	return out
}

// Names 把 entries 投影为文件名列表（保持顺序）。
func Names(entries []domain.ImageEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Filename)
	}
	return out
}

// isRegular 判断条目是否为普通文件；符号链接按其指向判断（指向目录的链接同样排除）。
func isRegular(dir string, e os.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(filepath.Join(dir, e.Name()))
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular()
}
