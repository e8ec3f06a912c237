package domain

import (
	"path/filepath"
	"strings"
)

// ImageEntry 描述一次目录列举得到的图片文件（只记录名字，不含路径）。
//
// 不变量：
// - Filename 是目录下的直接子项名（不含路径分隔符）
// - Extension 保留原始大小写（例如 ".JPG"），生成新文件名时原样沿用
type ImageEntry struct {
	Filename  string
	Extension string
}

// NewImageEntry 从文件名构造 ImageEntry。
func NewImageEntry(name string) ImageEntry {
	return ImageEntry{Filename: name, Extension: filepath.Ext(name)}
}

// BaseName 返回去掉扩展名后的文件名（"a.b.png" => "a.b"）。
func BaseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
