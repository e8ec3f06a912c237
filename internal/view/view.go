// Package view 渲染三个视图页面（对比、预览、重命名），模板与脚本都嵌入在二进制里。
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
)

//go:embed templates/*.html static/*
var files embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(files, "templates/*.html"))

// Kind 是页面类型。
type Kind string

const (
	KindCompare Kind = "compare"
	KindPreview Kind = "preview"
	KindRename  Kind = "rename"
)

// Side 标识媒体文件属于哪个目录：对比页有 a/b 两侧，其它页只有 a。
const (
	SideA = "a"
	SideB = "b"
)

// Pair 是对比页的一行。
type Pair struct {
	BaseName string `json:"baseName"`
	NameA    string `json:"nameA"`
	NameB    string `json:"nameB"`
	URLA     string `json:"urlA"`
	URLB     string `json:"urlB"`
}

// Image 是预览页/重命名页的一项。
type Image struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Thumb string `json:"thumb"`
	Meta  string `json:"meta"`
}

// RenameRow 是重命名预览的一行。
type RenameRow struct {
	Old string `json:"oldName"`
	New string `json:"newName"`
}

// RenameForm 是重命名页的表单初始值与预览。
type RenameForm struct {
	Prefix     string
	Postfix    string
	Padding    int
	MaxPadding int
	Order      string
	Start      int
	Rows       []RenameRow
	Error      string
}

// Page 是渲染一个页面需要的全部数据。
type Page struct {
	Kind  Kind
	Title string
	DirA  string
	DirB  string

	Pairs  []Pair
	Images []Image
	Rename RenameForm

	Intervals  []int
	IntervalMs int
	Repeat     bool
}

// Data 是以 JSON 形式嵌入页面、供脚本使用的数据。
type Data struct {
	Kind       Kind    `json:"kind"`
	Pairs      []Pair  `json:"pairs"`
	Images     []Image `json:"images"`
	IntervalMs int     `json:"intervalMs"`
	Repeat     bool    `json:"repeat"`
}

// Data 返回嵌入页面的 JSON 数据（nil 切片输出为 []）。
func (p Page) Data() Data {
	d := Data{Kind: p.Kind, Pairs: p.Pairs, Images: p.Images, IntervalMs: p.IntervalMs, Repeat: p.Repeat}
	if d.Pairs == nil {
		d.Pairs = []Pair{}
	}
	if d.Images == nil {
		d.Images = []Image{}
	}
	return d
}

// Count 返回页面上的条目数（对比页是配对数，其它页是图片数）。
func (p Page) Count() int {
	if p.Kind == KindCompare {
		return len(p.Pairs)
	}
	return len(p.Images)
}

// Last 返回最后一项的下标（没有条目时为 0），用作滑块上限。
func (p Page) Last() int {
	if n := p.Count(); n > 0 {
		return n - 1
	}
	return 0
}

// Render 把页面写到 w。
func Render(w io.Writer, p Page) error {
	switch p.Kind {
	case KindCompare, KindPreview, KindRename:
	default:
		return fmt.Errorf("未知页面类型：%q", p.Kind)
	}
	return pages.ExecuteTemplate(w, string(p.Kind)+".html", p)
}

// Static 返回 /static/ 下脚本与样式的处理器（调用方负责 StripPrefix）。
func Static() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

func MediaURL(side, name string) string { return "/media/" + side + "/" + url.PathEscape(name) }
func ThumbURL(side, name string) string { return "/thumb/" + side + "/" + url.PathEscape(name) }
func MetaURL(side, name string) string  { return "/meta/" + side + "/" + url.PathEscape(name) }
