package app

import (
	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/imgutils/internal/domain"
)

// PairOptions 控制 base name 的比较方式。
type PairOptions struct {
	// NormalizeUnicode 为 true 时按 NFC 规范化后比较 base name
	// （macOS 上的文件名常是 NFD，与其它平台拷来的 NFC 名字字节不同）。
	NormalizeUnicode bool
}

// PairByBase 把 a、b 两组文件名按 base name（去扩展名）配对。
//
// - 输出顺序跟随 a
// - a 中每一项取 b 中第一个 base name 相同的条目（first match wins）
// - b 的条目可以被多个 a 条目复用（按名字匹配，不做“取走”）
// - 没有对应项的条目直接丢弃，不单独报告
//
// 先用 b 建立 base name -> 第一个名字 的索引，复杂度 O(|a|+|b|)，结果与逐个扫描 b 完全一致。
func PairByBase(a, b []string, opts PairOptions) []domain.MatchedPair {
	key := func(name string) string {
		base := domain.BaseName(name)
		if opts.NormalizeUnicode {
			return norm.NFC.String(base)
		}
		return base
	}

	firstInB := make(map[string]string, len(b))
	for _, name := range b {
		k := key(name)
		if _, ok := firstInB[k]; ok {
			continue
		}
		firstInB[k] = name
	}

	pairs := make([]domain.MatchedPair, 0, len(a))
	for _, name := range a {
		match, ok := firstInB[key(name)]
		if !ok {
			continue
		}
		pairs = append(pairs, domain.MatchedPair{
			BaseName: domain.BaseName(name),
			NameInA:  name,
			NameInB:  match,
		})
	}
	return pairs
}
