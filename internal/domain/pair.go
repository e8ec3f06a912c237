package domain

// MatchedPair 是两个目录中 base name 相同的一对图片。
//
// 不变量：BaseName == BaseName(NameInA) == BaseName(NameInB)（开启 Unicode 规范化时按 NFC 比较）。
type MatchedPair struct {
	BaseName string `json:"base_name"`
	NameInA  string `json:"name_in_a"`
	NameInB  string `json:"name_in_b"`
}
