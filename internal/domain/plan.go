package domain

// RenameEntry 规划一次重命名（只描述 old/new；真正执行由 run 包负责）。
//
// 约束：
// - 同一份计划中 NewName 必须唯一
// - OldName 在执行时必须存在于目标目录
type RenameEntry struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

// SortOrder 是重命名前按当前文件名排序的方向。
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortOrder 校验排序方向；空串视为 asc。
func ParseSortOrder(s string) (SortOrder, bool) {
	switch s {
	case "", "asc":
		return OrderAsc, true
	case "desc":
		return OrderDesc, true
	default:
		return "", false
	}
}
