package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusPlanned = "planned"
	StatusRenamed = "renamed"
	StatusFailed  = "failed"
	// StatusSkipped 表示条目未执行：新旧名字相同，或严格模式下整批被拦截。
	StatusSkipped = "skipped"
)

// RenameReport 是一次批量重命名对外稳定的输出（report JSON / stdout JSON）。
type RenameReport struct {
	Dir    string `json:"dir"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Planned int `json:"planned"`
	Renamed int `json:"renamed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type ItemResult struct {
	Old string `json:"old"`
	New string `json:"new"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 items 计算得出
//
// items 保持计划顺序（即执行顺序），不重新排序。
func (r *RenameReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Items == nil {
		r.Items = []ItemResult{}
	}

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusPlanned:
			s.Planned++
		case StatusRenamed:
			s.Renamed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	r.Summary = s
}

// Errors 返回每条失败的可读描述（按执行顺序）。
func (r RenameReport) Errors() []string {
	out := make([]string, 0, r.Summary.Failed)
	for _, it := range r.Items {
		if it.Status != StatusFailed {
			continue
		}
		out = append(out, it.Old+" -> "+it.New+": "+it.ErrorMsg)
	}
	return out
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RenameReport) MarshalJSON() ([]byte, error) {
	type Alias RenameReport
	return json.Marshal(Alias(r))
}
