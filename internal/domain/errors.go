package domain

import (
	"errors"
	"fmt"
)

// Kind 是面向用户的错误分类（同时作为 report 里的 error_code）。
type Kind string

const (
	// KindSelection 表示目录选择数量不对或交互选择被取消；操作在打开视图之前终止。
	KindSelection Kind = "selection_error"
	// KindEmptyResult 表示没有找到图片/没有匹配；属于提示信息，操作终止。
	KindEmptyResult Kind = "empty_result"
	// KindSourceMissing 表示执行时源文件已不存在（单条失败，批次继续）。
	KindSourceMissing Kind = "source_missing"
	// KindTargetExists 表示执行时目标文件已存在（单条失败，批次继续）。
	KindTargetExists Kind = "target_exists"
	// KindDuplicatePlan 表示计划中出现重复的新文件名；在任何落盘之前整体拒绝。
	KindDuplicatePlan Kind = "duplicate_plan"
	// KindInvalidName 表示计划中的文件名不是合法的单级文件名；整体拒绝。
	KindInvalidName Kind = "invalid_name"
	// KindFilesystem 表示意外的 I/O 失败。
	KindFilesystem Kind = "filesystem_error"
	// KindCanceled 表示批次被取消，剩余条目不再执行。
	KindCanceled Kind = "canceled"
)

// Error 是带分类的结构化错误。Msg 是可以直接展示给用户的文本。
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s：%v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf 构造指定分类的错误。
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf 从 error 中提取分类；若不是 *Error 则返回空串。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind 判断 err 是否属于 kind。
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
