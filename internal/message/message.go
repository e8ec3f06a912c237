// Package message 定义宿主进程与视图页面之间的消息格式。
//
// 视图 -> 宿主：JSON 对象，以 "command" 字段区分类型（见 Decode）。
// 宿主 -> 视图：Outbound，以 "type" 字段区分类型。
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/viewer"
)

// 视图 -> 宿主的命令名。
const (
	CmdAlert           = "alert"
	CmdExecuteRename   = "executeRename"
	CmdPlanRename      = "planRename"
	CmdConfirmReply    = "confirmReply"
	CmdNext            = "next"
	CmdPrev            = "prev"
	CmdSeek            = "seek"
	CmdPlay            = "play"
	CmdPause           = "pause"
	CmdToggle          = "toggle"
	CmdSetInterval     = "setInterval"
	CmdToggleRepeat    = "toggleRepeat"
	CmdSetRepeat       = "setRepeat"
	CmdDrag            = "drag"
	CmdWheel           = "wheel"
	CmdOpenFullscreen  = "openFullscreen"
	CmdCloseFullscreen = "closeFullscreen"
)

// Inbound 是视图发来的一条命令。具体类型见下方各结构体。
type Inbound interface {
	Command() string
}

// Alert 请求宿主显示一条错误提示。
type Alert struct {
	Text string `json:"text"`
}

// ExecuteRename 请求宿主确认后执行重命名。
type ExecuteRename struct {
	RenameList     []domain.RenameEntry `json:"renameList"`
	ConfirmMessage string               `json:"confirmMessage"`
}

// PlanRename 请求宿主按参数生成预览计划。
type PlanRename struct {
	Prefix  string `json:"prefix"`
	Postfix string `json:"postfix"`
	Padding int    `json:"padding"`
	Order   string `json:"order"`
	Start   int    `json:"start"`
}

// ConfirmReply 是对 Outbound{Type: "confirm"} 的回答。
type ConfirmReply struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
}

type Next struct{}
type Prev struct{}
type Play struct{}
type Pause struct{}
type Toggle struct{}
type ToggleRepeat struct{}
type CloseFullscreen struct{}

type Seek struct {
	Index int `json:"index"`
}

type SetInterval struct {
	IntervalMs int `json:"intervalMs"`
}

type SetRepeat struct {
	Repeat bool `json:"repeat"`
}

// Drag 是一次指针拖动的位移。
type Drag struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type Wheel struct {
	DeltaY float64 `json:"deltaY"`
}

// OpenFullscreen 在预览页打开全屏查看（从 Index 开始）。
type OpenFullscreen struct {
	Index int `json:"index"`
}

func (Alert) Command() string           { return CmdAlert }
func (ExecuteRename) Command() string   { return CmdExecuteRename }
func (PlanRename) Command() string      { return CmdPlanRename }
func (ConfirmReply) Command() string    { return CmdConfirmReply }
func (Next) Command() string            { return CmdNext }
func (Prev) Command() string            { return CmdPrev }
func (Seek) Command() string            { return CmdSeek }
func (Play) Command() string            { return CmdPlay }
func (Pause) Command() string           { return CmdPause }
func (Toggle) Command() string          { return CmdToggle }
func (SetInterval) Command() string     { return CmdSetInterval }
func (ToggleRepeat) Command() string    { return CmdToggleRepeat }
func (SetRepeat) Command() string       { return CmdSetRepeat }
func (Drag) Command() string            { return CmdDrag }
func (Wheel) Command() string           { return CmdWheel }
func (OpenFullscreen) Command() string  { return CmdOpenFullscreen }
func (CloseFullscreen) Command() string { return CmdCloseFullscreen }

// ErrUnknownCommand 表示 command 字段缺失或不认识。
var ErrUnknownCommand = errors.New("未知命令")

// Decode 把一条视图消息解码为具体的命令类型。
func Decode(b []byte) (Inbound, error) {
	var head struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("消息不是合法 JSON：%w", err)
	}

	var in Inbound
	switch strings.TrimSpace(head.Command) {
	case CmdAlert:
		in = &Alert{}
	case CmdExecuteRename:
		in = &ExecuteRename{}
	case CmdPlanRename:
		in = &PlanRename{}
	case CmdConfirmReply:
		in = &ConfirmReply{}
	case CmdNext:
		return Next{}, nil
	case CmdPrev:
		return Prev{}, nil
	case CmdSeek:
		in = &Seek{}
	case CmdPlay:
		return Play{}, nil
	case CmdPause:
		return Pause{}, nil
	case CmdToggle:
		return Toggle{}, nil
	case CmdSetInterval:
		in = &SetInterval{}
	case CmdToggleRepeat:
		return ToggleRepeat{}, nil
	case CmdSetRepeat:
		in = &SetRepeat{}
	case CmdDrag:
		in = &Drag{}
	case CmdWheel:
		in = &Wheel{}
	case CmdOpenFullscreen:
		in = &OpenFullscreen{}
	case CmdCloseFullscreen:
		return CloseFullscreen{}, nil
	case "":
		return nil, fmt.Errorf("%w：缺少 command 字段", ErrUnknownCommand)
	default:
		return nil, fmt.Errorf("%w：%q", ErrUnknownCommand, head.Command)
	}

	if err := json.Unmarshal(b, in); err != nil {
		return nil, fmt.Errorf("%s 消息格式错误：%w", head.Command, err)
	}
	return deref(in), nil
}

// deref 让调用方总是拿到值类型，type switch 只需要写一种形式。
func deref(in Inbound) Inbound {
	switch v := in.(type) {
	case *Alert:
		return *v
	case *ExecuteRename:
		return *v
	case *PlanRename:
		return *v
	case *ConfirmReply:
		return *v
	case *Seek:
		return *v
	case *SetInterval:
		return *v
	case *SetRepeat:
		return *v
	case *Drag:
		return *v
	case *Wheel:
		return *v
	case *OpenFullscreen:
		return *v
	}
	return in
}

// 宿主 -> 视图的消息类型。
const (
	TypeState   = "state"
	TypePlan    = "plan"
	TypeConfirm = "confirm"
	TypeInfo    = "info"
	TypeError   = "error"
	TypeReload  = "reload"
)

// Outbound 是宿主发给视图的一条消息。未用到的字段不输出。
type Outbound struct {
	Type    string               `json:"type"`
	State   *viewer.State        `json:"state,omitempty"`
	Entries []domain.RenameEntry `json:"entries,omitempty"`
	Error   string               `json:"error,omitempty"`
	ID      string               `json:"id,omitempty"`
	Message string               `json:"message,omitempty"`
}

func StateOf(st viewer.State) Outbound { return Outbound{Type: TypeState, State: &st} }

// PlanOf 携带预览计划；err 非空时只带错误文本（视图据此禁用执行按钮）。
func PlanOf(entries []domain.RenameEntry, err error) Outbound {
	if err != nil {
		return Outbound{Type: TypePlan, Error: err.Error()}
	}
	return Outbound{Type: TypePlan, Entries: entries}
}

func Confirm(id, msg string) Outbound { return Outbound{Type: TypeConfirm, ID: id, Message: msg} }
func Info(msg string) Outbound        { return Outbound{Type: TypeInfo, Message: msg} }
func Error(msg string) Outbound       { return Outbound{Type: TypeError, Message: msg} }
func Reload() Outbound                { return Outbound{Type: TypeReload} }
