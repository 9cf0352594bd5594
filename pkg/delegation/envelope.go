// Package delegation 提供意图到执行器的委派信封构建
package delegation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/KodaTao/ScheduleAgent/pkg/intent"
	"github.com/KodaTao/ScheduleAgent/pkg/interpret"
)

// Target 执行器标识
type Target string

const (
	// TargetCalendar 日历执行器
	TargetCalendar Target = "calendar_executor"
	// TargetTask 任务执行器
	TargetTask Target = "task_executor"
	// TargetNone 无需委派（内联处理）
	TargetNone Target = ""
)

// Envelope 委派信封：意图解释层与专门执行器之间的规范化契约
// 不变量：Message 永远是纯字符串，结构化载荷在构建时序列化，
// 下游执行器把 Message 当作不透明文本
type Envelope struct {
	RequestID   string                       `json:"request_id"`
	UserID      string                       `json:"user_id"`
	TargetAgent Target                       `json:"targetAgent"`
	Intent      intent.Intent                `json:"intent"`
	Events      []interpret.EventDescriptor  `json:"events,omitempty"`
	Task        *interpret.TaskDescriptor    `json:"task,omitempty"`
	EventRef    string                       `json:"eventRef,omitempty"`
	Diagnostics []interpret.Diagnostic       `json:"diagnostics,omitempty"`
	Message     string                       `json:"message"`
}

// 构建错误
var (
	// ErrUnroutableIntent 意图没有对应的执行器
	ErrUnroutableIntent = errors.New("no executor route for intent")
)

// DefaultRoutes 返回固定的意图→执行器映射表
// 显式传入构建器，而不是从全局状态查找
func DefaultRoutes() map[intent.Intent]Target {
	return map[intent.Intent]Target{
		intent.IntentCreateEvent:      TargetCalendar,
		intent.IntentViewCalendar:     TargetCalendar,
		intent.IntentUpdateEvent:      TargetCalendar,
		intent.IntentDeleteEvent:      TargetCalendar,
		intent.IntentCreateTask:       TargetTask,
		intent.IntentViewTasks:        TargetTask,
		intent.IntentMarkTaskComplete: TargetTask,
		intent.IntentGeneralQuery:     TargetNone,
	}
}

// Builder 委派信封构建器
// 纯构建步骤，不做任何 I/O
type Builder struct {
	routes map[intent.Intent]Target
}

// NewBuilder 创建信封构建器
// routes 为 nil 时使用 DefaultRoutes
func NewBuilder(routes map[intent.Intent]Target) *Builder {
	if routes == nil {
		routes = DefaultRoutes()
	}
	return &Builder{routes: routes}
}

// Input 构建输入
type Input struct {
	Intent      intent.Intent
	UserID      string
	RawText     string
	Events      []interpret.EventDescriptor
	Task        *interpret.TaskDescriptor
	EventRef    string
	Diagnostics []interpret.Diagnostic
}

// Build 构建委派信封
// Message 在此规范化为字符串：结构化实体先序列化再赋值
func (b *Builder) Build(in Input) (*Envelope, error) {
	target, ok := b.routes[in.Intent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnroutableIntent, in.Intent)
	}

	message, err := canonicalMessage(in)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize message: %w", err)
	}

	return &Envelope{
		RequestID:   uuid.NewString(),
		UserID:      in.UserID,
		TargetAgent: target,
		Intent:      in.Intent,
		Events:      in.Events,
		Task:        in.Task,
		EventRef:    in.EventRef,
		Diagnostics: in.Diagnostics,
		Message:     message,
	}, nil
}

// canonicalMessage 将载荷规范化为纯字符串
// 有结构化实体时序列化实体，否则使用原始文本
func canonicalMessage(in Input) (string, error) {
	switch {
	case len(in.Events) > 0:
		data, err := json.Marshal(in.Events)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case in.Task != nil:
		data, err := json.Marshal(in.Task)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return in.RawText, nil
	}
}
