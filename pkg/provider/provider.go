// Package provider 提供日历/任务 Provider 适配层接口和本地实现
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind Provider 失败类别
type ErrorKind string

const (
	// KindAuthExpired 凭证过期
	KindAuthExpired ErrorKind = "auth_expired"
	// KindNotFound 资源不存在
	KindNotFound ErrorKind = "not_found"
	// KindRateLimited 被限流
	KindRateLimited ErrorKind = "rate_limited"
	// KindUnavailable 服务不可用
	KindUnavailable ErrorKind = "unavailable"
)

// Error Provider 类型化失败
// 替代把异常当控制流：执行器按类别决定重试和汇报策略
type Error struct {
	Kind    ErrorKind
	Message string
}

// 实现 error 接口
func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Kind, e.Message)
}

// NewError 创建类型化 Provider 失败
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf 提取 Provider 失败类别，非 Provider 错误返回空串
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Retryable 判断失败类别是否适合只读重试
func Retryable(kind ErrorKind) bool {
	return kind == KindRateLimited || kind == KindUnavailable
}

// Event Provider 侧的日历事件
type Event struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Task Provider 侧的任务
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Due         *time.Time `json:"due,omitempty"`
	Done        bool       `json:"done"`
}

// CalendarProvider 日历能力面
// 执行器消费的最小接口，具体实现（本地库、Google 等）在外部
type CalendarProvider interface {
	// CreateEvent 创建事件，返回 Provider 侧引用
	CreateEvent(ctx context.Context, event Event) (string, error)

	// ListEvents 列出时间窗口内的事件
	ListEvents(ctx context.Context, userID string, from, to time.Time) ([]Event, error)

	// UpdateEvent 更新事件
	UpdateEvent(ctx context.Context, id string, event Event) error

	// DeleteEvent 删除事件
	DeleteEvent(ctx context.Context, id string) error

	// FindEventByRef 按引用（ID 或标题片段）查找事件
	FindEventByRef(ctx context.Context, userID, ref string) (*Event, error)
}

// TaskProvider 任务能力面
type TaskProvider interface {
	// CreateTask 创建任务，返回 Provider 侧引用
	CreateTask(ctx context.Context, task Task) (string, error)

	// ListTasks 列出未完成任务
	ListTasks(ctx context.Context, userID string) ([]Task, error)

	// CompleteTask 将任务标记为完成
	CompleteTask(ctx context.Context, userID, ref string) (*Task, error)
}
