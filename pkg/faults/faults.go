// Package faults 提供全局统一的失败分类和结构化错误类型
package faults

import (
	"errors"
	"fmt"
)

// Kind 失败类别
// 覆盖从解析、校验到外部 Provider 调用的全部失败场景
type Kind string

const (
	// KindMalformedTime 时间表达式无法识别
	KindMalformedTime Kind = "MALFORMED_TIME_EXPRESSION"

	// KindAmbiguousBoundary 事件边界无法推断（如结尾缺失结束时间）
	KindAmbiguousBoundary Kind = "AMBIGUOUS_EVENT_BOUNDARY"

	// KindValidation 事件序列违反时序约束且无法调和
	KindValidation Kind = "VALIDATION_FAILURE"

	// KindMissingEventID 更新/删除操作缺少事件标识
	KindMissingEventID Kind = "MISSING_EVENT_ID"

	// KindProviderAuthExpired Provider 凭证过期
	KindProviderAuthExpired Kind = "PROVIDER_AUTH_EXPIRED"

	// KindProviderTimeout Provider 调用超时
	KindProviderTimeout Kind = "PROVIDER_TIMEOUT"

	// KindProviderUnavailable Provider 不可用（含限流）
	KindProviderUnavailable Kind = "PROVIDER_UNAVAILABLE"

	// KindUnclassifiedIntent 意图无法分类
	KindUnclassifiedIntent Kind = "UNCLASSIFIED_INTENT"

	// KindUnknown 未知失败
	KindUnknown Kind = "UNKNOWN"
)

// Failure 结构化失败
// Clause 记录触发失败的原始子句，便于向用户指出出错位置
type Failure struct {
	Kind    Kind
	Message string
	Clause  string
	Cause   error
}

// Error 实现 error 接口
func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Kind, f.Message)
	if f.Clause != "" {
		msg += fmt.Sprintf(" (clause: %q)", f.Clause)
	}
	if f.Cause != nil {
		msg += ": " + f.Cause.Error()
	}
	return msg
}

// Unwrap 返回底层错误
func (f *Failure) Unwrap() error {
	return f.Cause
}

// New 创建结构化失败
func New(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// Newf 创建带格式化消息的结构化失败
func Newf(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
func Wrap(kind Kind, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, Cause: cause}
}

// WithClause 附加触发失败的子句
func (f *Failure) WithClause(clause string) *Failure {
	f.Clause = clause
	return f
}

// KindOf 提取错误的失败类别
// 非 Failure 错误返回 KindUnknown
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// IsKind 判断错误是否属于指定类别
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage 返回面向用户的失败说明
// 保证每个失败都有可读的解释，而不是裸错误码
func UserMessage(err error) string {
	var f *Failure
	if !errors.As(err, &f) {
		return "Something went wrong while processing your message."
	}

	var base string
	switch f.Kind {
	case KindMalformedTime:
		base = "I couldn't understand the time expression in your message."
	case KindAmbiguousBoundary:
		base = "I couldn't work out when one of your events should end."
	case KindValidation:
		base = "The times in your message contradict each other."
	case KindMissingEventID:
		base = "Please tell me which event you mean (for example its title in quotes)."
	case KindProviderAuthExpired:
		base = "Your calendar connection has expired, please reconnect."
	case KindProviderTimeout:
		base = "The calendar service took too long to respond, please try again."
	case KindProviderUnavailable:
		base = "The calendar service is currently unavailable, please try again later."
	case KindUnclassifiedIntent:
		base = "I'm not sure what you'd like me to do."
	default:
		base = "Something went wrong while processing your message."
	}

	if f.Clause != "" {
		base += fmt.Sprintf(" The problem is here: %q.", f.Clause)
	}
	return base
}
