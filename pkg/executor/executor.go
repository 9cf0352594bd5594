// Package executor 提供接收委派信封并调用 Provider 的专门执行器
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/delegation"
	"github.com/KodaTao/ScheduleAgent/pkg/faults"
	"github.com/KodaTao/ScheduleAgent/pkg/provider"
)

// Status 执行状态
type Status string

const (
	// StatusSuccess 全部成功
	StatusSuccess Status = "success"
	// StatusPartial 部分成功（批量操作）
	StatusPartial Status = "partial"
	// StatusFailed 全部失败
	StatusFailed Status = "failed"
)

// DescriptorResult 单个描述符的执行结果
type DescriptorResult struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Status      Status `json:"status"`
	Detail      string `json:"detail,omitempty"`
	ProviderRef string `json:"providerRef,omitempty"`
}

// ExecutionResult 执行器的统一返回
// Results 只在批量操作（多事件创建）时填充
type ExecutionResult struct {
	Status  Status             `json:"status"`
	Detail  string             `json:"detail,omitempty"`
	Results []DescriptorResult `json:"results,omitempty"`
}

// Summary 生成面向用户的结果摘要
// 已有描述时直接返回，批量创建时汇报成功/失败计数并逐条列出失败原因
func (r *ExecutionResult) Summary() string {
	if r.Detail != "" || len(r.Results) == 0 {
		return r.Detail
	}

	succeeded := 0
	var failures []string
	for _, dr := range r.Results {
		if dr.Status == StatusSuccess {
			succeeded++
		} else {
			failures = append(failures, fmt.Sprintf("%q: %s", dr.Title, dr.Detail))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d of %d events created", succeeded, len(r.Results))
	if len(failures) > 0 {
		sb.WriteString("; failed: ")
		sb.WriteString(strings.Join(failures, "; "))
	}
	return sb.String()
}

// Executor 执行器接口
// 消费委派信封，按意图调用对应 Provider 操作
type Executor interface {
	// Execute 执行信封描述的操作
	Execute(ctx context.Context, env *delegation.Envelope) (*ExecutionResult, error)
}

// 只读操作的重试参数
const (
	readRetryDelay     = 200 * time.Millisecond
	defaultCallTimeout = 10 * time.Second
)

// mapProviderError Provider 失败映射到全局失败分类
func mapProviderError(err error) faults.Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return faults.KindProviderTimeout
	}
	switch provider.KindOf(err) {
	case provider.KindAuthExpired:
		return faults.KindProviderAuthExpired
	case provider.KindNotFound:
		return faults.KindMissingEventID
	case provider.KindRateLimited, provider.KindUnavailable:
		return faults.KindProviderUnavailable
	default:
		return faults.KindUnknown
	}
}

// callWithTimeout 带单次调用超时执行 Provider 操作
func callWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}

// retryRead 只读操作重试一次
// 只对可重试的 Provider 失败类别（限流、不可用）重试，
// 变更操作从不重试，避免重复写入
func retryRead(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	err := callWithTimeout(ctx, timeout, fn)
	if err == nil || !provider.Retryable(provider.KindOf(err)) {
		return err
	}

	select {
	case <-ctx.Done():
		return err
	case <-time.After(readRetryDelay):
	}
	return callWithTimeout(ctx, timeout, fn)
}
