package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/delegation"
	"github.com/KodaTao/ScheduleAgent/pkg/faults"
	"github.com/KodaTao/ScheduleAgent/pkg/intent"
	"github.com/KodaTao/ScheduleAgent/pkg/observability"
	"github.com/KodaTao/ScheduleAgent/pkg/provider"
)

// TaskExecutor 任务执行器
// 消费路由到任务侧的信封：创建、查看、标记完成
type TaskExecutor struct {
	tasks   provider.TaskProvider
	timeout time.Duration
}

// NewTaskExecutor 创建任务执行器
func NewTaskExecutor(tasks provider.TaskProvider, timeout time.Duration) *TaskExecutor {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &TaskExecutor{tasks: tasks, timeout: timeout}
}

// Execute 按信封意图分派任务操作
func (e *TaskExecutor) Execute(ctx context.Context, env *delegation.Envelope) (*ExecutionResult, error) {
	switch env.Intent {
	case intent.IntentCreateTask:
		return e.createTask(ctx, env)
	case intent.IntentViewTasks:
		return e.viewTasks(ctx, env)
	case intent.IntentMarkTaskComplete:
		return e.completeTask(ctx, env)
	default:
		return nil, faults.Newf(faults.KindUnknown, "task executor cannot handle intent %s", env.Intent)
	}
}

// createTask 创建任务
func (e *TaskExecutor) createTask(ctx context.Context, env *delegation.Envelope) (*ExecutionResult, error) {
	if env.Task == nil {
		return nil, faults.New(faults.KindValidation, "no task to create")
	}

	task := provider.Task{
		UserID:      env.UserID,
		Title:       env.Task.Title,
		Description: env.Task.Description,
		Due:         env.Task.DueDate,
	}

	start := time.Now()
	var ref string
	err := callWithTimeout(ctx, e.timeout, func(ctx context.Context) error {
		var callErr error
		ref, callErr = e.tasks.CreateTask(ctx, task)
		return callErr
	})
	observability.ProviderCallLog(ctx, "task.create", callStatus(err), time.Since(start).Milliseconds())
	if err != nil {
		return nil, faults.Wrap(mapProviderError(err), "failed to create task", err)
	}

	detail := fmt.Sprintf("Added task %q.", task.Title)
	if task.Due != nil {
		detail = fmt.Sprintf("Added task %q, due %s.", task.Title, task.Due.Format("Mon Jan 2 15:04"))
	}
	return &ExecutionResult{
		Status:  StatusSuccess,
		Detail:  detail,
		Results: []DescriptorResult{{Index: 0, Title: task.Title, Status: StatusSuccess, ProviderRef: ref}},
	}, nil
}

// viewTasks 查看未完成任务
// 只读操作，可重试的失败类别重试一次
func (e *TaskExecutor) viewTasks(ctx context.Context, env *delegation.Envelope) (*ExecutionResult, error) {
	var tasks []provider.Task
	start := time.Now()
	err := retryRead(ctx, e.timeout, func(ctx context.Context) error {
		var callErr error
		tasks, callErr = e.tasks.ListTasks(ctx, env.UserID)
		return callErr
	})
	observability.ProviderCallLog(ctx, "task.list", callStatus(err), time.Since(start).Milliseconds())
	if err != nil {
		return nil, faults.Wrap(mapProviderError(err), "failed to load tasks", err)
	}

	if len(tasks) == 0 {
		return &ExecutionResult{Status: StatusSuccess, Detail: "No open tasks."}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You have %d open task(s):\n", len(tasks))
	for _, task := range tasks {
		if task.Due != nil {
			fmt.Fprintf(&sb, "- %s (due %s)\n", task.Title, task.Due.Format("Mon Jan 2 15:04"))
		} else {
			fmt.Fprintf(&sb, "- %s\n", task.Title)
		}
	}
	return &ExecutionResult{Status: StatusSuccess, Detail: strings.TrimRight(sb.String(), "\n")}, nil
}

// completeTask 标记任务完成
// 缺少任务引用时直接失败，不触发任何 Provider 调用
func (e *TaskExecutor) completeTask(ctx context.Context, env *delegation.Envelope) (*ExecutionResult, error) {
	if env.EventRef == "" {
		return nil, faults.New(faults.KindMissingEventID, "complete requires a task reference")
	}

	start := time.Now()
	var done *provider.Task
	err := callWithTimeout(ctx, e.timeout, func(ctx context.Context) error {
		var callErr error
		done, callErr = e.tasks.CompleteTask(ctx, env.UserID, env.EventRef)
		return callErr
	})
	observability.ProviderCallLog(ctx, "task.complete", callStatus(err), time.Since(start).Milliseconds())
	if err != nil {
		if provider.KindOf(err) == provider.KindNotFound {
			return nil, faults.Wrap(faults.KindMissingEventID, fmt.Sprintf("no task matches %q", env.EventRef), err)
		}
		return nil, faults.Wrap(mapProviderError(err), "failed to complete task", err)
	}

	return &ExecutionResult{
		Status: StatusSuccess,
		Detail: fmt.Sprintf("Marked %q as done.", done.Title),
	}, nil
}
