package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/delegation"
	"github.com/KodaTao/ScheduleAgent/pkg/faults"
	"github.com/KodaTao/ScheduleAgent/pkg/intent"
	"github.com/KodaTao/ScheduleAgent/pkg/interpret"
	"github.com/KodaTao/ScheduleAgent/pkg/observability"
	"github.com/KodaTao/ScheduleAgent/pkg/provider"
)

// 默认日历查看窗口
const defaultViewWindow = 7 * 24 * time.Hour

// CalendarExecutor 日历执行器
// 消费路由到日历侧的信封：批量创建、查看、更新、删除
type CalendarExecutor struct {
	cal     provider.CalendarProvider
	timeout time.Duration
	now     func() time.Time
}

// NewCalendarExecutor 创建日历执行器
// timeout 为单次 Provider 调用超时，非正值使用默认值
func NewCalendarExecutor(cal provider.CalendarProvider, timeout time.Duration) *CalendarExecutor {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &CalendarExecutor{cal: cal, timeout: timeout, now: time.Now}
}

// Execute 按信封意图分派日历操作
func (e *CalendarExecutor) Execute(ctx context.Context, env *delegation.Envelope) (*ExecutionResult, error) {
	switch env.Intent {
	case intent.IntentCreateEvent:
		return e.createEvents(ctx, env)
	case intent.IntentViewCalendar:
		return e.viewCalendar(ctx, env)
	case intent.IntentUpdateEvent:
		return e.updateEvent(ctx, env)
	case intent.IntentDeleteEvent:
		return e.deleteEvent(ctx, env)
	default:
		return nil, faults.Newf(faults.KindUnknown, "calendar executor cannot handle intent %s", env.Intent)
	}
}

// createEvents 批量创建事件
// 逐个尽力执行：单个描述符失败不中断后续创建，结果逐条汇报
func (e *CalendarExecutor) createEvents(ctx context.Context, env *delegation.Envelope) (*ExecutionResult, error) {
	if len(env.Events) == 0 {
		return nil, faults.New(faults.KindValidation, "no events to create")
	}

	results := make([]DescriptorResult, 0, len(env.Events))
	succeeded := 0
	for i, desc := range env.Events {
		dr := DescriptorResult{Index: i, Title: desc.Title}

		event := descriptorToEvent(env.UserID, desc)
		start := time.Now()
		var ref string
		err := callWithTimeout(ctx, e.timeout, func(ctx context.Context) error {
			var callErr error
			ref, callErr = e.cal.CreateEvent(ctx, event)
			return callErr
		})
		observability.ProviderCallLog(ctx, "calendar.create", callStatus(err), time.Since(start).Milliseconds())

		if err != nil {
			dr.Status = StatusFailed
			dr.Detail = faults.UserMessage(faults.Wrap(mapProviderError(err), "create failed", err))
		} else {
			dr.Status = StatusSuccess
			dr.ProviderRef = ref
			succeeded++
		}
		results = append(results, dr)
	}

	result := &ExecutionResult{Results: results}
	switch succeeded {
	case len(results):
		result.Status = StatusSuccess
	case 0:
		result.Status = StatusFailed
	default:
		result.Status = StatusPartial
	}
	result.Detail = result.Summary()
	return result, nil
}

// viewCalendar 查看日历
// 只读操作，可重试的失败类别重试一次
func (e *CalendarExecutor) viewCalendar(ctx context.Context, env *delegation.Envelope) (*ExecutionResult, error) {
	now := e.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.Add(defaultViewWindow)

	var events []provider.Event
	start := time.Now()
	err := retryRead(ctx, e.timeout, func(ctx context.Context) error {
		var callErr error
		events, callErr = e.cal.ListEvents(ctx, env.UserID, from, to)
		return callErr
	})
	observability.ProviderCallLog(ctx, "calendar.list", callStatus(err), time.Since(start).Milliseconds())
	if err != nil {
		return nil, faults.Wrap(mapProviderError(err), "failed to load calendar", err)
	}

	if len(events) == 0 {
		return &ExecutionResult{Status: StatusSuccess, Detail: "No upcoming events in the next 7 days."}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You have %d upcoming event(s):\n", len(events))
	for _, ev := range events {
		fmt.Fprintf(&sb, "- %s %s-%s %s\n",
			ev.Start.Format("Mon Jan 2"),
			ev.Start.Format("15:04"),
			ev.End.Format("15:04"),
			ev.Title)
	}
	return &ExecutionResult{Status: StatusSuccess, Detail: strings.TrimRight(sb.String(), "\n")}, nil
}

// updateEvent 更新事件
// 缺少事件引用时直接失败，不触发任何 Provider 调用
func (e *CalendarExecutor) updateEvent(ctx context.Context, env *delegation.Envelope) (*ExecutionResult, error) {
	if env.EventRef == "" {
		return nil, faults.New(faults.KindMissingEventID, "update requires an event reference")
	}

	existing, err := e.findByRef(ctx, env.UserID, env.EventRef)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if len(env.Events) > 0 {
		desc := env.Events[0]
		if desc.Title != "" && desc.Title != "Activity" {
			updated.Title = desc.Title
		}
		updated.Start = desc.Start.ToTime(eventDate(desc, existing.Start))
		updated.End = desc.End.ToTime(eventDate(desc, existing.Start))
	}

	start := time.Now()
	err = callWithTimeout(ctx, e.timeout, func(ctx context.Context) error {
		return e.cal.UpdateEvent(ctx, existing.ID, updated)
	})
	observability.ProviderCallLog(ctx, "calendar.update", callStatus(err), time.Since(start).Milliseconds())
	if err != nil {
		return nil, faults.Wrap(mapProviderError(err), "failed to update event", err)
	}

	return &ExecutionResult{
		Status: StatusSuccess,
		Detail: fmt.Sprintf("Updated %q to %s %s-%s.", updated.Title,
			updated.Start.Format("Mon Jan 2"), updated.Start.Format("15:04"), updated.End.Format("15:04")),
		Results: []DescriptorResult{{Index: 0, Title: updated.Title, Status: StatusSuccess, ProviderRef: existing.ID}},
	}, nil
}

// deleteEvent 删除事件
// 缺少事件引用时直接失败，不触发任何 Provider 调用
func (e *CalendarExecutor) deleteEvent(ctx context.Context, env *delegation.Envelope) (*ExecutionResult, error) {
	if env.EventRef == "" {
		return nil, faults.New(faults.KindMissingEventID, "delete requires an event reference")
	}

	existing, err := e.findByRef(ctx, env.UserID, env.EventRef)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = callWithTimeout(ctx, e.timeout, func(ctx context.Context) error {
		return e.cal.DeleteEvent(ctx, existing.ID)
	})
	observability.ProviderCallLog(ctx, "calendar.delete", callStatus(err), time.Since(start).Milliseconds())
	if err != nil {
		return nil, faults.Wrap(mapProviderError(err), "failed to delete event", err)
	}

	return &ExecutionResult{
		Status:  StatusSuccess,
		Detail:  fmt.Sprintf("Deleted %q.", existing.Title),
		Results: []DescriptorResult{{Index: 0, Title: existing.Title, Status: StatusSuccess, ProviderRef: existing.ID}},
	}, nil
}

// findByRef 解析事件引用
func (e *CalendarExecutor) findByRef(ctx context.Context, userID, ref string) (*provider.Event, error) {
	var found *provider.Event
	err := callWithTimeout(ctx, e.timeout, func(ctx context.Context) error {
		var callErr error
		found, callErr = e.cal.FindEventByRef(ctx, userID, ref)
		return callErr
	})
	if err != nil {
		if provider.KindOf(err) == provider.KindNotFound {
			return nil, faults.Wrap(faults.KindMissingEventID, fmt.Sprintf("no event matches %q", ref), err)
		}
		return nil, faults.Wrap(mapProviderError(err), "failed to resolve event reference", err)
	}
	return found, nil
}

// descriptorToEvent 结构化事件描述转为 Provider 事件
func descriptorToEvent(userID string, desc interpret.EventDescriptor) provider.Event {
	date := desc.Date
	if date.IsZero() {
		now := time.Now()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	return provider.Event{
		UserID:      userID,
		Title:       desc.Title,
		Description: desc.Description,
		Start:       desc.Start.ToTime(date),
		End:         desc.End.ToTime(date),
	}
}

// eventDate 描述符无日期时沿用既有事件的日期
func eventDate(desc interpret.EventDescriptor, fallback time.Time) time.Time {
	if !desc.Date.IsZero() {
		return desc.Date
	}
	return time.Date(fallback.Year(), fallback.Month(), fallback.Day(), 0, 0, 0, 0, fallback.Location())
}

// callStatus 调用结果状态串
func callStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
