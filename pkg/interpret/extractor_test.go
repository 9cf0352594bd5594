package interpret

import (
	"testing"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/faults"
	"github.com/KodaTao/ScheduleAgent/pkg/types"
)

func rawMessage(text string) types.RawMessage {
	return types.RawMessage{
		Text:       text,
		UserID:     "user-1",
		ReceivedAt: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
	}
}

// assertOrdering 校验时序不变量：End > Start 且相邻边界不矛盾
func assertOrdering(t *testing.T, events []EventDescriptor) {
	t.Helper()
	for i, ev := range events {
		if ev.End <= ev.Start {
			t.Errorf("event %d: End %s <= Start %s", i, ev.End, ev.Start)
		}
		if i > 0 && events[i-1].Date.Equal(ev.Date) && events[i-1].End > ev.Start {
			t.Errorf("event %d: starts at %s before previous ends at %s", i, ev.Start, events[i-1].End)
		}
	}
}

func TestExtractor_RoundTrip(t *testing.T) {
	extractor := NewExtractor()

	msg := rawMessage("3:30 - 6:00 - grinding programming for uni - and break of 5 minutes afterwards, as a puffer - 6:05-6:50 - let's grind more for uni")
	result, err := extractor.Extract(msg)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(result.Events) != 3 {
		t.Fatalf("Extract() produced %d events, want 3: %+v", len(result.Events), result.Events)
	}

	want := []struct {
		start, end string
	}{
		{"15:30", "18:00"},
		{"18:00", "18:05"},
		{"18:05", "18:50"},
	}
	for i, w := range want {
		if got := result.Events[i].Start.String(); got != w.start {
			t.Errorf("event %d start = %s, want %s", i, got, w.start)
		}
		if got := result.Events[i].End.String(); got != w.end {
			t.Errorf("event %d end = %s, want %s", i, got, w.end)
		}
	}

	if result.Events[0].Title != "grinding programming for uni" {
		t.Errorf("event 0 title = %q", result.Events[0].Title)
	}
	if result.Events[1].Title != "Break" {
		t.Errorf("event 1 title = %q, want Break", result.Events[1].Title)
	}

	assertOrdering(t, result.Events)
}

func TestExtractor_TrailingBreak(t *testing.T) {
	extractor := NewExtractor()

	// break 子句后没有显式锚点：break 从上一事件结束开始，恰好持续声明的时长
	msg := rawMessage("3:30 - 6:00 - grinding programming - and break of 10 minutes afterwards")
	result, err := extractor.Extract(msg)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(result.Events) != 2 {
		t.Fatalf("Extract() produced %d events, want 2", len(result.Events))
	}
	brk := result.Events[1]
	if brk.Start.String() != "18:00" || brk.End.String() != "18:10" {
		t.Errorf("break = %s-%s, want 18:00-18:10", brk.Start, brk.End)
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %+v", result.Diagnostics)
	}
}

func TestExtractor_BoundaryReconciled(t *testing.T) {
	extractor := NewExtractor()

	// 推断的 break 结束 18:30 与下一个显式开始 18:10 冲突：显式时间优先
	msg := rawMessage("3:30 - 6:00 - deep work - and break of 30 minutes afterwards - 6:10-6:50 - more work")
	result, err := extractor.Extract(msg)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(result.Events) != 3 {
		t.Fatalf("Extract() produced %d events, want 3", len(result.Events))
	}
	brk := result.Events[1]
	if brk.End.String() != "18:10" {
		t.Errorf("break end = %s, want reconciled 18:10", brk.End)
	}

	if len(result.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %+v", result.Diagnostics)
	}
	if result.Diagnostics[0].Kind != DiagnosticBoundaryReconciled {
		t.Errorf("diagnostic kind = %s", result.Diagnostics[0].Kind)
	}

	assertOrdering(t, result.Events)
}

func TestExtractor_PartialAnchorInherited(t *testing.T) {
	extractor := NewExtractor()

	// 只有开始时刻的子句：结束时间继承下一子句的开始
	msg := rawMessage("9:00 standup; 9:30-10:30 code review")
	result, err := extractor.Extract(msg)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("Extract() produced %d events, want 2", len(result.Events))
	}
	if result.Events[0].End.String() != "09:30" {
		t.Errorf("event 0 end = %s, want 09:30", result.Events[0].End)
	}
	assertOrdering(t, result.Events)
}

func TestExtractor_AmbiguousTrailingAnchor(t *testing.T) {
	extractor := NewExtractor()

	// 最后的子句只有开始时刻且无后继：失败而不是猜测
	msg := rawMessage("9:00 standup")
	_, err := extractor.Extract(msg)
	if err == nil {
		t.Fatal("Extract() expected error")
	}
	if !faults.IsKind(err, faults.KindAmbiguousBoundary) {
		t.Errorf("kind = %s, want %s", faults.KindOf(err), faults.KindAmbiguousBoundary)
	}
}

func TestExtractor_LeadingBreakFails(t *testing.T) {
	extractor := NewExtractor()

	msg := rawMessage("break of 5 minutes, 9:00-10:00 work")
	_, err := extractor.Extract(msg)
	if err == nil {
		t.Fatal("Extract() expected error")
	}
	if !faults.IsKind(err, faults.KindAmbiguousBoundary) {
		t.Errorf("kind = %s, want %s", faults.KindOf(err), faults.KindAmbiguousBoundary)
	}
}

func TestExtractor_UnreconcilableOrdering(t *testing.T) {
	extractor := NewExtractor()

	// 第二个区间严格早于第一个区间的结束且无法调和
	msg := rawMessage("3:30-6:00 work, 4:00-4:30 overlapping call")
	_, err := extractor.Extract(msg)
	if err == nil {
		t.Fatal("Extract() expected error")
	}
	if !faults.IsKind(err, faults.KindValidation) {
		t.Errorf("kind = %s, want %s", faults.KindOf(err), faults.KindValidation)
	}
}

func TestExtractor_NoTimeAtAll(t *testing.T) {
	extractor := NewExtractor()

	_, err := extractor.Extract(rawMessage("create an event for the team offsite"))
	if err == nil {
		t.Fatal("Extract() expected error")
	}
	if !faults.IsKind(err, faults.KindMalformedTime) {
		t.Errorf("kind = %s, want %s", faults.KindOf(err), faults.KindMalformedTime)
	}
}

func TestExtractor_DateInheritance(t *testing.T) {
	extractor := NewExtractor()

	// 2026-08-31 是周一，"tomorrow" 是 9 月 1 日
	msg := rawMessage("tomorrow 9:00-10:00 planning, 10:00-11:00 review")
	result, err := extractor.Extract(msg)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("Extract() produced %d events, want 2", len(result.Events))
	}
	for i, ev := range result.Events {
		if ev.Date.Day() != 1 || ev.Date.Month() != time.September {
			t.Errorf("event %d date = %s, want 2026-09-01", i, ev.Date.Format("2006-01-02"))
		}
	}
}

func TestExtractor_OvernightRangeRejected(t *testing.T) {
	extractor := NewExtractor()

	// 跨夜区间不支持：结束时刻消解到开始之前，时序校验失败
	msg := rawMessage("23:00 - 1:00 late shift")
	_, err := extractor.Extract(msg)
	if err == nil {
		t.Fatal("Extract() expected error")
	}
	if !faults.IsKind(err, faults.KindValidation) {
		t.Errorf("kind = %s, want %s", faults.KindOf(err), faults.KindValidation)
	}
}

func TestExtractor_DateRolloverResetsMonotonicity(t *testing.T) {
	extractor := NewExtractor()

	// 跨到次日后单调性重新起算：次日清晨的锚点不受前一天边界约束
	msg := rawMessage("9:00-10:00 planning, tomorrow 8:00-9:00 gym")
	result, err := extractor.Extract(msg)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("Extract() produced %d events, want 2", len(result.Events))
	}

	gym := result.Events[1]
	if gym.Start.String() != "08:00" || gym.End.String() != "09:00" {
		t.Errorf("gym = %s-%s, want 08:00-09:00", gym.Start, gym.End)
	}
	if !gym.Date.After(result.Events[0].Date) {
		t.Errorf("gym date = %s, want after %s",
			gym.Date.Format("2006-01-02"), result.Events[0].Date.Format("2006-01-02"))
	}
	assertOrdering(t, result.Events)
}

func TestExtractTask(t *testing.T) {
	task := ExtractTask(rawMessage("create a task to buy groceries tomorrow"))
	if task.Title == "" || task.Title == "Task" {
		t.Errorf("Title = %q, want derived phrase", task.Title)
	}
	if task.DueDate == nil {
		t.Fatal("DueDate should be resolved from \"tomorrow\"")
	}
	if task.DueDate.Day() != 1 {
		t.Errorf("DueDate day = %d, want 1", task.DueDate.Day())
	}

	noDue := ExtractTask(rawMessage("add a todo clean the inbox"))
	if noDue.DueDate != nil {
		t.Errorf("DueDate = %v, want nil", noDue.DueDate)
	}
}
