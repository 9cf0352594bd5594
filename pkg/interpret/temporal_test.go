package interpret

import (
	"errors"
	"testing"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/faults"
)

func clockOf(h, m int) Clock {
	return Clock(h*60 + m)
}

func TestTokenParser_Range(t *testing.T) {
	parser := NewTokenParser()

	token, err := parser.Parse("3:30-6:00 grinding programming", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if token.Kind != TokenRange {
		t.Fatalf("expected range token, got %s", token.Kind)
	}

	// 首个锚点落入日间窗口：3:30 解释为 15:30
	if token.Start != clockOf(15, 30) {
		t.Errorf("Start = %s, want 15:30", token.Start)
	}
	// 区间结束相对开始保持非递减：6:00 解释为 18:00
	if token.End != clockOf(18, 0) {
		t.Errorf("End = %s, want 18:00", token.End)
	}
}

func TestTokenParser_RangeWithSpaces(t *testing.T) {
	parser := NewTokenParser()

	token, err := parser.Parse("6:05 - 6:50", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if token.Kind != TokenRange {
		t.Fatalf("expected range token, got %s", token.Kind)
	}
}

func TestTokenParser_Monotonicity(t *testing.T) {
	parser := NewTokenParser()

	// 前置锚点 18:00，单独的 6:05 必须解释为 18:05
	prev := clockOf(18, 0)
	token, err := parser.Parse("6:05", &prev)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if token.Kind != TokenTimeOfDay {
		t.Fatalf("expected time_of_day token, got %s", token.Kind)
	}
	if token.Start != clockOf(18, 5) {
		t.Errorf("Start = %s, want 18:05", token.Start)
	}
}

func TestTokenParser_MonotonicityPrefersNearer(t *testing.T) {
	parser := NewTokenParser()

	// AM 和 PM 都满足非递减时取离前置锚点更近的解释
	prev := clockOf(8, 0)
	token, err := parser.Parse("9:00", &prev)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if token.Start != clockOf(9, 0) {
		t.Errorf("Start = %s, want 09:00", token.Start)
	}
}

func TestTokenParser_Duration(t *testing.T) {
	parser := NewTokenParser()

	token, err := parser.Parse("and break of 5 minutes afterwards", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if token.Kind != TokenDuration {
		t.Fatalf("expected duration token, got %s", token.Kind)
	}
	if token.Duration != 5*time.Minute {
		t.Errorf("Duration = %v, want 5m", token.Duration)
	}
}

func TestTokenParser_DurationRequiresBreakVocab(t *testing.T) {
	parser := NewTokenParser()

	// 时长短语缺少 break/buffer 词汇时不是时间令牌
	token, err := parser.Parse("the talk lasts 45 minutes", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if token != nil {
		t.Errorf("expected no token, got %+v", token)
	}
}

func TestTokenParser_Malformed(t *testing.T) {
	parser := NewTokenParser()

	cases := []string{
		"meet at 25:99",
		"start around 7 : 3",
	}
	for _, text := range cases {
		_, err := parser.Parse(text, nil)
		if err == nil {
			t.Errorf("Parse(%q) expected error", text)
			continue
		}
		if !faults.IsKind(err, faults.KindMalformedTime) {
			t.Errorf("Parse(%q) kind = %s, want %s", text, faults.KindOf(err), faults.KindMalformedTime)
		}
		var failure *faults.Failure
		if !errors.As(err, &failure) {
			t.Errorf("Parse(%q) should return *faults.Failure", text)
		}
	}
}

func TestTokenParser_NoToken(t *testing.T) {
	parser := NewTokenParser()

	token, err := parser.Parse("grinding programming for uni", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if token != nil {
		t.Errorf("expected no token, got %+v", token)
	}
}

func TestResolveDate(t *testing.T) {
	// 2026-08-31 是周一
	reference := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		text     string
		wantDay  int
		wantHit  bool
	}{
		{"meeting today at 3:00", 31, true},
		{"meeting tomorrow", 1, true},
		{"on friday we review", 4, true},
		{"next monday planning", 7, true}, // 下一个同名日，不是今天
		{"no date here", 31, false},
	}

	for _, tt := range tests {
		date, found := ResolveDate(tt.text, reference)
		if found != tt.wantHit {
			t.Errorf("ResolveDate(%q) found = %v, want %v", tt.text, found, tt.wantHit)
			continue
		}
		if date.Day() != tt.wantDay {
			t.Errorf("ResolveDate(%q) day = %d, want %d", tt.text, date.Day(), tt.wantDay)
		}
	}
}

func TestClock_String(t *testing.T) {
	if got := clockOf(9, 5).String(); got != "09:05" {
		t.Errorf("String() = %s, want 09:05", got)
	}
	if got := clockOf(18, 50).String(); got != "18:50" {
		t.Errorf("String() = %s, want 18:50", got)
	}
}
