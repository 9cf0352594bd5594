package interpret

import (
	"testing"
)

func TestSegmenter_DashDelimited(t *testing.T) {
	s := NewSegmenter()

	text := "3:30 - 6:00 - grinding programming for uni - and break of 5 minutes afterwards, as a puffer - 6:05-6:50 - let's grind more for uni"
	clauses := s.Segment(text)

	if len(clauses) != 3 {
		t.Fatalf("Segment() produced %d clauses, want 3: %+v", len(clauses), clauses)
	}

	if clauses[0].Role != RoleActivity {
		t.Errorf("clause 0 role = %s, want activity", clauses[0].Role)
	}
	if clauses[1].Role != RoleBreakHint {
		t.Errorf("clause 1 role = %s, want break_hint", clauses[1].Role)
	}
	if clauses[2].Role != RoleActivity {
		t.Errorf("clause 2 role = %s, want activity", clauses[2].Role)
	}

	// 子句保持文档顺序
	for i, c := range clauses {
		if c.Order != i {
			t.Errorf("clause %d order = %d", i, c.Order)
		}
	}
}

func TestSegmenter_CommaDelimited(t *testing.T) {
	s := NewSegmenter()

	text := "create an event 3:30–6:00, grinding programming for uni, and break of 5 minutes afterwards, as a puffer, 6:05–6:50, let's grind more"
	clauses := s.Segment(text)

	if len(clauses) != 3 {
		t.Fatalf("Segment() produced %d clauses, want 3: %+v", len(clauses), clauses)
	}
	if clauses[1].Role != RoleBreakHint {
		t.Errorf("clause 1 role = %s, want break_hint", clauses[1].Role)
	}
}

func TestSegmenter_BreakWithExplicitRangeIsActivity(t *testing.T) {
	s := NewSegmenter()

	// 带显式区间的 break 子句不是 BreakHint
	clauses := s.Segment("9:00-10:00 deep work, 10:00-10:15 coffee break")
	if len(clauses) != 2 {
		t.Fatalf("Segment() produced %d clauses, want 2: %+v", len(clauses), clauses)
	}
	if clauses[1].Role != RoleActivity {
		t.Errorf("clause with explicit range should stay activity, got %s", clauses[1].Role)
	}
}

func TestSegmenter_ListMarkers(t *testing.T) {
	s := NewSegmenter()

	text := "1. 9:00-10:00 standup\n2. 10:00-11:00 review"
	clauses := s.Segment(text)
	if len(clauses) != 2 {
		t.Fatalf("Segment() produced %d clauses, want 2: %+v", len(clauses), clauses)
	}
}

func TestSegmenter_RangeNotSplit(t *testing.T) {
	s := NewSegmenter()

	// "3:30 - 6:00" 内部的破折号不是结构分隔符
	clauses := s.Segment("3:30 - 6:00 planning session")
	if len(clauses) != 1 {
		t.Fatalf("Segment() produced %d clauses, want 1: %+v", len(clauses), clauses)
	}
	if !rangeRe.MatchString(clauses[0].Text) {
		t.Errorf("range was split apart: %q", clauses[0].Text)
	}
}

func TestContainsBreakVocab(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"and break of 5 minutes", true},
		{"as a puffer", true},
		{"buffer between meetings", true},
		{"breakfast with the team", false}, // 完整单词匹配，不误判子串
		{"grinding programming", false},
	}
	for _, tt := range tests {
		if got := containsBreakVocab(tt.text); got != tt.want {
			t.Errorf("containsBreakVocab(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
