package delegation

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/intent"
	"github.com/KodaTao/ScheduleAgent/pkg/interpret"
)

func TestBuilder_RoutesIntents(t *testing.T) {
	builder := NewBuilder(nil)

	tests := []struct {
		intent intent.Intent
		want   Target
	}{
		{intent.IntentCreateEvent, TargetCalendar},
		{intent.IntentViewCalendar, TargetCalendar},
		{intent.IntentUpdateEvent, TargetCalendar},
		{intent.IntentDeleteEvent, TargetCalendar},
		{intent.IntentCreateTask, TargetTask},
		{intent.IntentViewTasks, TargetTask},
		{intent.IntentMarkTaskComplete, TargetTask},
		{intent.IntentGeneralQuery, TargetNone},
	}

	for _, tt := range tests {
		env, err := builder.Build(Input{Intent: tt.intent, UserID: "u1", RawText: "hello"})
		if err != nil {
			t.Errorf("Build(%s) error = %v", tt.intent, err)
			continue
		}
		if env.TargetAgent != tt.want {
			t.Errorf("Build(%s) target = %q, want %q", tt.intent, env.TargetAgent, tt.want)
		}
		if env.RequestID == "" {
			t.Errorf("Build(%s) should assign a request ID", tt.intent)
		}
	}
}

func TestBuilder_UnroutableIntent(t *testing.T) {
	builder := NewBuilder(map[intent.Intent]Target{})

	_, err := builder.Build(Input{Intent: intent.IntentCreateEvent})
	if !errors.Is(err, ErrUnroutableIntent) {
		t.Errorf("error = %v, want ErrUnroutableIntent", err)
	}
}

func TestBuilder_MessageIsAlwaysString(t *testing.T) {
	builder := NewBuilder(nil)

	events := []interpret.EventDescriptor{
		{
			Title: "grinding programming",
			Date:  time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
			Start: 15*60 + 30,
			End:   18 * 60,
		},
	}

	env, err := builder.Build(Input{
		Intent:  intent.IntentCreateEvent,
		UserID:  "u1",
		RawText: "create an event 3:30-6:00 grinding programming",
		Events:  events,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Message 必须是实体的 JSON 序列化结果，而不是结构化对象
	var decoded []interpret.EventDescriptor
	if err := json.Unmarshal([]byte(env.Message), &decoded); err != nil {
		t.Fatalf("Message is not canonical JSON: %v (message=%q)", err, env.Message)
	}
	if len(decoded) != 1 || decoded[0].Title != "grinding programming" {
		t.Errorf("decoded message = %+v", decoded)
	}
}

func TestBuilder_TaskMessageCanonicalized(t *testing.T) {
	builder := NewBuilder(nil)

	task := &interpret.TaskDescriptor{Title: "buy groceries"}
	env, err := builder.Build(Input{
		Intent:  intent.IntentCreateTask,
		UserID:  "u1",
		RawText: "create a task to buy groceries",
		Task:    task,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var decoded interpret.TaskDescriptor
	if err := json.Unmarshal([]byte(env.Message), &decoded); err != nil {
		t.Fatalf("Message is not canonical JSON: %v", err)
	}
	if decoded.Title != "buy groceries" {
		t.Errorf("decoded title = %q", decoded.Title)
	}
}

func TestBuilder_RawQueryKeepsText(t *testing.T) {
	builder := NewBuilder(nil)

	env, err := builder.Build(Input{
		Intent:  intent.IntentGeneralQuery,
		UserID:  "u1",
		RawText: "how are you",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if env.Message != "how are you" {
		t.Errorf("Message = %q, want raw text", env.Message)
	}
}
