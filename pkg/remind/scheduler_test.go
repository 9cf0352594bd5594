// Package remind 提供事件开始前的提醒调度
package remind

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockNotifier 通知器测试替身
type MockNotifier struct {
	mu    sync.Mutex
	calls []string
	ch    chan string
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{ch: make(chan string, 10)}
}

func (m *MockNotifier) Notify(ctx context.Context, channelType, chatID, text string) error {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()
	m.ch <- text
	return nil
}

// setupTestDB 创建测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	return db
}

// setupTestScheduler 创建测试调度器
func setupTestScheduler(t *testing.T) (*Scheduler, *MockNotifier) {
	db := setupTestDB(t)
	testLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	notifier := NewMockNotifier()

	scheduler := NewScheduler(db, testLogger)
	scheduler.SetNotifier(notifier)
	if err := scheduler.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	return scheduler, notifier
}

func TestScheduler_FiresReminder(t *testing.T) {
	scheduler, notifier := setupTestScheduler(t)
	defer scheduler.Stop()

	start := time.Now().Add(time.Hour)
	err := scheduler.Schedule(&Reminder{
		UserID:      "u1",
		EventRef:    "ev-1",
		Title:       "grinding programming for uni",
		FireAt:      time.Now().Add(50 * time.Millisecond),
		EventStart:  start,
		ChannelType: "telegram",
		ChatID:      "42",
	})
	if err != nil {
		t.Fatalf("Failed to schedule reminder: %v", err)
	}

	select {
	case text := <-notifier.ch:
		if text == "" || !containsAll(text, "grinding programming for uni", start.Format("15:04")) {
			t.Errorf("Unexpected reminder text: %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for reminder")
	}
}

func TestScheduler_DropsPastReminder(t *testing.T) {
	scheduler, _ := setupTestScheduler(t)
	defer scheduler.Stop()

	err := scheduler.Schedule(&Reminder{
		UserID:     "u1",
		EventRef:   "ev-1",
		Title:      "already started",
		FireAt:     time.Now().Add(-time.Minute),
		EventStart: time.Now(),
	})
	if err != nil {
		t.Fatalf("Schedule returned error for past reminder: %v", err)
	}

	pending, err := NewReminderRepository(scheduler.db).ListPending()
	if err != nil {
		t.Fatalf("Failed to list pending reminders: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected past reminder to be dropped, found %d pending", len(pending))
	}
}

func TestScheduler_CancelByEventRef(t *testing.T) {
	scheduler, notifier := setupTestScheduler(t)
	defer scheduler.Stop()

	err := scheduler.Schedule(&Reminder{
		UserID:     "u1",
		EventRef:   "ev-1",
		Title:      "to be cancelled",
		FireAt:     time.Now().Add(100 * time.Millisecond),
		EventStart: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Failed to schedule reminder: %v", err)
	}

	scheduler.CancelByEventRef("ev-1")

	select {
	case text := <-notifier.ch:
		t.Errorf("Expected no notification after cancel, got %q", text)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestScheduler_RecoverMarksExpiredAsMissed(t *testing.T) {
	db := setupTestDB(t)
	testLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := db.AutoMigrate(&Reminder{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	repo := NewReminderRepository(db)
	expired := &Reminder{
		UserID:     "u1",
		EventRef:   "ev-old",
		Title:      "long gone",
		FireAt:     time.Now().Add(-time.Hour),
		EventStart: time.Now().Add(-30 * time.Minute),
		Status:     StatusPending,
	}
	if err := repo.Create(expired); err != nil {
		t.Fatalf("Failed to seed expired reminder: %v", err)
	}

	scheduler := NewScheduler(db, testLogger)
	scheduler.SetNotifier(NewMockNotifier())
	if err := scheduler.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	recovered, err := repo.GetByID(expired.ID)
	if err != nil {
		t.Fatalf("Failed to reload reminder: %v", err)
	}
	if recovered.Status != StatusMissed {
		t.Errorf("Expected expired reminder marked missed, got %s", recovered.Status)
	}
}

// containsAll 判断文本是否包含全部片段
func containsAll(text string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(text, p) {
			return false
		}
	}
	return true
}
