// Package remind 提供事件开始前的提醒调度
package remind

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Notifier 提醒通知接口
// 用于解耦 remind 和具体渠道（telegram 等），避免循环依赖
type Notifier interface {
	// Notify 向指定渠道发送提醒文本
	Notify(ctx context.Context, channelType, chatID, text string) error
}

// Scheduler 提醒调度器
// 每条待触发提醒持有一个定时器，重启时从库中恢复
type Scheduler struct {
	db       *gorm.DB
	repo     *ReminderRepository
	notifier Notifier
	logger   *slog.Logger

	mu     sync.RWMutex
	timers map[uint]*time.Timer // 提醒ID -> 定时器

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler 创建提醒调度器
func NewScheduler(db *gorm.DB, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		db:     db,
		repo:   NewReminderRepository(db),
		logger: logger,
		timers: make(map[uint]*time.Timer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetNotifier 设置通知器（用于依赖注入，渠道在调度器之后初始化）
func (s *Scheduler) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// Start 启动调度器，恢复待触发的提醒
func (s *Scheduler) Start() error {
	s.logger.Info("starting reminder scheduler")

	// 自动迁移表
	if err := s.db.AutoMigrate(&Reminder{}); err != nil {
		return fmt.Errorf("failed to migrate reminders table: %w", err)
	}

	// 恢复待触发的提醒
	if err := s.recover(); err != nil {
		return fmt.Errorf("failed to recover reminders: %w", err)
	}

	s.logger.Info("reminder scheduler started")
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.logger.Info("stopping reminder scheduler")
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		s.logger.Debug("stopped reminder timer", "reminder_id", id)
	}
	s.timers = make(map[uint]*time.Timer)

	s.logger.Info("reminder scheduler stopped")
}

// recover 恢复待触发的提醒
func (s *Scheduler) recover() error {
	reminders, err := s.repo.ListPending()
	if err != nil {
		return err
	}

	s.logger.Info("recovering pending reminders", "count", len(reminders))

	for _, reminder := range reminders {
		if reminder.IsExpired() {
			if err := s.repo.MarkAsMissedByID(reminder.ID); err != nil {
				s.logger.Error("failed to mark reminder as missed", "reminder_id", reminder.ID, "error", err)
			} else {
				s.logger.Warn("reminder missed due to server restart", "reminder_id", reminder.ID, "fire_at", reminder.FireAt)
			}
		} else {
			s.arm(&reminder)
		}
	}

	return nil
}

// Schedule 创建并调度提醒
// fireAt 已过或等于当前时间的提醒直接丢弃
func (s *Scheduler) Schedule(reminder *Reminder) error {
	if !reminder.FireAt.After(time.Now()) {
		return nil
	}
	reminder.Status = StatusPending

	if err := s.repo.Create(reminder); err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	s.arm(reminder)

	s.logger.Info("reminder scheduled",
		"reminder_id", reminder.ID,
		"event_ref", reminder.EventRef,
		"fire_at", reminder.FireAt,
	)
	return nil
}

// CancelByEventRef 取消某个事件的全部提醒（事件被删除或改期时）
func (s *Scheduler) CancelByEventRef(eventRef string) {
	ids, err := s.repo.CancelByEventRef(eventRef)
	if err != nil {
		s.logger.Error("failed to cancel reminders", "event_ref", eventRef, "error", err)
		return
	}

	s.mu.Lock()
	for _, id := range ids {
		if timer, ok := s.timers[id]; ok {
			timer.Stop()
			delete(s.timers, id)
		}
	}
	s.mu.Unlock()

	if len(ids) > 0 {
		s.logger.Info("reminders cancelled", "event_ref", eventRef, "count", len(ids))
	}
}

// arm 为提醒装上定时器
func (s *Scheduler) arm(reminder *Reminder) {
	delay := time.Until(reminder.FireAt)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[reminder.ID]; ok {
		existing.Stop()
	}

	reminderID := reminder.ID
	s.timers[reminderID] = time.AfterFunc(delay, func() {
		s.fire(reminderID)
	})
}

// fire 触发单条提醒
func (s *Scheduler) fire(reminderID uint) {
	select {
	case <-s.ctx.Done():
		return
	default:
	}

	reminder, err := s.repo.GetByID(reminderID)
	if err != nil {
		s.logger.Error("failed to load reminder", "reminder_id", reminderID, "error", err)
		return
	}
	if !reminder.IsPending() {
		s.logger.Warn("reminder is not pending, skipping", "reminder_id", reminderID, "status", reminder.Status)
		return
	}

	if s.notifier == nil {
		_ = s.repo.UpdateStatusByID(reminderID, StatusFailed, "notifier not set")
		s.logger.Error("notifier not set", "reminder_id", reminderID)
		return
	}

	text := fmt.Sprintf("Reminder: %q starts at %s.", reminder.Title, reminder.EventStart.Format("15:04"))

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	if err := s.notifier.Notify(ctx, reminder.ChannelType, reminder.ChatID, text); err != nil {
		s.logger.Error("reminder notification failed", "reminder_id", reminderID, "error", err)
		_ = s.repo.UpdateStatusByID(reminderID, StatusFailed, err.Error())
	} else {
		s.logger.Info("reminder sent", "reminder_id", reminderID, "event_ref", reminder.EventRef)
		_ = s.repo.UpdateStatusByID(reminderID, StatusSent, "")
	}

	s.mu.Lock()
	delete(s.timers, reminderID)
	s.mu.Unlock()
}
