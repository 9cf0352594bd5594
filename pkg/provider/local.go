package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRecord 本地事件存储模型
type EventRecord struct {
	gorm.Model
	Ref         string    `gorm:"uniqueIndex;not null" json:"ref"`  // Provider 侧引用
	UserID      string    `gorm:"index;not null" json:"user_id"`    // 所属用户
	Title       string    `gorm:"not null" json:"title"`            // 事件标题
	Description string    `gorm:"type:text" json:"description"`     // 描述
	StartAt     time.Time `gorm:"not null;index" json:"start_at"`   // 开始时间
	EndAt       time.Time `gorm:"not null" json:"end_at"`           // 结束时间
}

// TableName 指定表名
func (EventRecord) TableName() string {
	return "calendar_events"
}

// TaskRecord 本地任务存储模型
type TaskRecord struct {
	gorm.Model
	Ref         string     `gorm:"uniqueIndex;not null" json:"ref"`
	UserID      string     `gorm:"index;not null" json:"user_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Done        bool       `gorm:"default:false;index" json:"done"`
}

// TableName 指定表名
func (TaskRecord) TableName() string {
	return "tasks"
}

// Local 本地 Provider 实现
// 基于 gorm + sqlite 的参考实现，让整条流水线不依赖外部凭证即可运行，
// 同时也是执行器测试的真实后端
type Local struct {
	db *gorm.DB
}

// NewLocal 创建本地 Provider 并迁移表结构
func NewLocal(db *gorm.DB) (*Local, error) {
	if db == nil {
		return nil, NewError(KindUnavailable, "database not initialized")
	}
	if err := db.AutoMigrate(&EventRecord{}, &TaskRecord{}); err != nil {
		return nil, NewError(KindUnavailable, "migration failed: "+err.Error())
	}
	return &Local{db: db}, nil
}

// CreateEvent 创建事件
func (l *Local) CreateEvent(ctx context.Context, event Event) (string, error) {
	ref := uuid.NewString()
	record := EventRecord{
		Ref:         ref,
		UserID:      event.UserID,
		Title:       event.Title,
		Description: event.Description,
		StartAt:     event.Start,
		EndAt:       event.End,
	}
	if err := l.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", wrapDBError(ctx, err)
	}
	return ref, nil
}

// ListEvents 列出时间窗口内的事件
func (l *Local) ListEvents(ctx context.Context, userID string, from, to time.Time) ([]Event, error) {
	var records []EventRecord
	query := l.db.WithContext(ctx).Where("user_id = ?", userID).Order("start_at")
	if !from.IsZero() {
		query = query.Where("start_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("start_at < ?", to)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, wrapDBError(ctx, err)
	}

	events := make([]Event, 0, len(records))
	for _, r := range records {
		events = append(events, recordToEvent(r))
	}
	return events, nil
}

// UpdateEvent 更新事件
func (l *Local) UpdateEvent(ctx context.Context, id string, event Event) error {
	updates := map[string]any{
		"title":       event.Title,
		"description": event.Description,
		"start_at":    event.Start,
		"end_at":      event.End,
	}
	result := l.db.WithContext(ctx).Model(&EventRecord{}).Where("ref = ?", id).Updates(updates)
	if result.Error != nil {
		return wrapDBError(ctx, result.Error)
	}
	if result.RowsAffected == 0 {
		return NewError(KindNotFound, "event not found: "+id)
	}
	return nil
}

// DeleteEvent 删除事件
func (l *Local) DeleteEvent(ctx context.Context, id string) error {
	result := l.db.WithContext(ctx).Where("ref = ?", id).Delete(&EventRecord{})
	if result.Error != nil {
		return wrapDBError(ctx, result.Error)
	}
	if result.RowsAffected == 0 {
		return NewError(KindNotFound, "event not found: "+id)
	}
	return nil
}

// FindEventByRef 按引用查找事件：先精确匹配 ref，再按标题片段匹配
func (l *Local) FindEventByRef(ctx context.Context, userID, ref string) (*Event, error) {
	var record EventRecord
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND ref = ?", userID, ref).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = l.db.WithContext(ctx).
			Where("user_id = ? AND title LIKE ?", userID, "%"+strings.TrimSpace(ref)+"%").
			Order("start_at").
			First(&record).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewError(KindNotFound, "no event matches reference: "+ref)
	}
	if err != nil {
		return nil, wrapDBError(ctx, err)
	}
	event := recordToEvent(record)
	return &event, nil
}

// CreateTask 创建任务
func (l *Local) CreateTask(ctx context.Context, task Task) (string, error) {
	ref := uuid.NewString()
	record := TaskRecord{
		Ref:         ref,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		DueAt:       task.Due,
	}
	if err := l.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", wrapDBError(ctx, err)
	}
	return ref, nil
}

// ListTasks 列出未完成任务
func (l *Local) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	var records []TaskRecord
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND done = ?", userID, false).
		Order("created_at").
		Find(&records).Error
	if err != nil {
		return nil, wrapDBError(ctx, err)
	}

	tasks := make([]Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, recordToTask(r))
	}
	return tasks, nil
}

// CompleteTask 按引用（ref 或标题片段）标记任务完成
func (l *Local) CompleteTask(ctx context.Context, userID, ref string) (*Task, error) {
	var record TaskRecord
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND ref = ?", userID, ref).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = l.db.WithContext(ctx).
			Where("user_id = ? AND done = ? AND title LIKE ?", userID, false, "%"+strings.TrimSpace(ref)+"%").
			First(&record).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewError(KindNotFound, "no task matches reference: "+ref)
	}
	if err != nil {
		return nil, wrapDBError(ctx, err)
	}

	if err := l.db.WithContext(ctx).Model(&record).Update("done", true).Error; err != nil {
		return nil, wrapDBError(ctx, err)
	}
	record.Done = true
	task := recordToTask(record)
	return &task, nil
}

// wrapDBError 数据库错误规范化为 Provider 失败
func wrapDBError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	return NewError(KindUnavailable, err.Error())
}

func recordToEvent(r EventRecord) Event {
	return Event{
		ID:          r.Ref,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Start:       r.StartAt,
		End:         r.EndAt,
	}
}

func recordToTask(r TaskRecord) Task {
	return Task{
		ID:          r.Ref,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Due:         r.DueAt,
		Done:        r.Done,
	}
}
