// Package remind 提供事件开始前的提醒调度
package remind

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ReminderRepository Reminder 数据访问层
type ReminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository 创建 Repository
func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create 创建提醒
func (r *ReminderRepository) Create(reminder *Reminder) error {
	return r.db.Create(reminder).Error
}

// GetByID 根据 ID 获取提醒
func (r *ReminderRepository) GetByID(id uint) (*Reminder, error) {
	var reminder Reminder
	err := r.db.First(&reminder, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}
	return &reminder, nil
}

// ListPending 列出所有待触发的提醒
func (r *ReminderRepository) ListPending() ([]Reminder, error) {
	var reminders []Reminder
	err := r.db.Where("status = ?", StatusPending).Order("fire_at ASC").Find(&reminders).Error
	return reminders, err
}

// UpdateStatusByID 根据 ID 更新提醒状态
func (r *ReminderRepository) UpdateStatusByID(id uint, status Status, errMsg string) error {
	updates := map[string]any{
		"status": status,
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	if status == StatusSent {
		now := time.Now()
		updates["sent_at"] = &now
	}

	res := r.db.Model(&Reminder{}).Where("id = ?", id).Updates(updates)
	if res.RowsAffected == 0 {
		return ErrReminderNotFound
	}
	return res.Error
}

// MarkAsMissedByID 根据 ID 标记过期提醒为 missed
func (r *ReminderRepository) MarkAsMissedByID(id uint) error {
	return r.UpdateStatusByID(id, StatusMissed, "reminder missed due to server restart")
}

// CancelByEventRef 取消某个事件的全部待触发提醒
// 返回取消的提醒 ID 列表，调度层据此停掉定时器
func (r *ReminderRepository) CancelByEventRef(eventRef string) ([]uint, error) {
	var reminders []Reminder
	err := r.db.Where("event_ref = ? AND status = ?", eventRef, StatusPending).Find(&reminders).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(reminders))
	for _, reminder := range reminders {
		ids = append(ids, reminder.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err = r.db.Model(&Reminder{}).Where("id IN ?", ids).Update("status", StatusCancelled).Error
	return ids, err
}

// 错误定义
var (
	ErrReminderNotFound = errors.New("reminder not found")
)
