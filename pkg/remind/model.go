// Package remind 提供事件开始前的提醒调度
package remind

import (
	"time"

	"gorm.io/gorm"
)

// Status 提醒状态
type Status string

const (
	StatusPending   Status = "pending"   // 等待触发
	StatusSent      Status = "sent"      // 已发送
	StatusFailed    Status = "failed"    // 发送失败
	StatusCancelled Status = "cancelled" // 已取消（事件被删除）
	StatusMissed    Status = "missed"    // 错过触发（重启时已过期）
)

// Reminder 事件提醒
// 事件创建成功后入库，触发时间到达时通过原渠道通知用户
type Reminder struct {
	gorm.Model
	UserID      string     `gorm:"index;not null" json:"user_id"`       // 所属用户
	EventRef    string     `gorm:"index;not null" json:"event_ref"`     // 关联事件引用
	Title       string     `gorm:"not null" json:"title"`               // 事件标题
	FireAt      time.Time  `gorm:"not null;index" json:"fire_at"`       // 触发时间点
	EventStart  time.Time  `gorm:"not null" json:"event_start"`         // 事件开始时间
	ChannelType string     `json:"channel_type,omitempty"`              // 通知渠道类型
	ChatID      string     `json:"chat_id,omitempty"`                   // 渠道侧会话标识
	Status      Status     `gorm:"default:pending;index" json:"status"` // 提醒状态
	Error       string     `gorm:"type:text" json:"error,omitempty"`    // 失败原因
	SentAt      *time.Time `json:"sent_at,omitempty"`                   // 实际发送时间
}

// TableName 指定表名
func (Reminder) TableName() string {
	return "reminders"
}

// IsExpired 检查提醒是否已过期
func (r *Reminder) IsExpired() bool {
	return time.Now().After(r.FireAt)
}

// IsPending 检查提醒是否处于等待状态
func (r *Reminder) IsPending() bool {
	return r.Status == StatusPending
}
