// Package chassis 提供 ScheduleAgent 核心框架
package chassis

import (
	"context"
	"sync"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/llm"
)

// Session 内联应答会话
// 仅 general_query 走生成式应答时使用，按用户保留短历史
type Session struct {
	ID        string        `json:"id"`
	Messages  []llm.Message `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// AddMessage 添加消息到会话
func (s *Session) AddMessage(role llm.Role, content string) {
	s.Messages = append(s.Messages, llm.Message{
		Role:    role,
		Content: content,
	})
	s.UpdatedAt = time.Now()
}

// GetMessages 获取所有消息
func (s *Session) GetMessages() []llm.Message {
	return s.Messages
}

// Truncate 截断消息历史，保留最近的 n 条
// 始终保留第一条系统消息（如果有）
func (s *Session) Truncate(maxMessages int) {
	if len(s.Messages) <= maxMessages {
		return
	}

	if len(s.Messages) > 0 && s.Messages[0].Role == llm.RoleSystem {
		systemMsg := s.Messages[0]
		recentMessages := s.Messages[len(s.Messages)-(maxMessages-1):]
		s.Messages = append([]llm.Message{systemMsg}, recentMessages...)
	} else {
		s.Messages = s.Messages[len(s.Messages)-maxMessages:]
	}
}

// Clear 清空消息历史（保留系统消息）
func (s *Session) Clear() {
	if len(s.Messages) > 0 && s.Messages[0].Role == llm.RoleSystem {
		s.Messages = s.Messages[:1]
	} else {
		s.Messages = nil
	}
	s.UpdatedAt = time.Now()
}

// SessionManager 会话管理器
// 管理多个会话，支持并发访问
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	config   *SessionConfig
}

// NewSessionManager 创建会话管理器
func NewSessionManager(config *SessionConfig) *SessionManager {
	if config == nil {
		config = DefaultSessionConfig()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		config:   config,
	}
}

// Get 获取会话，如果不存在则返回 nil
func (m *SessionManager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// GetOrCreate 获取或创建会话
func (m *SessionManager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[id]; ok {
		return session
	}

	session := &Session{
		ID:        id,
		Messages:  make([]llm.Message, 0),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.sessions[id] = session
	return session
}

// Delete 删除会话
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		return true
	}
	return false
}

// List 列出所有会话 ID
func (m *SessionManager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// CleanExpired 清理过期会话
func (m *SessionManager) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	expireTime := time.Now().Add(-m.config.TTL)

	for id, session := range m.sessions {
		if session.UpdatedAt.Before(expireTime) {
			delete(m.sessions, id)
			count++
		}
	}
	return count
}

// 上下文键与日志层的提取键保持一致
const (
	userIDKey  = "user_id"
	traceIDKey = "trace_id"
)

// WithUserID 将用户 ID 添加到 context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID 从 context 获取用户 ID
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// WithTraceID 将追踪 ID 添加到 context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID 从 context 获取追踪 ID
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}
