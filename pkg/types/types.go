// Package types 提供跨包共享的类型定义
package types

import (
	"context"
	"time"
)

// ChannelContext 渠道上下文
// 用于标识消息来源渠道，执行结果通知时也会使用此信息
type ChannelContext struct {
	Type   string            `json:"type"`              // 渠道类型: http, telegram, console...
	ChatID string            `json:"chat_id,omitempty"` // 聊天ID，如 telegram chat id
	Extra  map[string]string `json:"extra,omitempty"`   // 其他扩展参数
}

// RawMessage 原始入站消息
// 每个入站请求创建一次，信封构建完成后即丢弃
type RawMessage struct {
	Text       string    `json:"text"`
	UserID     string    `json:"userId"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// MessageRequest 入站请求契约
type MessageRequest struct {
	Text    string          `json:"text" binding:"required"`
	UserID  string          `json:"userId" binding:"required"`
	Channel *ChannelContext `json:"channel,omitempty"` // 渠道上下文
}

// ResponseType 响应类型
type ResponseType string

const (
	// ResponseDelegation 消息被委派给专门执行器处理
	ResponseDelegation ResponseType = "delegation"
	// ResponseDirect 消息被内联处理（如 general_query）
	ResponseDirect ResponseType = "direct"
	// ResponseError 处理失败
	ResponseError ResponseType = "error"
)

// MessageResponse 出站响应契约
type MessageResponse struct {
	Success       bool         `json:"success"`
	Type          ResponseType `json:"type"`
	AgentResponse string       `json:"agentResponse,omitempty"`
}

// MessageHandler 消息处理接口
// 用于解耦 telegram/server 包对 chassis 包的直接依赖
type MessageHandler interface {
	HandleMessage(ctx context.Context, req MessageRequest) *MessageResponse
}

// AsyncMessageHandler 异步消息处理接口
// 提交在调用方 goroutine 内同步完成，响应经 deliver 回调送出。
// 渠道在单个接收循环里按到达顺序提交，即可保证同一用户的处理顺序；
// 阻塞等待结果的渠道（如 HTTP）继续使用 MessageHandler
type AsyncMessageHandler interface {
	SubmitMessage(ctx context.Context, req MessageRequest, deliver func(*MessageResponse))
}
