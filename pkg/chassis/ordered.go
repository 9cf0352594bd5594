// Package chassis 提供 ScheduleAgent 核心框架
package chassis

import (
	"context"

	"github.com/KodaTao/ScheduleAgent/pkg/dispatch"
	"github.com/KodaTao/ScheduleAgent/pkg/types"
)

// 队列拒绝和等待超时的用户可读响应
const (
	busyReply    = "The assistant is busy right now, please try again in a moment."
	timeoutReply = "Processing took too long, please try again."
)

// OrderedHandler 按用户有序的消息处理适配器
// 将底层处理器接到分发器上：同一用户的消息严格按到达顺序处理，
// 不同用户互不阻塞。server 和 telegram 入口共用这一层
type OrderedHandler struct {
	handler    types.MessageHandler
	dispatcher *dispatch.Dispatcher
}

// NewOrderedHandler 创建有序处理适配器
func NewOrderedHandler(handler types.MessageHandler, dispatcher *dispatch.Dispatcher) *OrderedHandler {
	return &OrderedHandler{handler: handler, dispatcher: dispatcher}
}

// HandleMessage 将消息提交到该用户的队列并等待处理结果
func (h *OrderedHandler) HandleMessage(ctx context.Context, req types.MessageRequest) *types.MessageResponse {
	result := make(chan *types.MessageResponse, 1)

	err := h.dispatcher.Submit(ctx, req.UserID, func(jobCtx context.Context) {
		result <- h.handler.HandleMessage(jobCtx, req)
	})
	if err != nil {
		return &types.MessageResponse{
			Success:       false,
			Type:          types.ResponseError,
			AgentResponse: busyReply,
		}
	}

	select {
	case resp := <-result:
		return resp
	case <-ctx.Done():
		return &types.MessageResponse{
			Success:       false,
			Type:          types.ResponseError,
			AgentResponse: timeoutReply,
		}
	}
}

// SubmitMessage 将消息提交到该用户的队列，处理完成后经 deliver 回调送出
// 入队在调用方 goroutine 内同步完成：调用方按到达顺序提交，
// 同一用户的处理顺序就与到达顺序一致。deliver 在该用户的
// worker goroutine 上执行；入队失败时在当前 goroutine 上送出拒绝响应
func (h *OrderedHandler) SubmitMessage(ctx context.Context, req types.MessageRequest, deliver func(*types.MessageResponse)) {
	err := h.dispatcher.Submit(ctx, req.UserID, func(jobCtx context.Context) {
		deliver(h.handler.HandleMessage(jobCtx, req))
	})
	if err != nil {
		deliver(&types.MessageResponse{
			Success:       false,
			Type:          types.ResponseError,
			AgentResponse: busyReply,
		})
	}
}
