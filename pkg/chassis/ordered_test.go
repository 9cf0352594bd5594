package chassis

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/dispatch"
	"github.com/KodaTao/ScheduleAgent/pkg/types"
)

// recordingHandler 记录处理顺序的底层处理器
type recordingHandler struct {
	mu      sync.Mutex
	texts   []string
	started chan struct{} // 非 nil 时每次处理开始发信号
	block   chan struct{} // 非 nil 时处理阻塞直到关闭
}

func (h *recordingHandler) HandleMessage(_ context.Context, req types.MessageRequest) *types.MessageResponse {
	if h.started != nil {
		h.started <- struct{}{}
	}
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	h.texts = append(h.texts, req.Text)
	h.mu.Unlock()
	return &types.MessageResponse{Success: true, Type: types.ResponseDirect, AgentResponse: req.Text}
}

func setupOrderedHandler(t *testing.T, inner *recordingHandler, queueSize int) *OrderedHandler {
	t.Helper()
	d := dispatch.NewDispatcher(slog.Default(), dispatch.Options{QueueSize: queueSize})
	if err := d.Start(); err != nil {
		t.Fatalf("dispatcher start: %v", err)
	}
	t.Cleanup(d.Stop)
	return NewOrderedHandler(inner, d)
}

func TestOrderedHandler_SubmitMessagePreservesArrivalOrder(t *testing.T) {
	inner := &recordingHandler{}
	h := setupOrderedHandler(t, inner, 64)

	// 在同一个 goroutine 里依次提交，模拟渠道的接收循环
	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		req := types.MessageRequest{Text: strconv.Itoa(i), UserID: "user-1"}
		h.SubmitMessage(context.Background(), req, func(*types.MessageResponse) {
			wg.Done()
		})
	}
	wg.Wait()

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if len(inner.texts) != n {
		t.Fatalf("processed %d messages, want %d", len(inner.texts), n)
	}
	for i, text := range inner.texts {
		if text != strconv.Itoa(i) {
			t.Fatalf("message %d processed out of order: got %s", i, text)
		}
	}
}

func TestOrderedHandler_SubmitMessageQueueFullDeliversBusyReply(t *testing.T) {
	inner := &recordingHandler{
		started: make(chan struct{}, 4),
		block:   make(chan struct{}),
	}
	h := setupOrderedHandler(t, inner, 1)
	defer close(inner.block)

	got := make(chan *types.MessageResponse, 4)
	deliver := func(resp *types.MessageResponse) { got <- resp }
	req := func(text string) types.MessageRequest {
		return types.MessageRequest{Text: text, UserID: "user-1"}
	}

	h.SubmitMessage(context.Background(), req("first"), deliver)
	<-inner.started // worker 已取走第一条并阻塞
	h.SubmitMessage(context.Background(), req("second"), deliver)
	h.SubmitMessage(context.Background(), req("third"), deliver)

	// 处理器仍阻塞，唯一能到达的响应是第三条的拒绝
	select {
	case resp := <-got:
		if resp.Success || resp.Type != types.ResponseError {
			t.Errorf("expected busy error response, got %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an immediate busy response when the queue is full")
	}
}
