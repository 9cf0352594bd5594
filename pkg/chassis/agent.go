// Package chassis 提供 ScheduleAgent 核心框架
package chassis

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/delegation"
	"github.com/KodaTao/ScheduleAgent/pkg/executor"
	"github.com/KodaTao/ScheduleAgent/pkg/faults"
	"github.com/KodaTao/ScheduleAgent/pkg/intent"
	"github.com/KodaTao/ScheduleAgent/pkg/interpret"
	"github.com/KodaTao/ScheduleAgent/pkg/llm"
	"github.com/KodaTao/ScheduleAgent/pkg/observability"
	"github.com/KodaTao/ScheduleAgent/pkg/prompt"
	"github.com/KodaTao/ScheduleAgent/pkg/remind"
	"github.com/KodaTao/ScheduleAgent/pkg/types"
)

// Agent 日程助理核心
// 承载完整的消息解释流水线：意图解析、实体抽取、信封构建、委派执行
type Agent struct {
	resolver  *intent.Resolver
	extractor *interpret.Extractor
	builder   *delegation.Builder
	executors map[delegation.Target]executor.Executor

	// provider 仅服务 general_query 的内联应答，可为 nil
	provider llm.Provider
	prompts  *prompt.Generator
	sessions *SessionManager

	// reminders 可选，事件创建成功后安排开始前提醒
	reminders  *remind.Scheduler
	remindLead time.Duration

	config *AgentConfig
}

// AgentConfig Agent 配置
type AgentConfig struct {
	Timeout    time.Duration // 单条消息处理超时
	MaxHistory int           // 内联应答会话的最大历史消息数
}

// DefaultAgentConfig 返回默认 Agent 配置
func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		Timeout:    30 * time.Second,
		MaxHistory: 20,
	}
}

// NewAgent 创建 Agent
// executors 按委派目标注册，provider 可为 nil（内联应答退化为固定回复）
func NewAgent(resolver *intent.Resolver, executors map[delegation.Target]executor.Executor, provider llm.Provider, config *AgentConfig) *Agent {
	if config == nil {
		config = DefaultAgentConfig()
	}
	return &Agent{
		resolver:  resolver,
		extractor: interpret.NewExtractor(),
		builder:   delegation.NewBuilder(nil),
		executors: executors,
		provider:  provider,
		prompts:   prompt.NewGenerator(),
		sessions:  NewSessionManager(&SessionConfig{MaxHistory: config.MaxHistory, TTL: 30 * time.Minute}),
		config:    config,
	}
}

// fallbackReply 无生成式能力时的内联应答
const fallbackReply = "I can help you schedule events and track tasks. " +
	"Try something like \"3:30 - 6:00 - study session\" or \"add a task to buy groceries\"."

// 任务完成引用："mark X as done" 形状的宽松提取
var taskDoneRe = regexp.MustCompile(`(?i)^(?:mark|complete|finish|check off)\s+(?:the\s+|my\s+)?(.+?)(?:\s+task)?(?:\s+(?:as\s+)?(?:done|complete|completed|finished))?\s*$`)

// HandleMessage 处理一条入站消息
// 流水线：意图解析 → 实体抽取 → 信封构建 → 委派执行
// 所有失败都转为用户可读的错误响应，不向调用方抛错
func (a *Agent) HandleMessage(ctx context.Context, req types.MessageRequest) *types.MessageResponse {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}
	ctx = WithUserID(ctx, req.UserID)

	msg := types.RawMessage{
		Text:       req.Text,
		UserID:     req.UserID,
		ReceivedAt: time.Now(),
	}

	// 1. 意图解析
	cls := a.resolver.Resolve(ctx, req.Text)

	// 2. 按意图抽取实体
	in := delegation.Input{
		Intent:  cls.Intent,
		UserID:  req.UserID,
		RawText: req.Text,
	}
	switch cls.Intent {
	case intent.IntentCreateEvent:
		extraction, err := a.extractor.Extract(msg)
		if err != nil {
			return errorResponse(err)
		}
		in.Events = extraction.Events
		in.Diagnostics = extraction.Diagnostics

	case intent.IntentCreateTask:
		in.Task = interpret.ExtractTask(msg)

	case intent.IntentUpdateEvent:
		in.EventRef = intent.ExtractEventReference(req.Text)
		// 更新消息里可能带有新的时间，抽取失败不阻塞
		if extraction, err := a.extractor.Extract(msg); err == nil {
			in.Events = extraction.Events
			in.Diagnostics = extraction.Diagnostics
		}

	case intent.IntentDeleteEvent:
		in.EventRef = intent.ExtractEventReference(req.Text)

	case intent.IntentMarkTaskComplete:
		in.EventRef = taskReference(req.Text)
	}

	observability.InterpretLog(ctx, string(cls.Intent), cls.Confidence, len(in.Events))

	// 3. 构建委派信封
	env, err := a.builder.Build(in)
	if err != nil {
		return errorResponse(faults.Wrap(faults.KindUnclassifiedIntent, "cannot route message", err))
	}

	// 4. 内联处理或委派执行
	if env.TargetAgent == delegation.TargetNone {
		return a.answerInline(ctx, req)
	}

	exec, ok := a.executors[env.TargetAgent]
	if !ok {
		return errorResponse(faults.Newf(faults.KindUnknown, "no executor registered for %s", env.TargetAgent))
	}

	result, err := exec.Execute(ctx, env)
	if err != nil {
		return errorResponse(err)
	}

	a.syncReminders(cls.Intent, env, result, req.Channel)

	return &types.MessageResponse{
		Success:       result.Status != executor.StatusFailed,
		Type:          types.ResponseDelegation,
		AgentResponse: result.Summary(),
	}
}

// syncReminders 执行结果回流到提醒调度
// 创建成功的事件安排开始前提醒，删除的事件取消残留提醒
func (a *Agent) syncReminders(in intent.Intent, env *delegation.Envelope, result *executor.ExecutionResult, channel *types.ChannelContext) {
	if a.reminders == nil {
		return
	}

	switch in {
	case intent.IntentCreateEvent:
		for _, dr := range result.Results {
			if dr.Status != executor.StatusSuccess || dr.Index >= len(env.Events) {
				continue
			}
			desc := env.Events[dr.Index]
			start := desc.Start.ToTime(desc.Date)
			reminder := &remind.Reminder{
				UserID:     env.UserID,
				EventRef:   dr.ProviderRef,
				Title:      desc.Title,
				FireAt:     start.Add(-a.remindLead),
				EventStart: start,
			}
			if channel != nil {
				reminder.ChannelType = channel.Type
				reminder.ChatID = channel.ChatID
			}
			if err := a.reminders.Schedule(reminder); err != nil {
				observability.Warn("Failed to schedule reminder", "event_ref", dr.ProviderRef, "error", err)
			}
		}

	case intent.IntentDeleteEvent, intent.IntentUpdateEvent:
		for _, dr := range result.Results {
			if dr.Status == executor.StatusSuccess && dr.ProviderRef != "" {
				a.reminders.CancelByEventRef(dr.ProviderRef)
			}
		}
	}
}

// SetReminders 注入提醒调度器
// 调度器在渠道之后初始化，这里沿用注入方式避免构造顺序问题
func (a *Agent) SetReminders(scheduler *remind.Scheduler, lead time.Duration) {
	a.reminders = scheduler
	a.remindLead = lead
}

// answerInline 内联处理 general_query
// 有生成式能力时按用户保留短会话，否则返回固定引导语
func (a *Agent) answerInline(ctx context.Context, req types.MessageRequest) *types.MessageResponse {
	if a.provider == nil {
		return &types.MessageResponse{
			Success:       true,
			Type:          types.ResponseDirect,
			AgentResponse: fallbackReply,
		}
	}

	session := a.sessions.GetOrCreate(req.UserID)
	if len(session.Messages) == 0 {
		systemPrompt, err := a.prompts.GenerateQueryPrompt(time.Now())
		if err == nil {
			session.AddMessage(llm.RoleSystem, systemPrompt)
		}
	}
	session.AddMessage(llm.RoleUser, req.Text)

	reply, err := a.provider.Chat(ctx, session.GetMessages())
	if err != nil {
		observability.WarnContext(ctx, "Inline answer failed, using fallback", "error", err)
		return &types.MessageResponse{
			Success:       true,
			Type:          types.ResponseDirect,
			AgentResponse: fallbackReply,
		}
	}

	session.AddMessage(llm.RoleAssistant, reply)
	session.Truncate(a.config.MaxHistory)

	return &types.MessageResponse{
		Success:       true,
		Type:          types.ResponseDirect,
		AgentResponse: reply,
	}
}

// ClearSession 清空某个用户的内联应答会话
func (a *Agent) ClearSession(userID string) bool {
	return a.sessions.Delete(userID)
}

// taskReference 提取任务引用
// 先找显式引用（引号、#编号），再按 "mark X as done" 形状宽松提取
func taskReference(text string) string {
	if ref := intent.ExtractEventReference(text); ref != "" {
		return ref
	}
	if m := taskDoneRe.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// errorResponse 失败转为用户可读的错误响应
func errorResponse(err error) *types.MessageResponse {
	return &types.MessageResponse{
		Success:       false,
		Type:          types.ResponseError,
		AgentResponse: faults.UserMessage(err),
	}
}
