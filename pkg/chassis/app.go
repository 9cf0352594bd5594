// Package chassis 提供 ScheduleAgent 核心框架
package chassis

import (
	"fmt"
	"log/slog"

	"github.com/KodaTao/ScheduleAgent/pkg/delegation"
	"github.com/KodaTao/ScheduleAgent/pkg/dispatch"
	"github.com/KodaTao/ScheduleAgent/pkg/executor"
	"github.com/KodaTao/ScheduleAgent/pkg/intent"
	"github.com/KodaTao/ScheduleAgent/pkg/llm"
	"github.com/KodaTao/ScheduleAgent/pkg/llm/openai"
	"github.com/KodaTao/ScheduleAgent/pkg/observability"
	"github.com/KodaTao/ScheduleAgent/pkg/provider"
	"github.com/KodaTao/ScheduleAgent/pkg/remind"
	"github.com/KodaTao/ScheduleAgent/pkg/storage"
	"github.com/KodaTao/ScheduleAgent/pkg/telegram"
	"github.com/KodaTao/ScheduleAgent/pkg/types"
)

// App ScheduleAgent 应用实例
// 这是整个框架的入口点
type App struct {
	config        *Config
	agent         *Agent
	handler       types.MessageHandler
	llmProvider   llm.Provider
	localProvider *provider.Local
	dispatcher    *dispatch.Dispatcher
	reminders     *remind.Scheduler
	telegramBot   *telegram.Bot
}

// New 创建新的 App 实例
func New(opts ...Option) *App {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &App{config: config}
}

// Initialize 初始化应用
// 包括：日志、数据库、本地 Provider、执行器、意图分类、分发器
func (a *App) Initialize() error {
	// 1. 初始化日志
	if err := observability.InitLogger(observability.LogConfig{
		Level:    a.config.Log.Level,
		Format:   a.config.Log.Format,
		Output:   a.config.Log.Output,
		FilePath: a.config.Log.FilePath,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	observability.Info("Initializing ScheduleAgent",
		"server_port", a.config.Server.Port,
		"intent_classifier", a.config.Intent.Classifier,
	)

	// 2. 初始化数据库
	if err := storage.InitDB(storage.Config{
		Path: a.config.Database.Path,
	}); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 3. 初始化本地 Provider
	local, err := provider.NewLocal(storage.GetDB())
	if err != nil {
		return fmt.Errorf("failed to initialize local provider: %w", err)
	}
	a.localProvider = local

	// 4. 初始化 LLM Provider（可选）
	// 没有 API Key 时跳过：分类退化为规则分类，内联应答退化为固定回复
	apiKey := llm.ResolveAPIKey(a.config.LLM.APIKey)
	if apiKey != "" {
		switch a.config.LLM.Provider {
		case "openai", "azure", "custom":
			a.llmProvider = openai.NewProviderFromLLMConfig(llm.Config{
				Provider:    a.config.LLM.Provider,
				APIKey:      apiKey,
				BaseURL:     a.config.LLM.BaseURL,
				Model:       a.config.LLM.Model,
				Timeout:     a.config.LLM.Timeout,
				MaxTokens:   a.config.LLM.MaxTokens,
				Temperature: a.config.LLM.Temperature,
			})
			observability.Info("LLM Provider initialized",
				"provider", a.llmProvider.Name(),
				"model", a.config.LLM.Model,
				"api_key", llm.MaskAPIKey(apiKey),
			)
		default:
			return fmt.Errorf("unsupported LLM provider: %s", a.config.LLM.Provider)
		}
	} else {
		observability.Info("LLM Provider disabled, no API key configured")
	}

	// 5. 初始化意图分类
	var classifier intent.Classifier
	switch a.config.Intent.Classifier {
	case "llm":
		if a.llmProvider == nil {
			return fmt.Errorf("llm intent classifier requires an LLM API key")
		}
		classifier = intent.NewLLMClassifier(a.llmProvider, nil)
	case "rule", "":
		classifier = intent.NewRuleClassifier()
	default:
		return fmt.Errorf("unsupported intent classifier: %s", a.config.Intent.Classifier)
	}
	resolver := intent.NewResolver(classifier, a.config.Intent.Threshold)

	// 6. 初始化执行器
	executors := map[delegation.Target]executor.Executor{
		delegation.TargetCalendar: executor.NewCalendarExecutor(local, a.config.Provider.CallTimeout),
		delegation.TargetTask:     executor.NewTaskExecutor(local, a.config.Provider.CallTimeout),
	}

	// 7. 创建 Agent
	a.agent = NewAgent(resolver, executors, a.llmProvider, nil)

	// 8. 初始化提醒调度（可选）
	if a.config.Remind.Enabled {
		a.reminders = remind.NewScheduler(storage.GetDB(), slog.Default())
		if err := a.reminders.Start(); err != nil {
			return fmt.Errorf("failed to start reminder scheduler: %w", err)
		}
		a.agent.SetReminders(a.reminders, a.config.Remind.Lead)
	}

	// 9. 初始化分发器并套上有序处理层
	a.dispatcher = dispatch.NewDispatcher(slog.Default(), dispatch.Options{
		QueueSize:   a.config.Dispatch.QueueSize,
		IdleTimeout: a.config.Dispatch.IdleTimeout,
	})
	if err := a.dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	a.handler = NewOrderedHandler(a.agent, a.dispatcher)

	observability.Info("ScheduleAgent initialized")

	// 10. 初始化 Telegram Bot（可选）
	if a.config.Telegram.Enabled {
		if err := a.initTelegramBot(); err != nil {
			return fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
	}

	return nil
}

// initTelegramBot 初始化 Telegram Bot
func (a *App) initTelegramBot() error {
	botConfig := telegram.Config{
		Enabled: a.config.Telegram.Enabled,
		Token:   a.config.Telegram.Token,
	}

	bot, err := telegram.NewBot(botConfig, a.handler, slog.Default())
	if err != nil {
		return err
	}
	a.telegramBot = bot

	// 提醒通知走 Telegram 渠道
	if a.reminders != nil {
		a.reminders.SetNotifier(bot)
	}

	bot.Start()

	observability.Info("Telegram Bot started")
	return nil
}

// GetAgent 获取 Agent 实例
func (a *App) GetAgent() *Agent {
	return a.agent
}

// GetHandler 获取按用户有序的消息处理器
func (a *App) GetHandler() types.MessageHandler {
	return a.handler
}

// GetConfig 获取配置
func (a *App) GetConfig() *Config {
	return a.config
}

// GetProvider 获取 LLM Provider
func (a *App) GetProvider() llm.Provider {
	return a.llmProvider
}

// GetCalendarProvider 获取日历 Provider
func (a *App) GetCalendarProvider() provider.CalendarProvider {
	return a.localProvider
}

// GetTelegramBot 获取 Telegram Bot 实例
func (a *App) GetTelegramBot() *telegram.Bot {
	return a.telegramBot
}

// Shutdown 关闭应用
func (a *App) Shutdown() error {
	observability.Info("Shutting down ScheduleAgent")

	// 停止 Telegram Bot
	if a.telegramBot != nil {
		a.telegramBot.Stop()
		observability.Info("Telegram Bot stopped")
	}

	// 停止分发器，等待在途消息处理完成
	if a.dispatcher != nil {
		a.dispatcher.Stop()
	}

	// 停止提醒调度
	if a.reminders != nil {
		a.reminders.Stop()
	}

	// 关闭数据库
	if err := storage.Close(); err != nil {
		observability.Error("Failed to close database", "error", err)
		return err
	}

	observability.Info("ScheduleAgent shutdown complete")
	return nil
}
