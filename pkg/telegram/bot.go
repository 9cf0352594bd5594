package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/KodaTao/ScheduleAgent/pkg/types"
)

// Bot Telegram Bot 封装
type Bot struct {
	api     *tgbotapi.BotAPI
	config  Config
	sender  *Sender
	handler types.MessageHandler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewBot 创建 Telegram Bot
func NewBot(config Config, handler types.MessageHandler, logger *slog.Logger) (*Bot, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, ErrBotNotInitialized
	}

	api, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	me, err := api.GetMe()
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	bot := &Bot{
		api:     api,
		config:  config,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	bot.sender = NewSender(api, logger)

	logger.Info("telegram bot created",
		"username", me.UserName,
	)

	return bot, nil
}

// Start 启动 Bot，开始接收消息
func (b *Bot) Start() {
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-b.ctx.Done():
				b.logger.Info("telegram bot stopped")
				return
			case update := <-updates:
				if update.Message != nil {
					if update.Message.Chat.IsGroup() || update.Message.Chat.IsChannel() {
						// 群聊必须@才生效
						if !strings.Contains(update.Message.Text, "@"+b.api.Self.UserName+" ") {
							continue
						}
					}
					// 在更新循环内同步提交：同一 chat 的消息按到达顺序入队，
					// 回复从 worker goroutine 异步送出，不阻塞循环
					b.handleMessage(update.Message)
				}
			}
		}
	}()

	b.logger.Info("telegram bot started")
}

// Stop 停止 Bot
func (b *Bot) Stop() {
	b.logger.Info("stopping telegram bot")
	b.cancel()
	b.api.StopReceivingUpdates()
}

// handleMessage 处理收到的消息
// 在更新循环内调用：入队同步完成保证同一 chat 的到达顺序，
// 处理和回复发送都在该用户的 worker goroutine 上进行
func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	// 忽略非文本消息
	if msg.Text == "" {
		return
	}

	chatID := msg.Chat.ID
	userMsgID := msg.MessageID

	b.logger.Info("received message",
		"chat_id", chatID,
		"message_id", userMsgID,
		"from", msg.From.UserName,
		"text", truncateText(msg.Text, 50),
	)

	req := types.MessageRequest{
		Text:   stripMention(msg.Text, b.api.Self.UserName),
		UserID: UserID(chatID),
		Channel: &types.ChannelContext{
			Type:   "telegram",
			ChatID: strconv.FormatInt(chatID, 10),
		},
	}

	deliver := func(resp *types.MessageResponse) {
		botMsgID, err := b.sender.SendReply(chatID, userMsgID, resp.AgentResponse)
		if err != nil {
			b.logger.Error("failed to send reply",
				"chat_id", chatID,
				"error", err,
			)
			return
		}

		b.logger.Info("message handled",
			"chat_id", chatID,
			"user_msg_id", userMsgID,
			"bot_msg_id", botMsgID,
			"success", resp.Success,
			"response_type", resp.Type,
		)
	}

	// 有异步提交能力时入队即返回；否则退化为阻塞处理，放到独立 goroutine，
	// 此时不提供同一 chat 的顺序保证
	if async, ok := b.handler.(types.AsyncMessageHandler); ok {
		async.SubmitMessage(b.ctx, req, deliver)
		return
	}
	go func() {
		deliver(b.handler.HandleMessage(b.ctx, req))
	}()
}

// SendNotification 发送通知消息到指定 chat
func (b *Bot) SendNotification(chatID int64, text string) error {
	_, err := b.sender.SendNotification(chatID, text)
	return err
}

// Notify 实现提醒通知接口
// 非 telegram 渠道的提醒不在这里处理
func (b *Bot) Notify(ctx context.Context, channelType, chatID, text string) error {
	if channelType != "telegram" {
		return fmt.Errorf("unsupported channel type: %s", channelType)
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	return b.SendNotification(id, text)
}

// UserID chat ID 映射为稳定的用户标识
func UserID(chatID int64) string {
	return fmt.Sprintf("tg_%d", chatID)
}

// stripMention 去掉群聊消息里的 @bot 前缀
func stripMention(text, botName string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "@"+botName, ""))
}

// truncateText 截断文本（用于日志）
func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
