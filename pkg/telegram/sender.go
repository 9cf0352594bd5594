package telegram

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram 单条消息上限为 4096 字符，日程列表可能超长，发送前截断
const maxMessageLen = 4000

// Sender 消息发送器
// 封装助理回复和提醒通知的发送；Markdown 解析失败时退回纯文本
type Sender struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewSender 创建消息发送器
func NewSender(bot *tgbotapi.BotAPI, logger *slog.Logger) *Sender {
	return &Sender{
		bot:    bot,
		logger: logger,
	}
}

// SendReply 回复用户的日程消息（reply 指定的消息）
// 返回发送的消息 ID
func (s *Sender) SendReply(chatID int64, replyToMsgID int, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, capLength(text))
	msg.ReplyToMessageID = replyToMsgID
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	sent, err := s.bot.Send(msg)
	if err != nil {
		// 如果 Markdown 解析失败，尝试以纯文本发送
		s.logger.Warn("failed to send markdown message, retrying as plain text",
			"chat_id", chatID,
			"error", err,
		)
		msg.ParseMode = ""
		sent, err = s.bot.Send(msg)
		if err != nil {
			s.logger.Error("failed to send reply",
				"chat_id", chatID,
				"error", err,
			)
			return 0, fmt.Errorf("failed to send reply: %w", err)
		}
	}

	s.logger.Debug("reply sent",
		"chat_id", chatID,
		"message_id", sent.MessageID,
		"reply_to", replyToMsgID,
	)

	return sent.MessageID, nil
}

// SendNotification 发送提醒通知（不 reply）
// 事件开始前的提醒触达走这条路径
func (s *Sender) SendNotification(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, capLength(text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	sent, err := s.bot.Send(msg)
	if err != nil {
		// 如果 Markdown 解析失败，尝试以纯文本发送
		s.logger.Warn("failed to send markdown message, retrying as plain text",
			"chat_id", chatID,
			"error", err,
		)
		msg.ParseMode = ""
		sent, err = s.bot.Send(msg)
		if err != nil {
			s.logger.Error("failed to send notification",
				"chat_id", chatID,
				"error", err,
			)
			return 0, fmt.Errorf("failed to send notification: %w", err)
		}
	}

	s.logger.Debug("notification sent",
		"chat_id", chatID,
		"message_id", sent.MessageID,
	)

	return sent.MessageID, nil
}

// capLength 截断超长消息
func capLength(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageLen {
		return text
	}
	return string(runes[:maxMessageLen]) + "..."
}
