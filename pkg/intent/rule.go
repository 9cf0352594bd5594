package intent

import (
	"context"
	"regexp"
	"strings"
)

// rule 关键词规则
// pattern 命中即贡献该意图的得分
type rule struct {
	intent     Intent
	pattern    *regexp.Regexp
	confidence float64
}

// 规则顺序即优先级：先命中的强规则直接胜出
var rules = []rule{
	{IntentDeleteEvent, regexp.MustCompile(`(?i)\b(delete|cancel|remove)\b.*\b(event|meeting|appointment)\b`), 0.9},
	{IntentUpdateEvent, regexp.MustCompile(`(?i)\b(update|move|reschedule|change|shift)\b.*\b(event|meeting|appointment)\b`), 0.9},
	{IntentMarkTaskComplete, regexp.MustCompile(`(?i)\b(done|complete|completed|finished|finish)\b.*\b(task|todo)\b`), 0.85},
	{IntentMarkTaskComplete, regexp.MustCompile(`(?i)\b(task|todo)\b.*\b(done|complete|completed|finished)\b`), 0.85},
	{IntentViewTasks, regexp.MustCompile(`(?i)\b(show|list|view|what)\b.*\b(tasks|todos)\b`), 0.85},
	{IntentViewCalendar, regexp.MustCompile(`(?i)\b(show|list|view|what)('s| is)?\b.*\b(calendar|schedule|agenda|planned)\b`), 0.85},
	{IntentCreateTask, regexp.MustCompile(`(?i)\b(create|add|make)\b.*\b(task|todo)\b`), 0.9},
	{IntentCreateTask, regexp.MustCompile(`(?i)\bremind me\b`), 0.8},
	{IntentCreateEvent, regexp.MustCompile(`(?i)\b(create|add|schedule|book|make)\b.*\b(event|meeting|appointment)\b`), 0.9},
}

// 时间区间本身就是很强的建事件信号
var timeRangeSignalRe = regexp.MustCompile(`\d{1,2}:\d{2}\s*[-–—]\s*\d{1,2}:\d{2}`)

// RuleClassifier 确定性的规则分类器
// 作为 LLM 分类能力的兜底实现，也是测试路径
type RuleClassifier struct{}

// NewRuleClassifier 创建规则分类器
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify 基于关键词规则分类
func (c *RuleClassifier) Classify(_ context.Context, text string) (Classification, error) {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return Classification{Intent: r.intent, Confidence: r.confidence}, nil
		}
	}

	// 无动词命中但消息携带时间区间：弱信号 create_event
	if timeRangeSignalRe.MatchString(text) {
		return Classification{Intent: IntentCreateEvent, Confidence: 0.7}, nil
	}

	if strings.TrimSpace(text) == "" {
		return Classification{Intent: IntentGeneralQuery, Confidence: 0.0}, nil
	}
	return Classification{Intent: IntentGeneralQuery, Confidence: 0.3}, nil
}
