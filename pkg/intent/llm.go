package intent

import (
	"context"
	"strconv"
	"strings"

	"github.com/KodaTao/ScheduleAgent/pkg/llm"
	"github.com/KodaTao/ScheduleAgent/pkg/observability"
	"github.com/KodaTao/ScheduleAgent/pkg/prompt"
)

// LLMClassifier 委托生成式能力的分类器
// 回复契约："intent|confidence" 单行；解析失败或调用出错时退回规则分类器，
// 因此整条流水线的行为保持确定可测
type LLMClassifier struct {
	provider llm.Provider
	prompts  *prompt.Generator
	fallback Classifier
}

// NewLLMClassifier 创建 LLM 分类器
// fallback 为 nil 时使用规则分类器
func NewLLMClassifier(provider llm.Provider, fallback Classifier) *LLMClassifier {
	if fallback == nil {
		fallback = NewRuleClassifier()
	}
	return &LLMClassifier{
		provider: provider,
		prompts:  prompt.NewGenerator(),
		fallback: fallback,
	}
}

// Classify 通过生成式能力分类
func (c *LLMClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	intents := make([]string, 0, len(All()))
	for _, i := range All() {
		intents = append(intents, string(i))
	}

	systemPrompt, err := c.prompts.GenerateClassifyPrompt(intents)
	if err != nil {
		return c.fallback.Classify(ctx, text)
	}

	reply, err := c.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: text},
	})
	if err != nil {
		observability.WarnContext(ctx, "LLM classification failed, using rule fallback", "error", err)
		return c.fallback.Classify(ctx, text)
	}

	cls, ok := parseClassifyReply(reply)
	if !ok {
		observability.WarnContext(ctx, "unparseable classification reply, using rule fallback",
			"reply", reply)
		return c.fallback.Classify(ctx, text)
	}
	return cls, nil
}

// parseClassifyReply 解析 "intent|confidence" 回复
func parseClassifyReply(reply string) (Classification, bool) {
	line := strings.TrimSpace(reply)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}

	parts := strings.SplitN(line, "|", 2)
	if len(parts) != 2 {
		return Classification{}, false
	}

	name := strings.TrimSpace(strings.ToLower(parts[0]))
	if !Valid(name) {
		return Classification{}, false
	}

	confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || confidence < 0 || confidence > 1 {
		return Classification{}, false
	}

	return Classification{Intent: Intent(name), Confidence: confidence}, true
}
