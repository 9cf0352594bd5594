// Package openai 提供 OpenAI API 客户端实现
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/llm"
	"github.com/KodaTao/ScheduleAgent/pkg/observability"
)

// Provider OpenAI 提供商实现
// 意图分类和内联应答都用短的单次补全，不需要流式响应
type Provider struct {
	config     *Config
	httpClient *http.Client
}

// Config OpenAI 配置
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4",
		Timeout:     60 * time.Second,
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// NewProvider 创建 OpenAI Provider
func NewProvider(cfg *Config) *Provider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Provider{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// NewProviderFromLLMConfig 从通用 LLM 配置创建 Provider
func NewProviderFromLLMConfig(cfg llm.Config) *Provider {
	return NewProvider(&Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
}

// Name 返回提供商名称
func (p *Provider) Name() string {
	return "openai"
}

// Chat 发送对话请求
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	start := time.Now()
	observability.LLMRequestLog(ctx, p.Name(), p.config.Model, len(messages))

	// 构建请求
	reqBody := chatRequest{
		Model:       p.config.Model,
		Messages:    convertMessages(messages),
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// 创建 HTTP 请求
	req, err := http.NewRequestWithContext(ctx, "POST", p.config.BaseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	// 发送请求
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// 读取响应
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	// 检查状态码
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		json.Unmarshal(respBody, &errResp)
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, errResp.Error.Message)
	}

	// 解析响应
	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := chatResp.Choices[0].Message.Content
	duration := time.Since(start)

	// 记录响应日志
	observability.LLMResponseLog(ctx, p.Name(), duration.Milliseconds(), map[string]int{
		"prompt":     chatResp.Usage.PromptTokens,
		"completion": chatResp.Usage.CompletionTokens,
		"total":      chatResp.Usage.TotalTokens,
	})

	return content, nil
}

// convertMessages 转换消息格式
func convertMessages(messages []llm.Message) []chatMessage {
	result := make([]chatMessage, len(messages))
	for i, m := range messages {
		result[i] = chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}
	return result
}

// API 请求/响应结构

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
