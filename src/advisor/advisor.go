// Package advisor 基于 OpenAI 兼容接口生成农事建议
package advisor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"

	"agropulse/src/configs"
)

// Topic 建议主题
type Topic string

const (
	TopicPest       Topic = "pest"
	TopicCrop       Topic = "crop"
	TopicFertilizer Topic = "fertilizer"
)

var ErrNotConfigured = errors.New("advisor not configured")

var prompts = map[Topic]string{
	TopicPest:       "A farmer's crop image was identified as infested with %s. Describe the pest briefly and give practical organic and chemical treatment steps.",
	TopicCrop:       "A soil model recommended growing %s. Give concise sowing, irrigation and harvesting guidance for this crop.",
	TopicFertilizer: "Explain how a farmer should act on this fertilizer recommendation: %s. Keep it practical.",
}

const systemPrompt = "You are an agronomy assistant for small farmers. Answer in plain language, in at most five short bullet points."

// ParseTopic 解析建议主题
func ParseTopic(s string) (Topic, error) {
	t := Topic(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := prompts[t]; !ok {
		return "", fmt.Errorf("unknown advice topic: %q", s)
	}
	return t, nil
}

// Advisor 农事建议生成器
type Advisor interface {
	Advise(ctx context.Context, topic Topic, subject string) (string, error)
}

// OpenAIAdvisor 使用 go-openai 调用聊天补全接口
type OpenAIAdvisor struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIAdvisor 创建建议生成器，未启用或缺少密钥时返回 ErrNotConfigured
func NewOpenAIAdvisor(cfg configs.AdvisorConfig) (*OpenAIAdvisor, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.ModelName
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	return &OpenAIAdvisor{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
	}, nil
}

// Advise 生成建议
func (a *OpenAIAdvisor) Advise(ctx context.Context, topic Topic, subject string) (string, error) {
	prompt, ok := prompts[topic]
	if !ok {
		return "", fmt.Errorf("unknown advice topic: %q", topic)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(prompt, subject)},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("建议生成失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("建议生成失败: 响应为空")
	}

	advice := strings.TrimSpace(stripThinking(resp.Choices[0].Message.Content))
	if advice == "" {
		return "", errors.New("建议生成失败: 内容为空")
	}
	return advice, nil
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinking 去掉推理模型输出的思考片段
func stripThinking(content string) string {
	return thinkBlock.ReplaceAllString(content, "")
}
