package llm

import (
	"context"
	"log/slog"
	"net/http"

	"govassist/app/config"

	"github.com/samber/oops"
	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var _ callbacks.Handler = (*logCallbackHandler)(nil)

type logCallbackHandler struct {
	callbacks.SimpleHandler
}

func (l logCallbackHandler) HandleLLMGenerateContentStart(ctx context.Context, ms []llms.MessageContent) {
	slog.DebugContext(ctx, "LLM generate content start", "messages", len(ms))
}

func (l logCallbackHandler) HandleLLMGenerateContentEnd(ctx context.Context, res *llms.ContentResponse) {
	if res == nil || len(res.Choices) == 0 {
		return
	}

	slog.DebugContext(ctx, "LLM generate content end",
		"stop_reason", res.Choices[0].StopReason,
		"length", len(res.Choices[0].Content),
	)
}

func (l logCallbackHandler) HandleLLMError(ctx context.Context, err error) {
	slog.ErrorContext(ctx, "LLM error", "error", err)
}

type langchainGenerator struct {
	cfg config.LLM
	llm *openai.LLM
}

func newLangchainGenerator(cfg config.LLM) (Generator, error) {
	llm, err := openai.New(
		openai.WithToken(cfg.Token),
		openai.WithModel(cfg.Model),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithHTTPClient(&http.Client{
			Timeout: cfg.Timeout,
		}),
		openai.WithCallback(logCallbackHandler{}),
	)
	if err != nil {
		return nil, oops.In("llm").Wrapf(err, "failed to create langchain client")
	}

	return &langchainGenerator{
		cfg: cfg,
		llm: llm,
	}, nil
}

func (g *langchainGenerator) Generate(ctx context.Context, messages []Message) (Output, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(langchainRole(msg.Role), msg.Text))
	}

	resp, err := g.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(g.cfg.MaxTokens),
		llms.WithTemperature(g.cfg.Temperature),
	)
	if err != nil {
		return Output{}, err
	}

	if len(resp.Choices) == 0 {
		return Output{}, oops.In("llm").Errorf("no choices in response")
	}

	choice := resp.Choices[0]

	return Output{
		Text: choice.Content,
		Usage: Usage{
			PromptTokens:     intInfo(choice.GenerationInfo, "PromptTokens"),
			CompletionTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
			TotalTokens:      intInfo(choice.GenerationInfo, "TotalTokens"),
		},
	}, nil
}

func langchainRole(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
