package llm

import (
	"context"

	"govassist/app/config"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
	"github.com/samber/oops"
)

type einoGenerator struct {
	model *einoopenai.ChatModel
}

func newEinoGenerator(ctx context.Context, cfg config.LLM) (Generator, error) {
	maxTokens := cfg.MaxTokens
	temperature := float32(cfg.Temperature)

	model, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:      cfg.Token,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, oops.In("llm").Wrapf(err, "failed to create eino chat model")
	}

	return &einoGenerator{
		model: model,
	}, nil
}

func (g *einoGenerator) Generate(ctx context.Context, messages []Message) (Output, error) {
	input := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			input = append(input, schema.SystemMessage(msg.Text))
		case RoleAssistant:
			input = append(input, schema.AssistantMessage(msg.Text, nil))
		default:
			input = append(input, schema.UserMessage(msg.Text))
		}
	}

	out, err := g.model.Generate(ctx, input)
	if err != nil {
		return Output{}, err
	}

	result := Output{
		Text: out.Content,
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		result.Usage = Usage{
			PromptTokens:     out.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: out.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      out.ResponseMeta.Usage.TotalTokens,
		}
	}

	return result, nil
}
