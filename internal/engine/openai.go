package engine

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"wyckoff_watcher/internal/models"
)

// OpenAI is the fallback engine, reached through chat completions with a
// JSON-object response format. Same instruction, same reply schema as the
// primary, so the dispatcher does not care which engine answered.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI reads OPENAI_API_KEY and OPENAI_MODEL from the environment.
func NewOpenAI() *OpenAI {
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4o
	}
	var client *openai.Client
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		client = openai.NewClient(key)
	}
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) Name() string {
	return o.model
}

// Configured reports whether an API key was present.
func (o *OpenAI) Configured() bool {
	return o.client != nil
}

func (o *OpenAI) Analyze(ctx context.Context, req models.AnalysisRequest) (*Reply, error) {
	if o.client == nil {
		return nil, fmt.Errorf("openai engine not configured")
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformed)
	}

	return parseReply(resp.Choices[0].Message.Content)
}
