package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/c-emman/stock-insights-assistant/internal/model"
)

// OpenAIClient implements the Client interface using OpenAI's API.
// Classification uses function calling to get structured output; synthesis
// is a plain chat completion.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI-backed client.
func NewOpenAIClient(apiKey string, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (o *OpenAIClient) ProviderName() string { return "openai" }
func (o *OpenAIClient) ModelName() string    { return o.model }

func (o *OpenAIClient) ClassifyIntent(ctx context.Context, query string) (*model.Intent, error) {
	tools := []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        intentToolName,
				Description: "Submit the classified intent and extracted entities for the user's query.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": intentProperties,
					"required":   []string{"intent"},
				},
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Tools: tools,
		// Force the tool call; we never want a free-text classification.
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: intentToolName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	for _, toolCall := range resp.Choices[0].Message.ToolCalls {
		if toolCall.Function.Name == intentToolName {
			return parseIntent([]byte(toolCall.Function.Arguments))
		}
	}

	return nil, fmt.Errorf("%w: no %s tool call in reply", ErrMalformedOutput, intentToolName)
}

func (o *OpenAIClient) MapSymbols(ctx context.Context, names []string) (map[string]string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: resolveSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildResolvePrompt(names)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	content := cleanJSONResponse(resp.Choices[0].Message.Content)

	var mapping map[string]string
	if err := json.Unmarshal([]byte(content), &mapping); err != nil {
		return nil, fmt.Errorf("%w: parsing symbol mapping: %v", ErrMalformedOutput, err)
	}
	return mapping, nil
}

func (o *OpenAIClient) Synthesize(ctx context.Context, in *SynthesisInput) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: synthesizeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildSynthesisPrompt(in)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty synthesis reply", ErrMalformedOutput)
	}
	return text, nil
}
