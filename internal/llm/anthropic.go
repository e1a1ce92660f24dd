package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/c-emman/stock-insights-assistant/internal/model"
)

// AnthropicClient implements the Client interface using Claude.
// Classification defines a custom tool Claude calls to "submit" its answer,
// giving us clean JSON instead of free-form text to parse.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Claude-backed client.
func NewAnthropicClient(apiKey string, model string) *AnthropicClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicClient{
		client: &client,
		model:  model,
	}
}

func (a *AnthropicClient) ProviderName() string { return "anthropic" }
func (a *AnthropicClient) ModelName() string    { return a.model }

func (a *AnthropicClient) ClassifyIntent(ctx context.Context, query string) (*model.Intent, error) {
	submitTool := anthropic.ToolParam{
		Name:        intentToolName,
		Description: param.NewOpt("Submit the classified intent and extracted entities for the user's query. Call this exactly once."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: intentProperties,
		},
	}

	prompt := classifySystemPrompt + "\n\nUser query: " + query

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			{OfTool: &submitTool},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range message.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok || toolUse.Name != intentToolName {
			continue
		}

		inputBytes, err := json.Marshal(toolUse.Input)
		if err != nil {
			return nil, fmt.Errorf("marshaling tool input: %w", err)
		}
		return parseIntent(inputBytes)
	}

	// Claude answered in prose instead of calling the tool.
	return nil, fmt.Errorf("%w: no %s tool call in reply", ErrMalformedOutput, intentToolName)
}

func (a *AnthropicClient) MapSymbols(ctx context.Context, names []string) (map[string]string, error) {
	prompt := resolveSystemPrompt + "\n\n" + buildResolvePrompt(names)

	text, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var mapping map[string]string
	if err := json.Unmarshal([]byte(cleanJSONResponse(text)), &mapping); err != nil {
		return nil, fmt.Errorf("%w: parsing symbol mapping: %v", ErrMalformedOutput, err)
	}
	return mapping, nil
}

func (a *AnthropicClient) Synthesize(ctx context.Context, in *SynthesisInput) (string, error) {
	prompt := synthesizeSystemPrompt + "\n\n" + buildSynthesisPrompt(in)

	text, err := a.complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty synthesis reply", ErrMalformedOutput)
	}
	return text, nil
}

// complete runs a single-turn text completion and concatenates the text
// blocks of the reply.
func (a *AnthropicClient) complete(ctx context.Context, prompt string) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}
