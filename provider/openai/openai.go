// Package openai implements the provider.Client interface for the OpenAI
// chat completions API and compatible endpoints.
package openai

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/sweetpotato0/chatgraph/message"
	"github.com/sweetpotato0/chatgraph/provider"
)

const vendor = "openai"

// Config holds OpenAI provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gpt-4o-mini",
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements provider.Client for OpenAI
type Provider struct {
	mu     sync.Mutex
	config *Config
	client openai.Client
}

// New creates a new OpenAI provider
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		config: config,
		client: openai.NewClient(opts...),
	}
}

// Generate implements provider.Client
func (p *Provider) Generate(ctx context.Context, messages []*message.Message, tools []map[string]any) (*message.Message, error) {
	if len(messages) == 0 {
		return nil, provider.Errorf(vendor, "no messages provided")
	}

	p.mu.Lock()
	params := openai.ChatCompletionNewParams{
		Messages:            encodeMessages(messages),
		Model:               shared.ChatModel(p.config.Model),
		Temperature:         openai.Float(p.config.Temperature),
		MaxCompletionTokens: openai.Int(p.config.MaxTokens),
	}
	p.mu.Unlock()

	if toolParams := encodeTools(tools); len(toolParams) > 0 {
		params.Tools = toolParams
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, provider.Wrap(vendor, err)
	}
	if len(completion.Choices) == 0 {
		return nil, provider.Errorf(vendor, "no choices in response")
	}

	return decodeChoice(completion.Choices[0]), nil
}

func encodeMessages(messages []*message.Message) []openai.ChatCompletionMessageParamUnion {
	encoded := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case message.RoleSystem:
			encoded = append(encoded, openai.SystemMessage(msg.Text()))
		case message.RoleAssistant:
			encoded = append(encoded, encodeAssistant(msg))
		case message.RoleTool:
			encoded = append(encoded, openai.ToolMessage(msg.Text(), msg.ToolID))
		default:
			encoded = append(encoded, openai.UserMessage(msg.Text()))
		}
	}
	return encoded
}

func encodeAssistant(msg *message.Message) openai.ChatCompletionMessageParamUnion {
	if len(msg.ToolCalls) == 0 {
		return openai.AssistantMessage(msg.Text())
	}

	assistant := openai.ChatCompletionAssistantMessageParam{}
	if text := msg.Text(); text != "" {
		assistant.Content.OfString = openai.String(text)
	}
	for _, tc := range msg.ToolCalls {
		args, err := json.Marshal(tc.Args)
		if err != nil {
			args = []byte("{}")
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(args),
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func encodeTools(tools []map[string]any) []openai.ChatCompletionToolUnionParam {
	encoded := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, schema := range tools {
		fn, ok := schema["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := fn["name"].(string)
		if name == "" {
			continue
		}
		def := shared.FunctionDefinitionParam{Name: name}
		if description, _ := fn["description"].(string); description != "" {
			def.Description = openai.String(description)
		}
		if params, ok := fn["parameters"].(map[string]any); ok {
			def.Parameters = shared.FunctionParameters(params)
		}
		encoded = append(encoded, openai.ChatCompletionFunctionTool(def))
	}
	return encoded
}

func decodeChoice(choice openai.ChatCompletionChoice) *message.Message {
	if len(choice.Message.ToolCalls) == 0 {
		return message.NewMessage(message.RoleAssistant, choice.Message.Content)
	}

	toolCalls := make([]message.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		toolCalls = append(toolCalls, message.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}

	msg := message.NewToolCallMessage(toolCalls)
	if choice.Message.Content != "" {
		msg.Content = choice.Message.Content
	}
	return msg
}

// SetTemperature updates the temperature setting
func (p *Provider) SetTemperature(temp float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Temperature = temp
}

// SetMaxTokens updates the max tokens setting
func (p *Provider) SetMaxTokens(max int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.MaxTokens = max
}

// SetModel updates the model
func (p *Provider) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Model = model
}
