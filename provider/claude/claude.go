// Package claude implements the provider.Client interface for the Anthropic
// Messages API.
package claude

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sweetpotato0/chatgraph/message"
	"github.com/sweetpotato0/chatgraph/provider"
)

const vendor = "claude"

// Config holds Claude provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       string(anthropic.ModelClaudeSonnet4_0),
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements provider.Client for Anthropic Claude
type Provider struct {
	mu     sync.Mutex
	config *Config
	client anthropic.Client
}

// New creates a new Claude provider
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = string(anthropic.ModelClaudeSonnet4_0)
	}

	return &Provider{
		config: config,
		client: anthropic.NewClient(option.WithAPIKey(config.APIKey)),
	}
}

// Generate implements provider.Client
func (p *Provider) Generate(ctx context.Context, messages []*message.Message, tools []map[string]any) (*message.Message, error) {
	if len(messages) == 0 {
		return nil, provider.Errorf(vendor, "no messages provided")
	}

	system, turns := encodeMessages(messages)

	p.mu.Lock()
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.config.Model),
		MaxTokens:   p.config.MaxTokens,
		Temperature: anthropic.Float(p.config.Temperature),
		Messages:    turns,
	}
	p.mu.Unlock()

	if len(system) > 0 {
		params.System = system
	}
	if toolParams := encodeTools(tools); len(toolParams) > 0 {
		params.Tools = toolParams
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, provider.Wrap(vendor, err)
	}

	return decodeResponse(resp)
}

func encodeMessages(messages []*message.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var (
		system []anthropic.TextBlockParam
		turns  []anthropic.MessageParam
	)
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case message.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Text()})
		case message.RoleAssistant:
			turns = append(turns, encodeAssistant(msg))
		case message.RoleTool:
			// Tool results travel inside a user turn.
			turns = append(turns, anthropic.NewUserMessage(anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: msg.ToolID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: msg.Text()}},
					},
				},
			}))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text())))
		}
	}
	return system, turns
}

func encodeAssistant(msg *message.Message) anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
	if text := msg.Text(); text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(text))
	}
	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfToolUse: &anthropic.ToolUseBlockParam{
				ID:    tc.ID,
				Name:  tc.Name,
				Input: tc.Args,
			},
		})
	}
	return anthropic.NewAssistantMessage(blocks...)
}

func encodeTools(tools []map[string]any) []anthropic.ToolUnionParam {
	encoded := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, schema := range tools {
		fn, ok := schema["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := fn["name"].(string)
		if name == "" {
			continue
		}

		toolParam := anthropic.ToolParam{Name: name}
		if description, _ := fn["description"].(string); description != "" {
			toolParam.Description = anthropic.String(description)
		}
		if params, ok := fn["parameters"].(map[string]any); ok {
			if props, ok := params["properties"].(map[string]any); ok {
				toolParam.InputSchema.Properties = props
			}
			toolParam.InputSchema.Required = requiredNames(params["required"])
		}

		encoded = append(encoded, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return encoded
}

func requiredNames(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		names := make([]string, 0, len(list))
		for _, item := range list {
			if name, ok := item.(string); ok {
				names = append(names, name)
			}
		}
		return names
	default:
		return nil
	}
}

func decodeResponse(resp *anthropic.Message) (*message.Message, error) {
	var (
		textParts []message.Part
		toolCalls []message.ToolCall
	)
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, message.TextPart(v.Text))
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(v.Input) > 0 {
				_ = json.Unmarshal(v.Input, &args)
			}
			toolCalls = append(toolCalls, message.ToolCall{
				ID:   v.ID,
				Name: v.Name,
				Args: args,
			})
		}
	}

	if len(toolCalls) > 0 {
		msg := message.NewToolCallMessage(toolCalls)
		if len(textParts) > 0 {
			msg.Parts = textParts
		}
		return msg, nil
	}
	if len(textParts) == 0 {
		return nil, provider.Errorf(vendor, "no content blocks in response")
	}
	return message.NewPartsMessage(message.RoleAssistant, textParts...), nil
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
