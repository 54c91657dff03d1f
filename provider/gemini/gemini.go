// Package gemini implements the provider.Client interface on top of the
// official Google generative-ai-go SDK.
package gemini

import (
	"context"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sweetpotato0/chatgraph/message"
	"github.com/sweetpotato0/chatgraph/provider"
)

const vendor = "gemini"

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-2.0-flash",
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements provider.Client for Google Gemini
type Provider struct {
	mu     sync.Mutex
	config *Config
	client *genai.Client
}

// New creates a new Gemini provider. The underlying API client is created on
// the first Generate call so the constructor stays infallible like the other
// providers.
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	return &Provider{config: config}
}

func (p *Provider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	if p.config.APIKey == "" {
		return nil, provider.Errorf(vendor, "API key not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.config.APIKey))
	if err != nil {
		return nil, provider.Wrap(vendor, err)
	}
	p.client = client
	return client, nil
}

// Generate implements provider.Client
func (p *Provider) Generate(ctx context.Context, messages []*message.Message, tools []map[string]any) (*message.Message, error) {
	if len(messages) == 0 {
		return nil, provider.Errorf(vendor, "no messages provided")
	}

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	model := client.GenerativeModel(p.config.Model)
	model.SetTemperature(p.config.Temperature)
	model.SetMaxOutputTokens(p.config.MaxTokens)
	p.mu.Unlock()

	if decls := declarationsFromSchemas(tools); len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	system, history, last := splitConversation(messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if last == nil {
		return nil, provider.Errorf(vendor, "conversation has no sendable message")
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, contentFor(last).Parts...)
	if err != nil {
		return nil, provider.Wrap(vendor, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, provider.Errorf(vendor, "no candidates in response")
	}

	return decodeCandidate(resp.Candidates[0])
}

// splitConversation separates system text from the chat turns. The final
// non-system message is returned separately because the SDK sends it rather
// than replaying it from history.
func splitConversation(messages []*message.Message) (string, []*genai.Content, *message.Message) {
	var (
		system []string
		turns  []*message.Message
	)
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if msg.Role == message.RoleSystem {
			system = append(system, msg.Text())
			continue
		}
		turns = append(turns, msg)
	}
	if len(turns) == 0 {
		return strings.Join(system, "\n\n"), nil, nil
	}

	last := turns[len(turns)-1]
	history := make([]*genai.Content, 0, len(turns)-1)
	for _, msg := range turns[:len(turns)-1] {
		history = append(history, contentFor(msg))
	}
	return strings.Join(system, "\n\n"), history, last
}

func contentFor(msg *message.Message) *genai.Content {
	switch msg.Role {
	case message.RoleAssistant:
		parts := make([]genai.Part, 0, 1+len(msg.ToolCalls))
		if text := msg.Text(); text != "" {
			parts = append(parts, genai.Text(text))
		}
		for _, tc := range msg.ToolCalls {
			parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: tc.Args})
		}
		return &genai.Content{Role: "model", Parts: parts}
	case message.RoleTool:
		return &genai.Content{
			Role: "function",
			Parts: []genai.Part{genai.FunctionResponse{
				Name:     msg.ToolID,
				Response: map[string]any{"result": msg.Text()},
			}},
		}
	default:
		return &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Text())}}
	}
}

func decodeCandidate(candidate *genai.Candidate) (*message.Message, error) {
	var (
		textParts []message.Part
		toolCalls []message.ToolCall
	)
	for _, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			textParts = append(textParts, message.TextPart(string(v)))
		case genai.FunctionCall:
			// Gemini does not assign call IDs; the function name doubles
			// as the correlation key for the response turn.
			toolCalls = append(toolCalls, message.ToolCall{
				ID:   v.Name,
				Name: v.Name,
				Args: v.Args,
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
		return nil, provider.Errorf(vendor, "no content parts in candidate")
	}
	return message.NewPartsMessage(message.RoleAssistant, textParts...), nil
}

// declarationsFromSchemas converts the registry's JSON-schema tool payloads
// into Gemini function declarations.
func declarationsFromSchemas(tools []map[string]any) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, schema := range tools {
		fn, ok := schema["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := fn["name"].(string)
		if name == "" {
			continue
		}
		description, _ := fn["description"].(string)
		decl := &genai.FunctionDeclaration{
			Name:        name,
			Description: description,
		}
		if params, ok := fn["parameters"].(map[string]any); ok {
			decl.Parameters = schemaFromMap(params)
		}
		decls = append(decls, decl)
	}
	return decls
}

func schemaFromMap(raw map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: typeFromString(stringValue(raw["type"]))}
	if desc := stringValue(raw["description"]); desc != "" {
		schema.Description = desc
	}
	if props, ok := raw["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, propRaw := range props {
			if propMap, ok := propRaw.(map[string]any); ok {
				schema.Properties[name] = schemaFromMap(propMap)
			}
		}
	}
	if items, ok := raw["items"].(map[string]any); ok {
		schema.Items = schemaFromMap(items)
	}
	if required, ok := raw["required"].([]any); ok {
		for _, item := range required {
			if name, ok := item.(string); ok {
				schema.Required = append(schema.Required, name)
			}
		}
	} else if required, ok := raw["required"].([]string); ok {
		schema.Required = required
	}
	if enums, ok := raw["enum"].([]any); ok {
		for _, item := range enums {
			if s, ok := item.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	return schema
}

func typeFromString(s string) genai.Type {
	switch strings.ToLower(s) {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// SetTemperature updates the temperature setting
func (p *Provider) SetTemperature(temp float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Temperature = float32(temp)
}

// SetMaxTokens updates the max tokens setting
func (p *Provider) SetMaxTokens(max int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.MaxTokens = int32(max)
}

// SetModel updates the model
func (p *Provider) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Model = model
}
