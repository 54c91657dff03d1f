package message

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// PartTypeText marks a part that carries human-readable text.
const PartTypeText = "text"

// Part is one element of a structured message body. Providers that return
// multi-part content map each segment onto a Part; only text parts contribute
// to Text().
type Part struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Message represents a single message in a conversation. The body is either
// Content (plain text) or Parts (ordered structured parts), never both.
// Once a message has been appended to a history it must not be mutated;
// later turns only append.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content,omitempty"`
	Parts     []Part         `json:"parts,omitempty"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
	ToolID    string         `json:"tool_id,omitempty"` // For tool response messages
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToolCall represents a tool invocation request
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// NewMessage creates a new plain-text message with the given role and content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// NewPartsMessage creates a message whose body is a sequence of structured parts
func NewPartsMessage(role Role, parts ...Part) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Parts:     append([]Part(nil), parts...),
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// TextPart builds a text-bearing part
func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// Text returns the human-readable body of the message regardless of how it is
// stored: plain content is returned as-is, structured parts are concatenated
// in order (text parts only). A message with no text yields the empty string.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	if len(m.Parts) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Append returns a new history with msgs at the end. The input slice is never
// mutated from the caller's perspective.
func Append(history []*Message, msgs ...*Message) []*Message {
	out := make([]*Message, 0, len(history)+len(msgs))
	out = append(out, history...)
	out = append(out, msgs...)
	return out
}

// Clone creates a deep copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	if msg.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(msg.Metadata))
		for k, v := range msg.Metadata {
			cloned.Metadata[k] = v
		}
	}
	if len(msg.Parts) > 0 {
		cloned.Parts = append([]Part(nil), msg.Parts...)
	}
	if len(msg.ToolCalls) > 0 {
		cloned.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			cloned.ToolCalls[i] = cloneToolCall(tc)
		}
	}
	return &cloned
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		clones = append(clones, Clone(msg))
	}
	return clones
}

func cloneToolCall(call ToolCall) ToolCall {
	cloned := ToolCall{
		ID:   call.ID,
		Name: call.Name,
	}
	if call.Args != nil {
		cloned.Args = make(map[string]any, len(call.Args))
		for k, v := range call.Args {
			cloned.Args[k] = v
		}
	}
	return cloned
}

// NewToolCallMessage creates an assistant message carrying tool calls
func NewToolCallMessage(toolCalls []ToolCall) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		ToolCalls: toolCalls,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// NewToolResponseMessage creates a tool response message
func NewToolResponseMessage(toolID, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      RoleTool,
		Content:   content,
		ToolID:    toolID,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}
