package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/sweetpotato0/chatgraph/message"
)

func TestSplitConversation(t *testing.T) {
	messages := []*message.Message{
		message.NewMessage(message.RoleSystem, "You are helpful."),
		message.NewMessage(message.RoleUser, "hello"),
		message.NewMessage(message.RoleAssistant, "hi there"),
		message.NewMessage(message.RoleUser, "what is 2+2?"),
	}

	system, history, last := splitConversation(messages)
	if system != "You are helpful." {
		t.Errorf("Expected system instruction, got %q", system)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 history turns, got %d", len(history))
	}
	if history[1].Role != "model" {
		t.Errorf("Expected assistant turn mapped to model role, got %q", history[1].Role)
	}
	if last == nil || last.Text() != "what is 2+2?" {
		t.Error("Expected the final user message to be returned separately")
	}
}

func TestContentForToolResponse(t *testing.T) {
	msg := message.NewToolResponseMessage("execute_query", `{"query_successful":true}`)

	content := contentFor(msg)
	if content.Role != "function" {
		t.Errorf("Expected function role, got %q", content.Role)
	}
	fr, ok := content.Parts[0].(genai.FunctionResponse)
	if !ok {
		t.Fatalf("Expected FunctionResponse part, got %T", content.Parts[0])
	}
	if fr.Name != "execute_query" {
		t.Errorf("Expected response correlated by tool name, got %q", fr.Name)
	}
}

func TestDecodeCandidateToolCall(t *testing.T) {
	candidate := &genai.Candidate{
		Content: &genai.Content{
			Role: "model",
			Parts: []genai.Part{
				genai.FunctionCall{Name: "execute_query", Args: map[string]any{"sql_query": "SELECT 1"}},
			},
		},
	}

	msg, err := decodeCandidate(candidate)
	if err != nil {
		t.Fatalf("decodeCandidate failed: %v", err)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].Name != "execute_query" || msg.ToolCalls[0].ID != "execute_query" {
		t.Error("Expected function name used as call ID")
	}
}

func TestDecodeCandidateEmpty(t *testing.T) {
	candidate := &genai.Candidate{Content: &genai.Content{Role: "model"}}
	if _, err := decodeCandidate(candidate); err == nil {
		t.Error("Expected error for candidate without parts")
	}
}

func TestDeclarationsFromSchemas(t *testing.T) {
	schemas := []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        "execute_query",
				"description": "Run a read-only SQL query",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sql_query": map[string]any{"type": "string", "description": "query text"},
					},
					"required": []string{"sql_query"},
				},
			},
		},
		{"type": "function"}, // malformed, skipped
	}

	decls := declarationsFromSchemas(schemas)
	if len(decls) != 1 {
		t.Fatalf("Expected 1 declaration, got %d", len(decls))
	}
	decl := decls[0]
	if decl.Name != "execute_query" {
		t.Errorf("Expected name execute_query, got %q", decl.Name)
	}
	if decl.Parameters == nil || decl.Parameters.Type != genai.TypeObject {
		t.Fatal("Expected object parameter schema")
	}
	if decl.Parameters.Properties["sql_query"].Type != genai.TypeString {
		t.Error("Expected sql_query property typed as string")
	}
	if len(decl.Parameters.Required) != 1 || decl.Parameters.Required[0] != "sql_query" {
		t.Error("Expected sql_query marked required")
	}
}

func TestGenerateWithoutAPIKey(t *testing.T) {
	p := New(DefaultConfig(""))
	_, err := p.Generate(context.Background(), []*message.Message{
		message.NewMessage(message.RoleUser, "hello"),
	}, nil)
	if err == nil {
		t.Error("Expected error when API key is missing")
	}
}
