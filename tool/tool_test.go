package tool

import (
	"context"
	"encoding/json"
	"testing"
)

func TestToolExecute(t *testing.T) {
	tl := &Tool{
		Name:        "echo",
		Description: "echoes input",
		Parameters: []Parameter{
			{Name: "text", Type: "string", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
	}

	out, err := tl.Execute(context.Background(), map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "hi" {
		t.Errorf("Expected 'hi', got '%s'", out)
	}
}

func TestToolExecuteMissingRequired(t *testing.T) {
	tl := &Tool{
		Name:       "strict",
		Parameters: []Parameter{{Name: "must", Type: "string", Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", nil
		},
	}

	_, err := tl.Execute(context.Background(), map[string]any{})
	if err == nil {
		t.Error("Expected error for missing required parameter")
	}
}

func TestToolExecuteNoHandler(t *testing.T) {
	tl := &Tool{Name: "empty"}
	_, err := tl.Execute(context.Background(), nil)
	if err == nil {
		t.Error("Expected error for tool without handler")
	}
}

func TestRegistryRegisterAndExecute(t *testing.T) {
	r := NewRegistry()

	tl := &Tool{
		Name: "ping",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "pong", nil
		},
	}

	if err := r.Register(tl); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := r.Register(tl); err == nil {
		t.Error("Expected error registering duplicate tool")
	}

	out, err := r.Execute(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "pong" {
		t.Errorf("Expected 'pong', got '%s'", out)
	}

	if _, err := r.Execute(context.Background(), "missing", nil); err == nil {
		t.Error("Expected error executing unknown tool")
	}
}

func TestRegistryUpsert(t *testing.T) {
	r := NewRegistry()
	tl := &Tool{Name: "v", Handler: func(ctx context.Context, args map[string]any) (string, error) { return "1", nil }}
	if err := r.Upsert(tl); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	replacement := &Tool{Name: "v", Handler: func(ctx context.Context, args map[string]any) (string, error) { return "2", nil }}
	if err := r.Upsert(replacement); err != nil {
		t.Fatalf("Upsert replace failed: %v", err)
	}
	out, _ := r.Execute(context.Background(), "v", nil)
	if out != "2" {
		t.Errorf("Expected upserted handler, got '%s'", out)
	}
}

func TestToJSONSchema(t *testing.T) {
	tl := &Tool{
		Name:        "query",
		Description: "run a query",
		Parameters: []Parameter{
			{Name: "sql", Type: "string", Description: "SQL text", Required: true},
		},
	}

	schema := tl.ToJSONSchema()
	fn, ok := schema["function"].(map[string]any)
	if !ok {
		t.Fatal("Expected function entry in schema")
	}
	if fn["name"] != "query" {
		t.Errorf("Expected name 'query', got %v", fn["name"])
	}
}

func TestResultEncode(t *testing.T) {
	res := Result{
		Successful:  true,
		Data:        []map[string]any{{"id": 1}},
		RecordCount: 1,
		ElapsedMs:   12,
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(res.Encode()), &decoded); err != nil {
		t.Fatalf("Encode produced invalid JSON: %v", err)
	}
	if decoded["query_successful"] != true {
		t.Error("Expected query_successful true")
	}
	if decoded["record_count"] != float64(1) {
		t.Errorf("Expected record_count 1, got %v", decoded["record_count"])
	}
}

func TestFailureResult(t *testing.T) {
	res := Failure("boom")
	if res.Successful {
		t.Error("Expected unsuccessful result")
	}
	if res.Error != "boom" {
		t.Errorf("Expected error 'boom', got '%s'", res.Error)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(res.Encode()), &decoded); err != nil {
		t.Fatalf("Encode produced invalid JSON: %v", err)
	}
	if decoded["error"] != "boom" {
		t.Errorf("Expected encoded error 'boom', got %v", decoded["error"])
	}
}
