package prompt

import (
	"strings"
	"testing"
)

func TestTemplateRender(t *testing.T) {
	tmpl, err := NewTemplate("greeting", "Hello, {{.Name}}!")
	if err != nil {
		t.Fatalf("NewTemplate failed: %v", err)
	}

	got, err := tmpl.Render(map[string]any{"Name": "world"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got != "Hello, world!" {
		t.Errorf("Render = %q, want %q", got, "Hello, world!")
	}
}

func TestNewTemplateParseError(t *testing.T) {
	if _, err := NewTemplate("bad", "Hello, {{.Name"); err == nil {
		t.Error("Expected parse error for malformed template")
	}
}

func TestManagerRegisterAndRender(t *testing.T) {
	m := NewManager()
	if err := m.RegisterString("route", "Decide for: {{.Input}}"); err != nil {
		t.Fatalf("RegisterString failed: %v", err)
	}

	got, err := m.Render("route", map[string]any{"Input": "how many users?"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got != "Decide for: how many users?" {
		t.Errorf("Render = %q", got)
	}
}

func TestManagerRejectsDuplicates(t *testing.T) {
	m := NewManager()
	if err := m.RegisterString("route", "a"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := m.RegisterString("route", "b"); err == nil {
		t.Error("Expected error registering duplicate template name")
	}
}

func TestManagerGetMissing(t *testing.T) {
	m := NewManager()
	if _, err := m.Get("absent"); err == nil {
		t.Error("Expected error for missing template")
	}
}

func TestManagerList(t *testing.T) {
	m := NewManager()
	_ = m.RegisterString("a", "one")
	_ = m.RegisterString("b", "two")

	names := m.List()
	if len(names) != 2 {
		t.Errorf("List() returned %d names, want 2", len(names))
	}
}

func TestBuilder(t *testing.T) {
	got := NewBuilder().
		AddLine("You are a helpful assistant.").
		AddSection("Rules", "Answer briefly.").
		AddFormat("Today is %s.", "Monday").
		Build()

	if !strings.HasPrefix(got, "You are a helpful assistant.\n") {
		t.Errorf("Unexpected prefix: %q", got)
	}
	if !strings.Contains(got, "## Rules\nAnswer briefly.\n") {
		t.Errorf("Missing section: %q", got)
	}
	if !strings.HasSuffix(got, "Today is Monday.") {
		t.Errorf("Unexpected suffix: %q", got)
	}
}
