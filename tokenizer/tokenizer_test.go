package tokenizer

import (
	"testing"

	"github.com/sweetpotato0/chatgraph/message"
)

func newTestTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := New("cl100k_base")
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	return tok
}

func TestCountTokens(t *testing.T) {
	tok := newTestTokenizer(t)

	if got := tok.CountTokens(""); got != 0 {
		t.Errorf("Expected 0 tokens for empty text, got %d", got)
	}
	if got := tok.CountTokens("hello world"); got == 0 {
		t.Error("Expected non-zero token count")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tok := newTestTokenizer(t)

	text := "the quick brown fox"
	if got := tok.Decode(tok.Encode(text)); got != text {
		t.Errorf("Round trip mismatch: %q", got)
	}
}

func TestTrimHistoryKeepsSystemAndNewest(t *testing.T) {
	tok := newTestTokenizer(t)

	history := []*message.Message{
		message.NewMessage(message.RoleSystem, "You are a helpful assistant."),
		message.NewMessage(message.RoleUser, "first question about a long forgotten topic"),
		message.NewMessage(message.RoleAssistant, "first answer with plenty of words in it"),
		message.NewMessage(message.RoleUser, "second question"),
	}

	budget := tok.CountHistory(history) - 1
	trimmed := tok.TrimHistory(history, budget)

	if len(trimmed) >= len(history) {
		t.Fatal("Expected trimming to drop at least one message")
	}
	if trimmed[0].Role != message.RoleSystem {
		t.Error("Expected system message kept")
	}
	last := trimmed[len(trimmed)-1]
	if last.Text() != "second question" {
		t.Errorf("Expected newest message kept, got %q", last.Text())
	}
}

func TestTrimHistoryNoopWithinBudget(t *testing.T) {
	tok := newTestTokenizer(t)

	history := []*message.Message{
		message.NewMessage(message.RoleUser, "hi"),
	}
	trimmed := tok.TrimHistory(history, 1000)
	if len(trimmed) != 1 {
		t.Fatalf("Expected untouched history, got %d messages", len(trimmed))
	}
}

func TestTrimHistoryTinyBudgetKeepsNewest(t *testing.T) {
	tok := newTestTokenizer(t)

	history := []*message.Message{
		message.NewMessage(message.RoleUser, "old message"),
		message.NewMessage(message.RoleUser, "a rather long newest message that alone exceeds the budget"),
	}
	trimmed := tok.TrimHistory(history, 1)
	if len(trimmed) != 1 {
		t.Fatalf("Expected only the newest message, got %d", len(trimmed))
	}
	if trimmed[0].Text() == "old message" {
		t.Error("Expected the newest message to survive trimming")
	}
}
