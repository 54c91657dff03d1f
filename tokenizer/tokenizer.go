// Package tokenizer measures conversation size in model tokens and trims
// history to a budget before it is sent to a provider.
package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/sweetpotato0/chatgraph/message"
)

// perMessageOverhead approximates the tokens each chat turn costs beyond its
// text (role markers, separators).
const perMessageOverhead = 4

// Tokenizer counts tokens using a tiktoken encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New resolves the encoding for a model name, falling back to treating the
// name as an encoding name (e.g. "cl100k_base").
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// Encode returns the token IDs for text.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode reassembles text from token IDs.
func (t *Tokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

// CountMessage returns the token cost of a single chat turn.
func (t *Tokenizer) CountMessage(msg *message.Message) int {
	if msg == nil {
		return 0
	}
	return t.CountTokens(msg.Text()) + perMessageOverhead
}

// CountHistory returns the total token cost of a conversation.
func (t *Tokenizer) CountHistory(messages []*message.Message) int {
	total := 0
	for _, msg := range messages {
		total += t.CountMessage(msg)
	}
	return total
}

// TrimHistory drops the oldest non-system messages until the conversation
// fits the budget. System messages are always kept, as is the newest message
// even when it alone exceeds the budget. The input slice is not modified.
func (t *Tokenizer) TrimHistory(messages []*message.Message, budget int) []*message.Message {
	if budget <= 0 || t.CountHistory(messages) <= budget {
		return messages
	}

	var system, rest []*message.Message
	for _, msg := range messages {
		if msg != nil && msg.Role == message.RoleSystem {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	used := t.CountHistory(system)
	// Walk newest to oldest, keeping turns while they fit.
	keepFrom := len(rest)
	for i := len(rest) - 1; i >= 0; i-- {
		cost := t.CountMessage(rest[i])
		if used+cost > budget && keepFrom < len(rest) {
			break
		}
		used += cost
		keepFrom = i
	}

	trimmed := make([]*message.Message, 0, len(system)+len(rest)-keepFrom)
	trimmed = append(trimmed, system...)
	trimmed = append(trimmed, rest[keepFrom:]...)
	return trimmed
}
