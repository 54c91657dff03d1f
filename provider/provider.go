// Package provider defines the boundary to language-model vendors. A
// provider turns an ordered conversation (plus optional tool schemas) into
// one assistant message; everything above this interface is vendor-agnostic.
package provider

import (
	"context"
	"fmt"

	cgerrors "github.com/sweetpotato0/chatgraph/errors"
	"github.com/sweetpotato0/chatgraph/message"
)

// Client is the completion interface consumed by agents.
type Client interface {
	// Generate produces the next assistant message for the conversation.
	// tools carries JSON-schema tool definitions; pass nil to disable tool
	// use for the call.
	Generate(ctx context.Context, messages []*message.Message, tools []map[string]any) (*message.Message, error)

	// SetTemperature updates the temperature setting for generation
	SetTemperature(temp float64)

	// SetMaxTokens updates the maximum tokens limit for generation
	SetMaxTokens(max int64)

	// SetModel updates the model to use for generation
	SetModel(model string)
}

// Wrap marks a vendor error as a provider failure so callers can test with
// errors.Is(err, errors.ErrProvider).
func Wrap(vendor string, err error) error {
	return fmt.Errorf("%w: %s: %v", cgerrors.ErrProvider, vendor, err)
}

// Errorf builds a provider failure from scratch (malformed response, missing
// candidates and the like).
func Errorf(vendor, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", cgerrors.ErrProvider, vendor, fmt.Sprintf(format, args...))
}
