package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	cgerrors "github.com/sweetpotato0/chatgraph/errors"
	"github.com/sweetpotato0/chatgraph/message"
)

type recordingMiddleware struct {
	name  string
	order *[]string
}

func (m *recordingMiddleware) Name() string { return m.name }

func (m *recordingMiddleware) Execute(ctx *Context, next Handler) error {
	*m.order = append(*m.order, m.name+":before")
	err := next(ctx)
	*m.order = append(*m.order, m.name+":after")
	return err
}

func TestChainExecutionOrder(t *testing.T) {
	var order []string
	chain := NewChain(
		&recordingMiddleware{name: "first", order: &order},
		&recordingMiddleware{name: "second", order: &order},
	)

	err := chain.Execute(NewContext(context.Background()), func(ctx *Context) error {
		order = append(order, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("chain execution failed: %v", err)
	}

	want := []string{"first:before", "second:before", "handler", "second:after", "first:after"}
	if len(order) != len(want) {
		t.Fatalf("Expected %d steps, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Step %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestInputValidatorStopsChain(t *testing.T) {
	chain := NewChain(NewInputValidator(func(input string) error {
		if input == "" {
			return errors.New("empty input")
		}
		return nil
	}))

	handlerCalled := false
	ctx := NewContext(context.Background())
	ctx.Input = ""
	err := chain.Execute(ctx, func(ctx *Context) error {
		handlerCalled = true
		return nil
	})
	if err == nil {
		t.Error("Expected validation error")
	}
	if handlerCalled {
		t.Error("Expected handler to be skipped after validation failure")
	}
}

func TestResponseFilter(t *testing.T) {
	chain := NewChain(NewResponseFilter(func(msg *message.Message) error {
		if msg.Text() == "blocked" {
			return errors.New("filtered")
		}
		return nil
	}))

	ctx := NewContext(context.Background())
	err := chain.Execute(ctx, func(ctx *Context) error {
		ctx.Response = message.NewMessage(message.RoleAssistant, "blocked")
		return nil
	})
	if err == nil {
		t.Error("Expected filter to reject response")
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2)
	chain := NewChain(limiter)

	run := func() error {
		return chain.Execute(NewContext(context.Background()), func(ctx *Context) error {
			return nil
		})
	}

	if err := run(); err != nil {
		t.Fatalf("First run should pass: %v", err)
	}
	if err := run(); err != nil {
		t.Fatalf("Second run should pass: %v", err)
	}
	if err := run(); !errors.Is(err, cgerrors.ErrRateLimitExceeded) {
		t.Errorf("Expected ErrRateLimitExceeded, got %v", err)
	}

	limiter.Reset()
	if err := run(); err != nil {
		t.Errorf("Expected run to pass after reset: %v", err)
	}
}

func TestRateLimiterConcurrent(t *testing.T) {
	const limit = 50
	limiter := NewRateLimiter(limit)
	chain := NewChain(limiter)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		passed int
	)
	for i := 0; i < limit*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := chain.Execute(NewContext(context.Background()), func(ctx *Context) error {
				return nil
			})
			if err == nil {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if passed != limit {
		t.Errorf("Expected exactly %d runs to pass, got %d", limit, passed)
	}
}

func TestErrorPropagation(t *testing.T) {
	var order []string
	chain := NewChain(&recordingMiddleware{name: "outer", order: &order})

	wantErr := fmt.Errorf("handler failed")
	err := chain.Execute(NewContext(context.Background()), func(ctx *Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected handler error propagated, got %v", err)
	}
}
