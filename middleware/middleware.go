// Package middleware provides an interception chain around agent execution.
// Middlewares see the user input before the model runs and the response
// after, and can short-circuit the chain by returning an error.
package middleware

import (
	"context"
	"log/slog"
	"sync"

	cgerrors "github.com/sweetpotato0/chatgraph/errors"
	"github.com/sweetpotato0/chatgraph/message"
	"github.com/sweetpotato0/chatgraph/pkg/logging"
)

// Context carries state through the middleware chain for one agent run.
type Context struct {
	// Original user input
	Input string

	// Conversation snapshot at the start of the run
	Messages []*message.Message

	// Final response from the model
	Response *message.Message

	// Error recorded by the run
	Error error

	// Metadata passes data between middlewares
	Metadata map[string]any

	context context.Context
}

// NewContext creates a middleware context bound to ctx.
func NewContext(ctx context.Context) *Context {
	return &Context{
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context.
func (c *Context) Context() context.Context {
	return c.context
}

// Middleware intercepts agent runs. Returning an error without calling next
// stops the chain.
type Middleware interface {
	// Name identifies the middleware in logs.
	Name() string

	// Execute runs the middleware logic around next.
	Execute(ctx *Context, next Handler) error
}

// Handler passes control to the next middleware in the chain.
type Handler func(*Context) error

// Chain is an ordered sequence of middlewares.
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a chain from the given middlewares.
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Add appends a middleware to the chain.
func (c *Chain) Add(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// List returns the middlewares in execution order.
func (c *Chain) List() []Middleware {
	return append([]Middleware(nil), c.middlewares...)
}

// Execute runs the chain, ending with finalHandler.
func (c *Chain) Execute(ctx *Context, finalHandler Handler) error {
	return c.step(ctx, 0, finalHandler)
}

func (c *Chain) step(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		return finalHandler(ctx)
	}
	next := func(ctx *Context) error {
		return c.step(ctx, index+1, finalHandler)
	}
	return c.middlewares[index].Execute(ctx, next)
}

// RequestLogger logs incoming inputs.
type RequestLogger struct {
	logger *slog.Logger
}

// NewRequestLogger creates a request logging middleware.
func NewRequestLogger(logger *slog.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.WithComponent("middleware")
	}
	return &RequestLogger{logger: logger}
}

func (m *RequestLogger) Name() string { return "RequestLogger" }

func (m *RequestLogger) Execute(ctx *Context, next Handler) error {
	m.logger.Debug("agent run started", "input_length", len(ctx.Input))
	return next(ctx)
}

// ResponseLogger logs outgoing responses.
type ResponseLogger struct {
	logger *slog.Logger
}

// NewResponseLogger creates a response logging middleware.
func NewResponseLogger(logger *slog.Logger) *ResponseLogger {
	if logger == nil {
		logger = logging.WithComponent("middleware")
	}
	return &ResponseLogger{logger: logger}
}

func (m *ResponseLogger) Name() string { return "ResponseLogger" }

func (m *ResponseLogger) Execute(ctx *Context, next Handler) error {
	err := next(ctx)
	if ctx.Response != nil {
		m.logger.Debug("agent run finished", "response_length", len(ctx.Response.Text()))
	}
	if err != nil {
		m.logger.Warn("agent run failed", "error", err)
	}
	return err
}

// InputValidator rejects inputs before they reach the model.
type InputValidator struct {
	validator func(string) error
}

// NewInputValidator creates an input validation middleware.
func NewInputValidator(validator func(string) error) *InputValidator {
	return &InputValidator{validator: validator}
}

func (m *InputValidator) Name() string { return "InputValidator" }

func (m *InputValidator) Execute(ctx *Context, next Handler) error {
	if m.validator != nil {
		if err := m.validator(ctx.Input); err != nil {
			return err
		}
	}
	return next(ctx)
}

// ResponseFilter transforms or rejects the final response.
type ResponseFilter struct {
	filter func(*message.Message) error
}

// NewResponseFilter creates a response filtering middleware.
func NewResponseFilter(filter func(*message.Message) error) *ResponseFilter {
	return &ResponseFilter{filter: filter}
}

func (m *ResponseFilter) Name() string { return "ResponseFilter" }

func (m *ResponseFilter) Execute(ctx *Context, next Handler) error {
	if err := next(ctx); err != nil {
		return err
	}
	if ctx.Response != nil && m.filter != nil {
		return m.filter(ctx.Response)
	}
	return nil
}

// RateLimiter caps the number of runs allowed through the chain.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	counter     int
}

// NewRateLimiter creates a rate limiting middleware allowing maxRequests runs.
func NewRateLimiter(maxRequests int) *RateLimiter {
	return &RateLimiter{maxRequests: maxRequests}
}

func (m *RateLimiter) Name() string { return "RateLimiter" }

func (m *RateLimiter) Execute(ctx *Context, next Handler) error {
	m.mu.Lock()
	if m.counter >= m.maxRequests {
		m.mu.Unlock()
		return cgerrors.ErrRateLimitExceeded
	}
	m.counter++
	m.mu.Unlock()
	return next(ctx)
}

// Reset clears the rate limiter counter.
func (m *RateLimiter) Reset() {
	m.mu.Lock()
	m.counter = 0
	m.mu.Unlock()
}
