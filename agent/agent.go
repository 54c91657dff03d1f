// Package agent implements a tool-augmented completion loop around a
// provider client. Agents are stateless between calls: conversation history
// is owned by the session layer and passed into Complete, so one agent
// instance can serve many sessions concurrently.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	cgerrors "github.com/sweetpotato0/chatgraph/errors"
	"github.com/sweetpotato0/chatgraph/message"
	"github.com/sweetpotato0/chatgraph/middleware"
	"github.com/sweetpotato0/chatgraph/pkg/logging"
	"github.com/sweetpotato0/chatgraph/prompt"
	"github.com/sweetpotato0/chatgraph/provider"
	"github.com/sweetpotato0/chatgraph/tokenizer"
	"github.com/sweetpotato0/chatgraph/tool"
)

// Agent is a named model profile: a system prompt, a provider client and an
// optional tool registry.
type Agent struct {
	name          string
	systemPrompt  string
	maxIterations int
	temperature   float64
	enableTools   bool
	llm           provider.Client
	tools         *tool.Registry
	prompts       *prompt.Manager
	middlewares   *middleware.Chain
	counter       *tokenizer.Tokenizer
	tokenBudget   int
	logger        *slog.Logger

	providerMu     sync.Mutex
	toolProviders  []tool.Provider
	providerLoaded map[tool.Provider]bool
	providerWatch  map[tool.Provider]context.CancelFunc
}

// Option configures an Agent
type Option func(*Agent)

// WithName sets the agent name
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithSystemPrompt sets the system prompt
func WithSystemPrompt(p string) Option {
	return func(a *Agent) {
		a.systemPrompt = p
	}
}

// WithMaxIterations sets the maximum tool-call rounds per completion
func WithMaxIterations(max int) Option {
	return func(a *Agent) {
		a.maxIterations = max
	}
}

// WithTemperature sets the generation temperature
func WithTemperature(temp float64) Option {
	return func(a *Agent) {
		a.temperature = temp
	}
}

// WithProvider sets the model provider
func WithProvider(client provider.Client) Option {
	return func(a *Agent) {
		a.llm = client
	}
}

// WithTools enables or disables tool usage
func WithTools(enable bool) Option {
	return func(a *Agent) {
		a.enableTools = enable
	}
}

// WithToolRegistry sets a shared tool registry
func WithToolRegistry(registry *tool.Registry) Option {
	return func(a *Agent) {
		if registry != nil {
			a.tools = registry
		}
	}
}

// WithToolProvider registers a tool provider that supplies tools on demand
func WithToolProvider(p tool.Provider) Option {
	return func(a *Agent) {
		if p == nil {
			return
		}
		a.providerMu.Lock()
		defer a.providerMu.Unlock()
		a.toolProviders = append(a.toolProviders, p)
	}
}

// WithTokenBudget caps the conversation sent to the provider. The oldest
// non-system turns are dropped when the history exceeds budget tokens.
func WithTokenBudget(counter *tokenizer.Tokenizer, budget int) Option {
	return func(a *Agent) {
		a.counter = counter
		a.tokenBudget = budget
	}
}

// WithMiddleware adds a middleware to the agent
func WithMiddleware(m middleware.Middleware) Option {
	return func(a *Agent) {
		a.middlewares.Add(m)
	}
}

// WithMiddlewares replaces the middleware chain
func WithMiddlewares(middlewares ...middleware.Middleware) Option {
	return func(a *Agent) {
		a.middlewares = middleware.NewChain(middlewares...)
	}
}

// New creates an agent with the given options
func New(opts ...Option) *Agent {
	a := &Agent{
		name:           "agent",
		maxIterations:  10,
		temperature:    0.7,
		enableTools:    true,
		tools:          tool.NewRegistry(),
		prompts:        prompt.NewManager(),
		middlewares:    middleware.NewChain(),
		providerLoaded: make(map[tool.Provider]bool),
		providerWatch:  make(map[tool.Provider]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.WithComponent("agent").With("agent", a.name)

	if a.llm != nil {
		a.llm.SetTemperature(a.temperature)
	}

	return a
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.name
}

// SystemPrompt returns the agent's system prompt.
func (a *Agent) SystemPrompt() string {
	return a.systemPrompt
}

// RegisterTool registers a tool with the agent
func (a *Agent) RegisterTool(t *tool.Tool) error {
	return a.tools.Register(t)
}

// RegisterPrompt registers a prompt template
func (a *Agent) RegisterPrompt(name, content string) error {
	return a.prompts.RegisterString(name, content)
}

// RenderPrompt renders a registered prompt template
func (a *Agent) RenderPrompt(name string, vars map[string]any) (string, error) {
	return a.prompts.Render(name, vars)
}

// Complete runs the completion loop over the given history and returns the
// final assistant message. Tool calls requested by the model are executed
// and fed back until the model answers in plain text or the iteration bound
// trips. Tool failures are absorbed into the conversation as tool messages;
// only provider failures abort the run. The input history is not modified.
func (a *Agent) Complete(ctx context.Context, history []*message.Message) (*message.Message, error) {
	if a.llm == nil {
		return nil, fmt.Errorf("agent %s has no provider configured", a.name)
	}
	if err := a.loadToolProviders(ctx); err != nil {
		return nil, err
	}

	mwCtx := middleware.NewContext(ctx)
	mwCtx.Input = lastUserText(history)
	mwCtx.Messages = history

	err := a.middlewares.Execute(mwCtx, func(mwCtx *middleware.Context) error {
		conversation := a.prepareConversation(history)

		for i := 0; i < a.maxIterations; i++ {
			var toolSchemas []map[string]any
			if a.enableTools {
				toolSchemas = a.tools.ToJSONSchemas()
			}

			response, err := a.llm.Generate(mwCtx.Context(), conversation, toolSchemas)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			conversation = message.Append(conversation, response)
			mwCtx.Response = response

			if len(response.ToolCalls) == 0 {
				return nil
			}

			for _, call := range response.ToolCalls {
				result, err := a.tools.Execute(mwCtx.Context(), call.Name, call.Args)
				if err != nil {
					// The model sees the failure and decides how to proceed.
					result = fmt.Sprintf("Error executing tool %s: %v", call.Name, err)
					a.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
				}
				conversation = message.Append(conversation, message.NewToolResponseMessage(call.ID, result))
			}
		}

		mwCtx.Error = fmt.Errorf("%w: %d rounds", cgerrors.ErrMaxIterations, a.maxIterations)
		return mwCtx.Error
	})
	if err != nil {
		return nil, err
	}

	if mwCtx.Response == nil {
		return nil, cgerrors.ErrNoResponse
	}
	return mwCtx.Response, nil
}

// Ask runs a one-shot completion for input with no prior history.
func (a *Agent) Ask(ctx context.Context, input string) (string, error) {
	response, err := a.Complete(ctx, []*message.Message{
		message.NewMessage(message.RoleUser, input),
	})
	if err != nil {
		return "", err
	}
	return response.Text(), nil
}

// AsTool exposes the agent as a callable tool so another agent can delegate
// requests to it mid-conversation.
func (a *Agent) AsTool(name, description string) *tool.Tool {
	return &tool.Tool{
		Name:        name,
		Description: description,
		Parameters: []tool.Parameter{
			{
				Name:        "request",
				Type:        "string",
				Description: "The request to forward to the agent",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			request, ok := args["request"].(string)
			if !ok || request == "" {
				return "", fmt.Errorf("request must be a non-empty string")
			}
			return a.Ask(ctx, request)
		},
	}
}

// prepareConversation prefixes the agent's system prompt unless the history
// already starts with a system message, then applies the token budget.
func (a *Agent) prepareConversation(history []*message.Message) []*message.Message {
	conversation := make([]*message.Message, 0, len(history)+1)
	if a.systemPrompt != "" && (len(history) == 0 || history[0] == nil || history[0].Role != message.RoleSystem) {
		conversation = append(conversation, message.NewMessage(message.RoleSystem, a.systemPrompt))
	}
	conversation = append(conversation, history...)

	if a.counter != nil && a.tokenBudget > 0 {
		trimmed := a.counter.TrimHistory(conversation, a.tokenBudget)
		if len(trimmed) < len(conversation) {
			a.logger.Debug("history trimmed to token budget", "before", len(conversation), "after", len(trimmed))
		}
		conversation = trimmed
	}
	return conversation
}

func lastUserText(history []*message.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i] != nil && history[i].Role == message.RoleUser {
			return history[i].Text()
		}
	}
	return ""
}

func (a *Agent) loadToolProviders(ctx context.Context) error {
	if !a.enableTools {
		return nil
	}

	for _, p := range a.getToolProviders() {
		if p == nil || a.isProviderLoaded(p) {
			continue
		}
		if err := a.refreshProviderTools(ctx, p); err != nil {
			return err
		}
		a.markProviderLoaded(p)
		a.startProviderWatcher(p)
	}
	return nil
}

func (a *Agent) getToolProviders() []tool.Provider {
	a.providerMu.Lock()
	defer a.providerMu.Unlock()
	return append([]tool.Provider(nil), a.toolProviders...)
}

func (a *Agent) isProviderLoaded(p tool.Provider) bool {
	a.providerMu.Lock()
	defer a.providerMu.Unlock()
	return a.providerLoaded[p]
}

func (a *Agent) markProviderLoaded(p tool.Provider) {
	a.providerMu.Lock()
	defer a.providerMu.Unlock()
	a.providerLoaded[p] = true
}

func (a *Agent) refreshProviderTools(ctx context.Context, p tool.Provider) error {
	tools, err := p.Tools(ctx)
	if err != nil {
		return fmt.Errorf("load tools from provider: %w", err)
	}
	for _, t := range tools {
		if t == nil || t.Name == "" {
			continue
		}
		if err := a.tools.Upsert(t); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) startProviderWatcher(p tool.Provider) {
	ch := p.ToolsChanged()
	if ch == nil {
		return
	}

	a.providerMu.Lock()
	if _, exists := a.providerWatch[p]; exists {
		a.providerMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.providerWatch[p] = cancel
	a.providerMu.Unlock()

	go a.watchProvider(ctx, p, ch)
}

func (a *Agent) watchProvider(ctx context.Context, p tool.Provider, ch <-chan struct{}) {
	defer a.removeProviderWatcher(p)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if err := a.refreshProviderTools(ctx, p); err != nil {
				a.logger.Warn("failed to refresh provider tools", "error", err)
			}
		}
	}
}

func (a *Agent) removeProviderWatcher(p tool.Provider) {
	a.providerMu.Lock()
	defer a.providerMu.Unlock()
	if cancel, ok := a.providerWatch[p]; ok {
		cancel()
		delete(a.providerWatch, p)
	}
}

// Close stops provider watchers and releases tool providers.
func (a *Agent) Close() error {
	a.providerMu.Lock()
	for p, cancel := range a.providerWatch {
		cancel()
		delete(a.providerWatch, p)
	}
	providers := append([]tool.Provider(nil), a.toolProviders...)
	a.providerMu.Unlock()

	var firstErr error
	for _, p := range providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
