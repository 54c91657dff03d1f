package orchestrator

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/chatgraph/agent"
	cgerrors "github.com/sweetpotato0/chatgraph/errors"
	"github.com/sweetpotato0/chatgraph/middleware"
	"github.com/sweetpotato0/chatgraph/pkg/logging"
	"github.com/sweetpotato0/chatgraph/prompt"
	"github.com/sweetpotato0/chatgraph/provider"
	"github.com/sweetpotato0/chatgraph/routing"
	"github.com/sweetpotato0/chatgraph/tool"
)

// Profiles bundles the agent roster the orchestration graphs run over. All
// profiles share one provider client; what distinguishes them is their
// system prompt and tool access.
type Profiles struct {
	// Root decides routing, answers directly and integrates query results.
	Root *agent.Agent
	// Query answers data questions with the execute_query tool.
	Query *agent.Agent
	// Assistant is the root profile with the query agent mounted as a tool.
	Assistant *agent.Agent
	// Classifier picks a subject agent label.
	Classifier *agent.Agent
	// Subject agents for the one-shot chat flow.
	Math    *agent.Agent
	Science *agent.Agent
	General *agent.Agent

	prompts *prompt.Manager
}

// NewProfiles builds the agent roster. queryTools are registered on the
// query agent (typically the SQL tool, plus any MCP-provided tools).
func NewProfiles(client provider.Client, queryTools ...*tool.Tool) (*Profiles, error) {
	logger := logging.WithComponent("orchestrator")
	validateInput := middleware.NewInputValidator(func(input string) error {
		if strings.TrimSpace(input) == "" {
			return fmt.Errorf("%w: input cannot be empty", cgerrors.ErrInvalidInput)
		}
		return nil
	})
	p := &Profiles{
		Root: agent.New(
			agent.WithName("root_agent"),
			agent.WithProvider(client),
			agent.WithSystemPrompt(rootPrompt),
			agent.WithTools(false),
			agent.WithMiddleware(validateInput),
			agent.WithMiddleware(middleware.NewRequestLogger(logger)),
			agent.WithMiddleware(middleware.NewResponseLogger(logger)),
		),
		Query: agent.New(
			agent.WithName(routing.LabelQueryAgent),
			agent.WithProvider(client),
			agent.WithSystemPrompt(queryPrompt),
		),
		Classifier: agent.New(
			agent.WithName("classifier"),
			agent.WithProvider(client),
			agent.WithTools(false),
		),
		Math: agent.New(
			agent.WithName(routing.LabelMathAgent),
			agent.WithProvider(client),
			agent.WithSystemPrompt(mathPrompt),
			agent.WithTools(false),
		),
		Science: agent.New(
			agent.WithName(routing.LabelScienceAgent),
			agent.WithProvider(client),
			agent.WithSystemPrompt(sciencePrompt),
			agent.WithTools(false),
		),
		General: agent.New(
			agent.WithName(routing.LabelGeneral),
			agent.WithProvider(client),
			agent.WithSystemPrompt(generalPrompt),
			agent.WithTools(false),
		),
		prompts: prompt.NewManager(),
	}

	for _, t := range queryTools {
		if t == nil {
			continue
		}
		if err := p.Query.RegisterTool(t); err != nil {
			return nil, err
		}
	}

	p.Assistant = agent.New(
		agent.WithName("assistant"),
		agent.WithProvider(client),
		agent.WithSystemPrompt(rootPrompt),
		agent.WithMiddleware(validateInput),
		agent.WithMiddleware(middleware.NewRequestLogger(logger)),
		agent.WithMiddleware(middleware.NewResponseLogger(logger)),
	)
	if err := p.Assistant.RegisterTool(p.Query.AsTool(
		routing.LabelQueryAgent,
		"Execute database queries and return results. Use this when you need to retrieve data from the database.",
	)); err != nil {
		return nil, err
	}

	for name, tmpl := range map[string]string{
		promptRouting:     routingTemplate,
		promptIntegration: integrationTemplate,
		promptClassify:    classifyTemplate,
	} {
		if err := p.prompts.RegisterString(name, tmpl); err != nil {
			return nil, err
		}
	}

	return p, nil
}
