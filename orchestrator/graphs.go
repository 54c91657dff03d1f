package orchestrator

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/chatgraph/agent"
	"github.com/sweetpotato0/chatgraph/graph"
	"github.com/sweetpotato0/chatgraph/message"
	"github.com/sweetpotato0/chatgraph/pkg/logging"
	"github.com/sweetpotato0/chatgraph/routing"
)

// Node names shared by the orchestration graphs.
const (
	nodeRootDecide    = "root_decide"
	nodeAnswerDirect  = "answer_direct"
	nodeQueryAgent    = "query_agent"
	nodeRootIntegrate = "root_integrate"
	nodeRootAgent     = "root_agent"
	nodeClassify      = "classify"
	nodeEnd           = "end"
)

// delegationMaxVisits bounds how often the root agent may re-enter a node in
// one run. The decide-delegate-integrate cycle touches each node at most
// once, so anything above that indicates the model is looping.
const delegationMaxVisits = 3

// BuildDelegationGraph constructs the session chat flow: the root agent
// decides between answering directly and delegating to the query agent; a
// delegated run is followed by an integration step where the root agent
// turns the query output into the final answer.
//
//	root_decide --answer_directly--> answer_direct --> end
//	root_decide --query_agent-----> query_agent --> root_integrate --> end
func BuildDelegationGraph(p *Profiles) *graph.Graph {
	logger := logging.WithComponent("orchestrator")

	decide := func(ctx context.Context, state *graph.State) (string, error) {
		input := ""
		if last := state.LastMessage(); last != nil {
			input = last.Text()
		}
		promptText, err := p.prompts.Render(promptRouting, map[string]any{"Input": input})
		if err != nil {
			return "", err
		}

		resp, err := p.Root.Complete(ctx, []*message.Message{
			message.NewMessage(message.RoleUser, promptText),
		})
		if err != nil {
			return "", err
		}

		label := routing.Classify(resp.Text(), routing.DelegationLabels, routing.LabelAnswerDirectly)
		logger.Info("root agent decision", "session_id", state.SessionID, "label", label)
		return label, nil
	}

	answerDirect := func(ctx context.Context, state *graph.State) (*graph.State, error) {
		resp, err := p.Root.Complete(ctx, state.History)
		if err != nil {
			return nil, err
		}
		state.AppendHistory(resp)
		return state, nil
	}

	runQuery := func(ctx context.Context, state *graph.State) (*graph.State, error) {
		resp, err := p.Query.Complete(ctx, state.History)
		if err != nil {
			return nil, err
		}
		logger.Info("query agent responded", "session_id", state.SessionID, "length", len(resp.Text()))
		state.AppendHistory(resp)
		return state, nil
	}

	integrate := func(ctx context.Context, state *graph.State) (*graph.State, error) {
		last := state.LastMessage()
		if last == nil {
			return nil, fmt.Errorf("no query result to integrate")
		}
		promptText, err := p.prompts.Render(promptIntegration, map[string]any{"Results": last.Text()})
		if err != nil {
			return nil, err
		}

		resp, err := p.Root.Complete(ctx, []*message.Message{
			message.NewMessage(message.RoleUser, promptText),
		})
		if err != nil {
			return nil, err
		}
		state.AppendHistory(resp)
		return state, nil
	}

	return graph.NewBuilder().
		AddConditionNode(nodeRootDecide, decide, map[string]string{
			routing.LabelQueryAgent:     nodeQueryAgent,
			routing.LabelAnswerDirectly: nodeAnswerDirect,
		}).
		AddNode(nodeAnswerDirect, graph.NodeTypeAgent, answerDirect).
		AddNode(nodeQueryAgent, graph.NodeTypeAgent, runQuery).
		AddNode(nodeRootIntegrate, graph.NodeTypeAgent, integrate).
		AddNode(nodeEnd, graph.NodeTypeEnd, nil).
		AddEdge(nodeAnswerDirect, nodeEnd).
		AddEdge(nodeQueryAgent, nodeRootIntegrate).
		AddEdge(nodeRootIntegrate, nodeEnd).
		SetStart(nodeRootDecide).
		SetMaxVisits(delegationMaxVisits).
		Build()
}

// BuildAssistantGraph constructs the single-node flow where the root agent
// carries the query agent as a callable tool and handles everything itself.
func BuildAssistantGraph(p *Profiles) *graph.Graph {
	run := func(ctx context.Context, state *graph.State) (*graph.State, error) {
		resp, err := p.Assistant.Complete(ctx, state.History)
		if err != nil {
			return nil, err
		}
		state.AppendHistory(resp)
		return state, nil
	}

	return graph.NewBuilder().
		AddNode(nodeRootAgent, graph.NodeTypeAgent, run).
		AddNode(nodeEnd, graph.NodeTypeEnd, nil).
		AddEdge(nodeRootAgent, nodeEnd).
		SetStart(nodeRootAgent).
		Build()
}

// BuildSubjectGraph constructs the one-shot classification flow: a
// classifier picks the subject agent, the chosen agent answers, the run
// ends. Unrecognized labels fall back to the general agent.
func BuildSubjectGraph(p *Profiles) *graph.Graph {
	logger := logging.WithComponent("orchestrator")

	classify := func(ctx context.Context, state *graph.State) (string, error) {
		query := ""
		if last := state.LastMessage(); last != nil {
			query = last.Text()
		}
		promptText, err := p.prompts.Render(promptClassify, map[string]any{"Query": query})
		if err != nil {
			return "", err
		}

		resp, err := p.Classifier.Complete(ctx, []*message.Message{
			message.NewMessage(message.RoleUser, promptText),
		})
		if err != nil {
			return "", err
		}

		label := routing.Classify(resp.Text(), routing.SubjectLabels, routing.LabelGeneral)
		logger.Info("subject classification", "label", label)
		return label, nil
	}

	answerWith := func(ag *agent.Agent) graph.NodeFunc {
		return func(ctx context.Context, state *graph.State) (*graph.State, error) {
			resp, err := ag.Complete(ctx, state.History)
			if err != nil {
				return nil, err
			}
			state.AppendHistory(resp)
			return state, nil
		}
	}

	return graph.NewBuilder().
		AddConditionNode(nodeClassify, classify, map[string]string{
			routing.LabelMathAgent:    routing.LabelMathAgent,
			routing.LabelScienceAgent: routing.LabelScienceAgent,
			routing.LabelGeneral:      routing.LabelGeneral,
		}).
		AddNode(routing.LabelMathAgent, graph.NodeTypeAgent, answerWith(p.Math)).
		AddNode(routing.LabelScienceAgent, graph.NodeTypeAgent, answerWith(p.Science)).
		AddNode(routing.LabelGeneral, graph.NodeTypeAgent, answerWith(p.General)).
		AddNode(nodeEnd, graph.NodeTypeEnd, nil).
		AddEdge(routing.LabelMathAgent, nodeEnd).
		AddEdge(routing.LabelScienceAgent, nodeEnd).
		AddEdge(routing.LabelGeneral, nodeEnd).
		SetStart(nodeClassify).
		Build()
}
