// Package graph provides the finite-state machine that drives one
// orchestration run. Nodes either act (invoke an agent and append messages to
// the state's history) or decide (classify and pick the outgoing edge).
// Execution is strictly sequential: exactly one node runs at a time and
// exactly one edge is followed, until the end node is reached or the
// per-node revisit bound trips.
package graph

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/chatgraph/message"
)

// NodeType represents the type of a node in the graph
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeEnd       NodeType = "end"
	NodeTypeAgent     NodeType = "agent"
	NodeTypeCondition NodeType = "condition"
)

// State is the execution state threaded between nodes. It is created fresh
// for every run from the session's committed history and discarded (or
// committed) when the run ends; it is never shared between runs.
type State struct {
	SessionID string
	UserID    string
	History   []*message.Message
	// Route holds the label produced by the most recent condition node.
	Route string
}

// LastMessage returns the newest message in the history, or nil when empty.
func (s *State) LastMessage() *message.Message {
	if s == nil || len(s.History) == 0 {
		return nil
	}
	return s.History[len(s.History)-1]
}

// AppendHistory appends produced messages without mutating the prior slice.
func (s *State) AppendHistory(msgs ...*message.Message) {
	s.History = message.Append(s.History, msgs...)
}

// NodeFunc is the function executed by an action node
type NodeFunc func(context.Context, *State) (*State, error)

// ConditionFunc evaluates a routing decision and returns the chosen label
type ConditionFunc func(context.Context, *State) (string, error)

// Node represents a node in the execution graph
type Node struct {
	Name   string
	Type   NodeType
	Run    NodeFunc
	Decide ConditionFunc     // Only for condition nodes
	Next   string            // Unconditional outgoing edge
	Routes map[string]string // For condition nodes: label -> next node
}

// Graph represents an execution flow graph
type Graph struct {
	nodes     map[string]*Node
	startNode string
	maxVisits int
}

// NewGraph creates a new graph
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		maxVisits: 10,
	}
}

func (g *Graph) validateNode(node *Node) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}

	switch node.Type {
	case NodeTypeCondition:
		if node.Decide == nil {
			panic(fmt.Sprintf("condition node %s must have non-nil Decide function", node.Name))
		}
	case NodeTypeEnd:
		// end nodes may omit Run
	default:
		if node.Run == nil {
			panic(fmt.Sprintf("node %s of type %s must have non-nil Run function", node.Name, node.Type))
		}
	}
}

// AddNode adds a node to the graph
func (g *Graph) AddNode(node *Node) {
	if _, exists := g.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}

	g.validateNode(node)

	g.nodes[node.Name] = node

	if node.Type == NodeTypeStart {
		g.startNode = node.Name
	}
}

// SetStartNode sets the start node
func (g *Graph) SetStartNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.startNode = name
}

// SetMaxVisits sets the maximum number of visits to a node per run
func (g *Graph) SetMaxVisits(maxVisits int) {
	g.maxVisits = maxVisits
}

// GetNode returns a node by name
func (g *Graph) GetNode(name string) (*Node, error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node %s not found", name)
	}
	return node, nil
}

// Execute walks the graph from the start node until an end node returns the
// final state. Condition nodes consult Decide and follow Routes[label];
// action nodes run and follow Next. Revisiting any node more than maxVisits
// times aborts the run: a model that keeps re-selecting delegation must not
// spin forever.
func (g *Graph) Execute(ctx context.Context, initial *State) (*State, error) {
	if g.startNode == "" {
		return nil, fmt.Errorf("start node not set")
	}

	state := initial
	if state == nil {
		state = &State{}
	}

	visited := make(map[string]int)
	current := g.startNode

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node, exists := g.nodes[current]
		if !exists {
			return nil, fmt.Errorf("node %s not found", current)
		}

		visited[current]++
		if visited[current] > g.maxVisits {
			return nil, fmt.Errorf("infinite loop detected at node %s", current)
		}

		if node.Type == NodeTypeEnd {
			if node.Run != nil {
				return node.Run(ctx, state)
			}
			return state, nil
		}

		next, err := g.step(ctx, node, state)
		if err != nil {
			return nil, err
		}
		current = next
	}
}

func (g *Graph) step(ctx context.Context, node *Node, state *State) (string, error) {
	if node.Type == NodeTypeCondition {
		label, err := node.Decide(ctx, state)
		if err != nil {
			return "", fmt.Errorf("error evaluating condition at node %s: %w", node.Name, err)
		}
		state.Route = label
		next := node.Routes[label]
		if next == "" {
			return "", fmt.Errorf("no route for label %q at node %s", label, node.Name)
		}
		return next, nil
	}

	updated, err := node.Run(ctx, state)
	if err != nil {
		return "", fmt.Errorf("error executing node %s: %w", node.Name, err)
	}
	if updated != nil {
		*state = *updated
	}
	if node.Next == "" {
		return "", fmt.Errorf("no next node specified for node %s", node.Name)
	}
	return node.Next, nil
}

// Builder helps build graphs fluently
type Builder struct {
	graph *Graph
}

// NewBuilder creates a new graph builder
func NewBuilder() *Builder {
	return &Builder{
		graph: NewGraph(),
	}
}

// AddNode adds an action node to the graph
func (b *Builder) AddNode(name string, nodeType NodeType, run NodeFunc) *Builder {
	b.graph.AddNode(&Node{
		Name: name,
		Type: nodeType,
		Run:  run,
	})
	return b
}

// AddConditionNode adds a condition node with its label routing table
func (b *Builder) AddConditionNode(name string, decide ConditionFunc, routes map[string]string) *Builder {
	b.graph.AddNode(&Node{
		Name:   name,
		Type:   NodeTypeCondition,
		Decide: decide,
		Routes: routes,
	})
	return b
}

// AddEdge connects an action node to its successor
func (b *Builder) AddEdge(from, to string) *Builder {
	if node, exists := b.graph.nodes[from]; exists {
		node.Next = to
	}
	return b
}

// SetStart sets the start node
func (b *Builder) SetStart(name string) *Builder {
	b.graph.SetStartNode(name)
	return b
}

// SetMaxVisits sets the per-node revisit bound
func (b *Builder) SetMaxVisits(maxVisits int) *Builder {
	b.graph.SetMaxVisits(maxVisits)
	return b
}

// Build returns the constructed graph
func (b *Builder) Build() *Graph {
	return b.graph
}
