package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	cgerrors "github.com/sweetpotato0/chatgraph/errors"
	"github.com/sweetpotato0/chatgraph/graph"
	"github.com/sweetpotato0/chatgraph/message"
	"github.com/sweetpotato0/chatgraph/pkg/logging"
	"github.com/sweetpotato0/chatgraph/pkg/telemetry"
	"github.com/sweetpotato0/chatgraph/session"
)

// NoResponseText is returned to the caller when a run finishes with an
// empty history.
const NoResponseText = "No response generated"

// defaultRunTimeout bounds one orchestration run end to end.
const defaultRunTimeout = 2 * time.Minute

// Service ties the orchestration graphs to session storage. ProcessMessage
// runs the session-scoped chat graph; Ask runs the stateless subject graph.
type Service struct {
	sessions *session.Manager
	chat     *graph.Graph
	subject  *graph.Graph
	timeout  time.Duration
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSubjectGraph sets the graph used by Ask.
func WithSubjectGraph(g *graph.Graph) ServiceOption {
	return func(s *Service) {
		s.subject = g
	}
}

// WithTimeout bounds each run.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService creates an orchestration service running chatGraph over the
// given session manager.
func NewService(sessions *session.Manager, chatGraph *graph.Graph, opts ...ServiceOption) *Service {
	s := &Service{
		sessions: sessions,
		chat:     chatGraph,
		timeout:  defaultRunTimeout,
		logger:   logging.WithComponent("orchestrator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessMessage appends the user input to the session history, runs the
// chat graph over it and commits the extended history. Concurrent calls for
// the same session serialize; a failed run commits nothing.
func (s *Service) ProcessMessage(ctx context.Context, sessionID, userID, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("%w: input cannot be empty", cgerrors.ErrInvalidInput)
	}
	if sessionID == "" {
		return "", fmt.Errorf("%w: session_id cannot be empty", cgerrors.ErrInvalidInput)
	}

	ctx, span := telemetry.Tracer("orchestrator").Start(ctx, "ProcessMessage")
	span.SetAttributes(attribute.String("session.id", sessionID))
	var err error
	defer func() { telemetry.End(span, err) }()

	release := s.sessions.Acquire(sessionID)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record, err := s.sessions.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return "", err
	}

	if len(record.History) > 0 {
		s.logger.Info("continuing session", "session_id", sessionID, "user_id", userID, "history_length", len(record.History))
	} else {
		s.logger.Info("new session", "session_id", sessionID, "user_id", userID)
	}

	record.AppendHistory(message.NewMessage(message.RoleUser, input))

	state := &graph.State{
		SessionID: sessionID,
		UserID:    userID,
		History:   record.History,
	}

	final, err := s.chat.Execute(ctx, state)
	if err != nil {
		s.logger.Error("run failed", "session_id", sessionID, "error", err)
		return "", err
	}

	last := final.LastMessage()
	if last == nil {
		s.logger.Warn("run produced no response", "session_id", sessionID)
		return NoResponseText, nil
	}

	record.History = final.History
	if err = s.sessions.Commit(ctx, record); err != nil {
		return "", err
	}

	return last.Text(), nil
}

// Ask answers a one-shot query through the subject graph without touching
// session state.
func (s *Service) Ask(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: query cannot be empty", cgerrors.ErrInvalidInput)
	}
	if s.subject == nil {
		return "", fmt.Errorf("subject graph is not configured")
	}

	ctx, span := telemetry.Tracer("orchestrator").Start(ctx, "Ask")
	var err error
	defer func() { telemetry.End(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	state := &graph.State{
		History: []*message.Message{message.NewMessage(message.RoleUser, query)},
	}

	final, err := s.subject.Execute(ctx, state)
	if err != nil {
		return "", err
	}

	last := final.LastMessage()
	if last == nil {
		return NoResponseText, nil
	}
	return last.Text(), nil
}

// ClearSession drops the session history.
func (s *Service) ClearSession(ctx context.Context, sessionID string) error {
	release := s.sessions.Acquire(sessionID)
	defer release()
	return s.sessions.Clear(ctx, sessionID)
}
