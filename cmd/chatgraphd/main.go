// chatgraphd serves the multi-agent chat API over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweetpotato0/chatgraph/config"
	"github.com/sweetpotato0/chatgraph/orchestrator"
	"github.com/sweetpotato0/chatgraph/pkg/logging"
	"github.com/sweetpotato0/chatgraph/pkg/telemetry"
	"github.com/sweetpotato0/chatgraph/provider"
	"github.com/sweetpotato0/chatgraph/provider/claude"
	"github.com/sweetpotato0/chatgraph/provider/gemini"
	"github.com/sweetpotato0/chatgraph/provider/openai"
	"github.com/sweetpotato0/chatgraph/server"
	"github.com/sweetpotato0/chatgraph/session"
	"github.com/sweetpotato0/chatgraph/session/store"
	"github.com/sweetpotato0/chatgraph/tool"
	"github.com/sweetpotato0/chatgraph/tool/mcp"
	"github.com/sweetpotato0/chatgraph/tool/sqlquery"
)

func main() {
	if err := run(); err != nil {
		logging.Logger().Error("chatgraphd failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := logging.WithComponent("chatgraphd")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "chatgraphd",
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		Disable:        cfg.TelemetryOff,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	client := newProvider(cfg)
	logger.Info("llm provider configured", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	sessionStore, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init session store: %w", err)
	}
	defer closeStore()
	logger.Info("session store configured", "backend", cfg.Session.Backend)

	queryTools, closeTools, err := buildQueryTools(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init query tools: %w", err)
	}
	defer closeTools()

	profiles, err := orchestrator.NewProfiles(client, queryTools...)
	if err != nil {
		return fmt.Errorf("init agents: %w", err)
	}

	sessions := session.NewManager(session.WithStore(sessionStore))
	svc := orchestrator.NewService(sessions,
		orchestrator.BuildDelegationGraph(profiles),
		orchestrator.WithSubjectGraph(orchestrator.BuildSubjectGraph(profiles)),
		orchestrator.WithTimeout(cfg.RunTimeout),
	)

	srv := server.New(cfg.Addr, svc)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func newProvider(cfg *config.Config) provider.Client {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		c := openai.DefaultConfig(cfg.LLM.APIKey)
		if cfg.LLM.Model != "" {
			c.Model = cfg.LLM.Model
		}
		c.Temperature = cfg.LLM.Temperature
		c.MaxTokens = int64(cfg.LLM.MaxTokens)
		return openai.New(c)
	case config.ProviderClaude:
		c := claude.DefaultConfig(cfg.LLM.APIKey)
		if cfg.LLM.Model != "" {
			c.Model = cfg.LLM.Model
		}
		c.Temperature = cfg.LLM.Temperature
		c.MaxTokens = int64(cfg.LLM.MaxTokens)
		return claude.New(c)
	default:
		c := gemini.DefaultConfig(cfg.LLM.APIKey)
		if cfg.LLM.Model != "" {
			c.Model = cfg.LLM.Model
		}
		c.Temperature = float32(cfg.LLM.Temperature)
		c.MaxTokens = int32(cfg.LLM.MaxTokens)
		return gemini.New(c)
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.Session.Backend {
	case config.StoreRedis:
		rs := store.NewRedisStore(&store.RedisConfig{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
			Prefix:   cfg.Session.Redis.Prefix,
			TTL:      cfg.Session.Redis.TTL,
		})
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return rs, func() { _ = rs.Close() }, nil
	case config.StoreMongo:
		ms, err := store.NewMongoStore(ctx, &store.MongoConfig{
			URI:        cfg.Session.Mongo.URI,
			Database:   cfg.Session.Mongo.Database,
			Collection: cfg.Session.Mongo.Collection,
		})
		if err != nil {
			return nil, nil, err
		}
		return ms, func() { _ = ms.Close(context.Background()) }, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}

// buildQueryTools assembles the tools available to the query agent: the SQL
// tool when a Postgres DSN is configured, plus anything an MCP server offers.
func buildQueryTools(ctx context.Context, cfg *config.Config) ([]*tool.Tool, func(), error) {
	var (
		tools   []*tool.Tool
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.PostgresDSN != "" {
		db, err := sqlquery.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		tools = append(tools, sqlquery.New(db))
	}

	if cfg.MCP.Endpoint != "" || cfg.MCP.Command != "" {
		p, err := mcp.NewProvider(ctx, mcp.Config{
			Endpoint: cfg.MCP.Endpoint,
			Command:  cfg.MCP.Command,
			Args:     cfg.MCP.Args,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = p.Close() })

		mcpTools, err := p.Tools(ctx)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		tools = append(tools, mcpTools...)
	}

	return tools, closeAll, nil
}
