// Package app wires the AI task service: stores, session resolution,
// provider dispatch, orchestration, and the gRPC health surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/atriumhq/atrium/internal/platform/config"
	"github.com/atriumhq/atrium/internal/platform/timeouts"
	"github.com/atriumhq/atrium/internal/services/ai/orchestrator"
	"github.com/atriumhq/atrium/internal/services/ai/provider"
	aisqlite "github.com/atriumhq/atrium/internal/services/ai/storage/sqlite"
	"github.com/atriumhq/atrium/internal/services/ai/usage"
	"github.com/atriumhq/atrium/internal/services/identity/session"
	identitysqlite "github.com/atriumhq/atrium/internal/services/identity/storage/sqlite"
	"github.com/atriumhq/atrium/internal/services/identity/token"
)

// serverEnv holds env-parsed configuration for the AI server.
type serverEnv struct {
	DBPath         string `env:"ATRIUM_AI_DB_PATH"`
	IdentityDBPath string `env:"ATRIUM_IDENTITY_DB_PATH"`

	OpenAIAPIKey       string `env:"ATRIUM_AI_OPENAI_API_KEY"`
	OpenAIResponsesURL string `env:"ATRIUM_AI_OPENAI_RESPONSES_URL"`
	OpenAIModel        string `env:"ATRIUM_AI_OPENAI_MODEL"`

	AnthropicAPIKey      string `env:"ATRIUM_AI_ANTHROPIC_API_KEY"`
	AnthropicMessagesURL string `env:"ATRIUM_AI_ANTHROPIC_MESSAGES_URL"`
	AnthropicModel       string `env:"ATRIUM_AI_ANTHROPIC_MODEL"`

	GeminiAPIKey  string `env:"ATRIUM_AI_GEMINI_API_KEY"`
	GeminiBaseURL string `env:"ATRIUM_AI_GEMINI_BASE_URL"`
	GeminiModel   string `env:"ATRIUM_AI_GEMINI_MODEL"`

	DefaultBackend  string        `env:"ATRIUM_AI_DEFAULT_BACKEND" envDefault:"openai"`
	SessionCacheTTL time.Duration `env:"ATRIUM_SESSION_CACHE_TTL" envDefault:"30s"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "ai.db")
	}
	if cfg.IdentityDBPath == "" {
		cfg.IdentityDBPath = filepath.Join("data", "identity.db")
	}
	if cfg.SessionCacheTTL == 0 {
		cfg.SessionCacheTTL = timeouts.SessionCacheTTL
	}
	return cfg
}

// buildGenerators assembles one dispatcher per configured backend. Adapters
// are constructed regardless of key presence so a missing credential
// surfaces as a fatal adapter error on first use rather than a nil backend.
func buildGenerators(env serverEnv) []orchestrator.Generator {
	return []orchestrator.Generator{
		provider.NewDispatcher(provider.NewOpenAIAdapter(provider.OpenAIConfig{
			APIKey:       env.OpenAIAPIKey,
			ResponsesURL: env.OpenAIResponsesURL,
			Model:        env.OpenAIModel,
		})),
		provider.NewDispatcher(provider.NewAnthropicAdapter(provider.AnthropicConfig{
			APIKey:      env.AnthropicAPIKey,
			MessagesURL: env.AnthropicMessagesURL,
			Model:       env.AnthropicModel,
		})),
		provider.NewDispatcher(provider.NewGeminiAdapter(provider.GeminiConfig{
			APIKey:  env.GeminiAPIKey,
			BaseURL: env.GeminiBaseURL,
			Model:   env.GeminiModel,
		})),
	}
}

// Server hosts the AI task service.
type Server struct {
	listener      net.Listener
	grpcServer    *grpc.Server
	health        *health.Server
	usageStore    *aisqlite.Store
	identityStore *identitysqlite.Store
	resolver      *session.Resolver
	orchestrator  *orchestrator.Orchestrator
	ledger        *usage.Ledger
	closeOnce     sync.Once
}

// New creates a configured AI server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured AI server listening on the provided address.
func NewWithAddr(addr string) (*Server, error) {
	srvEnv := loadServerEnv()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	usageStore, err := openUsageStore(srvEnv.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	identityStore, err := openIdentityStore(srvEnv.IdentityDBPath)
	if err != nil {
		_ = listener.Close()
		_ = usageStore.Close()
		return nil, err
	}

	tokenConfig, err := token.LoadConfigFromEnv(nil)
	if err != nil {
		_ = listener.Close()
		_ = usageStore.Close()
		_ = identityStore.Close()
		return nil, fmt.Errorf("load identity token config: %w", err)
	}

	identity := session.NewTokenIdentity(tokenConfig, identityStore)
	resolver := session.NewResolverWithCache(identity, session.Stores{
		Users:       identityStore,
		Tenants:     identityStore,
		Memberships: identityStore,
	}, srvEnv.SessionCacheTTL)

	ledger := usage.NewLedger(usageStore)
	taskOrchestrator := orchestrator.New(ledger, buildGenerators(srvEnv)...)
	if backend, ok := provider.ParseBackend(srvEnv.DefaultBackend); ok {
		taskOrchestrator.SetDefaultBackend(backend)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("atrium.ai.TaskService", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:      listener,
		grpcServer:    grpcServer,
		health:        healthServer,
		usageStore:    usageStore,
		identityStore: identityStore,
		resolver:      resolver,
		orchestrator:  taskOrchestrator,
		ledger:        ledger,
	}, nil
}

func openUsageStore(path string) (*aisqlite.Store, error) {
	store, err := aisqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open usage store: %w", err)
	}
	return store, nil
}

func openIdentityStore(path string) (*identitysqlite.Store, error) {
	store, err := identitysqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identity store: %w", err)
	}
	return store, nil
}

// Addr returns the listener address for the AI server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Resolver returns the session resolver for embedding surfaces.
func (s *Server) Resolver() *session.Resolver {
	return s.resolver
}

// Orchestrator returns the task orchestrator for embedding surfaces.
func (s *Server) Orchestrator() *orchestrator.Orchestrator {
	return s.orchestrator
}

// Ledger returns the usage ledger for embedding surfaces.
func (s *Server) Ledger() *usage.Ledger {
	return s.ledger
}

// Run creates and serves an AI server until the context ends.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// RunWithAddr creates and serves an AI server until the context ends.
func RunWithAddr(ctx context.Context, addr string) error {
	server, err := NewWithAddr(addr)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the AI server and blocks until it stops or context ends.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("ai server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(timeouts.Shutdown):
			s.grpcServer.Stop()
		}
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.grpcServer != nil {
			s.grpcServer.Stop()
		}
		if s.usageStore != nil {
			if err := s.usageStore.Close(); err != nil {
				log.Printf("close usage store: %v", err)
			}
		}
		if s.identityStore != nil {
			if err := s.identityStore.Close(); err != nil {
				log.Printf("close identity store: %v", err)
			}
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// SwitchTenant updates a caller's active tenant selection and drops any
// cached session so the next resolution reflects the switch.
func (s *Server) SwitchTenant(ctx context.Context, callerID string, selectorToken string) *session.Context {
	s.resolver.InvalidateCachedSession(callerID)
	return s.resolver.ResolveSession(ctx, strings.TrimSpace(selectorToken))
}
