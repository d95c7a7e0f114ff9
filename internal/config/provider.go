package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alechenninger/keymint/internal/auth"
	"github.com/alechenninger/keymint/internal/keys"
	"github.com/alechenninger/keymint/internal/probe"
	"github.com/alechenninger/keymint/internal/server"
	"github.com/alechenninger/keymint/internal/service"
	"github.com/alechenninger/keymint/internal/store"
)

// Provider constructs all application components from configuration.
// This is the main entry point for building a configured keymint instance.
type Provider struct {
	config *Config

	// Lazily constructed components (cached after first call)
	logger     *logrus.Logger
	repository store.Repository
	creds      auth.CredentialStore
	registry   *keys.Registry
	svc        *service.Service
	gate       *auth.Gate
}

// NewProvider creates a new provider from configuration
func NewProvider(config *Config) *Provider {
	return &Provider{config: config}
}

// Logger returns the configured logrus logger
func (p *Provider) Logger() *logrus.Logger {
	if p.logger != nil {
		return p.logger
	}

	logger := logrus.New()
	if obs := p.config.Observability; obs != nil {
		if level, err := logrus.ParseLevel(obs.LogLevel); err == nil {
			logger.SetLevel(level)
		}
		if obs.LogFormat == "json" {
			logger.SetFormatter(&logrus.JSONFormatter{})
		}
	}

	p.logger = logger
	return logger
}

// Repository returns the configured key repository
func (p *Provider) Repository(ctx context.Context) (store.Repository, error) {
	if p.repository != nil {
		return p.repository, nil
	}

	switch p.config.Storage.Type {
	case "", "memory":
		p.repository = store.NewMemoryRepository()
	case "postgres":
		repo, err := store.NewPostgresRepository(ctx, p.config.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres repository: %w", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		p.repository = repo
	default:
		return nil, fmt.Errorf("unknown storage type: %s (supported: memory, postgres)", p.config.Storage.Type)
	}
	return p.repository, nil
}

// CredentialStore returns the configured credential store
func (p *Provider) CredentialStore(ctx context.Context) (auth.CredentialStore, error) {
	if p.creds != nil {
		return p.creds, nil
	}

	switch p.config.Auth.Type {
	case "", "static":
		accounts := make(map[string]auth.Account, len(p.config.Auth.Accounts))
		for clientID, account := range p.config.Auth.Accounts {
			accounts[clientID] = auth.Account{
				Secret:   account.ClientSecret,
				TenantID: account.TenantID,
				Roles:    account.Roles,
			}
		}
		p.creds = auth.NewStaticCredentialStore(accounts)
	case "aws":
		creds, err := auth.NewSecretsManagerCredentialStore(ctx, auth.SecretsManagerConfig{
			Region: p.config.Auth.AWS.Region,
			Prefix: p.config.Auth.AWS.SecretsPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create secrets manager credential store: %w", err)
		}
		p.creds = creds
	default:
		return nil, fmt.Errorf("unknown auth type: %s (supported: static, aws)", p.config.Auth.Type)
	}
	return p.creds, nil
}

// StrategyRegistry returns the strategy registry with all algorithms
// registered.
func (p *Provider) StrategyRegistry() *keys.Registry {
	if p.registry != nil {
		return p.registry
	}

	registry := keys.NewRegistry()
	registry.Register(keys.NewRSAStrategy(p.config.Keys.AllowedRSASizes, p.config.Keys.DefaultRSASize))
	registry.Register(keys.NewEd25519Strategy())
	registry.Register(keys.NewECP256Strategy())

	p.registry = registry
	return registry
}

// Service returns the configured lifecycle engine
func (p *Provider) Service(ctx context.Context) (*service.Service, error) {
	if p.svc != nil {
		return p.svc, nil
	}

	repo, err := p.Repository(ctx)
	if err != nil {
		return nil, err
	}

	p.svc = service.NewService(service.Config{
		Store:    repo,
		Registry: p.StrategyRegistry(),
		Observer: probe.NewLoggingObserver(slog.Default()),
		Options: service.Options{
			DefaultAlgorithm:    p.config.Keys.DefaultAlgorithm,
			DefaultDurationDays: p.config.Keys.DefaultDurationDays,
			AllocationAttempts:  p.config.Keys.AllocationAttempts,
			DefaultListLimit:    p.config.Listing.DefaultLimit,
			MaxListLimit:        p.config.Listing.MaxLimit,
		},
	})
	return p.svc, nil
}

// Gate returns the configured authorization gate
func (p *Provider) Gate(ctx context.Context) (*auth.Gate, error) {
	if p.gate != nil {
		return p.gate, nil
	}

	creds, err := p.CredentialStore(ctx)
	if err != nil {
		return nil, err
	}
	p.gate = auth.NewGate(creds)
	return p.gate, nil
}

// ServerConfig assembles the HTTP server configuration
func (p *Provider) ServerConfig(ctx context.Context) (server.Config, error) {
	svc, err := p.Service(ctx)
	if err != nil {
		return server.Config{}, err
	}
	gate, err := p.Gate(ctx)
	if err != nil {
		return server.Config{}, err
	}

	var cacheTTL time.Duration
	if raw := p.config.Server.KeySetCacheTTL; raw != "" {
		cacheTTL, err = time.ParseDuration(raw)
		if err != nil {
			return server.Config{}, fmt.Errorf("invalid key_set_cache_ttl %q: %w", raw, err)
		}
	}

	return server.Config{
		HTTPPort:       p.config.Server.HTTPPort,
		Service:        svc,
		Gate:           gate,
		Logger:         p.Logger(),
		KeySetCacheTTL: cacheTTL,
	}, nil
}
