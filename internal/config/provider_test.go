package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alechenninger/keymint/internal/store"
)

func TestProviderDefaults(t *testing.T) {
	ctx := context.Background()
	cfg := Default()
	provider := NewProvider(&cfg)

	t.Run("repository", func(t *testing.T) {
		repo, err := provider.Repository(ctx)
		require.NoError(t, err)
		assert.IsType(t, &store.MemoryRepository{}, repo)

		// Cached across calls
		again, err := provider.Repository(ctx)
		require.NoError(t, err)
		assert.Same(t, repo, again)
	})

	t.Run("registry has every algorithm", func(t *testing.T) {
		registry := provider.StrategyRegistry()
		for _, name := range []string{"rsa", "ed25519", "ec-p256"} {
			_, err := registry.Get(name)
			assert.NoError(t, err)
		}
	})

	t.Run("server config assembles", func(t *testing.T) {
		serverCfg, err := provider.ServerConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8080, serverCfg.HTTPPort)
		assert.NotNil(t, serverCfg.Service)
		assert.NotNil(t, serverCfg.Gate)
	})
}

func TestProviderRejectsUnknownBackends(t *testing.T) {
	ctx := context.Background()

	t.Run("storage", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Type = "etcd"
		_, err := NewProvider(&cfg).Repository(ctx)
		assert.ErrorContains(t, err, "unknown storage type")
	})

	t.Run("auth", func(t *testing.T) {
		cfg := Default()
		cfg.Auth.Type = "ldap"
		_, err := NewProvider(&cfg).CredentialStore(ctx)
		assert.ErrorContains(t, err, "unknown auth type")
	})

	t.Run("cache ttl", func(t *testing.T) {
		cfg := Default()
		cfg.Server.KeySetCacheTTL = "soon"
		_, err := NewProvider(&cfg).ServerConfig(ctx)
		assert.ErrorContains(t, err, "key_set_cache_ttl")
	})
}
