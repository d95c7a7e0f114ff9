package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alechenninger/keymint/internal/config"
	"github.com/alechenninger/keymint/internal/server"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the keymint server",
		Long: `Start the keymint HTTP server.

The server will:
  - Serve the key lifecycle API (issue, rotate, disable, list)
  - Serve each tenant's public key set at /.well-known/jwks.json
  - Load configuration from file, environment variables, and command-line flags

Configuration precedence (highest to lowest):
  1. Command-line flags
  2. Environment variables (KEYMINT_*)
  3. Configuration file`,
		RunE: runServe,
	}

	// Register one flag per scalar config field (server-http-port, etc.)
	config.RegisterFlags(cmd.Flags())

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Determine config file path
	configPath := configFile
	if configPath == "" {
		// Check environment variable
		configPath = os.Getenv("KEYMINT_CONFIG")
	}
	if configPath == "" {
		// Default
		configPath = "./configs/keymint.yaml"
	}

	// 2. Load configuration (file + env vars + flags)
	loader, err := config.NewLoaderWithFlags(configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg, err := loader.Get()
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	// 3. Create provider to build all components from config
	provider := config.NewProvider(cfg)
	log := provider.Logger()

	// 4. Assemble the server configuration via the provider
	serverCfg, err := provider.ServerConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	// 5. Create and start server
	srv := server.New(serverCfg)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	fmt.Println("keymint is running")
	fmt.Printf("  HTTP API:  http://localhost:%d/tenants/{tenant}/keys\n", serverCfg.HTTPPort)
	fmt.Printf("  Key sets:  http://localhost:%d/tenants/{tenant}/.well-known/jwks.json\n", serverCfg.HTTPPort)
	fmt.Printf("  Config:    %s\n", configPath)

	// 6. Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")

	// 7. Graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
