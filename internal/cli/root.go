package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// NewRootCmd creates the root command for keymint
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "keymint",
		Short: "keymint - multi-tenant signing key lifecycle service",
		Long: `keymint manages asymmetric signing keys for multiple tenants:
  1. Issue, rotate and disable RSA, Ed25519 and EC P-256 key pairs
  2. Publish each tenant's active public keys as a JWKS document

All write operations require client credentials with tenant-scoped roles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: ./configs/keymint.yaml)")

	// Add subcommands
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
