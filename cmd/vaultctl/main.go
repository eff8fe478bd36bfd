package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/config"
	"github.com/promptvault/promptvault/internal/store"

	// Register storage engines.
	_ "github.com/promptvault/promptvault/internal/store/postgres"
	_ "github.com/promptvault/promptvault/internal/store/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vaultctl",
		Short:         "Maintenance commands for the prompt store",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newSeedCmd())
	root.AddCommand(newPromptsCmd())
	root.AddCommand(newUsageCmd())
	return root
}

// openBackend opens and initializes the configured storage backend.
func openBackend(ctx context.Context) (store.Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := backend.Initialize(ctx); err != nil {
		backend.Close()
		return nil, err
	}
	return backend, nil
}
