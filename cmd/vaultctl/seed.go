package main

import (
	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/store/seed"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the built-in system prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			return seed.Install(cmd.Context(), backend)
		},
	}
}
