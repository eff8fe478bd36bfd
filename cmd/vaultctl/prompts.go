package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
)

func newPromptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect and maintain stored prompts",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newPromptsListCmd())
	cmd.AddCommand(newPromptsPurgeCmd())
	return cmd
}

func newPromptsListCmd() *cobra.Command {
	var includeDeleted bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			var prompts []*models.Prompt
			err = backend.UnitOfWork(cmd.Context(), func(uow store.UnitOfWork) error {
				filter := store.PromptFilter{IncludeDeleted: includeDeleted}
				page := store.Page{Limit: store.MaxPageSize}
				var err error
				prompts, _, err = uow.Prompts().List(cmd.Context(), filter, page)
				return err
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tCATEGORY\tVERSION\tSYSTEM\tDELETED")
			for _, p := range prompts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\t%t\n",
					p.ID, p.Slug, p.Category, p.Version, p.IsSystem, p.IsDeleted)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "include soft-deleted prompts")
	return cmd
}

func newPromptsPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <id>",
		Short: "Permanently delete a prompt and its version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid prompt ID %q: %w", args[0], err)
			}

			backend, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			err = backend.UnitOfWork(cmd.Context(), func(uow store.UnitOfWork) error {
				return uow.Prompts().HardDelete(cmd.Context(), id)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", id)
			return nil
		},
	}
}
