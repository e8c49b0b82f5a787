package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCustomCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "custom <custom_domain> <existing_domain>",
		Aliases: []string{"set-custom-domain"},
		Short:   "Assign a custom domain to an existing site",
		Long: `Assign a custom domain to the site found by existing_domain.

existing_domain may be a partial domain such as "brave-curie"; it must match
exactly one site. The custom domain must not be in use by another site.`,
		Args: cobra.ExactArgs(2),
		RunE: a.run("custom", func(ctx context.Context, cmd *cobra.Command, args []string) error {
			result, err := a.registry.SetCustomDomain(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "the site is published at %s. (originally '%s')\n", result.Domain, result.OriginalURL)
			return nil
		}),
	}
}

func newRemoveCustomCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove-custom <custom_domain>",
		Aliases: []string{"remove-custom-domain"},
		Short:   "Remove a custom domain from the site that has it",
		Args:    cobra.ExactArgs(1),
		RunE: a.run("remove-custom", func(ctx context.Context, cmd *cobra.Command, args []string) error {
			result, err := a.registry.RemoveCustomDomain(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s was removed\n", result.Domain)
			return nil
		}),
	}
}
