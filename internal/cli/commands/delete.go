package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <domain>",
		Aliases: []string{"remove"},
		Short:   "Delete a site",
		Long: `Delete the site found by domain.

The domain is first looked up among Netlify domains, then among custom
domains when NETLIFY_DOMAINS is set.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run("delete", func(ctx context.Context, cmd *cobra.Command, args []string) error {
			result, err := a.registry.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "site %s was deleted\n", result.Domain)
			return nil
		}),
	}
}
