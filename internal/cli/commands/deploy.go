package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/publify/internal/sites"
)

func newDeployCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy <root_dir> [custom_domain]",
		Short: "Publish a directory as a new Netlify site",
		Long: `Publish a directory as a new Netlify site.

root_dir must contain a folder named "folder" holding the site, with an
index.html in it. When custom_domain is given it is assigned to the new site;
a bare label such as "blog" is completed with the domain in NETLIFY_DOMAINS.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: a.run("deploy", a.deploy),
	}
	cmd.Flags().BoolVar(&a.minify, "minify", false, "minify HTML, CSS, JS, JSON and SVG files before upload")
	return cmd
}

func (a *app) deploy(ctx context.Context, cmd *cobra.Command, args []string) error {
	req := sites.DeployRequest{
		Root:   args[0],
		Minify: a.minify || a.cfg.Deploy.Minify,
	}
	if len(args) > 1 {
		req.CustomDomain = args[1]
	}

	result, err := a.registry.Deploy(ctx, req)
	if result != nil {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "the site is published: %s\n", result.URL)
		if result.CustomDomain != "" {
			fmt.Fprintf(out, "the site is published at %s. (originally '%s')\n", result.CustomDomain, result.URL)
		}
	}
	return err
}
