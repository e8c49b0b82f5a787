package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alvesdmateus/publify/internal/netlify"
	"github.com/alvesdmateus/publify/internal/sites"
)

// Output formats of the list command
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func newListCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all sites, grouped by whether they have a custom domain",
		Args:  cobra.NoArgs,
		RunE: a.run("list", func(ctx context.Context, cmd *cobra.Command, args []string) error {
			listing, err := a.registry.List(ctx)
			if err != nil {
				return err
			}
			return writeListing(cmd.OutOrStdout(), listing, output)
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format (text, json, yaml)")
	return cmd
}

func writeListing(w io.Writer, listing *sites.Listing, format string) error {
	switch format {
	case outputText, "":
		writeListingText(w, listing)
		return nil
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(listing); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q, use text, json or yaml", format)
	}
}

func writeListingText(w io.Writer, listing *sites.Listing) {
	fmt.Fprintln(w, "sites without custom domains:")
	for _, site := range listing.Plain {
		fmt.Fprintf(w, "%s: %s\n", site.Name, siteURL(site))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "sites with custom domains:")
	for _, site := range listing.Custom {
		fmt.Fprintf(w, "%s: %s (%s)\n", site.Name, siteURL(site), site.Domain())
	}
}

func siteURL(site netlify.Site) string {
	if site.URL != "" {
		return site.URL
	}
	return site.SSLURL
}
