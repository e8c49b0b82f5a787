package sites

import (
	"context"
	"errors"
	"fmt"

	"github.com/alvesdmateus/publify/internal/bundle"
	"github.com/alvesdmateus/publify/internal/netlify"
	"github.com/alvesdmateus/publify/internal/observability"
)

// DeployRequest describes a directory to publish
type DeployRequest struct {
	// Root must contain folder/index.html
	Root string
	// CustomDomain is optional; a bare label is expanded with the configured suffix
	CustomDomain string
	Minify       bool
}

// DeployResult describes a published site
type DeployResult struct {
	Site *netlify.Site
	// URL is the provider URL the site was published at
	URL string
	// CustomDomain is set when a custom domain was assigned
	CustomDomain string
	Title        string
	Files        int
	Bytes        int64
	Revision     *bundle.Revision
}

// Deploy packages req.Root, uploads it as a new site and optionally assigns a
// custom domain. The custom domain is checked before anything is uploaded, and
// the temporary archive is removed before Deploy returns.
//
// When the upload succeeds but the custom domain assignment fails, the partial
// result is returned together with the error.
func (r *Registry) Deploy(ctx context.Context, req DeployRequest) (result *DeployResult, err error) {
	ctx, span := r.tracer.StartSpan(ctx, "sites.Deploy")
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	var customDomain string
	if req.CustomDomain != "" {
		if customDomain, err = r.expandCustom(req.CustomDomain); err != nil {
			return nil, err
		}
		span.SetAttributes(observability.AttrCustomDomain.String(customDomain))
	}

	// Fail on a malformed directory before any request is made
	if err := bundle.Validate(req.Root); err != nil {
		return nil, err
	}

	if customDomain != "" {
		if err := r.EnsureDomainFree(ctx, customDomain); err != nil {
			return nil, err
		}
	}

	rev, revErr := bundle.ReadRevision(req.Root)
	if revErr == nil {
		span.SetAttributes(
			observability.AttrSourceCommit.String(rev.Commit),
			observability.AttrSourceBranch.String(rev.Branch),
		)
		r.logger.Info().
			Str("commit", rev.Short()).
			Str("branch", rev.Branch).
			Msg("Deploying from git revision")
	} else if !errors.Is(revErr, bundle.ErrNoRevision) {
		r.logger.Warn().Err(revErr).Str("root", req.Root).Msg("Failed to read git revision")
	}

	b, err := bundle.Build(ctx, req.Root, bundle.Options{
		TempDir: r.tempDir,
		Minify:  req.Minify,
		Logger:  r.logger,
	})
	if err != nil {
		r.recordBundle(observability.StatusFailed, nil)
		return nil, fmt.Errorf("build bundle: %w", err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			r.logger.Warn().Err(closeErr).Str("path", b.Path).Msg("Failed to remove bundle")
		}
	}()
	r.recordBundle(observability.StatusSuccess, b)

	span.SetAttributes(
		observability.AttrBundleFiles.Int(b.Files),
		observability.AttrBundleBytes.Int64(b.Size),
	)

	site, err := r.upload(ctx, b)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		observability.AttrSiteID.String(site.ID),
		observability.AttrSiteURL.String(site.URL),
	)

	result = &DeployResult{
		Site:     site,
		URL:      site.URL,
		Title:    b.Title,
		Files:    b.Files,
		Bytes:    b.Size,
		Revision: rev,
	}

	if customDomain == "" {
		return result, nil
	}

	assigned, err := r.assign(ctx, site, customDomain)
	if err != nil {
		return result, err
	}
	result.Site = assigned.Site
	result.CustomDomain = assigned.Domain
	return result, nil
}

func (r *Registry) upload(ctx context.Context, b *bundle.Bundle) (*netlify.Site, error) {
	f, err := b.Open()
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	r.logger.Info().
		Int("files", b.Files).
		Int64("bytes", b.Size).
		Str("title", b.Title).
		Msg("Uploading site")

	site, err := r.api.CreateSite(ctx, f, b.Size)
	if err != nil {
		return nil, fmt.Errorf("upload site: %w", err)
	}
	return site, nil
}

func (r *Registry) recordBundle(status string, b *bundle.Bundle) {
	if r.metrics == nil {
		return
	}
	if b == nil {
		r.metrics.RecordBundle(status, 0, 0)
		return
	}
	r.metrics.RecordBundle(status, b.Files, b.Size)
}
