// Package sites resolves partial domains to Netlify sites and runs the
// deploy, delete and custom-domain workflows on top of the API client.
package sites

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/publify/internal/domains"
	"github.com/alvesdmateus/publify/internal/netlify"
	"github.com/alvesdmateus/publify/internal/observability"
)

// SiteAPI is the subset of the Netlify API the registry needs
type SiteAPI interface {
	ListSites(ctx context.Context) ([]netlify.Site, error)
	CreateSite(ctx context.Context, archive io.Reader, size int64) (*netlify.Site, error)
	DeleteSite(ctx context.Context, siteID string) error
	SetCustomDomain(ctx context.Context, siteID string, domain *string) (*netlify.Site, error)
}

// Options configures a Registry
type Options struct {
	// Suffixes expand bare custom domain labels
	Suffixes domains.Suffixes
	// ProviderDomain expands bare site labels, e.g. netlify.app
	ProviderDomain string
	// TempDir receives deployment bundles
	TempDir string
	Tracer  *observability.Tracer
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// Registry looks up sites and changes them through the API
type Registry struct {
	api            SiteAPI
	suffixes       domains.Suffixes
	providerDomain string
	tempDir        string
	tracer         *observability.Tracer
	metrics        *observability.Metrics
	logger         zerolog.Logger
}

// NewRegistry creates a new site registry
func NewRegistry(api SiteAPI, opts Options) *Registry {
	providerDomain := opts.ProviderDomain
	if providerDomain == "" {
		providerDomain = "netlify.app"
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NoopTracer()
	}
	return &Registry{
		api:            api,
		suffixes:       opts.Suffixes,
		providerDomain: providerDomain,
		tempDir:        opts.TempDir,
		tracer:         tracer,
		metrics:        opts.Metrics,
		logger:         opts.Logger.With().Str("component", "site-registry").Logger(),
	}
}

// Listing groups sites by whether they have a custom domain
type Listing struct {
	Plain  []netlify.Site `json:"without_custom_domain" yaml:"without_custom_domain"`
	Custom []netlify.Site `json:"with_custom_domain" yaml:"with_custom_domain"`
}

// List returns all sites split into those without and with a custom domain
func (r *Registry) List(ctx context.Context) (*Listing, error) {
	all, err := r.api.ListSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}

	listing := &Listing{}
	for _, site := range all {
		if site.HasCustomDomain() {
			listing.Custom = append(listing.Custom, site)
		} else {
			listing.Plain = append(listing.Plain, site)
		}
	}
	sortByName(listing.Plain)
	sortByName(listing.Custom)
	return listing, nil
}

// ResolveProviderDomain finds the single site whose URL starts with domain.
// A bare label is expanded with the provider domain, and when domain has no
// scheme http:// is tried before https://.
func (r *Registry) ResolveProviderDomain(ctx context.Context, domain string) (*netlify.Site, error) {
	all, err := r.api.ListSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return r.matchProviderDomain(all, domain)
}

// ResolveCustomDomain finds the site with exactly the given custom domain
func (r *Registry) ResolveCustomDomain(ctx context.Context, domain string) (*netlify.Site, error) {
	all, err := r.api.ListSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return matchCustomDomain(all, domain)
}

// EnsureDomainFree fails when a site already has a custom domain starting with domain
func (r *Registry) EnsureDomainFree(ctx context.Context, domain string) error {
	all, err := r.api.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("list sites: %w", err)
	}
	return ensureDomainFree(all, domain)
}

// CustomDomainResult describes a custom domain assignment
type CustomDomainResult struct {
	Site        *netlify.Site
	Domain      string
	OriginalURL string
}

// SetCustomDomain assigns customDomain to the site found by existingDomain
func (r *Registry) SetCustomDomain(ctx context.Context, customDomain, existingDomain string) (*CustomDomainResult, error) {
	domain, err := r.expandCustom(customDomain)
	if err != nil {
		return nil, err
	}
	if domains.StripScheme(strings.TrimSpace(existingDomain)) == "" {
		return nil, domains.ErrEmptyDomain
	}

	all, err := r.api.ListSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	if err := ensureDomainFree(all, domain); err != nil {
		return nil, err
	}
	site, err := r.matchProviderDomain(all, existingDomain)
	if err != nil {
		return nil, err
	}

	return r.assign(ctx, site, domain)
}

// RemoveCustomDomain clears the custom domain of the site that has it
func (r *Registry) RemoveCustomDomain(ctx context.Context, customDomain string) (*CustomDomainResult, error) {
	domain, err := r.expandCustom(customDomain)
	if err != nil {
		return nil, err
	}

	site, err := r.ResolveCustomDomain(ctx, domain)
	if err != nil {
		return nil, err
	}

	updated, err := r.api.SetCustomDomain(ctx, site.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("remove custom domain %s: %w", domain, err)
	}

	r.logger.Info().
		Str("site_id", site.ID).
		Str("custom_domain", domain).
		Msg("Custom domain removed")

	return &CustomDomainResult{Site: updated, Domain: domain, OriginalURL: site.URL}, nil
}

// DeleteResult describes a deleted site
type DeleteResult struct {
	Site   netlify.Site
	Domain string
}

// Delete removes the site found by domain. Provider domains are tried first,
// then custom domains when suffixes are configured.
func (r *Registry) Delete(ctx context.Context, domain string) (*DeleteResult, error) {
	all, err := r.api.ListSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}

	matched := domain
	site, err := r.matchProviderDomain(all, domain)
	if IsNotFound(err) {
		if !r.suffixes.Configured() {
			return nil, fmt.Errorf("%w, and no site found with domain '%s'", ErrNoCustomDomains, domain)
		}
		r.logger.Debug().Str("domain", domain).Msg("No site with that provider domain, trying custom domains")

		matched, err = r.suffixes.Expand(domain)
		if err != nil {
			return nil, err
		}
		site, err = matchCustomDomain(all, matched)
	}
	if err != nil {
		return nil, err
	}

	if err := r.api.DeleteSite(ctx, site.ID); err != nil {
		return nil, fmt.Errorf("delete site %s: %w", site.ID, err)
	}

	r.logger.Info().
		Str("site_id", site.ID).
		Str("domain", matched).
		Msg("Site deleted")

	return &DeleteResult{Site: *site, Domain: matched}, nil
}

func (r *Registry) assign(ctx context.Context, site *netlify.Site, domain string) (*CustomDomainResult, error) {
	updated, err := r.api.SetCustomDomain(ctx, site.ID, &domain)
	if err != nil {
		return nil, fmt.Errorf("set custom domain %s: %w", domain, err)
	}

	r.logger.Info().
		Str("site_id", site.ID).
		Str("custom_domain", domain).
		Msg("Custom domain assigned")

	return &CustomDomainResult{Site: updated, Domain: domain, OriginalURL: site.URL}, nil
}

// expandCustom requires configured suffixes and expands a bare label with them
func (r *Registry) expandCustom(customDomain string) (string, error) {
	if !r.suffixes.Configured() {
		return "", ErrNoCustomDomains
	}
	domain, err := r.suffixes.Expand(customDomain)
	if err != nil {
		return "", err
	}
	return normalize(domain), nil
}

func (r *Registry) matchProviderDomain(all []netlify.Site, domain string) (*netlify.Site, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, &NotFoundError{Domain: domain}
	}
	full := domains.ProviderDomain(domain, r.providerDomain)

	for _, candidate := range domains.Candidates(full) {
		candidate = strings.ToLower(candidate)
		var matches []netlify.Site
		for _, site := range all {
			if urlHasPrefix(site, candidate) {
				matches = append(matches, site)
			}
		}

		switch len(matches) {
		case 0:
			r.logger.Debug().Str("candidate", candidate).Msg("No site matches")
			continue
		case 1:
			return &matches[0], nil
		default:
			return nil, &AmbiguousError{Domain: domain, Matches: siteURLs(matches)}
		}
	}

	return nil, &NotFoundError{Domain: domain}
}

func matchCustomDomain(all []netlify.Site, domain string) (*netlify.Site, error) {
	want := normalize(domain)
	var matches []netlify.Site
	for _, site := range all {
		if site.HasCustomDomain() && normalize(site.Domain()) == want {
			matches = append(matches, site)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Domain: domain, Custom: true}
	case 1:
		return &matches[0], nil
	default:
		return nil, &AmbiguousError{Domain: domain, Matches: siteURLs(matches)}
	}
}

func ensureDomainFree(all []netlify.Site, domain string) error {
	prefix := normalize(domain)
	var matches []netlify.Site
	for _, site := range all {
		if site.HasCustomDomain() && strings.HasPrefix(normalize(site.Domain()), prefix) {
			matches = append(matches, site)
		}
	}

	switch len(matches) {
	case 0:
		return nil
	case 1:
		return &DomainInUseError{Domain: matches[0].Domain(), SiteID: matches[0].ID}
	default:
		domainsInUse := make([]string, 0, len(matches))
		for _, site := range matches {
			domainsInUse = append(domainsInUse, site.Domain())
		}
		return &AmbiguousError{Domain: domain, Matches: domainsInUse}
	}
}

// urlHasPrefix reports whether any address of site starts with prefix
func urlHasPrefix(site netlify.Site, prefix string) bool {
	addresses := []string{site.URL, site.SSLURL}
	if site.DefaultDomain != "" {
		addresses = append(addresses, "http://"+site.DefaultDomain, "https://"+site.DefaultDomain)
	}
	if site.HasCustomDomain() {
		addresses = append(addresses, "http://"+site.Domain(), "https://"+site.Domain())
	}
	for _, addr := range addresses {
		if addr != "" && strings.HasPrefix(strings.ToLower(addr), prefix) {
			return true
		}
	}
	return false
}

// normalize lowercases a domain and drops any scheme and trailing slash
func normalize(domain string) string {
	domain = domains.StripScheme(strings.TrimSpace(domain))
	return strings.ToLower(strings.TrimRight(domain, "/"))
}

func siteURLs(sites []netlify.Site) []string {
	urls := make([]string, 0, len(sites))
	for _, site := range sites {
		urls = append(urls, site.URL)
	}
	return urls
}

func sortByName(sites []netlify.Site) {
	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].Name < sites[j].Name
	})
}
