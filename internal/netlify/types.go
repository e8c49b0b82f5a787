package netlify

import (
	"strings"
	"time"
)

// Site is a static site hosted on Netlify
type Site struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	URL           string    `json:"url" yaml:"url"`
	SSLURL        string    `json:"ssl_url,omitempty" yaml:"ssl_url,omitempty"`
	AdminURL      string    `json:"admin_url,omitempty" yaml:"admin_url,omitempty"`
	DefaultDomain string    `json:"default_domain,omitempty" yaml:"default_domain,omitempty"`
	CustomDomain  *string   `json:"custom_domain" yaml:"custom_domain"`
	CreatedAt     time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// HasCustomDomain reports whether a non-empty custom domain is assigned
func (s Site) HasCustomDomain() bool {
	return s.CustomDomain != nil && strings.TrimSpace(*s.CustomDomain) != ""
}

// Domain returns the custom domain or an empty string
func (s Site) Domain() string {
	if s.CustomDomain == nil {
		return ""
	}
	return *s.CustomDomain
}

// customDomainUpdate is the body of a site update; a nil value clears the domain
type customDomainUpdate struct {
	CustomDomain *string `json:"custom_domain"`
}

// Operation names used in logs, spans, metrics and errors
const (
	OpListSites       = "ListSites"
	OpCreateSite      = "CreateSite"
	OpDeleteSite      = "DeleteSite"
	OpSetCustomDomain = "SetCustomDomain"
)
