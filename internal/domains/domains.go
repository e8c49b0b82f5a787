// Package domains expands bare domain labels using the configured suffix list.
package domains

import (
	"errors"
	"strings"
)

var (
	// ErrNoSuffixes is returned when a bare label needs expanding but no suffix is configured
	ErrNoSuffixes = errors.New("no custom domains configured in NETLIFY_DOMAINS")

	// ErrEmptyDomain is returned when a domain or label is blank
	ErrEmptyDomain = errors.New("domain must not be empty")

	// ErrAmbiguousSuffix is returned when a bare label could belong to more than one suffix
	ErrAmbiguousSuffix = errors.New("more than one domain configured in NETLIFY_DOMAINS, use a full domain name")
)

const (
	schemeHTTP  = "http://"
	schemeHTTPS = "https://"
)

// Suffixes is the list of base domains a bare label may be expanded with
type Suffixes []string

// Parse builds a suffix list from entries or a single comma-separated value
func Parse(values ...string) Suffixes {
	var s Suffixes
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.Trim(strings.TrimSpace(part), ".")
			if part != "" {
				s = append(s, strings.ToLower(part))
			}
		}
	}
	return s
}

// Configured reports whether at least one suffix is set
func (s Suffixes) Configured() bool {
	return len(s) > 0
}

// Len returns the number of suffixes
func (s Suffixes) Len() int {
	return len(s)
}

// Expand turns a bare label into a fully qualified domain. Values that already
// contain a dot are returned as they are.
func (s Suffixes) Expand(label string) (string, error) {
	label = strings.TrimSpace(label)
	if StripScheme(label) == "" {
		return "", ErrEmptyDomain
	}
	if !IsBare(label) {
		return label, nil
	}
	switch len(s) {
	case 0:
		return "", ErrNoSuffixes
	case 1:
		return label + "." + s[0], nil
	default:
		return "", ErrAmbiguousSuffix
	}
}

// IsBare reports whether value is a single label without any dot
func IsBare(value string) bool {
	return !strings.Contains(value, ".")
}

// ProviderDomain expands a bare label into a site on the provider domain,
// e.g. "brave-curie" becomes "brave-curie.netlify.app".
func ProviderDomain(label, providerDomain string) string {
	label = strings.TrimSpace(label)
	if !IsBare(label) || providerDomain == "" {
		return label
	}
	return label + "." + strings.Trim(providerDomain, ".")
}

// HasScheme reports whether value starts with http:// or https://
func HasScheme(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, schemeHTTP) || strings.HasPrefix(lower, schemeHTTPS)
}

// Candidates returns the URL prefixes to try for a domain, http first.
// A value that already has a scheme is its own single candidate.
func Candidates(domain string) []string {
	if HasScheme(domain) {
		return []string{domain}
	}
	return []string{schemeHTTP + domain, schemeHTTPS + domain}
}

// StripScheme removes a leading http:// or https://
func StripScheme(value string) string {
	lower := strings.ToLower(value)
	switch {
	case strings.HasPrefix(lower, schemeHTTPS):
		return value[len(schemeHTTPS):]
	case strings.HasPrefix(lower, schemeHTTP):
		return value[len(schemeHTTP):]
	}
	return value
}
