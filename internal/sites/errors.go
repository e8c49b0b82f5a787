package sites

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCustomDomains is returned when an operation needs NETLIFY_DOMAINS but none is configured
var ErrNoCustomDomains = errors.New("no custom domains configured in NETLIFY_DOMAINS")

// NotFoundError is returned when no site matches a domain
type NotFoundError struct {
	Domain string
	// Custom is set when the lookup was by custom domain
	Custom bool
}

func (e *NotFoundError) Error() string {
	if e.Custom {
		return fmt.Sprintf("no site found with custom domain '%s'", e.Domain)
	}
	return fmt.Sprintf("no site found with domain '%s'", e.Domain)
}

// AmbiguousError is returned when a partial domain matches more than one site
type AmbiguousError struct {
	Domain  string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("too many results for partial domain '%s', it's ambiguous: %s",
		e.Domain, strings.Join(e.Matches, ", "))
}

// DomainInUseError is returned when a custom domain is already assigned to a site
type DomainInUseError struct {
	Domain string
	SiteID string
}

func (e *DomainInUseError) Error() string {
	return fmt.Sprintf("'%s' is already in use", e.Domain)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguous reports whether err is an AmbiguousError
func IsAmbiguous(err error) bool {
	var amb *AmbiguousError
	return errors.As(err, &amb)
}

// IsDomainInUse reports whether err is a DomainInUseError
func IsDomainInUse(err error) bool {
	var inUse *DomainInUseError
	return errors.As(err, &inUse)
}
