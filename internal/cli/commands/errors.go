package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/alvesdmateus/publify/internal/bundle"
	"github.com/alvesdmateus/publify/internal/domains"
	"github.com/alvesdmateus/publify/internal/netlify"
	"github.com/alvesdmateus/publify/internal/sites"
	"github.com/alvesdmateus/publify/pkg/config"
)

// describeError turns an error into the single line shown to the user
func describeError(err error) string {
	switch {
	case errors.Is(err, config.ErrMissingToken):
		return "Please set the environment variable NETLIFY_TOKEN"
	case errors.Is(err, bundle.ErrNoNestedFolder):
		return "Please create a folder named 'folder' in the root of the site's directory, and put all the files in there."
	case errors.Is(err, bundle.ErrNoIndexHTML):
		return "Please add an index.html to the site's folder"
	// Compared unwrapped: Delete wraps ErrNoCustomDomains with the domain it
	// could not find, and that message is shown as it is.
	case err == sites.ErrNoCustomDomains || err == domains.ErrNoSuffixes:
		return "Please set the environment variable NETLIFY_DOMAINS"
	case errors.Is(err, domains.ErrEmptyDomain):
		return "Please provide a domain"
	case errors.Is(err, domains.ErrAmbiguousSuffix):
		return "Several domains are set in NETLIFY_DOMAINS, please use a full domain name"
	case netlify.IsUnauthorized(err):
		return "Netlify rejected the token, please check NETLIFY_TOKEN"
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	}
	return sentence(err.Error())
}

func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
