package netlify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// RequestError is returned when the API answers with a non-success status
type RequestError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("netlify %s failed: %s %s returned %d %s",
		e.Op, e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// IsStatus reports whether err is a RequestError with the given status code
func IsStatus(err error, statusCode int) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == statusCode
}

// IsUnauthorized reports whether the token was rejected
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden)
}
