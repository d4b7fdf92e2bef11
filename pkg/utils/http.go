// Package utils provides common utility functions.
package utils

import (
	"net/http"
	"net/url"
)

// IsValidURL reports whether raw is a syntactically valid absolute URL
// with a host.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return u.IsAbs() && u.Host != ""
}

// BuildHeaders creates request headers with the given Accept and User-Agent
// values plus any custom headers.
func BuildHeaders(accept, userAgent string, customHeaders map[string]string) http.Header {
	headers := http.Header{}

	if userAgent != "" {
		headers.Set("User-Agent", userAgent)
	}

	if accept != "" {
		headers.Set("Accept", accept)
	}

	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}
