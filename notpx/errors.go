// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package notpx

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the game API or image host.
// Callers can use errors.As to inspect the status:
//
//	var apiErr *notpx.APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized { ... }
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Body is the start of the response body, for diagnostics.
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notpx: %s %s: %d %s: %s",
		e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 or 403 from the API,
// which usually means the account's init data has expired.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized) || hasStatus(err, http.StatusForbidden)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}
	return false
}
