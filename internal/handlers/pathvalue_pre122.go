//go:build !go1.22

package handlers

import "net/http"

// Request.PathValue does not exist before Go 1.22; no path values can be set.
func pathValue(r *http.Request, name string) string {
	return ""
}
