package handlers

import (
	"net/http"
	"strconv"

	"marketBack/internal/models"
)

// getParam returns a path or query parameter value regardless of whether
// the router stores it with a leading colon or not. It also supports the
// standard net/http PathValue API available in recent Go versions.
func getParam(r *http.Request, name string) string {
	if r == nil {
		return ""
	}

	if val := r.URL.Query().Get(":" + name); val != "" {
		return val
	}

	if val := r.URL.Query().Get(name); val != "" {
		return val
	}

	return pathValue(r, name)
}

// idParam parses a positive numeric path parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := getParam(r, name)
	if raw == "" {
		return 0, models.Invalid("missing %s", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, models.Invalid("invalid %s", name)
	}
	return id, nil
}

// floatParam parses an optional float query parameter. ok is false when the
// parameter is absent or malformed.
func floatParam(r *http.Request, name string) (v float64, ok bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
