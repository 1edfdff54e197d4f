//go:build go1.22

package handlers

import "net/http"

func pathValue(r *http.Request, name string) string {
	return r.PathValue(name)
}
