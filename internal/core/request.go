// AngelaMos | 2026
// request.go

package core

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// PathParam returns the decoded value of the route parameter key. chi
// matches against RawPath whenever the request carries one, which leaves
// parameters percent-encoded.
func PathParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value
	}

	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}
