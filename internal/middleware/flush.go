// AngelaMos | 2026
// flush.go

package middleware

import (
	"net/http"
)

type Syncer interface {
	Sync() error
}

// Flush syncs the store once the request has been handled, including
// when the handler panics, so writes made by a request are durable.
func Flush(store Syncer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := store.Sync(); err != nil {
					LoggerFromContext(r.Context()).Error("store flush failed",
						"error", err,
					)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
