package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/templategen/observe"
)

// Middleware authenticates every request with a. Rejected requests get a
// 401 with a JSON:API error body; internal failures get a 500. A nil a
// lets every request through as AnonymousIdentity.
func Middleware(a Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), AnonymousIdentity())))
				return
			}

			id, err := a.Authenticate(r.Context(), r.Header)
			if err != nil {
				if !isRejection(err) {
					logger.Error(r.Context(), "authentication failed", observe.F("error", err))
					writeError(w, http.StatusInternalServerError, "internal error")
					return
				}
				logger.Debug(r.Context(), "request rejected",
					observe.F("authenticator", a.Name()),
					observe.F("error", err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func isRejection(err error) bool {
	for _, target := range []error{ErrMissingCredentials, ErrInvalidCredentials, ErrTokenExpired, ErrTokenMalformed} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, title string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="templategen"`)
	}
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]string{{
			"status": http.StatusText(status),
			"title":  title,
		}},
	})
}
