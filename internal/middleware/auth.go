package middleware

import (
	"crypto/subtle"
	"net/http"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/tmduggan/gordon/internal/telemetry/tracing"
)

const ServiceTokenHeader = "X-Progression-Token"

// ServiceTokenCheck guards mutating requests with a shared service token.
// Reads always pass. An empty token disables the check.
func ServiceTokenCheck(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.serviceToken")
			defer span.End()

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				span.SetStatus(codes.Ok, "read")
				next.ServeHTTP(w, r)
				return
			}

			if token == "" {
				span.SetStatus(codes.Ok, "disabled")
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(ServiceTokenHeader)
			if got == "" {
				log.Tracef("[missing token] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				log.Warnf("[invalid token] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "invalid-token")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}
