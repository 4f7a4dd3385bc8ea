package middleware

import (
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/httpx"
	"github.com/ericyum/tour-agent-frontend/internal/requestctx"
)

const (
	csrfCookieName = "festmoment_csrf"
	// CSRFHeader carries the token on htmx and JSON requests.
	CSRFHeader = "X-CSRF-Token"
	// CSRFField carries the token on plain form posts.
	CSRFField = "csrf_token"
)

// CSRFConfig configures CSRF.
type CSRFConfig struct {
	Key            []byte
	Secure         bool
	TrustedOrigins []string
}

// CSRF verifies a double-submit token on unsafe methods. Without Secure the
// site is assumed to be served over plain HTTP, as in local development.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	key := cfg.Key
	if len(key) != 32 {
		key = randomKey(32)
	}
	protect := csrf.Protect(key,
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.CookieName(csrfCookieName),
		csrf.RequestHeader(CSRFHeader),
		csrf.FieldName(CSRFField),
		csrf.TrustedOrigins(cfg.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	requestctx.Logger(r.Context()).Warn("csrf check failed", zap.Error(csrf.FailureReason(r)))
	if IsHTMX(r.Context()) || r.Header.Get("Accept") == "application/json" {
		httpx.WriteError(r.Context(), w, httpx.NewError("csrf_failed", "invalid CSRF token", http.StatusForbidden))
		return
	}
	http.Error(w, "invalid CSRF token", http.StatusForbidden)
}

// CSRFToken returns the token for the current request, empty outside CSRF.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

// CSRFTemplateField renders the hidden form input for the current request.
func CSRFTemplateField(r *http.Request) template.HTML {
	return csrf.TemplateField(r)
}
