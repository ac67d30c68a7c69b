// Package tenantcookie persists a caller's tenant selection across browser
// requests.
//
// The cookie stores only the selector token; membership is re-validated on
// every request, so a stale or tampered cookie degrades to personal mode
// instead of granting access.
package tenantcookie

import (
	"net/http"
	"strings"
	"time"
)

// Name is the cookie key holding the tenant selector token.
const Name = "atrium_tenant"

// maxAge keeps the selection for thirty days of inactivity.
const maxAge = 30 * 24 * time.Hour

// Read returns the selector token carried by the request, or "" when the
// cookie is absent or empty. An empty token means personal mode.
func Read(r *http.Request) string {
	cookie, err := r.Cookie(Name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

// Write stores a tenant selection. An empty token clears the cookie.
func Write(w http.ResponseWriter, r *http.Request, selectorToken string) {
	selectorToken = strings.TrimSpace(selectorToken)
	if selectorToken == "" {
		Clear(w, r)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    selectorToken,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes the tenant selection, returning the caller to personal mode.
func Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func isSecure(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
