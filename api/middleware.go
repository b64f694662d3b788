package api

import (
	"net/http"
	"strings"

	"github.com/jmcleod/eventdesk/auth"
)

const (
	sessionCookieName = "session"
	adminPrefix       = "/api/admin"
	loginPath         = "/api/admin/auth"
	logoutPath        = "/api/admin/logout"
)

const msgUnauthorized = "Unauthorized. Please login to access this resource."

// Gate rejects requests under /api/admin that do not carry a valid session
// cookie. The login and logout endpoints are reachable without one.
func (a *API) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requiresSession(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			a.audit.logFailure(AuditUnauthorized, r, "missing session", pathAttr(r))
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		if !a.codec.Verify(cookie.Value) {
			a.audit.logFailure(AuditUnauthorized, r, "invalid session", pathAttr(r))
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requiresSession(path string) bool {
	if !strings.HasPrefix(path, adminPrefix) {
		return false
	}
	return path != loginPath && path != logoutPath
}

func writeSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
