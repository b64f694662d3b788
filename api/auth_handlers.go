package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmcleod/eventdesk/auth"
)

const (
	msgLockedOut        = "Too many failed login attempts. Please try again in 15 minutes."
	msgJustLocked       = "Too many failed login attempts. You have been locked out for 15 minutes."
	msgPasswordRequired = "Password is required"
	msgLoginSuccessful  = "Login successful"
	msgLoggedOut        = "Logged out successfully"
)

// Login handles POST /api/admin/auth.
//
// The checks run in a fixed order: lockout, input, credential
// configuration, password, session secret. A locked address is rejected
// before the body is read or any hash is computed.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientIP := a.clientAddress(r)

	locked, err := a.tracker.IsLocked(ctx, clientIP)
	if err != nil {
		writeInternalError(w, msgInternal, fmt.Errorf("checking lockout: %w", err))
		return
	}
	if locked {
		until, _, err := a.tracker.LockedUntil(ctx, clientIP)
		if err != nil {
			writeInternalError(w, msgInternal, fmt.Errorf("reading lockout: %w", err))
			return
		}
		a.audit.logFailure(AuditLoginRateLimited, r, "address locked out",
			slog.String("client_ip", clientIP))
		writeRateLimited(w, until.Sub(a.now()))
		return
	}

	req, ok := decodeJSON[LoginRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	password, isString := req.Password.(string)
	if !isString || strings.TrimSpace(password) == "" {
		writeError(w, http.StatusBadRequest, msgPasswordRequired)
		return
	}

	if a.adminHash == "" {
		slog.Error("admin login unavailable: password hash is not configured")
		writeError(w, http.StatusInternalServerError, msgConfigError)
		return
	}

	if !auth.VerifyPassword(password, a.adminHash) {
		a.loginFailed(w, r, clientIP)
		return
	}

	if err := a.tracker.Clear(ctx, clientIP); err != nil {
		writeInternalError(w, msgInternal, fmt.Errorf("clearing login attempts: %w", err))
		return
	}

	token, _, err := a.codec.Issue()
	if errors.Is(err, auth.ErrMissingSecret) {
		slog.Error("admin login unavailable: session secret is not configured")
		writeError(w, http.StatusInternalServerError, msgConfigError)
		return
	}
	if err != nil {
		writeInternalError(w, msgInternal, fmt.Errorf("issuing session token: %w", err))
		return
	}

	writeSessionCookie(w, token, a.secureCookies)
	a.audit.log(AuditLoginSuccess, r, slog.String("client_ip", clientIP))
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: msgLoginSuccessful})
}

// loginFailed records a wrong password and reports the remaining budget,
// or the lockout when this attempt used it up.
func (a *API) loginFailed(w http.ResponseWriter, r *http.Request, clientIP string) {
	ctx := r.Context()
	justLocked, err := a.tracker.RecordFailure(ctx, clientIP)
	if err != nil {
		writeInternalError(w, msgInternal, fmt.Errorf("recording login failure: %w", err))
		return
	}
	if justLocked {
		a.audit.logFailure(AuditLoginLocked, r, "invalid password",
			slog.String("client_ip", clientIP))
		writeError(w, http.StatusUnauthorized, msgJustLocked)
		return
	}

	remaining, err := a.tracker.RemainingAttempts(ctx, clientIP)
	if err != nil {
		writeInternalError(w, msgInternal, fmt.Errorf("reading login attempts: %w", err))
		return
	}
	a.audit.logFailure(AuditLoginFailure, r, "invalid password",
		slog.String("client_ip", clientIP),
		slog.Int("remaining_attempts", remaining))
	writeError(w, http.StatusUnauthorized, remainingMessage(remaining))
}

func remainingMessage(remaining int) string {
	noun := "attempts"
	if remaining == 1 {
		noun = "attempt"
	}
	return fmt.Sprintf("Invalid password. %d %s remaining.", remaining, noun)
}

// Logout handles POST /api/admin/logout. Tokens are stateless, so logging
// out only clears the cookie.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w, a.secureCookies)
	a.audit.log(AuditLogout, r)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: msgLoggedOut})
}
