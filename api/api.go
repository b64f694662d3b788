// Package api implements the event HTTP API: public RSVP and activity
// submission, the admin login flow, and the session-gated admin routes.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/eventdesk/auth"
	"github.com/jmcleod/eventdesk/storage"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	repo           storage.Repository
	codec          *auth.Codec
	tracker        *auth.Tracker
	secret         *auth.SessionSecret
	adminHash      string
	secureCookies  bool
	trustedProxies []netip.Prefix
	allowedOrigins []string
	now            auth.Clock
	logger         *slog.Logger
	audit          *auditLogger
	webhook        *auditWebhook
	alertFn        AlertFunc
}

//go:embed openapi.yaml
var openapiDoc []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithAdminPasswordHash sets the bcrypt hash the admin password is checked
// against. Without it every login fails with a configuration error.
func WithAdminPasswordHash(hash string) Option {
	return func(a *API) {
		a.adminHash = hash
	}
}

// WithSessionSecret sets the key session tokens are signed with.
func WithSessionSecret(secret *auth.SessionSecret) Option {
	return func(a *API) {
		a.secret = secret
	}
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(a *API) {
		a.secureCookies = secure
	}
}

// WithTrustedProxies sets the CIDR ranges whose forwarding headers are
// believed when determining the client address.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) {
		a.trustedProxies = prefixes
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins []string) Option {
	return func(a *API) {
		a.allowedOrigins = origins
	}
}

// WithAuditWebhook mirrors audit events and alerts to url. authHeader is
// an optional "Header: Value" pair sent with every request.
func WithAuditWebhook(url, authHeader string) Option {
	return func(a *API) {
		if url != "" {
			a.webhook = newAuditWebhook(url, authHeader)
		}
	}
}

// WithAlertFunc registers a callback for anomaly alerts in addition to
// logging them.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithClock overrides the time source for tokens and lockouts.
func WithClock(now auth.Clock) Option {
	return func(a *API) {
		a.now = now
	}
}

// New creates a new API instance.
func New(repo storage.Repository, opts ...Option) *API {
	a := &API{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	a.codec = auth.NewCodec(a.secret, auth.WithCodecClock(a.now))
	a.tracker = auth.NewTracker(repo, auth.WithTrackerClock(a.now))

	a.audit = newAuditLogger(a.logger)
	a.audit.now = a.now
	a.audit.webhook = a.webhook
	a.audit.metrics = newMetricsCollector(func(e AlertEvent) {
		a.audit.alert(e)
		if a.alertFn != nil {
			a.alertFn(e)
		}
	})
	a.audit.metrics.now = a.now
	return a
}

// Close flushes pending webhook deliveries.
func (a *API) Close() {
	if a.webhook != nil {
		a.webhook.close()
	}
}

// Router returns a chi.Router with all API routes mounted at their full
// paths. The session gate runs ahead of every route.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)
	if len(a.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(a.Gate)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiDoc)
	})

	r.Handle("/api/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/docs",
	}, nil))

	r.Handle("/api/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/redoc",
	}, nil))

	r.Get("/api/event", a.GetEvent)
	r.Post("/api/rsvp", a.SubmitRSVP)
	r.Post("/api/activity", a.SubmitActivity)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/auth", a.Login)
		r.Post("/logout", a.Logout)

		r.Get("/rsvps", a.ListAttendees)
		r.Get("/rsvps/{id}", a.GetAttendee)
		r.Put("/rsvps/{id}", a.UpdateAttendee)
		r.Delete("/rsvps/{id}", a.DeleteAttendee)

		r.Get("/activities", a.ListActivities)
		r.Get("/activities/{id}", a.GetActivity)
		r.Put("/activities/{id}", a.UpdateActivity)
		r.Delete("/activities/{id}", a.DeleteActivity)
		r.Patch("/activities/{id}/approve", a.ApproveActivity)
		r.Patch("/activities/{id}/schedule", a.ScheduleActivity)

		r.Get("/announcements", a.ListAnnouncements)
		r.Post("/announcements", a.CreateAnnouncement)
		r.Delete("/announcements/{id}", a.DeleteAnnouncement)
		r.Patch("/announcements/{id}/toggle", a.ToggleAnnouncement)

		r.Get("/settings", a.GetSettings)
		r.Put("/settings", a.UpdateSettings)
	})

	return r
}
