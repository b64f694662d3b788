package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess       AuditEvent = "login_success"
	AuditLoginFailure       AuditEvent = "login_failure"
	AuditLoginLocked        AuditEvent = "login_locked"
	AuditLoginRateLimited   AuditEvent = "login_rate_limited"
	AuditLogout             AuditEvent = "logout"
	AuditUnauthorized       AuditEvent = "unauthorized"
	AuditRSVPUpdated        AuditEvent = "rsvp_updated"
	AuditRSVPDeleted        AuditEvent = "rsvp_deleted"
	AuditActivityUpdated    AuditEvent = "activity_updated"
	AuditActivityApproved   AuditEvent = "activity_approved"
	AuditActivityScheduled  AuditEvent = "activity_scheduled"
	AuditActivityDeleted    AuditEvent = "activity_deleted"
	AuditAnnouncementAdded  AuditEvent = "announcement_created"
	AuditAnnouncementDelete AuditEvent = "announcement_deleted"
	AuditAnnouncementToggle AuditEvent = "announcement_toggled"
	AuditSettingsUpdated    AuditEvent = "settings_updated"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
	webhook *auditWebhook
	now     func() time.Time
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
		now:    time.Now,
	}
}

// log writes a structured audit entry and mirrors it to the webhook when
// one is configured.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	eventID := uuid.NewString()
	timestamp := al.now().UTC().Format(time.RFC3339)
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("event_id", eventID),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", timestamp),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)

	if al.webhook != nil {
		evt := webhookEvent{
			EventID:    eventID,
			Event:      string(event),
			RemoteAddr: r.RemoteAddr,
			Timestamp:  timestamp,
		}
		if len(attrs) > 0 {
			evt.Attrs = make(map[string]string, len(attrs))
			for _, a := range attrs {
				evt.Attrs[a.Key] = a.Value.String()
			}
		}
		al.webhook.enqueue(evt)
	}
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logRecord is a convenience for admin mutations on a numbered record.
func (al *auditLogger) logRecord(event AuditEvent, r *http.Request, id int64, extra ...slog.Attr) {
	attrs := []slog.Attr{slog.Int64("record_id", id)}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a rejected request with its reason.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// alert logs an anomaly at warn level and forwards it to the webhook.
func (al *auditLogger) alert(e AlertEvent) {
	al.logger.Warn("alert",
		"type", string(e.Type),
		"message", e.Message,
		"count", e.Count,
		"threshold", e.Threshold,
	)
	if al.webhook != nil {
		al.webhook.enqueue(webhookEvent{
			EventID:   uuid.NewString(),
			Event:     string(e.Type),
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Attrs: map[string]string{
				"message":   e.Message,
				"count":     strconv.Itoa(e.Count),
				"threshold": strconv.Itoa(e.Threshold),
			},
		})
	}
}

func pathAttr(r *http.Request) slog.Attr {
	return slog.String("path", r.URL.Path)
}
