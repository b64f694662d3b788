package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmcleod/eventdesk/storage"
)

var announcementMessages = fieldMessages{
	"message.required": "Announcement message is required",
	"message.max":      "Announcement message must be 500 characters or less",
}

// ListAnnouncements handles GET /api/admin/announcements.
func (a *API) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	announcements, err := a.repo.ListAnnouncements(r.Context(), false)
	if err != nil {
		writeInternalError(w, "Failed to fetch announcements", err)
		return
	}
	if announcements == nil {
		announcements = []storage.Announcement{}
	}
	writeJSON(w, http.StatusOK, AnnouncementListResponse{Success: true, Announcements: announcements})
}

// CreateAnnouncement handles POST /api/admin/announcements. New
// announcements are active.
func (a *API) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreateAnnouncementRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	req.Message = strings.TrimSpace(req.Message)

	details, err := validateStruct(req, announcementMessages)
	if err != nil {
		writeInternalError(w, msgInternal, err)
		return
	}
	if msg, bad := details["message"]; bad {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id, err := a.repo.InsertAnnouncement(r.Context(), &storage.Announcement{
		Message: req.Message,
		Active:  true,
	})
	if err != nil {
		writeInternalError(w, "Failed to create announcement", err)
		return
	}
	a.audit.logRecord(AuditAnnouncementAdded, r, id)
	writeJSON(w, http.StatusCreated, CreatedResponse{Success: true, ID: id})
}

// DeleteAnnouncement handles DELETE /api/admin/announcements/{id}.
func (a *API) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, announcementErrors)
	if !ok {
		return
	}
	if err := a.repo.DeleteAnnouncement(r.Context(), id); err != nil {
		mapError(w, err, announcementErrors)
		return
	}
	a.audit.logRecord(AuditAnnouncementDelete, r, id)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true})
}

// ToggleAnnouncement handles PATCH /api/admin/announcements/{id}/toggle.
func (a *API) ToggleAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, announcementErrors)
	if !ok {
		return
	}
	if _, err := a.repo.GetAnnouncement(r.Context(), id); err != nil {
		mapError(w, err, announcementErrors)
		return
	}

	req, ok := decodeJSON[ToggleAnnouncementRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	active, isBool := req.Active.(bool)
	if !isBool {
		writeError(w, http.StatusBadRequest, "Active status must be a boolean value")
		return
	}

	if err := a.repo.SetAnnouncementActive(r.Context(), id, active); err != nil {
		mapError(w, err, announcementErrors)
		return
	}
	a.audit.logRecord(AuditAnnouncementToggle, r, id, slog.Bool("active", active))
	writeJSON(w, http.StatusOK, MessageResponse{Success: true})
}
