package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/eventdesk/storage"
)

const (
	msgRSVPClosed    = "RSVPs are currently closed"
	msgRSVPDuplicate = "An RSVP with this email already exists. If you need to make changes, please contact us."
	msgRSVPSubmitted = "RSVP submitted successfully"
	msgRSVPUpdated   = "Attendee updated successfully"
	msgRSVPDeleted   = "Attendee deleted successfully"
)

var rsvpMessages = fieldMessages{
	"name.required":            "Name is required",
	"name.max":                 "Name must be less than 255 characters",
	"email.required":           "Email is required",
	"email.emailaddr":          "Please enter a valid email address",
	"email.max":                "Email must be 255 characters or less",
	"dietary_restrictions.max": "Dietary restrictions must be less than 500 characters",
	"arrival_time.max":         "Arrival time must be 255 characters or less",
	"departure_time.max":       "Departure time must be 255 characters or less",
	"excited_about.max":        "Response must be less than 500 characters",
}

var paymentStatuses = []string{
	storage.PaymentPending,
	storage.PaymentCompleted,
	storage.PaymentRefunded,
	storage.PaymentCancelled,
}

// settingOpen reports whether the boolean setting key is "true". A missing
// setting counts as closed.
func (a *API) settingOpen(r *http.Request, key string) (bool, error) {
	v, err := a.repo.GetSetting(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// SubmitRSVP handles POST /api/rsvp.
func (a *API) SubmitRSVP(w http.ResponseWriter, r *http.Request) {
	open, err := a.settingOpen(r, storage.SettingRSVPOpen)
	if err != nil {
		writeInternalError(w, msgInternal, fmt.Errorf("reading rsvp setting: %w", err))
		return
	}
	if !open {
		writeError(w, http.StatusForbidden, msgRSVPClosed)
		return
	}

	req, ok := decodeJSON[RSVPRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	req.DietaryRestrictions = strings.TrimSpace(req.DietaryRestrictions)
	req.ArrivalTime = strings.TrimSpace(req.ArrivalTime)
	req.DepartureTime = strings.TrimSpace(req.DepartureTime)
	req.ExcitedAbout = strings.TrimSpace(req.ExcitedAbout)

	details, err := validateStruct(req, rsvpMessages)
	if err != nil {
		writeInternalError(w, msgInternal, err)
		return
	}
	if len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	attendee := &storage.Attendee{
		Name:                req.Name,
		Email:               req.Email,
		DietaryRestrictions: req.DietaryRestrictions,
		PlusOne:             req.PlusOne,
		ArrivalTime:         req.ArrivalTime,
		DepartureTime:       req.DepartureTime,
		ExcitedAbout:        req.ExcitedAbout,
		PaymentStatus:       storage.PaymentPending,
	}
	id, err := a.repo.InsertAttendee(r.Context(), attendee)
	if errors.Is(err, storage.ErrDuplicate) {
		writeError(w, http.StatusConflict, msgRSVPDuplicate)
		return
	}
	if err != nil {
		writeInternalError(w, msgInternal, fmt.Errorf("inserting attendee: %w", err))
		return
	}

	writeJSON(w, http.StatusCreated, RSVPResponse{
		Success:    true,
		Message:    msgRSVPSubmitted,
		AttendeeID: id,
		Email:      attendee.Email,
	})
}

// parseID reads the {id} URL parameter. It must be a positive integer.
func parseID(w http.ResponseWriter, r *http.Request, kind recordErrors) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, kind.invalidID)
		return 0, false
	}
	return id, true
}

// ListAttendees handles GET /api/admin/rsvps.
func (a *API) ListAttendees(w http.ResponseWriter, r *http.Request) {
	attendees, err := a.repo.ListAttendees(r.Context())
	if err != nil {
		writeInternalError(w, "Failed to fetch attendees", err)
		return
	}
	page, meta := paginate(r, attendees)
	writeJSON(w, http.StatusOK, AttendeeListResponse{
		Success:    true,
		Attendees:  page,
		Pagination: meta,
	})
}

// GetAttendee handles GET /api/admin/rsvps/{id}.
func (a *API) GetAttendee(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, attendeeErrors)
	if !ok {
		return
	}
	attendee, err := a.repo.GetAttendee(r.Context(), id)
	if err != nil {
		mapError(w, err, attendeeErrors)
		return
	}
	writeJSON(w, http.StatusOK, AttendeeResponse{Success: true, Attendee: attendee})
}

// UpdateAttendee handles PUT /api/admin/rsvps/{id}. Only the fields present
// in the body change.
func (a *API) UpdateAttendee(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, attendeeErrors)
	if !ok {
		return
	}
	attendee, err := a.repo.GetAttendee(r.Context(), id)
	if err != nil {
		mapError(w, err, attendeeErrors)
		return
	}

	req, ok := decodeJSON[UpdateAttendeeRequest](w, r, maxBodySize)
	if !ok {
		return
	}

	errs := fieldErrors{}
	if req.Name.Set {
		name := strings.TrimSpace(req.Name.Value)
		switch {
		case name == "":
			errs.add("name", "Name is required")
		case runeLen(name) > 255:
			errs.add("name", "Name must be less than 255 characters")
		}
		attendee.Name = name
	}
	if req.Email.Set {
		email := normalizeEmail(req.Email.Value)
		switch {
		case email == "":
			errs.add("email", "Email is required")
		case !validEmail(email):
			errs.add("email", "Please enter a valid email address")
		}
		attendee.Email = email
	}
	if req.DietaryRestrictions.Set {
		if runeLen(req.DietaryRestrictions.Value) > 500 {
			errs.add("dietary_restrictions", "Dietary restrictions must be less than 500 characters")
		}
		attendee.DietaryRestrictions = strings.TrimSpace(req.DietaryRestrictions.Value)
	}
	if req.PlusOne.Set {
		attendee.PlusOne = req.PlusOne.Value
	}
	if req.ArrivalTime.Set {
		attendee.ArrivalTime = strings.TrimSpace(req.ArrivalTime.Value)
	}
	if req.DepartureTime.Set {
		attendee.DepartureTime = strings.TrimSpace(req.DepartureTime.Value)
	}
	if req.ExcitedAbout.Set {
		if runeLen(req.ExcitedAbout.Value) > 500 {
			errs.add("excited_about", "Response must be less than 500 characters")
		}
		attendee.ExcitedAbout = strings.TrimSpace(req.ExcitedAbout.Value)
	}
	if req.PaymentStatus.Set {
		if !slices.Contains(paymentStatuses, req.PaymentStatus.Value) {
			errs.add("payment_status", "Invalid payment status")
		}
		attendee.PaymentStatus = req.PaymentStatus.Value
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	if err := a.repo.UpdateAttendee(r.Context(), attendee); err != nil {
		mapError(w, err, attendeeErrors)
		return
	}
	a.audit.logRecord(AuditRSVPUpdated, r, id)
	writeJSON(w, http.StatusOK, AttendeeResponse{
		Success:  true,
		Message:  msgRSVPUpdated,
		Attendee: attendee,
	})
}

// DeleteAttendee handles DELETE /api/admin/rsvps/{id}.
func (a *API) DeleteAttendee(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, attendeeErrors)
	if !ok {
		return
	}
	if err := a.repo.DeleteAttendee(r.Context(), id); err != nil {
		mapError(w, err, attendeeErrors)
		return
	}
	a.audit.logRecord(AuditRSVPDeleted, r, id)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: msgRSVPDeleted})
}
