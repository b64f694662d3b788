package api

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/jmcleod/eventdesk/storage"
)

const (
	msgActivityClosed    = "Activity submissions are currently closed"
	msgActivitySubmitted = "Activity submitted successfully. Thank you!"
	msgActivityUpdated   = "Activity updated successfully"
	msgActivityDeleted   = "Activity deleted successfully"
)

var activityMessages = fieldMessages{
	"title.required":           "Activity title is required",
	"title.max":                "Title must be less than 255 characters",
	"host_name.required":       "Your name is required",
	"host_name.max":            "Name must be less than 255 characters",
	"host_email.required":      "Your email is required",
	"host_email.emailaddr":     "Please enter a valid email address",
	"host_email.max":           "Email must be 255 characters or less",
	"description.required":     "Description is required",
	"description.max":          "Description must be less than 2000 characters",
	"duration.required":        "Duration is required",
	"duration.oneof":           "Invalid duration selected",
	"activity_type.required":   "Activity type is required",
	"activity_type.oneof":      "Invalid activity type selected",
	"time_preference.required": "Time preference is required",
	"time_preference.oneof":    "Invalid time preference selected",
	"equipment_needed.max":     "Equipment description must be less than 1000 characters",
	"capacity.min":             "Capacity must be between 1 and 999",
	"capacity.max":             "Capacity must be between 1 and 999",
}

var scheduleMessages = fieldMessages{
	"scheduled_start.required":  "Scheduled start time is required",
	"scheduled_start.timestamp": "Invalid scheduled start time",
	"scheduled_end.required":    "Scheduled end time is required",
	"scheduled_end.timestamp":   "Invalid scheduled end time",
	"location.required":         "Location is required",
	"location.max":              "Location must be 255 characters or less",
}

var activityStatuses = []string{
	storage.ActivityPending,
	storage.ActivityApproved,
	storage.ActivityScheduled,
	storage.ActivityCancelled,
}

// SubmitActivity handles POST /api/activity.
func (a *API) SubmitActivity(w http.ResponseWriter, r *http.Request) {
	open, err := a.settingOpen(r, storage.SettingActivitySubmissionsOpen)
	if err != nil {
		writeInternalError(w, msgInternal, fmt.Errorf("reading activity setting: %w", err))
		return
	}
	if !open {
		writeError(w, http.StatusForbidden, msgActivityClosed)
		return
	}

	req, ok := decodeJSON[ActivityRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.HostName = strings.TrimSpace(req.HostName)
	req.HostEmail = normalizeEmail(req.HostEmail)
	req.Description = strings.TrimSpace(req.Description)
	req.EquipmentNeeded = strings.TrimSpace(req.EquipmentNeeded)

	details, err := validateStruct(req, activityMessages)
	if err != nil {
		writeInternalError(w, msgInternal, err)
		return
	}
	if len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	activity := &storage.Activity{
		Title:           req.Title,
		Description:     req.Description,
		HostName:        req.HostName,
		HostEmail:       req.HostEmail,
		Duration:        req.Duration,
		EquipmentNeeded: req.EquipmentNeeded,
		Capacity:        req.Capacity,
		TimePreference:  req.TimePreference,
		ActivityType:    req.ActivityType,
		Status:          storage.ActivityPending,
	}
	id, err := a.repo.InsertActivity(r.Context(), activity)
	if err != nil {
		writeInternalError(w, msgInternal, fmt.Errorf("inserting activity: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, ActivitySubmitResponse{
		Success:    true,
		Message:    msgActivitySubmitted,
		ActivityID: id,
	})
}

// ListActivities handles GET /api/admin/activities. An optional status
// query parameter filters the list.
func (a *API) ListActivities(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !slices.Contains(activityStatuses, status) {
		writeError(w, http.StatusBadRequest, "Invalid status value")
		return
	}
	activities, err := a.repo.ListActivities(r.Context(), status)
	if err != nil {
		writeInternalError(w, "Failed to fetch activities", err)
		return
	}
	page, meta := paginate(r, activities)
	writeJSON(w, http.StatusOK, ActivityListResponse{
		Success:    true,
		Activities: page,
		Pagination: meta,
	})
}

// GetActivity handles GET /api/admin/activities/{id}.
func (a *API) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, activityErrors)
	if !ok {
		return
	}
	activity, err := a.repo.GetActivity(r.Context(), id)
	if err != nil {
		mapError(w, err, activityErrors)
		return
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Success: true, Activity: activity})
}

// UpdateActivity handles PUT /api/admin/activities/{id}. Only the fields
// present in the body change.
func (a *API) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, activityErrors)
	if !ok {
		return
	}
	activity, err := a.repo.GetActivity(r.Context(), id)
	if err != nil {
		mapError(w, err, activityErrors)
		return
	}

	req, ok := decodeJSON[UpdateActivityRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	errs := applyActivityUpdate(activity, &req)
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	if err := a.repo.UpdateActivity(r.Context(), activity); err != nil {
		mapError(w, err, activityErrors)
		return
	}
	a.audit.logRecord(AuditActivityUpdated, r, id)
	writeJSON(w, http.StatusOK, ActivityResponse{
		Success:  true,
		Message:  msgActivityUpdated,
		Activity: activity,
	})
}

// applyActivityUpdate copies the present fields of req onto activity and
// returns any validation failures.
func applyActivityUpdate(activity *storage.Activity, req *UpdateActivityRequest) fieldErrors {
	errs := fieldErrors{}

	if req.Title.Set {
		title := strings.TrimSpace(req.Title.Value)
		switch {
		case title == "":
			errs.add("title", "Title is required")
		case runeLen(title) > 255:
			errs.add("title", "Title must be 255 characters or less")
		}
		activity.Title = title
	}
	if req.Description.Set {
		if runeLen(req.Description.Value) > 2000 {
			errs.add("description", "Description must be 2000 characters or less")
		}
		activity.Description = strings.TrimSpace(req.Description.Value)
	}
	if req.HostName.Set {
		name := strings.TrimSpace(req.HostName.Value)
		switch {
		case name == "":
			errs.add("host_name", "Host name is required")
		case runeLen(name) > 255:
			errs.add("host_name", "Host name must be 255 characters or less")
		}
		activity.HostName = name
	}
	if req.HostEmail.Set {
		email := normalizeEmail(req.HostEmail.Value)
		switch {
		case email == "":
			errs.add("host_email", "Host email is required")
		case !validEmail(email):
			errs.add("host_email", "Invalid email format")
		case runeLen(email) > 255:
			errs.add("host_email", "Email must be 255 characters or less")
		}
		activity.HostEmail = email
	}
	if req.Duration.Set {
		d := req.Duration.Value
		if d == nil || *d <= 0 {
			errs.add("duration", "Duration must be a positive number")
		} else {
			activity.Duration = *d
		}
	}
	if req.ActivityType.Set {
		if runeLen(req.ActivityType.Value) > 100 {
			errs.add("activity_type", "Activity type must be 100 characters or less")
		}
		activity.ActivityType = strings.TrimSpace(req.ActivityType.Value)
	}
	if req.EquipmentNeeded.Set {
		if runeLen(req.EquipmentNeeded.Value) > 500 {
			errs.add("equipment_needed", "Equipment needed must be 500 characters or less")
		}
		activity.EquipmentNeeded = strings.TrimSpace(req.EquipmentNeeded.Value)
	}
	if req.Capacity.Set {
		c := req.Capacity.Value
		if c != nil && *c < 0 {
			errs.add("capacity", "Capacity must be a non-negative number")
		}
		activity.Capacity = c
	}
	if req.TimePreference.Set {
		if runeLen(req.TimePreference.Value) > 500 {
			errs.add("time_preference", "Time preference must be 500 characters or less")
		}
		activity.TimePreference = strings.TrimSpace(req.TimePreference.Value)
	}
	if req.Notes.Set {
		if runeLen(req.Notes.Value) > 1000 {
			errs.add("notes", "Notes must be 1000 characters or less")
		}
		activity.Notes = strings.TrimSpace(req.Notes.Value)
	}
	if req.Status.Set {
		if !slices.Contains(activityStatuses, req.Status.Value) {
			errs.add("status", "Invalid status value")
		}
		activity.Status = req.Status.Value
	}
	if req.ScheduledStart.Set {
		if v := req.ScheduledStart.Value; v != "" {
			if _, ok := parseTimestamp(v); !ok {
				errs.add("scheduled_start", "Invalid scheduled start time")
			}
		}
		activity.ScheduledStart = req.ScheduledStart.Value
	}
	if req.ScheduledEnd.Set {
		if v := req.ScheduledEnd.Value; v != "" {
			end, ok := parseTimestamp(v)
			if !ok {
				errs.add("scheduled_end", "Invalid scheduled end time")
			} else if req.ScheduledStart.Value != "" && !errs.has("scheduled_start") {
				start, _ := parseTimestamp(req.ScheduledStart.Value)
				if !end.After(start) {
					errs.add("scheduled_end", "End time must be after start time")
				}
			}
		}
		activity.ScheduledEnd = req.ScheduledEnd.Value
	}
	if req.Location.Set {
		if runeLen(req.Location.Value) > 255 {
			errs.add("location", "Location must be 255 characters or less")
		}
		activity.Location = strings.TrimSpace(req.Location.Value)
	}
	return errs
}

// DeleteActivity handles DELETE /api/admin/activities/{id}.
func (a *API) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, activityErrors)
	if !ok {
		return
	}
	if err := a.repo.DeleteActivity(r.Context(), id); err != nil {
		mapError(w, err, activityErrors)
		return
	}
	a.audit.logRecord(AuditActivityDeleted, r, id)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: msgActivityDeleted})
}

// ApproveActivity handles PATCH /api/admin/activities/{id}/approve.
func (a *API) ApproveActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, activityErrors)
	if !ok {
		return
	}
	activity, err := a.repo.GetActivity(r.Context(), id)
	if err != nil {
		mapError(w, err, activityErrors)
		return
	}
	activity.Status = storage.ActivityApproved
	if err := a.repo.UpdateActivity(r.Context(), activity); err != nil {
		mapError(w, err, activityErrors)
		return
	}
	a.audit.logRecord(AuditActivityApproved, r, id)
	writeJSON(w, http.StatusOK, ActivityResponse{Success: true, Activity: activity})
}

// ScheduleActivity handles PATCH /api/admin/activities/{id}/schedule. It
// sets the time slot and location and marks the activity scheduled.
func (a *API) ScheduleActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, activityErrors)
	if !ok {
		return
	}
	activity, err := a.repo.GetActivity(r.Context(), id)
	if err != nil {
		mapError(w, err, activityErrors)
		return
	}

	req, ok := decodeJSON[ScheduleActivityRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	req.Location = strings.TrimSpace(req.Location)

	details, err := validateStruct(req, scheduleMessages)
	if err != nil {
		writeInternalError(w, msgInternal, err)
		return
	}
	errs := fieldErrors(details)
	if errs == nil {
		errs = fieldErrors{}
	}
	if !errs.has("scheduled_start") && !errs.has("scheduled_end") {
		start, _ := parseTimestamp(req.ScheduledStart)
		end, _ := parseTimestamp(req.ScheduledEnd)
		if !end.After(start) {
			errs.add("scheduled_end", "End time must be after start time")
		}
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	activity.ScheduledStart = req.ScheduledStart
	activity.ScheduledEnd = req.ScheduledEnd
	activity.Location = req.Location
	activity.Status = storage.ActivityScheduled
	if err := a.repo.UpdateActivity(r.Context(), activity); err != nil {
		mapError(w, err, activityErrors)
		return
	}
	a.audit.logRecord(AuditActivityScheduled, r, id)
	writeJSON(w, http.StatusOK, ActivityResponse{Success: true, Activity: activity})
}
