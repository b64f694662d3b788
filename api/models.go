package api

import "github.com/jmcleod/eventdesk/storage"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// MessageResponse is a success flag with a human-readable message.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// LoginRequest is the JSON body for POST /api/admin/auth. Password is
// untyped so a non-string value is reported as missing.
type LoginRequest struct {
	Password any `json:"password"`
}

// RSVPRequest is the JSON body for POST /api/rsvp.
type RSVPRequest struct {
	Name                string `json:"name" validate:"required,max=255"`
	Email               string `json:"email" validate:"required,emailaddr,max=255"`
	DietaryRestrictions string `json:"dietary_restrictions" validate:"max=500"`
	PlusOne             bool   `json:"plus_one"`
	ArrivalTime         string `json:"arrival_time" validate:"max=255"`
	DepartureTime       string `json:"departure_time" validate:"max=255"`
	ExcitedAbout        string `json:"excited_about" validate:"max=500"`
}

// RSVPResponse is returned from POST /api/rsvp.
type RSVPResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	AttendeeID int64  `json:"attendeeId"`
	Email      string `json:"email"`
}

// ActivityRequest is the JSON body for POST /api/activity.
type ActivityRequest struct {
	Title           string `json:"title" validate:"required,max=255"`
	HostName        string `json:"host_name" validate:"required,max=255"`
	HostEmail       string `json:"host_email" validate:"required,emailaddr,max=255"`
	Description     string `json:"description" validate:"required,max=2000"`
	Duration        int    `json:"duration" validate:"required,oneof=30 60 120 180 240"`
	ActivityType    string `json:"activity_type" validate:"required,oneof=Gaming Outdoor Creative Social 18+ Other"`
	TimePreference  string `json:"time_preference" validate:"required,oneof=Morning Afternoon Evening 'Late Night' 'No Preference'"`
	EquipmentNeeded string `json:"equipment_needed" validate:"max=1000"`
	Capacity        *int   `json:"capacity" validate:"omitnil,min=1,max=999"`
}

// ActivitySubmitResponse is returned from POST /api/activity.
type ActivitySubmitResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ActivityID int64  `json:"activityId"`
}

// UpdateAttendeeRequest is the JSON body for PUT /api/admin/rsvps/{id}.
// Only fields present in the body are changed.
type UpdateAttendeeRequest struct {
	Name                optional[string] `json:"name"`
	Email               optional[string] `json:"email"`
	DietaryRestrictions optional[string] `json:"dietary_restrictions"`
	PlusOne             optional[bool]   `json:"plus_one"`
	ArrivalTime         optional[string] `json:"arrival_time"`
	DepartureTime       optional[string] `json:"departure_time"`
	ExcitedAbout        optional[string] `json:"excited_about"`
	PaymentStatus       optional[string] `json:"payment_status"`
}

// AttendeeListResponse is returned from GET /api/admin/rsvps.
type AttendeeListResponse struct {
	Success    bool               `json:"success"`
	Attendees  []storage.Attendee `json:"attendees"`
	Pagination PaginationMeta     `json:"pagination"`
}

// AttendeeResponse carries a single attendee.
type AttendeeResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message,omitempty"`
	Attendee *storage.Attendee `json:"attendee"`
}

// UpdateActivityRequest is the JSON body for PUT /api/admin/activities/{id}.
// Only fields present in the body are changed.
type UpdateActivityRequest struct {
	Title           optional[string] `json:"title"`
	Description     optional[string] `json:"description"`
	HostName        optional[string] `json:"host_name"`
	HostEmail       optional[string] `json:"host_email"`
	Duration        optional[*int]   `json:"duration"`
	ActivityType    optional[string] `json:"activity_type"`
	EquipmentNeeded optional[string] `json:"equipment_needed"`
	Capacity        optional[*int]   `json:"capacity"`
	TimePreference  optional[string] `json:"time_preference"`
	Notes           optional[string] `json:"notes"`
	Status          optional[string] `json:"status"`
	ScheduledStart  optional[string] `json:"scheduled_start"`
	ScheduledEnd    optional[string] `json:"scheduled_end"`
	Location        optional[string] `json:"location"`
}

// ScheduleActivityRequest is the JSON body for
// PATCH /api/admin/activities/{id}/schedule.
type ScheduleActivityRequest struct {
	ScheduledStart string `json:"scheduled_start" validate:"required,timestamp"`
	ScheduledEnd   string `json:"scheduled_end" validate:"required,timestamp"`
	Location       string `json:"location" validate:"required,max=255"`
}

// ActivityListResponse is returned from GET /api/admin/activities.
type ActivityListResponse struct {
	Success    bool               `json:"success"`
	Activities []storage.Activity `json:"activities"`
	Pagination PaginationMeta     `json:"pagination"`
}

// ActivityResponse carries a single activity.
type ActivityResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message,omitempty"`
	Activity *storage.Activity `json:"activity"`
}

// CreateAnnouncementRequest is the JSON body for POST /api/admin/announcements.
type CreateAnnouncementRequest struct {
	Message string `json:"message" validate:"required,max=500"`
}

// ToggleAnnouncementRequest is the JSON body for
// PATCH /api/admin/announcements/{id}/toggle.
type ToggleAnnouncementRequest struct {
	Active any `json:"active"`
}

// CreatedResponse is returned when a record is created by an admin.
type CreatedResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

// AnnouncementListResponse is returned from GET /api/admin/announcements.
type AnnouncementListResponse struct {
	Success       bool                   `json:"success"`
	Announcements []storage.Announcement `json:"announcements"`
}

// UpdateSettingsRequest is the JSON body for PUT /api/admin/settings.
type UpdateSettingsRequest struct {
	EventDateStart          optional[string] `json:"event_date_start"`
	EventDateEnd            optional[string] `json:"event_date_end"`
	Location                optional[string] `json:"location"`
	RSVPOpen                optional[any]    `json:"rsvp_open"`
	ActivitySubmissionsOpen optional[any]    `json:"activity_submissions_open"`
}

// SettingsResponse carries every stored setting.
type SettingsResponse struct {
	Success  bool              `json:"success"`
	Settings map[string]string `json:"settings"`
}

// EventInfo is the public view of the event settings.
type EventInfo struct {
	StartDate               string `json:"event_date_start,omitempty"`
	EndDate                 string `json:"event_date_end,omitempty"`
	Location                string `json:"location,omitempty"`
	RSVPOpen                bool   `json:"rsvp_open"`
	ActivitySubmissionsOpen bool   `json:"activity_submissions_open"`
}

// EventResponse is returned from GET /api/event.
type EventResponse struct {
	Success       bool                   `json:"success"`
	Event         EventInfo              `json:"event"`
	Announcements []storage.Announcement `json:"announcements"`
	Activities    []storage.Activity     `json:"activities"`
}
