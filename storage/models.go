package storage

import "time"

// Payment statuses for attendees.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentRefunded  = "refunded"
	PaymentCancelled = "cancelled"
)

// Activity lifecycle statuses.
const (
	ActivityPending   = "pending"
	ActivityApproved  = "approved"
	ActivityScheduled = "scheduled"
	ActivityCancelled = "cancelled"
)

// Well-known setting keys.
const (
	SettingRSVPOpen                = "rsvp_open"
	SettingActivitySubmissionsOpen = "activity_submissions_open"
	SettingEventDateStart          = "event_date_start"
	SettingEventDateEnd            = "event_date_end"
	SettingLocation                = "location"
)

// DefaultSettings are written to a fresh store.
var DefaultSettings = map[string]string{
	SettingRSVPOpen:                "true",
	SettingActivitySubmissionsOpen: "true",
}

// Attendee is a single RSVP.
type Attendee struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	DietaryRestrictions string    `json:"dietary_restrictions,omitempty"`
	PlusOne             bool      `json:"plus_one"`
	ArrivalTime         string    `json:"arrival_time,omitempty"`
	DepartureTime       string    `json:"departure_time,omitempty"`
	ExcitedAbout        string    `json:"excited_about,omitempty"`
	PaymentStatus       string    `json:"payment_status"`
	CreatedAt           time.Time `json:"created_at"`
}

// Activity is a proposed or scheduled event activity.
type Activity struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	HostName        string    `json:"host_name"`
	HostEmail       string    `json:"host_email,omitempty"`
	Duration        int       `json:"duration,omitempty"`
	EquipmentNeeded string    `json:"equipment_needed,omitempty"`
	Capacity        *int      `json:"capacity"`
	TimePreference  string    `json:"time_preference,omitempty"`
	ActivityType    string    `json:"activity_type,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Status          string    `json:"status"`
	ScheduledStart  string    `json:"scheduled_start,omitempty"`
	ScheduledEnd    string    `json:"scheduled_end,omitempty"`
	Location        string    `json:"location,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Announcement is a message shown to visitors while active.
type Announcement struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginAttempt tracks failed admin logins from one source address.
type LoginAttempt struct {
	Address     string
	Attempts    int
	LastAttempt time.Time
	LockedUntil *time.Time
}

// StampCreated returns t, or the current UTC time truncated to
// milliseconds when t is zero. Backends persist millisecond precision.
func StampCreated(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.Truncate(time.Millisecond)
}
