package api

import (
	"net/http"

	"github.com/jmcleod/eventdesk/storage"
)

// GetEvent handles GET /api/event: the public event details, the active
// announcements and the scheduled activities.
func (a *API) GetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, err := a.repo.ListSettings(ctx)
	if err != nil {
		writeInternalError(w, "Failed to fetch event", err)
		return
	}
	announcements, err := a.repo.ListAnnouncements(ctx, true)
	if err != nil {
		writeInternalError(w, "Failed to fetch event", err)
		return
	}
	activities, err := a.repo.ListActivities(ctx, storage.ActivityScheduled)
	if err != nil {
		writeInternalError(w, "Failed to fetch event", err)
		return
	}
	if announcements == nil {
		announcements = []storage.Announcement{}
	}
	if activities == nil {
		activities = []storage.Activity{}
	}
	for i := range activities {
		// Host contact details stay admin-only.
		activities[i].HostEmail = ""
		activities[i].Notes = ""
	}

	writeJSON(w, http.StatusOK, EventResponse{
		Success: true,
		Event: EventInfo{
			StartDate:               settings[storage.SettingEventDateStart],
			EndDate:                 settings[storage.SettingEventDateEnd],
			Location:                settings[storage.SettingLocation],
			RSVPOpen:                settings[storage.SettingRSVPOpen] == "true",
			ActivitySubmissionsOpen: settings[storage.SettingActivitySubmissionsOpen] == "true",
		},
		Announcements: announcements,
		Activities:    activities,
	})
}
