package api

import (
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/jmcleod/eventdesk/storage"
)

// GetSettings handles GET /api/admin/settings.
func (a *API) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.repo.ListSettings(r.Context())
	if err != nil {
		writeInternalError(w, "Failed to fetch settings", err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Success: true, Settings: settings})
}

// UpdateSettings handles PUT /api/admin/settings. Only the keys present in
// the body are written, and nothing is written if any value is invalid.
func (a *API) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[UpdateSettingsRequest](w, r, maxBodySize)
	if !ok {
		return
	}

	errs := fieldErrors{}
	updates := map[string]string{}

	if req.EventDateStart.Set {
		v := strings.TrimSpace(req.EventDateStart.Value)
		if v == "" {
			errs.add(storage.SettingEventDateStart, "Event start date is required")
		} else if _, ok := parseTimestamp(v); !ok {
			errs.add(storage.SettingEventDateStart, "Invalid event start date")
		}
		updates[storage.SettingEventDateStart] = v
	}
	if req.EventDateEnd.Set {
		v := strings.TrimSpace(req.EventDateEnd.Value)
		if v == "" {
			errs.add(storage.SettingEventDateEnd, "Event end date is required")
		} else if end, ok := parseTimestamp(v); !ok {
			errs.add(storage.SettingEventDateEnd, "Invalid event end date")
		} else if req.EventDateStart.Set && !errs.has(storage.SettingEventDateStart) {
			start, _ := parseTimestamp(req.EventDateStart.Value)
			if end.Before(start) {
				errs.add(storage.SettingEventDateEnd, "Event end date must be after start date")
			}
		}
		updates[storage.SettingEventDateEnd] = v
	}
	if req.Location.Set {
		v := strings.TrimSpace(req.Location.Value)
		switch {
		case v == "":
			errs.add(storage.SettingLocation, "Location is required")
		case runeLen(v) > 255:
			errs.add(storage.SettingLocation, "Location must be 255 characters or less")
		}
		updates[storage.SettingLocation] = v
	}
	if req.RSVPOpen.Set {
		v, ok := flag(req.RSVPOpen.Value)
		if !ok {
			errs.add(storage.SettingRSVPOpen, "RSVP open must be a boolean value")
		}
		updates[storage.SettingRSVPOpen] = v
	}
	if req.ActivitySubmissionsOpen.Set {
		v, ok := flag(req.ActivitySubmissionsOpen.Value)
		if !ok {
			errs.add(storage.SettingActivitySubmissionsOpen, "Activity submissions open must be a boolean value")
		}
		updates[storage.SettingActivitySubmissionsOpen] = v
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	for key, value := range updates {
		if err := a.repo.SetSetting(r.Context(), key, value); err != nil {
			writeInternalError(w, "Failed to update settings", fmt.Errorf("writing %s: %w", key, err))
			return
		}
	}
	settings, err := a.repo.ListSettings(r.Context())
	if err != nil {
		writeInternalError(w, "Failed to update settings", err)
		return
	}
	a.audit.log(AuditSettingsUpdated, r, settingKeysAttr(updates))
	writeJSON(w, http.StatusOK, SettingsResponse{Success: true, Settings: settings})
}

func settingKeysAttr(updates map[string]string) slog.Attr {
	keys := slices.Sorted(maps.Keys(updates))
	return slog.String("keys", strings.Join(keys, ","))
}
