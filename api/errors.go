package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jmcleod/eventdesk/storage"
)

const (
	msgInternal         = "Internal server error. Please try again later."
	msgConfigError      = "Server configuration error. Please contact the administrator."
	msgValidationFailed = "Validation failed"
	msgInvalidBody      = "Invalid request body"
	msgBodyTooLarge     = "Request body too large"
)

const (
	maxAuthBodySize = 4 << 10
	maxBodySize     = 64 << 10
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeValidationError(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgValidationFailed, Details: details})
}

// writeInternalError logs err and sends msg with a 500. err never reaches
// the client.
func writeInternalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

// recordErrors names the client-facing messages for one record kind.
type recordErrors struct {
	invalidID string
	notFound  string
	duplicate string
	failure   string
}

var (
	attendeeErrors = recordErrors{
		invalidID: "Invalid attendee ID",
		notFound:  "Attendee not found",
		duplicate: "An attendee with this email already exists",
		failure:   "Failed to process attendee",
	}
	activityErrors = recordErrors{
		invalidID: "Invalid activity ID",
		notFound:  "Activity not found",
		failure:   "Failed to process activity",
	}
	announcementErrors = recordErrors{
		invalidID: "Invalid announcement ID",
		notFound:  "Announcement not found",
		failure:   "Failed to process announcement",
	}
)

func mapError(w http.ResponseWriter, err error, kind recordErrors) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, kind.notFound)
	case errors.Is(err, storage.ErrDuplicate) && kind.duplicate != "":
		writeError(w, http.StatusConflict, kind.duplicate)
	default:
		writeInternalError(w, kind.failure, err)
	}
}

// decodeJSON reads a JSON body of at most maxBytes into a T. On failure it
// writes the error response and returns false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxBytes int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return v, false
		}
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return v, false
	}
	return v, true
}
