// Package handlers holds the HTTP handlers of the backup API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/backup"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// BackupHandler handles HTTP requests related to backups.
type BackupHandler struct {
	service backup.Service
	logger  zerolog.Logger
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(logger zerolog.Logger, service backup.Service) *BackupHandler {
	return &BackupHandler{service: service, logger: logger}
}

// CaptureResponse is returned after a manual backup.
type CaptureResponse struct {
	Backup           models.BackupRecord   `json:"backup"`
	Evicted          []models.BackupRecord `json:"evicted"`
	EvictionFailures int                   `json:"evictionFailures"`
	DurationMs       int64                 `json:"durationMs"`
}

// ScheduleResponse describes the automatic backup schedule.
type ScheduleResponse struct {
	Running         bool       `json:"running"`
	IntervalMinutes int        `json:"intervalMinutes"`
	NextFireAt      *time.Time `json:"nextFireAt,omitempty"`
	Countdown       string     `json:"countdown"`
	InFlight        bool       `json:"inFlight"`
	LastRunAt       *time.Time `json:"lastRunAt,omitempty"`
	LastError       string     `json:"lastError,omitempty"`
}

// IntervalPayload is the body of schedule start and interval changes.
type IntervalPayload struct {
	IntervalMinutes int `json:"intervalMinutes"`
}

// GetAll lists the active workspace's backups, newest first.
func (h *BackupHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.GetBackupList(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Create runs a manual backup.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.PerformManualBackup(r.Context())
	if err != nil {
		h.writeError(w, err, "manual backup failed")
		return
	}
	if result == nil {
		// No active workspace.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	evicted := result.Evicted
	if evicted == nil {
		evicted = []models.BackupRecord{}
	}
	writeJSON(w, http.StatusCreated, CaptureResponse{
		Backup:           result.Record,
		Evicted:          evicted,
		EvictionFailures: result.EvictionFailures,
		DurationMs:       result.Duration.Milliseconds(),
	})
}

// DeleteAll removes every backup of the active workspace.
func (h *BackupHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.DeleteAllBackups(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Int("removed", removed).Msg("failed to delete all backups")
		writeJSON(w, statusFor(err), map[string]any{"removed": removed, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// Delete removes one backup.
func (h *BackupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.DeleteBackup(r.Context(), name); err != nil {
		h.writeError(w, err, "failed to delete backup")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore replaces the active workspace's data with a backup. The request
// must carry confirm=true.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "Restore overwrites current data, repeat with confirm=true", http.StatusBadRequest)
		return
	}

	if err := h.service.RestoreBackup(r.Context(), name); err != nil {
		h.writeError(w, err, "failed to restore backup")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Backup restored."})
}

// GetSchedule returns the scheduler status and countdown.
func (h *BackupHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.schedule())
}

// StartSchedule starts automatic backups. Without a body the stored interval is used.
func (h *BackupHandler) StartSchedule(w http.ResponseWriter, r *http.Request) {
	var payload IntervalPayload
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	if payload.IntervalMinutes == 0 {
		bs, err := h.service.Settings(r.Context())
		if err != nil {
			h.writeError(w, err, "failed to load backup settings")
			return
		}
		payload.IntervalMinutes = bs.IntervalMinutes
	}

	if err := h.service.StartAutoBackup(r.Context(), payload.IntervalMinutes); err != nil {
		h.writeError(w, err, "failed to start automatic backups")
		return
	}
	writeJSON(w, http.StatusOK, h.schedule())
}

// StopSchedule stops automatic backups.
func (h *BackupHandler) StopSchedule(w http.ResponseWriter, r *http.Request) {
	h.service.StopAutoBackup()
	writeJSON(w, http.StatusOK, h.schedule())
}

// UpdateInterval restarts the schedule with a new interval.
func (h *BackupHandler) UpdateInterval(w http.ResponseWriter, r *http.Request) {
	var payload IntervalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.RestartWithNewInterval(r.Context(), payload.IntervalMinutes); err != nil {
		h.writeError(w, err, "failed to change backup interval")
		return
	}
	writeJSON(w, http.StatusOK, h.schedule())
}

// GetSettings returns the active workspace's backup settings.
func (h *BackupHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	bs, err := h.service.Settings(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to load backup settings")
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

// UpdateSettings persists new backup settings and applies them to the scheduler.
func (h *BackupHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var bs models.BackupSettings
	if err := json.NewDecoder(r.Body).Decode(&bs); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := h.service.UpdateSettings(r.Context(), bs)
	if err != nil {
		h.writeError(w, err, "failed to update backup settings")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *BackupHandler) schedule() ScheduleResponse {
	st := h.service.Status()
	resp := ScheduleResponse{
		Running:         st.Running,
		IntervalMinutes: int(st.Interval / time.Minute),
		Countdown:       h.service.FormatTimeUntilNextBackup(),
		InFlight:        st.InFlight,
		LastError:       st.LastError,
	}
	if st.Running && !st.NextFireAt.IsZero() {
		next := st.NextFireAt
		resp.NextFireAt = &next
	}
	if !st.LastRunAt.IsZero() {
		last := st.LastRunAt
		resp.LastRunAt = &last
	}
	return resp
}

func (h *BackupHandler) writeError(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg(msg)
	} else {
		h.logger.Debug().Err(err).Int("status", status).Msg(msg)
	}
	http.Error(w, err.Error(), status)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrCaptureInFlight):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidInterval),
		errors.Is(err, models.ErrInvalidMaxCount),
		errors.Is(err, models.ErrInvalidBackupPath),
		errors.Is(err, models.ErrInvalidWorkspaceName):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrBackupNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
