package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// SessionController is the part of the session controller the API exposes.
type SessionController interface {
	Status() session.Status
	Current() (*session.Session, bool)
	Stop()
}

// SessionHandler serves the session status, the live ledger and stop requests.
type SessionHandler struct {
	controller SessionController
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(controller SessionController) *SessionHandler {
	return &SessionHandler{controller: controller}
}

// AttendanceResponse is the live ledger of the recording in progress.
type AttendanceResponse struct {
	SessionID string                    `json:"session_id"`
	Counts    map[attendance.Status]int `json:"counts"`
	Entries   []attendance.Entry        `json:"entries"`
}

// Status returns the controller state.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.Status())
}

// Attendance returns a snapshot of the ledger while recording.
func (h *SessionHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.controller.Current()
	if !ok {
		respondError(w, http.StatusNotFound, "no recording in progress")
		return
	}
	respondJSON(w, http.StatusOK, AttendanceResponse{
		SessionID: sess.ID,
		Counts:    sess.Ledger.Counts(),
		Entries:   sess.Ledger.Snapshot(),
	})
}

// Stop cancels the active run. The report is still written.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	st := h.controller.Status()
	if st.State == session.StateIdle {
		respondError(w, http.StatusConflict, "no session running")
		return
	}
	log.Printf("Stop requested from %s", sanitizeForLog(r.RemoteAddr))
	h.controller.Stop()
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}
