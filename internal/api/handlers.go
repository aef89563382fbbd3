package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tallyhq/tally/pkg/calc"
	"github.com/tallyhq/tally/pkg/session"
)

// version is set via -ldflags at build time
var version = "dev"

// SetVersion sets the version string (called from main).
func SetVersion(v string) {
	version = v
}

// Response types

// HealthResponse is the response for /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// VersionResponse is the response for /version.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StateBody is the raw calculator state in API responses.
type StateBody struct {
	Current   string `json:"current"`
	Previous  string `json:"previous"`
	Operation string `json:"operation,omitempty"`
	Overwrite bool   `json:"overwrite"`
}

// SessionResponse represents a session in API responses. History and
// Value are the two display projections a front-end renders.
type SessionResponse struct {
	ID      string    `json:"id"`
	History string    `json:"history"`
	Value   string    `json:"value"`
	State   StateBody `json:"state"`
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	ID string `json:"id,omitempty"`
}

// EventRequest is the request body for a single calculator event.
type EventRequest struct {
	// Type is one of digit, operation, clear, delete, evaluate.
	Type string `json:"type"`
	// Value carries the digit or operator symbol where required.
	Value string `json:"value,omitempty"`
}

// KeysRequest is the request body for a keystroke sequence.
type KeysRequest struct {
	Keys string `json:"keys"`
}

func sessionResponse(id string, st calc.State) SessionResponse {
	return SessionResponse{
		ID:      id,
		History: st.HistoryLine(),
		Value:   st.ValueLine(),
		State: StateBody{
			Current:   st.Current,
			Previous:  st.Previous,
			Operation: st.Op.String(),
			Overwrite: st.Overwrite,
		},
	}
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version: version,
		Service: "tally",
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.store.List()
	response := make([]SessionResponse, 0, len(ids))

	for _, id := range ids {
		if sess, ok := s.store.Lookup(id); ok {
			response = append(response, sessionResponse(id, sess.State()))
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var sess session.Session
	var err error
	status := http.StatusCreated
	if req.ID != "" {
		// Re-posting an existing id returns that session instead of
		// creating one.
		if existing, ok := s.store.Lookup(req.ID); ok {
			sess = existing
			status = http.StatusOK
		} else {
			sess, err = s.store.Get(req.ID)
		}
	} else {
		sess, err = s.store.Create()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, status, sessionResponse(sess.ID(), sess.State()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, ok := s.store.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(id, sess.State()))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, ok := s.store.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ev, err := eventFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st := sess.Apply(ev)
	_ = sess.Save()
	writeJSON(w, http.StatusOK, sessionResponse(id, st))
}

func (s *Server) handlePostKeys(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, ok := s.store.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req KeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Keys == "" {
		writeError(w, http.StatusBadRequest, "Keys is required")
		return
	}

	st, err := sess.ApplyKeys(req.Keys)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_ = sess.Save()

	writeJSON(w, http.StatusOK, sessionResponse(id, st))
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, ok := s.store.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	st := sess.Reset()
	_ = sess.Save()
	writeJSON(w, http.StatusOK, sessionResponse(id, st))
}

// eventFromRequest maps an EventRequest to a calculator event.
func eventFromRequest(req EventRequest) (calc.Event, error) {
	switch req.Type {
	case "digit":
		runes := []rune(req.Value)
		if len(runes) != 1 {
			return calc.Event{}, errors.New("digit event requires a single character value")
		}
		d := runes[0]
		if !((d >= '0' && d <= '9') || d == '.') {
			return calc.Event{}, errors.New("digit value must be 0-9 or .")
		}
		return calc.Digit(d), nil
	case "operation":
		op, ok := calc.ParseOp(req.Value)
		if !ok {
			return calc.Event{}, errors.New("operation value must be one of + - × ÷ (or * /)")
		}
		return calc.Operation(op), nil
	case "clear":
		return calc.Clear(), nil
	case "delete":
		return calc.Delete(), nil
	case "evaluate":
		return calc.Equals(), nil
	default:
		return calc.Event{}, errors.New("unknown event type: " + req.Type)
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
