package authority

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// Server exposes a Store over the review HTTP API:
//
//	GET  /api/session/{id}
//	POST /api/session/{id}/apply     {"change_id": "..."}
//	POST /api/session/{id}/unapply   {"change_id": "..."}
//	POST /api/session/{id}/complete
//	POST /api/session/{id}/cancel
type Server struct {
	store  *Store
	logger *slog.Logger
}

// NewServer returns a server backed by store.
func NewServer(store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{store: store, logger: logger}
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/session/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/session/{id}/apply", s.handleChange(true))
	mux.HandleFunc("POST /api/session/{id}/unapply", s.handleChange(false))
	mux.HandleFunc("POST /api/session/{id}/complete", s.handleComplete)
	mux.HandleFunc("POST /api/session/{id}/cancel", s.handleCancel)
	return mux
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.store.LoadSession(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorReply{Error: err.Error()})
		return
	}
	applied := snap.AppliedChanges
	writeJSON(w, http.StatusOK, sessionReply{
		ID:             snap.Session.ID,
		RepositoryName: snap.Session.RepositoryName,
		Status:         snap.Session.Status,
		Files:          snap.Session.Files,
		AppliedChanges: &applied,
	})
}

func (s *Server) handleChange(apply bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var req changeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChangeID == "" {
			writeJSON(w, http.StatusBadRequest, errorReply{Error: "missing change_id"})
			return
		}

		var err error
		verb := "applied"
		if apply {
			err = s.store.ApplyChange(r.Context(), id, req.ChangeID)
		} else {
			verb = "unapplied"
			err = s.store.UnapplyChange(r.Context(), id, req.ChangeID)
		}
		switch {
		case err == nil:
			s.logger.Info("change "+verb, "session", id, "change", req.ChangeID)
			writeJSON(w, http.StatusOK, succeeded("Change "+verb))
		case errors.Is(err, ErrSessionNotFound):
			writeJSON(w, http.StatusNotFound, errorReply{Error: err.Error()})
		default:
			writeJSON(w, http.StatusOK, failed(err.Error()))
		}
	}
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	applied, err := s.store.CompleteSession(r.Context(), id)
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.logger.Info("session completed", "session", id, "applied", len(applied))
	reply := succeeded("Session completed")
	reply.AppliedChanges = applied
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.CancelSession(r.Context(), id); err != nil {
		s.writeActionError(w, err)
		return
	}
	s.logger.Info("session cancelled", "session", id)
	writeJSON(w, http.StatusOK, succeeded("Session cancelled"))
}

func (s *Server) writeActionError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorReply{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, failed(err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
