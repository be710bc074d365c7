package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/profile"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/sshbin"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/sshclient"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/supervisor"
)

type errorBody struct {
	Error string `json:"error"`
}

type startSessionRequest struct {
	Profile string `json:"profile"`
	// Password is accepted in the request body for password-auth profiles;
	// it is held in memory for the session and never persisted.
	Password string `json:"password,omitempty"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
}

type stopAllResponse struct {
	Stopped int `json:"stopped"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.svc.ListProfiles()
	if err != nil {
		writeError(w, err)
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetProfile(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	p := model.DefaultProfile()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed profile body"})
		return
	}
	created, err := s.svc.CreateProfile(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProfile(chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.svc.ListSessions()
	if sessions == nil {
		sessions = []model.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Profile == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "body must include profile"})
		return
	}
	id, err := s.svc.StartSessionWithPassword(req.Profile, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, startSessionResponse{SessionID: id})
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.StopSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stopAllResponse{Stopped: s.svc.StopAllSessions()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, profile.ErrNotFound), errors.Is(err, supervisor.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, profile.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, profile.ErrInvalid), errors.Is(err, sshclient.ErrInvalidArgument):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, sshbin.ErrSSHNotFound):
		status = http.StatusFailedDependency
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
