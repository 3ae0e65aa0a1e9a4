package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"tubewatch/internal/events"
	"tubewatch/internal/jobs"
	"tubewatch/internal/logging"
	"tubewatch/internal/media"
	"tubewatch/internal/store"
)

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	DatabasePath string          `json:"databasePath"`
	Sessions     int             `json:"sessions"`
	State        events.Snapshot `json:"state"`
}

// VideosResponse is the /api/videos payload.
type VideosResponse struct {
	Videos []*store.Video `json:"videos"`
}

// ChannelsResponse is the /api/channels payload.
type ChannelsResponse struct {
	Channels []store.Channel `json:"channels"`
}

// JobResponse acknowledges an accepted job.
type JobResponse struct {
	VideoID string `json:"videoId"`
	Started bool   `json:"started"`
}

type jobRequest struct {
	ID string `json:"id"`
}

type ignoreRequest struct {
	ID      string `json:"id"`
	Ignored bool   `json:"ignored"`
}

type channelRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Running:      true,
		PID:          os.Getpid(),
		DatabasePath: s.store.Path(),
		Sessions:     s.hub.SessionCount(),
		State:        s.orch.Snapshot(),
	})
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	videos, err := s.store.ListVideos(r.Context(), strings.TrimSpace(r.URL.Query().Get("channel")))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, VideosResponse{Videos: videos})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.handleStartJob(w, r, s.orch.StartDownload)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	s.handleStartJob(w, r, s.orch.StartSummarize)
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request, start func(string) (string, error)) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := start(req.ID)
	switch {
	case errors.Is(err, media.ErrUnsupportedInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jobs.ErrAlreadyRunning):
		s.writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusAccepted, JobResponse{VideoID: id, Started: true})
	}
}

func (s *Server) handleIgnore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ignoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	video, err := s.orch.Ignore(r.Context(), req.ID, req.Ignored)
	switch {
	case errors.Is(err, media.ErrUnsupportedInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "video not found")
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, video)
	}
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		channels, err := s.store.ListChannels(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, ChannelsResponse{Channels: channels})
	case http.MethodPost:
		var req channelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			s.writeError(w, http.StatusBadRequest, "channel name is required")
			return
		}
		if err := s.store.AddChannel(r.Context(), name); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]string{"name": name})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/channels/")
	if name == "" || strings.Contains(name, "/") {
		s.writeError(w, http.StatusNotFound, "channel not found")
		return
	}
	if err := s.store.RemoveChannel(r.Context(), name); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
