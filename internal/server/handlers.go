package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/voyagen/tvlineup/internal/lookup"
	"github.com/voyagen/tvlineup/internal/models"
	"github.com/voyagen/tvlineup/internal/service"
	"github.com/voyagen/tvlineup/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- reconciliation handlers ---

type syncRequest struct {
	Channels []models.Channel `json:"channels"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	for i := range req.Channels {
		if !req.Channels[i].HasID() {
			req.Channels[i].ID = models.NoID
		}
	}

	res, err := s.sync.Sync(r.Context(), r.PathValue("input"), req.Channels)
	if err != nil {
		writeErr(w, r, statusFor(err), fmt.Errorf("sync: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type ingestRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.URL == "" {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}
	if u, err := url.ParseRequestURI(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("url must be a valid http or https URL"))
		return
	}

	rep, err := service.Ingest(r.Context(), s.store, s.sync, req.URL, r.PathValue("input"), s.cfg.UserAgent, s.cfg.Timeout)
	if err != nil {
		writeErr(w, r, statusFor(err), fmt.Errorf("ingest: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// --- channel handlers ---

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels := lookup.ListChannels(r.Context(), s.store)
	if input := r.URL.Query().Get("input_id"); input != "" {
		filtered := make([]models.Channel, 0, len(channels))
		for _, ch := range channels {
			if ch.InputID == input {
				filtered = append(filtered, ch)
			}
		}
		channels = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": channels,
		"total":    len(channels),
	})
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}

	ch, err := s.store.GetChannel(r.Context(), channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, r, http.StatusNotFound, fmt.Errorf("channel %d not found", channelID))
			return
		}
		writeErr(w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, lookup.ListPrograms(r.Context(), s.store, channelID))
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}
	at := s.now()
	if v := r.URL.Query().Get("at"); v != "" {
		at, err = time.Parse(time.RFC3339, v)
		if err != nil {
			writeErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid at: %s (use RFC 3339)", v))
			return
		}
	}

	sched := lookup.NowPlaying(r.Context(), s.store, channelID, at)
	if sched.Current == nil && sched.Next == nil {
		writeErr(w, r, http.StatusNotFound, fmt.Errorf("nothing scheduled on channel %d after %s", channelID, at.Format(time.RFC3339)))
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleChannelLogo(w http.ResponseWriter, r *http.Request) {
	channelID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}

	content, contentType, err := s.logos.GetChannelLogo(r.Context(), channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, r, http.StatusNotFound, fmt.Errorf("no logo for channel %d", channelID))
			return
		}
		writeErr(w, r, http.StatusInternalServerError, err)
		return
	}
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
