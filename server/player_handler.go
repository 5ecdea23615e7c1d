package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"VoidFM/core/analysis"
	"VoidFM/core/player"
	"VoidFM/core/visual"
	"VoidFM/logger"

	"github.com/gorilla/mux"
)

const (
	defaultVisualizerSize = 480
	minVisualizerSize     = 64
	maxVisualizerSize     = 2048
)

// PlayerView 快照加上当前曲目的强调色
type PlayerView struct {
	player.Snapshot
	Accent string `json:"accent,omitempty"`
}

type seekRequest struct {
	Time *float64 `json:"time"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) view(r *http.Request) PlayerView {
	snap := s.player.Snapshot()
	return PlayerView{Snapshot: snap, Accent: s.accentHex(r.Context(), snap.Track)}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view(r))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	if err := s.player.SelectTrack(r.Context(), index); err != nil {
		if errors.Is(err, player.ErrNoTrack) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.view(r))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.player.TogglePlay(r.Context())
	writeJSON(w, http.StatusOK, s.view(r))
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.player.Next(r.Context())
	writeJSON(w, http.StatusOK, s.view(r))
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.player.Previous(r.Context())
	writeJSON(w, http.StatusOK, s.view(r))
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Time == nil || math.IsNaN(*req.Time) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.player.Seek(*req.Time)
	writeJSON(w, http.StatusOK, s.view(r))
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := analysis.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.player.SetVisualizerMode(mode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.view(r))
}

// handleVisualizer 渲染当前帧
func (s *Server) handleVisualizer(w http.ResponseWriter, r *http.Request) {
	size := defaultVisualizerSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid size")
			return
		}
		size = n
	}
	if size < minVisualizerSize {
		size = minVisualizerSize
	}
	if size > maxVisualizerSize {
		size = maxVisualizerSize
	}

	snap := s.player.Snapshot()
	accent := visual.Crimson
	if s.accent != nil && snap.Track != nil {
		accent = s.accent.Resolve(r.Context(), snap.Track)
	}
	data, err := visual.RenderPNG(snap.Samples, accent, size)
	if err != nil {
		logger.Error("failed to render visualizer", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}
