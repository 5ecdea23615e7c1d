package server

import (
	"context"
	"encoding/json"
	"net/http"

	"VoidFM/catalog"
	"VoidFM/logger"
	"VoidFM/model"

	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleRituals 列出全部仪式，目录不可用时返回空数组
func (s *Server) handleRituals(w http.ResponseWriter, r *http.Request) {
	rituals := catalog.SafeFetch(r.Context(), "rituals", s.catalog.Rituals, []model.Ritual{})
	if rituals == nil {
		rituals = []model.Ritual{}
	}
	writeJSON(w, http.StatusOK, rituals)
}

func (s *Server) handleRitual(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	ritual := catalog.SafeFetch(r.Context(), "ritualBySlug", func(ctx context.Context) (*model.Ritual, error) {
		return s.catalog.RitualBySlug(ctx, slug)
	}, nil)
	if ritual == nil {
		writeError(w, http.StatusNotFound, "ritual not found")
		return
	}
	writeJSON(w, http.StatusOK, ritual)
}

func (s *Server) handleLore(w http.ResponseWriter, r *http.Request) {
	nodes := catalog.SafeFetch(r.Context(), "lore", s.catalog.LoreNodes, []model.LoreNode{})
	if nodes == nil {
		nodes = []model.LoreNode{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	settings := catalog.SafeFetch(r.Context(), "siteSettings", s.catalog.SiteSettings, nil)
	if settings == nil {
		// 页面使用内置文案
		settings = &model.SiteSettings{}
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	pageID := mux.Vars(r)["pageId"]
	page := catalog.SafeFetch(r.Context(), "pageByPageId", func(ctx context.Context) (*model.PageContent, error) {
		return s.catalog.Page(ctx, pageID)
	}, nil)
	if page == nil {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
