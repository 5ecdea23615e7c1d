package server

import (
	"context"
	"net/http"
	"time"

	"VoidFM/catalog"
	"VoidFM/config"
	"VoidFM/core/player"
	"VoidFM/core/visual"
	"VoidFM/logger"
	"VoidFM/model"

	"github.com/gorilla/mux"
)

// Server HTTP API + 播放器 WebSocket
type Server struct {
	cfg     *config.Config
	catalog catalog.Provider
	player  *player.Player
	accent  *visual.Resolver
	hub     *PlayerHub
	router  *mux.Router
}

// New wires the routes. The hub is not running until Run (or Hub().Run).
func New(cfg *config.Config, provider catalog.Provider, p *player.Player, accent *visual.Resolver) *Server {
	s := &Server{
		cfg:     cfg,
		catalog: provider,
		player:  p,
		accent:  accent,
	}
	s.hub = NewPlayerHub(p, s.accentHex, cfg.BroadcastRate)
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *PlayerHub {
	return s.hub
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// 目录（CMS）
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rituals", s.handleRituals).Methods(http.MethodGet)
	api.HandleFunc("/rituals/{slug}", s.handleRitual).Methods(http.MethodGet)
	api.HandleFunc("/lore", s.handleLore).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleSettings).Methods(http.MethodGet)
	api.HandleFunc("/pages/{pageId}", s.handlePage).Methods(http.MethodGet)

	// 播放器
	api.HandleFunc("/player", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/player/select/{index:[0-9]+}", s.handleSelect).Methods(http.MethodPost)
	api.HandleFunc("/player/toggle", s.handleToggle).Methods(http.MethodPost)
	api.HandleFunc("/player/next", s.handleNext).Methods(http.MethodPost)
	api.HandleFunc("/player/previous", s.handlePrevious).Methods(http.MethodPost)
	api.HandleFunc("/player/seek", s.handleSeek).Methods(http.MethodPost)
	api.HandleFunc("/player/mode", s.handleMode).Methods(http.MethodPost)
	api.HandleFunc("/player/visualizer.png", s.handleVisualizer).Methods(http.MethodGet)

	router.HandleFunc("/ws/player", s.hub.ServeWS)
	return router
}

// corsMiddleware 添加 CORS 头
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) accentHex(ctx context.Context, track *model.Ritual) string {
	if s.accent == nil || track == nil {
		return ""
	}
	return s.accent.Resolve(ctx, track).Hex()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.HTTPAddr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", s.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
