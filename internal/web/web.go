// Package web serves the cached activity graph over HTTP.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"activitygraph/internal/cache"
	"activitygraph/internal/config"
	"activitygraph/internal/feed"
	appLog "activitygraph/internal/log"
	"activitygraph/internal/model"
)

// indexPaths are the request paths that serve the cached HTML.
var indexPaths = []string{"/", "/index.html", "/index.htm", ""}

const internalErrorBody = "500 Internal Server Error\nSorry, the server encountered an unexpected error."

// EventLister supplies the raw events for endpoints that need more than
// the pre-rendered artifacts (the iCalendar feed).
type EventLister func(ctx context.Context) ([]model.Event, error)

// Server answers requests from the coordinator's cached snapshot, so a
// slow regeneration never blocks responses that can be served stale.
type Server struct {
	cfg        *config.Config
	coord      *cache.Coordinator
	listEvents EventLister
	mux        *http.ServeMux

	// In-memory cache for the /activity.ics feed, which is built from
	// raw events rather than from the rendered snapshot.
	feedMu    sync.RWMutex
	feedCache *feedCache
}

type feedCache struct {
	body      string
	updatedAt time.Time
}

// NewServer constructs a Server. listEvents may be nil, in which case
// /activity.ics responds 404.
func NewServer(cfg *config.Config, coord *cache.Coordinator, listEvents EventLister) *Server {
	s := &Server{
		cfg:        cfg,
		coord:      coord,
		listEvents: listEvents,
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/activity-graph.css", s.handleCSS)
	s.mux.HandleFunc("/activity.ics", s.handleFeed)
	s.mux.HandleFunc("/health", s.handleHealth)
	if s.cfg.Capture.Enabled {
		s.mux.HandleFunc("/preview.png", s.handlePreview)
	}
}

// handleIndex serves the cached HTML for the index paths and 404s
// everything else that fell through the mux.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !isIndexPath(r.URL.Path) {
		http.NotFound(w, r)
		return
	}
	snap, err := s.coord.Get(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(snap.HTML))
}

func (s *Server) handleCSS(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coord.Get(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write([]byte(snap.CSS))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

// handleFeed serves the iCalendar subscription. The feed is rebuilt
// from raw events at most once per TTL; calendar apps poll these feeds
// rarely, so a short server-side cache is plenty.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if s.listEvents == nil {
		http.NotFound(w, r)
		return
	}

	const feedTTL = 30 * time.Second
	now := time.Now()

	s.feedMu.RLock()
	fc := s.feedCache
	s.feedMu.RUnlock()
	if fc != nil && now.Sub(fc.updatedAt) < feedTTL {
		writeCalendar(w, fc.body)
		return
	}

	events, err := s.listEvents(r.Context())
	if err != nil {
		appLog.Error("feed: listing events failed", err)
		s.internalError(w, err)
		return
	}
	body := feed.Build(events, now)

	s.feedMu.Lock()
	s.feedCache = &feedCache{body: body, updatedAt: time.Now()}
	s.feedMu.Unlock()

	writeCalendar(w, body)
}

// handlePreview serves the last captured PNG from disk. http.ServeFile
// answers 404 for a missing file on its own.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Capture.OutputPath)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	appLog.Error("request failed", err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(internalErrorBody))
}

func writeCalendar(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func isIndexPath(path string) bool {
	for _, p := range indexPaths {
		if path == p {
			return true
		}
	}
	return false
}
