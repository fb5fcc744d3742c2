// Package rest exposes the orchestrator over HTTP. Guests and the DJ
// console hit the same surface; the bridge uses a handful of endpoints for
// advancing and pre-buffering.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/app/orchestrator"
	"github.com/gigbox/gigbox/internal/app/playlist"
	"github.com/gigbox/gigbox/internal/app/search"
	"github.com/gigbox/gigbox/internal/infra/bus"
)

// Publisher is the outbound side of the event bus.
type Publisher interface {
	Publish(eventType bus.EventType, payload any) error
}

// Searcher resolves free-text queries to candidate tracks.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// API bundles the HTTP handlers.
type API struct {
	orch    *orchestrator.Orchestrator
	library *playlist.Library
	history *orchestrator.History
	search  Searcher
	pub     Publisher
}

// New creates the API.
func New(orch *orchestrator.Orchestrator, lib *playlist.Library, hist *orchestrator.History, searcher Searcher, pub Publisher) *API {
	return &API{orch: orch, library: lib, history: hist, search: searcher, pub: pub}
}

// Router builds the chi router with all routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	a.Routes(r)
	return r
}

// Routes mounts the API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Get("/api/health", a.handleHealth)
	r.Get("/api/search", a.handleSearch)

	r.Route("/api/queue", func(r chi.Router) {
		r.Get("/", a.handleQueueGet)
		r.Get("/status", a.handleQueueStatus)
		r.Post("/add", a.handleQueueAdd)
		r.Post("/reorder", a.handleQueueReorder)
		r.Post("/clear", a.handleQueueClear)
		r.Post("/park", a.handleQueuePark)
		r.Post("/park-current", a.handleQueueParkCurrent)
		r.Post("/unpark", a.handleQueueUnpark)
		r.Post("/next", a.handleQueueNext)
		r.Delete("/{id}", a.handleQueueRemove)
	})

	r.Route("/api/playlist", func(r chi.Router) {
		r.Get("/status", a.handlePlaylistStatus)
		r.Get("/full", a.handlePlaylistFull)
		r.Get("/next-resolved", a.handlePlaylistNextResolved)
		r.Get("/suppressed", a.handlePlaylistSuppressed)
		r.Get("/themes", a.handlePlaylistThemes)
		r.Post("/jump", a.handlePlaylistJump)
		r.Post("/switch", a.handlePlaylistSwitch)
		r.Post("/event", a.handlePlaylistEvent)
		r.Post("/suppress", a.handlePlaylistSuppress)
		r.Post("/unsuppress", a.handlePlaylistUnsuppress)
		r.Post("/reset", a.handlePlaylistReset)
		r.Post("/move", a.handlePlaylistMove)
	})

	r.Route("/api/history", func(r chi.Router) {
		r.Get("/", a.handleHistoryGet)
		r.Get("/export", a.handleHistoryExport)
		r.Post("/clear", a.handleHistoryClear)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := a.search.Search(r.Context(), query, limit)
	if err != nil {
		zlog.Error().Msgf("search failed: query=%q error=%v", query, err)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
