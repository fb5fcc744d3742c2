package rest

import (
	"net/http"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/infra/bus"
)

func (a *API) handleHistoryGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"totalSongs": a.history.Len(),
		"history":    a.history.Entries(),
		"summary":    a.history.Summary(),
	})
}

// handleHistoryExport serves the history as a downloadable report.
func (a *API) handleHistoryExport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="play-history.json"`)
	writeJSON(w, http.StatusOK, map[string]any{
		"exportDate":  time.Now().Format("2006-01-02"),
		"totalSongs":  a.history.Len(),
		"summary":     a.history.Summary(),
		"playHistory": a.history.Entries(),
	})
}

func (a *API) handleHistoryClear(w http.ResponseWriter, _ *http.Request) {
	a.history.Clear()
	if err := a.pub.Publish(bus.EventPlayHistoryUpdate, bus.HistoryUpdate{TotalSongs: 0}); err != nil {
		zlog.Warn().Msgf("failed to broadcast history clear: error=%v", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Play history cleared",
	})
}
