package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigbox/gigbox/internal/app/orchestrator"
	"github.com/gigbox/gigbox/internal/app/playlist"
	"github.com/gigbox/gigbox/internal/app/search"
	"github.com/gigbox/gigbox/internal/infra/bus"
)

type fakePublisher struct{}

func (fakePublisher) Publish(bus.EventType, any) error { return nil }

type fakeSearcher struct{}

func (fakeSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	return []search.Result{{
		TrackID:     "vid-" + query,
		Title:       query,
		Artist:      "Artist",
		DurationSec: 200,
	}}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	manifest := `{
  "themes": [
    {
      "key": "house",
      "name": "House Playlist",
      "file": "house.json",
      "events": [
        {"id": "dinner", "name": "Dinner Set", "file": "dinner.json", "loop": false}
      ]
    }
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "themes.json"), []byte(manifest), 0o644))
	house := `[
  {"search": "song-zero"},
  {"search": "song-one"},
  {"search": "song-two"}
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "house.json"), []byte(house), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dinner.json"), []byte(`[{"search": "dinner-zero"}]`), 0o644))

	lib, err := playlist.NewLibrary(dir, filepath.Join(dir, "state.json"), "house")
	require.NoError(t, err)

	hist := orchestrator.NewHistory(filepath.Join(dir, "history.json"))
	searcher := fakeSearcher{}
	orch := orchestrator.New(lib, hist, searcher, fakePublisher{})

	api := New(orch, lib, hist, searcher, fakePublisher{})
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestQueueAddAndGet(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/queue/add", map[string]any{
		"song":    map[string]any{"title": "Dancing Queen", "artist": "ABBA"},
		"addedBy": "Alex",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	item := body["queueItem"].(map[string]any)
	assert.NotEmpty(t, item["id"])
	assert.Equal(t, "Alex", item["addedBy"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/queue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["queue"], 1)
	assert.Nil(t, body["currentlyPlaying"])
}

func TestQueueAdd_DuplicateConflict(t *testing.T) {
	srv := newTestServer(t)

	payload := map[string]any{"song": map[string]any{"title": "Dancing Queen", "artist": "ABBA"}}
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/queue/add", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/queue/add", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "duplicate_song", body["error"])
	assert.Contains(t, body["message"], "already in the queue")
}

func TestQueueAdd_MissingFields(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/queue/add", map[string]any{
		"song": map[string]any{"artist": "ABBA"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_fields", body["error"])
}

func TestQueueNext_AdvancesIntoFallback(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/queue/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	playing := body["currentlyPlaying"].(map[string]any)
	assert.Equal(t, "song-zero", playing["title"])
	assert.Equal(t, "fallback", playing["source"])
	assert.Equal(t, true, body["fallbackMode"])
}

func TestQueueParkAndUnpark(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/queue/park", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["parked"])

	// Submissions land in the parked queue while parked.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/queue/add", map[string]any{
		"song": map[string]any{"title": "Waterloo", "artist": "ABBA"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["parked"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/queue/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["queueLength"])
	assert.Equal(t, float64(1), body["parkedLength"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/queue/unpark", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["unparked"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/queue/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["queueLength"])
}

func TestQueueRemove(t *testing.T) {
	srv := newTestServer(t)

	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/queue/add", map[string]any{
		"song": map[string]any{"title": "Waterloo", "artist": "ABBA"},
	})
	id := body["queueItem"].(map[string]any)["id"].(string)

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/api/queue/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/queue", nil)
	assert.Empty(t, body["queue"])
}

func TestPlaylistStatusAndJump(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/playlist/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["totalSongs"])
	assert.Equal(t, "house", body["activePlaylist"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/playlist/jump", map[string]any{"index": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/playlist/status", nil)
	assert.Equal(t, float64(2), body["currentIndex"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/playlist/jump", map[string]any{"index": 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid playlist index", body["error"])
}

func TestPlaylistSuppressRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/playlist/suppress", map[string]any{"index": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["suppressedCount"])

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/playlist/suppressed", nil)
	assert.Equal(t, []any{float64(1)}, body["suppressedSongs"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/playlist/unsuppress", map[string]any{"index": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["suppressedCount"])
}

func TestPlaylistEvent_SetAndClear(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/playlist/event", map[string]any{"event": "dinner"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Dinner Set", body["playlistName"])

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/playlist/status", nil)
	assert.Equal(t, "dinner", body["activeEvent"])
	assert.Equal(t, float64(1), body["totalSongs"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/playlist/event", map[string]any{"event": ""})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/playlist/status", nil)
	assert.Nil(t, body["activeEvent"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/playlist/event", map[string]any{"event": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaylistNextResolved(t *testing.T) {
	srv := newTestServer(t)

	_, body := doJSON(t, http.MethodGet, srv.URL+"/api/playlist/next-resolved", nil)
	next := body["nextSong"].(map[string]any)
	assert.Equal(t, "song-zero", next["title"])
	assert.Equal(t, "vid-song-zero", next["trackId"])

	// Peeking does not advance the cursor.
	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/playlist/next-resolved", nil)
	assert.Equal(t, "song-zero", body["nextSong"].(map[string]any)["title"])
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/search?q=abba&limit=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "vid-abba", results[0].(map[string]any)["videoId"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Query parameter is required", body["error"])
}

func TestHistoryEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Playing through two songs logs the first as played.
	doJSON(t, http.MethodPost, srv.URL+"/api/queue/next", nil)
	doJSON(t, http.MethodPost, srv.URL+"/api/queue/next", nil)

	_, body := doJSON(t, http.MethodGet, srv.URL+"/api/history", nil)
	assert.Equal(t, float64(1), body["totalSongs"])
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["fallbackSongs"])

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/history/clear", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = doJSON(t, http.MethodGet, srv.URL+"/api/history", nil)
	assert.Equal(t, float64(0), body["totalSongs"])
}
