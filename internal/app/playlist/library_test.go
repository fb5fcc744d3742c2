package playlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestLibrary(t *testing.T) (dir, stateFile string) {
	t.Helper()
	dir = t.TempDir()

	manifest := `{
  "themes": [
    {
      "key": "house",
      "name": "House Playlist",
      "file": "house.json",
      "events": [
        {"id": "dinner", "name": "Dinner Set", "file": "dinner.json", "loop": false, "allowUserInject": true, "dedupeUserInject": true},
        {"id": "dance", "name": "Dance Floor", "file": "dance.json", "loop": true, "injectToFallback": true}
      ]
    }
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "themes.json"), []byte(manifest), 0o644))

	house := `[
  {"search": "Earth Wind & Fire September", "title": "September", "artist": "Earth Wind & Fire"},
  {"search": "ABBA Dancing Queen", "title": "Dancing Queen", "artist": "ABBA"},
  {"search": "Daft Punk Get Lucky", "title": "Get Lucky", "artist": "Daft Punk"}
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "house.json"), []byte(house), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dinner.json"), []byte(`[{"search": "Norah Jones Sunrise"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dance.json"), []byte(`[]`), 0o644))

	return dir, filepath.Join(dir, "state.json")
}

func TestNewLibrary_DefaultSelection(t *testing.T) {
	dir, stateFile := writeTestLibrary(t)

	lib, err := NewLibrary(dir, stateFile, "house")
	require.NoError(t, err)

	ctx := lib.Active()
	assert.Equal(t, "house", ctx.Key)
	assert.True(t, ctx.Loop, "house playlists always loop")
	assert.False(t, ctx.IsEvent)
}

func TestLibrary_SetActiveEvent(t *testing.T) {
	dir, stateFile := writeTestLibrary(t)

	lib, err := NewLibrary(dir, stateFile, "house")
	require.NoError(t, err)

	require.NoError(t, lib.SetActiveEvent("dinner"))
	ctx := lib.Active()
	assert.Equal(t, "dinner", ctx.Key)
	assert.False(t, ctx.Loop)
	assert.True(t, ctx.IsEvent)

	// The theme playlist stays reachable for exhaustion fallthrough.
	assert.Equal(t, "house", lib.ThemeContext().Key)

	assert.ErrorIs(t, lib.SetActiveEvent("no-such-event"), ErrUnknownEvent)
	assert.ErrorIs(t, lib.SwitchPlaylist("no-such-theme"), ErrUnknownPlaylist)
}

func TestLibrary_SelectionSurvivesRestart(t *testing.T) {
	dir, stateFile := writeTestLibrary(t)

	lib, err := NewLibrary(dir, stateFile, "house")
	require.NoError(t, err)
	require.NoError(t, lib.SetActiveEvent("dance"))

	reopened, err := NewLibrary(dir, stateFile, "house")
	require.NoError(t, err)

	ctx := reopened.Active()
	assert.Equal(t, "dance", ctx.Key)
	assert.True(t, ctx.IsEvent)
}

func TestLibrary_ClearActiveEvent(t *testing.T) {
	dir, stateFile := writeTestLibrary(t)

	lib, err := NewLibrary(dir, stateFile, "house")
	require.NoError(t, err)
	require.NoError(t, lib.SetActiveEvent("dinner"))

	lib.ClearActiveEvent()
	assert.Equal(t, "house", lib.Active().Key)
	_, ok := lib.ActiveEvent()
	assert.False(t, ok)
}

func TestLibrary_AppendAndContains(t *testing.T) {
	dir, stateFile := writeTestLibrary(t)

	lib, err := NewLibrary(dir, stateFile, "house")
	require.NoError(t, err)

	entry := Entry{Search: "Queen Don't Stop Me Now", Title: "Don't Stop Me Now", Artist: "Queen"}

	found, err := lib.ContainsEntry("dance.json", entry)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, lib.AppendEntry("dance.json", entry))

	found, err = lib.ContainsEntry("dance.json", Entry{Search: "x", Title: "DON'T STOP ME NOW", Artist: "queen"})
	require.NoError(t, err)
	assert.True(t, found, "dedupe matches case-insensitively on title and artist")

	// The file itself was rewritten, not just the cache.
	raw, err := os.ReadFile(filepath.Join(dir, "dance.json"))
	require.NoError(t, err)
	var onDisk []Entry
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	require.Len(t, onDisk, 1)
	assert.Equal(t, "Queen Don't Stop Me Now", onDisk[0].Search)
}

func TestLibrary_MoveEntry(t *testing.T) {
	dir, stateFile := writeTestLibrary(t)

	lib, err := NewLibrary(dir, stateFile, "house")
	require.NoError(t, err)

	require.NoError(t, lib.MoveEntry("house.json", 0, 2))

	entries, err := lib.Entries("house.json")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Dancing Queen", entries[0].Title)
	assert.Equal(t, "Get Lucky", entries[1].Title)
	assert.Equal(t, "September", entries[2].Title)

	assert.Error(t, lib.MoveEntry("house.json", 0, 9))
}

func TestNewLibrary_MissingManifest(t *testing.T) {
	_, err := NewLibrary(t.TempDir(), "state.json", "house")
	assert.Error(t, err)
}
