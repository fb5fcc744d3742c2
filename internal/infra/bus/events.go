// Package bus provides the NATS-backed event bus connecting the server,
// the audio player and web clients.
package bus

import (
	"github.com/gigbox/gigbox/internal/domain/song"
)

// EventType enumerates event categories carried on the bus.
type EventType string

const (
	// Orchestrator -> clients
	EventQueueUpdated       EventType = "queueUpdated"
	EventNowPlaying         EventType = "nowPlaying"
	EventParkedQueueUpdated EventType = "parkedQueueUpdated"
	EventQueueParkChanged   EventType = "queueParkChanged"
	EventFallbackMode       EventType = "fallbackMode"
	EventPlayHistoryUpdate  EventType = "playHistoryUpdate"
	EventPlaylistSwitch     EventType = "playlistSwitch"

	// Clients/orchestrator -> bridge
	EventPlayCommand      EventType = "playCommand"
	EventPauseCommand     EventType = "pauseCommand"
	EventResumeCommand    EventType = "resumeCommand"
	EventStopCommand      EventType = "stopCommand"
	EventSkipCommand      EventType = "skipCommand"
	EventVolumeCommand    EventType = "volumeCommand"
	EventFadeCommand      EventType = "fadeCommand"
	EventTestAudioCommand EventType = "testAudioCommand"

	// Bridge -> orchestrator/clients
	EventAudioServiceStatus EventType = "audioServiceStatus"
	EventSongEnded          EventType = "songEnded"
	EventPlaybackError      EventType = "playbackError"
)

// QueueUpdate carries the full queue snapshot.
type QueueUpdate struct {
	Queue []song.Song `json:"queue"`
}

// NowPlaying carries the current song, or nil when playback stops.
type NowPlaying struct {
	Song   *song.Song `json:"song"`
	Origin string     `json:"origin,omitempty"` // set to "audio-player" by the bridge's own echo
}

// ParkedQueueUpdate carries the parked queue snapshot.
type ParkedQueueUpdate struct {
	ParkedQueue []song.Song `json:"parkedQueue"`
	ParkedCount int         `json:"parkedCount"`
}

// ParkChange announces a change of the submission gate.
type ParkChange struct {
	Parked      bool   `json:"parked"`
	Message     string `json:"message"`
	ParkedCount int    `json:"parkedCount"`
}

// FallbackMode announces entering/leaving fallback playback.
type FallbackMode struct {
	Active bool       `json:"active"`
	Song   *song.Song `json:"song,omitempty"`
}

// HistoryUpdate announces a play-history append.
type HistoryUpdate struct {
	TotalSongs int `json:"totalSongs"`
}

// PlaylistSwitch announces an active playlist/event change.
type PlaylistSwitch struct {
	Playlist string `json:"playlist"`
	Event    string `json:"event,omitempty"`
	Message  string `json:"message"`
}

// PlayRequest asks the bridge to start a specific song.
type PlayRequest struct {
	Song *song.Song `json:"song"`
}

// VolumeRequest asks the bridge to change volume (0.0 to 1.0).
type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

// FadeRequest asks the bridge to fade out and advance.
type FadeRequest struct {
	DurationMs int `json:"durationMs,omitempty"` // default 2000
}

// Status is the playback session snapshot the bridge publishes.
type Status struct {
	Service           string     `json:"service"`
	IsPlaying         bool       `json:"isPlaying"`
	IsPaused          bool       `json:"isPaused"`
	IsBuffering       bool       `json:"isBuffering"`
	BufferingProgress string     `json:"bufferingProgress,omitempty"`
	CurrentSong       *song.Song `json:"currentSong"`
	Volume            float64    `json:"volume"`
	Position          int        `json:"position"` // elapsed seconds
	Duration          int        `json:"duration"` // total seconds, 0 if unknown
	PausedPosition    int        `json:"pausedPosition,omitempty"`
	Timestamp         int64      `json:"timestamp"`
}

// SongEnded announces a natural end of track detected by the bridge.
type SongEnded struct {
	Song   *song.Song `json:"song"`
	Source string     `json:"source"`
}

// PlaybackError announces an asynchronous playback failure.
type PlaybackError struct {
	Error string     `json:"error"`
	Song  *song.Song `json:"song,omitempty"`
}
