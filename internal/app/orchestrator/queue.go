package orchestrator

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/gigbox/gigbox/internal/app/filter"
	"github.com/gigbox/gigbox/internal/domain/song"
	"github.com/gigbox/gigbox/internal/infra/bus"
)

// ErrQueueIndexOutOfRange is returned by bounds-validated queue operations.
var ErrQueueIndexOutOfRange = errors.New("queue index out of range")

// AddOutcome describes where an accepted request ended up, or why it was
// rejected. A non-nil Rejection means no state was mutated.
type AddOutcome struct {
	Song      *song.Song
	Parked    bool
	ParkCount int
	Rejection *filter.Result
}

// AddRequest validates a guest request and appends it to the queue, or to
// the parked queue while submissions are parked. Mic breaks bypass parking
// so the DJ can always inject an announcement slot.
func (o *Orchestrator) AddRequest(req *song.Song) AddOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.AddedBy == "" {
		req.AddedBy = "Anonymous"
	}
	if req.AddedAt.IsZero() {
		req.AddedAt = now()
	}
	if req.Source == "" {
		if req.TrackID != "" {
			req.Source = song.SourceYouTube
		} else {
			req.Source = song.SourceUser
		}
	}

	snap := filter.Snapshot{Queue: o.queue, Parked: o.parked, Current: o.current}
	if result := o.filters.Execute(req, snap); !result.Accepted {
		return AddOutcome{Rejection: &result}
	}

	if o.queueParked && req.Source != song.SourceMicBreak {
		o.parked = append(o.parked, *req)
		o.publishParkedQueueUpdatedLocked()
		return AddOutcome{Song: req, Parked: true, ParkCount: len(o.parked)}
	}

	o.queue = append(o.queue, *req)
	o.publishQueueUpdatedLocked()
	return AddOutcome{Song: req}
}

// Reorder moves the queue item at oldIndex to newIndex.
func (o *Orchestrator) Reorder(oldIndex, newIndex int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if oldIndex < 0 || oldIndex >= len(o.queue) || newIndex < 0 || newIndex >= len(o.queue) {
		return errors.Wrapf(ErrQueueIndexOutOfRange, "old=%d new=%d length=%d", oldIndex, newIndex, len(o.queue))
	}
	if oldIndex == newIndex {
		return nil
	}

	moved := o.queue[oldIndex]
	o.queue = append(o.queue[:oldIndex], o.queue[oldIndex+1:]...)
	o.queue = append(o.queue[:newIndex], append([]song.Song{moved}, o.queue[newIndex:]...)...)

	o.publishQueueUpdatedLocked()
	return nil
}

// Remove deletes the queue item with the given id. Removing an unknown id
// is a no-op.
func (o *Orchestrator) Remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	kept := o.queue[:0]
	for _, item := range o.queue {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	o.queue = kept
	o.publishQueueUpdatedLocked()
}

// Clear empties the queue.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.queue = nil
	o.publishQueueUpdatedLocked()
}

// Park gates new submissions into the parked queue so the active playlist
// plays through.
func (o *Orchestrator) Park() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.queueParked = true
	o.publish(bus.EventQueueParkChanged, bus.ParkChange{
		Parked:      true,
		Message:     "New songs will be parked - playlist will play through",
		ParkedCount: len(o.parked),
	})
	return len(o.parked)
}

// ParkCurrent parks submissions and additionally moves every queued song
// into the parked queue, preserving order.
func (o *Orchestrator) ParkCurrent() (moved, parkedCount int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	moved = len(o.queue)
	o.parked = append(o.parked, o.queue...)
	o.queue = nil
	o.queueParked = true

	o.publish(bus.EventQueueParkChanged, bus.ParkChange{
		Parked:      true,
		Message:     fmt.Sprintf("%d songs moved to parking - playlist will play through", moved),
		ParkedCount: len(o.parked),
	})
	o.publishQueueUpdatedLocked()
	o.publishParkedQueueUpdatedLocked()
	return moved, len(o.parked)
}

// Unpark moves every parked song back to the main queue, preserving order,
// and reopens submissions.
func (o *Orchestrator) Unpark() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	unparked := len(o.parked)
	o.queue = append(o.queue, o.parked...)
	o.parked = nil
	o.queueParked = false

	o.publish(bus.EventQueueParkChanged, bus.ParkChange{
		Parked:  false,
		Message: fmt.Sprintf("%d songs moved to active queue!", unparked),
	})
	o.publishQueueUpdatedLocked()
	o.publishParkedQueueUpdatedLocked()
	return unparked
}

// ParkedQueue returns a copy of the parked queue.
func (o *Orchestrator) ParkedQueue() []song.Song {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]song.Song, len(o.parked))
	copy(out, o.parked)
	return out
}
