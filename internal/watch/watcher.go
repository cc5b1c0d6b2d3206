// Package watch polls the engine and turns state snapshots into a stream
// of playback events, for log followers and the websocket feed.
package watch

import (
	"context"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/soundbed/backdrop/internal/core"
)

// EventType represents the type of playback event.
type EventType int

const (
	EventTrackChange EventType = iota
	EventTrackEnd
	EventPause
	EventResume
	EventVolumeChange
	EventRateChange
	EventEffectChange
)

// Event represents a playback state change.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Previous  core.Status `json:"previous"`
	Current   core.Status `json:"current"`
}

// Source is anything that can report playback status; in practice the
// engine.
type Source interface {
	Status() core.Status
}

// Watcher polls a source for state changes and emits events.
type Watcher struct {
	source   Source
	interval time.Duration
	events   chan Event
	done     chan struct{}
}

// NewWatcher creates a new state watcher.
func NewWatcher(source Source, interval time.Duration) *Watcher {
	if interval == 0 {
		interval = 250 * time.Millisecond
	}
	return &Watcher{
		source:   source,
		interval: interval,
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
	}
}

// Events returns the channel of playback events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins polling for state changes. It blocks until ctx is canceled
// or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.events)

	prev := w.source.Status()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case <-ticker.C:
			curr := w.source.Status()

			for _, e := range diffStatus(prev, curr) {
				select {
				case w.events <- e:
				default:
					// Drop event if channel is full
				}
			}

			prev = curr
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
}

// diffStatus compares two snapshots and returns detected events.
func diffStatus(prev, curr core.Status) []Event {
	now := time.Now()
	var events []Event

	emit := func(t EventType) {
		events = append(events, Event{
			Type:      t,
			Timestamp: now,
			Previous:  prev,
			Current:   curr,
		})
	}

	if trackChanged(prev.Track, curr.Track) {
		if curr.Track == nil {
			emit(EventTrackEnd)
		} else {
			emit(EventTrackChange)
		}
	}

	if prev.IsPlaying && !curr.IsPlaying && curr.HasTrack() {
		emit(EventPause)
	} else if !prev.IsPlaying && curr.IsPlaying {
		emit(EventResume)
	}

	if prev.Volume != curr.Volume {
		emit(EventVolumeChange)
	}

	if prev.Rate != curr.Rate && curr.HasTrack() {
		emit(EventRateChange)
	}

	if prev.Effects != curr.Effects {
		emit(EventEffectChange)
	}

	return events
}

// trackChanged returns true if the installed track changed. Descriptors
// carry no identity beyond their content, so equality is a structural hash.
func trackChanged(prev, curr *core.Descriptor) bool {
	if prev == nil && curr == nil {
		return false
	}
	if prev == nil || curr == nil {
		return true
	}
	return descriptorHash(prev) != descriptorHash(curr)
}

func descriptorHash(d *core.Descriptor) uint64 {
	h, err := hashstructure.Hash(d, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return h
}
