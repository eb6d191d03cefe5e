// Package audio tracks the sound a game asks for. A terminal cannot
// play media, so the default player keeps the bookkeeping a game
// expects (what is playing, at what volume, paused or not) without
// producing sound; games that loop background music or poll playback
// state keep working.
package audio

import (
	"sort"
	"sync"
)

// Player is the sound facade a game session drives.
type Player interface {
	// Play starts a file at the given volume (0-100), or adjusts the
	// volume when the file is already playing.
	Play(path string, volume int)
	// IsPlaying reports whether the file is currently audible.
	IsPlaying(path string) bool
	// Close stops one file; CloseAll stops everything.
	Close(path string)
	CloseAll()
	// PauseAll and ResumeAll suspend and continue all current tracks.
	PauseAll()
	ResumeAll()
}

// Track is one file a game started playing.
type Track struct {
	Path   string
	Volume int
	Paused bool
}

// Tracker implements Player by bookkeeping alone.
type Tracker struct {
	mu      sync.Mutex
	enabled bool
	tracks  map[string]*Track
}

func NewTracker() *Tracker {
	return &Tracker{enabled: true, tracks: make(map[string]*Track)}
}

// SetEnabled turns the facade off entirely. While disabled Play is a
// no-op and nothing reports as playing.
func (t *Tracker) SetEnabled(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = on
	if !on {
		t.tracks = make(map[string]*Track)
	}
}

func (t *Tracker) Play(path string, volume int) {
	if volume < 0 {
		volume = 0
	} else if volume > 100 {
		volume = 100
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	if tr, ok := t.tracks[path]; ok {
		tr.Volume = volume
		tr.Paused = false
		return
	}
	t.tracks[path] = &Track{Path: path, Volume: volume}
}

func (t *Tracker) IsPlaying(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.tracks[path]
	return ok && !tr.Paused
}

func (t *Tracker) Close(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tracks, path)
}

func (t *Tracker) CloseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = make(map[string]*Track)
}

func (t *Tracker) PauseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tr := range t.tracks {
		tr.Paused = true
	}
}

func (t *Tracker) ResumeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tr := range t.tracks {
		tr.Paused = false
	}
}

// Tracks returns the current tracks sorted by path, for display.
func (t *Tracker) Tracks() []Track {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Track, 0, len(t.tracks))
	for _, tr := range t.tracks {
		out = append(out, *tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
