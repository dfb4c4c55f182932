// Package session wires one assembled stem set to a live mixer and a
// transport, and owns the at-most-one-playing-instance rule: opening a new
// session forcibly closes the previous one so stale sources cannot keep
// playing.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/stemstage/api/internal/stem"
	"github.com/stemstage/api/internal/transport"
	ws "github.com/stemstage/api/internal/websocket"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Session is one open playback engine over an assembled stem set.
type Session struct {
	ID        string
	Manifest  *stem.Manifest
	Set       *stem.StemSet
	Mixer     *stem.LiveMixer
	Transport *transport.Transport

	video     *ws.Surface
	projector *ws.Surface
}

// stemVoice is a transport source for one stem. The actual sample rendering
// is pulled through the live mixer by whatever output device fronts the
// engine; the voice tracks the started/stopped contract the transport needs.
type stemVoice struct {
	mu     sync.Mutex
	name   string
	active bool
	offset float64
}

func (v *stemVoice) StartAt(offset float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = true
	v.offset = offset
	return nil
}

func (v *stemVoice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = false
}

// Manager owns the single open session per process.
type Manager struct {
	mu      sync.Mutex
	hub     *ws.Hub
	clock   transport.Clock
	current *Session
}

func NewManager(hub *ws.Hub) *Manager {
	return &Manager{hub: hub, clock: transport.NewMonotonicClock()}
}

// Open loads the stem set described by the directory's manifest and builds a
// fresh engine for it. Any previously open session is closed first — its
// sources are stopped and its surfaces told to tear down.
func (m *Manager) Open(separatedDir string) (*Session, error) {
	manifest, err := stem.LoadManifest(separatedDir)
	if err != nil {
		return nil, err
	}
	set, err := stem.LoadSet(separatedDir, manifest)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.closeLocked(m.current)
	}

	id := uuid.New().String()
	sources := make([]transport.Source, len(set.Stems))
	for i := range set.Stems {
		sources[i] = &stemVoice{name: set.Stems[i].Name}
	}

	video := ws.NewSurface(m.hub, "session:"+id+":video")
	projector := ws.NewSurface(m.hub, "session:"+id+":projector")

	s := &Session{
		ID:        id,
		Manifest:  manifest,
		Set:       set,
		Mixer:     stem.NewLiveMixer(set),
		Transport: transport.New(m.clock, sources, video, projector, set.Duration()),
		video:     video,
		projector: projector,
	}
	projector.Open(separatedDir)
	m.current = s
	return s, nil
}

// Get returns the open session when the id matches.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.ID != id {
		return nil, ErrNotFound
	}
	return m.current, nil
}

// Close tears down the session with the given id.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.ID != id {
		return ErrNotFound
	}
	m.closeLocked(m.current)
	m.current = nil
	return nil
}

// CloseAll tears down whatever session is open.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.closeLocked(m.current)
		m.current = nil
	}
}

func (m *Manager) closeLocked(s *Session) {
	s.Transport.Close()
	s.video.Close()
	s.projector.Close()
}
