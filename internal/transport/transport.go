// Package transport implements the single authoritative play/pause/seek
// state machine that keeps the audio sources, the muted video surface and
// the optional projector surface in lockstep.
package transport

import (
	"errors"
	"sync"
	"time"
)

// Phase is the transport state.
type Phase string

const (
	Stopped Phase = "stopped"
	Playing Phase = "playing"
	Paused  Phase = "paused"
)

// Clock supplies the authoritative playback clock in seconds. Playback
// position is anchored against it, so it must be monotonic.
type Clock interface {
	Now() float64
}

// MonotonicClock is the production clock.
type MonotonicClock struct {
	epoch time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{epoch: time.Now()}
}

func (c *MonotonicClock) Now() float64 {
	return time.Since(c.epoch).Seconds()
}

// Source is one stem playback source. Sources cannot be repositioned once
// started; a seek while playing is a stop-and-restart.
type Source interface {
	StartAt(offset float64) error
	Stop()
}

// Surface is a remote playback surface (the muted video element or the
// projector). Commands are fire-and-forget, idempotent state-setters; a
// surface with no listener behaves as a no-op. Programmatic seeks carry a
// sequence number so the surface's own seek notification can be recognized
// as an echo.
type Surface interface {
	Play()
	Pause()
	Seek(position float64, seq uint64)
}

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport closed")

// Transport linearizes all playback control for one session. Concurrent
// calls resolve last-writer-wins on the state machine.
type Transport struct {
	mu sync.Mutex

	clock     Clock
	sources   []Source
	video     Surface
	projector Surface

	phase    Phase
	position float64 // seconds; authoritative while not playing
	anchor   float64 // clock time corresponding to position 0 of this run

	seq      uint64 // last issued programmatic seek sequence number
	duration float64
	closed   bool
}

// New builds a transport over the given clock, sources and surfaces.
// duration bounds reported positions; zero means unbounded.
func New(clock Clock, sources []Source, video, projector Surface, duration float64) *Transport {
	return &Transport{
		clock:     clock,
		sources:   sources,
		video:     video,
		projector: projector,
		phase:     Stopped,
		duration:  duration,
	}
}

// Play starts playback from the current position (0 when stopped). Playing
// again while already playing is a no-op.
func (t *Transport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.phase == Playing {
		return nil
	}
	return t.startLocked(t.position)
}

// Pause freezes playback, capturing the position from the clock anchor.
func (t *Transport) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.phase != Playing {
		return nil
	}

	t.position = t.clamp(t.clock.Now() - t.anchor)
	t.stopSourcesLocked()
	t.phase = Paused
	t.video.Pause()
	t.projector.Pause()
	return nil
}

// Stop halts playback and rewinds everything to zero.
func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	t.stopSourcesLocked()
	t.phase = Stopped
	t.position = 0
	t.seq++
	t.video.Pause()
	t.video.Seek(0, t.seq)
	t.projector.Pause()
	t.projector.Seek(0, t.seq)
	return nil
}

// Seek repositions the transport. While playing this is a stop-and-restart
// from the target (audio sources cannot be repositioned in place); while
// paused or stopped only the position is updated and the surfaces are
// commanded on the next Play.
func (t *Transport) Seek(position float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return t.seekLocked(position, false)
}

// HandleVideoSeeked processes the video surface's seek-completed
// notification. Notifications carrying the sequence number of a seek this
// transport issued are echoes and are dropped — without this guard a
// programmatic seek would re-trigger itself forever. A zero or unknown
// sequence number means the user dragged the video's own seek bar.
func (t *Transport) HandleVideoSeeked(position float64, seq uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if seq != 0 && seq <= t.seq {
		return nil
	}
	return t.seekLocked(position, true)
}

// Position reports the current playback position in seconds.
func (t *Transport) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == Playing {
		return t.clamp(t.clock.Now() - t.anchor)
	}
	return t.position
}

// Phase reports the current transport phase.
func (t *Transport) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Close forcibly stops all sources and invalidates the transport. A session
// must close its transport before constructing a new one, or the old
// sources keep playing on their own.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.stopSourcesLocked()
	t.phase = Stopped
	t.closed = true
}

func (t *Transport) startLocked(position float64) error {
	position = t.clamp(position)
	t.anchor = t.clock.Now() - position
	for _, src := range t.sources {
		if err := src.StartAt(position); err != nil {
			t.stopSourcesLocked()
			return err
		}
	}
	t.position = position
	t.phase = Playing

	t.seq++
	t.video.Seek(position, t.seq)
	t.video.Play()
	t.projector.Seek(position, t.seq)
	t.projector.Play()
	return nil
}

func (t *Transport) seekLocked(position float64, fromVideo bool) error {
	position = t.clamp(position)

	if t.phase != Playing {
		t.position = position
		return nil
	}

	// Stop-and-restart: re-anchor the clock at the new position.
	t.stopSourcesLocked()
	t.anchor = t.clock.Now() - position
	for _, src := range t.sources {
		if err := src.StartAt(position); err != nil {
			t.stopSourcesLocked()
			t.phase = Paused
			t.position = position
			return err
		}
	}
	t.position = position

	t.seq++
	if !fromVideo {
		t.video.Seek(position, t.seq)
	}
	t.projector.Seek(position, t.seq)
	return nil
}

func (t *Transport) stopSourcesLocked() {
	for _, src := range t.sources {
		src.Stop()
	}
}

func (t *Transport) clamp(position float64) float64 {
	if position < 0 {
		return 0
	}
	if t.duration > 0 && position > t.duration {
		return t.duration
	}
	return position
}
