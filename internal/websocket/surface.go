package websocket

// SurfaceCommand is the fixed vocabulary sent to playback surfaces.
type SurfaceCommand struct {
	Type     string  `json:"type"` // open | play | pause | seek | close
	Source   string  `json:"source,omitempty"`
	Position float64 `json:"position,omitempty"`
	Seq      uint64  `json:"seq,omitempty"`
}

// Surface publishes transport commands to one surface topic. It satisfies
// the transport package's Surface interface.
type Surface struct {
	hub   *Hub
	topic string
}

// NewSurface binds a surface to a hub topic, e.g. "session:<id>:projector".
func NewSurface(hub *Hub, topic string) *Surface {
	return &Surface{hub: hub, topic: topic}
}

// Open announces the media source to the surface.
func (s *Surface) Open(source string) {
	s.hub.Publish(s.topic, SurfaceCommand{Type: "open", Source: source})
}

func (s *Surface) Play() {
	s.hub.Publish(s.topic, SurfaceCommand{Type: "play"})
}

func (s *Surface) Pause() {
	s.hub.Publish(s.topic, SurfaceCommand{Type: "pause"})
}

func (s *Surface) Seek(position float64, seq uint64) {
	s.hub.Publish(s.topic, SurfaceCommand{Type: "seek", Position: position, Seq: seq})
}

// Close tells the surface to tear down its player.
func (s *Surface) Close() {
	s.hub.Publish(s.topic, SurfaceCommand{Type: "close"})
}
