package events

// Event represents a structured state change emitted by the market ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
// Useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder buffers emitted events so a host can withhold notifications until
// the state mutations of an operation have committed. Flush replays the
// buffer into the target emitter and clears it; Reset discards the buffer.
type Recorder struct {
	buffered []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.buffered = append(r.buffered, evt)
}

// Events returns the buffered events in emission order.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	return append([]Event(nil), r.buffered...)
}

// Flush replays the buffer into target and clears it. A nil target simply
// discards the buffer.
func (r *Recorder) Flush(target Emitter) {
	if r == nil {
		return
	}
	if target != nil {
		for _, evt := range r.buffered {
			target.Emit(evt)
		}
	}
	r.buffered = nil
}

// Reset discards any buffered events without delivering them.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.buffered = nil
}
