package events

// Buffer queues events raised inside an open transaction. The caller flushes
// it to the real sinks only after the transaction commits, so the journal
// never records a state change that was rolled back.
type Buffer struct {
	queued []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.queued = append(b.queued, evt)
}

// FlushTo delivers the queued events to the emitter in emission order and
// empties the buffer.
func (b *Buffer) FlushTo(emitter Emitter) {
	if b == nil || emitter == nil {
		return
	}
	for _, evt := range b.queued {
		emitter.Emit(evt)
	}
	b.queued = nil
}
