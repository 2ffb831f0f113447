package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is the stored form of an emitted event. The recorder journal is the
// canonical audit trail exposed over RPC.
type Record struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes"`
}

// Recorder retains a bounded journal of emitted events.
type Recorder struct {
	mu      sync.RWMutex
	limit   int
	records []Record
}

const defaultRecorderLimit = 1024

// NewRecorder constructs a recorder holding at most limit events; older
// entries are evicted first.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = defaultRecorderLimit
	}
	return &Recorder{limit: limit}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	record := Record{
		ID:         uuid.NewString(),
		Type:       evt.EventType(),
		Timestamp:  time.Now().UTC(),
		Attributes: evt.Attributes(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	if len(r.records) > r.limit {
		r.records = r.records[len(r.records)-r.limit:]
	}
}

// Recent returns up to n most recent records, newest last.
func (r *Recorder) Recent(n int) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.records) {
		n = len(r.records)
	}
	out := make([]Record, n)
	copy(out, r.records[len(r.records)-n:])
	return out
}

// LogEmitter mirrors every event onto a structured logger.
type LogEmitter struct {
	Logger *slog.Logger
}

// Emit implements the Emitter interface.
func (l LogEmitter) Emit(evt Event) {
	if evt == nil {
		return
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := make([]any, 0, 2*len(evt.Attributes()))
	for key, value := range evt.Attributes() {
		attrs = append(attrs, slog.String(key, value))
	}
	logger.With(attrs...).Info(evt.EventType())
}
