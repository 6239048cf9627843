// Package audit defines the structured records a plugin SDK instance emits
// for every governed action, and the sinks that receive them.
//
// Records are fire-and-forget: a Sink must not block the caller on delivery
// and must be safe for concurrent use.
//
// Usage:
//
//	rec := audit.NewRecorder()
//	s, _ := sdk.New(cfg, sdk.WithAuditSink(rec))
//	// ... exercise s ...
//	for _, r := range rec.Records() {
//	    fmt.Println(r.Level, r.Message)
//	}
package audit

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"
)

// Level is the severity of an audit record.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// Record is a single audit entry.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	PluginID  string         `json:"pluginId"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Sink receives audit records.
type Sink interface {
	Emit(r Record)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(r Record)

// Emit calls f(r).
func (f SinkFunc) Emit(r Record) {
	f(r)
}

// Discard drops every record.
var Discard Sink = SinkFunc(func(Record) {})

// WriterSink writes records as one JSON document per line, prefixed with
// "[Plugin:<id>]". Error records go to Err, everything else to Out.
type WriterSink struct {
	mu  sync.Mutex
	Out io.Writer
	Err io.Writer
}

// NewWriterSink returns a sink writing to stdout and stderr.
func NewWriterSink() *WriterSink {
	return &WriterSink{Out: os.Stdout, Err: os.Stderr}
}

// Emit implements Sink.
func (s *WriterSink) Emit(r Record) {
	line, err := json.Marshal(r)
	if err != nil {
		// Meta carried something json cannot encode; keep the record.
		r.Meta = map[string]any{"metaError": err.Error()}
		line, _ = json.Marshal(r)
	}

	w := s.Out
	if r.Level == LevelError && s.Err != nil {
		w = s.Err
	}
	if w == nil {
		return
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString("[Plugin:")
	_, _ = buf.WriteString(r.PluginID)
	_, _ = buf.WriteString("] ")
	_, _ = buf.Write(line)
	_ = buf.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = w.Write(buf.B)
}

// Recorder keeps records in memory.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements Sink.
func (r *Recorder) Emit(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Messages returns the message of every record, in order.
func (r *Recorder) Messages() []string {
	records := r.Records()
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Message
	}
	return out
}

// Count returns how many records have the given level and message.
func (r *Recorder) Count(level Level, message string) int {
	n := 0
	for _, rec := range r.Records() {
		if rec.Level == level && rec.Message == message {
			n++
		}
	}
	return n
}

// Reset discards all records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// Multi fans a record out to several sinks.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(r Record) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(r)
			}
		}
	})
}
