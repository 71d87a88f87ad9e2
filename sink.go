package ubjson

import "io"

// Sink is the push-style byte abstraction described in §4.2: write(bytes)
// appends, flush() forwards accumulated bytes to the underlying transport.
// It is single-writer and does not otherwise serialise. It is built directly
// on the teacher's buffered Writer (writer.go).
type Sink struct {
	w      *Writer
	tainted bool
}

// NewSink wraps w for encoding. w is used exclusively by the returned Sink
// for the duration of one encode (§5: an encoder invocation holds exclusive
// use of its sink).
func NewSink(w io.Writer) (*Sink, error) {
	ww, err := NewWriter(w)
	if err != nil {
		return nil, err
	}
	return &Sink{w: ww}, nil
}

// WriteByte appends a single byte, most often a marker.
func (s *Sink) WriteByte(b byte) error {
	if s.tainted {
		return s.w.Err()
	}
	return s.w.WriteByte(b)
}

// Write appends p.
func (s *Sink) Write(p []byte) (int, error) {
	if s.tainted {
		return 0, s.w.Err()
	}
	return s.w.Write(p)
}

// WriteString appends s without a UTF-8 validity check; callers validate first.
func (s *Sink) WriteString(str string) (int, error) {
	if s.tainted {
		return 0, s.w.Err()
	}
	return s.w.WriteString(str)
}

// Taint marks the sink's buffered output as invalid. Per §7's propagation
// policy, a tainted sink's buffer must never be flushed as if it were a
// valid document.
func (s *Sink) Taint() { s.tainted = true }

// Flush forwards accumulated bytes to the underlying transport, unless the
// sink has been tainted by a prior encode failure.
func (s *Sink) Flush() error {
	if s.tainted {
		return s.w.Err()
	}
	return s.w.Flush()
}

// Result returns the total bytes written and the writer's error state.
func (s *Sink) Result() (int64, error) {
	if s.tainted {
		return s.w.Count(), s.w.Err()
	}
	return s.w.Result()
}

// Err returns the first error the underlying Writer encountered.
func (s *Sink) Err() error { return s.w.Err() }
