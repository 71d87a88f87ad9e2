package ubjson

import (
	"errors"
	"io"
)

// Source is the pull-style byte abstraction described in §4.2: read_exact(n)
// returns exactly n bytes or fails with TRUNCATED, read_u8 is a convenience,
// and the source tracks a monotonic byte offset surfaced on every decode
// error. It is built directly on the teacher's PeekableReader (reader_peek.go)
// so that the one-byte container-prefix lookahead required by §4.4 ("peeks for
// $ and/or # ") never over-consumes the underlying transport: an unmatched
// peek stays buffered inside the PeekableReader for the next ordinary read,
// satisfying the "must not consume bytes beyond the last byte demanded by
// read_exact" rule from the caller's point of view.
type Source struct {
	pr     *PeekableReader
	offset int64
}

// NewSource wraps r for decoding. r is consumed exclusively by the returned
// Source for the duration of one decode (§5: a decoder invocation holds
// exclusive use of its source).
func NewSource(r io.Reader) *Source {
	return &Source{pr: PeekReader(r)}
}

// Offset returns the number of bytes committed (read, not merely peeked) so far.
func (s *Source) Offset() int64 { return s.offset }

// Read implements io.Reader so a Source can be handed directly to teacher
// plumbing that expects one, such as list.List0[T].ReadFrom for the
// fixed-scalar typed-container fast path (§4.4).
func (s *Source) Read(p []byte) (int, error) {
	n, err := s.pr.Read(p)
	s.offset += int64(n)
	return n, err
}

// ReadByte returns the next byte, translating io.EOF into TRUNCATED at the
// current offset.
func (s *Source) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := io.ReadFull(s.pr, buf[:])
	if n == 1 {
		s.offset++
		return buf[0], nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return 0, s.translate(err)
}

// PeekByte looks at the next byte without consuming it. ok is false at a
// clean end of input.
func (s *Source) PeekByte() (b byte, ok bool, err error) {
	buf, perr := s.pr.Peek(1)
	if len(buf) == 1 {
		return buf[0], true, nil
	}
	if perr == nil || perr == io.EOF {
		return 0, false, nil
	}
	return 0, false, s.translate(perr)
}

// ReadExact returns exactly n bytes or fails with TRUNCATED.
func (s *Source) ReadExact(n int64) ([]byte, error) {
	if n < 0 {
		return nil, newDecoderFailure(ErrNegativeLength, s.offset, nil)
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(s.pr, buf)
	s.offset += int64(got)
	if err != nil {
		return nil, s.translate(err)
	}
	return buf, nil
}

func (s *Source) translate(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newDecoderFailure(ErrTruncated, s.offset, nil)
	}
	return err
}
