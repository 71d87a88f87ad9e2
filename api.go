package ubjson

import (
	"bytes"
	"io"
)

// EncodeToBytes serialises value into a freshly allocated byte slice (§6).
func EncodeToBytes(value any, cfg EncodeConfig) ([]byte, error) {
	var buf bytes.Buffer
	sink, err := NewSink(&buf)
	if err != nil {
		return nil, err
	}
	if err := Encode(sink, value, cfg); err != nil {
		return nil, err
	}
	if err := sink.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeToStream serialises value to w, flushing before returning (§6).
func EncodeToStream(w io.Writer, value any, cfg EncodeConfig) error {
	sink, err := NewSink(w)
	if err != nil {
		return err
	}
	if err := Encode(sink, value, cfg); err != nil {
		return err
	}
	return sink.Flush()
}

// DecodeFromBytes parses exactly one root value from buf, returning the
// number of bytes consumed. Trailing bytes beyond the root value are legal
// and simply not consumed (§8 property 4). It reads through the teacher's
// BytesReader (reader_bytes.go) rather than bytes.Reader, since the input is
// already a fully materialised slice and needs no bufio-style copying.
func DecodeFromBytes(buf []byte, cfg DecodeConfig) (Value, int64, error) {
	src := NewSource(NewBytesReader(buf))
	val, err := Decode(src, cfg)
	if err != nil {
		return Value{}, src.Offset(), err
	}
	return val, src.Offset(), nil
}

// DecodeFromStream parses exactly one root value from r, stopping immediately
// after its last byte without over-reading into whatever follows (§6, §8
// property 4). Callers that need the final offset can pass a *Source
// obtained via NewSource and read src.Offset() themselves; this wrapper
// exists for callers holding a plain io.Reader.
func DecodeFromStream(r io.Reader, cfg DecodeConfig) (Value, error) {
	return Decode(NewSource(r), cfg)
}
