package ubjson

import "io"

// The typed-counted-container fast path (§4.4: "Inside a typed container,
// per-element markers are omitted; the inner type is reused") reads runs of
// same-typed elements with list.List0 (list.go) over the teacher's generic
// Fixed codec (fixed.go) instantiated at the exact wire width of one UBJSON
// scalar marker, instead of pushing one decoder-stack frame per element —
// the same trick the Bytes fast path uses for $U#, generalised to every
// other fixed-width marker.

// fixedWidthOf reports the wire width, in bytes, of a fixed-width scalar
// marker's payload, or 0 if m does not name one (S, H are length-prefixed;
// composite markers have no fixed width).
func fixedWidthOf(m Marker) int {
	switch m {
	case MarkerInt8, MarkerUint8, MarkerChar:
		return 1
	case MarkerInt16:
		return 2
	case MarkerInt32, MarkerFloat32:
		return 4
	case MarkerInt64, MarkerFloat64:
		return 8
	default:
		return 0
	}
}

// readFixedList reads exactly count elements of type T (a Fixed-codec
// payload) from r using list.List0, and converts each to a Value with conv.
// conv may reject a payload (e.g. a Char run containing a byte outside
// [U+0000, U+007F]); such an error is returned as-is, matching the scalar
// decode path's handling of the same conversion.
// It returns the decoded values and the number of bytes consumed.
func readFixedList[T any](r io.Reader, count int, conv func(T) (Value, error)) ([]Value, int64, error) {
	if count == 0 {
		return nil, 0, nil
	}
	items := make([]*Fixed[T], 0, count)
	lst := NewList0[*Fixed[T]](items)
	n, err := lst.ReadFrom(r)
	if err != nil {
		return nil, n, err
	}
	out := make([]Value, len(lst.Items))
	for i, it := range lst.Items {
		v, err := conv(it.Payload)
		if err != nil {
			return nil, n, err
		}
		out[i] = v
	}
	return out, n, nil
}

// decodeFixedRun decodes count elements of the fixed-width inner marker m
// from src, returning them as Values in wire order. It is the non-recursive
// fast path readTypedCounted (decoder.go) uses for typed, counted arrays
// whose inner type names a fixed-width scalar marker (§4.4); typed, counted
// objects read their values one at a time instead.
func decodeFixedRun(src *Source, m Marker, count int) ([]Value, error) {
	var (
		vals []Value
		err  error
	)
	switch m {
	case MarkerInt8:
		vals, _, err = readFixedList[int8](src, count, func(v int8) (Value, error) { return Int(int64(v)), nil })
	case MarkerUint8:
		vals, _, err = readFixedList[uint8](src, count, func(v uint8) (Value, error) { return Int(int64(v)), nil })
	case MarkerChar:
		vals, _, err = readFixedList[uint8](src, count, func(v uint8) (Value, error) {
			c, cerr := Char(v)
			if cerr != nil {
				return Value{}, newDecoderFailure(ErrBadUTF8, src.Offset(), cerr)
			}
			return c, nil
		})
	case MarkerInt16:
		vals, _, err = readFixedList[int16](src, count, func(v int16) (Value, error) { return Int(int64(v)), nil })
	case MarkerInt32:
		vals, _, err = readFixedList[int32](src, count, func(v int32) (Value, error) { return Int(int64(v)), nil })
	case MarkerInt64:
		vals, _, err = readFixedList[int64](src, count, func(v int64) (Value, error) { return Int(v), nil })
	case MarkerFloat32:
		vals, _, err = readFixedList[float32](src, count, func(v float32) (Value, error) { return Float(float64(v)), nil })
	case MarkerFloat64:
		vals, _, err = readFixedList[float64](src, count, func(v float64) (Value, error) { return Float(v), nil })
	default:
		// Includes MarkerNoOp: $N# is rejected by the caller (decoder.go)
		// before this function is ever reached, since silently discarding
		// No-Op inside a counted container would break its declared element
		// count (§9 Open Question).
		return nil, newDecoderFailure(ErrInvalidTypedContainer, src.Offset(), nil)
	}
	if err != nil {
		return nil, src.translate(err)
	}
	return vals, nil
}
