package ubjson

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/exp/constraints"
)

var (
	BE = binary.BigEndian
	LE = binary.LittleEndian
	// Order is default binary order. UBJSON mandates network byte order
	// (big-endian) for every multi-byte integer and float on the wire (§4.1).
	Order = BE
)

const BUFFER_SIZE = 4096

var (
	empty   [BUFFER_SIZE]byte
	discard [BUFFER_SIZE]byte
)

func Ptr[T any](v T) *T { return &v } // ptr is a helper function to create a pointer to a value, making test setup cleaner.

func Discard(r io.Reader, n int64) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	if n < 0 {
		return 0, ErrDiscardNegative
	}
	if n <= BUFFER_SIZE {
		skip, err := r.Read(discard[:n])
		return int64(skip), err
	}
	return io.CopyN(io.Discard, r, n)
}

// Roundup rounds n up to the nearest multiple of align.
func Roundup[T constraints.Integer](n, align T) T { return (n + (align - 1)) &^ (align - 1) }

// MAX_PADDING defines the maximum number of trailing bytes to check.
// This prevents an Out-Of-Memory error if a parsing bug leaves a large
// amount of data in the reader. Anything larger is considered a protocol error.
const MAX_PADDING = 1024 // 1KB

// CheckTrailingNotZeros verifies that any remaining bytes in a reader are all zero.
// It is the reader-based counterpart of CheckBufferNotZeros, which is what
// Fixed.UnmarshalBinary uses.
func CheckTrailingNotZeros(r io.Reader) error {
	// Fast path for a common reader type to avoid any allocations.
	if reader, ok := r.(*BytesReader); ok && reader.Available() == 0 {
		return nil
	}

	// Use a LimitedReader to enforce our heuristic limit. We read up to
	// `MAX_PADDING + 1` bytes; if that many arrive, we know there was
	// too much data.
	lr := &io.LimitedReader{R: r, N: MAX_PADDING + 1}

	trailingData, err := io.ReadAll(lr)
	if err != nil {
		return err
	}

	return CheckBufferNotZeros(trailingData)
}

// CheckBufferNotZeros is the slice-based counterpart of CheckTrailingNotZeros,
// used by Fixed.UnmarshalBinary once the expected payload has already been
// read out of a []byte.
func CheckBufferNotZeros(b []byte) error {
	if len(b) > MAX_PADDING {
		return fmt.Errorf("%w: exceeds maximum expected size of %d bytes", ErrTrailingData, MAX_PADDING)
	}
	for i, c := range b {
		if c != 0 {
			return fmt.Errorf("%w: found non-zero byte 0x%02x at offset %d", ErrTrailingData, c, i)
		}
	}
	return nil
}
