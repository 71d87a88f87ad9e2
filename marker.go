package ubjson

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Marker is a single wire-format type tag byte (UBJSON Draft-12, §4.1).
type Marker byte

const (
	MarkerNull       Marker = 'Z'
	MarkerNoOp       Marker = 'N'
	MarkerTrue       Marker = 'T'
	MarkerFalse      Marker = 'F'
	MarkerInt8       Marker = 'i'
	MarkerUint8      Marker = 'U'
	MarkerInt16      Marker = 'I'
	MarkerInt32      Marker = 'l'
	MarkerInt64      Marker = 'L'
	MarkerFloat32    Marker = 'd'
	MarkerFloat64    Marker = 'D'
	MarkerHighPrec   Marker = 'H'
	MarkerChar       Marker = 'C'
	MarkerString     Marker = 'S'
	MarkerArrayOpen  Marker = '['
	MarkerArrayClose Marker = ']'
	MarkerObjOpen    Marker = '{'
	MarkerObjClose   Marker = '}'
	MarkerType       Marker = '$'
	MarkerCount      Marker = '#'
)

// IsIntMarker reports whether m is one of the five fixed-width integer markers.
func (m Marker) IsIntMarker() bool {
	switch m {
	case MarkerInt8, MarkerUint8, MarkerInt16, MarkerInt32, MarkerInt64:
		return true
	}
	return false
}

// IsScalarMarker reports whether m introduces a self-contained scalar payload
// (as opposed to a container opener/closer or a container-prefix marker).
func (m Marker) IsScalarMarker() bool {
	switch m {
	case MarkerNull, MarkerNoOp, MarkerTrue, MarkerFalse,
		MarkerInt8, MarkerUint8, MarkerInt16, MarkerInt32, MarkerInt64,
		MarkerFloat32, MarkerFloat64, MarkerHighPrec, MarkerChar, MarkerString:
		return true
	}
	return false
}

func (m Marker) String() string {
	return string(rune(m))
}

// classifyInt chooses the narrowest UBJSON integer marker for v, per §4.1:
//
//	i  [-128, 127]
//	U  [0, 255]
//	I  [-32768, 32767]
//	l  [-2^31, 2^31-1]
//	L  [-2^63, 2^63-1]
//
// It never returns H: integers beyond int64 are carried as HugeInt values,
// which the encoder writes as H itself.
func classifyInt[T constraints.Signed](v T) Marker {
	n := int64(v)
	switch {
	case n >= -128 && n <= 127:
		return MarkerInt8
	case n >= 0 && n <= 255:
		return MarkerUint8
	case n >= -32768 && n <= 32767:
		return MarkerInt16
	case n >= math.MinInt32 && n <= math.MaxInt32:
		return MarkerInt32
	default:
		return MarkerInt64
	}
}

// ClassifyInt64 is the concrete entry point used by the encoder for the
// Value.Int payload, which is carried as int64 per the data model (§3).
func ClassifyInt64(v int64) Marker {
	return classifyInt(v)
}

// FitsInt64 reports whether the decimal integer text s (no fractional part,
// optional leading '-') fits in a signed 64-bit integer, and if so returns it.
func FitsInt64(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ClassifyFloat chooses between the binary32 and binary64 float markers per §4.1:
// binary32 ('d') is chosen iff v is finite and the float64->float32->float64
// round trip is lossless; otherwise binary64 ('D'). Non-finite values are the
// caller's responsibility (§4.1: encoded as MarkerNull, documented on the
// public API).
func ClassifyFloat(v float64, noFloat32 bool) Marker {
	if noFloat32 {
		return MarkerFloat64
	}
	if math.IsInf(v, 0) || !roundTripsFloat32(v) {
		return MarkerFloat64
	}
	return MarkerFloat32
}

func roundTripsFloat32(v float64) bool {
	f32 := float32(v)
	return float64(f32) == v
}

// ShortestDecimal renders v using the shortest decimal string that parses
// back to the exact same float64 bit pattern, per §4.1's decimal rule for
// values that cannot be represented losslessly as Float.
func ShortestDecimal(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ValidDecimalText reports whether s is a syntactically valid decimal number
// as required for the H (high-precision) marker payload: an optional sign,
// digits, an optional '.', more digits, and an optional exponent.
func ValidDecimalText(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune("0123456789+-.eE", rune(s[i])) {
			return false
		}
	}
	_, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return true
	}
	// strconv.ParseFloat rejects some arbitrary-precision integer strings
	// that are too large to fit float64 but are still valid decimal text
	// (HugeInt case); accept a plain optional-sign digit run too.
	t := s
	if len(t) > 0 && (t[0] == '+' || t[0] == '-') {
		t = t[1:]
	}
	if t == "" {
		return false
	}
	for _, r := range t {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// LooksLikeInteger reports whether a decimal string has no fractional or
// exponent component, i.e. it is a candidate for HugeInt rather than HighPrec.
func LooksLikeInteger(s string) bool {
	return !strings.ContainsAny(s, ".eE")
}
