//go:build test

package ubjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueConstructorsAndAccessors(t *testing.T) {
	v := Int(42)
	assert.Equal(t, KindInt, v.Kind())
	iv, ok := v.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(42), iv)

	_, ok = v.AsString()
	assert.False(t, ok)

	c, err := Char('a')
	require.NoError(t, err)
	cv, ok := c.AsChar()
	require.True(t, ok)
	assert.Equal(t, byte('a'), cv)

	_, err = Char(0x80)
	assert.Error(t, err)
}

func TestValueEqual(t *testing.T) {
	a := Object([]Pair{{Key: "a", Val: Int(1)}, {Key: "b", Val: Array([]Value{String("x")})}})
	b := Object([]Pair{{Key: "a", Val: Int(1)}, {Key: "b", Val: Array([]Value{String("x")})}})
	c := Object([]Pair{{Key: "a", Val: Int(2)}})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, Null().Equal(Null()))
	assert.False(t, Null().Equal(NoOp()))
}

func TestHugeIntFromString(t *testing.T) {
	_, err := HugeIntFromString("not-a-number")
	assert.Error(t, err)

	v, err := HugeIntFromString("123456789012345678901234567890")
	require.NoError(t, err)
	s, ok := v.AsHugeInt()
	require.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", s)
}

func TestValueCodecRoundTrip(t *testing.T) {
	v := Object([]Pair{{Key: "n", Val: Int(7)}})
	data, err := v.MarshalBinary()
	require.NoError(t, err)

	var got Value
	require.NoError(t, got.UnmarshalBinary(data))
	assert.True(t, v.Equal(got))

	// UnmarshalBinary must tolerate trailing bytes (§8 property 4).
	require.NoError(t, got.UnmarshalBinary(append(data, 0xFF, 0xFF)))
	assert.True(t, v.Equal(got))
}

func TestValueMarshalToShortBuffer(t *testing.T) {
	v := String("hello")
	buf := make([]byte, 1)
	_, err := v.MarshalTo(buf)
	assert.Error(t, err)
}
