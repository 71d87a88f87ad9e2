//go:build test

package ubjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSeedScenarios(t *testing.T) {
	cases := []struct {
		name string
		wire []byte
		want Value
	}{
		{"1 null", []byte{0x5A}, Null()},
		{"2 bool true", []byte{0x54}, Bool(true)},
		{"3 int 42", []byte{0x69, 0x2A}, Int(42)},
		{"4 int -100", []byte{0x49, 0xFF, 0x9C}, Int(-100)},
		{
			"5 string hello",
			[]byte{0x53, 0x69, 0x05, 0x68, 0x65, 0x6C, 0x6C, 0x6F},
			String("hello"),
		},
		{
			"6 array of ints",
			[]byte{0x5B, 0x69, 0x01, 0x69, 0x02, 0x5D},
			Array([]Value{Int(1), Int(2)}),
		},
		{
			"7 typed uint8 bytes",
			[]byte{0x5B, 0x24, 0x55, 0x23, 0x69, 0x03, 0x01, 0x02, 0x03},
			Bytes([]byte{0x01, 0x02, 0x03}),
		},
		{
			"8 object",
			[]byte{0x7B, 0x69, 0x01, 0x61, 0x69, 0x01, 0x7D},
			Object([]Pair{{Key: "a", Val: Int(1)}}),
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, n, err := DecodeFromBytes(c.wire, DefaultDecodeConfig())
			require.NoError(t, err)
			assert.EqualValues(t, len(c.wire), n)
			assert.True(t, c.want.Equal(got), "got %#v want %#v", got, c.want)
		})
	}
}

func TestDecodeTruncationAtEveryPrefix(t *testing.T) {
	full := []byte{0x5B, 0x24, 0x55, 0x23, 0x69, 0x03, 0x01, 0x02, 0x03}
	for n := 0; n < len(full); n++ {
		prefix := full[:n]
		_, _, err := DecodeFromBytes(prefix, DefaultDecodeConfig())
		require.Error(t, err, "prefix length %d", n)
		var df *DecoderFailure
		require.ErrorAs(t, err, &df, "prefix length %d", n)
		assert.Equal(t, ErrTruncated, df.Kind, "prefix length %d", n)
		assert.EqualValues(t, n, df.Offset, "prefix length %d", n)
	}
}

func TestDecodeMismatchedCloser(t *testing.T) {
	wire := []byte{0x5B, 0x69, 0x01, 0x7D}
	_, _, err := DecodeFromBytes(wire, DefaultDecodeConfig())
	require.Error(t, err)
	var df *DecoderFailure
	require.ErrorAs(t, err, &df)
	assert.Equal(t, ErrContainerMismatch, df.Kind)
	assert.EqualValues(t, 3, df.Offset)
}

func TestDecodeMaxDepthExceeded(t *testing.T) {
	// Five levels of nested untyped arrays: [[[[[]]]]]
	wire := []byte{0x5B, 0x5B, 0x5B, 0x5B, 0x5B, 0x5D, 0x5D, 0x5D, 0x5D, 0x5D}
	cfg := DefaultDecodeConfig()
	cfg.MaxDepth = 4
	_, _, err := DecodeFromBytes(wire, cfg)
	require.Error(t, err)
	var df *DecoderFailure
	require.ErrorAs(t, err, &df)
	assert.Equal(t, ErrDepthExceeded, df.Kind)
}

func TestDecodeNoOpDiscardedInUntypedArray(t *testing.T) {
	// [ N 1 N 2 ]
	wire := []byte{0x5B, 0x4E, 0x69, 0x01, 0x4E, 0x69, 0x02, 0x5D}
	got, _, err := DecodeFromBytes(wire, DefaultDecodeConfig())
	require.NoError(t, err)
	assert.True(t, Array([]Value{Int(1), Int(2)}).Equal(got))
}

func TestDecodeNoOpRejectedInCountedContainer(t *testing.T) {
	// # 2  N  1   -- untyped counted array whose first slot is a No-Op
	wire := []byte{0x5B, 0x23, 0x69, 0x02, 0x4E, 0x69, 0x01}
	_, _, err := DecodeFromBytes(wire, DefaultDecodeConfig())
	require.Error(t, err)
	var df *DecoderFailure
	require.ErrorAs(t, err, &df)
	assert.Equal(t, ErrInvalidTypedContainer, df.Kind)
}

func TestDecodeNoOpRejectedInTypedCountedContainer(t *testing.T) {
	// $ N # 2  -- typed container declaring its inner type as No-Op
	wire := []byte{0x5B, 0x24, 0x4E, 0x23, 0x69, 0x02}
	_, _, err := DecodeFromBytes(wire, DefaultDecodeConfig())
	require.Error(t, err)
	var df *DecoderFailure
	require.ErrorAs(t, err, &df)
	assert.Equal(t, ErrInvalidTypedContainer, df.Kind)
}

func TestDecodeBareRootNoOp(t *testing.T) {
	got, _, err := DecodeFromBytes([]byte{0x4E}, DefaultDecodeConfig())
	require.NoError(t, err)
	assert.True(t, got.IsNoOp())
}

func TestDecodeDuplicateObjectKeysLastWriteWins(t *testing.T) {
	// {"a":1,"a":2}
	wire := []byte{
		0x7B,
		0x69, 0x01, 0x61, 0x69, 0x01,
		0x69, 0x01, 0x61, 0x69, 0x02,
		0x7D,
	}
	got, _, err := DecodeFromBytes(wire, DefaultDecodeConfig())
	require.NoError(t, err)
	pairs, ok := got.AsObject()
	require.True(t, ok)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].Key)
	iv, _ := pairs[0].Val.AsInt()
	assert.EqualValues(t, 2, iv)
}

func TestDecodeCharOutOfRangeFails(t *testing.T) {
	// C \xFE -- a lone Char scalar with a byte above U+007F
	wire := []byte{0x43, 0xFE}
	_, _, err := DecodeFromBytes(wire, DefaultDecodeConfig())
	require.Error(t, err)
	var df *DecoderFailure
	require.ErrorAs(t, err, &df)
	assert.Equal(t, ErrBadUTF8, df.Kind)
	assert.EqualValues(t, 2, df.Offset)
}

func TestDecodeCharOutOfRangeInTypedCountedRunFails(t *testing.T) {
	// $ C # 2  \x61 \xFE -- typed Char run whose second element is out of range
	wire := []byte{0x5B, 0x24, 0x43, 0x23, 0x69, 0x02, 0x61, 0xFE}
	_, _, err := DecodeFromBytes(wire, DefaultDecodeConfig())
	require.Error(t, err)
	var df *DecoderFailure
	require.ErrorAs(t, err, &df)
	assert.Equal(t, ErrBadUTF8, df.Kind)
}
