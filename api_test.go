//go:build test

package ubjson

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeToBytesDecodeFromBytesRoundTrip(t *testing.T) {
	v := Object([]Pair{
		{Key: "name", Val: String("gopher")},
		{Key: "count", Val: Int(3)},
		{Key: "tags", Val: Array([]Value{String("a"), String("b")})},
	})

	data, err := EncodeToBytes(v, DefaultEncodeConfig())
	require.NoError(t, err)

	got, n, err := DecodeFromBytes(data, DefaultDecodeConfig())
	require.NoError(t, err)
	assert.EqualValues(t, len(data), n)
	assert.True(t, v.Equal(got))
}

func TestEncodeToStreamDecodeFromStreamRoundTrip(t *testing.T) {
	v := Array([]Value{Int(1), Bool(true), Null(), String("hi")})

	var buf bytes.Buffer
	require.NoError(t, EncodeToStream(&buf, v, DefaultEncodeConfig()))

	got, err := DecodeFromStream(&buf, DefaultDecodeConfig())
	require.NoError(t, err)
	assert.True(t, v.Equal(got))
}

func TestDecodeFromBytesToleratesTrailingData(t *testing.T) {
	data, err := EncodeToBytes(Int(7), DefaultEncodeConfig())
	require.NoError(t, err)
	data = append(data, 0xDE, 0xAD, 0xBE, 0xEF)

	got, n, err := DecodeFromBytes(data, DefaultDecodeConfig())
	require.NoError(t, err)
	assert.True(t, Int(7).Equal(got))
	assert.Less(t, n, int64(len(data)))
}

func TestDecodeFromStreamStopsAfterRootValue(t *testing.T) {
	first, err := EncodeToBytes(Int(1), DefaultEncodeConfig())
	require.NoError(t, err)
	second, err := EncodeToBytes(Int(2), DefaultEncodeConfig())
	require.NoError(t, err)

	stream := bytes.NewReader(append(append([]byte{}, first...), second...))

	got1, err := DecodeFromStream(stream, DefaultDecodeConfig())
	require.NoError(t, err)
	assert.True(t, Int(1).Equal(got1))

	got2, err := DecodeFromStream(stream, DefaultDecodeConfig())
	require.NoError(t, err)
	assert.True(t, Int(2).Equal(got2))
}
