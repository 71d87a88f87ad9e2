//go:build test

package ubjson

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeHex(t *testing.T, v Value, cfg EncodeConfig) []byte {
	t.Helper()
	var buf bytes.Buffer
	sink, err := NewSink(&buf)
	require.NoError(t, err)
	require.NoError(t, Encode(sink, v, cfg))
	require.NoError(t, sink.Flush())
	return buf.Bytes()
}

func TestEncodeScenarios(t *testing.T) {
	cfg := DefaultEncodeConfig()

	cases := []struct {
		name string
		v    Value
		want []byte
	}{
		{"E1 int zero", Int(0), []byte{0x69, 0x00}},
		{"E2 int 255 narrows to uint8", Int(255), []byte{0x55, 0xFF}},
		{"E3 int 65535 narrows to int32", Int(65535), []byte{0x6C, 0x00, 0x00, 0xFF, 0xFF}},
		{
			"E5 bytes as typed uint8 array",
			Bytes([]byte{0x01, 0x02}),
			[]byte{0x5B, 0x24, 0x55, 0x23, 0x69, 0x02, 0x01, 0x02},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := encodeHex(t, c.v, cfg)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestEncodeObjectInsertionOrder(t *testing.T) {
	v := Object([]Pair{{Key: "a", Val: Int(1)}, {Key: "b", Val: Int(2)}})
	want := []byte{0x7B, 0x69, 0x01, 0x61, 0x69, 0x01, 0x69, 0x01, 0x62, 0x69, 0x02, 0x7D}
	got := encodeHex(t, v, DefaultEncodeConfig())
	assert.Equal(t, want, got)
}

// ContainerCount emits the count marker '#' before the count integer, never
// after — the count integer carries its own type marker just like any other
// scalar, and there is no closing bracket (§4.4).
func TestEncodeContainerCountArray(t *testing.T) {
	cfg := DefaultEncodeConfig()
	cfg.ContainerCount = true
	v := Array([]Value{Int(1), Int(2)})
	want := []byte{
		0x5B,       // [
		0x23,       // #
		0x69, 0x02, // count = 2, int8
		0x69, 0x01, // element 0
		0x69, 0x02, // element 1
	}
	got := encodeHex(t, v, cfg)
	assert.Equal(t, want, got)
}

func TestEncodeContainerCountObject(t *testing.T) {
	cfg := DefaultEncodeConfig()
	cfg.ContainerCount = true
	v := Object([]Pair{{Key: "a", Val: Int(1)}, {Key: "b", Val: Int(2)}})
	want := []byte{
		0x7B,       // {
		0x23,       // #
		0x69, 0x02, // count = 2, int8
		0x69, 0x01, 0x61, 0x69, 0x01, // "a": 1
		0x69, 0x01, 0x62, 0x69, 0x02, // "b": 2
	}
	got := encodeHex(t, v, cfg)
	assert.Equal(t, want, got)
}

func TestEncodeContainerCountRoundTrip(t *testing.T) {
	cfg := DefaultEncodeConfig()
	cfg.ContainerCount = true
	v := Array([]Value{Int(1), Int(2)})
	buf := encodeHex(t, v, cfg)

	got, n, err := DecodeFromBytes(buf, DefaultDecodeConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(len(buf)), n)
	assert.True(t, v.Equal(got))
}

// cycleNode is a self-referential Sequence used to exercise the encoder's
// ancestor-stack cycle check, which keys on pointer identity (§9 Design
// Notes).
type cycleNode struct {
	children []*cycleNode
}

func (n *cycleNode) Len() int        { return len(n.children) }
func (n *cycleNode) Index(i int) any { return n.children[i] }

func TestEncodeCyclicValueFails(t *testing.T) {
	root := &cycleNode{}
	root.children = []*cycleNode{root}

	var buf bytes.Buffer
	sink, err := NewSink(&buf)
	require.NoError(t, err)

	err = Encode(sink, root, DefaultEncodeConfig())
	require.Error(t, err)
	var ef *EncoderFailure
	require.ErrorAs(t, err, &ef)
	assert.Equal(t, ErrUnsupportedType, ef.Kind)
}

func TestEncodeDefaultHandlerChainExhaustion(t *testing.T) {
	type wrapper struct{ n int }

	var buf bytes.Buffer
	sink, err := NewSink(&buf)
	require.NoError(t, err)

	cfg := DefaultEncodeConfig()
	cfg.DefaultHandler = func(v any) (any, error) {
		w := v.(wrapper)
		return wrapper{n: w.n + 1}, nil
	}
	err = Encode(sink, wrapper{}, cfg)
	require.Error(t, err)
	var ef *EncoderFailure
	require.ErrorAs(t, err, &ef)
	assert.Equal(t, ErrRecursionViaDefault, ef.Kind)
}

func TestEncodeDefaultHandlerResolvesToNativeScalar(t *testing.T) {
	type wrapped struct{ inner int }

	var buf bytes.Buffer
	sink, err := NewSink(&buf)
	require.NoError(t, err)

	cfg := DefaultEncodeConfig()
	cfg.DefaultHandler = func(v any) (any, error) {
		w := v.(wrapped)
		return int64(w.inner), nil
	}
	require.NoError(t, Encode(sink, wrapped{inner: 5}, cfg))
	require.NoError(t, sink.Flush())
	assert.Equal(t, []byte{0x69, 0x05}, buf.Bytes())
}
