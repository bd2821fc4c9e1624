package node

import (
	"bytes"
	"testing"

	"github.com/bluesky-social/causalkv/keypath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode() *Node {
	p := keypath.Derive("hello")
	pointers := make([][]Pointer, len(p))
	for i := range p {
		pointers[i] = []Pointer{
			{Feed: "bbbb", Seq: 3, Digit: DigitAt(keypath.Derive("other"), i)},
			{Feed: "aaaa", Seq: 7, Digit: DigitAt(p, i)},
		}
	}
	return New("aaaa", 7, p, pointers, []byte("world"), []Head{{Feed: "bbbb", Length: 4}})
}

func TestNodeEncoding(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	n := testNode()
	raw, err := Encode(n)
	require.NoError(err)

	out, err := Decode(raw)
	require.NoError(err)
	assert.Equal(n.Feed, out.Feed)
	assert.Equal(n.Seq, out.Seq)
	assert.Equal(n.Key, out.Key)
	assert.Equal(n.Value, out.Value)
	assert.Equal(n.Heads, out.Heads)
	assert.Equal(n.Pointers, out.Pointers)
	assert.Equal(n.Path(), out.Path())

	// terminal bucket carries no digit
	last := out.Bucket(keypath.Digits)
	require.Len(last, 2)
	assert.Nil(last[1].Digit)
	assert.NotNil(out.Bucket(0)[1].Digit)
	assert.Nil(out.Bucket(keypath.Len))

	// stable encoding
	again, err := Encode(out)
	require.NoError(err)
	assert.True(bytes.Equal(raw, again))
}

func TestNodeDecodeInvalidPath(t *testing.T) {
	n := testNode()
	n.Digits = n.Digits[:4]
	raw, err := Encode(n)
	require.NoError(t, err)

	_, err = Decode(raw)
	assert.Error(t, err)
}

func TestHeader(t *testing.T) {
	assert := assert.New(t)

	raw, err := EncodeHeader(NewHeader())
	assert.NoError(err)
	h, err := DecodeHeader(raw)
	assert.NoError(err)
	assert.Equal(SchemaType, h.Type)
	assert.Equal(uint64(SchemaVersion), h.Version)

	_, err = DecodeHeader([]byte{0x01})
	assert.Error(err)
}

func TestHeadLength(t *testing.T) {
	assert := assert.New(t)

	n := testNode()
	l, ok := n.HeadLength("bbbb")
	assert.True(ok)
	assert.Equal(uint64(4), l)
	_, ok = n.HeadLength("cccc")
	assert.False(ok)

	ref := n.Ref(keypath.Digits)
	assert.Equal("aaaa", ref.Feed)
	assert.Equal(uint64(7), ref.Seq)
	assert.Nil(ref.Digit)
}
