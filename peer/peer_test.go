package peer

import (
	"context"
	"errors"
	"testing"

	"github.com/bluesky-social/causalkv/feed"
	"github.com/bluesky-social/causalkv/keypath"
	"github.com/bluesky-social/causalkv/node"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendNode(t *testing.T, f *feed.MemFeed, key string, value string) *node.Node {
	ctx := context.Background()
	var entries [][]byte
	if f.Len() == 0 {
		h, err := node.EncodeHeader(node.NewHeader())
		require.NoError(t, err)
		entries = append(entries, h)
	}
	seq := max(f.Len(), 1)
	p := keypath.Derive(key)
	n := node.New(f.Key().String(), seq, p, make([][]node.Pointer, len(p)), []byte(value), nil)
	raw, err := node.Encode(n)
	require.NoError(t, err)
	entries = append(entries, raw)
	require.NoError(t, f.Append(ctx, entries...))
	return n
}

func newFeed(t *testing.T) *feed.MemFeed {
	k, err := feed.NewKey()
	require.NoError(t, err)
	return feed.NewMemFeed(k, true)
}

func TestPeerHead(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := newFeed(t)
	p, err := New(f)
	require.NoError(t, err)
	assert.Equal(f.Key().String(), p.Key())

	head, err := p.Head(ctx)
	assert.NoError(err)
	assert.Nil(head)
	assert.NoError(p.CheckHeader(ctx))

	appendNode(t, f, "a", "1")
	assert.Equal(uint64(2), f.Len())
	head, err = p.Head(ctx)
	require.NoError(t, err)
	assert.Equal(uint64(1), head.Seq)
	assert.Equal("a", head.Key)
	assert.Equal(keypath.Derive("a"), head.Path())

	appendNode(t, f, "b", "2")
	head, err = p.Head(ctx)
	require.NoError(t, err)
	assert.Equal(uint64(2), head.Seq)
	assert.Equal([]byte("2"), head.Value)

	n, err := p.Get(ctx, 1)
	assert.NoError(err)
	assert.Equal("a", n.Key)

	// second read is served from the cache and returns the same node
	again, err := p.Get(ctx, 1)
	assert.NoError(err)
	assert.Same(n, again)

	_, err = p.Get(ctx, 0)
	assert.True(errors.Is(err, ErrSchemaEntry))

	_, err = p.Get(ctx, 9)
	assert.True(errors.Is(err, feed.ErrOutOfRange))

	assert.NoError(p.CheckHeader(ctx))
}

func TestPeerNoCache(t *testing.T) {
	ctx := context.Background()
	f := newFeed(t)
	appendNode(t, f, "a", "1")

	p, err := New(f, WithCacheSize(0))
	require.NoError(t, err)
	n1, err := p.Get(ctx, 1)
	require.NoError(t, err)
	n2, err := p.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotSame(t, n1, n2)
	assert.Equal(t, n1.Key, n2.Key)
}

func TestPeerBadHeader(t *testing.T) {
	ctx := context.Background()
	f := newFeed(t)
	raw, err := node.EncodeHeader(&node.Header{Type: "something-else", Version: 0})
	require.NoError(t, err)
	require.NoError(t, f.Append(ctx, raw))

	p, err := New(f)
	require.NoError(t, err)
	assert.True(t, errors.Is(p.CheckHeader(ctx), ErrIncompatibleSchema))
}

func TestPeerCorruptEntry(t *testing.T) {
	ctx := context.Background()
	f := newFeed(t)
	appendNode(t, f, "a", "1")

	// a node that claims to live at a different position
	p := keypath.Derive("b")
	raw, err := node.Encode(node.New(f.Key().String(), 7, p, nil, nil, nil))
	require.NoError(t, err)
	require.NoError(t, f.Append(ctx, raw))

	pr, err := New(f)
	require.NoError(t, err)
	_, err = pr.Get(ctx, 2)
	assert.True(t, errors.Is(err, ErrCorruptEntry))
}
