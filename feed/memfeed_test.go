package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert := assert.New(t)

	k, err := NewKey()
	require.NoError(t, err)
	assert.Len(k.String(), KeySize*2)

	parsed, err := ParseKey(k.String())
	assert.NoError(err)
	assert.Equal(k, parsed)

	_, err = ParseKey("abcd")
	assert.Error(err)
	_, err = ParseKey("zz")
	assert.Error(err)
}

func TestMemFeed(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	k, err := NewKey()
	require.NoError(t, err)
	mf := NewMemFeed(k, true)
	assert.NoError(mf.Ready(ctx))
	assert.True(mf.Writable())
	assert.Equal(uint64(0), mf.Len())

	assert.NoError(mf.Append(ctx, []byte("a"), []byte("b")))
	assert.NoError(mf.Append(ctx, []byte("c")))
	assert.Equal(uint64(3), mf.Len())

	b, err := mf.Get(ctx, 1)
	assert.NoError(err)
	assert.Equal([]byte("b"), b)

	_, err = mf.Get(ctx, 3)
	assert.True(errors.Is(err, ErrOutOfRange))

	ro := mf.ReadOnly()
	assert.False(ro.Writable())
	assert.Equal(uint64(3), ro.Len())
	assert.True(errors.Is(ro.Append(ctx, []byte("x")), ErrNotWritable))

	assert.NoError(mf.Close())
	assert.True(errors.Is(mf.Ready(ctx), ErrClosed))
	_, err = mf.Get(ctx, 0)
	assert.True(errors.Is(err, ErrClosed))
}

func TestMemFeedImport(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	k, err := NewKey()
	require.NoError(t, err)
	replica := NewMemFeed(k, false)

	assert.NoError(replica.Import(ctx, 0, []byte("h")))
	assert.NoError(replica.Import(ctx, 1, []byte("n")))
	assert.True(errors.Is(replica.Import(ctx, 5, []byte("x")), ErrNonContiguous))
	assert.Equal(uint64(2), replica.Len())

	writer := NewMemFeed(k, true)
	assert.Error(writer.Import(ctx, 0, []byte("h")))
}
