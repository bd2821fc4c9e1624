package pebblefeed

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/bluesky-social/causalkv/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedsPersist(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "feeds.pebble")

	db, err := Open(path, nil)
	require.NoError(t, err)

	w, err := db.Create(ctx, true)
	require.NoError(t, err)
	rk, err := feed.NewKey()
	require.NoError(t, err)
	r, err := db.Add(ctx, rk, false)
	require.NoError(t, err)

	_, err = db.Add(ctx, rk, false)
	assert.Error(err)

	require.NoError(t, w.Ready(ctx))
	require.NoError(t, r.Ready(ctx))

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Append(ctx, []byte(fmt.Sprintf("w%d", i))))
	}
	require.NoError(t, w.Append(ctx, []byte("x"), []byte("y")))
	assert.Equal(uint64(7), w.Len())

	assert.True(errors.Is(r.Append(ctx, []byte("no")), feed.ErrNotWritable))
	assert.True(errors.Is(r.Import(ctx, 2, []byte("no")), feed.ErrNonContiguous))
	require.NoError(t, r.Import(ctx, 0, []byte("r0")))
	assert.Error(w.Import(ctx, 7, []byte("no")))

	_, err = w.Get(ctx, 7)
	assert.True(errors.Is(err, feed.ErrOutOfRange))

	require.NoError(t, db.Close())

	db, err = Open(path, nil)
	require.NoError(t, err)
	defer db.Close()

	feeds, err := db.Feeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	assert.Equal(w.Key(), feeds[0].Key())
	assert.True(feeds[0].Writable())
	assert.Equal(rk, feeds[1].Key())
	assert.False(feeds[1].Writable())

	w2 := feeds[0]
	require.NoError(t, w2.Ready(ctx))
	assert.Equal(uint64(7), w2.Len())
	e, err := w2.Get(ctx, 6)
	require.NoError(t, err)
	assert.Equal([]byte("y"), e)

	require.NoError(t, feeds[1].Ready(ctx))
	assert.Equal(uint64(1), feeds[1].Len())

	require.NoError(t, w2.Close())
	_, err = w2.Get(ctx, 0)
	assert.True(errors.Is(err, feed.ErrClosed))
}
