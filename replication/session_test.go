package replication

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bluesky-social/causalkv/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) feed.Key {
	k, err := feed.NewKey()
	require.NoError(t, err)
	return k
}

func fill(t *testing.T, f *feed.MemFeed, n int) {
	for i := 0; i < n; i++ {
		require.NoError(t, f.Append(context.Background(), []byte(fmt.Sprintf("entry-%d", i))))
	}
}

func TestFrameRoundTrip(t *testing.T) {
	assert := assert.New(t)

	buf := new(bytes.Buffer)
	in := &Message{
		Type:          MsgHello,
		ExpectedFeeds: 2,
		Feeds:         []FeedInfo{{Key: "aa", Length: 3}, {Key: "bb", Length: 0}},
	}
	require.NoError(t, writeFrame(buf, in))
	require.NoError(t, writeFrame(buf, &Message{Type: MsgData, Feed: "aa", Seq: 2, Entry: []byte{1, 2}}))

	r := bufio.NewReader(buf)
	out, err := readFrame(r)
	require.NoError(t, err)
	assert.Equal(in, out)

	out, err = readFrame(r)
	require.NoError(t, err)
	assert.Equal(MsgData, out.Type)
	assert.Equal(uint64(2), out.Seq)
	assert.Equal([]byte{1, 2}, out.Entry)
}

func TestSessionSync(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ka, kb := newKey(t), newKey(t)

	// store A writes feed a and replicates b; store B is the mirror image
	aWriter := feed.NewMemFeed(ka, true)
	aReplica := feed.NewMemFeed(kb, false)
	bWriter := feed.NewMemFeed(kb, true)
	bReplica := feed.NewMemFeed(ka, false)

	fill(t, aWriter, 5)
	fill(t, bWriter, 3)

	sa := NewSession(ctx, Options{ExpectedFeeds: 2})
	require.NoError(t, sa.Attach(aWriter))
	require.NoError(t, sa.Attach(aReplica))

	sb := NewSession(ctx, Options{ExpectedFeeds: 2})
	require.NoError(t, sb.Attach(bReplica))
	require.NoError(t, sb.Attach(bWriter))

	require.NoError(t, Pipe(ctx, sa, sb))

	assert.Equal(uint64(5), bReplica.Len())
	assert.Equal(uint64(3), aReplica.Len())

	e, err := bReplica.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal([]byte("entry-4"), e)
}

func TestSessionIncremental(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	k := newKey(t)
	w := feed.NewMemFeed(k, true)
	r := feed.NewMemFeed(k, false)

	sync := func() {
		sa := NewSession(ctx, Options{})
		require.NoError(t, sa.Attach(w))
		sb := NewSession(ctx, Options{})
		require.NoError(t, sb.Attach(r))
		require.NoError(t, Pipe(ctx, sa, sb))
	}

	fill(t, w, 2)
	sync()
	assert.Equal(uint64(2), r.Len())

	// nothing new
	sync()
	assert.Equal(uint64(2), r.Len())

	fill(t, w, 3)
	sync()
	assert.Equal(uint64(5), r.Len())
}

func TestSessionFeedCountMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sa := NewSession(ctx, Options{ExpectedFeeds: 1})
	require.NoError(t, sa.Attach(feed.NewMemFeed(newKey(t), true)))

	sb := NewSession(ctx, Options{ExpectedFeeds: 2})
	require.NoError(t, sb.Attach(feed.NewMemFeed(newKey(t), true)))
	require.NoError(t, sb.Attach(feed.NewMemFeed(newKey(t), true)))

	err := Pipe(ctx, sa, sb)
	assert.True(t, errors.Is(err, ErrFeedCountMismatch), "got %v", err)
}

func TestSessionAttach(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	k := newKey(t)
	s := NewSession(ctx, Options{ExpectedFeeds: 1})
	defer s.Close()

	assert.NoError(s.Attach(feed.NewMemFeed(k, true)))
	assert.True(errors.Is(s.Attach(feed.NewMemFeed(newKey(t), true)), ErrFeedCountMismatch))
}

func TestSessionClose(t *testing.T) {
	ctx := context.Background()

	s := NewSession(ctx, Options{ExpectedFeeds: 2})
	require.NoError(t, s.Close())
	assert.True(t, errors.Is(s.Wait(ctx), ErrSessionClosed))
}
