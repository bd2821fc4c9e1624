package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bluesky-social/causalkv/feed"
	"github.com/bluesky-social/causalkv/keypath"
	"github.com/bluesky-social/causalkv/node"
	"github.com/bluesky-social/causalkv/replication"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFeed(t *testing.T, writable bool) *feed.MemFeed {
	k, err := feed.NewKey()
	require.NoError(t, err)
	return feed.NewMemFeed(k, writable)
}

func openStore(t *testing.T, opts *Options, feeds ...feed.Feed) *DB {
	db := Open(feeds, opts)
	require.NoError(t, db.Ready(context.Background()))
	return db
}

func values(t *testing.T, db *DB, key string) []string {
	nodes, err := db.Get(context.Background(), key)
	require.NoError(t, err)
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = string(n.Value)
	}
	return out
}

// pairedStores returns two stores over the same pair of feeds, each writing one of them. Writes on
// either side are visible to the other immediately.
func pairedStores(t *testing.T) (*DB, *DB, *feed.MemFeed, *feed.MemFeed) {
	w1 := memFeed(t, true)
	w2 := memFeed(t, true)
	db1 := openStore(t, nil, w1, w2.ReadOnly())
	db2 := openStore(t, nil, w1.ReadOnly(), w2)
	return db1, db2, w1, w2
}

// replicatedStores returns two stores with separate copies of each other's feeds. Writes only cross
// over through sync.
func replicatedStores(t *testing.T, opts *Options) (*DB, *DB) {
	w1 := memFeed(t, true)
	w2 := memFeed(t, true)
	db1 := openStore(t, opts, w1, feed.NewMemFeed(w2.Key(), false))
	db2 := openStore(t, opts, feed.NewMemFeed(w1.Key(), false), w2)
	return db1, db2
}

func syncStores(t *testing.T, a, b *DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sa, err := a.Replicate(ctx, replication.Options{})
	require.NoError(t, err)
	sb, err := b.Replicate(ctx, replication.Options{})
	require.NoError(t, err)
	require.NoError(t, replication.Pipe(ctx, sa, sb))
}

func TestRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db := openStore(t, nil, memFeed(t, true))
	assert.True(db.Readable())
	assert.True(db.Writable())

	_, err := db.Get(ctx, "missing")
	assert.True(errors.Is(err, ErrNotFound))

	require.NoError(t, db.Put(ctx, "hello", []byte("world")))
	assert.Equal([]string{"world"}, values(t, db, "hello"))

	vals, err := db.GetValues(ctx, "hello")
	require.NoError(t, err)
	assert.Equal([]any{[]byte("world")}, vals)

	_, err = db.Get(ctx, "missing")
	assert.True(errors.Is(err, ErrNotFound))
}

func TestManyKeys(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db := openStore(t, nil, memFeed(t, true))
	for i := 0; i < 200; i++ {
		require.NoError(t, db.Put(ctx, fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("val-%d", i))))
	}
	for i := 0; i < 200; i++ {
		assert.Equal([]string{fmt.Sprintf("val-%d", i)}, values(t, db, fmt.Sprintf("key-%d", i)))
	}
	_, err := db.Get(ctx, "key-200")
	assert.True(errors.Is(err, ErrNotFound))
}

func TestHeaderSlot(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	w := memFeed(t, true)
	db := openStore(t, nil, w)
	require.NoError(t, db.Put(ctx, "a", []byte("1")))

	assert.Equal(uint64(2), w.Len())

	raw, err := w.Get(ctx, 0)
	require.NoError(t, err)
	h, err := node.DecodeHeader(raw)
	require.NoError(t, err)
	assert.Equal(node.NewHeader(), h)

	raw, err = w.Get(ctx, 1)
	require.NoError(t, err)
	n, err := node.Decode(raw)
	require.NoError(t, err)
	assert.Equal(uint64(1), n.Seq)

	require.NoError(t, db.Put(ctx, "b", []byte("2")))
	assert.Equal(uint64(3), w.Len())
	raw, err = w.Get(ctx, 2)
	require.NoError(t, err)
	n, err = node.Decode(raw)
	require.NoError(t, err)
	assert.Equal(uint64(2), n.Seq)
}

func TestTwoWriterScenario(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db1, _, w1, w2 := pairedStores(t)
	self := w1.Key().String()

	require.NoError(t, db1.Put(ctx, "a", []byte("1")))

	n1, err := db1.Get(ctx, "a")
	require.NoError(t, err)
	require.Len(t, n1, 1)
	assert.Equal(uint64(1), n1[0].Seq)
	assert.Len(n1[0].Pointers, keypath.Len)
	for _, b := range n1[0].Pointers {
		assert.Equal([]node.Pointer{{Feed: self, Seq: 1}}, b)
	}
	assert.Equal([]node.Head{{Feed: w2.Key().String(), Length: 0}}, n1[0].Heads)
	assert.Equal([]string{"1"}, values(t, db1, "a"))

	require.NoError(t, db1.Put(ctx, "a", []byte("2")))

	n2, err := db1.Get(ctx, "a")
	require.NoError(t, err)
	require.Len(t, n2, 1)
	assert.Equal(uint64(2), n2[0].Seq)
	for d, b := range n2[0].Pointers {
		// seq 1 had the same key, so only the self reference remains
		require.Len(t, b, 1)
		assert.Equal(self, b[0].Feed)
		assert.Equal(uint64(2), b[0].Seq)
		assert.Equal(node.DigitAt(n2[0].Path(), d), b[0].Digit)
	}
	assert.Equal([]string{"2"}, values(t, db1, "a"))
}

func TestSameWriterDominance(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db1, db2, _, _ := pairedStores(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, db1.Put(ctx, "k", []byte(fmt.Sprintf("v%d", i))))
		require.NoError(t, db2.Put(ctx, fmt.Sprintf("other-%d", i), []byte("x")))
	}
	assert.Equal([]string{"v9"}, values(t, db1, "k"))
	assert.Equal([]string{"v9"}, values(t, db2, "k"))
}

func TestCausalOverwrite(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db1, db2, _, _ := pairedStores(t)
	require.NoError(t, db1.Put(ctx, "k", []byte("from-1")))
	// db2 observes db1's write through its heads, so it supersedes it
	require.NoError(t, db2.Put(ctx, "k", []byte("from-2")))

	assert.Equal([]string{"from-2"}, values(t, db1, "k"))
	assert.Equal([]string{"from-2"}, values(t, db2, "k"))

	require.NoError(t, db1.Put(ctx, "k", []byte("from-1-again")))
	assert.Equal([]string{"from-1-again"}, values(t, db2, "k"))
}

func TestConflictSurfacing(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db1, db2 := replicatedStores(t, nil)
	require.NoError(t, db1.Put(ctx, "k", []byte("one")))
	require.NoError(t, db2.Put(ctx, "k", []byte("two")))
	require.NoError(t, db1.Put(ctx, "unrelated", []byte("x")))

	assert.Equal([]string{"one"}, values(t, db1, "k"))
	assert.Equal([]string{"two"}, values(t, db2, "k"))

	syncStores(t, db1, db2)

	v1 := values(t, db1, "k")
	v2 := values(t, db2, "k")
	assert.ElementsMatch([]string{"one", "two"}, v1)
	assert.ElementsMatch([]string{"one", "two"}, v2)
	assert.Equal([]string{"x"}, values(t, db2, "unrelated"))

	// a write that has seen both resolves the conflict
	require.NoError(t, db2.Put(ctx, "k", []byte("merged")))
	assert.Equal([]string{"merged"}, values(t, db2, "k"))
	syncStores(t, db1, db2)
	assert.Equal([]string{"merged"}, values(t, db1, "k"))
}

func TestConflictReduce(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// keep the lexically largest value
	opts := DefaultOptions()
	opts.Reduce = func(a, b *node.Node) *node.Node {
		if string(b.Value) > string(a.Value) {
			return b
		}
		return a
	}

	db1, db2 := replicatedStores(t, opts)
	require.NoError(t, db1.Put(ctx, "k", []byte("apple")))
	require.NoError(t, db2.Put(ctx, "k", []byte("banana")))
	syncStores(t, db1, db2)

	assert.Equal([]string{"banana"}, values(t, db1, "k"))
	assert.Equal([]string{"banana"}, values(t, db2, "k"))
}

func TestReadIdempotence(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db1, db2 := replicatedStores(t, nil)
	require.NoError(t, db1.Put(ctx, "k", []byte("one")))
	require.NoError(t, db2.Put(ctx, "k", []byte("two")))
	syncStores(t, db1, db2)

	first, err := db1.Get(ctx, "k")
	require.NoError(t, err)
	second, err := db1.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(first, second)
}

func TestMapOption(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	opts := DefaultOptions()
	opts.Map = func(n *node.Node) any {
		return n.Key + "=" + string(n.Value)
	}
	db := openStore(t, opts, memFeed(t, true))
	require.NoError(t, db.Put(ctx, "a", []byte("1")))

	vals, err := db.GetValues(ctx, "a")
	require.NoError(t, err)
	assert.Equal([]any{"a=1"}, vals)
}

func TestNoWritableLog(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	w := memFeed(t, true)
	db := openStore(t, nil, w.ReadOnly())
	assert.True(db.Readable())
	assert.False(db.Writable())

	err := db.Put(ctx, "a", []byte("1"))
	assert.True(errors.Is(err, ErrNoWritableLog))

	_, ok := db.LocalKey()
	assert.False(ok)
}

func TestNoFeeds(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db := Open(nil, nil)
	assert.False(db.Readable())
	assert.True(errors.Is(db.Ready(ctx), ErrNoFeeds))

	_, err := db.Get(ctx, "a")
	assert.True(errors.Is(err, ErrNoFeeds))
}

func TestFirstWritableWins(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	ro := memFeed(t, true).ReadOnly()
	first := memFeed(t, true)
	second := memFeed(t, true)
	db := openStore(t, nil, ro, first, second)

	k, ok := db.LocalKey()
	assert.True(ok)
	assert.Equal(first.Key(), k)

	require.NoError(t, db.Put(ctx, "a", []byte("1")))
	assert.Equal(uint64(2), first.Len())
	assert.Equal(uint64(0), second.Len())
}

func TestIncompatibleFeed(t *testing.T) {
	ctx := context.Background()

	w := memFeed(t, true)
	require.NoError(t, w.Append(ctx, []byte("not a header")))

	db := Open([]feed.Feed{w}, nil)
	assert.True(t, errors.Is(db.Ready(ctx), ErrIncompatibleFeed))
}

var errBoom = errors.New("boom")

// faultyFeed fails every node read.
type faultyFeed struct {
	*feed.MemFeed
}

func (ff *faultyFeed) Get(ctx context.Context, seq uint64) ([]byte, error) {
	if seq == 0 {
		return ff.MemFeed.Get(ctx, seq)
	}
	return nil, errBoom
}

func TestFanOutError(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	w1 := memFeed(t, true)
	w2 := memFeed(t, true)
	db1 := openStore(t, nil, w1)
	db2 := openStore(t, nil, w2)
	require.NoError(t, db1.Put(ctx, "a", []byte("1")))
	require.NoError(t, db2.Put(ctx, "b", []byte("2")))

	db := openStore(t, nil, w1.ReadOnly(), &faultyFeed{w2.ReadOnly()})
	_, err := db.Get(ctx, "a")
	assert.True(errors.Is(err, errBoom))

	_, err = db.List(ctx, nil)
	assert.True(errors.Is(err, errBoom))
}

func TestUnreplicatedPointers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db1, db2, w1, _ := pairedStores(t)
	require.NoError(t, db2.Put(ctx, "x", []byte("from-2")))
	require.NoError(t, db1.Put(ctx, "y", []byte("from-1")))

	// a store that only knows w1 still resolves w1's own writes
	partial := openStore(t, nil, w1.ReadOnly())
	assert.Equal([]string{"from-1"}, values(t, partial, "y"))

	_, err := partial.Get(ctx, "x")
	assert.True(errors.Is(err, ErrNotFound))
}

func TestClose(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	w := memFeed(t, true)
	db := openStore(t, nil, w)
	require.NoError(t, db.Put(ctx, "a", []byte("1")))

	require.NoError(t, db.Close(ctx))
	assert.False(db.Readable())
	assert.False(db.Writable())

	_, err := db.Get(ctx, "a")
	assert.True(errors.Is(err, ErrClosed))
	assert.True(errors.Is(db.Put(ctx, "a", []byte("2")), ErrClosed))

	_, err = w.Get(ctx, 1)
	assert.True(errors.Is(err, feed.ErrClosed))

	// closing twice is a no-op
	assert.NoError(db.Close(ctx))
}

func TestPutLimits(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db := openStore(t, nil, memFeed(t, true))

	err := db.Put(ctx, "big", make([]byte, node.MaxValueLength+1))
	assert.True(errors.Is(err, ErrValueTooLarge))

	err = db.Put(ctx, string(make([]byte, node.MaxKeyLength+1)), []byte("v"))
	assert.True(errors.Is(err, ErrKeyTooLong))

	_, err = db.Get(ctx, "big")
	assert.True(errors.Is(err, ErrNotFound))

	require.NoError(t, db.Put(ctx, "big", make([]byte, node.MaxValueLength)))
	nodes, err := db.Get(ctx, "big")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Len(nodes[0].Value, node.MaxValueLength)
}

func TestConcurrentPuts(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	w := memFeed(t, true)
	db := openStore(t, nil, w)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(db.Put(ctx, fmt.Sprintf("k%d", i), []byte(fmt.Sprintf("v%d", i))))
		}()
	}
	wg.Wait()

	// header plus one node per put, with no seq reused
	assert.Equal(uint64(33), w.Len())
	for i := 0; i < 32; i++ {
		assert.Equal([]string{fmt.Sprintf("v%d", i)}, values(t, db, fmt.Sprintf("k%d", i)))
	}
}

func TestReadyShared(t *testing.T) {
	ctx := context.Background()

	db := Open([]feed.Feed{memFeed(t, true)}, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, db.Ready(ctx))
		}()
	}
	wg.Wait()
	assert.True(t, db.Writable())
}
