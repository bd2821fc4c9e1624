// Package kvstore implements a multi-writer key/value store over a set of append-only feeds.
//
// Every Put appends one immutable node to the local writer's feed. A node records its key's trie path,
// pointer buckets referencing the nodes it diverges from at each depth, and the lengths of the other
// feeds it had observed. Reads start from the newest node of every feed, descend the trie through
// the recorded pointers, and keep only the causally newest candidates. Concurrent writes to the same
// key surface as multiple results unless a Reduce function is configured.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/bluesky-social/causalkv/feed"
	"github.com/bluesky-social/causalkv/internal/group"
	"github.com/bluesky-social/causalkv/keypath"
	"github.com/bluesky-social/causalkv/node"
	"github.com/bluesky-social/causalkv/peer"
	"github.com/bluesky-social/causalkv/replication"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
)

var tracer = otel.Tracer("kvstore")

type DB struct {
	feeds   []feed.Feed
	opts    Options
	hashKey keypath.HashKey
	log     *slog.Logger

	// set once Ready completes
	peers      []*peer.Peer
	peersByKey map[string]*peer.Peer
	writer     *peer.Peer

	openOnce sync.Once
	opened   chan struct{}
	openErr  error

	// serializes Put and Close
	gate *semaphore.Weighted

	lk     sync.RWMutex
	closed bool
}

// Open returns a store over feeds. Feeds are loaded in the background; every operation waits for that
// to finish. A nil opts uses DefaultOptions.
func Open(feeds []feed.Feed, opts *Options) *DB {
	if opts == nil {
		opts = DefaultOptions()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default().With("system", "kvstore")
	}

	db := &DB{
		feeds:   feeds,
		opts:    *opts,
		hashKey: opts.HashKey,
		log:     log,
		opened:  make(chan struct{}),
		gate:    semaphore.NewWeighted(1),
	}
	if db.opts.CacheSize == 0 {
		db.opts.CacheSize = peer.DefaultCacheSize
	}
	return db
}

// Ready blocks until the store has opened, returning the shared outcome. The open sequence runs once;
// ctx only bounds how long this caller waits for it.
func (db *DB) Ready(ctx context.Context) error {
	db.openOnce.Do(func() {
		go func() {
			defer close(db.opened)
			db.openErr = db.open(context.Background())
		}()
	})

	select {
	case <-db.opened:
		return db.openErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (db *DB) open(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "open")
	defer span.End()

	if len(db.feeds) == 0 {
		return ErrNoFeeds
	}

	g := group.New(group.WithContext(ctx), group.Settle())
	for _, f := range db.feeds {
		g.Add(func(ctx context.Context) error {
			if err := f.Ready(ctx); err != nil {
				return fmt.Errorf("feed %s not ready: %w", f.Key(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	peers := make([]*peer.Peer, 0, len(db.feeds))
	byKey := make(map[string]*peer.Peer, len(db.feeds))
	for _, f := range db.feeds {
		p, err := peer.New(f, peer.WithCacheSize(db.opts.CacheSize), peer.WithLogger(db.log))
		if err != nil {
			return err
		}
		if err := p.CheckHeader(ctx); err != nil {
			return fmt.Errorf("feed %s: %w", p.Key(), err)
		}
		if _, ok := byKey[p.Key()]; ok {
			return fmt.Errorf("feed %s configured twice", p.Key())
		}
		peers = append(peers, p)
		byKey[p.Key()] = p
	}

	var writers []*peer.Peer
	for _, p := range peers {
		if p.Feed().Writable() {
			writers = append(writers, p)
		}
	}
	if len(writers) > 1 {
		db.log.Warn("multiple writable feeds configured, using the first", "writer", writers[0].Key(), "count", len(writers))
	}

	db.peers = peers
	db.peersByKey = byKey
	if len(writers) > 0 {
		db.writer = writers[0]
	}

	span.SetAttributes(attribute.Int("feeds", len(peers)), attribute.Bool("writable", db.writer != nil))
	db.log.Info("store open", "feeds", len(peers), "writable", db.writer != nil)
	return nil
}

// Readable reports whether the store has at least one feed and has not been closed.
func (db *DB) Readable() bool {
	return len(db.feeds) > 0 && !db.isClosed()
}

// Writable reports whether Put can succeed. It is false until the store has opened.
func (db *DB) Writable() bool {
	select {
	case <-db.opened:
	default:
		return false
	}
	return db.writer != nil && !db.isClosed()
}

// LocalKey returns the key of the local writer's feed, once the store has opened with one.
func (db *DB) LocalKey() (feed.Key, bool) {
	select {
	case <-db.opened:
	default:
		return feed.Key{}, false
	}
	if db.writer == nil {
		return feed.Key{}, false
	}
	return db.writer.Feed().Key(), true
}

func (db *DB) isClosed() bool {
	db.lk.RLock()
	defer db.lk.RUnlock()
	return db.closed
}

func (db *DB) readyForRead(ctx context.Context) error {
	if err := db.Ready(ctx); err != nil {
		return err
	}
	if db.isClosed() {
		return ErrClosed
	}
	return nil
}

// Get returns the causal frontier for key: one node when a single write is current or Reduce is set,
// several when writers conflicted. ErrNotFound is returned when no write for key is reachable.
func (db *DB) Get(ctx context.Context, key string) (out []*node.Node, err error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))
	defer func() {
		getsTotal.WithLabelValues(resultLabel(err)).Inc()
	}()

	if err := db.readyForRead(ctx); err != nil {
		return nil, err
	}

	fr, err := db.heads(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := db.lookup(ctx, fr, key)
	if err != nil {
		return nil, err
	}

	nodes := dedup(candidates, fr.nodes)
	if len(nodes) == 0 {
		return nil, ErrNotFound
	}
	if db.opts.Reduce != nil {
		r := fold(nodes, db.opts.Reduce)
		if r == nil {
			return nil, ErrNotFound
		}
		return []*node.Node{r}, nil
	}
	if len(nodes) > 1 {
		conflictsSurfaced.Inc()
		db.log.Debug("concurrent writes", "key", key, "count", len(nodes))
	}
	return nodes, nil
}

// GetValues is Get with every surviving node passed through Options.Map, or reduced to its raw value
// when no Map is configured.
func (db *DB) GetValues(ctx context.Context, key string) ([]any, error) {
	nodes, err := db.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return db.values(nodes), nil
}

// List returns every live key whose path starts with prefix, with its causal frontier. Results are
// ordered by key, then by writer and sequence.
func (db *DB) List(ctx context.Context, prefix keypath.Path) ([]*node.Node, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()
	span.SetAttributes(attribute.String("prefix", prefix.String()))
	listsTotal.Inc()

	if len(prefix) > keypath.Len {
		return nil, fmt.Errorf("%w: %d elements", ErrBadPrefix, len(prefix))
	}
	for i, e := range prefix {
		if e.Terminal != (i == keypath.Digits) {
			return nil, fmt.Errorf("%w: element %d", ErrBadPrefix, i)
		}
	}
	if err := db.readyForRead(ctx); err != nil {
		return nil, err
	}

	fr, err := db.heads(ctx)
	if err != nil {
		return nil, err
	}

	var nodes []*node.Node
	if key, ok := prefix.Key(); ok {
		leaf, err := db.bucket(ctx, fr, prefix[:keypath.Digits])
		if err != nil {
			return nil, err
		}
		for _, n := range leaf {
			if n.Key == key {
				nodes = append(nodes, n)
			}
		}
	} else {
		nodes, err = db.expand(ctx, fr, prefix)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if a.Feed != b.Feed {
			return a.Feed < b.Feed
		}
		return a.Seq < b.Seq
	})
	return nodes, nil
}

// ListValues is List passed through Options.Map.
func (db *DB) ListValues(ctx context.Context, prefix keypath.Path) ([]any, error) {
	nodes, err := db.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return db.values(nodes), nil
}

// expand walks the trie below prefix one digit at a time until it reaches the terminal level, where
// buckets hold the keys themselves.
func (db *DB) expand(ctx context.Context, fr *frontier, prefix keypath.Path) ([]*node.Node, error) {
	level, err := db.bucket(ctx, fr, prefix)
	if err != nil {
		return nil, err
	}
	if len(prefix) == keypath.Digits {
		return level, nil
	}

	var branches [keypath.Fanout]bool
	for _, n := range level {
		if d, ok := n.Path().Digit(len(prefix)); ok {
			branches[d] = true
		}
	}

	var out collector
	g := group.New(group.WithContext(ctx), group.Settle())
	for d, ok := range branches {
		if !ok {
			continue
		}
		g.Add(func(ctx context.Context) error {
			nodes, err := db.expand(ctx, fr, prefix.Extend(keypath.DigitElem(uint8(d))))
			if err != nil {
				return err
			}
			out.add(nodes...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out.nodes, nil
}

func (db *DB) values(nodes []*node.Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		if db.opts.Map != nil {
			out[i] = db.opts.Map(n)
		} else {
			out[i] = n.Value
		}
	}
	return out
}

func fold(nodes []*node.Node, reduce func(a, b *node.Node) *node.Node) *node.Node {
	acc := nodes[0]
	for _, n := range nodes[1:] {
		acc = reduce(acc, n)
		if acc == nil {
			return nil
		}
	}
	return acc
}

// Replicate starts one replication session covering every configured feed. The first feed anchors the
// session; the rest are attached once it is ready. The session advertises the feed count so the
// remote side can reject a mismatched store.
func (db *DB) Replicate(ctx context.Context, opts replication.Options) (*replication.Session, error) {
	if len(db.feeds) == 0 {
		return nil, ErrNoFeeds
	}
	if db.isClosed() {
		return nil, ErrClosed
	}
	opts.ExpectedFeeds = len(db.feeds)
	if opts.Logger == nil {
		opts.Logger = db.log
	}

	s := replication.NewSession(ctx, opts)
	if err := s.Attach(db.feeds[0]); err != nil {
		s.Close()
		return nil, err
	}

	go func() {
		if err := db.feeds[0].Ready(ctx); err != nil {
			s.Abort(fmt.Errorf("anchor feed not ready: %w", err))
			return
		}
		for _, f := range db.feeds[1:] {
			if err := s.Attach(f); err != nil {
				s.Abort(err)
				return
			}
		}
	}()
	return s, nil
}

// Close closes every feed and marks the store unreadable and unwritable, even when a feed fails to
// close. Close waits for any in-flight Put.
func (db *DB) Close(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Close")
	defer span.End()

	// the open outcome does not matter here; feeds are closed either way
	_ = db.Ready(ctx)

	if err := db.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer db.gate.Release(1)

	db.lk.Lock()
	if db.closed {
		db.lk.Unlock()
		return nil
	}
	db.closed = true
	db.lk.Unlock()

	g := group.New(group.WithContext(ctx), group.Settle())
	for _, f := range db.feeds {
		g.Add(func(ctx context.Context) error {
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing feed %s: %w", f.Key(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
