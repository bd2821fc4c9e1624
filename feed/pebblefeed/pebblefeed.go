// Package pebblefeed stores any number of feeds in a single pebble database.
//
// Inner schema:
// F{feed key} : {1 byte writable}{uint32 position}
// L{feed key} : {uint64 length}
// E{feed key}{uint64 seq} : entry bytes
//
// Integers are big endian so entries of a feed sort by seq.
package pebblefeed

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/bluesky-social/causalkv/feed"

	"github.com/cockroachdb/pebble"
)

func makeFeedKey(k feed.Key) []byte {
	out := make([]byte, 1+feed.KeySize)
	out[0] = 'F'
	copy(out[1:], k[:])
	return out
}

func makeLengthKey(k feed.Key) []byte {
	out := make([]byte, 1+feed.KeySize)
	out[0] = 'L'
	copy(out[1:], k[:])
	return out
}

func makeEntryKey(k feed.Key, seq uint64) []byte {
	out := make([]byte, 1+feed.KeySize+8)
	out[0] = 'E'
	copy(out[1:], k[:])
	binary.BigEndian.PutUint64(out[1+feed.KeySize:], seq)
	return out
}

// DB holds feeds in one pebble database.
type DB struct {
	db  *pebble.DB
	log *slog.Logger

	lk    sync.Mutex
	feeds map[feed.Key]*Feed
}

func Open(path string, log *slog.Logger) (*DB, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("%s: could not open db, %w", path, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &DB{
		db:    db,
		log:   log.With("system", "pebblefeed"),
		feeds: make(map[feed.Key]*Feed),
	}, nil
}

// Close flushes and closes the database. Feeds must not be used afterwards.
func (d *DB) Close() error {
	err := d.db.Flush()
	if err != nil {
		d.log.Error("pebble flush", "err", err)
	}
	err = d.db.Close()
	if err != nil {
		d.log.Error("pebble close", "err", err)
	}
	return err
}

// Create registers a new feed with a fresh key.
func (d *DB) Create(ctx context.Context, writable bool) (*Feed, error) {
	k, err := feed.NewKey()
	if err != nil {
		return nil, err
	}
	return d.Add(ctx, k, writable)
}

// Add registers a feed under an existing key.
func (d *DB) Add(ctx context.Context, key feed.Key, writable bool) (*Feed, error) {
	d.lk.Lock()
	defer d.lk.Unlock()

	_, closer, err := d.db.Get(makeFeedKey(key))
	if err == nil {
		closer.Close()
		return nil, fmt.Errorf("feed %s already registered", key)
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("pebble get err, %w", err)
	}

	count, err := d.countFeeds(ctx)
	if err != nil {
		return nil, err
	}

	var val [5]byte
	if writable {
		val[0] = 1
	}
	binary.BigEndian.PutUint32(val[1:], uint32(count))
	if err := d.db.Set(makeFeedKey(key), val[:], pebble.Sync); err != nil {
		return nil, fmt.Errorf("pebble set err, %w", err)
	}

	d.log.Info("registered feed", "feed", key, "writable", writable)
	return d.feedLocked(key, writable), nil
}

func (d *DB) countFeeds(ctx context.Context) (int, error) {
	n := 0
	err := d.iterFeeds(ctx, func(feed.Key, bool, uint32) {
		n++
	})
	return n, err
}

func (d *DB) iterFeeds(ctx context.Context, cb func(k feed.Key, writable bool, pos uint32)) error {
	iter, err := d.db.NewIterWithContext(ctx, &pebble.IterOptions{
		LowerBound: []byte{'F'},
		UpperBound: []byte{'G'},
	})
	if err != nil {
		return fmt.Errorf("feed iter start, %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		value, err := iter.ValueAndErr()
		if err != nil {
			return fmt.Errorf("feed iter, %w", err)
		}
		if len(key) != 1+feed.KeySize || len(value) != 5 {
			return fmt.Errorf("malformed feed row %x", key)
		}
		var k feed.Key
		copy(k[:], key[1:])
		cb(k, value[0] == 1, binary.BigEndian.Uint32(value[1:]))
	}
	return iter.Error()
}

// Feeds returns every registered feed, in registration order.
func (d *DB) Feeds(ctx context.Context) ([]*Feed, error) {
	type row struct {
		key      feed.Key
		writable bool
		pos      uint32
	}
	var rows []row
	if err := d.iterFeeds(ctx, func(k feed.Key, w bool, pos uint32) {
		rows = append(rows, row{k, w, pos})
	}); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].pos < rows[j].pos
	})

	d.lk.Lock()
	defer d.lk.Unlock()
	out := make([]*Feed, len(rows))
	for i, r := range rows {
		out[i] = d.feedLocked(r.key, r.writable)
	}
	return out, nil
}

func (d *DB) feedLocked(key feed.Key, writable bool) *Feed {
	if f, ok := d.feeds[key]; ok {
		return f
	}
	f := &Feed{d: d, key: key, writable: writable}
	d.feeds[key] = f
	return f
}

// Feed is one feed inside a DB. Every entry is its own pebble row.
type Feed struct {
	d        *DB
	key      feed.Key
	writable bool

	readyOnce sync.Once
	readyErr  error

	lk     sync.RWMutex
	length uint64
	closed bool
}

var _ feed.Importer = (*Feed)(nil)

func (f *Feed) Ready(ctx context.Context) error {
	f.readyOnce.Do(func() {
		f.readyErr = f.load()
	})
	if f.readyErr != nil {
		return f.readyErr
	}
	f.lk.RLock()
	defer f.lk.RUnlock()
	if f.closed {
		return feed.ErrClosed
	}
	return nil
}

func (f *Feed) load() error {
	vbytes, closer, err := f.d.db.Get(makeLengthKey(f.key))
	if closer != nil {
		defer closer.Close()
	}
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pebble length err, %w", err)
	}

	f.lk.Lock()
	f.length = binary.BigEndian.Uint64(vbytes)
	f.lk.Unlock()
	return nil
}

func (f *Feed) Len() uint64 {
	f.lk.RLock()
	defer f.lk.RUnlock()
	return f.length
}

func (f *Feed) Writable() bool {
	return f.writable
}

func (f *Feed) Key() feed.Key {
	return f.key
}

func (f *Feed) Get(ctx context.Context, seq uint64) ([]byte, error) {
	f.lk.RLock()
	closed, length := f.closed, f.length
	f.lk.RUnlock()

	if closed {
		return nil, feed.ErrClosed
	}
	if seq >= length {
		return nil, fmt.Errorf("%w: %d >= %d", feed.ErrOutOfRange, seq, length)
	}

	value, closer, err := f.d.db.Get(makeEntryKey(f.key, seq))
	if closer != nil {
		defer closer.Close()
	}
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: entry %d missing", feed.ErrOutOfRange, seq)
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get err, %w", err)
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (f *Feed) Append(ctx context.Context, entries ...[]byte) error {
	if !f.writable {
		return feed.ErrNotWritable
	}

	f.lk.Lock()
	defer f.lk.Unlock()
	return f.writeLocked(entries)
}

func (f *Feed) Import(ctx context.Context, seq uint64, entry []byte) error {
	if f.writable {
		return fmt.Errorf("cannot import into the writable copy of feed %s", f.key)
	}

	f.lk.Lock()
	defer f.lk.Unlock()
	if seq != f.length {
		return fmt.Errorf("%w: got %d, feed length %d", feed.ErrNonContiguous, seq, f.length)
	}
	return f.writeLocked([][]byte{entry})
}

// writeLocked stores entries and the new length in one synced batch.
// must only be called while holding f.lk
func (f *Feed) writeLocked(entries [][]byte) error {
	if f.closed {
		return feed.ErrClosed
	}

	b := f.d.db.NewBatch()
	defer b.Close()

	for i, e := range entries {
		if err := b.Set(makeEntryKey(f.key, f.length+uint64(i)), e, nil); err != nil {
			return err
		}
	}
	var lb [8]byte
	binary.BigEndian.PutUint64(lb[:], f.length+uint64(len(entries)))
	if err := b.Set(makeLengthKey(f.key), lb[:], nil); err != nil {
		return err
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble commit err, %w", err)
	}
	f.length += uint64(len(entries))
	return nil
}

// Close marks the feed closed. The database itself is closed by DB.Close.
func (f *Feed) Close() error {
	f.lk.Lock()
	defer f.lk.Unlock()
	f.closed = true
	return nil
}
