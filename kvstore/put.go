package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/bluesky-social/causalkv/internal/group"
	"github.com/bluesky-social/causalkv/keypath"
	"github.com/bluesky-social/causalkv/node"

	"go.opentelemetry.io/otel/attribute"
)

// Put appends a new node for key to the local writer's feed. Puts are serialized across the store;
// reads proceed concurrently and observe the write only once it has been appended.
//
// Keys are limited to node.MaxKeyLength bytes (ErrKeyTooLong) and values to node.MaxValueLength
// bytes (ErrValueTooLarge).
func (db *DB) Put(ctx context.Context, key string, value []byte) (err error) {
	ctx, span := tracer.Start(ctx, "Put")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	start := time.Now()
	defer func() {
		putDuration.Observe(time.Since(start).Seconds())
		putsTotal.WithLabelValues(resultLabel(err)).Inc()
	}()

	if len(key) > node.MaxKeyLength {
		return ErrKeyTooLong
	}
	if len(value) > node.MaxValueLength {
		return ErrValueTooLarge
	}

	if err := db.Ready(ctx); err != nil {
		return err
	}
	if err := db.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer db.gate.Release(1)

	if db.isClosed() {
		return ErrClosed
	}
	if db.writer == nil {
		return ErrNoWritableLog
	}

	fr, err := db.heads(ctx)
	if err != nil {
		return err
	}

	w := db.writer.Feed()
	seq := max(w.Len(), 1)
	path := keypath.DeriveWithKey(db.hashKey, key)
	self := db.writer.Key()

	var pointers [][]node.Pointer
	if fr.empty() {
		pointers = make([][]node.Pointer, len(path))
		for i := range pointers {
			pointers[i] = []node.Pointer{{Feed: self, Seq: seq}}
		}
	} else {
		pointers, err = db.buildPointers(ctx, fr, key, path, seq)
		if err != nil {
			return err
		}
	}

	heads := make([]node.Head, 0, len(db.peers)-1)
	for i, p := range db.peers {
		if p == db.writer {
			continue
		}
		heads = append(heads, node.Head{Feed: p.Key(), Length: fr.lengths[i]})
	}

	n := node.New(self, seq, path, pointers, value, heads)
	raw, err := node.Encode(n)
	if err != nil {
		return err
	}

	entries := [][]byte{raw}
	if w.Len() == 0 {
		hdr, err := node.EncodeHeader(node.NewHeader())
		if err != nil {
			return err
		}
		entries = [][]byte{hdr, raw}
	}
	if err := w.Append(ctx, entries...); err != nil {
		return fmt.Errorf("appending node %s: %w", n, err)
	}

	db.log.Debug("put", "node", n, "heads", len(heads))
	return nil
}

// buildPointers computes every pointer bucket of a new node. Depths are independent and fan out in
// parallel against the same frontier snapshot.
func (db *DB) buildPointers(ctx context.Context, fr *frontier, key string, path keypath.Path, seq uint64) ([][]node.Pointer, error) {
	pointers := make([][]node.Pointer, len(path))

	g := group.New(group.WithContext(ctx), group.Settle())
	for i := range path {
		g.Add(func(ctx context.Context) error {
			b, err := db.buildBucket(ctx, fr, key, path, i, seq)
			if err != nil {
				return fmt.Errorf("building bucket %d: %w", i, err)
			}
			pointers[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pointers, nil
}

func (db *DB) buildBucket(ctx context.Context, fr *frontier, key string, path keypath.Path, i int, seq uint64) ([]node.Pointer, error) {
	current, err := db.bucket(ctx, fr, path[:i])
	if err != nil {
		return nil, err
	}

	self := db.writer.Key()
	out := make([]node.Pointer, 0, len(current)+1)
	for _, r := range current {
		if r.Key == key {
			continue
		}
		// the new node's own deeper buckets already cover these
		if r.Feed == self && r.Path()[i] == path[i] {
			continue
		}
		out = append(out, r.Ref(i))
	}
	out = append(out, node.Pointer{Feed: self, Seq: seq, Digit: node.DigitAt(path, i)})
	return out, nil
}
