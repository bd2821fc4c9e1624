package kvstore

import (
	"context"
	"sync"

	"github.com/bluesky-social/causalkv/internal/group"
	"github.com/bluesky-social/causalkv/keypath"
	"github.com/bluesky-social/causalkv/node"
)

// collector accumulates nodes found by concurrent traversal branches.
type collector struct {
	lk    sync.Mutex
	nodes []*node.Node
}

func (c *collector) add(nodes ...*node.Node) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.nodes = append(c.nodes, nodes...)
}

// lookup descends from every frontier node toward key and returns all terminal matches, before dedup.
func (db *DB) lookup(ctx context.Context, fr *frontier, key string) ([]*node.Node, error) {
	target := keypath.DeriveWithKey(db.hashKey, key)
	var out collector

	g := group.New(group.WithContext(ctx), group.Settle())
	for _, head := range fr.live() {
		g.Add(func(ctx context.Context) error {
			return db.lookupFrom(ctx, head, key, target, &out)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out.nodes, nil
}

func (db *DB) lookupFrom(ctx context.Context, n *node.Node, key string, target keypath.Path, out *collector) error {
	if n.Key == key {
		out.add(n)
		return nil
	}

	d := keypath.CommonPrefix(n.Path(), target)
	if d >= len(target) {
		return nil
	}
	want := target[d]

	var ptrs []node.Pointer
	for _, p := range n.Bucket(d) {
		if p.Digit == nil || (!want.Terminal && *p.Digit == uint64(want.Digit)) {
			ptrs = append(ptrs, p)
		}
	}
	if len(ptrs) == 0 {
		return nil
	}

	children, err := db.resolve(ctx, ptrs)
	if err != nil {
		return err
	}

	g := group.New(group.WithContext(ctx), group.Settle())
	for _, c := range children {
		if keypath.CommonPrefix(c.Path(), target) <= d {
			// dead end
			continue
		}
		g.Add(func(ctx context.Context) error {
			return db.lookupFrom(ctx, c, key, target, out)
		})
	}
	return g.Wait()
}

// bucket returns the one-level listing at prefix: for every frontier node, descend until a node whose
// path agrees with all of prefix is found, then resolve that node's entire pointer bucket at
// len(prefix). Results are grouped by key and deduplicated per key.
func (db *DB) bucket(ctx context.Context, fr *frontier, prefix keypath.Path) ([]*node.Node, error) {
	var out collector

	g := group.New(group.WithContext(ctx), group.Settle())
	for _, head := range fr.live() {
		g.Add(func(ctx context.Context) error {
			return db.listFrom(ctx, head, prefix, &out)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dedupKeys(out.nodes, fr.nodes), nil
}

func (db *DB) listFrom(ctx context.Context, n *node.Node, prefix keypath.Path, out *collector) error {
	d := keypath.CommonPrefix(n.Path(), prefix)

	if d == len(prefix) {
		nodes, err := db.resolve(ctx, n.Bucket(d))
		if err != nil {
			return err
		}
		out.add(nodes...)
		return nil
	}

	want := prefix[d]
	var ptrs []node.Pointer
	for _, p := range n.Bucket(d) {
		if p.Digit == nil || (!want.Terminal && *p.Digit == uint64(want.Digit)) {
			ptrs = append(ptrs, p)
		}
	}
	if len(ptrs) == 0 {
		return nil
	}

	children, err := db.resolve(ctx, ptrs)
	if err != nil {
		return err
	}

	g := group.New(group.WithContext(ctx), group.Settle())
	for _, c := range children {
		if keypath.CommonPrefix(c.Path(), prefix) <= d {
			continue
		}
		g.Add(func(ctx context.Context) error {
			return db.listFrom(ctx, c, prefix, out)
		})
	}
	return g.Wait()
}

// resolve fetches the nodes behind ptrs in parallel, preserving pointer order. References to feeds
// that are not configured here, or to entries this process has not replicated yet, are skipped.
func (db *DB) resolve(ctx context.Context, ptrs []node.Pointer) ([]*node.Node, error) {
	if len(ptrs) == 0 {
		return nil, nil
	}

	all := make([]*node.Node, len(ptrs))
	g := group.New(group.WithContext(ctx), group.Settle())
	for i, ptr := range ptrs {
		p, ok := db.peersByKey[ptr.Feed]
		if !ok || ptr.Seq >= p.Feed().Len() {
			pointersSkipped.Inc()
			db.log.Debug("skipping unavailable pointer", "feed", ptr.Feed, "seq", ptr.Seq)
			continue
		}
		g.Add(func(ctx context.Context) error {
			n, err := p.Get(ctx, ptr.Seq)
			if err != nil {
				return err
			}
			all[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := all[:0]
	for _, n := range all {
		if n != nil {
			out = append(out, n)
		}
	}
	nodesResolved.Add(float64(len(out)))
	return out, nil
}
