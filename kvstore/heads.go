package kvstore

import (
	"context"
	"fmt"

	"github.com/bluesky-social/causalkv/internal/group"
	"github.com/bluesky-social/causalkv/node"
)

// frontier is the newest node of every configured feed, captured together with the feed lengths it
// was read at. Index i corresponds to db.peers[i]; nodes[i] is nil for a feed with no nodes.
type frontier struct {
	nodes   []*node.Node
	lengths []uint64
}

// live returns the non-empty frontier entries.
func (fr *frontier) live() []*node.Node {
	out := make([]*node.Node, 0, len(fr.nodes))
	for _, n := range fr.nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (fr *frontier) empty() bool {
	for _, n := range fr.nodes {
		if n != nil {
			return false
		}
	}
	return true
}

// heads fetches the latest node of every feed in parallel. Every fetch settles before the first
// error, if any, is reported.
func (db *DB) heads(ctx context.Context) (*frontier, error) {
	fr := &frontier{
		nodes:   make([]*node.Node, len(db.peers)),
		lengths: make([]uint64, len(db.peers)),
	}

	g := group.New(group.WithContext(ctx), group.Settle())
	for i, p := range db.peers {
		g.Add(func(ctx context.Context) error {
			l := p.Feed().Len()
			n, err := p.HeadAt(ctx, l)
			if err != nil {
				return fmt.Errorf("reading head of feed %s: %w", p.Key(), err)
			}
			fr.nodes[i] = n
			fr.lengths[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fr, nil
}
