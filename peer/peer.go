// Package peer reads decoded nodes out of a single feed.
package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bluesky-social/causalkv/feed"
	"github.com/bluesky-social/causalkv/node"

	arc "github.com/hashicorp/golang-lru/arc/v2"
)

var (
	// ErrSchemaEntry is returned when slot 0, which holds the schema marker, is requested as a node.
	ErrSchemaEntry = errors.New("slot 0 holds the schema marker, not a node")

	ErrIncompatibleSchema = errors.New("feed was not written by a compatible store")
	ErrCorruptEntry       = errors.New("feed entry does not match its position")
)

const DefaultCacheSize = 4096

// Peer wraps one feed, decoding raw entries into nodes and caching them. Nodes are immutable, so a
// cached node never goes stale.
type Peer struct {
	feed  feed.Feed
	key   string
	cache *arc.ARCCache[uint64, *node.Node]
	log   *slog.Logger
}

type Option func(*options)

type options struct {
	cacheSize int
	log       *slog.Logger
}

// WithCacheSize sets the number of decoded nodes kept per peer. Zero or less disables the cache.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func New(f feed.Feed, opts ...Option) (*Peer, error) {
	o := options{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default().With("system", "peer")
	}

	p := &Peer{
		feed: f,
		key:  f.Key().String(),
		log:  o.log.With("feed", f.Key().String()),
	}
	if o.cacheSize > 0 {
		c, err := arc.NewARC[uint64, *node.Node](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create node cache: %w", err)
		}
		p.cache = c
	}
	return p, nil
}

// Key is the hex identity of the underlying feed.
func (p *Peer) Key() string {
	return p.key
}

func (p *Peer) Feed() feed.Feed {
	return p.feed
}

// Head returns the most recently appended node, or nil when the feed holds no nodes.
func (p *Peer) Head(ctx context.Context) (*node.Node, error) {
	return p.HeadAt(ctx, p.feed.Len())
}

// HeadAt returns the last node of the feed as it stood at the given length, or nil when that
// prefix holds no nodes. Callers that record the length alongside the head use this to keep both
// from the same snapshot.
func (p *Peer) HeadAt(ctx context.Context, length uint64) (*node.Node, error) {
	if length <= 1 {
		return nil, nil
	}
	return p.Get(ctx, length-1)
}

// Get returns the node at seq.
func (p *Peer) Get(ctx context.Context, seq uint64) (*node.Node, error) {
	if seq == 0 {
		return nil, ErrSchemaEntry
	}
	if p.cache != nil {
		if n, ok := p.cache.Get(seq); ok {
			cacheHits.Inc()
			return n, nil
		}
		cacheMisses.Inc()
	}

	raw, err := p.feed.Get(ctx, seq)
	if err != nil {
		return nil, err
	}
	n, err := node.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("feed %s entry %d: %w", p.key, seq, err)
	}
	if n.Feed != p.key || n.Seq != seq {
		return nil, fmt.Errorf("%w: feed %s entry %d claims %s/%d", ErrCorruptEntry, p.key, seq, n.Feed, n.Seq)
	}

	if p.cache != nil {
		p.cache.Add(seq, n)
	}
	return n, nil
}

// CheckHeader verifies the schema marker of a non-empty feed.
func (p *Peer) CheckHeader(ctx context.Context) error {
	if p.feed.Len() == 0 {
		return nil
	}
	raw, err := p.feed.Get(ctx, 0)
	if err != nil {
		return err
	}
	h, err := node.DecodeHeader(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIncompatibleSchema, err)
	}
	if h.Type != node.SchemaType || h.Version != node.SchemaVersion {
		return fmt.Errorf("%w: found %q version %d", ErrIncompatibleSchema, h.Type, h.Version)
	}
	p.log.Debug("schema marker ok", "length", p.feed.Len())
	return nil
}
