package kvstore

import (
	"log/slog"

	"github.com/bluesky-social/causalkv/keypath"
	"github.com/bluesky-social/causalkv/node"
	"github.com/bluesky-social/causalkv/peer"
)

// Options configures a DB. The zero value is usable.
type Options struct {
	// Map transforms surviving nodes into caller-facing values for GetValues and ListValues.
	Map func(*node.Node) any

	// Reduce folds concurrent survivors for a key into one node. It must be associative and
	// commutative: fold order is not part of the contract. Returning nil is treated as not found.
	Reduce func(a, b *node.Node) *node.Node

	// number of decoded nodes cached per feed
	CacheSize int

	// HashKey keys path derivation. Every writer of a store must use the same key.
	HashKey keypath.HashKey

	Logger *slog.Logger
}

func DefaultOptions() *Options {
	return &Options{
		CacheSize: peer.DefaultCacheSize,
		HashKey:   keypath.ZeroKey,
	}
}
