package kvstore

import (
	"errors"
	"fmt"

	"github.com/bluesky-social/causalkv/node"
	"github.com/bluesky-social/causalkv/peer"
)

var (
	// ErrNotFound is returned when a lookup resolves no causal-frontier candidates for a key.
	ErrNotFound = errors.New("not found")

	// ErrNoWritableLog is returned by Put when none of the configured feeds is locally writable.
	ErrNoWritableLog = errors.New("no writable feed, cannot append")

	ErrClosed    = errors.New("store is closed")
	ErrNoFeeds   = errors.New("no feeds configured")
	ErrBadPrefix = errors.New("invalid path prefix")

	ErrKeyTooLong    = fmt.Errorf("key longer than %d bytes", node.MaxKeyLength)
	ErrValueTooLarge = fmt.Errorf("value larger than %d bytes", node.MaxValueLength)

	// ErrIncompatibleFeed is returned by Ready when a feed's schema marker was not written by this store.
	ErrIncompatibleFeed = peer.ErrIncompatibleSchema
)
