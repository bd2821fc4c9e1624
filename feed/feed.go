// Package feed defines the append-only log each writer owns, and an in-memory implementation.
//
// A feed is a sequence of opaque entries addressed by position. Entries are never modified once
// appended. Exactly one process holds a given feed writable; everyone else holds a replica, which only
// grows by importing entries produced by the writer.
package feed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrOutOfRange    = errors.New("feed entry out of range")
	ErrNotWritable   = errors.New("feed is not writable")
	ErrClosed        = errors.New("feed is closed")
	ErrNonContiguous = errors.New("imported entry is not contiguous with feed")
)

// KeySize is the width of a feed identity in bytes.
const KeySize = 32

// Key is the stable identity of a feed.
type Key [KeySize]byte

// NewKey returns a random feed identity.
func NewKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return k, fmt.Errorf("generating feed key: %w", err)
	}
	return k, nil
}

// ParseKey parses the fixed-width hex form of a key.
func ParseKey(s string) (Key, error) {
	var k Key
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("invalid feed key %q: %w", s, err)
	}
	if len(b) != KeySize {
		return k, fmt.Errorf("invalid feed key %q: want %d bytes, got %d", s, KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// String returns the fixed-width hex form of the key, used to index peers and in node pointers.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Feed is a single writer's append-only log.
type Feed interface {
	// Ready blocks until the feed has loaded its state. It is safe to call more than once.
	Ready(ctx context.Context) error

	// Len is the number of entries ever appended, including the schema marker at slot 0.
	Len() uint64

	// Writable reports whether this process may append to the feed.
	Writable() bool

	Key() Key

	// Get returns the raw entry at seq.
	Get(ctx context.Context, seq uint64) ([]byte, error)

	// Append adds entries atomically, in order.
	Append(ctx context.Context, entries ...[]byte) error

	Close() error
}

// Importer is implemented by feeds that can take entries produced by a remote writer.
type Importer interface {
	Feed

	// Import appends an entry received from the writer. seq must equal Len().
	Import(ctx context.Context, seq uint64, entry []byte) error
}
