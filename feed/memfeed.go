package feed

import (
	"context"
	"fmt"
	"sync"
)

type memlog struct {
	lk      sync.RWMutex
	entries [][]byte
}

// MemFeed is a feed held in memory. Views created with ReadOnly share the same entries, which lets
// tests model a writer and its replicas without a transport.
type MemFeed struct {
	key      Key
	writable bool
	log      *memlog

	lk     sync.Mutex
	closed bool
}

var _ Importer = (*MemFeed)(nil)

// NewMemFeed returns an empty in-memory feed.
func NewMemFeed(key Key, writable bool) *MemFeed {
	return &MemFeed{
		key:      key,
		writable: writable,
		log:      &memlog{},
	}
}

// ReadOnly returns a non-writable view sharing this feed's entries.
func (mf *MemFeed) ReadOnly() *MemFeed {
	return &MemFeed{
		key: mf.key,
		log: mf.log,
	}
}

func (mf *MemFeed) Ready(ctx context.Context) error {
	if mf.isClosed() {
		return ErrClosed
	}
	return nil
}

func (mf *MemFeed) Len() uint64 {
	mf.log.lk.RLock()
	defer mf.log.lk.RUnlock()
	return uint64(len(mf.log.entries))
}

func (mf *MemFeed) Writable() bool {
	return mf.writable
}

func (mf *MemFeed) Key() Key {
	return mf.key
}

func (mf *MemFeed) Get(ctx context.Context, seq uint64) ([]byte, error) {
	if mf.isClosed() {
		return nil, ErrClosed
	}
	mf.log.lk.RLock()
	defer mf.log.lk.RUnlock()
	if seq >= uint64(len(mf.log.entries)) {
		return nil, fmt.Errorf("%w: %d >= %d", ErrOutOfRange, seq, len(mf.log.entries))
	}
	return mf.log.entries[seq], nil
}

func (mf *MemFeed) Append(ctx context.Context, entries ...[]byte) error {
	if mf.isClosed() {
		return ErrClosed
	}
	if !mf.writable {
		return ErrNotWritable
	}
	mf.log.lk.Lock()
	defer mf.log.lk.Unlock()
	for _, e := range entries {
		mf.log.entries = append(mf.log.entries, append([]byte(nil), e...))
	}
	return nil
}

func (mf *MemFeed) Import(ctx context.Context, seq uint64, entry []byte) error {
	if mf.isClosed() {
		return ErrClosed
	}
	if mf.writable {
		return fmt.Errorf("cannot import into the writable copy of feed %s", mf.key)
	}
	mf.log.lk.Lock()
	defer mf.log.lk.Unlock()
	if seq != uint64(len(mf.log.entries)) {
		return fmt.Errorf("%w: got %d, feed length %d", ErrNonContiguous, seq, len(mf.log.entries))
	}
	mf.log.entries = append(mf.log.entries, append([]byte(nil), entry...))
	return nil
}

func (mf *MemFeed) Close() error {
	mf.lk.Lock()
	defer mf.lk.Unlock()
	mf.closed = true
	return nil
}

func (mf *MemFeed) isClosed() bool {
	mf.lk.Lock()
	defer mf.lk.Unlock()
	return mf.closed
}
