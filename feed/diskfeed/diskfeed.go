package diskfeed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bluesky-social/causalkv/feed"
)

// Every entry on disk is a fixed header followed by the entry bytes.
//
//	crc32 (IEEE) of the entry | entry length | seq
//	4 bytes                   | 4 bytes      | 8 bytes, all little endian
const headerSize = 4 + 4 + 8

type entryHeader struct {
	Sum uint32
	Len uint32
	Seq uint64
}

func readHeader(r io.Reader, scratch []byte) (*entryHeader, error) {
	if len(scratch) < headerSize {
		return nil, fmt.Errorf("must pass scratch buffer of at least %d bytes", headerSize)
	}

	scratch = scratch[:headerSize]
	if _, err := io.ReadFull(r, scratch); err != nil {
		return nil, err
	}

	return &entryHeader{
		Sum: binary.LittleEndian.Uint32(scratch[:4]),
		Len: binary.LittleEndian.Uint32(scratch[4:8]),
		Seq: binary.LittleEndian.Uint64(scratch[8:16]),
	}, nil
}

func writeEntry(buf *bytes.Buffer, seq uint64, entry []byte) {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[:], crc32.ChecksumIEEE(entry))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(entry)))
	binary.LittleEndian.PutUint64(hdr[8:], seq)
	buf.Write(hdr[:])
	buf.Write(entry)
}

type segment struct {
	ref     LogSegment
	fi      *os.File
	offsets []int64
	size    int64
}

// Feed is a feed stored as a sequence of segment files.
type Feed struct {
	store    *Store
	key      feed.Key
	writable bool
	dir      string
	log      *slog.Logger

	readyOnce sync.Once
	readyErr  error

	lk       sync.RWMutex
	segments []*segment
	length   uint64
	closed   bool
}

var _ feed.Importer = (*Feed)(nil)

func (s *Store) open(key feed.Key, writable bool) *Feed {
	return &Feed{
		store:    s,
		key:      key,
		writable: writable,
		dir:      filepath.Join(s.dir, key.String()),
		log:      s.log.With("feed", key.String()),
	}
}

// Ready loads the feed's segments and indexes every entry offset.
func (f *Feed) Ready(ctx context.Context) error {
	f.readyOnce.Do(func() {
		f.readyErr = f.load(ctx)
	})
	if f.readyErr != nil {
		return f.readyErr
	}
	if f.isClosed() {
		return feed.ErrClosed
	}
	return nil
}

func (f *Feed) load(ctx context.Context) error {
	f.lk.Lock()
	defer f.lk.Unlock()

	var refs []LogSegment
	if err := f.store.meta.WithContext(ctx).Where("feed = ?", f.key.String()).Order("seq_start asc").Find(&refs).Error; err != nil {
		return err
	}

	if len(refs) == 0 {
		return f.initSegment(ctx, 0)
	}

	for i, ref := range refs {
		if ref.SeqStart != f.length {
			return fmt.Errorf("segment %s starts at %d, expected %d", ref.Path, ref.SeqStart, f.length)
		}

		fi, err := os.OpenFile(filepath.Join(f.dir, ref.Path), os.O_RDWR|os.O_APPEND, 0)
		if err != nil {
			return err
		}
		seg := &segment{ref: ref, fi: fi}
		f.segments = append(f.segments, seg)

		last := i == len(refs)-1
		if err := f.scanSegment(seg, last); err != nil {
			return fmt.Errorf("failed to scan segment %s: %w", ref.Path, err)
		}
		f.length = ref.SeqStart + uint64(len(seg.offsets))
	}

	f.log.Info("loaded feed", "length", f.length, "segments", len(f.segments))
	return nil
}

// scanSegment indexes the entries of seg. A torn write at the tail of the last segment is truncated
// away; anywhere else it is an error.
func (f *Feed) scanSegment(seg *segment, last bool) error {
	bufr := bufio.NewReader(seg.fi)
	scratch := make([]byte, headerSize)

	var offset int64
	for {
		h, err := readHeader(bufr, scratch)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) && last {
				return f.truncateTail(seg, offset)
			}
			return err
		}

		want := seg.ref.SeqStart + uint64(len(seg.offsets))
		if h.Seq != want {
			return fmt.Errorf("entry at offset %d has seq %d, expected %d", offset, h.Seq, want)
		}

		body := make([]byte, h.Len)
		if _, err := io.ReadFull(bufr, body); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				if last {
					return f.truncateTail(seg, offset)
				}
			}
			return err
		}
		if crc32.ChecksumIEEE(body) != h.Sum {
			if last {
				return f.truncateTail(seg, offset)
			}
			return fmt.Errorf("checksum mismatch for seq %d", h.Seq)
		}

		seg.offsets = append(seg.offsets, offset)
		offset += headerSize + int64(h.Len)
	}

	seg.size = offset
	return nil
}

func (f *Feed) truncateTail(seg *segment, offset int64) error {
	f.log.Warn("truncating torn entry at end of segment", "segment", seg.ref.Path, "offset", offset)
	if err := seg.fi.Truncate(offset); err != nil {
		return err
	}
	seg.size = offset
	return nil
}

// initSegment starts a new segment file whose first entry will be seq.
// must only be called while holding f.lk
func (f *Feed) initSegment(ctx context.Context, seq uint64) error {
	if err := os.MkdirAll(f.dir, 0775); err != nil {
		return err
	}

	fname := fmt.Sprintf("entries-%d", seq)
	fi, err := os.OpenFile(filepath.Join(f.dir, fname), os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_EXCL, 0664)
	if err != nil {
		return err
	}

	ref := LogSegment{
		Feed:     f.key.String(),
		Path:     fname,
		SeqStart: seq,
	}
	if err := f.store.meta.WithContext(ctx).Create(&ref).Error; err != nil {
		fi.Close()
		return err
	}

	f.segments = append(f.segments, &segment{ref: ref, fi: fi})
	segmentsCreated.Inc()
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
	defer f.lk.RUnlock()

	if f.closed {
		return nil, feed.ErrClosed
	}
	if seq >= f.length {
		return nil, fmt.Errorf("%w: %d >= %d", feed.ErrOutOfRange, seq, f.length)
	}

	// last segment starting at or before seq
	i := sort.Search(len(f.segments), func(i int) bool {
		return f.segments[i].ref.SeqStart > seq
	}) - 1
	seg := f.segments[i]
	off := seg.offsets[seq-seg.ref.SeqStart]

	scratch := make([]byte, headerSize)
	if _, err := seg.fi.ReadAt(scratch, off); err != nil {
		return nil, fmt.Errorf("reading header of %d: %w", seq, err)
	}
	h, err := readHeader(bytes.NewReader(scratch), scratch)
	if err != nil {
		return nil, err
	}

	body := make([]byte, h.Len)
	if _, err := seg.fi.ReadAt(body, off+headerSize); err != nil {
		return nil, fmt.Errorf("reading entry %d: %w", seq, err)
	}
	entriesRead.Inc()
	return body, nil
}

func (f *Feed) Append(ctx context.Context, entries ...[]byte) error {
	if !f.writable {
		return feed.ErrNotWritable
	}

	f.lk.Lock()
	defer f.lk.Unlock()
	return f.appendLocked(ctx, entries)
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
	return f.appendLocked(ctx, [][]byte{entry})
}

// appendLocked writes entries to the current segment in one write and syncs it. A failed write is
// truncated away, so either every entry is stored or none is.
// must only be called while holding f.lk
func (f *Feed) appendLocked(ctx context.Context, entries [][]byte) error {
	if f.closed {
		return feed.ErrClosed
	}
	if len(f.segments) == 0 {
		return fmt.Errorf("feed %s is not ready", f.key)
	}

	cur := f.segments[len(f.segments)-1]
	if uint64(len(cur.offsets)) >= f.store.opts.EntriesPerFile {
		if err := f.initSegment(ctx, f.length); err != nil {
			return fmt.Errorf("failed to start new segment: %w", err)
		}
		cur = f.segments[len(f.segments)-1]
	}

	buf := new(bytes.Buffer)
	offsets := make([]int64, 0, len(entries))
	off := cur.size
	for i, e := range entries {
		offsets = append(offsets, off+int64(buf.Len()))
		writeEntry(buf, f.length+uint64(i), e)
	}

	if _, err := cur.fi.Write(buf.Bytes()); err != nil {
		_ = cur.fi.Truncate(off)
		return err
	}
	if err := cur.fi.Sync(); err != nil {
		_ = cur.fi.Truncate(off)
		return err
	}

	cur.offsets = append(cur.offsets, offsets...)
	cur.size = off + int64(buf.Len())
	f.length += uint64(len(entries))

	entriesWritten.Add(float64(len(entries)))
	bytesWritten.Add(float64(buf.Len()))
	return nil
}

func (f *Feed) Close() error {
	f.lk.Lock()
	defer f.lk.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	var errs []error
	for _, seg := range f.segments {
		if err := seg.fi.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Feed) isClosed() bool {
	f.lk.RLock()
	defer f.lk.RUnlock()
	return f.closed
}
