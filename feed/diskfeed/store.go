// Package diskfeed stores feeds as segmented log files on local disk, with a SQL table tracking which
// feeds exist and which segment files make up each one.
package diskfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bluesky-social/causalkv/feed"

	"gorm.io/gorm"
)

// FeedRecord registers a feed known to this process.
type FeedRecord struct {
	gorm.Model
	Key      string `gorm:"uniqueIndex"`
	Writable bool
	// position in the store's feed list
	Position int
}

// LogSegment is one segment file of a feed. Entries from SeqStart up to the next segment's SeqStart
// live in Path, relative to the feed directory.
type LogSegment struct {
	gorm.Model
	Feed     string `gorm:"index"`
	Path     string
	SeqStart uint64
}

type Options struct {
	// a new segment file is started once the current one holds this many entries
	EntriesPerFile uint64

	Logger *slog.Logger
}

func DefaultOptions() *Options {
	return &Options{
		EntriesPerFile: 10_000,
	}
}

// Store creates and opens disk feeds under one directory.
type Store struct {
	dir  string
	meta *gorm.DB
	opts Options
	log  *slog.Logger
}

func NewStore(dir string, meta *gorm.DB, opts *Options) (*Store, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.EntriesPerFile == 0 {
		opts.EntriesPerFile = DefaultOptions().EntriesPerFile
	}

	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, err
	}
	if err := meta.AutoMigrate(&FeedRecord{}, &LogSegment{}); err != nil {
		return nil, fmt.Errorf("failed to migrate feed tables: %w", err)
	}

	s := &Store{
		dir:  dir,
		meta: meta,
		opts: *opts,
		log:  opts.Logger,
	}
	if s.log == nil {
		s.log = slog.Default().With("system", "diskfeed")
	}
	return s, nil
}

// Create registers a new feed with a fresh key.
func (s *Store) Create(ctx context.Context, writable bool) (*Feed, error) {
	k, err := feed.NewKey()
	if err != nil {
		return nil, err
	}
	return s.Add(ctx, k, writable)
}

// Add registers an existing feed, typically a replica of a remote writer.
func (s *Store) Add(ctx context.Context, key feed.Key, writable bool) (*Feed, error) {
	var count int64
	if err := s.meta.WithContext(ctx).Model(&FeedRecord{}).Count(&count).Error; err != nil {
		return nil, err
	}

	rec := FeedRecord{
		Key:      key.String(),
		Writable: writable,
		Position: int(count),
	}
	if err := s.meta.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to register feed %s: %w", key, err)
	}

	s.log.Info("registered feed", "feed", key, "writable", writable)
	return s.open(key, writable), nil
}

// Feeds opens every registered feed, in registration order.
func (s *Store) Feeds(ctx context.Context) ([]*Feed, error) {
	var recs []FeedRecord
	if err := s.meta.WithContext(ctx).Order("position asc").Find(&recs).Error; err != nil {
		return nil, err
	}

	out := make([]*Feed, 0, len(recs))
	for _, rec := range recs {
		k, err := feed.ParseKey(rec.Key)
		if err != nil {
			return nil, fmt.Errorf("bad feed record %d: %w", rec.ID, err)
		}
		out = append(out, s.open(k, rec.Writable))
	}
	return out, nil
}

// Lookup opens a registered feed by key.
func (s *Store) Lookup(ctx context.Context, key feed.Key) (*Feed, error) {
	var rec FeedRecord
	err := s.meta.WithContext(ctx).Where("key = ?", key.String()).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("feed %s is not registered", key)
	}
	if err != nil {
		return nil, err
	}
	return s.open(key, rec.Writable), nil
}
