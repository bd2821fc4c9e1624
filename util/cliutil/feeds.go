package cliutil

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bluesky-social/causalkv/feed"
	"github.com/bluesky-social/causalkv/feed/diskfeed"
	"github.com/bluesky-social/causalkv/feed/pebblefeed"

	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	BackendDisk   = "disk"
	BackendPebble = "pebble"
)

// FeedSet is the registered feeds of a data directory, whichever backend holds them.
type FeedSet struct {
	disk   *diskfeed.Store
	meta   *gorm.DB
	pebble *pebblefeed.DB
}

// OpenFeedSet opens the feed backend in dataDir. For the disk backend, dburl selects the metadata
// database; empty means a sqlite file inside dataDir.
func OpenFeedSet(dataDir, backend, dburl string, log *slog.Logger) (*FeedSet, error) {
	switch backend {
	case BackendDisk, "":
		if dburl == "" {
			dburl = "sqlite://" + filepath.Join(dataDir, "meta.sqlite")
		}
		meta, err := SetupDatabase(dburl, 10)
		if err != nil {
			return nil, fmt.Errorf("opening metadata database: %w", err)
		}
		s, err := diskfeed.NewStore(filepath.Join(dataDir, "feeds"), meta, &diskfeed.Options{
			EntriesPerFile: diskfeed.DefaultOptions().EntriesPerFile,
			Logger:         log,
		})
		if err != nil {
			return nil, err
		}
		return &FeedSet{disk: s, meta: meta}, nil
	case BackendPebble:
		db, err := pebblefeed.Open(filepath.Join(dataDir, "feeds.pebble"), log)
		if err != nil {
			return nil, err
		}
		return &FeedSet{pebble: db}, nil
	default:
		return nil, fmt.Errorf("unknown feed backend %q", backend)
	}
}

// TraceQueries emits an OpenTelemetry span for each metadata database query. No-op for pebble.
func (fs *FeedSet) TraceQueries() error {
	if fs.meta == nil {
		return nil
	}
	return fs.meta.Use(tracing.NewPlugin())
}

// Feeds returns every registered feed in registration order.
func (fs *FeedSet) Feeds(ctx context.Context) ([]feed.Feed, error) {
	var out []feed.Feed
	if fs.disk != nil {
		dfs, err := fs.disk.Feeds(ctx)
		if err != nil {
			return nil, err
		}
		for _, f := range dfs {
			out = append(out, f)
		}
		return out, nil
	}

	pfs, err := fs.pebble.Feeds(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range pfs {
		out = append(out, f)
	}
	return out, nil
}

// Create registers a new local feed.
func (fs *FeedSet) Create(ctx context.Context, writable bool) (feed.Feed, error) {
	if fs.disk != nil {
		return fs.disk.Create(ctx, writable)
	}
	return fs.pebble.Create(ctx, writable)
}

// Add registers a replica of a remote writer's feed.
func (fs *FeedSet) Add(ctx context.Context, key feed.Key) (feed.Feed, error) {
	if fs.disk != nil {
		return fs.disk.Add(ctx, key, false)
	}
	return fs.pebble.Add(ctx, key, false)
}

// Close releases backend resources. Feeds themselves are closed by their store.
func (fs *FeedSet) Close() error {
	if fs.pebble != nil {
		return fs.pebble.Close()
	}
	return nil
}
