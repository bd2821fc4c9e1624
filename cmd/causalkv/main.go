package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bluesky-social/causalkv/kvstore"
	"github.com/bluesky-social/causalkv/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "causalkv",
		Usage:   "multi-writer key/value store over append-only feeds",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "directory holding feeds and metadata",
			Value:   "data/causalkv",
			EnvVars: []string{"CAUSALKV_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "feed storage backend (disk, pebble)",
			Value:   cliutil.BackendDisk,
			EnvVars: []string{"CAUSALKV_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "metadata database for the disk backend; defaults to sqlite inside data-dir",
			EnvVars: []string{"CAUSALKV_DATABASE_URL", "DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"CAUSALKV_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (text, json)",
			EnvVars: []string{"CAUSALKV_LOG_FMT"},
		},
		&cli.BoolFlag{
			Name:    "enable-db-tracing",
			Usage:   "trace metadata database queries",
			EnvVars: []string{"CAUSALKV_ENABLE_DB_TRACING"},
		},
	}

	app.Before = func(cctx *cli.Context) error {
		_, err := cliutil.SetupSlog(cliutil.LogOptions{
			LogLevel:  cctx.String("log-level"),
			LogFormat: cctx.String("log-format"),
			LogPath:   "-",
		})
		return err
	}

	app.Commands = []*cli.Command{
		initCmd,
		addFeedCmd,
		feedsCmd,
		putCmd,
		getCmd,
		listCmd,
		serveCmd,
		syncCmd,
	}

	return app.Run(args)
}

// env bundles the opened feed set and store for one command invocation.
type env struct {
	feeds *cliutil.FeedSet
	db    *kvstore.DB
}

func openFeedSet(cctx *cli.Context) (*cliutil.FeedSet, error) {
	fs, err := cliutil.OpenFeedSet(cctx.String("data-dir"), cctx.String("backend"), cctx.String("database-url"), slog.Default())
	if err != nil {
		return nil, err
	}
	if cctx.Bool("enable-db-tracing") {
		if err := fs.TraceQueries(); err != nil {
			fs.Close()
			return nil, err
		}
	}
	return fs, nil
}

// openEnv opens every registered feed as one store and waits for it to be ready.
func openEnv(cctx *cli.Context) (*env, error) {
	ctx := cctx.Context

	fs, err := openFeedSet(cctx)
	if err != nil {
		return nil, err
	}
	feeds, err := fs.Feeds(ctx)
	if err != nil {
		fs.Close()
		return nil, err
	}
	if len(feeds) == 0 {
		fs.Close()
		return nil, fmt.Errorf("no feeds in %s, run init first", cctx.String("data-dir"))
	}

	db := kvstore.Open(feeds, &kvstore.Options{
		CacheSize: cctx.Int("cache-size"),
		Logger:    slog.Default().With("system", "kvstore"),
	})
	if err := db.Ready(ctx); err != nil {
		fs.Close()
		return nil, err
	}
	return &env{feeds: fs, db: db}, nil
}

func (e *env) Close(ctx context.Context) error {
	err := e.db.Close(ctx)
	if cerr := e.feeds.Close(); err == nil {
		err = cerr
	}
	return err
}
