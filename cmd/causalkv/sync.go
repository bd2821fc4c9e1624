package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluesky-social/causalkv/replication"

	cli "github.com/urfave/cli/v2"
)

var syncCmd = &cli.Command{
	Name:      "sync",
	Usage:     "replicate with a remote store",
	ArgsUsage: `<ws-url>`,
	Flags: []cli.Flag{
		cacheSizeFlag,
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "give up if the session has not finished by then",
			Value:   5 * time.Minute,
			EnvVars: []string{"CAUSALKV_SYNC_TIMEOUT"},
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.Args().Len() != 1 {
			return fmt.Errorf("expected the remote replication url, eg ws://host:4700/replicate")
		}
		url := cctx.Args().First()

		e, err := openEnv(cctx)
		if err != nil {
			return err
		}
		defer e.Close(cctx.Context)

		ctx := cctx.Context
		if d := cctx.Duration("timeout"); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		s, err := e.db.Replicate(ctx, replication.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		start := time.Now()
		if err := replication.Dial(ctx, url, s); err != nil {
			return err
		}
		slog.Info("sync finished", "remote", url, "took", time.Since(start))
		return nil
	},
}
