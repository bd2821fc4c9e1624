package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bluesky-social/causalkv/feed"
	"github.com/bluesky-social/causalkv/keypath"
	"github.com/bluesky-social/causalkv/node"

	cli "github.com/urfave/cli/v2"
)

var cacheSizeFlag = &cli.IntFlag{
	Name:    "cache-size",
	Usage:   "decoded nodes cached per feed",
	Value:   4096,
	EnvVars: []string{"CAUSALKV_CACHE_SIZE"},
}

var initCmd = &cli.Command{
	Name:  "init",
	Usage: "create the local writable feed",
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context

		fs, err := openFeedSet(cctx)
		if err != nil {
			return err
		}
		defer fs.Close()

		existing, err := fs.Feeds(ctx)
		if err != nil {
			return err
		}
		for _, f := range existing {
			if f.Writable() {
				return fmt.Errorf("already initialized, local feed is %s", f.Key())
			}
		}

		f, err := fs.Create(ctx, true)
		if err != nil {
			return err
		}
		fmt.Println(f.Key())
		return nil
	},
}

var addFeedCmd = &cli.Command{
	Name:      "add-feed",
	Usage:     "register a remote writer's feed to replicate",
	ArgsUsage: `<feed-key>`,
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context

		if cctx.Args().Len() != 1 {
			return fmt.Errorf("expected a single feed key")
		}
		k, err := feed.ParseKey(cctx.Args().First())
		if err != nil {
			return err
		}

		fs, err := openFeedSet(cctx)
		if err != nil {
			return err
		}
		defer fs.Close()

		_, err = fs.Add(ctx, k)
		return err
	},
}

var feedsCmd = &cli.Command{
	Name:  "feeds",
	Usage: "list registered feeds",
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context

		fs, err := openFeedSet(cctx)
		if err != nil {
			return err
		}
		defer fs.Close()

		feeds, err := fs.Feeds(ctx)
		if err != nil {
			return err
		}
		for _, f := range feeds {
			if err := f.Ready(ctx); err != nil {
				return err
			}
			mode := "replica"
			if f.Writable() {
				mode = "local"
			}
			fmt.Printf("%s\t%s\t%d\n", f.Key(), mode, f.Len())
		}
		return nil
	},
}

var putCmd = &cli.Command{
	Name:      "put",
	Usage:     "write a value",
	ArgsUsage: `<key> <value>`,
	Flags:     []cli.Flag{cacheSizeFlag},
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context

		if cctx.Args().Len() != 2 {
			return fmt.Errorf("expected a key and a value")
		}

		e, err := openEnv(cctx)
		if err != nil {
			return err
		}
		defer e.Close(ctx)

		return e.db.Put(ctx, cctx.Args().Get(0), []byte(cctx.Args().Get(1)))
	},
}

var getCmd = &cli.Command{
	Name:      "get",
	Usage:     "read the current values of a key",
	ArgsUsage: `<key>`,
	Flags:     []cli.Flag{cacheSizeFlag},
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context

		if cctx.Args().Len() != 1 {
			return fmt.Errorf("expected a single key")
		}

		e, err := openEnv(cctx)
		if err != nil {
			return err
		}
		defer e.Close(ctx)

		nodes, err := e.db.Get(ctx, cctx.Args().First())
		if err != nil {
			return err
		}
		return printNodes(nodes)
	},
}

var listCmd = &cli.Command{
	Name:      "list",
	Usage:     "list keys under a path prefix",
	ArgsUsage: `[digits[/key]]`,
	Flags:     []cli.Flag{cacheSizeFlag},
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context

		prefix, err := keypath.ParsePrefix(cctx.Args().First())
		if err != nil {
			return err
		}

		e, err := openEnv(cctx)
		if err != nil {
			return err
		}
		defer e.Close(ctx)

		nodes, err := e.db.List(ctx, prefix)
		if err != nil {
			return err
		}
		return printNodes(nodes)
	},
}

// nodeOut is the JSON form of a node printed by get and list.
type nodeOut struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Feed  string `json:"feed"`
	Seq   uint64 `json:"seq"`
}

func printNodes(nodes []*node.Node) error {
	enc := json.NewEncoder(os.Stdout)
	for _, n := range nodes {
		if err := enc.Encode(nodeOut{Key: n.Key, Value: string(n.Value), Feed: n.Feed, Seq: n.Seq}); err != nil {
			return err
		}
	}
	return nil
}
