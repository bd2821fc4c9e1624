package main

import (
	"github.com/bluesky-social/causalkv/node"
	"github.com/bluesky-social/causalkv/replication"

	cbg "github.com/whyrusleeping/cbor-gen"
)

func main() {
	if err := cbg.WriteMapEncodersToFile("node/cbor_gen.go", "node", node.Header{}, node.Pointer{}, node.Head{}, node.Node{}); err != nil {
		panic(err)
	}
	if err := cbg.WriteMapEncodersToFile("replication/cbor_gen.go", "replication", replication.FeedInfo{}, replication.Message{}); err != nil {
		panic(err)
	}
}
