package kvstore

import (
	"sort"

	"github.com/bluesky-social/causalkv/node"
)

// dedup reduces candidates for a single key to its causal frontier.
//
// Exact duplicates (same feed and seq) collapse to one. A candidate is then dropped only when another
// node proves it superseded: a later node from the same feed, or a node whose heads show its writer had
// already seen the candidate. Frontier entries count as dominators only when they hold the same key.
// Survivors are pairwise concurrent and returned ordered by feed then seq.
func dedup(candidates []*node.Node, frontier []*node.Node) []*node.Node {
	uniq := make([]*node.Node, 0, len(candidates))
	for _, c := range candidates {
		dup := false
		for _, u := range uniq {
			if u.Feed == c.Feed && u.Seq == c.Seq {
				dup = true
				break
			}
		}
		if !dup {
			uniq = append(uniq, c)
		}
	}

	out := make([]*node.Node, 0, len(uniq))
	for _, c := range uniq {
		if dominated(c, uniq, frontier) {
			continue
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Feed != out[j].Feed {
			return out[i].Feed < out[j].Feed
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func dominated(c *node.Node, candidates []*node.Node, frontier []*node.Node) bool {
	for _, d := range candidates {
		if dominates(d, c) {
			return true
		}
	}
	for _, d := range frontier {
		if d != nil && d.Key == c.Key && dominates(d, c) {
			return true
		}
	}
	return false
}

// dominates reports whether d causally supersedes c.
func dominates(d, c *node.Node) bool {
	if d.Feed == c.Feed {
		return d.Seq > c.Seq
	}
	l, ok := d.HeadLength(c.Feed)
	return ok && l > c.Seq
}

// dedupKeys groups nodes by key in byte order and deduplicates every group independently.
func dedupKeys(nodes []*node.Node, frontier []*node.Node) []*node.Node {
	if len(nodes) == 0 {
		return nil
	}

	sorted := make([]*node.Node, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	var out []*node.Node
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i].Key == sorted[start].Key {
			continue
		}
		out = append(out, dedup(sorted[start:i], frontier)...)
		start = i
	}
	return out
}
