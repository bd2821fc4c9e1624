// Package node defines the immutable records appended to each writer's feed.
package node

import (
	"bytes"
	"fmt"

	"github.com/bluesky-social/causalkv/keypath"
)

// SchemaType identifies feeds written by this package. It is stored in the Header at slot 0 of every feed.
const SchemaType = "causalkv"

// SchemaVersion is the current Header version.
const SchemaVersion = 0

// Header is the one-time schema marker occupying slot 0 of a feed. It is not a logical entry.
// Limits enforced by the generated codec.
const (
	MaxKeyLength   = 1_000_000
	MaxValueLength = 2 << 20
)

type Header struct {
	Type    string `cborgen:"type"`
	Version uint64 `cborgen:"version"`
}

// NewHeader returns the marker for the current schema.
func NewHeader() *Header {
	return &Header{Type: SchemaType, Version: SchemaVersion}
}

// Pointer references another node by writer and sequence number. Pointers are resolved through the
// owning writer's feed; they are never followed as memory references.
type Pointer struct {
	Feed string `cborgen:"feed"`
	Seq  uint64 `cborgen:"seq"`
	// [nullable] trie digit of the referenced node at the bucket's depth. nil when that slot is the terminal key.
	Digit *uint64 `cborgen:"v"`
}

// Head records the length of another writer's feed as observed when a node was written.
type Head struct {
	Feed   string `cborgen:"feed"`
	Length uint64 `cborgen:"length"`
}

// Node is one key/value write. Pointers[d] lists nodes whose path agrees with this node's path through
// position d-1 and diverges at d, plus a reference to this node itself.
type Node struct {
	Feed     string      `cborgen:"feed"`
	Seq      uint64      `cborgen:"seq"`
	Key      string      `cborgen:"key"`
	Digits   []byte      `cborgen:"path"`
	Pointers [][]Pointer `cborgen:"pointers"`
	Value    []byte      `cborgen:"value"`
	Heads    []Head      `cborgen:"heads"`

	// full path, rebuilt from Digits and Key
	path keypath.Path
}

// New assembles a node for path. Digits are taken from the path.
func New(feed string, seq uint64, path keypath.Path, pointers [][]Pointer, value []byte, heads []Head) *Node {
	key, _ := path.Key()
	return &Node{
		Feed:     feed,
		Seq:      seq,
		Key:      key,
		Digits:   path.DigitBytes(),
		Pointers: pointers,
		Value:    value,
		Heads:    heads,
		path:     path,
	}
}

// Path returns the node's full path: trie digits followed by the key.
func (n *Node) Path() keypath.Path {
	return n.path
}

// Bucket returns the pointer bucket at depth d, or nil when d is past the last bucket.
func (n *Node) Bucket(d int) []Pointer {
	if d < 0 || d >= len(n.Pointers) {
		return nil
	}
	return n.Pointers[d]
}

// HeadLength returns the length of feed recorded in this node's heads.
func (n *Node) HeadLength(feed string) (uint64, bool) {
	for _, h := range n.Heads {
		if h.Feed == feed {
			return h.Length, true
		}
	}
	return 0, false
}

// Ref returns a pointer to this node annotated with its element at depth d.
func (n *Node) Ref(d int) Pointer {
	return Pointer{Feed: n.Feed, Seq: n.Seq, Digit: DigitAt(n.path, d)}
}

func (n *Node) String() string {
	return fmt.Sprintf("%s/%d(%q)", shortFeed(n.Feed), n.Seq, n.Key)
}

// DigitAt returns the digit of p at depth d, or nil when d is the terminal slot or out of range.
func DigitAt(p keypath.Path, d int) *uint64 {
	v, ok := p.Digit(d)
	if !ok {
		return nil
	}
	out := uint64(v)
	return &out
}

// Encode serializes n to its CBOR representation.
func Encode(n *Node) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := n.MarshalCBOR(buf); err != nil {
		return nil, fmt.Errorf("failed to marshal node: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a stored node and rebuilds its path.
func Decode(raw []byte) (*Node, error) {
	var n Node
	if err := n.UnmarshalCBOR(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node: %w", err)
	}
	p, err := keypath.FromDigits(n.Digits, n.Key)
	if err != nil {
		return nil, fmt.Errorf("node %d has invalid path: %w", n.Seq, err)
	}
	n.path = p
	return &n, nil
}

// EncodeHeader serializes the schema marker.
func EncodeHeader(h *Header) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := h.MarshalCBOR(buf); err != nil {
		return nil, fmt.Errorf("failed to marshal header: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeHeader parses a schema marker.
func DecodeHeader(raw []byte) (*Header, error) {
	var h Header
	if err := h.UnmarshalCBOR(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal header: %w", err)
	}
	return &h, nil
}

func shortFeed(feed string) string {
	if len(feed) > 8 {
		return feed[:8]
	}
	return feed
}
