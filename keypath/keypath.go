// Package keypath derives the trie path for a key.
//
// A path is a fixed run of base-4 digits taken from a keyed short hash of the key, followed by the key
// itself as a terminal element. Two keys that collide on every digit still differ at the terminal slot.
package keypath

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dchest/siphash"
)

const (
	// DigestSize is the length in bytes of the keyed short hash.
	DigestSize = 8

	// DigitsPerByte is how many base-4 digits each digest byte expands into.
	DigitsPerByte = 4

	// Digits is the number of trie digits in every path.
	Digits = DigestSize * DigitsPerByte

	// Len is the number of elements in every derived path: the digits plus the terminal key.
	Len = Digits + 1

	// Fanout is the number of distinct values a single digit can take.
	Fanout = 4
)

// HashKey is the key of the keyed short hash.
type HashKey [16]byte

// ZeroKey is the process-wide hash key. Every writer of a store must derive paths with the same key.
var ZeroKey HashKey

// Elem is one slot of a Path: either a trie digit or the terminal key.
type Elem struct {
	Digit    uint8
	Key      string
	Terminal bool
}

// DigitElem returns the element for trie digit d.
func DigitElem(d uint8) Elem {
	return Elem{Digit: d}
}

// KeyElem returns the terminal element for key.
func KeyElem(key string) Elem {
	return Elem{Key: key, Terminal: true}
}

func (e Elem) String() string {
	if e.Terminal {
		return fmt.Sprintf("%q", e.Key)
	}
	return fmt.Sprintf("%d", e.Digit)
}

// Path is an ordered sequence of elements. Derived paths always have Len elements; prefixes may be shorter.
type Path []Elem

// Derive computes the path for key using ZeroKey.
func Derive(key string) Path {
	return DeriveWithKey(ZeroKey, key)
}

// DeriveWithKey computes the path for key: SipHash-2-4 of the key bytes under hk, each digest byte split
// low bits first into DigitsPerByte base-4 digits, then the key as the terminal element.
func DeriveWithKey(hk HashKey, key string) Path {
	k0 := binary.LittleEndian.Uint64(hk[:8])
	k1 := binary.LittleEndian.Uint64(hk[8:])

	var digest [DigestSize]byte
	binary.LittleEndian.PutUint64(digest[:], siphash.Hash(k0, k1, []byte(key)))

	out := make(Path, 0, Len)
	for _, b := range digest {
		for i := 0; i < DigitsPerByte; i++ {
			out = append(out, DigitElem(b&(Fanout-1)))
			b >>= 2
		}
	}
	return append(out, KeyElem(key))
}

// FromDigits rebuilds a full path from its digit run and terminal key. Used when decoding stored nodes.
func FromDigits(digits []byte, key string) (Path, error) {
	if len(digits) != Digits {
		return nil, fmt.Errorf("path must have %d digits, got %d", Digits, len(digits))
	}
	out := make(Path, 0, Len)
	for _, d := range digits {
		if d >= Fanout {
			return nil, fmt.Errorf("invalid path digit %d", d)
		}
		out = append(out, DigitElem(d))
	}
	return append(out, KeyElem(key)), nil
}

// CommonPrefix returns the count of equal leading elements of a and b.
func CommonPrefix(a, b Path) int {
	var i int
	for i = 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return i
}

// HasPrefix reports whether p starts with prefix.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && CommonPrefix(p, prefix) == len(prefix)
}

// Digit returns the trie digit at index i. ok is false when i is out of range or is the terminal slot.
func (p Path) Digit(i int) (d uint8, ok bool) {
	if i < 0 || i >= len(p) || p[i].Terminal {
		return 0, false
	}
	return p[i].Digit, true
}

// DigitBytes returns the leading trie digits of p, one byte per digit.
func (p Path) DigitBytes() []byte {
	out := make([]byte, 0, len(p))
	for _, e := range p {
		if e.Terminal {
			break
		}
		out = append(out, e.Digit)
	}
	return out
}

// Key returns the terminal key of p, if present.
func (p Path) Key() (string, bool) {
	if len(p) == 0 || !p[len(p)-1].Terminal {
		return "", false
	}
	return p[len(p)-1].Key, true
}

// Extend returns a copy of p with e appended.
func (p Path) Extend(e Elem) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, e)
}

// String renders the digits of p as a compact string, with the terminal key (if any) after a slash.
func (p Path) String() string {
	var sb strings.Builder
	for _, e := range p {
		if e.Terminal {
			sb.WriteString("/")
			sb.WriteString(e.Key)
			break
		}
		sb.WriteByte('0' + e.Digit)
	}
	return sb.String()
}

// ParsePrefix parses a string of base-4 digits (eg "0312") into a path prefix. A trailing "/key"
// selects the terminal element, using the same layout as Path.String.
func ParsePrefix(s string) (Path, error) {
	digits, key, hasKey := strings.Cut(s, "/")
	if len(digits) > Digits {
		return nil, fmt.Errorf("prefix longer than %d digits", Digits)
	}
	if hasKey && len(digits) != Digits {
		return nil, fmt.Errorf("terminal key requires all %d digits", Digits)
	}
	out := make(Path, 0, len(digits)+1)
	for _, c := range digits {
		if c < '0' || c >= '0'+Fanout {
			return nil, fmt.Errorf("invalid digit %q in prefix", c)
		}
		out = append(out, DigitElem(uint8(c-'0')))
	}
	if hasKey {
		out = append(out, KeyElem(key))
	}
	return out, nil
}
