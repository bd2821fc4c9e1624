package replication

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// MsgHello opens a session, listing the sender's feeds and their lengths.
	MsgHello = "hello"
	// MsgWant asks for entries [Start, End) of Feed.
	MsgWant = "want"
	// MsgWantDone follows the last MsgWant a side will ever send.
	MsgWantDone = "wantdone"
	// MsgData carries one entry.
	MsgData = "data"
	// MsgFin follows the last MsgData answering the remote's wants.
	MsgFin = "fin"
)

// maximum encoded message size
const maxFrame = 4 << 20

type FeedInfo struct {
	Key    string `cborgen:"key"`
	Length uint64 `cborgen:"length"`
}

// Message is the single frame type exchanged by sessions. Only the fields relevant to Type are set.
type Message struct {
	Type          string     `cborgen:"t"`
	ExpectedFeeds uint64     `cborgen:"expected"`
	Feeds         []FeedInfo `cborgen:"feeds"`
	Feed          string     `cborgen:"feed"`
	Start         uint64     `cborgen:"start"`
	End           uint64     `cborgen:"end"`
	Seq           uint64     `cborgen:"seq"`
	Entry         []byte     `cborgen:"entry"`
}

// writeFrame writes m prefixed with its uvarint length.
func writeFrame(w io.Writer, m *Message) error {
	buf := new(bytes.Buffer)
	if err := m.MarshalCBOR(buf); err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", m.Type, err)
	}

	var lb [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lb[:], uint64(buf.Len()))
	if _, err := w.Write(lb[:n]); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func readFrame(r *bufio.Reader) (*Message, error) {
	l, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if l > maxFrame {
		return nil, fmt.Errorf("frame too large (%d bytes)", l)
	}

	raw := make([]byte, l)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}

	var m Message
	if err := m.UnmarshalCBOR(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &m, nil
}
