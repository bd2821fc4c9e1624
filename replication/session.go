// Package replication synchronizes feeds between two stores over any byte stream.
//
// Each side of a session sends a hello listing its feeds and their lengths, asks for the entries it
// lacks on every read-only feed it shares with the remote, serves the remote's requests, and finishes
// once both sides have answered each other. Sessions are one-shot: entries appended after the hello
// are picked up by the next session.
package replication

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bluesky-social/causalkv/feed"
)

var (
	// ErrFeedCountMismatch is returned when the remote side advertises a different number of feeds.
	ErrFeedCountMismatch = errors.New("remote feed count does not match")
	ErrUnknownMessage    = errors.New("unknown replication message")
	ErrSessionClosed     = errors.New("replication session closed")
)

type Options struct {
	// ExpectedFeeds is the number of feeds that will be attached. The hello is sent once all of them
	// are, and the remote must advertise the same count. Zero means one.
	ExpectedFeeds int

	Logger *slog.Logger
}

// Session is one side of a replication exchange. Bytes written to it come from the remote side; bytes
// read from it must be delivered to the remote side.
type Session struct {
	opts Options
	log  *slog.Logger
	ctx  context.Context

	lk       sync.Mutex
	feeds    []feed.Feed
	byKey    map[string]feed.Feed
	attached chan struct{}

	inR  *io.PipeReader
	inW  *io.PipeWriter
	outR *io.PipeReader
	outW *io.PipeWriter

	outLk  sync.Mutex
	outbox []*Message
	notify chan struct{}

	// protocol state, owned by the run goroutine
	sentFin bool
	gotFin  bool

	doneOnce sync.Once
	done     chan struct{}
	err      error
}

var _ io.ReadWriteCloser = (*Session)(nil)

// NewSession starts a session. The hello goes out once Options.ExpectedFeeds feeds are attached.
func NewSession(ctx context.Context, opts Options) *Session {
	if opts.ExpectedFeeds <= 0 {
		opts.ExpectedFeeds = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Session{
		opts:     opts,
		log:      log.With("system", "replication"),
		ctx:      ctx,
		byKey:    make(map[string]feed.Feed),
		attached: make(chan struct{}),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	s.inR, s.inW = io.Pipe()
	s.outR, s.outW = io.Pipe()

	go s.run()
	return s
}

// Attach adds a feed to the session.
func (s *Session) Attach(f feed.Feed) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	key := f.Key().String()
	if _, ok := s.byKey[key]; ok {
		return fmt.Errorf("feed %s already attached", key)
	}
	if len(s.feeds) >= s.opts.ExpectedFeeds {
		return fmt.Errorf("%w: attaching more than %d feeds", ErrFeedCountMismatch, s.opts.ExpectedFeeds)
	}

	s.feeds = append(s.feeds, f)
	s.byKey[key] = f
	if len(s.feeds) == s.opts.ExpectedFeeds {
		close(s.attached)
	}
	return nil
}

func (s *Session) Read(p []byte) (int, error) {
	return s.outR.Read(p)
}

func (s *Session) Write(p []byte) (int, error) {
	return s.inW.Write(p)
}

// Close aborts the session if it has not finished.
func (s *Session) Close() error {
	s.Abort(ErrSessionClosed)
	return nil
}

// Abort ends the session with err. It has no effect on a finished session.
func (s *Session) Abort(err error) {
	s.finish(err)
}

// closeInput marks the end of the remote's bytes. A session that has not received the remote's fin by
// then fails.
func (s *Session) closeInput(err error) {
	s.inW.CloseWithError(err)
}

// Done is closed when the session finishes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session finishes and returns its outcome.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) finish(err error) {
	s.doneOnce.Do(func() {
		s.err = err
		if err != nil {
			s.outW.CloseWithError(err)
			s.inR.CloseWithError(err)
			s.log.Warn("replication session failed", "err", err)
			sessionsTotal.WithLabelValues("error").Inc()
		} else {
			sessionsTotal.WithLabelValues("ok").Inc()
			s.log.Debug("replication session finished")
		}
		close(s.done)
	})
}

func (s *Session) send(m *Message) {
	s.outLk.Lock()
	s.outbox = append(s.outbox, m)
	s.outLk.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// writeLoop drains the outbox into the outgoing pipe. Once last is closed and the outbox is empty it
// closes the pipe, so the remote reader sees EOF, and then closes flushed.
func (s *Session) writeLoop(last <-chan struct{}, flushed chan<- struct{}) {
	w := bufio.NewWriter(s.outW)
	for {
		s.outLk.Lock()
		batch := s.outbox
		s.outbox = nil
		s.outLk.Unlock()

		for _, m := range batch {
			if err := writeFrame(w, m); err != nil {
				s.finish(err)
				return
			}
			messagesSent.WithLabelValues(m.Type).Inc()
		}
		if len(batch) > 0 {
			if err := w.Flush(); err != nil {
				s.finish(err)
				return
			}
			continue
		}

		select {
		case <-s.notify:
		case <-last:
			s.outLk.Lock()
			pending := len(s.outbox)
			s.outLk.Unlock()
			if pending > 0 {
				continue
			}
			s.outW.Close()
			close(flushed)
			return
		case <-s.done:
			return
		}
	}
}

func (s *Session) run() {
	select {
	case <-s.attached:
	case <-s.ctx.Done():
		s.finish(s.ctx.Err())
		return
	case <-s.done:
		return
	}

	go func() {
		select {
		case <-s.ctx.Done():
			s.finish(s.ctx.Err())
		case <-s.done:
		}
	}()

	last := make(chan struct{})
	flushed := make(chan struct{})
	go s.writeLoop(last, flushed)

	s.lk.Lock()
	hello := &Message{Type: MsgHello, ExpectedFeeds: uint64(s.opts.ExpectedFeeds)}
	for _, f := range s.feeds {
		hello.Feeds = append(hello.Feeds, FeedInfo{Key: f.Key().String(), Length: f.Len()})
	}
	s.lk.Unlock()
	s.send(hello)

	r := bufio.NewReader(s.inR)
	for {
		m, err := readFrame(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("remote closed before finishing: %w", io.ErrUnexpectedEOF)
			}
			s.finish(err)
			return
		}
		messagesReceived.WithLabelValues(m.Type).Inc()

		if err := s.handle(m); err != nil {
			s.finish(err)
			return
		}
		if s.sentFin && s.gotFin {
			close(last)
			select {
			case <-flushed:
			case <-s.done:
				return
			}
			s.inR.Close()
			s.finish(nil)
			return
		}
	}
}

func (s *Session) handle(m *Message) error {
	switch m.Type {
	case MsgHello:
		return s.handleHello(m)
	case MsgWant:
		return s.handleWant(m)
	case MsgWantDone:
		s.send(&Message{Type: MsgFin})
		s.sentFin = true
		return nil
	case MsgData:
		return s.handleData(m)
	case MsgFin:
		s.gotFin = true
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
}

func (s *Session) handleHello(m *Message) error {
	if m.ExpectedFeeds != uint64(s.opts.ExpectedFeeds) {
		return fmt.Errorf("%w: remote has %d, local has %d", ErrFeedCountMismatch, m.ExpectedFeeds, s.opts.ExpectedFeeds)
	}

	for _, fi := range m.Feeds {
		f, ok := s.lookup(fi.Key)
		if !ok {
			continue
		}
		if _, ok := f.(feed.Importer); !ok || f.Writable() {
			continue
		}
		if l := f.Len(); fi.Length > l {
			s.log.Debug("requesting entries", "feed", fi.Key, "start", l, "end", fi.Length)
			s.send(&Message{Type: MsgWant, Feed: fi.Key, Start: l, End: fi.Length})
		}
	}
	s.send(&Message{Type: MsgWantDone})
	return nil
}

func (s *Session) handleWant(m *Message) error {
	f, ok := s.lookup(m.Feed)
	if !ok {
		return fmt.Errorf("remote requested unknown feed %s", m.Feed)
	}

	end := min(m.End, f.Len())
	for seq := m.Start; seq < end; seq++ {
		entry, err := f.Get(s.ctx, seq)
		if err != nil {
			return fmt.Errorf("reading %s/%d for remote: %w", m.Feed, seq, err)
		}
		s.send(&Message{Type: MsgData, Feed: m.Feed, Seq: seq, Entry: entry})
	}
	return nil
}

func (s *Session) handleData(m *Message) error {
	f, ok := s.lookup(m.Feed)
	if !ok {
		return fmt.Errorf("remote sent data for unknown feed %s", m.Feed)
	}
	imp, ok := f.(feed.Importer)
	if !ok || f.Writable() {
		return fmt.Errorf("remote sent data for feed %s, which is not a replica", m.Feed)
	}
	if m.Seq < imp.Len() {
		// already have it
		return nil
	}
	if err := imp.Import(s.ctx, m.Seq, m.Entry); err != nil {
		return fmt.Errorf("importing %s/%d: %w", m.Feed, m.Seq, err)
	}
	entriesImported.Inc()
	return nil
}

func (s *Session) lookup(key string) (feed.Feed, bool) {
	s.lk.Lock()
	defer s.lk.Unlock()
	f, ok := s.byKey[key]
	return f, ok
}
