package replication

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bluesky-social/causalkv/internal/group"

	"github.com/gorilla/websocket"
)

// Pipe connects two local sessions and waits for both to finish.
func Pipe(ctx context.Context, a, b *Session) error {
	go copyStream(b, a)
	go copyStream(a, b)

	g := group.New(group.WithContext(ctx), group.Settle())
	g.Add(a.Wait)
	g.Add(b.Wait)
	return g.Wait()
}

func copyStream(dst, src *Session) {
	if _, err := io.Copy(dst, src); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		dst.Abort(err)
	}
}

// Pump runs s over a websocket connection until the session finishes. Every chunk the session emits is
// sent as one binary message.
func Pump(ctx context.Context, conn *websocket.Conn, s *Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		t := time.NewTicker(time.Second * 30)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second*10)); err != nil {
					s.log.Warn("failed to ping", "err", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// inbound
	go func() {
		for {
			mt, r, err := conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					s.closeInput(nil)
				} else {
					s.closeInput(fmt.Errorf("reading from websocket: %w", err))
				}
				return
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			if _, err := io.Copy(s, r); err != nil {
				if !errors.Is(err, io.ErrClosedPipe) {
					s.Abort(err)
				}
				return
			}
		}
	}()

	// outbound
	buf := make([]byte, 32<<10)
	for {
		n, err := s.Read(buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				s.Abort(fmt.Errorf("writing to websocket: %w", werr))
				break
			}
		}
		if err != nil {
			break
		}
	}

	err := s.Wait(ctx)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err != nil {
		msg = websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
	}
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return err
}

// Dial connects to a remote store's replication endpoint and runs s over it.
func Dial(ctx context.Context, url string, s *Session) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		s.Abort(err)
		return fmt.Errorf("dialing %s: %w", url, err)
	}
	defer conn.Close()

	return Pump(ctx, conn, s)
}
