package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
)

// maxLineBytes bounds one request line. Detach requests carry the full
// binding list, so the limit is generous.
const maxLineBytes = 16 << 20

// Serve speaks JSON lines: one Request per input line, one Message per
// output line. Pushed scan results are interleaved on the same writer.
// Serve returns when r is exhausted, when a close request arrives, or when
// ctx is done.
func Serve(ctx context.Context, s *Session, r io.Reader, w io.Writer) error {
	var wmu sync.Mutex
	enc := json.NewEncoder(w)
	write := func(m Message) {
		wmu.Lock()
		defer wmu.Unlock()
		if err := enc.Encode(m); err != nil {
			s.logger.Warn("failed to write message", "type", m.Type, "error", err)
		}
	}
	s.OnPush(write)
	defer s.OnPush(nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for sc.Scan() {
			select {
			case lines <- bytes.Clone(sc.Bytes()):
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	s.logger.Info("serving session over stdio")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return ctx.Err()
				}
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			for _, m := range s.Dispatch(ctx, line) {
				write(m)
			}
			if s.Closed() {
				return nil
			}
		}
	}
}
