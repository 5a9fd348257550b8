package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxMessageSize bounds a single frame.
const MaxMessageSize = 1 << 20

// WriteMessage writes content as a frame: a little-endian uint32 length
// followed by the content. It returns early if ctx is done.
func WriteMessage(ctx context.Context, w io.Writer, content []byte) error {
	if len(content) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(content))
	}
	done := make(chan error, 1)
	go func() {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(content))); err != nil {
			done <- fmt.Errorf("failed to write message size: %w", err)
			return
		}
		if _, err := w.Write(content); err != nil {
			done <- fmt.Errorf("failed to write message content: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type readResult struct {
	content []byte
	err     error
}

// ReadMessage reads one frame written by WriteMessage.
func ReadMessage(ctx context.Context, r io.Reader) ([]byte, error) {
	done := make(chan readResult, 1)
	go func() {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			done <- readResult{err: fmt.Errorf("failed to read message size: %w", err)}
			return
		}
		if size > MaxMessageSize {
			done <- readResult{err: fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)}
			return
		}
		content := make([]byte, size)
		if _, err := io.ReadFull(r, content); err != nil {
			done <- readResult{err: fmt.Errorf("failed to read message content: %w", err)}
			return
		}
		done <- readResult{content: content}
	}()

	select {
	case res := <-done:
		return res.content, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Response status bytes.
const (
	StatusOK       byte = 0
	StatusRejected byte = 1
)

func encodeResponse(err error) []byte {
	if err == nil {
		return []byte{StatusOK}
	}
	return append([]byte{StatusRejected}, err.Error()...)
}

func decodeResponse(b []byte) error {
	if len(b) == 0 {
		return ErrMalformedResponse
	}
	switch b[0] {
	case StatusOK:
		return nil
	case StatusRejected:
		return fmt.Errorf("%w: %s", ErrRejected, b[1:])
	default:
		return fmt.Errorf("%w: status %d", ErrMalformedResponse, b[0])
	}
}
