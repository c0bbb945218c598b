package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultChunkSize is the read size used against the input stream
	DefaultChunkSize = 32 * 1024
	// DefaultMaxLineBytes bounds a single request line
	DefaultMaxLineBytes = 16 * 1024 * 1024
)

// Handler answers one parsed request. A nil response means nothing is written.
type Handler interface {
	Handle(ctx context.Context, req *Request) *Response
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, req *Request) *Response

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, req *Request) *Response {
	return f(ctx, req)
}

// Transport frames newline-delimited JSON-RPC over a reader/writer pair.
// Every complete line is handled on its own goroutine; responses are written
// whole, one per line, in completion order.
type Transport struct {
	in        io.Reader
	out       io.Writer
	handler   Handler
	logger    *logrus.Logger
	chunkSize int
	maxLine   int

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// TransportOption configures a Transport
type TransportOption func(*Transport)

// WithChunkSize sets the read size, mostly useful for exercising carry-over in tests
func WithChunkSize(n int) TransportOption {
	return func(t *Transport) {
		if n > 0 {
			t.chunkSize = n
		}
	}
}

// WithMaxLineBytes bounds the length of a single request line
func WithMaxLineBytes(n int) TransportOption {
	return func(t *Transport) {
		if n > 0 {
			t.maxLine = n
		}
	}
}

// NewTransport creates a transport reading requests from in and writing responses to out
func NewTransport(in io.Reader, out io.Writer, handler Handler, logger *logrus.Logger, opts ...TransportOption) *Transport {
	t := &Transport{
		in:        in,
		out:       out,
		handler:   handler,
		logger:    logger,
		chunkSize: DefaultChunkSize,
		maxLine:   DefaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Serve reads until end of input, then waits for in-flight handlers and returns nil.
// If ctx is cancelled first, Serve stops accepting lines and returns ctx.Err() once
// running handlers have finished.
func (t *Transport) Serve(ctx context.Context) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		readErr <- t.readLines(ctx, lines)
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			t.wg.Wait()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				t.wg.Wait()
				err := <-readErr
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				return nil
			}
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				t.handleLine(ctx, line)
			}()
		}
	}
}

// readLines splits the input on '\n', carrying an incomplete trailing fragment
// over to the next chunk. A final unterminated line at EOF is still delivered.
func (t *Transport) readLines(ctx context.Context, lines chan<- []byte) error {
	buf := make([]byte, t.chunkSize)
	var carry []byte
	discarding := false

	emit := func(line []byte) bool {
		if len(bytes.TrimSpace(line)) == 0 {
			return true
		}
		if len(line) > t.maxLine {
			t.logger.WithField("bytes", len(line)).Warn("Dropping oversized request line")
			return true
		}
		select {
		case lines <- bytes.Clone(line):
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		n, err := t.in.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			for {
				i := bytes.IndexByte(carry, '\n')
				if i < 0 {
					break
				}
				line := carry[:i]
				carry = carry[i+1:]
				if discarding {
					discarding = false
					continue
				}
				if !emit(line) {
					return ctx.Err()
				}
			}
			if len(carry) > t.maxLine {
				t.logger.WithField("bytes", len(carry)).Warn("Dropping oversized request line")
				carry = nil
				discarding = true
			}
			// Compact so the backing array does not grow without bound
			carry = append([]byte(nil), carry...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) && !discarding {
				emit(carry)
			}
			return err
		}
	}
}

func (t *Transport) handleLine(ctx context.Context, line []byte) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		t.logger.WithError(err).WithField("line", preview(line)).Warn("Failed to parse request line")
		return
	}

	resp := t.handler.Handle(ctx, &req)
	if resp == nil {
		return
	}
	t.write(resp)
}

func (t *Transport) write(resp *Response) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		t.logger.WithError(err).Error("Failed to encode response")
		fallback := &Response{
			JSONRPC: JSONRPCVersion,
			ID:      resp.ID,
			Error:   NewError(CodeInternalError, "failed to encode response: %v", err),
		}
		buf.Reset()
		if err := enc.Encode(fallback); err != nil {
			return
		}
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.out.Write(buf.Bytes()); err != nil {
		t.logger.WithError(err).Error("Failed to write response")
	}
}

func preview(line []byte) string {
	const limit = 120
	if len(line) > limit {
		return string(line[:limit]) + "..."
	}
	return string(line)
}
