// Package bridge exposes the counters store to a host UI as named commands
// with structured JSON arguments.
package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/maloquacious/count/internal/logger"
	"github.com/maloquacious/count/internal/store"
)

// Request is one command invocation from the UI.
type Request struct {
	ID      int64           `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response carries either a result or a typed error back to the UI.
type Response struct {
	ID     int64  `json:"id"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// Error is the wire form of a store failure.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SchemaVersioner reports the applied schema version.
type SchemaVersioner interface {
	GetSchemaVersion(ctx context.Context) (int64, error)
}

// Backend is what the bridge needs from the store.
type Backend interface {
	store.Counters
	SchemaVersioner
}

// MaxRequestSize is the longest request line Serve accepts, newline excluded.
const MaxRequestSize = 1 << 20

var errRequestTooLarge = fmt.Errorf("%w: request too large", store.ErrValidation)

var errClosed = fmt.Errorf("%w: bridge closed", store.ErrStorage)

type handler func(ctx context.Context, args json.RawMessage) (any, error)

// Bridge dispatches named commands to a Backend.
type Bridge struct {
	backend  Backend
	log      logger.Logger
	handlers map[string]handler

	mu     sync.Mutex // held while a command runs
	closed bool
}

// New creates a Bridge serving the given backend.
func New(backend Backend, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.Default
	}
	b := &Bridge{backend: backend, log: log}
	b.handlers = map[string]handler{
		"create_counter":    b.createCounter,
		"get_counter":       b.getCounter,
		"get_all_counters":  b.getAllCounters,
		"update_counter":    b.updateCounter,
		"delete_counter":    b.deleteCounter,
		"increment_counter": b.incrementCounter,
		"reset_counter":     b.resetCounter,
		"schema_version":    b.schemaVersion,
	}
	return b
}

// Commands lists the registered command names in sorted order.
func (b *Bridge) Commands() []string {
	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs a single command and returns its result.
func (b *Bridge) Invoke(ctx context.Context, command string, args json.RawMessage) (any, error) {
	h, ok := b.handlers[command]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command %q", store.ErrValidation, command)
	}
	return h(ctx, args)
}

// Handle turns a request into a response; it never fails.
func (b *Bridge) Handle(ctx context.Context, req Request) Response {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return failure(req.ID, errClosed)
	}

	result, err := b.Invoke(ctx, req.Command, req.Args)
	if err != nil {
		b.log.Warn("command %s (request %d) failed: %v", req.Command, req.ID, err)
		return failure(req.ID, err)
	}
	return Response{ID: req.ID, OK: true, Result: result}
}

// Close waits for the running command, if any, and rejects every later one.
// The backend may be released once Close returns.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func failure(id int64, err error) Response {
	return Response{ID: id, Error: &Error{Kind: store.Kind(err), Message: err.Error()}}
}

// Serve reads newline-delimited requests from r and writes one response
// line per request to w, until r is exhausted or ctx is done. A line longer
// than MaxRequestSize is answered with a validation error and skipped.
func (b *Bridge) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	br := bufio.NewReaderSize(r, 64*1024)
	enc := json.NewEncoder(w)

	for {
		line, tooLong, readErr := readLine(br, MaxRequestSize)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read request: %w", readErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line = bytes.TrimSpace(line)
		if tooLong || len(line) > 0 {
			resp := b.respond(ctx, line, tooLong)

			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

func (b *Bridge) respond(ctx context.Context, line []byte, tooLong bool) Response {
	if tooLong {
		b.log.Warn("rejected request line over %d bytes", MaxRequestSize)
		return failure(0, errRequestTooLarge)
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return failure(0, fmt.Errorf("%w: malformed request: %v", store.ErrValidation, err))
	}
	return b.Handle(ctx, req)
}

// readLine returns the next line without its newline. Bytes past max are
// consumed and dropped, and tooLong reports that it happened. At end of
// input err is io.EOF, possibly alongside a final unterminated line.
func readLine(br *bufio.Reader, max int) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		chunk = bytes.TrimSuffix(chunk, []byte("\n"))
		if !tooLong {
			if len(line)+len(chunk) > max {
				tooLong = true
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			line = nil
		}
		return line, tooLong, err
	}
}
