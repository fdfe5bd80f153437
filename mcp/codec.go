package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedMessage is returned when an input line is not a well-formed
// request. It is fatal to a session.
var ErrMalformedMessage = errors.New("malformed message")

// DecodeRequest parses a single line into a Request. The line must hold one
// JSON object with a non-empty method.
func DecodeRequest(line []byte) (Request, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return Request{}, fmt.Errorf("%w: expected a JSON object", ErrMalformedMessage)
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if req.Method == "" {
		return Request{}, fmt.Errorf("%w: missing method", ErrMalformedMessage)
	}

	return req, nil
}

// EncodeResponse renders resp as exactly one newline-terminated line.
func EncodeResponse(resp *Response) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("encode response: nil response")
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(resp); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	// json.Encoder escapes control characters inside strings, so the only
	// newline is the terminator it appends.
	return buf.Bytes(), nil
}

// LineReader yields one message line at a time. Lines may be of any length.
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps in for line-at-a-time reading.
func NewLineReader(in io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(in)}
}

// Next returns the next line without its terminator. Blank lines are
// returned like any other and fail to decode. It returns io.EOF once the input
// is exhausted. A final line with no trailing newline is still returned.
func (l *LineReader) Next() ([]byte, error) {
	line, err := l.r.ReadBytes('\n')
	if len(line) > 0 {
		return bytes.TrimRight(line, "\r\n"), nil
	}
	return nil, err
}

type readResult struct {
	line []byte
	err  error
}

// lineFeed reads lines on its own goroutine so a caller blocked waiting for
// input can still be canceled. A line is only read when next asks for it, so
// nothing is consumed ahead of the request being served.
type lineFeed struct {
	reader  *LineReader
	demand  chan struct{}
	results chan readResult
	done    chan struct{}
}

func newLineFeed(reader *LineReader) *lineFeed {
	f := &lineFeed{
		reader:  reader,
		demand:  make(chan struct{}),
		results: make(chan readResult),
		done:    make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *lineFeed) run() {
	for {
		select {
		case <-f.done:
			return
		case <-f.demand:
		}

		line, err := f.reader.Next()
		select {
		case <-f.done:
			return
		case f.results <- readResult{line: line, err: err}:
		}
		if err != nil {
			return
		}
	}
}

// next returns the next line, or ctx's error if ctx ends first. The read in
// flight is abandoned; it returns once the input produces data or closes.
func (f *lineFeed) next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case f.demand <- struct{}{}:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-f.results:
		return r.line, r.err
	}
}

func (f *lineFeed) close() {
	close(f.done)
}
