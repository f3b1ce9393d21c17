package protocol

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/constants"
	"semanticdb-lsp/src/internal/errors"
)

// Header is a single "Key: Value" line of a framed message
type Header struct {
	Key   string
	Value string
}

// Headers keeps header lines in the order they were received
type Headers []Header

// Get returns the first value stored under key. Keys compare case-sensitively,
// except Content-Length which matches in any case.
func (h Headers) Get(key string) (string, bool) {
	fold := strings.EqualFold(key, constants.ContentLengthHeader)
	for _, hdr := range h {
		if hdr.Key == key || (fold && strings.EqualFold(hdr.Key, key)) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Set replaces the first value stored under key or appends a new header
func (h *Headers) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Key: key, Value: value})
}

// ContentLength parses the Content-Length header
func (h Headers) ContentLength() (int, error) {
	raw, ok := h.Get(constants.ContentLengthHeader)
	if !ok {
		return 0, errors.NewFramingError("missing Content-Length header", "")
	}
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return 0, errors.NewFramingError("Content-Length is not a non-negative integer", raw)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewFramingError("Content-Length out of range", raw)
	}
	return n, nil
}

// FramedMessage is one decoded message: its headers and the raw body bytes
type FramedMessage struct {
	Headers Headers
	Content []byte
}

// NewMessage builds a message carrying content with a matching Content-Length
func NewMessage(content []byte) *FramedMessage {
	return &FramedMessage{
		Headers: Headers{{Key: constants.ContentLengthHeader, Value: strconv.Itoa(len(content))}},
		Content: content,
	}
}

// Marshal serializes msg: headers in stored order, a blank line, then the content.
// The Content-Length header is written as stored and not re-checked.
func Marshal(msg *FramedMessage) []byte {
	var b bytes.Buffer
	for _, hdr := range msg.Headers {
		b.WriteString(hdr.Key)
		b.WriteString(": ")
		b.WriteString(hdr.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.Write(msg.Content)
	return b.Bytes()
}

// WriteMessage writes the serialized form of msg to w in a single Write call
func WriteMessage(w io.Writer, msg *FramedMessage) error {
	_, err := w.Write(Marshal(msg))
	return err
}

type framerState int

const (
	readingHeaders framerState = iota
	readingBody
)

// Framer turns arbitrary chunks of a byte stream into framed messages.
// The output does not depend on how the stream is split into chunks.
// A Framer is not safe for concurrent use.
type Framer struct {
	maxHeaderBytes int

	state       framerState
	pending     []byte
	headers     Headers
	headerBytes int
	length      int

	// err poisons the framer after a framing violation
	err error
}

// NewFramer creates a framer; maxHeaderBytes <= 0 selects the default limit
func NewFramer(maxHeaderBytes int) *Framer {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = constants.DefaultMaxHeaderBytes
	}
	return &Framer{maxHeaderBytes: maxHeaderBytes}
}

// Feed consumes chunk and returns every message it completes, in stream order.
// Messages completed before a framing violation are returned together with the error.
func (f *Framer) Feed(chunk []byte) ([]*FramedMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.pending = append(f.pending, chunk...)

	var out []*FramedMessage
	for {
		msg, progressed, err := f.step()
		if err != nil {
			f.err = err
			f.pending = nil
			return out, err
		}
		if msg != nil {
			out = append(out, msg)
		}
		if !progressed {
			break
		}
	}
	f.compact()
	return out, nil
}

// Finish reports how the stream ended: nil at a message boundary, the poisoning
// error after a framing violation, a TruncationError inside a message.
func (f *Framer) Finish() error {
	if f.err != nil {
		return f.err
	}
	switch f.state {
	case readingBody:
		return errors.NewTruncationError("body", f.length, len(f.pending))
	default:
		if f.headerBytes == 0 && len(f.pending) == 0 {
			return nil
		}
		return errors.NewTruncationError("headers", 0, f.headerBytes+len(f.pending))
	}
}

// step advances the state machine by at most one header line or one body
func (f *Framer) step() (*FramedMessage, bool, error) {
	switch f.state {
	case readingBody:
		if len(f.pending) < f.length {
			return nil, false, nil
		}
		content := make([]byte, f.length)
		copy(content, f.pending[:f.length])
		f.pending = f.pending[f.length:]
		msg := &FramedMessage{Headers: f.headers, Content: content}
		f.reset()
		return msg, true, nil
	default:
		progressed, err := f.headerStep()
		return nil, progressed, err
	}
}

// headerStep consumes one CRLF-terminated header line if one is buffered.
// The blank line ends the header block and switches to the body.
func (f *Framer) headerStep() (bool, error) {
	lf := bytes.IndexByte(f.pending, '\n')
	if lf < 0 {
		if f.headerBytes+len(f.pending) > f.maxHeaderBytes {
			return false, errors.NewFramingError(fmt.Sprintf("header block exceeds %d bytes", f.maxHeaderBytes), "")
		}
		if cr := bytes.IndexByte(f.pending, '\r'); cr >= 0 && cr < len(f.pending)-1 {
			return false, errors.NewFramingError("bare CR in header line", string(f.pending[:cr]))
		}
		return false, nil
	}
	if lf == 0 || f.pending[lf-1] != '\r' {
		return false, errors.NewFramingError("bare LF in header line", string(f.pending[:lf]))
	}

	line := f.pending[:lf-1]
	f.headerBytes += lf + 1
	if f.headerBytes > f.maxHeaderBytes {
		return false, errors.NewFramingError(fmt.Sprintf("header block exceeds %d bytes", f.maxHeaderBytes), "")
	}
	if cr := bytes.IndexByte(line, '\r'); cr >= 0 {
		return false, errors.NewFramingError("bare CR in header line", string(line[:cr]))
	}
	f.pending = f.pending[lf+1:]

	if len(line) == 0 {
		length, err := f.headers.ContentLength()
		if err != nil {
			return false, err
		}
		f.length = length
		f.state = readingBody
		return true, nil
	}

	hdr, err := parseHeaderLine(string(line))
	if err != nil {
		return false, err
	}
	f.headers = append(f.headers, hdr)
	return true, nil
}

// parseHeaderLine splits "Key: Value" at the first colon. One space after the
// colon is dropped; the rest of the value is kept verbatim.
func parseHeaderLine(line string) (Header, error) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return Header{}, errors.NewFramingError("header line without ':'", line)
	}
	if key == "" {
		return Header{}, errors.NewFramingError("empty header name", line)
	}
	value = strings.TrimPrefix(value, " ")
	return Header{Key: key, Value: value}, nil
}

func (f *Framer) reset() {
	f.state = readingHeaders
	f.headers = nil
	f.headerBytes = 0
	f.length = 0
}

func (f *Framer) compact() {
	if len(f.pending) == 0 {
		f.pending = nil
	}
}

// Reader pulls framed messages from an io.Reader
type Reader struct {
	src    io.Reader
	framer *Framer
	chunk  []byte
	ready  []*FramedMessage
	err    error
}

// ReaderOptions bounds a Reader. Zero values select the defaults.
type ReaderOptions struct {
	MaxHeaderBytes int
	ReadChunkSize  int
}

// NewReader creates a Reader over src
func NewReader(src io.Reader, opts ReaderOptions) *Reader {
	if opts.ReadChunkSize <= 0 {
		opts.ReadChunkSize = constants.DefaultReadChunkSize
	}
	return &Reader{
		src:    src,
		framer: NewFramer(opts.MaxHeaderBytes),
		chunk:  make([]byte, opts.ReadChunkSize),
	}
}

// Next returns the next message. It returns io.EOF when the stream ends at a
// message boundary, a TruncationError when it ends inside one and a
// FramingError when the stream is malformed. Errors are sticky.
func (r *Reader) Next() (*FramedMessage, error) {
	for {
		if len(r.ready) > 0 {
			msg := r.ready[0]
			r.ready[0] = nil
			r.ready = r.ready[1:]
			return msg, nil
		}
		if r.err != nil {
			return nil, r.err
		}

		n, readErr := r.src.Read(r.chunk)
		if n > 0 {
			msgs, err := r.framer.Feed(r.chunk[:n])
			r.ready = append(r.ready, msgs...)
			if err != nil {
				r.err = err
				continue
			}
		}
		switch {
		case readErr == io.EOF:
			if err := r.framer.Finish(); err != nil {
				r.err = err
			} else {
				r.err = io.EOF
			}
		case readErr != nil:
			r.err = fmt.Errorf("read message stream: %w", readErr)
		}
	}
}

// StreamResult is one item produced by Stream: a message or the terminal error
type StreamResult struct {
	Message *FramedMessage
	Err     error
}

// Stream reads r on a single dedicated goroutine and delivers messages in
// stream order. The last item carries the terminal error (io.EOF on a clean
// end) and the channel is closed after it. Cancelling ctx stops delivery; a
// Read already blocked in the underlying source is not interrupted.
func Stream(ctx context.Context, r *Reader) <-chan StreamResult {
	out := make(chan StreamResult)
	go func() {
		defer close(out)
		for {
			msg, err := r.Next()
			select {
			case out <- StreamResult{Message: msg, Err: err}:
			case <-ctx.Done():
				common.LSPLogger.Debug("message stream stopped: %v", ctx.Err())
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}
