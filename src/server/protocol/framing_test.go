package protocol

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticdb-lsp/src/internal/errors"
)

func readAll(t *testing.T, r io.Reader, opts ReaderOptions) ([]*FramedMessage, error) {
	t.Helper()
	reader := NewReader(r, opts)
	var msgs []*FramedMessage
	for {
		msg, err := reader.Next()
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
}

func TestFramer_SingleMessage(t *testing.T) {
	f := NewFramer(0)
	msgs, err := f.Feed([]byte("Content-Length: 2\r\n\r\n{}"))
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, Headers{{Key: "Content-Length", Value: "2"}}, msgs[0].Headers)
	assert.Equal(t, []byte("{}"), msgs[0].Content)
	assert.NoError(t, f.Finish())
}

func TestFramer_ChunkIndependence(t *testing.T) {
	stream := "Content-Length: 5\r\nContent-Type: application/vscode-jsonrpc; charset=utf-8\r\n\r\nhello" +
		"Content-Length: 0\r\n\r\n" +
		"Content-Length: 13\r\n\r\n{\"id\":\"a:b\"}\n"

	want, err := readAll(t, strings.NewReader(stream), ReaderOptions{ReadChunkSize: len(stream)})
	require.Equal(t, io.EOF, err)
	require.Len(t, want, 3)
	assert.Equal(t, "hello", string(want[0].Content))
	assert.Equal(t, "", string(want[1].Content))
	assert.Equal(t, "{\"id\":\"a:b\"}\n", string(want[2].Content))

	ct, ok := want[0].Headers.Get("Content-Type")
	require.True(t, ok)
	assert.Equal(t, "application/vscode-jsonrpc; charset=utf-8", ct)

	for size := 1; size <= len(stream); size++ {
		got, err := readAll(t, strings.NewReader(stream), ReaderOptions{ReadChunkSize: size})
		assert.Equal(t, io.EOF, err, "chunk size %d", size)
		assert.Equal(t, want, got, "chunk size %d", size)
	}

	got, err := readAll(t, iotest.OneByteReader(strings.NewReader(stream)), ReaderOptions{})
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, want, got)

	got, err = readAll(t, iotest.DataErrReader(strings.NewReader(stream)), ReaderOptions{})
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, want, got)
}

func TestFramer_RoundTrip(t *testing.T) {
	original := []*FramedMessage{
		NewMessage([]byte(`{"jsonrpc":"2.0","method":"initialized"}`)),
		{
			Headers: Headers{
				{Key: "Content-Type", Value: "text/plain"},
				{Key: "Content-Length", Value: "3"},
				{Key: "X-Trace", Value: " padded value "},
			},
			Content: []byte("abc"),
		},
	}

	var buf bytes.Buffer
	for _, msg := range original {
		require.NoError(t, WriteMessage(&buf, msg))
	}

	got, err := readAll(t, &buf, ReaderOptions{})
	require.Equal(t, io.EOF, err)
	assert.Equal(t, original, got)
}

func TestFramer_Truncation(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		state  string
	}{
		{"inside body", "Content-Length: 10\r\n\r\nabc", "body"},
		{"inside headers", "Content-Length: 10\r\n", "headers"},
		{"partial header line", "Content-Len", "headers"},
		{"after blank line", "Content-Length: 1\r\n\r\n", "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := readAll(t, strings.NewReader(tt.stream), ReaderOptions{})
			assert.Empty(t, msgs)
			require.Error(t, err)
			assert.True(t, errors.IsTruncationError(err), "got %v", err)
			assert.False(t, errors.IsFramingError(err))

			var trunc *errors.TruncationError
			require.ErrorAs(t, err, &trunc)
			assert.Equal(t, tt.state, trunc.State)
		})
	}
}

func TestFramer_TruncationReportsBodyProgress(t *testing.T) {
	f := NewFramer(0)
	_, err := f.Feed([]byte("Content-Length: 10\r\n\r\nabc"))
	require.NoError(t, err)

	var trunc *errors.TruncationError
	require.ErrorAs(t, f.Finish(), &trunc)
	assert.Equal(t, 10, trunc.Needed)
	assert.Equal(t, 3, trunc.Got)
}

func TestFramer_FramingErrors(t *testing.T) {
	tests := []struct {
		name   string
		stream string
	}{
		{"missing length", "Content-Type: x\r\n\r\n{}"},
		{"non-numeric length", "Content-Length: abc\r\n\r\n"},
		{"negative length", "Content-Length: -1\r\n\r\n"},
		{"signed length", "Content-Length: +2\r\n\r\n{}"},
		{"trailing space in length", "Content-Length: 2 \r\n\r\n{}"},
		{"no colon", "Content-Length 2\r\n\r\n{}"},
		{"empty key", ": 2\r\n\r\n{}"},
		{"bare LF", "Content-Length: 2\n\n{}"},
		{"bare CR", "Content-Length: 2\rX\r\n\r\n{}"},
		{"leading LF", "\nContent-Length: 2\r\n\r\n{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, size := range []int{1, 3, len(tt.stream)} {
				msgs, err := readAll(t, strings.NewReader(tt.stream), ReaderOptions{ReadChunkSize: size})
				assert.Empty(t, msgs)
				assert.True(t, errors.IsFramingError(err), "chunk size %d: got %v", size, err)
			}
		})
	}
}

func TestFramer_CaseInsensitiveContentLength(t *testing.T) {
	for _, key := range []string{"content-length", "CONTENT-LENGTH", "Content-length"} {
		msgs, err := readAll(t, strings.NewReader(key+": 2\r\n\r\nok"), ReaderOptions{})
		require.Equal(t, io.EOF, err, key)
		require.Len(t, msgs, 1, key)
		assert.Equal(t, "ok", string(msgs[0].Content))
		assert.Equal(t, key, msgs[0].Headers[0].Key, "original key spelling is kept")
	}
}

func TestHeaders_OtherLookupsAreCaseSensitive(t *testing.T) {
	h := Headers{{Key: "Content-Type", Value: "a"}, {Key: "content-length", Value: "4"}}

	_, ok := h.Get("content-type")
	assert.False(t, ok)

	v, ok := h.Get("Content-Type")
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	n, err := h.ContentLength()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	h.Set("Content-Type", "b")
	h.Set("X-New", "c")
	assert.Equal(t, Headers{
		{Key: "Content-Type", Value: "b"},
		{Key: "content-length", Value: "4"},
		{Key: "X-New", Value: "c"},
	}, h)
}

func TestParseHeaderLine_ValueKeptVerbatim(t *testing.T) {
	hdr, err := parseHeaderLine("X-A:  two spaces: and colon ")
	require.NoError(t, err)
	assert.Equal(t, "X-A", hdr.Key)
	assert.Equal(t, " two spaces: and colon ", hdr.Value)

	hdr, err = parseHeaderLine("X-B:no-space")
	require.NoError(t, err)
	assert.Equal(t, "no-space", hdr.Value)
}

func TestFramer_HeaderLimit(t *testing.T) {
	long := "X-Pad: " + strings.Repeat("a", 64) + "\r\nContent-Length: 0\r\n\r\n"

	_, err := NewFramer(32).Feed([]byte(long))
	assert.True(t, errors.IsFramingError(err))

	for _, size := range []int{1, 7} {
		_, err := readAll(t, strings.NewReader(long), ReaderOptions{MaxHeaderBytes: 32, ReadChunkSize: size})
		assert.True(t, errors.IsFramingError(err))
	}

	msgs, err := NewFramer(len(long)).Feed([]byte(long))
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestFramer_PoisonedAfterFramingError(t *testing.T) {
	f := NewFramer(0)
	msgs, err := f.Feed([]byte("Content-Length: 1\r\n\r\nxBroken\r\n"))
	require.Len(t, msgs, 1, "messages before the violation are still delivered")
	require.Error(t, err)
	assert.True(t, errors.IsFramingError(err))

	msgs, again := f.Feed([]byte("Content-Length: 1\r\n\r\ny"))
	assert.Empty(t, msgs)
	assert.Same(t, err, again)
	assert.Same(t, err, f.Finish())
}

func TestReader_ErrorsAreSticky(t *testing.T) {
	r := NewReader(strings.NewReader("Content-Length: 1\r\n\r\na"), ReaderOptions{})
	msg, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", string(msg.Content))

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReader_WrapsSourceErrors(t *testing.T) {
	r := NewReader(iotest.ErrReader(io.ErrClosedPipe), ReaderOptions{})
	_, err := r.Next()
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestStream_DeliversInOrderThenCloses(t *testing.T) {
	var buf bytes.Buffer
	for _, body := range []string{"one", "two", "three"} {
		require.NoError(t, WriteMessage(&buf, NewMessage([]byte(body))))
	}
	buf.WriteString("Content-Length: 9\r\n\r\ntrunc")

	var bodies []string
	var last error
	for result := range Stream(context.Background(), NewReader(iotest.HalfReader(&buf), ReaderOptions{ReadChunkSize: 4})) {
		if result.Err != nil {
			last = result.Err
			continue
		}
		bodies = append(bodies, string(result.Message.Content))
	}

	assert.Equal(t, []string{"one", "two", "three"}, bodies)
	assert.True(t, errors.IsTruncationError(last))
}

func TestStream_StopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_ = WriteMessage(pw, NewMessage([]byte("x")))
	}()

	ctx, cancel := context.WithCancel(context.Background())
	ch := Stream(ctx, NewReader(pr, ReaderOptions{}))
	first := <-ch
	require.NoError(t, first.Err)
	assert.Equal(t, "x", string(first.Message.Content))

	cancel()
	pw.CloseWithError(io.ErrClosedPipe)

	// only the terminal error may still arrive before the channel closes
	for result := range ch {
		assert.Nil(t, result.Message)
		assert.Error(t, result.Err)
	}
}
