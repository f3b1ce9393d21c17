package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"semanticdb-lsp/src/internal/errors"
	"semanticdb-lsp/src/internal/types"
	"semanticdb-lsp/src/semanticdb"
	"semanticdb-lsp/src/server/index"
	rpc "semanticdb-lsp/src/server/protocol"
	"semanticdb-lsp/src/server/references"
	"semanticdb-lsp/src/utils/lspconv"
)

type wireMessage struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *rpc.RPCError   `json:"error"`
}

func frames(t *testing.T, bodies ...string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, body := range bodies {
		require.NoError(t, rpc.WriteMessage(&buf, rpc.NewMessage([]byte(body))))
	}
	return &buf
}

func readOutput(t *testing.T, out *bytes.Buffer) []wireMessage {
	t.Helper()
	reader := rpc.NewReader(out, rpc.ReaderOptions{})
	var msgs []wireMessage
	for {
		msg, err := reader.Next()
		if err == io.EOF {
			return msgs
		}
		require.NoError(t, err)
		var wm wireMessage
		require.NoError(t, json.Unmarshal(msg.Content, &wm))
		msgs = append(msgs, wm)
	}
}

func byID(msgs []wireMessage, id string) *wireMessage {
	for i := range msgs {
		if string(msgs[i].ID) == id {
			return &msgs[i]
		}
	}
	return nil
}

func testServer(t *testing.T) *Server {
	t.Helper()
	idx := index.New(index.Options{Registerer: prometheus.NewRegistry()})
	occ := func(sym string, role index.Role, sl, sc, el, ec int32) index.Occurrence {
		return index.Occurrence{Symbol: semanticdb.MustParse(sym), Range: types.NewRange(sl, sc, el, ec), Role: role}
	}
	require.NoError(t, idx.IndexDocument(&index.Document{
		URI: "file:///ws/a.src",
		Occurrences: []index.Occurrence{
			occ("a/S#", index.RoleDefinition, 3, 5, 3, 8),
			occ("a/S#", index.RoleReference, 5, 2, 5, 5),
			occ("a/S#", index.RoleReference, 9, 0, 9, 3),
		},
		Diagnostics: []index.Diagnostic{
			{Severity: types.DiagnosticSeverityWarning, Message: "unused value", Range: types.NewRange(9, 0, 9, 3)},
		},
	}))
	require.NoError(t, idx.IndexDocument(&index.Document{
		URI:         "file:///ws/b.src",
		Occurrences: []index.Occurrence{occ("a/S#", index.RoleReference, 1, 0, 1, 3)},
	}))
	return NewServer(idx, references.NewEngine(idx, references.Options{}), rpc.ReaderOptions{})
}

const (
	initializeRequest = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"capabilities":{}}}`
	initialized       = `{"jsonrpc":"2.0","method":"initialized","params":{}}`
	highlightRequest  = `{"jsonrpc":"2.0","id":2,"method":"textDocument/documentHighlight","params":{"textDocument":{"uri":"file:///ws/a.src"},"position":{"line":5,"character":3}}}`
	referencesRequest = `{"jsonrpc":"2.0","id":"refs","method":"textDocument/references","params":{"textDocument":{"uri":"file:///ws/a.src"},"position":{"line":5,"character":3},"context":{"includeDeclaration":false}}}`
	definitionRequest = `{"jsonrpc":"2.0","id":4,"method":"textDocument/definition","params":{"textDocument":{"uri":"file:///ws/b.src"},"position":{"line":1,"character":1}}}`
	missRequest       = `{"jsonrpc":"2.0","id":5,"method":"textDocument/documentHighlight","params":{"textDocument":{"uri":"file:///ws/a.src"},"position":{"line":6,"character":0}}}`
	unknownRequest    = `{"jsonrpc":"2.0","id":6,"method":"textDocument/hover","params":{}}`
	badParamsRequest  = `{"jsonrpc":"2.0","id":7,"method":"textDocument/references","params":{"textDocument":{"uri":""},"position":{"line":0,"character":0}}}`
	shutdownRequest   = `{"jsonrpc":"2.0","id":8,"method":"shutdown"}`
	afterShutdown     = `{"jsonrpc":"2.0","id":9,"method":"textDocument/definition","params":{"textDocument":{"uri":"file:///ws/a.src"},"position":{"line":3,"character":6}}}`
	exitNotification  = `{"jsonrpc":"2.0","method":"exit"}`
)

func TestServer_Session(t *testing.T) {
	srv := testServer(t)
	in := frames(t,
		initializeRequest,
		initialized,
		highlightRequest,
		referencesRequest,
		definitionRequest,
		missRequest,
		unknownRequest,
		`{"jsonrpc":`,
		badParamsRequest,
		shutdownRequest,
		afterShutdown,
		exitNotification,
		`{"jsonrpc":"2.0","id":10,"method":"initialize"}`,
	)
	var out bytes.Buffer
	require.NoError(t, srv.Serve(context.Background(), in, &out))

	msgs := readOutput(t, &out)

	initResp := byID(msgs, "1")
	require.NotNil(t, initResp)
	var initResult protocol.InitializeResult
	require.NoError(t, json.Unmarshal(initResp.Result, &initResult))
	assert.Equal(t, ServerName, initResult.ServerInfo.Name)
	assert.Equal(t, true, initResult.Capabilities.DocumentHighlightProvider)
	assert.Equal(t, true, initResult.Capabilities.ReferencesProvider)
	assert.Equal(t, true, initResult.Capabilities.DefinitionProvider)

	var published []protocol.PublishDiagnosticsParams
	for _, m := range msgs {
		if m.Method == types.MethodPublishDiagnostics {
			var p protocol.PublishDiagnosticsParams
			require.NoError(t, json.Unmarshal(m.Params, &p))
			published = append(published, p)
		}
	}
	require.Len(t, published, 1, "only documents with diagnostics are published on initialized")
	assert.Equal(t, "file:///ws/a.src", string(published[0].URI))
	require.Len(t, published[0].Diagnostics, 1)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, published[0].Diagnostics[0].Severity)
	assert.Equal(t, "semanticdb", published[0].Diagnostics[0].Source)

	highlight := byID(msgs, "2")
	require.NotNil(t, highlight)
	var highlights []protocol.DocumentHighlight
	require.NoError(t, json.Unmarshal(highlight.Result, &highlights))
	require.Len(t, highlights, 3)
	assert.Equal(t, protocol.DocumentHighlightKindWrite, highlights[0].Kind)
	assert.Equal(t, uint32(3), highlights[0].Range.Start.Line)

	refs := byID(msgs, `"refs"`)
	require.NotNil(t, refs)
	assert.Equal(t, []types.Location{
		{URI: "file:///ws/a.src", Range: types.NewRange(5, 2, 5, 5)},
		{URI: "file:///ws/a.src", Range: types.NewRange(9, 0, 9, 3)},
		{URI: "file:///ws/b.src", Range: types.NewRange(1, 0, 1, 3)},
	}, lspconv.ParseLocations(refs.Result))

	def := byID(msgs, "4")
	require.NotNil(t, def)
	assert.Equal(t, []types.Location{
		{URI: "file:///ws/a.src", Range: types.NewRange(3, 5, 3, 8)},
	}, lspconv.ParseLocations(def.Result))

	miss := byID(msgs, "5")
	require.NotNil(t, miss)
	assert.JSONEq(t, `[]`, string(miss.Result))

	unknown := byID(msgs, "6")
	require.NotNil(t, unknown)
	require.NotNil(t, unknown.Error)
	assert.Equal(t, rpc.MethodNotFound, unknown.Error.Code)

	parseErr := byID(msgs, "null")
	require.NotNil(t, parseErr)
	require.NotNil(t, parseErr.Error)
	assert.Equal(t, rpc.ParseError, parseErr.Error.Code)

	badParams := byID(msgs, "7")
	require.NotNil(t, badParams)
	require.NotNil(t, badParams.Error)
	assert.Equal(t, rpc.InvalidParams, badParams.Error.Code)

	shutdown := byID(msgs, "8")
	require.NotNil(t, shutdown)
	assert.Nil(t, shutdown.Error)
	assert.Equal(t, "null", string(shutdown.Result))

	after := byID(msgs, "9")
	require.NotNil(t, after)
	require.NotNil(t, after.Error)
	assert.Equal(t, rpc.InvalidRequest, after.Error.Code)

	assert.Nil(t, byID(msgs, "10"), "nothing is handled after exit")
}

func TestServer_RequestsBeforeInitialize(t *testing.T) {
	srv := testServer(t)
	var out bytes.Buffer
	require.NoError(t, srv.Serve(context.Background(), frames(t, definitionRequest, initializeRequest, highlightRequest), &out))

	msgs := readOutput(t, &out)
	require.Len(t, msgs, 3)

	early := byID(msgs, "4")
	require.NotNil(t, early)
	require.NotNil(t, early.Error)
	assert.Equal(t, errors.ServerNotInitialized, early.Error.Code)

	require.NotNil(t, byID(msgs, "1"))
	late := byID(msgs, "2")
	require.NotNil(t, late)
	assert.Nil(t, late.Error)
}

func TestServer_NoDiagnosticsBeforeInitialized(t *testing.T) {
	srv := testServer(t)
	var out bytes.Buffer
	require.NoError(t, srv.Serve(context.Background(), frames(t, initializeRequest), &out))

	srv.PublishDiagnostics([]string{"file:///ws/a.src"})
	msgs := readOutput(t, &out)
	require.Len(t, msgs, 1)
	assert.Equal(t, "1", string(msgs[0].ID))
}

func TestServer_TransportErrorsEndSession(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(error) bool
	}{
		{"truncated body", "Content-Length: 40\r\n\r\n{\"jsonrpc\":\"2.0\"", errors.IsTruncationError},
		{"missing length", "Content-Type: application/json\r\n\r\n{}", errors.IsFramingError},
		{"bad length", "Content-Length: x\r\n\r\n", errors.IsFramingError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t)
			var out bytes.Buffer
			input := io.MultiReader(frames(t, initializeRequest), strings.NewReader(tt.input))

			err := srv.Serve(context.Background(), input, &out)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)

			msgs := readOutput(t, &out)
			require.Len(t, msgs, 1, "messages before the failure are answered")
		})
	}
}

func TestServer_EOFEndsCleanly(t *testing.T) {
	srv := testServer(t)
	var out bytes.Buffer
	assert.NoError(t, srv.Serve(context.Background(), strings.NewReader(""), &out))
	assert.Zero(t, out.Len())
}

func TestMetricsServer_Handler(t *testing.T) {
	registry := prometheus.NewRegistry()
	idx := index.New(index.Options{Registerer: registry})
	require.NoError(t, idx.IndexDocument(&index.Document{
		URI: "file:///m.src",
		Occurrences: []index.Occurrence{
			{Symbol: semanticdb.MustParse("a/M#"), Range: types.NewRange(0, 0, 0, 1), Role: index.RoleDefinition},
		},
	}))

	ts := httptest.NewServer(NewMetricsServer("", registry, idx).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "semanticdb_lsp_index_documents_indexed_total 1")
	assert.Contains(t, string(body), "semanticdb_lsp_index_documents 1")

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health struct {
		Status string      `json:"status"`
		Index  index.Stats `json:"index"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "up", health.Status)
	assert.Equal(t, index.Stats{Documents: 1, Symbols: 1, Occurrences: 1}, health.Index)
}
