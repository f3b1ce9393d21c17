package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/errors"
	"semanticdb-lsp/src/internal/types"
	versionpkg "semanticdb-lsp/src/internal/version"
	"semanticdb-lsp/src/server/index"
	rpc "semanticdb-lsp/src/server/protocol"
	"semanticdb-lsp/src/server/references"
	"semanticdb-lsp/src/utils/jsonutil"
	"semanticdb-lsp/src/utils/lspconv"
)

// ServerName is reported to clients in the initialize result
const ServerName = "semanticdb-lsp"

// diagnosticSource tags every published diagnostic
const diagnosticSource = "semanticdb"

// Server answers reference, highlight and definition requests over the
// Content-Length framed JSON-RPC transport.
type Server struct {
	index  *index.SymbolIndex
	engine *references.Engine
	codec  *rpc.Codec

	ctx context.Context
	out io.Writer

	mu sync.Mutex
	// started is set by the initialize request, initialized by the notification
	started     bool
	initialized bool
	shutdown    bool
	exited      bool
}

// NewServer creates a server over idx. framing bounds the message reader.
func NewServer(idx *index.SymbolIndex, engine *references.Engine, framing rpc.ReaderOptions) *Server {
	return &Server{
		index:  idx,
		engine: engine,
		codec:  rpc.NewCodec("client", framing),
		ctx:    context.Background(),
	}
}

// Serve reads framed messages from in and writes responses to out until the
// client sends exit, the input ends, or ctx is cancelled. A clean end of
// input returns nil; framing and truncation errors are returned as they end
// the session.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.ctx = ctx
	s.out = out
	s.mu.Unlock()

	for result := range rpc.Stream(ctx, rpc.NewReader(in, s.codec.Options())) {
		if result.Err != nil {
			if result.Err == io.EOF {
				common.LSPLogger.Info("Client closed the input stream")
				return nil
			}
			common.LSPLogger.Error("Transport failed: %s", common.SanitizeErrorForLogging(result.Err))
			return result.Err
		}

		if err := s.codec.HandleMessage(result.Message.Content, s); err != nil {
			s.replyToBadMessage(err)
		}
		if s.hasExited() {
			return nil
		}
	}
	return ctx.Err()
}

// replyToBadMessage answers content the codec could not route. The id is
// unknown at that point, so the response carries a null id.
func (s *Server) replyToBadMessage(err error) {
	rpcErr := rpc.NewUnifiedRPCError(err)
	if rpcErr.Code != rpc.ParseError && rpcErr.Code != rpc.InvalidRequest {
		common.LSPLogger.Error("Error handling message: %s", common.SanitizeErrorForLogging(err))
		return
	}
	s.write(rpc.CreateResponse(nil, nil, rpcErr))
}

func (s *Server) hasExited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

func (s *Server) write(msg rpc.JSONRPCMessage) {
	s.mu.Lock()
	out := s.out
	s.mu.Unlock()
	if out == nil {
		return
	}
	if err := s.codec.WriteMessage(out, msg); err != nil {
		common.LSPLogger.Error("Failed to write message: %v", err)
	}
}

func (s *Server) respond(id interface{}, result interface{}, err error) {
	if err != nil {
		common.LSPLogger.Debug("Request %v failed: %s", id, common.SanitizeErrorForLogging(err))
		s.write(rpc.CreateUnifiedErrorResponse(id, err))
		return
	}
	s.write(rpc.CreateResponse(id, result, nil))
}

// HandleRequest dispatches one client request and writes its response
func (s *Server) HandleRequest(method string, id interface{}, params json.RawMessage) error {
	s.mu.Lock()
	shutdown := s.shutdown
	started := s.started
	ctx := s.ctx
	s.mu.Unlock()

	if shutdown {
		s.respond(id, nil, rpc.NewInvalidRequestError("server is shutting down"))
		return nil
	}
	if !started && method != types.MethodInitialize {
		s.respond(id, nil, errors.NewLSPError(errors.ServerNotInitialized, "server not initialized", method))
		return nil
	}

	switch method {
	case types.MethodInitialize:
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		s.respond(id, s.initializeResult(), nil)

	case types.MethodShutdown:
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		s.respond(id, nil, nil)

	case types.MethodTextDocumentDocumentHighlight:
		p, err := jsonutil.DecodeParams[protocol.DocumentHighlightParams](params)
		if err != nil {
			s.respond(id, nil, err)
			return nil
		}
		docURI, line, character, err := positionOf(p.TextDocumentPositionParams)
		if err != nil {
			s.respond(id, nil, err)
			return nil
		}
		s.respond(id, s.engine.Highlight(docURI, line, character), nil)

	case types.MethodTextDocumentReferences:
		p, err := jsonutil.DecodeParams[protocol.ReferenceParams](params)
		if err != nil {
			s.respond(id, nil, err)
			return nil
		}
		docURI, line, character, err := positionOf(p.TextDocumentPositionParams)
		if err != nil {
			s.respond(id, nil, err)
			return nil
		}
		s.respond(id, s.engine.References(docURI, line, character, p.Context.IncludeDeclaration), nil)

	case types.MethodTextDocumentDefinition:
		p, err := jsonutil.DecodeParams[protocol.DefinitionParams](params)
		if err != nil {
			s.respond(id, nil, err)
			return nil
		}
		docURI, line, character, err := positionOf(p.TextDocumentPositionParams)
		if err != nil {
			s.respond(id, nil, err)
			return nil
		}
		locs, err := s.engine.Definition(ctx, docURI, line, character)
		s.respond(id, locs, err)

	default:
		s.respond(id, nil, rpc.NewMethodNotFoundError(method))
	}
	return nil
}

// HandleNotification handles lifecycle notifications; the rest are ignored
func (s *Server) HandleNotification(method string, params json.RawMessage) error {
	switch method {
	case types.MethodInitialized:
		s.mu.Lock()
		s.initialized = true
		s.mu.Unlock()
		var withDiagnostics []string
		for _, u := range s.index.Documents() {
			if len(s.index.Diagnostics(u)) > 0 {
				withDiagnostics = append(withDiagnostics, u)
			}
		}
		s.PublishDiagnostics(withDiagnostics)
	case types.MethodExit:
		s.mu.Lock()
		s.exited = true
		s.mu.Unlock()
	default:
		common.LSPLogger.Debug("Ignoring notification %s", method)
	}
	return nil
}

// HandleResponse logs responses; the server sends no requests of its own
func (s *Server) HandleResponse(id interface{}, result json.RawMessage, err *rpc.RPCError) error {
	common.LSPLogger.Debug("Ignoring response to %v", id)
	return nil
}

// PublishDiagnostics sends the indexed diagnostics of every uri, including
// empty lists so clients clear stale ones. Nothing is sent before the
// client has signalled initialized.
func (s *Server) PublishDiagnostics(uris []string) {
	s.mu.Lock()
	ready := s.initialized && !s.exited
	s.mu.Unlock()
	if !ready {
		return
	}

	for _, u := range uris {
		diags := s.index.Diagnostics(u)
		params := protocol.PublishDiagnosticsParams{
			URI:         uri.URI(u),
			Diagnostics: make([]protocol.Diagnostic, 0, len(diags)),
		}
		for _, d := range diags {
			params.Diagnostics = append(params.Diagnostics, lspconv.ToProtocolDiagnostic(d, diagnosticSource))
		}
		s.write(rpc.CreateNotification(types.MethodPublishDiagnostics, params))
	}
}

func (s *Server) initializeResult() protocol.InitializeResult {
	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			DefinitionProvider:        true,
			ReferencesProvider:        true,
			DocumentHighlightProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    ServerName,
			Version: versionpkg.GetVersion(),
		},
	}
}

// positionOf validates a text document position and converts it to index coordinates
func positionOf(p protocol.TextDocumentPositionParams) (string, int32, int32, error) {
	if p.TextDocument.URI == "" {
		return "", 0, 0, common.CreateValidationErrorForURI("textDocument.uri is required")
	}
	if p.Position.Line > math.MaxInt32 || p.Position.Character > math.MaxInt32 {
		return "", 0, 0, common.CreateValidationErrorForPosition(
			fmt.Sprintf("position %d:%d out of range", p.Position.Line, p.Position.Character))
	}
	line, character := lspconv.FromProtocolPosition(p.Position)
	return string(p.TextDocument.URI), line, character, nil
}
