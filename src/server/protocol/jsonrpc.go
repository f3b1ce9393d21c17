package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"sync"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/errors"
)

// JSON-RPC protocol constants
const (
	JSONRPCVersion = "2.0"
)

// JSON-RPC error codes (RFC 7309)
const (
	ParseError     = errors.ParseError     // Invalid JSON was received by the server
	InvalidRequest = errors.InvalidRequest // The JSON sent is not a valid Request object
	MethodNotFound = errors.MethodNotFound // The method does not exist / is not available
	InvalidParams  = errors.InvalidParams  // Invalid method parameter(s)
	InternalError  = errors.InternalError  // Internal JSON-RPC error
)

// nullID is written as the id of responses to messages whose id is unknown
var nullID = json.RawMessage("null")

// JSONRPCMessage represents a JSON-RPC 2.0 message
type JSONRPCMessage struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Method  string      `json:"method,omitempty"`
	Params  interface{} `json:"params,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// incomingMessage keeps id and params undecoded until the method is known
type incomingMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func (m *incomingMessage) hasID() bool {
	return len(m.ID) > 0 && !bytes.Equal(m.ID, nullID)
}

// RPCError represents a JSON-RPC error
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// JSONRPCProtocol defines the interface for JSON-RPC protocol handling
type JSONRPCProtocol interface {
	WriteMessage(writer io.Writer, msg JSONRPCMessage) error
	HandleMessage(data []byte, messageHandler MessageHandler) error
	HandleStream(ctx context.Context, reader io.Reader, messageHandler MessageHandler) error
}

// MessageHandler receives decoded JSON-RPC messages. Request ids are passed
// through as raw JSON so they can be echoed back unchanged.
type MessageHandler interface {
	HandleRequest(method string, id interface{}, params json.RawMessage) error
	HandleResponse(id interface{}, result json.RawMessage, err *RPCError) error
	HandleNotification(method string, params json.RawMessage) error
}

// Codec implements JSON-RPC over the Content-Length framing
type Codec struct {
	name    string // peer name for logging context
	options ReaderOptions

	writeMu sync.Mutex
}

// NewCodec creates a codec; name only appears in log lines
func NewCodec(name string, options ReaderOptions) *Codec {
	return &Codec{
		name:    name,
		options: options,
	}
}

// Options returns the reader options used for incoming streams
func (c *Codec) Options() ReaderOptions {
	return c.options
}

// WriteMessage encodes msg and writes it as one framed message.
// Concurrent writers are serialized so frames never interleave.
func (c *Codec) WriteMessage(writer io.Writer, msg JSONRPCMessage) error {
	if msg.JSONRPC == "" {
		msg.JSONRPC = JSONRPCVersion
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", c.name, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteMessage(writer, NewMessage(data))
}

// HandleStream decodes framed messages from reader until the stream ends and
// routes each one to messageHandler. A clean end of stream returns nil;
// framing and truncation errors are returned. Handler errors are logged.
func (c *Codec) HandleStream(ctx context.Context, reader io.Reader, messageHandler MessageHandler) error {
	for result := range Stream(ctx, NewReader(reader, c.options)) {
		if result.Err != nil {
			if result.Err == io.EOF {
				return nil
			}
			return result.Err
		}
		if err := c.HandleMessage(result.Message.Content, messageHandler); err != nil {
			common.LSPLogger.Error("Error handling message from %s: %s", c.name, common.SanitizeErrorForLogging(err))
		}
	}
	return ctx.Err()
}

// HandleMessage processes a single JSON-RPC message and routes it to the appropriate handler.
// Content that is not valid JSON yields an LSPError with code ParseError.
func (c *Codec) HandleMessage(data []byte, messageHandler MessageHandler) error {
	var msg incomingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		common.LSPLogger.Error("Failed to unmarshal JSON from %s: %v", c.name, err)
		return errors.NewLSPError(ParseError, "Parse error", err.Error())
	}

	switch {
	case msg.Method != "" && msg.hasID():
		common.LSPLogger.Debug("Received request: method=%s, id=%s from %s", msg.Method, msg.ID, c.name)
		return messageHandler.HandleRequest(msg.Method, msg.ID, msg.Params)
	case msg.Method != "":
		common.LSPLogger.Debug("Received notification: method=%s from %s", msg.Method, c.name)
		return messageHandler.HandleNotification(msg.Method, msg.Params)
	case msg.hasID():
		if msg.Error != nil {
			common.LSPLogger.Warn("Response contains error: id=%s, error=%s", msg.ID, common.SanitizeErrorForLogging(msg.Error))
		}
		return messageHandler.HandleResponse(msg.ID, msg.Result, msg.Error)
	default:
		common.LSPLogger.Warn("Received malformed message (no ID and no method) from %s", c.name)
		return errors.NewLSPError(InvalidRequest, "malformed JSON-RPC message: no ID and no method", nil)
	}
}

// CreateMessage creates a JSON-RPC message with the specified parameters
func CreateMessage(method string, id interface{}, params interface{}) JSONRPCMessage {
	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// CreateNotification creates a JSON-RPC notification (no ID)
func CreateNotification(method string, params interface{}) JSONRPCMessage {
	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	}
}

// CreateResponse creates a JSON-RPC response message. A successful response
// with a nil result carries an explicit null result.
func CreateResponse(id interface{}, result interface{}, err *RPCError) JSONRPCMessage {
	if id == nil {
		id = nullID
	}
	if result == nil && err == nil {
		result = json.RawMessage("null")
	}
	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
		Error:   err,
	}
}

// Helper functions for creating error responses

// NewRPCError creates a new RPCError with the specified code and message
func NewRPCError(code int, message string, data interface{}) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewInvalidRequestError creates an invalid request error (-32600)
func NewInvalidRequestError(data interface{}) *RPCError {
	return NewRPCError(InvalidRequest, "Invalid Request", data)
}

// NewMethodNotFoundError creates a method not found error (-32601)
func NewMethodNotFoundError(data interface{}) *RPCError {
	return NewRPCError(MethodNotFound, "Method not found", data)
}

// NewInternalError creates an internal error (-32603)
func NewInternalError(data interface{}) *RPCError {
	return NewRPCError(InternalError, "Internal error", data)
}

// NewValidationRPCError creates an RPCError for parameter validation failures
func NewValidationRPCError(parameter, message string) *RPCError {
	return NewRPCError(InvalidParams,
		fmt.Sprintf("Invalid parameter '%s': %s", parameter, message),
		map[string]string{"parameter": parameter})
}

// Unified error system integration functions

// NewUnifiedRPCError creates an RPCError from a unified error
func NewUnifiedRPCError(err error) *RPCError {
	if err == nil {
		return nil
	}

	var rpcErr *RPCError
	if stderrors.As(err, &rpcErr) {
		return rpcErr
	}

	var lspErr *errors.LSPError
	if stderrors.As(err, &lspErr) {
		return &RPCError{
			Code:    lspErr.Code,
			Message: lspErr.Message,
			Data:    lspErr.Data,
		}
	}

	var valErr *errors.ValidationError
	if stderrors.As(err, &valErr) {
		return NewValidationRPCError(valErr.Parameter, valErr.Message)
	}

	code := errors.CodeFor(err)
	if code == InternalError {
		return NewInternalError(err.Error())
	}
	return NewRPCError(code, err.Error(), nil)
}

// CreateUnifiedErrorResponse creates a JSON-RPC error response from a unified error
func CreateUnifiedErrorResponse(id interface{}, err error) JSONRPCMessage {
	return CreateResponse(id, nil, NewUnifiedRPCError(err))
}
