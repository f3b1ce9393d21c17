// Package errors provides unified error types and codes.
package errors

// Standard JSON-RPC error codes as defined in RFC 7309
const (
	ParseError     = -32700 // Invalid JSON was received by the server
	InvalidRequest = -32600 // The JSON sent is not a valid Request object
	MethodNotFound = -32601 // The method does not exist / is not available
	InvalidParams  = -32602 // Invalid method parameter(s)
	InternalError  = -32603 // Internal JSON-RPC error
)

// LSP-specific error codes as defined in the LSP specification
const (
	ServerNotInitialized = -32002 // Request sent before initialize
	RequestCancelled     = -32800 // Request was cancelled
	RequestFailed        = -32803 // Request failed with unrecoverable error
)

// Server-specific error codes (range: -33000 to -33099)
const (
	// Transport errors
	FramingFailure    = -33001 // Malformed message framing
	TruncatedMessage  = -33002 // Stream ended inside a message
	ArchiveReadFailed = -33003 // Archive member could not be materialized
)
