package types

// LSP protocol lifecycle methods
const (
	// MethodInitialize is sent as the first request from client to server
	MethodInitialize = "initialize"
	// MethodInitialized is sent from client to server after the initialize response
	MethodInitialized = "initialized"
	// MethodShutdown is sent from client to server to shutdown the server
	MethodShutdown = "shutdown"
	// MethodExit is sent from client to server to exit the server process
	MethodExit = "exit"
)

// LSP language feature methods
const (
	// MethodTextDocumentDefinition provides go-to-definition functionality
	MethodTextDocumentDefinition = "textDocument/definition"
	// MethodTextDocumentReferences finds all references to a symbol
	MethodTextDocumentReferences = "textDocument/references"
	// MethodTextDocumentDocumentHighlight highlights occurrences of the symbol under the cursor
	MethodTextDocumentDocumentHighlight = "textDocument/documentHighlight"
)

// Server-to-client notifications
const (
	// MethodPublishDiagnostics pushes diagnostics for one document
	MethodPublishDiagnostics = "textDocument/publishDiagnostics"
)
