package constants

import "time"

// Framing limits
const (
	// DefaultMaxHeaderBytes bounds the header block of a single framed message
	DefaultMaxHeaderBytes = 8 * 1024

	// DefaultReadChunkSize is the size of each read from the input stream
	DefaultReadChunkSize = 4096

	// ContentLengthHeader is the one mandatory framing header
	ContentLengthHeader = "Content-Length"

	// ContentTypeHeader is written alongside Content-Length by some clients
	ContentTypeHeader = "Content-Type"
)

// Index settings
const (
	// SemanticDocumentSuffix marks files the loader and watcher pick up
	SemanticDocumentSuffix = ".semanticdb.json"

	// DefaultIndexConcurrency bounds parallel document loads
	DefaultIndexConcurrency = 4

	// FileWatchDebounceDelay coalesces bursts of file events
	FileWatchDebounceDelay = 300 * time.Millisecond
)

// Archive settings
const (
	// DefaultArchiveScheme prefixes uris of read-only archive members
	DefaultArchiveScheme = "jar:"

	// ArchiveMemberSeparator splits the archive path from the member path
	ArchiveMemberSeparator = "!/"
)

// Directories to skip while walking for semantic documents
var SkipDirectories = map[string]bool{
	".git":         true,
	"node_modules": true,
	".idea":        true,
	".vscode":      true,
}
