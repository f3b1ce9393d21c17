package utils

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"go.lsp.dev/uri"

	"semanticdb-lsp/src/internal/constants"
)

// URIToFilePath converts a file:// URI to a file system path
func URIToFilePath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}

	// Remove the file:// prefix
	path := strings.TrimPrefix(uri, "file://")

	// Decode URL-encoded characters
	decoded, err := url.PathUnescape(path)
	if err == nil {
		path = decoded
	}

	// On Windows, file URIs look like file:///C:/path/to/file
	// After removing file://, we have /C:/path/to/file
	// We need to remove the leading slash for Windows absolute paths
	if runtime.GOOS == "windows" && len(path) > 2 {
		if path[0] == '/' && path[2] == ':' {
			path = path[1:]
		}
		path = filepath.FromSlash(path)
	}

	return path
}

// OpenableFileURI returns the escaped file uri clients can open directly
func OpenableFileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return string(uri.File(LongPath(path)))
}

// ArchiveURI is a uri addressing one member inside a read-only archive,
// e.g. jar:file:///deps/lib.jar!/pkg/Foo.scala
type ArchiveURI struct {
	Scheme string
	// Archive is the uri of the archive file itself
	Archive string
	// Member is the slash-separated path inside the archive
	Member string
}

// ArchivePath is the file system path of the archive
func (a ArchiveURI) ArchivePath() string {
	return URIToFilePath(a.Archive)
}

// BaseName is the file name of the member without its directories
func (a ArchiveURI) BaseName() string {
	if i := strings.LastIndexByte(a.Member, '/'); i >= 0 {
		return a.Member[i+1:]
	}
	return a.Member
}

func (a ArchiveURI) String() string {
	return a.Scheme + a.Archive + constants.ArchiveMemberSeparator + a.Member
}

// IsArchiveURI reports whether u starts with one of the archive schemes.
// An empty scheme list selects the default "jar:".
func IsArchiveURI(u string, schemes []string) bool {
	_, ok := archiveScheme(u, schemes)
	return ok
}

// ParseArchiveURI splits an archive uri into archive and member parts
func ParseArchiveURI(u string, schemes []string) (ArchiveURI, bool) {
	scheme, ok := archiveScheme(u, schemes)
	if !ok {
		return ArchiveURI{}, false
	}
	rest := u[len(scheme):]
	archive, member, found := strings.Cut(rest, constants.ArchiveMemberSeparator)
	if !found || archive == "" || member == "" || strings.HasSuffix(member, "/") {
		return ArchiveURI{}, false
	}
	return ArchiveURI{Scheme: scheme, Archive: archive, Member: member}, true
}

func archiveScheme(u string, schemes []string) (string, bool) {
	if len(schemes) == 0 {
		schemes = []string{constants.DefaultArchiveScheme}
	}
	for _, scheme := range schemes {
		if scheme != "" && strings.HasPrefix(u, scheme) {
			return scheme, true
		}
	}
	return "", false
}
