package references

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/errors"
	"semanticdb-lsp/src/utils"
)

// Materializer turns an archive member uri into a uri a client can open
type Materializer interface {
	Materialize(ctx context.Context, archiveURI string) (string, error)
}

// ArchiveMaterializer copies archive members into a scratch directory.
// Copies are named after the member's base file name and overwritten on
// every request, so concurrent requests for one member are safe.
type ArchiveMaterializer struct {
	scratchDir string
	schemes    []string
}

// NewArchiveMaterializer creates a materializer writing below scratchDir.
// An empty schemes list selects "jar:".
func NewArchiveMaterializer(scratchDir string, schemes []string) *ArchiveMaterializer {
	return &ArchiveMaterializer{scratchDir: scratchDir, schemes: schemes}
}

// ScratchDir returns the directory copies are written to
func (m *ArchiveMaterializer) ScratchDir() string {
	return m.scratchDir
}

// Materialize extracts the member addressed by archiveURI and returns the
// file uri of the copy. Every failure is an ArchiveReadError.
func (m *ArchiveMaterializer) Materialize(ctx context.Context, archiveURI string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewArchiveReadError(archiveURI, err)
	}

	member, ok := utils.ParseArchiveURI(archiveURI, m.schemes)
	if !ok {
		return "", errors.NewArchiveReadError(archiveURI, fmt.Errorf("not an archive member uri"))
	}

	target := filepath.Join(m.scratchDir, member.BaseName())
	if err := m.extract(member, target); err != nil {
		return "", errors.NewArchiveReadError(archiveURI, err)
	}

	common.IndexLogger.Debug("Materialized %s to %s", archiveURI, target)
	return utils.OpenableFileURI(target), nil
}

func (m *ArchiveMaterializer) extract(member utils.ArchiveURI, target string) error {
	archive, err := zip.OpenReader(member.ArchivePath())
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	entry := findMember(archive.File, member.Member)
	if entry == nil {
		return fmt.Errorf("archive %s has no member %s", member.ArchivePath(), member.Member)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open member %s: %w", member.Member, err)
	}
	defer src.Close()

	if err := os.MkdirAll(m.scratchDir, 0755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}

	// write to a private file first so readers never see a partial copy
	tmp, err := os.CreateTemp(m.scratchDir, "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("failed to create scratch file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to copy member %s: %w", member.Member, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to place %s: %w", target, err)
	}
	return nil
}

func findMember(files []*zip.File, name string) *zip.File {
	name = strings.TrimPrefix(name, "/")
	for _, f := range files {
		if strings.TrimPrefix(f.Name, "/") == name && !f.FileInfo().IsDir() {
			return f
		}
	}
	return nil
}
