package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateAndGetWorkingDir validates and normalizes a directory path.
// If dir is empty, it returns the current working directory.
func ValidateAndGetWorkingDir(dir string) (string, error) {
	if dir != "" {
		expandedPath, err := ExpandPath(dir)
		if err != nil {
			return "", fmt.Errorf("failed to expand directory path '%s': %w", dir, err)
		}

		absPath, err := filepath.Abs(expandedPath)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path for directory '%s': %w", expandedPath, err)
		}

		if info, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory '%s' does not exist: %w", absPath, err)
		} else if !info.IsDir() {
			return "", fmt.Errorf("'%s' is not a directory", absPath)
		}

		return absPath, nil
	}

	if wd, err := os.Getwd(); err == nil {
		return wd, nil
	}

	return os.TempDir(), nil
}

// GetHomeDir returns the per-user state directory: ~/.semanticdb-lsp
func GetHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".semanticdb-lsp")
	}
	return filepath.Join(homeDir, ".semanticdb-lsp")
}

// GetDefaultScratchDir returns the directory archive members are copied into
func GetDefaultScratchDir() string {
	return filepath.Join(os.TempDir(), "semanticdb-lsp", "readonly")
}

// ExpandPath expands a leading ~ to the user's home directory
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path, fmt.Errorf("failed to get user home directory: %w", err)
	}

	if path == "~" {
		return homeDir, nil
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:]), nil
	}

	return path, nil
}
