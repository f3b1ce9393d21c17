package filepattern

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"semanticdb-lsp/src/utils"
)

// Separator is the path separator globs are compiled with: "*" stops at it, "**" does not
const Separator = '/'

// Matcher tests paths against a set of compiled glob patterns.
// Supported patterns:
// - "**/target/**": any path below a directory named target
// - "*.json": any file with that extension, in any directory
// - "src/**/*.go": a relative pattern, matched against every trailing part of the path
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// Compile compiles every pattern; the first invalid one is returned as an error
func Compile(patterns []string) (*Matcher, error) {
	m := &Matcher{
		patterns: make([]string, 0, len(patterns)),
		globs:    make([]glob.Glob, 0, len(patterns)),
	}
	for _, pattern := range patterns {
		pattern = strings.ReplaceAll(pattern, "\\", "/")
		g, err := glob.Compile(pattern, Separator)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, pattern)
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Patterns returns the normalized source patterns
func (m *Matcher) Patterns() []string {
	return m.patterns
}

// Empty reports whether the matcher has no patterns
func (m *Matcher) Empty() bool {
	return m == nil || len(m.globs) == 0
}

// Match reports whether a file path or file uri matches any pattern
func (m *Matcher) Match(pathOrURI string) bool {
	if m.Empty() {
		return false
	}
	candidates := candidates(pathOrURI)
	for _, g := range m.globs {
		for _, cand := range candidates {
			if g.Match(cand) {
				return true
			}
		}
	}
	return false
}

// Match reports whether a given file path or file URI matches the provided glob pattern.
// "**/*" and "*" match everything; an invalid pattern matches nothing.
func Match(pathOrURI, pattern string) bool {
	if pattern == "" || pattern == "**/*" || pattern == "*" {
		return true
	}
	m, err := Compile([]string{pattern})
	if err != nil {
		return false
	}
	return m.Match(pathOrURI)
}

// candidates are the path itself plus every suffix starting at a slash, with
// and without that slash, so relative patterns match absolute paths and bare
// names match base names.
func candidates(pathOrURI string) []string {
	p := strings.ReplaceAll(utils.URIToFilePath(pathOrURI), "\\", "/")
	out := []string{p}
	if !strings.HasPrefix(p, "/") {
		out = append(out, "/"+p)
	}
	for i := 0; i < len(p); i++ {
		if p[i] == '/' && i+1 < len(p) {
			if i > 0 {
				out = append(out, p[i:])
			}
			out = append(out, p[i+1:])
		}
	}
	return out
}
