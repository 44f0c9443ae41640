package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"hs-go/internal/hs"
)

// IgnoreFileName is the optional pattern file read from the hs base directory.
const IgnoreFileName = "ignore"

type patternKind int

const (
	matchBase patternKind = iota // no '/': glob against the file name
	matchPath                    // contains '/': glob against the whole relative path
	matchDir                     // trailing '/': glob against every parent directory name
)

type ignorePattern struct {
	glob string
	kind patternKind
}

// IgnoreMatcher decides which files a sweep leaves alone. Relative paths are
// matched with forward slashes on every platform.
//
//	*.tmp        any file named *.tmp, at any depth
//	build/out.o  exactly that relative path
//	node_modules/  every file below a directory called node_modules
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher parses raw patterns. Blank lines and '#' comments are
// dropped, as are patterns filepath.Match would reject.
func NewIgnoreMatcher(raw []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" || strings.HasPrefix(r, "#") {
			continue
		}

		p := ignorePattern{glob: r, kind: matchBase}
		switch {
		case strings.HasSuffix(r, "/"):
			p = ignorePattern{glob: strings.TrimSuffix(r, "/"), kind: matchDir}
		case strings.Contains(r, "/"):
			p.kind = matchPath
		}
		if _, err := path.Match(p.glob, ""); err != nil {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Len returns the number of usable patterns.
func (m *IgnoreMatcher) Len() int {
	return len(m.patterns)
}

// Match reports whether relativePath should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	rel := filepath.ToSlash(relativePath)
	base := path.Base(rel)
	dirs := strings.Split(path.Dir(rel), "/")

	for _, p := range m.patterns {
		switch p.kind {
		case matchBase:
			if ok, _ := path.Match(p.glob, base); ok {
				return true
			}
		case matchPath:
			if ok, _ := path.Match(p.glob, rel); ok {
				return true
			}
		case matchDir:
			for _, d := range dirs {
				if ok, _ := path.Match(p.glob, d); ok && d != "." {
					return true
				}
			}
		}
	}
	return false
}

// ParseIgnoreFile reads one pattern per line from path. A missing file yields
// no patterns and no error.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}

// LoadIgnoreMatcher combines configured patterns with those in the ignore
// file inside baseDir.
func LoadIgnoreMatcher(configured []string, baseDir string) (*IgnoreMatcher, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(baseDir, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	all := make([]string, 0, len(configured)+len(fromFile))
	all = append(all, configured...)
	all = append(all, fromFile...)
	return NewIgnoreMatcher(all), nil
}

var _ hs.Ignorer = (*IgnoreMatcher)(nil)
