// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ignore provides helpers to support ignore-files similar to
// .gitignore, used by the live directory walk (§4.5.2 "apply standard
// filters (gitignore-style)").
package ignore

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

var (
	lineComment = "#"
	// IgnoreFile is the project-local ignore file consulted in addition to
	// the always-on standard filters.
	IgnoreFile = ".codesearchignore"
)

// standardDirs are always skipped during a live walk, independent of any
// project ignore file — this is the "standard filters" half of §4.5.2.
var standardDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
}

// IsStandardIgnoredDir reports whether a directory entry name is always
// excluded from the walk.
func IsStandardIgnoredDir(name string) bool {
	return standardDirs[name]
}

type Matcher struct {
	ignoreList []glob.Glob
}

// Load reads root's project ignore file, if present. A missing file is not
// an error; it yields an empty Matcher (matches nothing).
func Load(root string) (*Matcher, error) {
	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &Matcher{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseIgnoreFile(f)
}

// ParseIgnoreFile parses an ignore-file according to the following rules
//
// - each line represents a glob-pattern relative to the root of the repository
// - for patterns without any glob-characters, a trailing ** is implicit
// - lines starting with # are ignored
// - empty lines are ignored
func ParseIgnoreFile(r io.Reader) (matcher *Matcher, error error) {
	var patterns []glob.Glob
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// ignore empty lines
		if line == "" {
			continue
		}
		// ignore comments
		if strings.HasPrefix(line, lineComment) {
			continue
		}
		pattern, err := compilePattern(line)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pattern)
	}
	return &Matcher{ignoreList: patterns}, scanner.Err()
}

// compilePattern compiles a single ignore-file line into a path-aware glob,
// applying the same implicit-trailing-** rule ParseIgnoreFile uses for
// every other line it accepts.
func compilePattern(line string) (glob.Glob, error) {
	line = strings.TrimPrefix(line, "/")
	// implicit ** for patterns without glob-characters
	if !strings.ContainsAny(line, ".][*?") {
		line += "**"
	}
	// with separators = '/', * becomes path-aware
	return glob.Compile(line, '/')
}

// AddPatterns compiles and appends extra glob patterns — e.g. the "ignore"
// list from a root's .codesearchd.yml override — to m's ignore list,
// layering them on top of whatever .codesearchignore already contributed.
// Blank lines and #-comments are skipped, same as ParseIgnoreFile.
func (m *Matcher) AddPatterns(patterns []string) error {
	for _, line := range patterns {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, lineComment) {
			continue
		}
		pattern, err := compilePattern(line)
		if err != nil {
			return err
		}
		m.ignoreList = append(m.ignoreList, pattern)
	}
	return nil
}

// Match returns true if path has a prefix in common with any item in m.ignoreList
func (m *Matcher) Match(path string) bool {
	if len(m.ignoreList) == 0 {
		return false
	}
	for _, pattern := range m.ignoreList {
		if pattern.Match(path) {
			return true
		}
	}
	return false
}
