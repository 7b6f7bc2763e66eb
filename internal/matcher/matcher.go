// Copyright 2016 Google Inc. All rights reserved.
//
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

// Package matcher unifies literal-substring and regular-expression pattern
// matching behind a single interface, so the rest of the search engine
// never has to branch on which mode the user asked for.
package matcher

import (
	"bytes"

	"github.com/grafana/regexp"
	"github.com/grafana/regexp/syntax"

	"github.com/sadikovi/codesearchd/internal/codeserr"
)

// Span is a byte interval [Start, End) within a haystack, as returned by
// Find. It is the exact range the UI should highlight.
type Span struct {
	Start, End int
}

// Matcher is a compiled pattern that can locate the first occurrence of
// itself in a byte slice, or test for any occurrence. There are exactly two
// variants — Literal and Regex — and the zero value of Matcher is invalid;
// always construct one with Compile.
type Matcher struct {
	literal []byte // non-nil iff this is a literal matcher
	re      *regexp.Regexp
}

// Compile builds a Matcher for pattern. useRegex selects the variant.
// Compile rejects an empty pattern with codeserr.EmptyPattern — callers are
// expected to have already checked this at the API boundary, but the guard
// is repeated here so Compile can never produce a "both none" Matcher.
func Compile(pattern string, useRegex bool) (Matcher, error) {
	if pattern == "" {
		return Matcher{}, codeserr.New(codeserr.EmptyPattern, "pattern must not be empty")
	}
	if !useRegex {
		return Matcher{literal: []byte(pattern)}, nil
	}

	expr := smartCaseExpr(pattern)
	re, err := regexp.Compile(expr)
	if err != nil {
		return Matcher{}, codeserr.Wrap(codeserr.PatternCompile, err, "failed to compile regular expression")
	}
	re.Longest()
	return Matcher{re: re}, nil
}

// smartCaseExpr wraps pattern for single-line, \n-terminated, case-smart
// matching: case-insensitive unless the pattern itself contains an
// uppercase letter, matching the teacher's "smart case" convention used
// throughout zoekt's query compilation.
func smartCaseExpr(pattern string) string {
	expr := "(?m:" + pattern + ")"
	if !hasUpper(pattern) {
		expr = "(?i:" + expr + ")"
	}
	return expr
}

func hasUpper(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

// IsRegex reports whether m is the regex variant.
func (m Matcher) IsRegex() bool { return m.re != nil }

// Find returns the first byte interval in haystack that matches m, or ok=false
// if there is none.
func (m Matcher) Find(haystack []byte) (span Span, ok bool) {
	if m.re != nil {
		loc := m.re.FindIndex(haystack)
		if loc == nil {
			return Span{}, false
		}
		return Span{Start: loc[0], End: loc[1]}, true
	}
	return findLiteral(haystack, m.literal)
}

// IsMatch reports whether haystack contains any match of m. It is the
// cheaper of the two operations when the caller only needs a boolean (e.g.
// matching a file's basename).
func (m Matcher) IsMatch(haystack []byte) bool {
	if m.re != nil {
		return m.re.Match(haystack)
	}
	_, ok := findLiteral(haystack, m.literal)
	return ok
}

// findLiteral performs an exact byte-window comparison, returning the first
// index where pattern equals the haystack window starting there.
func findLiteral(haystack, pattern []byte) (Span, bool) {
	if len(pattern) == 0 {
		return Span{}, false
	}
	idx := bytes.Index(haystack, pattern)
	if idx < 0 {
		return Span{}, false
	}
	return Span{Start: idx, End: idx + len(pattern)}, true
}

// LiteralPrefilter returns the longest substring guaranteed to appear in any
// match of m, for use as a cheap bytes.Contains prefilter before running the
// full engine — the same literal-extraction-from-the-parsed-AST approach
// the teacher's query compiler uses to turn a regex into a cheaper
// substring check first (eval.go's regexpToMatchTreeRecursive pulls a
// required literal out of the parsed syntax.Regexp the same way, before
// falling back to the full regex match). Returns nil if no useful prefilter
// could be derived (e.g. the pattern already starts with a literal prefix,
// the pattern is matched case-insensitively, or m is the literal variant,
// which needs no prefilter).
func (m Matcher) LiteralPrefilter() []byte {
	if m.re == nil {
		return nil
	}
	if pre, _ := m.re.LiteralPrefix(); pre != "" {
		return nil
	}
	ast, err := syntax.Parse(m.re.String(), syntax.Perl)
	if err != nil {
		return nil
	}
	ast = ast.Simplify()
	if lit := longestLiteral(ast); lit != "" {
		return []byte(lit)
	}
	return nil
}

// longestLiteral finds the longest substring that is guaranteed to appear in
// a match of re. It does not find the global longest in all cases (e.g.
// alternations), only a safe lower bound — same limitation as the teacher's
// implementation.
func longestLiteral(re *syntax.Regexp) string {
	switch re.Op {
	case syntax.OpLiteral:
		if re.Flags&syntax.FoldCase != 0 {
			// A case-folded literal has no single byte form a
			// case-sensitive bytes.Contains could test for.
			return ""
		}
		return string(re.Rune)
	case syntax.OpCapture, syntax.OpPlus:
		return longestLiteral(re.Sub[0])
	case syntax.OpRepeat:
		if re.Min >= 1 {
			return longestLiteral(re.Sub[0])
		}
	case syntax.OpConcat:
		longest := ""
		for _, sub := range re.Sub {
			if l := longestLiteral(sub); len(l) > len(longest) {
				longest = l
			}
		}
		return longest
	}
	return ""
}
