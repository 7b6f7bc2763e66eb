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

// Package result holds the typed shapes produced by a search: file hits,
// content hits with their match groups, counted totals, and the truncation
// policy applied to over-long lines.
package result

import "github.com/sadikovi/codesearchd/internal/ext"

// FileHit is a file whose basename matched the query pattern. Created once
// per match; never mutated afterwards.
type FileHit struct {
	Path string     `json:"path"`
	Ext  ext.Extension `json:"ext"`
}

// Kind discriminates the three roles a ContentLine can play inside a match
// group.
type Kind int

const (
	Before Kind = iota
	Match
	After
)

func (k Kind) String() string {
	switch k {
	case Before:
		return "before"
	case Match:
		return "match"
	case After:
		return "after"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

const (
	// MaxPrefix is the number of leading bytes kept when a line is
	// truncated.
	MaxPrefix = 120
	// MaxSuffix is the number of trailing bytes kept when a line is
	// truncated.
	MaxSuffix = 17
	// ellipsis is the truncation marker inserted between the kept prefix
	// and suffix.
	ellipsis = "..."
	// MaxLength is the total length of a truncated line's bytes:
	// MaxPrefix + len(ellipsis) + MaxSuffix.
	MaxLength = MaxPrefix + len(ellipsis) + MaxSuffix
)

// ContentLine is one line of a match group: either the matching line itself
// or a line of surrounding context. LineNum is 1-based; 0 is reserved for
// "unknown" and never appears in committed output because production sink
// contracts always enable line numbering.
type ContentLine struct {
	Kind      Kind
	LineNum   uint64
	Bytes     []byte
	Range     *Span // non-nil iff Kind == Match and the matcher found a range
	Truncated bool
}

// Span is a byte interval within Bytes, reusing the matcher package's
// concept but kept independent so this package has no dependency on the
// matching engine.
type Span struct {
	Start, End int
}

// NewContentLine builds a ContentLine, applying the truncation policy to
// raw. rng is nil for context lines; for match lines it is the byte range
// the matcher reported within raw, if any.
//
// Truncation policy: if rng is present, the line is known to have a match
// range inside it. Rather than the "TODO: add truncation" left in the
// reference implementation, this rule is adopted: when the raw line exceeds
// MaxLength, a MaxLength-wide window is centered on the match range
// (clamped to the line's bounds) and the byte range is re-expressed
// relative to that window; Truncated is set to true whenever the returned
// bytes are shorter than raw, regardless of whether a range was present.
// When rng is absent and raw exceeds MaxLength, the classic
// prefix+ellipsis+suffix window is produced.
func NewContentLine(kind Kind, lineNum uint64, raw []byte, rng *Span) ContentLine {
	if len(raw) <= MaxLength {
		return ContentLine{Kind: kind, LineNum: lineNum, Bytes: append([]byte(nil), raw...), Range: rng}
	}

	if rng != nil {
		windowed, adjusted := centerWindow(raw, *rng)
		return ContentLine{
			Kind:      kind,
			LineNum:   lineNum,
			Bytes:     windowed,
			Range:     &adjusted,
			Truncated: true,
		}
	}

	out := make([]byte, 0, MaxLength)
	out = append(out, raw[:MaxPrefix]...)
	out = append(out, ellipsis...)
	out = append(out, raw[len(raw)-MaxSuffix:]...)
	return ContentLine{Kind: kind, LineNum: lineNum, Bytes: out, Truncated: true}
}

// centerWindow clamps a MaxLength-wide window of raw around rng, preserving
// the match range relative to the new window.
func centerWindow(raw []byte, rng Span) ([]byte, Span) {
	matchLen := rng.End - rng.Start
	if matchLen > MaxLength {
		// The match itself is wider than our window; keep it intact and
		// accept a longer-than-usual line rather than cutting the match.
		return append([]byte(nil), raw[rng.Start:rng.End]...), Span{0, matchLen}
	}

	slack := MaxLength - matchLen
	before := slack / 2
	after := slack - before

	start := rng.Start - before
	end := rng.End + after
	if start < 0 {
		end += -start
		start = 0
	}
	if end > len(raw) {
		start -= end - len(raw)
		if start < 0 {
			start = 0
		}
		end = len(raw)
	}

	windowed := append([]byte(nil), raw[start:end]...)
	return windowed, Span{Start: rng.Start - start, End: rng.End - start}
}

// MatchGroup is a non-empty, strictly ascending-by-LineNum sequence of
// content lines with at least one Match line. Before-context lines precede
// any match; after-context lines follow.
type MatchGroup struct {
	Lines []ContentLine
}

// ContentHit is created exactly once per file that yields at least one
// match. Groups appear in file order (top to bottom).
type ContentHit struct {
	Path   string
	Ext    ext.Extension
	Groups []MatchGroup
}

// Counted is the exact(n) / at_least(n) sum type used to report totals once
// a cap may have been exceeded.
type Counted struct {
	N       int
	AtLeast bool
}

// Count builds a Counted from an observed count and the cap that applies to
// it: exact(n) when n <= cap, at_least(n) otherwise.
func Count(n, cap int) Counted {
	if n <= cap {
		return Counted{N: n}
	}
	return Counted{N: n, AtLeast: true}
}

func (c Counted) MarshalKind() string {
	if c.AtLeast {
		return "atleast"
	}
	return "exact"
}

// SearchResult is the top-level outcome of a single query.
type SearchResult struct {
	ElapsedSeconds float64
	UsedCache      bool
	Files          []FileHit
	FileCount      Counted
	Content        []ContentHit
	ContentCount   Counted
}
