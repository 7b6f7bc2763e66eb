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

package search

import (
	"bytes"
	"sort"

	"github.com/sadikovi/codesearchd/internal/matcher"
	"github.com/sadikovi/codesearchd/internal/result"
	"github.com/sadikovi/codesearchd/internal/sink"
)

// splitLines breaks content into its constituent lines, dropping the
// terminating '\n' from each but keeping a final, newline-less fragment if
// the file does not end with one. An empty content yields no lines.
func splitLines(content []byte) [][]byte {
	if len(content) == 0 {
		return nil
	}
	lines := bytes.Split(content, []byte("\n"))
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// scanContent drives s through the begin -> (matched | context | break)* ->
// finish event stream for a single file's content, computing the before/
// after context window around every matching line.
//
// It works in two passes: the first locates every matching line and unions
// each match's [-contextBefore, +contextAfter] window into an "active" mask;
// the second walks the lines in order, feeding the sink a Matched or
// Context event for every active line and a ContextBreak whenever an active
// run ends. This turns "which lines border a match" into a closed-form
// computation instead of a hand-rolled ring buffer, at the cost of two
// linear passes over the file.
func scanContent(s *sink.Sink, content []byte, m matcher.Matcher, contextBefore, contextAfter, contentCap int) error {
	lines := splitLines(content)
	n := len(lines)
	if n == 0 {
		return s.Finish()
	}

	isMatch := make([]bool, n)
	active := make([]bool, n)
	var matchIdx []int

	// pre is a cheap bytes.Contains prefilter derived from the compiled
	// pattern, when one is available (regex variant without an already-
	// exposed literal prefix). It lets the per-line loop skip the full
	// regex engine on lines that cannot possibly match.
	pre := m.LiteralPrefilter()

	for i, line := range lines {
		if pre != nil && !bytes.Contains(line, pre) {
			continue
		}
		if m.IsMatch(line) {
			isMatch[i] = true
			matchIdx = append(matchIdx, i)
			lo := i - contextBefore
			if lo < 0 {
				lo = 0
			}
			hi := i + contextAfter
			if hi >= n {
				hi = n - 1
			}
			for j := lo; j <= hi; j++ {
				active[j] = true
			}
		}
	}

	inGroup := false
	for i := 0; i < n; i++ {
		lineNum := uint64(i + 1)
		if !active[i] {
			if inGroup {
				inGroup = false
				if cont := s.ContextBreak(contentCap); !cont {
					break
				}
			}
			continue
		}
		inGroup = true
		if isMatch[i] {
			if err := s.Matched(lineNum, lines[i]); err != nil {
				return err
			}
			continue
		}
		if err := s.Context(contextKind(matchIdx, i, contextBefore), lineNum, lines[i]); err != nil {
			return err
		}
	}

	return s.Finish()
}

// contextKind decides whether line i (known to be active and non-matching)
// is before- or after-context, by comparing its distance to the nearest
// match on either side. Ties (equidistant from a preceding and a following
// match) favor Before.
func contextKind(matchIdx []int, i, contextBefore int) result.Kind {
	pos := sort.SearchInts(matchIdx, i)

	const unreachable = 1 << 30
	distForward, distBackward := unreachable, unreachable
	if pos < len(matchIdx) {
		distForward = matchIdx[pos] - i
	}
	if pos > 0 {
		distBackward = i - matchIdx[pos-1]
	}

	if distForward <= contextBefore && distForward <= distBackward {
		return result.Before
	}
	return result.After
}
