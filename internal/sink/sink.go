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

// Package sink implements the match-assembly state machine that turns a
// scanner's per-line event stream into well-formed, ordered match groups
// for a single file.
//
// The event stream for a file is:
//
//	begin -> (matched | context-before | context-after | context-break)* -> finish
//
// A context-break marks the boundary between one neighborhood of context and
// the next; the sink buffers lines within a group until that boundary (or
// finish) arrives, so it never emits a partial group before its
// after-context has been seen.
package sink

import (
	"sync/atomic"

	"github.com/sadikovi/codesearchd/internal/codeserr"
	"github.com/sadikovi/codesearchd/internal/ext"
	"github.com/sadikovi/codesearchd/internal/matcher"
	"github.com/sadikovi/codesearchd/internal/result"
)

// Sink assembles content hits for one file. It is not safe for concurrent
// use; the orchestrator creates one per file scan.
type Sink struct {
	path    string
	ext     ext.Extension
	matcher matcher.Matcher

	// counter is the orchestrator's shared, global content-match counter.
	// Incremented with relaxed (non-synchronizing) ordering: overshoot past
	// the cap is bounded by the number of in-flight workers and is
	// reconciled to exact/at_least by the caller, never surfaced directly.
	counter *int64

	out chan<- result.ContentHit

	pending   []result.ContentLine
	completed []result.MatchGroup
}

// New constructs a Sink for path. counter is the orchestrator's shared
// content-match counter; out is the channel completed content hits are
// published on.
func New(path string, e ext.Extension, m matcher.Matcher, counter *int64, out chan<- result.ContentHit) *Sink {
	return &Sink{
		path:    path,
		ext:     e,
		matcher: m,
		counter: counter,
		out:     out,
	}
}

// Matched records a line the scanner identified as a match. lineNum must be
// 1-based; a zero value means the scanner was misconfigured without line
// numbering, which is a programming error reported as LineNumbersDisabled.
func (s *Sink) Matched(lineNum uint64, line []byte) error {
	if lineNum == 0 {
		return codeserr.New(codeserr.LineNumbersDisabled, "scanner produced a match with no line number")
	}
	atomic.AddInt64(s.counter, 1)

	var rng *result.Span
	if span, ok := s.matcher.Find(line); ok {
		rng = &result.Span{Start: span.Start, End: span.End}
	}
	s.pending = append(s.pending, result.NewContentLine(result.Match, lineNum, line, rng))
	return nil
}

// Context records a before- or after-context line.
func (s *Sink) Context(kind result.Kind, lineNum uint64, line []byte) error {
	if lineNum == 0 {
		return codeserr.New(codeserr.LineNumbersDisabled, "scanner produced a context line with no line number")
	}
	s.pending = append(s.pending, result.NewContentLine(kind, lineNum, line, nil))
	return nil
}

// ContextBreak marks the end of a contiguous context window and reports
// whether the scan of this file should continue. The scan stops once the
// shared content counter has strictly exceeded cap — the natural point at
// which further matches in this file can no longer affect the reported
// total; in that case the buffered lines are left for Finish to flush.
// Otherwise it flushes any buffered lines into a completed group.
func (s *Sink) ContextBreak(cap int) (cont bool) {
	if int(atomic.LoadInt64(s.counter)) > cap {
		return false
	}
	s.flush()
	return true
}

// Finish flushes any remaining buffered lines and publishes the completed
// content hit, if any groups were produced. Finish must be called exactly
// once, after the scanner has no more events for this file.
func (s *Sink) Finish() (err error) {
	s.flush()
	if len(s.completed) == 0 {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = codeserr.New(codeserr.Channel, "content channel closed mid-publish")
		}
	}()
	s.out <- result.ContentHit{Path: s.path, Ext: s.ext, Groups: s.completed}
	return nil
}

func (s *Sink) flush() {
	if len(s.pending) == 0 {
		return
	}
	s.completed = append(s.completed, result.MatchGroup{Lines: s.pending})
	s.pending = nil
}
