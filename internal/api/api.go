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

// Package api defines the JSON request/response envelopes the core search
// engine is otherwise agnostic to, and the HTTP handlers that bind them to
// an Engine and a Cache.
package api

import (
	"github.com/sadikovi/codesearchd/internal/cache"
	"github.com/sadikovi/codesearchd/internal/ext"
	"github.com/sadikovi/codesearchd/internal/result"
)

// SearchRequest is the external request envelope (§6).
type SearchRequest struct {
	Dir      string `json:"dir"`
	Pattern  string `json:"pattern"`
	UseRegex bool   `json:"use_regex,omitempty"`
	UseCache bool   `json:"use_cache,omitempty"`
}

// CacheRegisterRequest registers a root with the cache for future refreshes.
type CacheRegisterRequest struct {
	Dir string `json:"dir"`
}

// FileHitJSON is the wire shape of a result.FileHit.
type FileHitJSON struct {
	Path string        `json:"path"`
	Ext  ext.Extension `json:"ext"`
}

// CountedJSON is the wire shape of a result.Counted.
type CountedJSON struct {
	Count int    `json:"count"`
	Match string `json:"match"`
}

// ContentLineJSON is the wire shape of a result.ContentLine. When the line
// has a match range, the line is split into before/match/after byte slices
// (lossily decoded as UTF-8, per §6); otherwise a single Bytes field is
// populated.
type ContentLineJSON struct {
	Kind        string `json:"kind"`
	Num         uint64 `json:"num"`
	Truncated   bool   `json:"truncated"`
	Bytes       string `json:"bytes,omitempty"`
	BeforeBytes string `json:"before_bytes,omitempty"`
	AfterBytes  string `json:"after_bytes,omitempty"`
}

// MatchGroupJSON is the wire shape of a result.MatchGroup.
type MatchGroupJSON struct {
	Lines []ContentLineJSON `json:"lines"`
}

// ContentHitJSON is the wire shape of a result.ContentHit.
type ContentHitJSON struct {
	Path    string           `json:"path"`
	Ext     ext.Extension    `json:"ext"`
	Matches []MatchGroupJSON `json:"matches"`
}

// SearchResponse is the external response envelope (§6).
type SearchResponse struct {
	TimeSec        float64          `json:"time_sec"`
	UsedCache      bool             `json:"used_cache"`
	Files          []FileHitJSON    `json:"files"`
	FileMatches    CountedJSON      `json:"file_matches"`
	Content        []ContentHitJSON `json:"content"`
	ContentMatches CountedJSON      `json:"content_matches"`
}

// ErrorResponse is the external error envelope (§6).
type ErrorResponse struct {
	Err bool   `json:"err"`
	Msg string `json:"msg"`
}

// CacheStatsResponse is the supplemented cache statistics endpoint's
// response shape (§4.6 plus a cache-wide total).
type CacheStatsResponse struct {
	MemoryUsed int64                    `json:"memory_used"`
	PerRoot    map[string]RootStatsJSON `json:"per_root"`
}

// RootStatsJSON is one root's entry in CacheStatsResponse.
type RootStatsJSON struct {
	TxID            int64   `json:"txid"`
	MemoryUsed      int64   `json:"memory_used"`
	NumEntries      int     `json:"num_entries"`
	IndexedFraction float64 `json:"indexed_fraction"`
}

// FromSearchResult converts the internal result model to its wire shape.
func FromSearchResult(r *result.SearchResult) SearchResponse {
	files := make([]FileHitJSON, len(r.Files))
	for i, f := range r.Files {
		files[i] = FileHitJSON{Path: f.Path, Ext: f.Ext}
	}

	content := make([]ContentHitJSON, len(r.Content))
	for i, c := range r.Content {
		groups := make([]MatchGroupJSON, len(c.Groups))
		for j, g := range c.Groups {
			lines := make([]ContentLineJSON, len(g.Lines))
			for k, l := range g.Lines {
				lines[k] = fromContentLine(l)
			}
			groups[j] = MatchGroupJSON{Lines: lines}
		}
		content[i] = ContentHitJSON{Path: c.Path, Ext: c.Ext, Matches: groups}
	}

	return SearchResponse{
		TimeSec:        r.ElapsedSeconds,
		UsedCache:      r.UsedCache,
		Files:          files,
		FileMatches:    fromCounted(r.FileCount),
		Content:        content,
		ContentMatches: fromCounted(r.ContentCount),
	}
}

func fromCounted(c result.Counted) CountedJSON {
	return CountedJSON{Count: c.N, Match: c.MarshalKind()}
}

func fromContentLine(l result.ContentLine) ContentLineJSON {
	out := ContentLineJSON{Kind: l.Kind.String(), Num: l.LineNum, Truncated: l.Truncated}
	if l.Range != nil {
		out.BeforeBytes = string(l.Bytes[:l.Range.Start])
		out.Bytes = string(l.Bytes[l.Range.Start:l.Range.End])
		out.AfterBytes = string(l.Bytes[l.Range.End:])
	} else {
		out.Bytes = string(l.Bytes)
	}
	return out
}

// FromCacheStatistics converts the internal cache statistics to their wire
// shape.
func FromCacheStatistics(s cache.Statistics) CacheStatsResponse {
	perRoot := make(map[string]RootStatsJSON, len(s.PerRoot))
	for root, rs := range s.PerRoot {
		perRoot[root] = RootStatsJSON{
			TxID:            rs.TxID,
			MemoryUsed:      rs.MemoryUsed,
			NumEntries:      rs.NumEntries,
			IndexedFraction: rs.IndexedFraction,
		}
	}
	return CacheStatsResponse{MemoryUsed: s.MemoryUsed, PerRoot: perRoot}
}
