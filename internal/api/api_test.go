package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sadikovi/codesearchd/internal/cache"
	"github.com/sadikovi/codesearchd/internal/ext"
	"github.com/sadikovi/codesearchd/internal/result"
	"github.com/sadikovi/codesearchd/internal/search"
)

func TestFromSearchResultConvertsGroupsAndCounts(t *testing.T) {
	r := &result.SearchResult{
		ElapsedSeconds: 0.5,
		UsedCache:      true,
		Files:          []result.FileHit{{Path: "a/b.go", Ext: ext.Go}},
		FileCount:      result.Count(1, 10),
		Content: []result.ContentHit{
			{
				Path: "a/b.go",
				Ext:  ext.Go,
				Groups: []result.MatchGroup{
					{Lines: []result.ContentLine{
						result.NewContentLine(result.Match, 3, []byte("needle here"), &result.Span{Start: 0, End: 6}),
					}},
				},
			},
		},
		ContentCount: result.Count(120, 100),
	}

	resp := FromSearchResult(r)

	wantFileMatches := CountedJSON{Match: "exact", Count: 1}
	if diff := cmp.Diff(wantFileMatches, resp.FileMatches); diff != "" {
		t.Errorf("file matches mismatch (-want +got):\n%s", diff)
	}
	wantContentMatches := CountedJSON{Match: "atleast", Count: 120}
	if diff := cmp.Diff(wantContentMatches, resp.ContentMatches); diff != "" {
		t.Errorf("content matches mismatch (-want +got):\n%s", diff)
	}
	if len(resp.Content) != 1 || len(resp.Content[0].Matches) != 1 {
		t.Fatalf("content = %+v", resp.Content)
	}
	wantLine := ContentLineJSON{Kind: "match", Num: 3, Bytes: "needle", AfterBytes: " here"}
	if diff := cmp.Diff(wantLine, resp.Content[0].Matches[0].Lines[0]); diff != "" {
		t.Errorf("line mismatch (-want +got):\n%s", diff)
	}
}

func TestFromContentLineWithoutRangeUsesBytes(t *testing.T) {
	l := result.NewContentLine(result.Before, 2, []byte("context line"), nil)
	out := fromContentLine(l)
	want := ContentLineJSON{Kind: "before", Num: 2, Bytes: "context line"}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("fromContentLine mismatch (-want +got):\n%s", diff)
	}
}

func TestFromCacheStatisticsMapsPerRoot(t *testing.T) {
	c := cache.New()
	c.Register("/proj")
	stats := FromCacheStatistics(c.Stats())
	rs, ok := stats.PerRoot["/proj"]
	require.True(t, ok, "missing /proj in per-root stats")
	require.Zero(t, rs.NumEntries)
}

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	eng := search.New(nil, 2, nil)
	c := cache.New()
	return NewHandlers(eng, c, nil)
}

func TestHandleSearchReturnsFileHit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "needle.go"), []byte("package x\n"), 0o644))

	h := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Register(mux)

	body := strings.NewReader(`{"dir":"` + dir + `","pattern":"needle"}`)
	req := httptest.NewRequest(http.MethodPost, "/search", body)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
}

func TestHandleSearchRejectsEmptyPattern(t *testing.T) {
	dir := t.TempDir()
	h := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Register(mux)

	body := strings.NewReader(`{"dir":"` + dir + `","pattern":""}`)
	req := httptest.NewRequest(http.MethodPost, "/search", body)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Err)
}

func TestHandleCacheRegisterThenStats(t *testing.T) {
	h := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Register(mux)

	body := strings.NewReader(`{"dir":"/proj"}`)
	req := httptest.NewRequest(http.MethodPost, "/cache/register", body)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CacheStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	_, ok := resp.PerRoot["/proj"]
	require.True(t, ok, "want /proj registered")
}

func TestHandlePingRespondsOK(t *testing.T) {
	h := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleSearchRejectsWrongMethod(t *testing.T) {
	h := newTestHandlers(t)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
