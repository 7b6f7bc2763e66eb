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

// Package search implements the parallel bounded search orchestrator: a
// live directory walk or a partitioned scan over a cached snapshot, routing
// each candidate file through the matcher and the sink, and stopping early
// once both global caps are exceeded.
package search

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sadikovi/codesearchd/internal/cache"
	"github.com/sadikovi/codesearchd/internal/codeserr"
	"github.com/sadikovi/codesearchd/internal/ext"
	"github.com/sadikovi/codesearchd/internal/fsutil"
	"github.com/sadikovi/codesearchd/internal/ignore"
	"github.com/sadikovi/codesearchd/internal/matcher"
	"github.com/sadikovi/codesearchd/internal/pool"
	"github.com/sadikovi/codesearchd/internal/result"
	"github.com/sadikovi/codesearchd/internal/sink"
)

// Binding contract constants (§6): the two global caps, and the default
// context window around every match.
const (
	FileMax       = 10
	ContentMax    = 100
	ContextBefore = 2
	ContextAfter  = 2

	// walkConcurrency bounds the number of file-processing goroutines a live
	// walk keeps in flight at once.
	walkConcurrency = 64
)

// Options configures a single Find call.
type Options struct {
	UseRegex   bool
	UseCache   bool
	Extensions []ext.Extension // nil/empty means "every supported extension"
}

// Engine runs queries against an optional cache and a configured worker
// pool size for the cached-scan path.
type Engine struct {
	cache    *cache.Cache
	poolSize int
	logger   *zap.Logger
}

// New builds an Engine. c may be nil, in which case every query runs a live
// walk regardless of Options.UseCache. A nil logger disables logging.
func New(c *cache.Cache, poolSize int, logger *zap.Logger) *Engine {
	if poolSize <= 0 {
		poolSize = pool.DefaultSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cache: c, poolSize: poolSize, logger: logger}
}

// Find implements the C5 contract: find(root, pattern, use_regex, use_cache,
// extension_filter) -> SearchResult | Error.
func (eng *Engine) Find(ctx context.Context, root, pattern string, opts Options) (*result.SearchResult, error) {
	start := time.Now()

	canon, err := canonicalizeRoot(root)
	if err != nil {
		return nil, err
	}

	m, err := matcher.Compile(pattern, opts.UseRegex)
	if err != nil {
		return nil, err
	}

	supported := ext.All()
	if len(opts.Extensions) > 0 {
		supported = ext.WithExtensions(opts.Extensions)
	}

	var fileCounter, contentCounter int64
	fileCh := make(chan result.FileHit)
	contentCh := make(chan result.ContentHit)

	var files []result.FileHit
	var contents []result.ContentHit
	var collectors sync.WaitGroup
	collectors.Add(2)
	go func() {
		defer collectors.Done()
		for f := range fileCh {
			files = append(files, f)
		}
	}()
	go func() {
		defer collectors.Done()
		for c := range contentCh {
			contents = append(contents, c)
		}
	}()

	usedCache := false
	var scanErr error
	if opts.UseCache && eng.cache != nil {
		if snap, ok := eng.cache.Get(canon); ok {
			usedCache = true
			scanErr = eng.cachedScan(ctx, snap, m, supported, &fileCounter, &contentCounter, fileCh, contentCh)
		}
	}
	if !usedCache {
		scanErr = eng.liveWalk(ctx, canon, m, supported, &fileCounter, &contentCounter, fileCh, contentCh)
	}

	close(fileCh)
	close(contentCh)
	collectors.Wait()

	if scanErr != nil {
		return nil, scanErr
	}

	return &result.SearchResult{
		ElapsedSeconds: time.Since(start).Seconds(),
		UsedCache:      usedCache,
		Files:          files,
		FileCount:      result.Count(len(files), FileMax),
		Content:        contents,
		ContentCount:   result.Count(len(contents), ContentMax),
	}, nil
}

func canonicalizeRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", codeserr.Wrap(codeserr.IO, err, "failed to canonicalize root")
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", codeserr.New(codeserr.NotADirectory, "root does not exist: "+root)
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return "", codeserr.New(codeserr.NotADirectory, root+" is not a directory")
	}
	return resolved, nil
}

func budgetExhausted(fileCounter, contentCounter *int64) bool {
	return atomic.LoadInt64(fileCounter) > FileMax && atomic.LoadInt64(contentCounter) > ContentMax
}

// isFatal reports whether err must abort the whole query (channel closed
// mid-publish) as opposed to being logged and the file skipped.
func isFatal(err error) bool {
	var ce *codeserr.Error
	if errors.As(err, &ce) {
		return ce.Code == codeserr.Channel
	}
	return false
}

// processFile runs the shared per-file decision tree (§4.5): a basename
// match publishes a file hit; a supported extension with budget remaining
// is routed through a fresh sink and scanContent.
func (eng *Engine) processFile(
	path string,
	body []byte,
	e ext.Extension,
	m matcher.Matcher,
	supported ext.Set,
	fileCounter, contentCounter *int64,
	fileCh chan<- result.FileHit,
	contentCh chan<- result.ContentHit,
) error {
	if m.IsMatch([]byte(filepath.Base(path))) {
		atomic.AddInt64(fileCounter, 1)
		fileCh <- result.FileHit{Path: path, Ext: e}
	}

	if supported.IsSupported(e) && atomic.LoadInt64(contentCounter) <= ContentMax {
		s := sink.New(path, e, m, contentCounter, contentCh)
		if err := scanContent(s, body, m, ContextBefore, ContextAfter, ContentMax); err != nil {
			return err
		}
	}
	return nil
}

// liveWalk implements §4.5.2: a parallel directory walk that does not
// follow symlinks, stays on the root's filesystem, and applies the standard
// plus project-local ignore filters.
func (eng *Engine) liveWalk(
	ctx context.Context,
	root string,
	m matcher.Matcher,
	supported ext.Set,
	fileCounter, contentCounter *int64,
	fileCh chan<- result.FileHit,
	contentCh chan<- result.ContentHit,
) error {
	rootDev, haveDev := fsutil.DeviceOf(root)

	im, err := ignore.Load(root)
	if err != nil {
		return codeserr.Wrap(codeserr.IO, err, "failed to load project ignore file")
	}

	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(walkConcurrency)
	g, gctx := errgroup.WithContext(walkCtx)

	var fatalMu sync.Mutex
	var fatal error

	fsys := os.DirFS(root)
	walkErr := fs.WalkDir(fsys, ".", func(relPath string, d fs.DirEntry, err error) error {
		if err != nil {
			eng.logger.Sugar().Warnw("skipping path after walk error", "path", relPath, "error", err)
			return nil
		}
		if gctx.Err() != nil {
			return fs.SkipAll
		}

		name := d.Name()
		if d.IsDir() {
			if relPath != "." && (ignore.IsStandardIgnoredDir(name) || im.Match(relPath)) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if im.Match(relPath) {
			return nil
		}

		absPath := filepath.Join(root, relPath)
		if haveDev && !fsutil.SameDevice(absPath, rootDev) {
			return nil
		}

		if err := sem.Acquire(gctx, 1); err != nil {
			return fs.SkipAll
		}
		g.Go(func() error {
			defer sem.Release(1)

			if budgetExhausted(fileCounter, contentCounter) {
				return nil
			}
			e := ext.Parse(filepath.Ext(name))
			body, rerr := os.ReadFile(absPath)
			if rerr != nil {
				eng.logger.Sugar().Warnw("skipping unreadable file", "path", absPath, "error", rerr)
				return nil
			}
			if ferr := eng.processFile(absPath, body, e, m, supported, fileCounter, contentCounter, fileCh, contentCh); ferr != nil {
				if isFatal(ferr) {
					fatalMu.Lock()
					if fatal == nil {
						fatal = ferr
					}
					fatalMu.Unlock()
					cancel()
					return ferr
				}
				eng.logger.Sugar().Warnw("skipping file after scan error", "path", absPath, "error", ferr)
				return nil
			}
			if budgetExhausted(fileCounter, contentCounter) {
				cancel()
			}
			return nil
		})
		return nil
	})

	_ = g.Wait()
	if walkErr != nil {
		return codeserr.Wrap(codeserr.IO, walkErr, "directory walk failed")
	}
	return fatal
}

// cachedScan implements §4.5.1: the snapshot is split into poolSize
// contiguous buckets, each drained by one worker of a fixed pool.
func (eng *Engine) cachedScan(
	ctx context.Context,
	snap *cache.Snapshot,
	m matcher.Matcher,
	supported ext.Set,
	fileCounter, contentCounter *int64,
	fileCh chan<- result.FileHit,
	contentCh chan<- result.ContentHit,
) error {
	entries := snap.Entries
	if len(entries) == 0 {
		return nil
	}

	k := eng.poolSize
	if k > len(entries) {
		k = len(entries)
	}
	if k <= 0 {
		k = 1
	}

	buckets := partitionEntries(entries, k)
	p := pool.New(k)

	var fatalMu sync.Mutex
	var fatal error
	var cancelled int32

	for _, bucket := range buckets {
		bucket := bucket
		p.Execute(func() {
			for _, entry := range bucket {
				if ctx.Err() != nil || atomic.LoadInt32(&cancelled) != 0 {
					return
				}
				if budgetExhausted(fileCounter, contentCounter) {
					atomic.StoreInt32(&cancelled, 1)
					return
				}

				body, e, err := loadEntryBody(entry)
				if err != nil {
					eng.logger.Sugar().Warnw("skipping unreadable cached entry", "path", entry.Path, "error", err)
					continue
				}
				ferr := eng.processFile(entry.Path, body, e, m, supported, fileCounter, contentCounter, fileCh, contentCh)
				if ferr == nil {
					continue
				}
				if isFatal(ferr) {
					fatalMu.Lock()
					if fatal == nil {
						fatal = ferr
					}
					fatalMu.Unlock()
					atomic.StoreInt32(&cancelled, 1)
					return
				}
				eng.logger.Sugar().Warnw("skipping cached entry after scan error", "path", entry.Path, "error", ferr)
			}
		})
	}

	if err := p.Close(); err != nil {
		return err
	}
	return fatal
}

func partitionEntries(entries []cache.Entry, k int) [][]cache.Entry {
	n := len(entries)
	size := n / k
	buckets := make([][]cache.Entry, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		end := start + size
		if i == k-1 {
			end = n
		}
		buckets = append(buckets, entries[start:end])
		start = end
	}
	return buckets
}

func loadEntryBody(entry cache.Entry) ([]byte, ext.Extension, error) {
	e := ext.Parse(filepath.Ext(entry.Path))
	if entry.Index != nil {
		return entry.Index.Content, e, nil
	}
	body, err := os.ReadFile(entry.Path)
	return body, e, err
}
