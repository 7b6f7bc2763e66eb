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

// Package refresh implements the background periodic rebuild of cached
// snapshots: the same live-walk filters as the search orchestrator, run on
// a timer against every root the cache currently has registered.
package refresh

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sadikovi/codesearchd/internal/cache"
	"github.com/sadikovi/codesearchd/internal/ext"
	"github.com/sadikovi/codesearchd/internal/fsutil"
	"github.com/sadikovi/codesearchd/internal/ignore"
	"github.com/sadikovi/codesearchd/internal/pool"
)

// DefaultPollInterval is how often PeriodicRefresh rebuilds every
// registered root when the caller does not override it.
const DefaultPollInterval = 5 * time.Second

// Refresher rebuilds cache snapshots for every registered root, on demand
// (RefreshSync) or on a timer (PeriodicRefresh). It owns a single-worker
// pool, matching §4.8's "pool size default 4 (refresher uses 1)".
type Refresher struct {
	cache           *cache.Cache
	pool            *pool.Pool
	extensions      ext.Set
	minBytesToCache int64
	logger          *zap.Logger
}

// New builds a Refresher over c. extensions controls which files are worth
// tracking at all (filename-only search is not filtered, but the refresher
// only has content search in mind, so it only records supported
// extensions). minBytesToCache is the eager-load threshold from §4.7.
func New(c *cache.Cache, extensions ext.Set, minBytesToCache int64, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		cache:           c,
		pool:            pool.New(1),
		extensions:      extensions,
		minBytesToCache: minBytesToCache,
		logger:          logger,
	}
}

// Close shuts down the refresher's worker pool. No further refresh may be
// requested afterwards.
func (r *Refresher) Close() error {
	return r.pool.Close()
}

// RefreshSync rebuilds every currently registered root and waits for all
// rebuilds to finish. Per-root errors are logged, never returned — a single
// bad root must not prevent the others from refreshing.
func (r *Refresher) RefreshSync() {
	roots := r.cache.Paths()

	var wg sync.WaitGroup
	for _, root := range roots {
		root := root
		wg.Add(1)
		r.pool.Execute(func() {
			defer wg.Done()
			if err := r.rebuildRoot(root); err != nil {
				r.logger.Sugar().Warnw("snapshot rebuild failed", "root", root, "error", err)
			}
		})
	}
	wg.Wait()
}

// PeriodicRefresh blocks, calling RefreshSync every interval until ctx is
// canceled. Run it in its own goroutine from main().
func (r *Refresher) PeriodicRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshSync()
		}
	}
}

func (r *Refresher) rebuildRoot(root string) error {
	im, err := ignore.Load(root)
	if err != nil {
		return err
	}
	rootDev, haveDev := fsutil.DeviceOf(root)

	// A root may carry a .codesearchd.yml override (read once, at
	// Register time) layering extra ignore patterns and/or a narrower
	// extension set on top of the defaults.
	extensions := r.extensions
	if override, ok := r.cache.Override(root); ok && override != nil {
		if len(override.Ignore) > 0 {
			if err := im.AddPatterns(override.Ignore); err != nil {
				r.logger.Sugar().Warnw("invalid ignore pattern in root override", "root", root, "error", err)
			}
		}
		if len(override.Extensions) > 0 {
			parsed := make([]ext.Extension, 0, len(override.Extensions))
			for _, name := range override.Extensions {
				parsed = append(parsed, ext.Parse(name))
			}
			extensions = ext.WithExtensions(parsed)
		}
	}

	var entries []cache.Entry
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if rel != "." && (ignore.IsStandardIgnoredDir(d.Name()) || im.Match(rel)) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if im.Match(rel) {
			return nil
		}
		if haveDev && !fsutil.SameDevice(path, rootDev) {
			return nil
		}

		e := ext.Parse(filepath.Ext(d.Name()))
		if !extensions.IsSupported(e) {
			return nil
		}

		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}

		entry := cache.Entry{Path: path}
		if info.Size() >= r.minBytesToCache {
			body, rerr := os.ReadFile(path)
			if rerr == nil {
				entry.Index = &cache.FileIndex{Content: body}
			}
		}
		entries = append(entries, entry)
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	r.cache.Upsert(root, cache.NewSnapshot(entries))
	return nil
}
