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

// Package config gathers the daemon's tunables into one struct, populated
// from flags the way the teacher's webserver binaries do (no config file).
package config

import (
	"flag"
	"time"
)

// Config holds every value the binding contract in the external-interfaces
// section names, plus the operational knobs around them.
type Config struct {
	Listen string

	// PoolSize is the worker-pool size used by the cached-path scanner.
	// The refresher always uses a pool of 1 regardless of this value.
	PoolSize int

	// CacheDir is where the daemon writes its PARAMS/LOCK discovery files.
	CacheDir string

	// PollInterval is how often the background refresher rebuilds cached
	// snapshots.
	PollInterval time.Duration

	// MinBytesToCache is the size threshold past which a file's contents are
	// eagerly loaded into its cache entry rather than tracked by path only.
	MinBytesToCache int64

	EnablePprof bool
}

const (
	DefaultPoolSize        = 4
	DefaultPollInterval    = 5 * time.Second
	DefaultMinBytesToCache = 32 * 1024
)

// Parse builds a Config from args (typically os.Args[1:]), applying the same
// defaults as the binding contract's constants table.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("codesearchd", flag.ContinueOnError)

	listen := fs.String("listen", ":6070", "listen on this address")
	poolSize := fs.Int("pool-size", DefaultPoolSize, "worker pool size for the cached-path scanner")
	cacheDir := fs.String("cache-dir", ".", "directory for the daemon's PARAMS/LOCK discovery files")
	pollInterval := fs.Duration("poll-interval", DefaultPollInterval, "background refresh interval for cached roots")
	minBytes := fs.Int64("min-bytes-to-cache", DefaultMinBytesToCache, "minimum file size eagerly loaded into the cache")
	enablePprof := fs.Bool("pprof", false, "enable pprof endpoints under /debug/pprof")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Config{
		Listen:          *listen,
		PoolSize:        *poolSize,
		CacheDir:        *cacheDir,
		PollInterval:    *pollInterval,
		MinBytesToCache: *minBytes,
		EnablePprof:     *enablePprof,
	}, nil
}
