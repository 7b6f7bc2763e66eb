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

// Command codesearchd runs the local code-search daemon: it acquires the
// single-instance lock in its cache directory, serves /search, /cache/*
// and the debug endpoints over HTTP, and runs the background snapshot
// refresher for any registered root.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/sadikovi/codesearchd/internal/api"
	"github.com/sadikovi/codesearchd/internal/cache"
	"github.com/sadikovi/codesearchd/internal/codeserr"
	"github.com/sadikovi/codesearchd/internal/config"
	"github.com/sadikovi/codesearchd/internal/daemon"
	"github.com/sadikovi/codesearchd/internal/debugserver"
	"github.com/sadikovi/codesearchd/internal/ext"
	"github.com/sadikovi/codesearchd/internal/logging"
	"github.com/sadikovi/codesearchd/internal/refresh"
	"github.com/sadikovi/codesearchd/internal/search"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	sync := logging.Init("codesearchd")
	defer sync() //nolint:errcheck
	logger := logging.Get()

	// Tune GOMAXPROCS to match the container's CPU quota, same as the
	// teacher's webserver binaries.
	if _, err := maxprocs.Set(maxprocs.Logger(func(f string, a ...any) { logger.Sugar().Debugf(f, a...) })); err != nil {
		logger.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}

	c := cache.New()
	refresher := refresh.New(c, ext.All(), cfg.MinBytesToCache, logger)
	defer refresher.Close() //nolint:errcheck

	engine := search.New(c, cfg.PoolSize, logger)

	ctx, cancelRefresh := context.WithCancel(context.Background())
	defer cancelRefresh()
	go refresher.PeriodicRefresh(ctx, cfg.PollInterval)

	handlers := api.NewHandlers(engine, c, logger)
	mux := http.NewServeMux()
	handlers.Register(mux)
	debugserver.AddHandlers(mux, cfg.EnablePprof, func() debugserver.CacheSummary {
		stats := c.Stats()
		return debugserver.CacheSummary{MemoryUsed: stats.MemoryUsed, NumRoots: len(stats.PerRoot)}
	})

	ping := func(address string) bool {
		client := http.Client{Timeout: 500 * time.Millisecond}
		resp, err := client.Get("http://" + address + "/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}

	handle, existing, err := daemon.Acquire(cfg.CacheDir, cfg.Listen, ping)
	if err != nil {
		if err == daemon.ErrAlreadyRunning {
			logger.Info("an instance is already running, exiting",
				zap.String("address", existing.Address), zap.Int("pid", existing.PID))
			os.Exit(0)
		}
		logger.Fatal("failed to acquire daemon lock", zap.Error(err))
	}
	defer handle.Release() //nolint:errcheck

	srv := &http.Server{Addr: cfg.Listen, Handler: mux}

	go func() {
		logger.Info("starting server", zap.String("address", cfg.Listen), zap.String("instance_id", logging.InstanceID()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ListenAndServe", zap.Error(err))
		}
	}()

	if err := shutdownOnSignal(srv); err != nil {
		logger.Fatal("shutdown", zap.Error(err))
	}
}

// shutdownOnSignal blocks until SIGINT or SIGTERM, then drains in-flight
// requests via srv.Shutdown. A second signal forces an immediate shutdown,
// matching the teacher's webserver binaries.
func shutdownOnSignal(srv *http.Server) error {
	c := make(chan os.Signal, 3)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	<-c

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c
		cancel()
	}()

	if err := srv.Shutdown(ctx); err != nil {
		return codeserr.Wrap(codeserr.Internal, err, "server shutdown")
	}
	return nil
}
