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

// Package debugserver wires the operational endpoints (pprof, expvar,
// Prometheus metrics, a forced GC) into the daemon's HTTP mux, the way the
// teacher's webserver binaries do.
package debugserver

import (
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"runtime/debug"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CacheSummary is the subset of cache.Statistics the index page renders.
// Defined locally (rather than importing internal/cache) so this package
// stays a leaf the way the teacher's debugserver is.
type CacheSummary struct {
	MemoryUsed int64
	NumRoots   int
}

// AddHandlers registers the debug endpoints on pp. enablePprof gates the
// profiling endpoints, which are expensive enough that an operator should
// opt in explicitly. cacheSummary is polled each time the index page is
// rendered; pass nil if no cache is wired up.
func AddHandlers(pp *http.ServeMux, enablePprof bool, cacheSummary func() CacheSummary) {
	index := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
				<a href="vars">Vars</a><br>
				<a href="debug/pprof/">PProf</a><br>
				<a href="metrics">Metrics</a><br>
				<a href="cache/stats">Cache stats</a><br>
			`))
		if cacheSummary != nil {
			s := cacheSummary()
			_, _ = fmt.Fprintf(w, "<br>cache: %d root(s), %s used<br>\n",
				s.NumRoots, humanize.Bytes(uint64(s.MemoryUsed)))
		}
		_, _ = w.Write([]byte(`
				<br>
				<form method="post" action="gc" style="display: inline;"><input type="submit" value="GC"></form>
				<form method="post" action="freeosmemory" style="display: inline;"><input type="submit" value="Free OS Memory"></form>
			`))
	})
	pp.Handle("/debug", index)
	pp.Handle("/vars", expvar.Handler())
	pp.Handle("/gc", http.HandlerFunc(gcHandler))
	pp.Handle("/freeosmemory", http.HandlerFunc(freeOSMemoryHandler))
	if enablePprof {
		pp.Handle("/debug/pprof/", http.HandlerFunc(pprof.Index))
		pp.Handle("/debug/pprof/cmdline", http.HandlerFunc(pprof.Cmdline))
		pp.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))
		pp.Handle("/debug/pprof/symbol", http.HandlerFunc(pprof.Symbol))
		pp.Handle("/debug/pprof/trace", http.HandlerFunc(pprof.Trace))
	}
	pp.Handle("/metrics", promhttp.Handler())
}

func gcHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	runtime.GC()
	w.WriteHeader(http.StatusOK)
}

func freeOSMemoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	debug.FreeOSMemory()
	w.WriteHeader(http.StatusOK)
}
