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

// Package pool implements a fixed-size worker pool over a single job queue,
// used by the refresher and the cached-path scanner. N workers dequeue from
// one channel; shutdown enqueues a termination sentinel once per worker and
// joins them all.
package pool

import (
	"fmt"
	"sync"

	"github.com/sadikovi/codesearchd/internal/codeserr"
)

// DefaultSize is the pool size used when nothing else is configured.
const DefaultSize = 4

type job struct {
	fn        func()
	terminate bool
}

// Pool is a fixed-size set of worker goroutines draining a shared job
// queue. The zero value is not usable; construct with New.
type Pool struct {
	jobs chan job
	size int
	wg   sync.WaitGroup

	mu    sync.Mutex
	panic error
}

// New starts a Pool of size workers. size must be positive.
func New(size int) *Pool {
	if size <= 0 {
		panic("pool: size must be positive")
	}
	p := &Pool{
		jobs: make(chan job, size*2),
		size: size,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Execute enqueues fn to run on the next free worker. It does not block on
// fn's completion.
func (p *Pool) Execute(fn func()) {
	p.jobs <- job{fn: fn}
}

// Close enqueues one termination sentinel per worker and blocks until every
// worker has drained its remaining queue and exited. If any worker's job
// panicked, Close returns the first such panic wrapped as
// codeserr.Internal — mirroring "panics caught at join".
func (p *Pool) Close() error {
	for i := 0; i < p.size; i++ {
		p.jobs <- job{terminate: true}
	}
	p.wg.Wait()
	return p.panic
}

func (p *Pool) run() {
	defer p.wg.Done()
	for j := range p.jobs {
		if j.terminate {
			return
		}
		p.runSafely(j.fn)
	}
}

func (p *Pool) runSafely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.mu.Lock()
			if p.panic == nil {
				p.panic = codeserr.New(codeserr.Internal, fmt.Sprintf("worker pool job panicked: %v", r))
			}
			p.mu.Unlock()
		}
	}()
	fn()
}
