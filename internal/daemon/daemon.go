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

// Package daemon implements the PARAMS/LOCK single-instance discovery
// handshake: a singleton daemon writes its address and pid to a PARAMS file
// guarded by an exclusively-created LOCK file; a second launcher reads
// PARAMS and pings the running instance before deciding whether to attach
// to it or report that it is already running.
package daemon

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sadikovi/codesearchd/internal/codeserr"
)

const (
	// LockFile is created with O_CREAT|O_EXCL so only one process can ever
	// hold it at a time.
	LockFile = "LOCK"
	// ParamsFile carries the running instance's connection details.
	ParamsFile = "PARAMS"
)

// ErrAlreadyRunning is returned by Acquire when another process holds the
// lock and its /ping check (supplied by the caller) succeeds.
var ErrAlreadyRunning = errors.New("daemon: an instance is already running")

// Params is the PARAMS file's contents: enough for a second launcher to
// reach the running daemon and tell it apart from itself in logs.
type Params struct {
	Address    string `json:"address"`
	PID        int    `json:"pid"`
	InstanceID string `json:"instance_id"`
}

// Handle represents a held daemon lock. Release removes both files.
type Handle struct {
	dir  string
	lock *os.File
}

// Ping is supplied by the caller (it owns the HTTP client) to check whether
// the address in an existing PARAMS file is still alive.
type Ping func(address string) bool

// Acquire attempts to become the singleton daemon for dir. On success it
// writes PARAMS and returns a Handle the caller must Release on shutdown.
//
// If another process already holds the lock, ping is called with its
// address. A live instance makes Acquire return (nil, ErrAlreadyRunning)
// together with its Params, so the caller can attach to it instead of
// starting its own; a dead instance (ping returns false) is treated as a
// stale lock, which is removed so Acquire can retry exactly once.
func Acquire(dir, address string, ping Ping) (*Handle, *Params, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, codeserr.Wrap(codeserr.IO, err, "failed to create daemon directory")
	}

	h, err := tryAcquire(dir, address)
	if err == nil {
		return h, nil, nil
	}
	if !os.IsExist(err) {
		return nil, nil, codeserr.Wrap(codeserr.IO, err, "failed to acquire daemon lock")
	}

	existing, rerr := ReadParams(dir)
	if rerr != nil {
		return nil, nil, rerr
	}
	if ping != nil && ping(existing.Address) {
		return nil, existing, ErrAlreadyRunning
	}

	// Stale lock: the previous holder is unreachable. Clear it and retry
	// once; a concurrent third process winning this race is reported as a
	// plain IO error rather than looping forever.
	_ = os.Remove(filepath.Join(dir, LockFile))
	_ = os.Remove(filepath.Join(dir, ParamsFile))

	h, err = tryAcquire(dir, address)
	if err != nil {
		return nil, nil, codeserr.Wrap(codeserr.IO, err, "failed to acquire daemon lock after clearing stale instance")
	}
	return h, nil, nil
}

func tryAcquire(dir, address string) (*Handle, error) {
	lockPath := filepath.Join(dir, LockFile)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	params := Params{Address: address, PID: os.Getpid(), InstanceID: uuid.New().String()}
	data, err := json.Marshal(params)
	if err != nil {
		f.Close()
		os.Remove(lockPath)
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ParamsFile), data, 0o644); err != nil {
		f.Close()
		os.Remove(lockPath)
		return nil, err
	}
	return &Handle{dir: dir, lock: f}, nil
}

// Release closes and removes the lock, and removes the PARAMS file.
func (h *Handle) Release() error {
	if err := h.lock.Close(); err != nil {
		return codeserr.Wrap(codeserr.IO, err, "failed to close daemon lock")
	}
	_ = os.Remove(filepath.Join(h.dir, LockFile))
	_ = os.Remove(filepath.Join(h.dir, ParamsFile))
	return nil
}

// ReadParams loads the PARAMS file from dir.
func ReadParams(dir string) (*Params, error) {
	data, err := os.ReadFile(filepath.Join(dir, ParamsFile))
	if err != nil {
		return nil, codeserr.Wrap(codeserr.IO, err, "failed to read params file")
	}
	var p Params
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, codeserr.Wrap(codeserr.Serde, err, "failed to decode params file")
	}
	return &p, nil
}
