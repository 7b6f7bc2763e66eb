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

// Package logging wires a single process-wide zap.Logger. Library code never
// builds its own logger — main obtains this one via Get() and passes it to
// the refresher, the search engine and the HTTP handlers, each of which
// falls back to a no-op logger when given nil.
package logging

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envLogFormat = "CODESEARCHD_LOG_FORMAT"

var (
	global     *zap.Logger
	globalOnce sync.Once
	instanceID string
)

// Init builds the process-wide logger for component and returns a sync
// function the caller should defer-call before exit. Calling Init more than
// once panics — it is meant to run exactly once, from main().
func Init(component string) (sync func() error) {
	if global != nil {
		panic("logging: Init called multiple times")
	}

	format := os.Getenv(envLogFormat)
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		panic("logging: failed to build logger: " + err.Error())
	}

	globalOnce.Do(func() {
		instanceID = uuid.New().String()
		global = logger.With(zap.String("component", component), zap.String("instance_id", instanceID))
	})
	return global.Sync
}

// Get returns the process-wide logger. It panics if called before Init — the
// same contract the teacher's log package uses, so a missing Init call fails
// loudly at first use rather than silently dropping log lines.
func Get() *zap.Logger {
	if global == nil {
		panic("logging: Get called before Init")
	}
	return global
}

// InstanceID returns the randomly generated id assigned to this process at
// Init time and attached to every log line as instance_id. The daemon's
// PARAMS file carries a separate id generated by internal/daemon.
func InstanceID() string {
	return instanceID
}
