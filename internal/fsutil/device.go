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

// Package fsutil holds small filesystem helpers shared by the live walk and
// the background refresher, both of which need to keep a directory walk
// from crossing onto a different mounted filesystem.
package fsutil

import "golang.org/x/sys/unix"

// DeviceOf returns the device id backing path.
func DeviceOf(path string) (dev uint64, ok bool) {
	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		return 0, false
	}
	return uint64(stat.Dev), true
}

// SameDevice reports whether path lives on the device identified by dev. If
// the device cannot be determined, the caller's walk does not filter the
// path out.
func SameDevice(path string, dev uint64) bool {
	got, ok := DeviceOf(path)
	if !ok {
		return true
	}
	return got == dev
}
