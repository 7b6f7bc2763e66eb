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

package cache

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OverrideFile is the optional, root-level YAML file a project can drop in
// to override the refresher's default ignore list and extension set for
// that root. It is read once, when the root is Register-ed.
const OverrideFile = ".codesearchd.yml"

// RootOverride is the shape of OverrideFile.
type RootOverride struct {
	// Ignore is a list of extra gitignore-style glob patterns, layered on
	// top of .codesearchignore (see internal/ignore.Matcher.AddPatterns).
	Ignore []string `yaml:"ignore"`
	// Extensions, if non-empty, replaces the refresher's default supported
	// set for this root with exactly these extensions.
	Extensions []string `yaml:"extensions"`
}

// loadRootOverride reads root's OverrideFile, if present. A missing file is
// not an error; it yields (nil, nil). A malformed file is returned as an
// error; Register discards it and treats the root as having no override
// rather than failing registration outright.
func loadRootOverride(root string) (*RootOverride, error) {
	data, err := os.ReadFile(filepath.Join(root, OverrideFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var override RootOverride
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, err
	}
	return &override, nil
}
