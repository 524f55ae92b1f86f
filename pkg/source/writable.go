// Copyright The go-3c Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteScope determines which source files the tool is allowed to rewrite.
// Declarations in files outside the scope never receive checked qualifiers;
// they are constrained wild by the inference so that the rewriter leaves them
// untouched.
type WriteScope struct {
	// Absolute, cleaned base directory.  Files under this directory are
	// writable.
	baseDir string
	// Whether sources outside the base directory are tolerated at all (as
	// opposed to being a configuration error).
	allowOutside bool
}

// NewWriteScope constructs a write scope rooted at the given base directory.
// An empty base directory means the current working directory.  The directory
// must exist.
func NewWriteScope(baseDir string, allowOutside bool) (WriteScope, error) {
	if baseDir == "" {
		baseDir = "."
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return WriteScope{}, fmt.Errorf("invalid base directory %q: %w", baseDir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return WriteScope{}, fmt.Errorf("invalid base directory %q: %w", baseDir, err)
	} else if !info.IsDir() {
		return WriteScope{}, fmt.Errorf("base directory %q is not a directory", baseDir)
	}

	return WriteScope{abs, allowOutside}, nil
}

// UnrestrictedWriteScope constructs a scope under which every file is
// writable.  Useful for tests and for callers which perform their own
// filtering.
func UnrestrictedWriteScope() WriteScope {
	return WriteScope{"", true}
}

// BaseDir returns the base directory of this scope.
func (p WriteScope) BaseDir() string {
	return p.baseDir
}

// AllowsOutsideSources reports whether files outside the base directory are
// tolerated as inputs.
func (p WriteScope) AllowsOutsideSources() bool {
	return p.allowOutside
}

// CanWrite reports whether the given file lies inside the writable scope.
func (p WriteScope) CanWrite(file string) bool {
	if p.baseDir == "" {
		return true
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return false
	}
	// Determine whether abs sits below the base directory.
	rel, err := filepath.Rel(p.baseDir, abs)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
