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
package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/checkedc/go-3c/pkg/engine"
)

const (
	ansiYellow = "\033[33m"
	ansiBold   = "\033[1m"
	ansiReset  = "\033[0m"
)

// printRootCauseWarnings reports each directly-wilded pointer with its reason
// and how many pointers it drags wild.  Restricted to atoms in writable
// source unless all is set.
func printRootCauseWarnings(e *engine.Engine, all bool) {
	st := e.Info().State()
	colour := term.IsTerminal(int(os.Stderr.Fd()))
	//
	keys := st.AllWildAtoms.Sorted()
	//
	for _, key := range keys {
		if !all && !st.InSrcWildAtoms.Contains(key) {
			continue
		}

		info := st.RootWildAtomsWithReason[key]
		affected := len(st.SrcWMap[key])
		//
		msg := fmt.Sprintf("root cause of %d unchecked pointer(s): %s", affected, info.Reason)
		if info.Loc.Valid() {
			msg = fmt.Sprintf("%s: %s", info.Loc, msg)
		}
		//
		if colour {
			fmt.Fprintf(os.Stderr, "%s%swarning:%s %s\n", ansiBold, ansiYellow, ansiReset, msg)
		} else {
			fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
		}
	}
}
