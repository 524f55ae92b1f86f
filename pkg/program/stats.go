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
package program

import (
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"

	"github.com/checkedc/go-3c/pkg/constraints"
)

// FileConstraintStats counts the qualifier outcomes of one file.
type FileConstraintStats struct {
	Constraints int `json:"constraints"`
	Ptr         int `json:"ptr"`
	NTArr       int `json:"ntarr"`
	Arr         int `json:"arr"`
	Wild        int `json:"wild"`
}

// SummaryStats totals the qualifier outcomes over all files.
type SummaryStats struct {
	TotalConstraints int `json:"TotalConstraints"`
	TotalPtrs        int `json:"TotalPtrs"`
	TotalNTArr       int `json:"TotalNTArr"`
	TotalArr         int `json:"TotalArr"`
	TotalWild        int `json:"TotalWild"`
}

// ConstraintStats is the per-run statistics document body.
type ConstraintStats struct {
	Individual []map[string]FileConstraintStats `json:"Individual,omitempty"`
	Summary    SummaryStats                     `json:"Summary"`
}

type statsBody struct {
	ConstraintStats ConstraintStats `json:"ConstraintStats"`
}

type statsDoc struct {
	Stats statsBody `json:"Stats"`
}

// Stats aggregates qualifier outcomes per writable file over all valid
// declarations.
func (p *Info) Stats(onlySummary bool) ConstraintStats {
	perFile := make(map[string]*FileConstraintStats)
	//
	var summary SummaryStats
	//
	for loc, cv := range p.variables {
		file := loc.File()
		//
		if !p.scope.CanWrite(file) || !cv.IsForValidDecl() {
			continue
		}

		fs, ok := perFile[file]
		if !ok {
			fs = &FileConstraintStats{}
			perFile[file] = fs
		}

		for _, a := range cv.Atoms() {
			fs.Constraints++
			//
			switch p.cs.Assignment(a).Kind() {
			case constraints.Ptr:
				fs.Ptr++
			case constraints.NTArr:
				fs.NTArr++
			case constraints.Arr:
				fs.Arr++
			case constraints.Wild:
				fs.Wild++
			}
		}
	}
	//
	stats := ConstraintStats{}
	//
	for _, file := range sortedKeys(perFile) {
		fs := perFile[file]
		summary.TotalConstraints += fs.Constraints
		summary.TotalPtrs += fs.Ptr
		summary.TotalNTArr += fs.NTArr
		summary.TotalArr += fs.Arr
		summary.TotalWild += fs.Wild
		//
		if !onlySummary {
			stats.Individual = append(stats.Individual,
				map[string]FileConstraintStats{file: *fs})
		}
	}
	//
	stats.Summary = summary
	//
	return stats
}

// PrintStats writes the statistics document, either as the pipe-separated
// plain format or as JSON.
func (p *Info) PrintStats(w io.Writer, onlySummary bool, jsonFormat bool) error {
	stats := p.Stats(onlySummary)
	//
	if jsonFormat {
		bytes, err := json.Marshal(statsDoc{statsBody{stats}})
		if err != nil {
			return err
		}

		_, err = w.Write(bytes)
		//
		return err
	}
	//
	if !onlySummary {
		fmt.Fprintf(w, "Enable itype propagation:%v\n", p.cfg.EnableItypeProp)
		fmt.Fprintf(w, "Sound handling of var args functions:%v\n", p.cfg.HandleVarArgs)
		fmt.Fprintf(w, "file|#constraints|#ptr|#ntarr|#arr|#wild\n")
		//
		for _, entry := range stats.Individual {
			for file, fs := range entry {
				fmt.Fprintf(w, "%s|%d|%d|%d|%d|%d\n",
					file, fs.Constraints, fs.Ptr, fs.NTArr, fs.Arr, fs.Wild)
			}
		}
	}
	//
	fmt.Fprintf(w, "Summary\nTotalConstraints|TotalPtrs|TotalNTArr|TotalArr|TotalWild\n")
	fmt.Fprintf(w, "%d|%d|%d|%d|%d\n",
		stats.Summary.TotalConstraints, stats.Summary.TotalPtrs,
		stats.Summary.TotalNTArr, stats.Summary.TotalArr, stats.Summary.TotalWild)
	//
	return nil
}
