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
package engine

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/segmentio/encoding/json"
)

// rootCauseEntry is one directly-wilded atom in the wild-pointer statistics
// document.
type rootCauseEntry struct {
	Atom          string `json:"Atom"`
	Reason        string `json:"Reason,omitempty"`
	Location      string `json:"Location,omitempty"`
	AffectedCount int    `json:"AffectedCount"`
}

type wildPtrStatsDoc struct {
	TotalWildAtoms  int              `json:"TotalWildAtoms"`
	InSrcWildAtoms  int              `json:"InSrcWildAtoms"`
	TransitiveAtoms int              `json:"TransitiveAtoms"`
	RootCauses      []rootCauseEntry `json:"RootCauses"`
}

// perPtrEntry is one affected pointer in the per-pointer statistics
// document.
type perPtrEntry struct {
	Pointer    string   `json:"Pointer"`
	RootCauses []string `json:"RootCauses"`
}

// DumpAll writes whichever output documents the options request.  Called by
// the driver after solving.
func (p *Engine) DumpAll() error {
	if p.opts.ConstraintOutput != "" && !p.opts.DumpIntermediate {
		if err := p.writeFile(p.opts.ConstraintOutput, p.info.WriteJSON); err != nil {
			return err
		}
	}

	if !p.opts.DumpStats {
		return nil
	}

	if p.opts.StatsOutput != "" {
		err := p.writeFile(p.opts.StatsOutput, func(w io.Writer) error {
			return p.info.PrintStats(w, false, true)
		})
		if err != nil {
			return err
		}
	}

	if p.opts.WildPtrStatsOutput != "" {
		if err := p.writeFile(p.opts.WildPtrStatsOutput, p.writeWildPtrStats); err != nil {
			return err
		}
	}

	if p.opts.PerPtrStatsOutput != "" {
		if err := p.writeFile(p.opts.PerPtrStatsOutput, p.writePerPtrStats); err != nil {
			return err
		}
	}
	//
	return nil
}

func (p *Engine) writeWildPtrStats(w io.Writer) error {
	st := p.info.State()
	//
	doc := wildPtrStatsDoc{
		TotalWildAtoms:  len(st.AllWildAtoms),
		InSrcWildAtoms:  len(st.InSrcWildAtoms),
		TransitiveAtoms: len(st.TotalNonDirectWildAtoms),
	}
	//
	for _, key := range st.AllWildAtoms.Sorted() {
		entry := rootCauseEntry{
			Atom:          fmt.Sprintf("q_%d", key),
			AffectedCount: len(st.SrcWMap[key]),
		}
		//
		if info, ok := st.RootWildAtomsWithReason[key]; ok {
			entry.Reason = info.Reason

			if info.Loc.Valid() {
				entry.Location = info.Loc.String()
			}
		}
		//
		doc.RootCauses = append(doc.RootCauses, entry)
	}
	//
	bytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	//
	_, err = w.Write(bytes)
	//
	return err
}

func (p *Engine) writePerPtrStats(w io.Writer) error {
	st := p.info.State()
	//
	var entries []perPtrEntry

	for cv, causes := range st.PtrRCMap {
		entry := perPtrEntry{Pointer: cv.String()}
		//
		for _, key := range causes.Sorted() {
			entry.RootCauses = append(entry.RootCauses, fmt.Sprintf("q_%d", key))
		}
		//
		entries = append(entries, entry)
	}
	//
	sort.Slice(entries, func(i, j int) bool { return entries[i].Pointer < entries[j].Pointer })
	//
	bytes, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	//
	_, err = w.Write(bytes)
	//
	return err
}

func (p *Engine) writeFile(name string, write func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	//
	return write(f)
}
