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

// Package engine drives the inference phases end to end: ingest every
// translation unit, link the per-unit state into a whole-program view, solve
// the constraint system, and hand the final assignment to the rewriter.
// Phases run strictly in that order on the caller's goroutine; nothing here
// spawns work of its own.
package engine

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/checkedc/go-3c/pkg/ast"
	"github.com/checkedc/go-3c/pkg/constraints"
	"github.com/checkedc/go-3c/pkg/program"
	"github.com/checkedc/go-3c/pkg/source"
	"github.com/checkedc/go-3c/pkg/util"
)

// Options carries the full tool configuration.
type Options struct {
	// Directory under which files may be rewritten.
	BaseDir string
	// Directory converted files are written to; empty rewrites in place.
	OutputDir string
	// Postfix appended to converted file names; "-" rewrites in place.
	OutputPostfix string
	// Infer counted-array and null-terminated-array types, not just _Ptr.
	AllTypes bool
	// Mark checked regions in the rewritten output.
	AddCheckedRegions bool
	// Treat variadic functions soundly instead of wilding them.
	HandleVarArgs bool
	// Propagate pointer-type information through interop annotations.
	EnableItypeProp bool
	// Emit a warning for each root cause of wildness in writable source.
	WarnRootCause bool
	// Emit a warning for every root cause, including external ones.
	WarnAllRootCause bool
	// File to write the constraints document to.
	ConstraintOutput string
	// File to write the statistics document to.
	StatsOutput string
	// File to write wild-pointer root-cause statistics to.
	WildPtrStatsOutput string
	// File to write per-pointer root-cause statistics to.
	PerPtrStatsOutput string
	// Extra allocator names treated like malloc.
	UseMalloc []string
	// Write the statistics documents after solving.
	DumpStats bool
	// Write the constraints document after each phase.
	DumpIntermediate bool
	// Increase logging verbosity.
	Verbose bool
	// Tolerate input sources outside the base directory.
	AllowSourcesOutsideBaseDir bool
	// Tolerate inference results in unwritable files.
	AllowUnwritableChanges bool
	// Continue past rewriter failures.
	AllowRewriteFailures bool
	// Re-check the solved system against its own constraints.
	Verify bool
}

// Frontend supplies parsed translation units.  The C parser collaborator
// implements this; tests implement it over hand-built declarations.
type Frontend interface {
	TranslationUnits() ([]*ast.TranslationUnit, error)
}

// Rewriter consumes the final assignment and edits source text back to disk.
type Rewriter interface {
	WriteAll(info *program.Info, opts *Options) error
}

// NopRewriter discards the rewrite; used in tests and dry runs.
type NopRewriter struct{}

// WriteAll does nothing.
func (NopRewriter) WriteAll(*program.Info, *Options) error {
	return nil
}

// Engine owns the inference state and runs the phases.
type Engine struct {
	opts  Options
	front Frontend
	rw    Rewriter
	info  *program.Info
	scope source.WriteScope
	tus   []*ast.TranslationUnit
}

// New validates the configuration and constructs an engine.
func New(opts Options, front Frontend, rw Rewriter) (*Engine, error) {
	scope, err := source.NewWriteScope(opts.BaseDir, opts.AllowSourcesOutsideBaseDir)
	if err != nil {
		return nil, err
	}
	//
	if rw == nil {
		rw = NopRewriter{}
	}
	//
	cfg := program.Config{
		HandleVarArgs:   opts.HandleVarArgs,
		EnableItypeProp: opts.EnableItypeProp,
		Allocators:      opts.UseMalloc,
	}
	//
	return &Engine{opts, front, rw, program.NewInfo(scope, cfg), scope, nil}, nil
}

// Info exposes the program tables, e.g. for the rewriter or for reporting.
func (p *Engine) Info() *program.Info {
	return p.info
}

// BuildInitialConstraints ingests every translation unit, installing one
// constraint variable per declaration.
func (p *Engine) BuildInitialConstraints() error {
	perf := util.NewPerfStats()
	//
	tus, err := p.front.TranslationUnits()
	if err != nil {
		return err
	}
	//
	p.tus = tus
	//
	for _, tu := range tus {
		if err := p.ingest(tu); err != nil {
			return err
		}
	}
	//
	perf.Log("building initial constraints")
	//
	return p.dumpIntermediate("build")
}

func (p *Engine) ingest(tu *ast.TranslationUnit) error {
	if !p.scope.CanWrite(tu.File) && !p.opts.AllowSourcesOutsideBaseDir {
		return fmt.Errorf("source file %s lies outside the base directory %s", tu.File, p.scope.BaseDir())
	}
	//
	log.Debugf("ingesting %s (%d decls)", tu.File, len(tu.Decls))
	//
	p.info.EnterCompilationUnit(tu.File)
	defer p.info.ExitCompilationUnit()
	//
	var failed error

	tu.Walk(func(d ast.Decl) {
		if failed == nil {
			failed = p.info.AddVariable(d)
		}
	})
	//
	return failed
}

// Link unifies the per-unit state into the whole-program view.
func (p *Engine) Link() error {
	perf := util.NewPerfStats()
	//
	if err := p.info.Link(); err != nil {
		return err
	}
	//
	perf.Log("linking")
	//
	return p.dumpIntermediate("link")
}

// SolveConstraints computes the fixed point and derives the root-cause
// state.
func (p *Engine) SolveConstraints() error {
	perf := util.NewPerfStats()
	//
	cs := p.info.Constraints()
	cs.Solve()
	p.info.ComputeInterimConstraintState()
	perf.Log("solving constraints")
	//
	if p.opts.Verify {
		if err := p.verifySolution(); err != nil {
			return err
		}
	}
	//
	return p.dumpIntermediate("solve")
}

// WriteAllConvertedFilesToDisk hands the solved program to the rewriter.
func (p *Engine) WriteAllConvertedFilesToDisk() error {
	perf := util.NewPerfStats()
	//
	err := p.rw.WriteAll(p.info, &p.opts)
	if err != nil && p.opts.AllowRewriteFailures {
		log.Infof("ignoring rewrite failure: %v", err)
		err = nil
	}
	//
	perf.Log("rewriting")
	//
	return err
}

// verifySolution re-checks every checked ordering against the computed
// assignment; a violation is an internal invariant failure.
func (p *Engine) verifySolution() error {
	cs := p.info.Constraints()
	//
	for _, c := range cs.All() {
		geq, ok := c.(*constraints.Geq)
		if !ok || !geq.IsChecked() {
			continue
		}
		// A constant left side imposes no bound.
		if _, isVar := geq.LHS().(*constraints.VarAtom); !isVar {
			continue
		}
		// An unbounded right side is the virtual bottom and bounds nothing.
		if v, isVar := geq.RHS().(*constraints.VarAtom); isVar && !cs.IsBounded(v) {
			continue
		}
		//
		lhs := cs.Assignment(geq.LHS()).Kind()
		rhs := cs.Assignment(geq.RHS()).Kind()
		//
		if !rhs.Leq(lhs) {
			return fmt.Errorf("internal invariant violation: %s solved to %s >= %s", geq, lhs, rhs)
		}
	}
	//
	return nil
}

func (p *Engine) dumpIntermediate(phase string) error {
	if !p.opts.DumpIntermediate || p.opts.ConstraintOutput == "" {
		return nil
	}
	//
	name := fmt.Sprintf("%s.%s", p.opts.ConstraintOutput, phase)
	//
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	//
	return p.info.WriteJSON(f)
}
