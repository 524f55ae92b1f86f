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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/checkedc/go-3c/pkg/engine"
)

// NewFrontend constructs the C parser front end over the given input files.
// The parser collaborator registers this at init time; without one, the
// convert command can only fail.
var NewFrontend func(files []string) (engine.Frontend, error)

// NewRewriter constructs the source rewriter.  Registered like NewFrontend;
// nil leaves the engine with a no-op rewriter.
var NewRewriter func() engine.Rewriter

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert [flags] source_files",
	Short: "Infer checked pointer qualifiers for a set of C sources.",
	Long: `Infer checked pointer qualifiers for a set of C translation units
	and rewrite them as a checked-pointer dialect.  Pointers for which no
	safe qualifier can be proven are left unchanged.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		opts := engine.Options{
			BaseDir:                    GetString(cmd, "base-dir"),
			OutputDir:                  GetString(cmd, "output-dir"),
			OutputPostfix:              GetString(cmd, "output-postfix"),
			AllTypes:                   GetFlag(cmd, "alltypes"),
			AddCheckedRegions:          GetFlag(cmd, "addcr"),
			HandleVarArgs:              GetFlag(cmd, "handle-varargs"),
			EnableItypeProp:            GetFlag(cmd, "enable-itypeprop"),
			WarnRootCause:              GetFlag(cmd, "warn-root-cause"),
			WarnAllRootCause:           GetFlag(cmd, "warn-all-root-cause"),
			ConstraintOutput:           GetString(cmd, "constraint-output"),
			StatsOutput:                GetString(cmd, "stats-output"),
			WildPtrStatsOutput:         GetString(cmd, "wildptrstats-output"),
			PerPtrStatsOutput:          GetString(cmd, "perptrstats-output"),
			UseMalloc:                  GetStringSlice(cmd, "use-malloc"),
			DumpStats:                  GetFlag(cmd, "dump-stats"),
			DumpIntermediate:           GetFlag(cmd, "dump-intermediate"),
			Verbose:                    GetFlag(cmd, "verbose"),
			AllowSourcesOutsideBaseDir: GetFlag(cmd, "allow-sources-outside-base-dir"),
			AllowUnwritableChanges:     GetFlag(cmd, "allow-unwritable-changes"),
			AllowRewriteFailures:       GetFlag(cmd, "allow-rewrite-failures"),
			Verify:                     GetFlag(cmd, "verify"),
		}
		//
		if err := runConvert(opts, args); err != nil {
			fmt.Fprintf(os.Stderr, "go-3c: %v\n", err)
			os.Exit(1)
		}
	},
}

func runConvert(opts engine.Options, files []string) error {
	if NewFrontend == nil {
		return fmt.Errorf("no C front end is registered in this build")
	}

	front, err := NewFrontend(files)
	if err != nil {
		return err
	}
	//
	var rw engine.Rewriter
	if NewRewriter != nil {
		rw = NewRewriter()
	}
	//
	e, err := engine.New(opts, front, rw)
	if err != nil {
		return err
	}
	//
	if err := e.BuildInitialConstraints(); err != nil {
		return err
	}

	if err := e.Link(); err != nil {
		return err
	}

	if err := e.SolveConstraints(); err != nil {
		return err
	}
	//
	if opts.WarnRootCause || opts.WarnAllRootCause {
		printRootCauseWarnings(e, opts.WarnAllRootCause)
	}

	if err := e.DumpAll(); err != nil {
		return err
	}
	//
	return e.WriteAllConvertedFilesToDisk()
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().String("base-dir", "", "directory under which files may be rewritten")
	convertCmd.Flags().String("output-dir", "", "directory converted files are written to")
	convertCmd.Flags().String("output-postfix", "-", "postfix appended to converted file names")
	convertCmd.Flags().Bool("alltypes", false, "infer array and null-terminated array types")
	convertCmd.Flags().Bool("addcr", false, "mark checked regions in the output")
	convertCmd.Flags().Bool("handle-varargs", false, "treat variadic functions soundly")
	convertCmd.Flags().Bool("enable-itypeprop", false, "propagate types through interop annotations")
	convertCmd.Flags().Bool("warn-root-cause", false, "warn about root causes of wild pointers in source")
	convertCmd.Flags().Bool("warn-all-root-cause", false, "warn about every root cause of wild pointers")
	convertCmd.Flags().String("constraint-output", "", "file to write the constraints document to")
	convertCmd.Flags().String("stats-output", "", "file to write the statistics document to")
	convertCmd.Flags().String("wildptrstats-output", "", "file to write wild pointer statistics to")
	convertCmd.Flags().String("perptrstats-output", "", "file to write per-pointer statistics to")
	convertCmd.Flags().StringSlice("use-malloc", nil, "extra allocator names treated like malloc")
	convertCmd.Flags().Bool("dump-stats", false, "write the statistics documents after solving")
	convertCmd.Flags().Bool("dump-intermediate", false, "write the constraints document after each phase")
	convertCmd.Flags().Bool("allow-sources-outside-base-dir", false, "tolerate sources outside the base directory")
	convertCmd.Flags().Bool("allow-unwritable-changes", false, "tolerate inference results in unwritable files")
	convertCmd.Flags().Bool("allow-rewrite-failures", false, "continue past rewriter failures")
	convertCmd.Flags().Bool("verify", false, "re-check the solved system against its constraints")
}
