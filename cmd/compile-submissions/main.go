// Package main implements the compile-submissions CLI: a batch driver that
// walks a directory of submission tarballs, posts each one to a running
// submission-compile service, and records the outcome in the scorecard
// database for later harvesting.
//
// Usage:
//
//	compile-submissions compile <dir> [--service URL --threads N --auto-detect]
//	compile-submissions harvest <dir> [--score PATH --purge-failed]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogotex/submission-compile/internal/platform/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	root := &cobra.Command{
		Use:           "compile-submissions",
		Short:         "Batch-drive the submission-compile service over a directory of source bundles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCompileCmd())
	root.AddCommand(newHarvestCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
