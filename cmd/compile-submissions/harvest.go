package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gogotex/submission-compile/internal/outcome"
	"github.com/gogotex/submission-compile/internal/scorecard"
)

func newHarvestCmd() *cobra.Command {
	var scorePath string
	var purgeFailed bool

	cmd := &cobra.Command{
		Use:   "harvest <dir>",
		Short: "Re-scan a compile output directory and refresh the scorecard database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarvest(cmd.Context(), args[0], scorePath, purgeFailed)
		},
	}

	cmd.Flags().StringVar(&scorePath, "score", "./scorecard.db", "scorecard database to update")
	cmd.Flags().BoolVar(&purgeFailed, "purge-failed", false, "remove failed rows from the score table after harvesting")

	return cmd
}

// runHarvest walks dir for outcome-*.json files left behind by a prior
// `compile` run, upserts each into the scorecard, marks its source file
// touched, and optionally purges rows recorded as failed.
func runHarvest(ctx context.Context, dir, scorePath string, purgeFailed bool) error {
	db, err := scorecard.Open(scorePath)
	if err != nil {
		return fmt.Errorf("open scorecard: %w", err)
	}
	defer db.Close()

	var harvested int
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), "outcome-") || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var meta outcome.Metadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		source := filepath.Base(filepath.Dir(path))
		score := scorecard.Score{
			Source:  source,
			Outcome: string(meta.Status),
			PDF:     meta.PDFFile,
			Status:  statusCode(meta.Status),
			Success: meta.Status == outcome.StatusSuccess,
		}
		if err := db.UpsertScore(ctx, score); err != nil {
			return fmt.Errorf("upsert %s: %w", source, err)
		}
		if err := db.MarkTouched(ctx, source); err != nil {
			return fmt.Errorf("mark touched %s: %w", source, err)
		}
		harvested++
		return nil
	})
	if err != nil {
		return err
	}

	color.Green("harvested %d outcome records into %s", harvested, scorePath)

	if purgeFailed {
		n, err := db.PurgeFailed(ctx)
		if err != nil {
			return fmt.Errorf("purge failed rows: %w", err)
		}
		color.Yellow("purged %d failed rows", n)
	}

	return nil
}

func statusCode(s outcome.Status) int {
	if s == outcome.StatusSuccess {
		return 200
	}
	return 500
}
