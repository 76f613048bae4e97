package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ehr/rosterlink/internal/domain/roster"
	"github.com/ehr/rosterlink/internal/platform/sandbox"
)

func combineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "combine <database-file> <medicaid-file>",
		Short: "Reconcile the two extracts and write the matched, unmatched and duplicate partitions",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			engine := a.engine()
			engine.SetProgress(func(stage roster.Stage, percent int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%3d%% %s\n", percent, stage)
			})
			for _, path := range args {
				info, err := engine.ReadSource(ctx, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Loaded %s extract %s (%s rows)\n",
					info.Kind, filepath.Base(info.Path), humanize.Comma(int64(info.Rows)))
			}

			res, err := engine.Combine(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Run %s\n", res.RunID)
			fmt.Fprintf(a.out, "Matched:    %s\n", humanize.Comma(int64(res.Matched.Len())))
			fmt.Fprintf(a.out, "Unmatched:  %s\n", humanize.Comma(int64(res.Unmatched.Len())))
			fmt.Fprintf(a.out, "Duplicates: %s in %d group(s)\n", humanize.Comma(int64(res.Duplicates.Len())), len(res.Groups))
			if res.Unmatchable > 0 {
				fmt.Fprintf(a.out, "%d row(s) had a missing mother name or unreadable date of birth\n", res.Unmatchable)
			}
			return nil
		}),
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load the combined data and describe the last combine run",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Loaded %s case record(s) from %s\n",
				humanize.Comma(int64(s.Len())), a.repo.Path(roster.PartitionMatched))

			m, err := a.engine().LastRun()
			if errors.Is(err, roster.ErrNoData) {
				return nil
			}
			if err != nil {
				a.logger.Warn().Err(err).Msg("could not read run manifest")
				return nil
			}
			fmt.Fprintf(a.out, "Last combine %s (%s), run %s\n",
				m.CreatedAt.Local().Format(time.DateTime), humanize.Time(m.CreatedAt), m.RunID)
			for _, src := range m.Sources {
				fmt.Fprintf(a.out, "  %-9s %s (%d rows)\n", src.Kind, src.Path, src.Rows)
			}
			fmt.Fprintf(a.out, "  matched %d, unmatched %d, duplicates %d\n",
				m.Partitions.Matched, m.Partitions.Unmatched, m.Partitions.Duplicates)
			return nil
		}),
	}
}

// partitionCmd prints a side partition written by combine.
func partitionCmd(use, partition, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			t, err := a.repo.Load(ctx, partition)
			if errors.Is(err, roster.ErrNoData) {
				return fmt.Errorf("no %s data, run combine first: %w", use, err)
			}
			if err != nil {
				return err
			}
			if t.Len() == 0 {
				fmt.Fprintf(a.out, "No %s records.\n", use)
				return nil
			}
			wide, _ := cmd.Flags().GetBool("wide")
			cols := pickColumns(t.Columns, wide)
			if t.HasColumn(roster.ColSource) && !wide {
				cols = append([]string{roster.ColSource}, cols...)
			}
			a.printRecords(cols, t.Rows)
			fmt.Fprintf(a.out, "%d %s record(s)\n", t.Len(), use)
			return nil
		}),
	}
	cmd.Flags().Bool("wide", false, "Show every column")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic pair of Database and Medicaid extracts",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			cfg := sandbox.DefaultConfig()
			cfg.Pairs, _ = cmd.Flags().GetInt("pairs")
			cfg.UnmatchedDatabase, _ = cmd.Flags().GetInt("unmatched-db")
			cfg.UnmatchedMedicaid, _ = cmd.Flags().GetInt("unmatched-medicaid")
			cfg.Duplicates, _ = cmd.Flags().GetInt("duplicates")
			cfg.Seed, _ = cmd.Flags().GetInt64("seed")
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = a.cfg.DataDir
			}

			extracts, res := sandbox.NewGenerator(cfg).Generate()
			dbPath, medPath, err := sandbox.WriteSheets(out, a.format, extracts)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Database extract: %s (%d rows)\n", dbPath, res.DatabaseRows)
			fmt.Fprintf(a.out, "Medicaid extract: %s (%d rows)\n", medPath, res.MedicaidRows)
			fmt.Fprintf(a.out, "Expect %d matched row(s) after combine\n", res.ExpectMatched)
			return nil
		}),
	}
	def := sandbox.DefaultConfig()
	cmd.Flags().Int("pairs", def.Pairs, "Mother/child pairs present in both extracts")
	cmd.Flags().Int("unmatched-db", def.UnmatchedDatabase, "Extra rows only in the Database extract")
	cmd.Flags().Int("unmatched-medicaid", def.UnmatchedMedicaid, "Extra rows only in the Medicaid extract")
	cmd.Flags().Int("duplicates", def.Duplicates, "Repeated Database rows")
	cmd.Flags().Int64("seed", 0, "Random seed (0 picks one)")
	cmd.Flags().String("out", "", "Output directory (default DATA_DIR)")
	return cmd
}
