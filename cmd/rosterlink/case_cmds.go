package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ehr/rosterlink/internal/domain/casestore"
	"github.com/ehr/rosterlink/internal/domain/nursing"
	"github.com/ehr/rosterlink/internal/domain/roster"
	"github.com/ehr/rosterlink/internal/platform/reporting"
	"github.com/ehr/rosterlink/pkg/pagination"
)

func addIdentityFlags(cmd *cobra.Command) {
	cmd.Flags().String("mother-id", "", "Mother_ID of the case record")
	cmd.Flags().String("first", "", "Child first name")
	cmd.Flags().String("last", "", "Child last name")
	cmd.Flags().String("dob", "", "Child date of birth")
}

// identityFromFlags reads the identity flags. The date is normalized so any
// common spelling finds the stored YYYY-MM-DD value.
func identityFromFlags(cmd *cobra.Command) (roster.Identity, error) {
	var id roster.Identity
	id.MotherID, _ = cmd.Flags().GetString("mother-id")
	id.ChildFirstName, _ = cmd.Flags().GetString("first")
	id.ChildLastName, _ = cmd.Flags().GetString("last")
	id.ChildDOB, _ = cmd.Flags().GetString("dob")
	if strings.TrimSpace(id.ChildFirstName) == "" || strings.TrimSpace(id.ChildLastName) == "" || strings.TrimSpace(id.ChildDOB) == "" {
		return id, fmt.Errorf("--first, --last and --dob are required")
	}
	id.ChildDOB = normalizeDOB(id.ChildDOB)
	return id, nil
}

func normalizeDOB(s string) string {
	if iso, ok := roster.NormalizeDate(s); ok {
		return iso
	}
	return strings.TrimSpace(s)
}

func pageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, "Records per page (default PAGE_SIZE)")
	cmd.Flags().Int("offset", 0, "Records to skip")
	cmd.Flags().Bool("wide", false, "Show every column")
}

func (a *app) pageParams(cmd *cobra.Command) pagination.Params {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	return pagination.New(limit, offset, a.cfg.PageSize)
}

func findCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Show one case record by identity or by \"First Last\" name and date of birth",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			s, err := a.store(ctx)
			if err != nil {
				return err
			}

			var (
				rec   *roster.Record
				found bool
			)
			if name, _ := cmd.Flags().GetString("name"); name != "" {
				dob, _ := cmd.Flags().GetString("dob")
				rec, found = s.FindByName(name, normalizeDOB(dob))
			} else {
				id, err := identityFromFlags(cmd)
				if err != nil {
					return err
				}
				rec, found = s.Find(id)
			}
			if !found {
				return fmt.Errorf("no matching case record")
			}
			a.printRecord(rec)
			return nil
		}),
	}
	addIdentityFlags(cmd)
	cmd.Flags().String("name", "", "Child display name, \"First Last\" (used with --dob)")
	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find case records whose child first or last name contains query",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			hits, err := s.Search(args[0])
			if err != nil {
				return err
			}
			page, resp := pagination.Page(hits, a.pageParams(cmd))
			wide, _ := cmd.Flags().GetBool("wide")
			if len(page) > 0 {
				a.printRecords(pickColumns(s.Columns(), wide), page)
			}
			a.printPage(resp, len(page))
			return nil
		}),
	}
	pageFlags(cmd)
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Page through the matched case records",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			page, resp, err := s.List(a.pageParams(cmd))
			if err != nil {
				return err
			}
			wide, _ := cmd.Flags().GetBool("wide")
			if len(page) > 0 {
				a.printRecords(pickColumns(s.Columns(), wide), page)
			}
			a.printPage(resp, len(page))
			return nil
		}),
	}
	pageFlags(cmd)
	return cmd
}

func assignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a nurse to one case record and save",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := identityFromFlags(cmd)
			if err != nil {
				return err
			}
			nurse, _ := cmd.Flags().GetString("nurse")
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			if err := s.AssignNurse(ctx, id, nurse); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Assigned %s to %s %s\n", displayNurse(nurse), id.ChildFirstName, id.ChildLastName)
			return nil
		}),
	}
	addIdentityFlags(cmd)
	cmd.Flags().String("nurse", "", "Nurse name (blank clears the assignment)")
	return cmd
}

func displayNurse(n string) string {
	if strings.TrimSpace(n) == "" {
		return roster.UnassignedNurse
	}
	return strings.TrimSpace(n)
}

func batchAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch-assign",
		Short: "Assign a nurse to every case record in a city, state and/or ZIP",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			nurse, _ := cmd.Flags().GetString("nurse")
			var f casestore.Filter
			f.City, _ = cmd.Flags().GetString("city")
			f.State, _ = cmd.Flags().GetString("state")
			f.ZIP, _ = cmd.Flags().GetString("zip")
			all, _ := cmd.Flags().GetBool("all")
			if f.IsEmpty() && !all {
				return fmt.Errorf("give --city, --state or --zip, or --all to assign every record")
			}

			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			n, err := s.BatchAssignNurse(ctx, nurse, f)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(a.out, "No case records matched the filter.")
				return nil
			}
			fmt.Fprintf(a.out, "Assigned %s to %s case record(s)\n", displayNurse(nurse), humanize.Comma(int64(n)))
			return nil
		}),
	}
	cmd.Flags().String("nurse", "", "Nurse name (blank clears the assignment)")
	cmd.Flags().String("city", "", "City filter")
	cmd.Flags().String("state", "", "State filter")
	cmd.Flags().String("zip", "", "ZIP filter")
	cmd.Flags().Bool("all", false, "Allow an empty filter that matches every record")
	return cmd
}

// partitionLen counts a side partition, treating a missing one as empty.
func (a *app) partitionLen(ctx context.Context, partition string) (int, error) {
	t, err := a.repo.Load(ctx, partition)
	if errors.Is(err, roster.ErrNoData) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return t.Len(), nil
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Statistical overview of the matched roster",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			matched, err := s.Table()
			if err != nil {
				return err
			}

			if id, _ := cmd.Flags().GetString("measure"); id != "" {
				m := reporting.FindMeasure(id)
				if m == nil {
					return fmt.Errorf("unknown measure %q", id)
				}
				rep := reporting.Evaluate(m, matched, time.Now())
				fmt.Fprintln(a.out, rep.MeasureName)
				a.printCounts(m.Column, rep.Results)
				return nil
			}

			unmatched, err := a.partitionLen(ctx, roster.PartitionUnmatched)
			if err != nil {
				return err
			}
			dups, err := a.partitionLen(ctx, roster.PartitionDuplicates)
			if err != nil {
				return err
			}
			a.printReport(reporting.Build(matched, unmatched, dups, time.Now()))
			return nil
		}),
	}
	cmd.Flags().String("measure", "", "Evaluate one measure (children-per-town, children-per-state, nurse-workload)")
	return cmd
}

func (a *app) printCounts(label string, counts []reporting.Count) {
	tw := newTable(a.out, label, "Children")
	for _, c := range counts {
		tw.Append([]string{c.Value, humanize.Comma(int64(c.Count))})
	}
	tw.Render()
}

func (a *app) printReport(rep *reporting.Report) {
	s := rep.Summary
	fmt.Fprintf(a.out, "Total children:  %s\n", humanize.Comma(int64(s.Matched)))
	fmt.Fprintf(a.out, "Assigned:        %s (%.1f%%)\n", humanize.Comma(int64(s.Assigned)), rep.AssignedPercent)
	fmt.Fprintf(a.out, "Unassigned:      %s (%.1f%%)\n", humanize.Comma(int64(rep.Unassigned)), rep.UnassignedPercent)
	fmt.Fprintf(a.out, "Unmatched rows:  %s\n", humanize.Comma(int64(s.Unmatched)))
	fmt.Fprintf(a.out, "Duplicate rows:  %s\n", humanize.Comma(int64(s.Duplicates)))
	fmt.Fprintf(a.out, "Nurses:          %d\n", rep.DistinctNurses)
	if ages := rep.Ages; ages != nil {
		fmt.Fprintf(a.out, "Average age:     %.1f years\n", ages.AverageYears)
		fmt.Fprintf(a.out, "Youngest:        %s %s (%s)\n", ages.Youngest.FirstName, ages.Youngest.LastName, ages.Youngest.DOB)
		fmt.Fprintf(a.out, "Oldest:          %s %s (%s)\n", ages.Oldest.FirstName, ages.Oldest.LastName, ages.Oldest.DOB)
	}
	if len(rep.Towns) > 0 {
		fmt.Fprintln(a.out, "Children per town:")
		a.printCounts("Town", rep.Towns)
	}
	if len(rep.Workload) > 0 {
		fmt.Fprintln(a.out, "Nurse workload:")
		a.printCounts("Nurse", rep.Workload)
	}
}

func visitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visit",
		Short: "Log and review nurse visits",
	}

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Record a visit to a case record",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := identityFromFlags(cmd)
			if err != nil {
				return err
			}
			nurse, _ := cmd.Flags().GetString("nurse")
			var at time.Time
			if raw, _ := cmd.Flags().GetString("at"); raw != "" {
				at, err = nursing.ParseVisitTime(raw)
				if err != nil {
					return err
				}
			}

			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			rec, ok := s.Find(id)
			if !ok {
				return fmt.Errorf("no matching case record")
			}
			v, err := a.visits().LogVisit(ctx, rec, nurse, at)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged visit %d by %s at %s\n", v.ID, v.NurseName, v.TimeString())
			return nil
		}),
	}
	addIdentityFlags(logCmd)
	logCmd.Flags().String("nurse", "", "Visiting nurse (default: the assigned nurse)")
	logCmd.Flags().String("at", "", "Visit time YYYY-MM-DD HH:MM:SS (default now)")
	cmd.AddCommand(logCmd)

	visitListCmd := &cobra.Command{
		Use:   "list",
		Short: "List visits for a case record or a nurse",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			var (
				visits []*nursing.Visit
				err    error
			)
			if nurse, _ := cmd.Flags().GetString("nurse"); nurse != "" {
				visits, err = a.visits().ListByNurse(ctx, nurse)
			} else {
				var id roster.Identity
				id, err = identityFromFlags(cmd)
				if err != nil {
					return err
				}
				visits, err = a.visits().ListVisits(ctx, id)
			}
			if err != nil {
				return err
			}
			if len(visits) == 0 {
				fmt.Fprintln(a.out, "No visits logged.")
				return nil
			}
			tw := newTable(a.out, "Visit", "Child", "Nurse", "Time")
			for _, v := range visits {
				tw.Append([]string{
					fmt.Sprint(v.ID),
					v.ChildFirstName + " " + v.ChildLastName,
					v.NurseName,
					v.TimeString(),
				})
			}
			tw.Render()
			return nil
		}),
	}
	addIdentityFlags(visitListCmd)
	visitListCmd.Flags().String("nurse", "", "List every visit by this nurse instead")
	cmd.AddCommand(visitListCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Visits per nurse, busiest first",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			counts, err := a.visits().VisitCounts(ctx)
			if err != nil {
				return err
			}
			if len(counts) == 0 {
				fmt.Fprintln(a.out, "No visits logged.")
				return nil
			}
			tw := newTable(a.out, "Nurse", "Visits", "Last visit")
			for _, c := range counts {
				tw.Append([]string{c.Nurse, fmt.Sprint(c.Visits), humanize.Time(c.Last)})
			}
			tw.Render()
			return nil
		}),
	})

	return cmd
}
