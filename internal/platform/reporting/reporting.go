package reporting

import (
	"sort"
	"strings"
	"time"

	"github.com/ehr/rosterlink/internal/domain/roster"
)

// DefaultTopTowns is how many towns Build keeps in Report.Towns.
const DefaultTopTowns = 5

// MeasureDefinition names a grouped count over one column of the matched
// table. SkipUnassigned drops rows whose value reads as no nurse.
type MeasureDefinition struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description" yaml:"description"`
	Column         string `json:"column" yaml:"column"`
	SkipUnassigned bool   `json:"skip_unassigned,omitempty" yaml:"skip_unassigned,omitempty"`
}

// MeasureReport holds the result of evaluating a measure.
type MeasureReport struct {
	MeasureID   string    `json:"measure_id" yaml:"measure_id"`
	MeasureName string    `json:"measure_name" yaml:"measure_name"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Results     []Count   `json:"results" yaml:"results"`
}

// PredefinedMeasures is the list of available grouped counts.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "children-per-town",
		Name:        "Children per Town",
		Description: "Number of matched children grouped by City",
		Column:      roster.ColCity,
	},
	{
		ID:          "children-per-state",
		Name:        "Children per State",
		Description: "Number of matched children grouped by State",
		Column:      roster.ColState,
	},
	{
		ID:             "nurse-workload",
		Name:           "Nurse Workload",
		Description:    "Number of children assigned to each nurse",
		Column:         roster.ColAssignedNurse,
		SkipUnassigned: true,
	},
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Evaluate runs m over t.
func Evaluate(m *MeasureDefinition, t *roster.Table, now time.Time) *MeasureReport {
	var results []Count
	if m.SkipUnassigned {
		results = NurseWorkload(t)
	} else {
		results = GroupCounts(t, m.Column)
	}
	return &MeasureReport{
		MeasureID:   m.ID,
		MeasureName: m.Name,
		GeneratedAt: now,
		Results:     results,
	}
}

// Count is one group of a grouped count.
type Count struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// GroupCounts counts rows of t by the trimmed value of col, largest group
// first and ties broken by value. Blank values are not counted.
func GroupCounts(t *roster.Table, col string) []Count {
	if t == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, r := range t.Rows {
		v := strings.TrimSpace(r.Value(col))
		if v == "" {
			continue
		}
		counts[v]++
	}
	return sortCounts(counts)
}

func sortCounts(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for v, n := range counts {
		out = append(out, Count{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Top returns at most n leading entries of counts.
func Top(counts []Count, n int) []Count {
	if n < 0 || len(counts) <= n {
		return counts
	}
	return counts[:n]
}

// IsAssigned reports whether an Assigned_Nurse value names a nurse.
func IsAssigned(nurse string) bool {
	v := strings.TrimSpace(nurse)
	return v != "" && !strings.EqualFold(v, roster.UnassignedNurse) && !strings.EqualFold(v, "nan")
}

// NurseWorkload counts children per assigned nurse, busiest first.
func NurseWorkload(t *roster.Table) []Count {
	if t == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, r := range t.Rows {
		nurse := r.Value(roster.ColAssignedNurse)
		if IsAssigned(nurse) {
			counts[strings.TrimSpace(nurse)]++
		}
	}
	return sortCounts(counts)
}

// Summary carries the partition counts of a reconciliation.
type Summary struct {
	Matched    int `json:"matched" yaml:"matched"`
	Unmatched  int `json:"unmatched" yaml:"unmatched"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	Assigned   int `json:"assigned" yaml:"assigned"`
}

// Summarize counts matched and assigned rows alongside the given partition sizes.
func Summarize(matched *roster.Table, unmatchedCount, duplicateCount int) Summary {
	s := Summary{
		Matched:    matched.Len(),
		Unmatched:  unmatchedCount,
		Duplicates: duplicateCount,
	}
	if matched != nil {
		for _, r := range matched.Rows {
			if IsAssigned(r.Value(roster.ColAssignedNurse)) {
				s.Assigned++
			}
		}
	}
	return s
}

// Child identifies a child in age statistics.
type Child struct {
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
	DOB       string `json:"dob" yaml:"dob"`
}

// AgeStats describes the ages of children with a parseable date of birth.
type AgeStats struct {
	Count        int     `json:"count" yaml:"count"`
	AverageYears float64 `json:"average_years" yaml:"average_years"`
	Youngest     Child   `json:"youngest" yaml:"youngest"`
	Oldest       Child   `json:"oldest" yaml:"oldest"`
}

// AgeStatistics computes ages at now from Child_Date_of_Birth. A year is
// 365 days. Rows whose date does not parse are ignored; nil means none did.
func AgeStatistics(t *roster.Table, now time.Time) *AgeStats {
	if t == nil {
		return nil
	}
	var (
		stats            AgeStats
		totalDays        int
		youngest, oldest time.Time
	)
	today := truncateDay(now)
	for _, r := range t.Rows {
		raw := r.Value(roster.ColChildDOB)
		iso, ok := roster.NormalizeDate(raw)
		if !ok {
			continue
		}
		dob, err := time.Parse(roster.ISODate, iso)
		if err != nil {
			continue
		}
		child := Child{
			FirstName: r.Value(roster.ColChildFirstName),
			LastName:  r.Value(roster.ColChildLastName),
			DOB:       raw,
		}
		if stats.Count == 0 || dob.After(youngest) {
			youngest, stats.Youngest = dob, child
		}
		if stats.Count == 0 || dob.Before(oldest) {
			oldest, stats.Oldest = dob, child
		}
		totalDays += int(today.Sub(dob).Hours() / 24)
		stats.Count++
	}
	if stats.Count == 0 {
		return nil
	}
	stats.AverageYears = float64(totalDays) / float64(stats.Count) / 365
	return &stats
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Report is the statistical overview of the matched roster.
type Report struct {
	GeneratedAt       time.Time `json:"generated_at" yaml:"generated_at"`
	Summary           Summary   `json:"summary" yaml:"summary"`
	Unassigned        int       `json:"unassigned" yaml:"unassigned"`
	AssignedPercent   float64   `json:"assigned_percent" yaml:"assigned_percent"`
	UnassignedPercent float64   `json:"unassigned_percent" yaml:"unassigned_percent"`
	DistinctNurses    int       `json:"distinct_nurses" yaml:"distinct_nurses"`
	Ages              *AgeStats `json:"ages,omitempty" yaml:"ages,omitempty"`
	Towns             []Count   `json:"towns" yaml:"towns"`
	Workload          []Count   `json:"workload" yaml:"workload"`
}

// Build assembles a Report for the matched table.
func Build(matched *roster.Table, unmatchedCount, duplicateCount int, now time.Time) *Report {
	s := Summarize(matched, unmatchedCount, duplicateCount)
	workload := NurseWorkload(matched)
	rep := &Report{
		GeneratedAt:    now,
		Summary:        s,
		Unassigned:     s.Matched - s.Assigned,
		DistinctNurses: len(workload),
		Ages:           AgeStatistics(matched, now),
		Towns:          Top(GroupCounts(matched, roster.ColCity), DefaultTopTowns),
		Workload:       workload,
	}
	if s.Matched > 0 {
		rep.AssignedPercent = float64(s.Assigned) / float64(s.Matched) * 100
		rep.UnassignedPercent = 100 - rep.AssignedPercent
	}
	return rep
}
