package casestore

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/rosterlink/internal/domain/roster"
	"github.com/ehr/rosterlink/internal/platform/sheet"
	"github.com/ehr/rosterlink/pkg/pagination"
)

// -- Mock Repository --

type mockPartitionRepo struct {
	tables  map[string]*roster.Table
	saves   int
	saveErr error
}

func newMockPartitionRepo() *mockPartitionRepo {
	return &mockPartitionRepo{tables: make(map[string]*roster.Table)}
}

func (m *mockPartitionRepo) Save(_ context.Context, partition string, t *roster.Table) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.tables[partition] = t.Clone()
	return nil
}

func (m *mockPartitionRepo) Load(_ context.Context, partition string) (*roster.Table, error) {
	t, ok := m.tables[partition]
	if !ok {
		return nil, roster.ErrNoData
	}
	return t.Clone(), nil
}

func (m *mockPartitionRepo) Path(partition string) string {
	return partition
}

var caseColumns = []string{
	roster.ColMotherID, roster.ColMotherFirstName, roster.ColMotherLastName,
	roster.ColChildFirstName, roster.ColChildLastName, roster.ColChildDOB,
	roster.ColCity, roster.ColState, roster.ColZIP, roster.ColAssignedNurse,
}

func matchedTable() *roster.Table {
	t := roster.NewTable(caseColumns...)
	for _, row := range [][]string{
		{"1", "Jane", "Doe", "Ava", "Doe", "2020-01-01", "Provo", "UT", "84601", "None"},
		{"2", "Kim", "Lee", "Bo", "Lee", "2021-05-05", "provo", "UT", "84604", "None"},
		{"3", "Pat", "Ray", "Cy", "Ray", "2019-06-30", "Orem", "UT", "84057", "None"},
		{"4", "Lu", "Fox", "Di", "Fox", "2018-02-02", "Boise", "ID", "83702", "Ann"},
	} {
		t.Append(roster.RecordFrom(caseColumns, row))
	}
	return t
}

func newTestStore(t *testing.T) (*Store, *mockPartitionRepo) {
	t.Helper()
	repo := newMockPartitionRepo()
	repo.tables[roster.PartitionMatched] = matchedTable()
	s, err := Open(context.Background(), repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, repo
}

var ava = roster.Identity{MotherID: "1", ChildFirstName: "ava", ChildLastName: "DOE", ChildDOB: "2020-01-01"}

func countNurse(t *testing.T, tbl *roster.Table, nurse string) int {
	t.Helper()
	n := 0
	for _, r := range tbl.Rows {
		if r.Value(roster.ColAssignedNurse) == nurse {
			n++
		}
	}
	return n
}

func TestOpen_NoData(t *testing.T) {
	_, err := Open(context.Background(), newMockPartitionRepo(), zerolog.Nop())
	if !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if !errors.Is(err, roster.ErrNoData) {
		t.Errorf("expected the underlying ErrNoData to be kept, got %v", err)
	}
}

func TestStore_NotLoaded(t *testing.T) {
	s := NewStore(newMockPartitionRepo(), zerolog.Nop())
	ctx := context.Background()

	if s.Loaded() {
		t.Fatal("new store should not be loaded")
	}
	if _, ok := s.Find(ava); ok {
		t.Error("Find should miss on an empty store")
	}
	if err := s.AssignNurse(ctx, ava, "Nurse X"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("AssignNurse: expected ErrNotLoaded, got %v", err)
	}
	if _, err := s.BatchAssignNurse(ctx, "Nurse X", Filter{}); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("BatchAssignNurse: expected ErrNotLoaded, got %v", err)
	}
	if _, err := s.Search("a"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Search: expected ErrNotLoaded, got %v", err)
	}
}

func TestStore_Find(t *testing.T) {
	s, _ := newTestStore(t)

	r, ok := s.Find(ava)
	if !ok {
		t.Fatal("expected to find Ava")
	}
	if r.Value(roster.ColMotherFirstName) != "Jane" {
		t.Errorf("unexpected record %v", r.Map())
	}

	misses := []roster.Identity{
		{MotherID: "1", ChildFirstName: "Ava", ChildLastName: "Doe", ChildDOB: "01/01/2020"},
		{MotherID: "9", ChildFirstName: "Ava", ChildLastName: "Doe", ChildDOB: "2020-01-01"},
		{MotherID: "1", ChildFirstName: "Eva", ChildLastName: "Doe", ChildDOB: "2020-01-01"},
	}
	for _, id := range misses {
		if _, ok := s.Find(id); ok {
			t.Errorf("unexpected hit for %+v", id)
		}
	}

	// Find returns a copy.
	r.Set(roster.ColAssignedNurse, "Mallory")
	again, _ := s.Find(ava)
	if again.Value(roster.ColAssignedNurse) != "None" {
		t.Error("mutating a found record leaked into the store")
	}
}

func TestStore_FindByName(t *testing.T) {
	s, _ := newTestStore(t)
	tests := []struct {
		name, full, dob string
		want            bool
	}{
		{"exact", "Ava Doe", "2020-01-01", true},
		{"case-insensitive", "AVA doe", "2020-01-01", true},
		{"extra spaces", "  Ava   Doe ", "2020-01-01", true},
		{"single word", "Ava", "2020-01-01", false},
		{"wrong dob", "Ava Doe", "2020-01-02", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := s.FindByName(tt.full, tt.dob); ok != tt.want {
				t.Errorf("FindByName(%q, %q) = %v, want %v", tt.full, tt.dob, ok, tt.want)
			}
		})
	}
}

func TestStore_AssignNurse_Idempotent(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.AssignNurse(ctx, ava, "Nurse X"); err != nil {
			t.Fatalf("AssignNurse #%d: %v", i+1, err)
		}
		if got := countNurse(t, repo.tables[roster.PartitionMatched], "Nurse X"); got != 1 {
			t.Fatalf("after call %d persisted store has %d records for Nurse X, want 1", i+1, got)
		}
	}
	if repo.saves != 2 {
		t.Errorf("expected a full save per assignment, got %d saves", repo.saves)
	}

	if err := s.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	r, ok := s.Find(ava)
	if !ok || r.Value(roster.ColAssignedNurse) != "Nurse X" {
		t.Errorf("assignment did not survive reload: %v", r)
	}
}

func TestStore_AssignNurse_DuplicatedRecord(t *testing.T) {
	dbCols := []string{"Mother_ID", "Mother_First_Name", "Mother_Last_Name", "Child_First_Name", "Child_Last_Name", "DOB"}
	medCols := []string{"Mother_ID", "HOH/Mother's First Name", "Last Name", "Child DOB"}
	db := roster.NewTable(dbCols...)
	for i := 0; i < 2; i++ {
		db.Append(roster.RecordFrom(dbCols, []string{"1", "Jane", "Doe", "Ava", "Doe", "2020-01-01"}))
	}
	med := roster.NewTable(medCols...)
	med.Append(roster.RecordFrom(medCols, []string{"1", "JANE", "DOE", "01/01/2020"}))

	res := roster.Reconcile(db, med, nil)
	if res.Matched.Len() != 2 || res.Duplicates.Len() != 2 {
		t.Fatalf("expected two matched copies flagged as duplicates, got %d matched, %d duplicates",
			res.Matched.Len(), res.Duplicates.Len())
	}

	repo := newMockPartitionRepo()
	repo.tables[roster.PartitionMatched] = res.Matched
	s, err := Open(context.Background(), repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.AssignNurse(context.Background(), ava, "Nurse X"); err != nil {
			t.Fatalf("AssignNurse #%d: %v", i+1, err)
		}
		if got := countNurse(t, repo.tables[roster.PartitionMatched], "Nurse X"); got != 1 {
			t.Fatalf("after call %d %d records have Nurse X, want 1", i+1, got)
		}
	}
	if got := countNurse(t, repo.tables[roster.PartitionMatched], roster.UnassignedNurse); got != 1 {
		t.Errorf("the other copy should stay unassigned, %d records have %q", got, roster.UnassignedNurse)
	}
}

func TestStore_AssignNurse_NotFound(t *testing.T) {
	s, repo := newTestStore(t)
	id := roster.Identity{MotherID: "42", ChildFirstName: "No", ChildLastName: "One", ChildDOB: "2020-01-01"}
	if err := s.AssignNurse(context.Background(), id, "Nurse X"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if repo.saves != 0 {
		t.Errorf("a miss must not write, got %d saves", repo.saves)
	}
}

func TestStore_AssignNurse_SaveFailureRollsBack(t *testing.T) {
	s, repo := newTestStore(t)
	repo.saveErr = errors.New("disk full")

	if err := s.AssignNurse(context.Background(), ava, "Nurse X"); err == nil {
		t.Fatal("expected save error")
	}
	r, _ := s.Find(ava)
	if r.Value(roster.ColAssignedNurse) != "None" {
		t.Errorf("in-memory record was partially updated: %q", r.Value(roster.ColAssignedNurse))
	}
}

func TestStore_BatchAssignNurse(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string // Mother_IDs touched
	}{
		{"city case-insensitive", Filter{City: "PROVO"}, []string{"1", "2"}},
		{"city and zip", Filter{City: "provo", ZIP: "84604"}, []string{"2"}},
		{"state", Filter{State: "ut"}, []string{"1", "2", "3"}},
		{"no match", Filter{City: "Provo", State: "ID"}, nil},
		{"empty matches all", Filter{}, []string{"1", "2", "3", "4"}},
		{"whitespace filter", Filter{City: "  orem "}, []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo := newTestStore(t)
			n, err := s.BatchAssignNurse(context.Background(), "Nurse Y", tt.filter)
			if err != nil {
				t.Fatalf("BatchAssignNurse: %v", err)
			}
			if n != len(tt.want) {
				t.Errorf("count = %d, want %d", n, len(tt.want))
			}

			touched := map[string]bool{}
			for _, id := range tt.want {
				touched[id] = true
			}
			records, _ := s.Records()
			for _, r := range records {
				id := r.Value(roster.ColMotherID)
				got := r.Value(roster.ColAssignedNurse) == "Nurse Y"
				if got != touched[id] {
					t.Errorf("record %s assigned=%v, want %v", id, got, touched[id])
				}
			}
			if len(tt.want) == 0 && repo.saves != 0 {
				t.Errorf("zero matches must not write, got %d saves", repo.saves)
			}
			if len(tt.want) > 0 && countNurse(t, repo.tables[roster.PartitionMatched], "Nurse Y") != len(tt.want) {
				t.Error("persisted partition does not reflect the batch")
			}
		})
	}
}

func TestStore_Search(t *testing.T) {
	s, _ := newTestStore(t)
	tests := map[string]int{
		"av":  1,
		"RAY": 1,
		"o":   3, // Doe, Bo and Fox
		"":    4,
		"zzz": 0,
	}
	for q, want := range tests {
		got, err := s.Search(q)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(got) != want {
			t.Errorf("Search(%q) returned %d records, want %d", q, len(got), want)
		}
	}
}

func TestStore_List(t *testing.T) {
	s, _ := newTestStore(t)
	page, resp, err := s.List(pagination.Params{Limit: 3, Offset: 0})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 3 || resp.Total != 4 || !resp.HasMore {
		t.Errorf("unexpected first page: %d records, %+v", len(page), resp)
	}
	page, resp, _ = s.List(pagination.Params{Limit: 3, Offset: 3})
	if len(page) != 1 || resp.HasMore {
		t.Errorf("unexpected second page: %d records, %+v", len(page), resp)
	}
}

func TestStore_ReloadPicksUpExternalEdits(t *testing.T) {
	s, repo := newTestStore(t)
	edited := matchedTable()
	edited.Rows = edited.Rows[:1]
	repo.tables[roster.PartitionMatched] = edited

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 record after reload, got %d", s.Len())
	}
}

func TestStore_ReloadAddsMissingNurseColumn(t *testing.T) {
	repo := newMockPartitionRepo()
	cols := caseColumns[:len(caseColumns)-1]
	tbl := roster.NewTable(cols...)
	tbl.Append(roster.RecordFrom(cols, []string{"1", "Jane", "Doe", "Ava", "Doe", "2020-01-01", "Provo", "UT", "84601"}))
	repo.tables[roster.PartitionMatched] = tbl

	s, err := Open(context.Background(), repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r, _ := s.Find(ava)
	if r.Value(roster.ColAssignedNurse) != roster.UnassignedNurse {
		t.Errorf("expected default nurse, got %q", r.Value(roster.ColAssignedNurse))
	}
}

func TestStore_SheetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := roster.NewSheetRepository(t.TempDir(), sheet.FormatXLSX, nil)
	if err := repo.Save(ctx, roster.PartitionMatched, matchedTable()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s, err := Open(ctx, repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.AssignNurse(ctx, ava, "Nurse X"); err != nil {
		t.Fatalf("AssignNurse: %v", err)
	}

	fresh, err := Open(ctx, repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	r, ok := fresh.Find(ava)
	if !ok {
		t.Fatal("record missing after round trip")
	}
	if got := r.Value(roster.ColAssignedNurse); got != "Nurse X" {
		t.Errorf("persisted nurse = %q, want Nurse X", got)
	}
	if fresh.Len() != 4 {
		t.Errorf("expected 4 records on disk, got %d", fresh.Len())
	}
}
