package nursing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ehr/rosterlink/internal/platform/sheet"
)

func TestSheetVisitRepository_MissingLogIsEmpty(t *testing.T) {
	repo := NewSheetVisitRepository(t.TempDir(), sheet.FormatXLSX, nil)
	visits, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(visits) != 0 {
		t.Errorf("expected empty log, got %d visits", len(visits))
	}
	if filepath.Base(repo.Path()) != "nurse_log.xlsx" {
		t.Errorf("unexpected path %s", repo.Path())
	}
}

func TestSheetVisitRepository_AppendAssignsIDs(t *testing.T) {
	for _, format := range []sheet.Format{sheet.FormatXLSX, sheet.FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			repo := NewSheetVisitRepository(t.TempDir(), format, nil)
			ctx := context.Background()
			at := time.Date(2024, 3, 1, 9, 30, 15, 0, time.Local)

			for i := 1; i <= 3; i++ {
				v := &Visit{MotherID: "1", ChildFirstName: "Ava", ChildLastName: "Doe", NurseName: "Ann", Time: at}
				if err := repo.Append(ctx, v); err != nil {
					t.Fatalf("Append #%d: %v", i, err)
				}
				if v.ID != i {
					t.Errorf("visit %d got ID %d", i, v.ID)
				}
			}

			visits, err := repo.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(visits) != 3 {
				t.Fatalf("expected 3 visits, got %d", len(visits))
			}
			last := visits[2]
			if last.ID != 3 || last.NurseName != "Ann" || !last.Time.Equal(at) {
				t.Errorf("unexpected stored visit %+v", last)
			}
		})
	}
}

func TestSheetVisitRepository_IDsFollowMaxNotCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nurse_log.csv")
	err := sheet.Write(path, &sheet.Grid{
		Header: []string{"Visit_ID", "Mother_ID", "Child_First_Name", "Child_Last_Name", "Nurse_Name", "Visit_Time", "Notes"},
		Rows: [][]string{
			{"7.0", "1", "Ava", "Doe", "Ann", "2024-01-01 10:00:00", "first"},
			{"", "1", "Ava", "Doe", "Ann", "yesterday", ""},
		},
	})
	if err != nil {
		t.Fatalf("seed log: %v", err)
	}

	repo := NewSheetVisitRepository(dir, sheet.FormatCSV, nil)
	v := &Visit{MotherID: "2", ChildFirstName: "Bo", ChildLastName: "Lee", NurseName: "Beth", Time: time.Now()}
	if err := repo.Append(context.Background(), v); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if v.ID != 8 {
		t.Errorf("expected ID 8 after max 7, got %d", v.ID)
	}

	visits, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if visits[1].RawTime != "yesterday" || visits[1].TimeString() != "yesterday" {
		t.Errorf("unparseable time not kept: %+v", visits[1])
	}

	g, err := sheet.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if g.Header[len(g.Header)-1] != "Notes" || g.Rows[0][6] != "first" {
		t.Errorf("extra column lost: %v", g.Header)
	}
}
