package roster

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jane", "jane"},
		{"  JANE  ", "jane"},
		{"Mary Jane", "maryjane"},
		{"Mary-Jane", "maryjane"},
		{"O'Brien", "obrien"},
		{"José", "josé"},
		{"snake_case", "snake_case"},
		{"Anne 2nd", "anne2nd"},
		{"Lee ½", "lee½"},
		{"Louis Ⅳ", "louisⅳ"},
		{"Smith²", "smith²"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2020-01-01", "2020-01-01", true},
		{"01/01/2020", "2020-01-01", true},
		{"1/2/2020", "2020-01-02", true},
		{"2020-01-01 00:00:00", "2020-01-01", true},
		{"January 5, 2021", "2021-01-05", true},
		{"43831", "2020-01-01", true},
		{"  2019-12-31  ", "2019-12-31", true},
		{"", "", false},
		{"not a date", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeDate(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("NormalizeDate(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		header string
		kind   SourceKind
		want   string
	}{
		{"DOB", SourceDatabase, ColChildDOB},
		{"Date of Birth", SourceDatabase, ColChildDOB},
		{"Child DOB", SourceMedicaid, ColChildDOB},
		{"Child_Date_of_Birth", SourceMedicaid, ColChildDOB},
		{"HOH/Mother's First Name", SourceMedicaid, ColMotherFirstName},
		{"Mother First Name", SourceDatabase, ColMotherFirstName},
		{"Last Name", SourceMedicaid, ColMotherLastName},
		{"Last Name", SourceDatabase, "Last_Name"},
		{"Mother's Date of Birth", SourceMedicaid, ColMotherDOB},
		{"Zip", SourceDatabase, ColZIP},
		{"Tobacco Use", SourceDatabase, "Tobacco_Use"},
		{"Assigned_Nurse", SourceDatabase, ColAssignedNurse},
	}
	for _, tt := range tests {
		if got := NormalizeColumn(tt.header, tt.kind); got != tt.want {
			t.Errorf("NormalizeColumn(%q, %s) = %q, want %q", tt.header, tt.kind, got, tt.want)
		}
	}
}

func TestNormalizeColumn_CanonicalNamesAreFixedPoints(t *testing.T) {
	for _, c := range []string{
		ColMotherID, ColMotherFirstName, ColMotherLastName, ColMotherDOB,
		ColChildFirstName, ColChildLastName, ColChildDOB,
		ColCity, ColState, ColZIP, ColAssignedNurse,
	} {
		for _, kind := range []SourceKind{SourceDatabase, SourceMedicaid} {
			if got := NormalizeColumn(c, kind); got != c {
				t.Errorf("NormalizeColumn(%q, %s) = %q, want unchanged", c, kind, got)
			}
		}
	}
}

func TestNormalizeTable_RenamesWithoutTouchingValues(t *testing.T) {
	in := &Table{Columns: []string{"DOB", "Child DOB", "Mother First Name", "Phone"}}
	in.Append(RecordFrom(in.Columns, []string{"01/01/2020", "02/02/2020", "  JANE ", "555"}))

	out := NormalizeTable(in, SourceDatabase)

	wantCols := []string{ColChildDOB, "Child_DOB", ColMotherFirstName, "Phone"}
	if diff := cmp.Diff(wantCols, out.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	r := out.Rows[0]
	if got := r.Value(ColMotherFirstName); got != "  JANE " {
		t.Errorf("value was modified: %q", got)
	}
	if got := r.Value("Child_DOB"); got != "02/02/2020" {
		t.Errorf("second DOB column lost: %q", got)
	}
	if in.Columns[0] != "DOB" {
		t.Error("input table was mutated")
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"jane":       "Jane",
		"JANE":       "Jane",
		"mary jane":  "Mary Jane",
		"anne-marie": "Anne-Marie",
		"  o'brien ": "O'brien",
		"":           "",
		"maryjane":   "Maryjane",
		"élodie":     "Élodie",
	}
	for in, want := range tests {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}
