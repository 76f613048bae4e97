package casestore

import (
	"errors"
	"strings"

	"github.com/ehr/rosterlink/internal/domain/roster"
)

var (
	// ErrNotLoaded means no matched partition has been combined or loaded.
	ErrNotLoaded = errors.New("no combined data loaded")
	// ErrRecordNotFound is the "failed to assign" outcome of AssignNurse.
	ErrRecordNotFound = errors.New("failed to assign: no record with that identity")
)

// Filter selects records for a batch assignment. Blank fields are ignored;
// set fields are AND-combined and compared case-insensitively after trimming.
type Filter struct {
	City  string
	State string
	ZIP   string
}

// IsEmpty reports whether the filter matches every record.
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.City) == "" &&
		strings.TrimSpace(f.State) == "" &&
		strings.TrimSpace(f.ZIP) == ""
}

// Matches reports whether r passes every set field of the filter.
func (f Filter) Matches(r *roster.Record) bool {
	for col, want := range map[string]string{
		roster.ColCity:  f.City,
		roster.ColState: f.State,
		roster.ColZIP:   f.ZIP,
	} {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(r.Value(col)), want) {
			return false
		}
	}
	return true
}
