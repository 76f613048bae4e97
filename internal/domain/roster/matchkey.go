package roster

import "strings"

const (
	keySeparator = "|"
	// nullDate stands in for a missing or unparseable date. It contains the
	// separator, which no normalized field can, so a key carrying it never
	// equals a key built from real values.
	nullDate = "<no-date|>"
	nullName = "<no-name|>"
)

// MatchKey is the join and duplicate-detection predicate of a raw record.
type MatchKey string

// Matchable reports whether the key can equal another record's key.
func (k MatchKey) Matchable() bool {
	return !strings.Contains(string(k), nullDate) && !strings.Contains(string(k), nullName)
}

// KeyFields are the normalized values a key is built from.
type KeyFields struct {
	MotherFirst string
	MotherLast  string
	ChildDOB    string
	DateOK      bool
}

// NormalizeKeyFields extracts and normalizes the key columns of a record
// whose columns already follow the canonical schema.
func NormalizeKeyFields(r *Record) KeyFields {
	dob, ok := NormalizeDate(r.Value(ColChildDOB))
	return KeyFields{
		MotherFirst: NormalizeName(r.Value(ColMotherFirstName)),
		MotherLast:  NormalizeName(r.Value(ColMotherLastName)),
		ChildDOB:    dob,
		DateOK:      ok,
	}
}

// BuildKey derives the match key. An empty mother name or a bad date yields
// an unmatchable key rather than an error.
func BuildKey(f KeyFields) MatchKey {
	first, last, dob := f.MotherFirst, f.MotherLast, f.ChildDOB
	if first == "" {
		first = nullName
	}
	if last == "" {
		last = nullName
	}
	if !f.DateOK || dob == "" {
		dob = nullDate
	}
	return MatchKey(first + keySeparator + last + keySeparator + dob)
}

// KeyOf normalizes r and builds its key in one step.
func KeyOf(r *Record) MatchKey {
	return BuildKey(NormalizeKeyFields(r))
}
