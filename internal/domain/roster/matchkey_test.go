package roster

import "testing"

func keyRecord(first, last, dob string) *Record {
	return RecordFrom(
		[]string{ColMotherFirstName, ColMotherLastName, ColChildDOB},
		[]string{first, last, dob},
	)
}

func TestBuildKey_Deterministic(t *testing.T) {
	base := KeyOf(keyRecord("Jane", "Doe", "2020-01-01"))

	variants := []*Record{
		keyRecord("jane", "doe", "01/01/2020"),
		keyRecord(" JANE ", "D.O.E", "2020-01-01 00:00:00"),
		keyRecord("Ja-ne", "Doe", "43831"),
		keyRecord("Jane", "doe", "January 1, 2020"),
	}
	for i, r := range variants {
		if got := KeyOf(r); got != base {
			t.Errorf("variant %d: key %q != %q", i, got, base)
		}
	}
	if !base.Matchable() {
		t.Error("expected base key to be matchable")
	}
	if KeyOf(keyRecord("Jane", "Doe", "2020-01-01")) != base {
		t.Error("key is not stable under recomputation")
	}
}

func TestBuildKey_DistinguishesPeople(t *testing.T) {
	a := KeyOf(keyRecord("Jane", "Doe", "2020-01-01"))
	for _, r := range []*Record{
		keyRecord("Janet", "Doe", "2020-01-01"),
		keyRecord("Jane", "Dow", "2020-01-01"),
		keyRecord("Jane", "Doe", "2020-01-02"),
	} {
		if KeyOf(r) == a {
			t.Errorf("unexpected key collision for %v", r.Map())
		}
	}
}

func TestBuildKey_Unmatchable(t *testing.T) {
	tests := map[string]*Record{
		"bad date":                   keyRecord("Jane", "Doe", "someday"),
		"empty date":                 keyRecord("Jane", "Doe", ""),
		"missing first":              keyRecord("", "Doe", "2020-01-01"),
		"punctuation only last name": keyRecord("Jane", "--", "2020-01-01"),
		"missing columns":            NewRecord(),
	}
	for name, r := range tests {
		t.Run(name, func(t *testing.T) {
			if KeyOf(r).Matchable() {
				t.Errorf("expected unmatchable key, got %q", KeyOf(r))
			}
		})
	}
}

func TestMatchKey_SeparatorCannotBeForged(t *testing.T) {
	// Normalized names never contain the separator, so shifting text
	// between first and last name cannot produce the same key.
	a := KeyOf(keyRecord("Ann", "Lee|x", "2020-01-01"))
	b := KeyOf(keyRecord("Ann|Lee", "x", "2020-01-01"))
	if a != KeyOf(keyRecord("Ann", "Leex", "2020-01-01")) {
		t.Errorf("separator was not stripped from names: %q", a)
	}
	if a == b {
		t.Errorf("keys collide across field boundary: %q", a)
	}
}
