package hipaa

import (
	"strings"
	"unicode/utf8"
)

// PHIFieldConfig groups the roster columns that carry one category of Safe
// Harbor identifier (45 CFR 164.514(b)(2)).
type PHIFieldConfig struct {
	Category string
	// Columns are matched case-insensitively and after stripping a trailing
	// _db or _medicaid suffix, so both copies of a merged column are covered.
	Columns []string
}

// DefaultPHIFields lists the columns masked when rows are printed for
// review. Names and the child's date of birth are never masked.
func DefaultPHIFields() []PHIFieldConfig {
	return []PHIFieldConfig{
		{Category: "ssn", Columns: []string{"SSN", "Social_Security_Number", "Mother_SSN"}},
		{Category: "address", Columns: []string{"Address", "Street", "Street_Address", "Address_Line"}},
		{Category: "telecom", Columns: []string{"Phone", "Phone_Number", "Mobile", "Email", "Email_Address"}},
		{Category: "identifier", Columns: []string{"Medicaid_ID", "Medicaid_Number", "MRN"}},
		{Category: "date", Columns: []string{"Mother_Date_of_Birth"}},
	}
}

// PHIFieldPaths returns the lower-cased column names for fast look-up.
func PHIFieldPaths() map[string]bool {
	paths := make(map[string]bool, 16)
	for _, c := range DefaultPHIFields() {
		for _, col := range c.Columns {
			paths[strings.ToLower(col)] = true
		}
	}
	return paths
}

var phiPaths = PHIFieldPaths()

// IsPHIColumn reports whether values of col must be masked for display.
func IsPHIColumn(col string) bool {
	c := strings.ToLower(strings.TrimSpace(col))
	for _, suffix := range []string{"_db", "_medicaid"} {
		c = strings.TrimSuffix(c, suffix)
	}
	return phiPaths[c]
}

// MaskValue hides all but the last two characters of v.
func MaskValue(v string) string {
	n := utf8.RuneCountInString(v)
	if n == 0 {
		return ""
	}
	if n <= 2 {
		return strings.Repeat("*", n)
	}
	r := []rune(v)
	return strings.Repeat("*", n-2) + string(r[n-2:])
}
