package roster

import (
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"

	"github.com/ehr/rosterlink/internal/platform/sheet"
)

// ISODate is the canonical date layout for stored and compared dates.
const ISODate = "2006-01-02"

// NormalizeName lower-cases s and drops every rune that is not a letter,
// number or underscore. Numbers include fractions and superscripts. Separators are removed, not replaced, so
// "Mary Jane" and "Mary-Jane" both become "maryjane".
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeDate parses a date in any common spreadsheet representation and
// returns it as YYYY-MM-DD. Ambiguous numeric dates are read month first.
// Five-digit serials are treated as Excel day numbers. ok is false when the
// value cannot be read as a date.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, ok := sheet.ParseSerialDate(s); ok {
		return t.Format(ISODate), true
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(true))
	if err != nil {
		return "", false
	}
	return t.Format(ISODate), true
}

// NormalizeHeader applies the header cleanup done on every ingested sheet:
// surrounding space trimmed, inner spaces replaced by underscores.
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.TrimSpace(h), " ", "_")
}

// foldHeader reduces a header to lower-case letters and digits for synonym lookup.
func foldHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var commonSynonyms = map[string]string{
	"dob":                 ColChildDOB,
	"dateofbirth":         ColChildDOB,
	"childdob":            ColChildDOB,
	"childdateofbirth":    ColChildDOB,
	"childsdateofbirth":   ColChildDOB,
	"childbirthdate":      ColChildDOB,
	"motherfirstname":     ColMotherFirstName,
	"mothersfirstname":    ColMotherFirstName,
	"hohmotherfirstname":  ColMotherFirstName,
	"hohmothersfirstname": ColMotherFirstName,
	"momfirstname":        ColMotherFirstName,
	"motherlastname":      ColMotherLastName,
	"motherslastname":     ColMotherLastName,
	"hohmotherlastname":   ColMotherLastName,
	"hohmotherslastname":  ColMotherLastName,
	"momlastname":         ColMotherLastName,
	"motherid":            ColMotherID,
	"mothersid":           ColMotherID,
	"momid":               ColMotherID,
	"motherdob":           ColMotherDOB,
	"motherdateofbirth":   ColMotherDOB,
	"mothersdateofbirth":  ColMotherDOB,
	"childfirstname":      ColChildFirstName,
	"childsfirstname":     ColChildFirstName,
	"childlastname":       ColChildLastName,
	"childslastname":      ColChildLastName,
	"city":                ColCity,
	"town":                ColCity,
	"state":               ColState,
	"zip":                 ColZIP,
	"zipcode":             ColZIP,
	"postalcode":          ColZIP,
	"assignednurse":       ColAssignedNurse,
}

// sourceSynonyms hold mappings that are only safe within one extract.
var sourceSynonyms = map[SourceKind]map[string]string{
	SourceMedicaid: {
		"lastname": ColMotherLastName,
	},
}

// NormalizeColumn maps a header to its canonical column name for the given
// source. Unknown headers pass through with only NormalizeHeader applied.
func NormalizeColumn(h string, kind SourceKind) string {
	folded := foldHeader(h)
	if m, ok := sourceSynonyms[kind]; ok {
		if c, ok := m[folded]; ok {
			return c
		}
	}
	if c, ok := commonSynonyms[folded]; ok {
		return c
	}
	return NormalizeHeader(h)
}

// NormalizeTable renames t's columns to the canonical schema. Values are not
// touched. When two headers map to the same canonical name the first keeps
// it and later ones keep their own cleaned-up header.
func NormalizeTable(t *Table, kind SourceKind) *Table {
	rename := make(map[string]string, len(t.Columns))
	taken := make(map[string]bool, len(t.Columns))
	out := &Table{Columns: make([]string, 0, len(t.Columns))}

	for _, c := range t.Columns {
		name := NormalizeColumn(c, kind)
		if taken[name] {
			name = NormalizeHeader(c)
		}
		for taken[name] {
			name += "_" + strings.ToLower(string(kind))
		}
		taken[name] = true
		rename[c] = name
		out.Columns = append(out.Columns, name)
	}

	out.Rows = make([]*Record, 0, len(t.Rows))
	for _, r := range t.Rows {
		nr := &Record{
			cols:   make([]string, 0, len(t.Columns)),
			values: make(map[string]string, len(t.Columns)),
		}
		for _, c := range t.Columns {
			nr.Set(rename[c], r.Value(c))
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// TitleCase capitalizes the first letter of each space or hyphen separated
// word and lower-cases the rest. Used for displayed name fields only.
func TitleCase(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	upper := true
	for _, r := range s {
		if upper {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		upper = r == ' ' || r == '-'
	}
	return b.String()
}
