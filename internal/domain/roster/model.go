package roster

import "strings"

// Canonical column names. On-disk headers use these spellings.
const (
	ColMotherID        = "Mother_ID"
	ColMotherFirstName = "Mother_First_Name"
	ColMotherLastName  = "Mother_Last_Name"
	ColMotherDOB       = "Mother_Date_of_Birth"
	ColChildFirstName  = "Child_First_Name"
	ColChildLastName   = "Child_Last_Name"
	ColChildDOB        = "Child_Date_of_Birth"
	ColCity            = "City"
	ColState           = "State"
	ColZIP             = "ZIP"
	ColAssignedNurse   = "Assigned_Nurse"
	ColSource          = "Source"
)

// UnassignedNurse is the Assigned_Nurse value of a record nobody has claimed.
const UnassignedNurse = "None"

// SourceKind labels which extract a raw record came from.
type SourceKind string

const (
	SourceDatabase SourceKind = "Database"
	SourceMedicaid SourceKind = "Medicaid"
)

// Suffix disambiguates a column present in both extracts.
func (k SourceKind) Suffix() string {
	switch k {
	case SourceDatabase:
		return "_db"
	case SourceMedicaid:
		return "_medicaid"
	}
	return "_" + strings.ToLower(string(k))
}

// Record is one row: an ordered mapping of column name to cell value.
// Columns are case-sensitive; absent and empty are distinct.
type Record struct {
	cols   []string
	values map[string]string
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// RecordFrom builds a record from parallel header and value slices.
func RecordFrom(header, values []string) *Record {
	r := &Record{
		cols:   make([]string, 0, len(header)),
		values: make(map[string]string, len(header)),
	}
	for i, h := range header {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		r.Set(h, v)
	}
	return r
}

// Get returns the value of col and whether the column is present.
func (r *Record) Get(col string) (string, bool) {
	v, ok := r.values[col]
	return v, ok
}

// Value returns the value of col, or "" when absent.
func (r *Record) Value(col string) string {
	return r.values[col]
}

// Has reports whether col is present.
func (r *Record) Has(col string) bool {
	_, ok := r.values[col]
	return ok
}

// Set assigns col, appending it to the column order when new.
func (r *Record) Set(col, value string) {
	if _, ok := r.values[col]; !ok {
		r.cols = append(r.cols, col)
	}
	r.values[col] = value
}

// Columns returns the record's columns in insertion order.
func (r *Record) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Len returns the number of columns.
func (r *Record) Len() int {
	return len(r.cols)
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := &Record{
		cols:   make([]string, len(r.cols)),
		values: make(map[string]string, len(r.values)),
	}
	copy(c.cols, r.cols)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Values returns the cells for the given columns; absent columns yield "".
func (r *Record) Values(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = r.values[c]
	}
	return out
}

// Map returns a copy of the record as a plain map.
func (r *Record) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// Table is an ordered set of records sharing a column schema.
type Table struct {
	Columns []string
	Rows    []*Record
}

// NewTable returns an empty table with the given columns.
func NewTable(cols ...string) *Table {
	return &Table{Columns: append([]string(nil), cols...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether col is part of the schema.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// AddColumn appends col to the schema if missing and fills it on every row
// that lacks it.
func (t *Table) AddColumn(col, fill string) {
	if !t.HasColumn(col) {
		t.Columns = append(t.Columns, col)
	}
	for _, r := range t.Rows {
		if !r.Has(col) {
			r.Set(col, fill)
		}
	}
}

// Append adds a row.
func (t *Table) Append(r *Record) {
	t.Rows = append(t.Rows, r)
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]*Record, len(t.Rows)),
	}
	for i, r := range t.Rows {
		c.Rows[i] = r.Clone()
	}
	return c
}

// Identity addresses a Case Record for lookup and mutation. Names compare
// case-insensitively; MotherID and ChildDOB compare exactly.
type Identity struct {
	MotherID       string
	ChildFirstName string
	ChildLastName  string
	ChildDOB       string
}

// IdentityOf extracts the identity columns of r.
func IdentityOf(r *Record) Identity {
	return Identity{
		MotherID:       r.Value(ColMotherID),
		ChildFirstName: r.Value(ColChildFirstName),
		ChildLastName:  r.Value(ColChildLastName),
		ChildDOB:       r.Value(ColChildDOB),
	}
}

// Matches reports whether r carries this identity.
func (id Identity) Matches(r *Record) bool {
	return strings.TrimSpace(r.Value(ColMotherID)) == strings.TrimSpace(id.MotherID) &&
		strings.EqualFold(r.Value(ColChildFirstName), id.ChildFirstName) &&
		strings.EqualFold(r.Value(ColChildLastName), id.ChildLastName) &&
		r.Value(ColChildDOB) == id.ChildDOB
}
