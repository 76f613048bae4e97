package roster

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage names a reconciliation milestone reported to a ProgressFunc.
type Stage string

const (
	StageRead       Stage = "read"
	StageNormalize  Stage = "normalize"
	StageKeys       Stage = "keys"
	StageJoin       Stage = "join"
	StageDuplicates Stage = "duplicates"
	StageUnmatched  Stage = "unmatched"
	StagePersist    Stage = "persist"
	StageDone       Stage = "done"
)

// ProgressFunc receives milestones during a combine. It runs on the calling
// goroutine and must not block.
type ProgressFunc func(stage Stage, percent int)

func (p ProgressFunc) report(stage Stage, percent int) {
	if p != nil {
		p(stage, percent)
	}
}

// keyColumns are joined on and appear once in the matched schema.
var keyColumns = map[string]bool{
	ColMotherFirstName: true,
	ColMotherLastName:  true,
	ColChildDOB:        true,
}

// primaryColumns are emitted unsuffixed even when both extracts carry them,
// taking the Database value unless it is blank. Record identity, batch
// filters and nurse assignment read these names.
var primaryColumns = map[string]bool{
	ColMotherID:       true,
	ColChildFirstName: true,
	ColChildLastName:  true,
	ColCity:           true,
	ColState:          true,
	ColZIP:            true,
	ColAssignedNurse:  true,
}

// displayNameColumns are title-cased in every output partition.
var displayNameColumns = []string{
	ColMotherFirstName,
	ColMotherLastName,
	ColChildFirstName,
	ColChildLastName,
}

// Result holds the three partitions of one reconciliation run.
type Result struct {
	RunID       uuid.UUID
	CreatedAt   time.Time
	Matched     *Table
	Unmatched   *Table
	Duplicates  *Table
	Groups      []DuplicateGroup
	SourceRows  map[SourceKind]int
	Unmatchable int
}

// DuplicateGroup lists the matched-row indices sharing one
// (Mother_ID, Child_First_Name, Child_Last_Name) tuple.
type DuplicateGroup struct {
	MotherID       string
	ChildFirstName string
	ChildLastName  string
	Rows           []int
}

type valueFrom int

const (
	fromKey valueFrom = iota
	fromPrimary
	fromDatabase
	fromMedicaid
)

type columnSpec struct {
	name   string
	from   valueFrom
	source string
}

type keyedTable struct {
	kind  SourceKind
	table *Table
	keys  []MatchKey
	dobs  []string
	used  []bool
}

func prepare(t *Table, kind SourceKind) *keyedTable {
	nt := NormalizeTable(t, kind)
	kt := &keyedTable{
		kind:  kind,
		table: nt,
		keys:  make([]MatchKey, len(nt.Rows)),
		dobs:  make([]string, len(nt.Rows)),
		used:  make([]bool, len(nt.Rows)),
	}
	return kt
}

func (kt *keyedTable) buildKeys() int {
	unmatchable := 0
	for i, r := range kt.table.Rows {
		f := NormalizeKeyFields(r)
		kt.keys[i] = BuildKey(f)
		if f.DateOK {
			kt.dobs[i] = f.ChildDOB
		} else {
			kt.dobs[i] = strings.TrimSpace(r.Value(ColChildDOB))
		}
		if !kt.keys[i].Matchable() {
			unmatchable++
		}
	}
	return unmatchable
}

// Reconcile joins a Database extract with a Medicaid extract on the match
// key and partitions every input row. It never fails: rows that cannot be
// keyed land in Unmatched.
func Reconcile(database, medicaid *Table, progress ProgressFunc) *Result {
	db := prepare(database, SourceDatabase)
	med := prepare(medicaid, SourceMedicaid)
	progress.report(StageNormalize, 20)

	unmatchable := db.buildKeys() + med.buildKeys()
	progress.report(StageKeys, 35)

	res := &Result{
		RunID:     uuid.New(),
		CreatedAt: time.Now(),
		SourceRows: map[SourceKind]int{
			SourceDatabase: len(db.table.Rows),
			SourceMedicaid: len(med.table.Rows),
		},
		Unmatchable: unmatchable,
	}

	res.Matched = join(db, med)
	progress.report(StageJoin, 60)

	res.Duplicates, res.Groups = findDuplicates(res.Matched)
	progress.report(StageDuplicates, 75)

	res.Unmatched = collectUnmatched(db, med)
	progress.report(StageUnmatched, 90)

	return res
}

// join is a bucket join: the Medicaid side is indexed by key, then every
// Database row is crossed with its bucket. Keys repeated within a source
// multiply rows, which is what surfaces duplicates downstream.
func join(db, med *keyedTable) *Table {
	buckets := make(map[MatchKey][]int, len(med.keys))
	for j, k := range med.keys {
		if k.Matchable() {
			buckets[k] = append(buckets[k], j)
		}
	}

	schema := matchedSchema(db.table.Columns, med.table.Columns)
	out := &Table{Columns: make([]string, len(schema))}
	for i, s := range schema {
		out.Columns[i] = s.name
	}

	for i, k := range db.keys {
		if !k.Matchable() {
			continue
		}
		for _, j := range buckets[k] {
			db.used[i] = true
			med.used[j] = true
			out.Rows = append(out.Rows, mergeRows(schema, db.table.Rows[i], med.table.Rows[j], db.dobs[i]))
		}
	}

	if !out.HasColumn(ColAssignedNurse) {
		out.Columns = append(out.Columns, ColAssignedNurse)
	}
	for _, r := range out.Rows {
		if strings.TrimSpace(r.Value(ColAssignedNurse)) == "" {
			r.Set(ColAssignedNurse, UnassignedNurse)
		}
	}
	return out
}

func matchedSchema(dbCols, medCols []string) []columnSpec {
	inDB := make(map[string]bool, len(dbCols))
	for _, c := range dbCols {
		inDB[c] = true
	}
	inMed := make(map[string]bool, len(medCols))
	for _, c := range medCols {
		inMed[c] = true
	}

	var specs []columnSpec
	for _, c := range dbCols {
		switch {
		case keyColumns[c]:
			specs = append(specs, columnSpec{name: c, from: fromKey, source: c})
		case inMed[c] && primaryColumns[c]:
			specs = append(specs, columnSpec{name: c, from: fromPrimary, source: c})
			if c != ColAssignedNurse {
				specs = append(specs, columnSpec{name: c + SourceDatabase.Suffix(), from: fromDatabase, source: c})
			}
		case inMed[c]:
			specs = append(specs, columnSpec{name: c + SourceDatabase.Suffix(), from: fromDatabase, source: c})
		default:
			specs = append(specs, columnSpec{name: c, from: fromDatabase, source: c})
		}
	}
	for _, c := range medCols {
		switch {
		case keyColumns[c] && inDB[c]:
			continue
		case keyColumns[c]:
			specs = append(specs, columnSpec{name: c, from: fromKey, source: c})
		case inDB[c]:
			if c != ColAssignedNurse {
				specs = append(specs, columnSpec{name: c + SourceMedicaid.Suffix(), from: fromMedicaid, source: c})
			}
		default:
			specs = append(specs, columnSpec{name: c, from: fromMedicaid, source: c})
		}
	}
	return specs
}

func mergeRows(schema []columnSpec, a, b *Record, dob string) *Record {
	r := &Record{
		cols:   make([]string, 0, len(schema)+1),
		values: make(map[string]string, len(schema)+1),
	}
	for _, s := range schema {
		var v string
		switch s.from {
		case fromKey:
			if s.source == ColChildDOB {
				v = dob
			} else if av := strings.TrimSpace(a.Value(s.source)); av != "" {
				v = av
			} else {
				v = strings.TrimSpace(b.Value(s.source))
			}
		case fromPrimary:
			v = strings.TrimSpace(a.Value(s.source))
			if v == "" {
				v = strings.TrimSpace(b.Value(s.source))
			}
		case fromDatabase:
			v = a.Value(s.source)
		case fromMedicaid:
			v = b.Value(s.source)
		}
		r.Set(s.name, v)
	}
	titleNames(r)
	return r
}

func titleNames(r *Record) {
	for _, c := range displayNameColumns {
		for _, name := range []string{c, c + SourceDatabase.Suffix(), c + SourceMedicaid.Suffix()} {
			if v, ok := r.Get(name); ok {
				r.Set(name, TitleCase(v))
			}
		}
	}
}

type duplicateKey struct {
	motherID, first, last string
}

func duplicateKeyOf(r *Record) duplicateKey {
	return duplicateKey{
		motherID: strings.TrimSpace(r.Value(ColMotherID)),
		first:    strings.ToLower(strings.TrimSpace(r.Value(ColChildFirstName))),
		last:     strings.ToLower(strings.TrimSpace(r.Value(ColChildLastName))),
	}
}

// findDuplicates returns every matched row whose identity tuple occurs more
// than once, in matched order. The rows stay in the matched partition.
func findDuplicates(matched *Table) (*Table, []DuplicateGroup) {
	index := make(map[duplicateKey][]int)
	var order []duplicateKey
	for i, r := range matched.Rows {
		k := duplicateKeyOf(r)
		if _, seen := index[k]; !seen {
			order = append(order, k)
		}
		index[k] = append(index[k], i)
	}

	dups := NewTable(matched.Columns...)
	inDup := make([]bool, len(matched.Rows))
	var groups []DuplicateGroup
	for _, k := range order {
		rows := index[k]
		if len(rows) < 2 {
			continue
		}
		first := matched.Rows[rows[0]]
		groups = append(groups, DuplicateGroup{
			MotherID:       first.Value(ColMotherID),
			ChildFirstName: first.Value(ColChildFirstName),
			ChildLastName:  first.Value(ColChildLastName),
			Rows:           rows,
		})
		for _, i := range rows {
			inDup[i] = true
		}
	}
	for i, r := range matched.Rows {
		if inDup[i] {
			dups.Append(r.Clone())
		}
	}
	return dups, groups
}

// collectUnmatched emits every row that contributed to no joined pair,
// tagged with its source. The schema is the union of both extracts'
// columns so no unmatched value is dropped.
func collectUnmatched(db, med *keyedTable) *Table {
	out := NewTable()
	seen := make(map[string]bool)
	for _, cols := range [][]string{db.table.Columns, med.table.Columns} {
		for _, c := range cols {
			if !seen[c] {
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
	}
	if !seen[ColSource] {
		out.Columns = append(out.Columns, ColSource)
	}

	for _, kt := range []*keyedTable{db, med} {
		for i, r := range kt.table.Rows {
			if kt.used[i] {
				continue
			}
			u := &Record{
				cols:   make([]string, 0, len(out.Columns)),
				values: make(map[string]string, len(out.Columns)),
			}
			for _, c := range out.Columns {
				u.Set(c, r.Value(c))
			}
			if u.Has(ColChildDOB) {
				u.Set(ColChildDOB, kt.dobs[i])
			}
			u.Set(ColSource, string(kt.kind))
			titleNames(u)
			out.Append(u)
		}
	}
	return out
}
