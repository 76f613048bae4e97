// Package sandbox generates synthetic Database and Medicaid extracts for
// demos and end-to-end testing. Output is reproducible for a given seed and
// reference date.
package sandbox

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/ehr/rosterlink/internal/domain/roster"
	"github.com/ehr/rosterlink/internal/platform/sheet"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config controls the volume and shape of generated extracts.
type Config struct {
	// Pairs is the number of mother/child records present in both extracts.
	Pairs             int   `json:"pairs" yaml:"pairs"`
	UnmatchedDatabase int   `json:"unmatchedDatabase" yaml:"unmatched_database"`
	UnmatchedMedicaid int   `json:"unmatchedMedicaid" yaml:"unmatched_medicaid"`
	Duplicates        int   `json:"duplicates" yaml:"duplicates"`
	Seed              int64 `json:"seed" yaml:"seed"`
	// Today anchors generated ages. Zero means the current date.
	Today time.Time `json:"today" yaml:"today"`
}

// DefaultConfig returns a Config sized like a small county roster.
func DefaultConfig() Config {
	return Config{
		Pairs:             100,
		UnmatchedDatabase: 5,
		UnmatchedMedicaid: 5,
		Duplicates:        3,
	}
}

// Database extract headers, in the spelling the case-management export uses.
var databaseHeaders = []string{
	"LHD", "Child ID", "Child First Name", "Child Last Name", "Child Date of Birth",
	"Mother ID", "Mother First Name", "Mother Last Name", "Mother's Date of Birth",
	"Phone Number", "Street", "City", "State", "Zip", "County",
}

// Medicaid extract headers. Mother names use the HOH spelling and dates are
// written MM/DD/YYYY.
var medicaidHeaders = []string{
	"Medicaid ID", "Child First Name", "Child Last Name", "Child DOB",
	"Mother ID", "HOH/Mother's First Name", "Last Name",
	"Street", "City", "State", "Zip", "MCO Name",
}

const medicaidDateLayout = "01/02/2006"

// maxChildAgeDays keeps children under four years old.
const maxChildAgeDays = 365*3 + 9*30

var (
	firstNamesMale = []string{
		"James", "Robert", "John", "Michael", "David", "William", "Richard",
		"Joseph", "Thomas", "Christopher", "Charles", "Daniel", "Matthew",
		"Anthony", "Mark", "Steven", "Paul", "Andrew", "Joshua", "Kevin",
		"Brian", "George", "Timothy", "Edward", "Jason", "Ryan", "Jacob",
		"Eric", "Samuel", "Benjamin", "Patrick", "Jack", "Tyler", "Noah",
	}
	firstNamesFemale = []string{
		"Mary", "Patricia", "Jennifer", "Linda", "Barbara", "Elizabeth",
		"Susan", "Jessica", "Sarah", "Karen", "Lisa", "Nancy", "Betty",
		"Margaret", "Sandra", "Ashley", "Dorothy", "Kimberly", "Emily",
		"Donna", "Michelle", "Carol", "Amanda", "Melissa", "Deborah",
		"Stephanie", "Rebecca", "Sharon", "Laura", "Cynthia", "Kathleen",
		"Amy", "Angela", "Anna", "Brenda", "Emma", "Nicole", "Helen",
		"Samantha", "Katherine", "Rachel", "Janet", "Maria", "Heather",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
		"Miller", "Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez",
		"Gonzalez", "Wilson", "Anderson", "Thomas", "Taylor", "Moore",
		"Jackson", "Martin", "Lee", "Perez", "Thompson", "White", "Harris",
		"Sanchez", "Clark", "Ramirez", "Lewis", "Robinson", "Walker",
		"Young", "Allen", "King", "Wright", "Scott", "Torres", "Nguyen",
		"Hill", "Flores", "Green", "Adams", "Nelson", "Baker", "Hall",
	}
	streets = []string{
		"123 Main St", "456 Oak Ave", "789 Elm St", "321 Pine Rd",
		"654 Maple Dr", "987 Cedar Ln", "147 Birch Blvd", "258 Walnut Way",
		"369 Cherry Ct", "741 Spruce Pl", "852 Willow Rd", "963 Ash St",
	}
	// towns share one state so children-per-town reports stay readable.
	towns = []struct{ City, ZIP, County string }{
		{"Columbus", "43201", "Franklin"},
		{"Dayton", "45402", "Montgomery"},
		{"Akron", "44308", "Summit"},
		{"Toledo", "43604", "Lucas"},
		{"Canton", "44702", "Stark"},
		{"Athens", "45701", "Athens"},
		{"Marietta", "45750", "Washington"},
		{"Zanesville", "43701", "Muskingum"},
	}
	healthDepartments = []string{
		"Franklin County LHD", "Summit County LHD", "Lucas County LHD", "Athens City-County LHD",
	}
	managedCarePlans = []string{
		"Buckeye Health Plan", "CareSource", "Molina Healthcare", "UnitedHealthcare Community Plan",
	}
)

// ---------------------------------------------------------------------------
// Generator
// ---------------------------------------------------------------------------

// Extracts holds one generated pair of source tables.
type Extracts struct {
	Database *roster.Table
	Medicaid *roster.Table
}

// Result summarizes a generation run.
type Result struct {
	Pairs         int           `json:"pairs"`
	DatabaseRows  int           `json:"databaseRows"`
	MedicaidRows  int           `json:"medicaidRows"`
	Duplicates    int           `json:"duplicates"`
	ExpectMatched int           `json:"expectMatched"`
	Duration      time.Duration `json:"duration"`
}

// Generator produces deterministic synthetic extracts.
type Generator struct {
	config Config
	rng    *rand.Rand
	today  time.Time
	used   map[string]bool
}

// NewGenerator returns a generator for cfg. A zero seed picks a time-based one.
func NewGenerator(cfg Config) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	today := cfg.Today
	if today.IsZero() {
		today = time.Now()
	}
	y, m, d := today.Date()
	return &Generator{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
		today:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}
}

// person is one mother/child pair before it is laid out for an extract.
type person struct {
	motherID    string
	motherFirst string
	motherLast  string
	motherDOB   time.Time
	childFirst  string
	childLast   string
	childDOB    time.Time
	street      string
	town        int
	phone       string
}

func (g *Generator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

// nextID returns a random identifier of exactly digits digits.
func (g *Generator) nextID(digits int) string {
	rest := int64(1)
	for i := 1; i < digits; i++ {
		rest *= 10
	}
	return fmt.Sprintf("%d%0*d", 1+g.rng.Intn(9), digits-1, g.rng.Int63n(rest))
}

func (g *Generator) randomPhone() string {
	return fmt.Sprintf("(%03d) %03d-%04d",
		200+g.rng.Intn(800),
		200+g.rng.Intn(800),
		g.rng.Intn(10000),
	)
}

// newPerson draws a pair whose match key differs from every earlier one.
func (g *Generator) newPerson() person {
	for {
		p := person{
			motherFirst: g.pick(firstNamesFemale),
			motherLast:  g.pick(lastNames),
			childDOB:    g.today.AddDate(0, 0, -g.rng.Intn(maxChildAgeDays+1)),
		}
		key := strings.ToLower(p.motherFirst+"|"+p.motherLast) + "|" + p.childDOB.Format(roster.ISODate)
		if g.used[key] {
			continue
		}
		g.used[key] = true

		if g.rng.Intn(2) == 0 {
			p.childFirst = g.pick(firstNamesMale)
		} else {
			p.childFirst = g.pick(firstNamesFemale)
		}
		p.childLast = p.motherLast
		if g.rng.Intn(4) == 0 {
			p.childLast = g.pick(lastNames)
		}
		p.motherID = g.nextID(9)
		p.motherDOB = g.today.AddDate(-18-g.rng.Intn(33), -g.rng.Intn(12), -g.rng.Intn(28))
		p.street = g.pick(streets)
		p.town = g.rng.Intn(len(towns))
		p.phone = g.randomPhone()
		return p
	}
}

func (g *Generator) databaseRow(p person) *roster.Record {
	t := towns[p.town]
	return roster.RecordFrom(databaseHeaders, []string{
		g.pick(healthDepartments),
		g.nextID(5),
		p.childFirst,
		p.childLast,
		p.childDOB.Format(roster.ISODate),
		p.motherID,
		p.motherFirst,
		p.motherLast,
		p.motherDOB.Format(roster.ISODate),
		p.phone,
		p.street,
		t.City,
		"OH",
		t.ZIP,
		t.County,
	})
}

// medicaidRow lays p out the way the Medicaid extract does. Mother names
// vary in case and padding so that matching depends on normalization.
func (g *Generator) medicaidRow(p person) *roster.Record {
	t := towns[p.town]
	first, last := p.motherFirst, p.motherLast
	switch g.rng.Intn(3) {
	case 0:
		first, last = strings.ToUpper(first), strings.ToUpper(last)
	case 1:
		first, last = " "+first, last+" "
	}
	return roster.RecordFrom(medicaidHeaders, []string{
		"MCD" + g.nextID(8),
		p.childFirst,
		p.childLast,
		p.childDOB.Format(medicaidDateLayout),
		p.motherID,
		first,
		last,
		p.street,
		t.City,
		"OH",
		t.ZIP,
		g.pick(managedCarePlans),
	})
}

// Generate builds both extracts. Pairs appear on both sides; unmatched
// extras appear on one side only; duplicates repeat paired Database rows.
func (g *Generator) Generate() (*Extracts, *Result) {
	start := time.Now()
	g.used = make(map[string]bool)
	cfg := g.config

	out := &Extracts{
		Database: roster.NewTable(databaseHeaders...),
		Medicaid: roster.NewTable(medicaidHeaders...),
	}

	for i := 0; i < cfg.Pairs; i++ {
		p := g.newPerson()
		out.Database.Append(g.databaseRow(p))
		out.Medicaid.Append(g.medicaidRow(p))
	}
	for i := 0; i < cfg.UnmatchedDatabase; i++ {
		out.Database.Append(g.databaseRow(g.newPerson()))
	}
	for i := 0; i < cfg.UnmatchedMedicaid; i++ {
		out.Medicaid.Append(g.medicaidRow(g.newPerson()))
	}

	dups := 0
	if cfg.Pairs > 0 {
		for ; dups < cfg.Duplicates; dups++ {
			out.Database.Append(out.Database.Rows[g.rng.Intn(cfg.Pairs)].Clone())
		}
	}

	return out, &Result{
		Pairs:         cfg.Pairs,
		DatabaseRows:  out.Database.Len(),
		MedicaidRows:  out.Medicaid.Len(),
		Duplicates:    dups,
		ExpectMatched: cfg.Pairs + dups,
		Duration:      time.Since(start),
	}
}

// Sheet file names written by WriteSheets, without extension.
const (
	DatabaseFile = "database_extract"
	MedicaidFile = "medicaid_extract"
)

// WriteSheets writes both extracts to dir in the given format and returns
// their paths, Database first.
func WriteSheets(dir string, format sheet.Format, e *Extracts) (string, string, error) {
	dbPath := filepath.Join(dir, DatabaseFile+format.Ext())
	medPath := filepath.Join(dir, MedicaidFile+format.Ext())
	if err := sheet.Write(dbPath, roster.TableToGrid(e.Database)); err != nil {
		return "", "", fmt.Errorf("write database extract: %w", err)
	}
	if err := sheet.Write(medPath, roster.TableToGrid(e.Medicaid)); err != nil {
		return "", "", fmt.Errorf("write medicaid extract: %w", err)
	}
	return dbPath, medPath, nil
}
