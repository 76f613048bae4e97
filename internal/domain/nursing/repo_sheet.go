package nursing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ehr/rosterlink/internal/domain/roster"
	"github.com/ehr/rosterlink/internal/platform/sheet"
)

var logColumns = []string{
	ColVisitID,
	roster.ColMotherID,
	roster.ColChildFirstName,
	roster.ColChildLastName,
	ColNurseName,
	ColVisitTime,
}

// SheetVisitRepository keeps the visit log as a sheet file. Appends rewrite
// the whole file; columns added by hand are preserved.
type SheetVisitRepository struct {
	path  string
	vault roster.Vault
}

// NewSheetVisitRepository stores the log in dir using format.
func NewSheetVisitRepository(dir string, format sheet.Format, vault roster.Vault) *SheetVisitRepository {
	return &SheetVisitRepository{
		path:  filepath.Join(dir, LogFile+format.Ext()),
		vault: vault,
	}
}

// Path returns the log file location.
func (r *SheetVisitRepository) Path() string {
	return r.path
}

func (r *SheetVisitRepository) load() (*roster.Table, error) {
	if _, err := os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		return roster.NewTable(logColumns...), nil
	}
	t, err := roster.ReadTable(r.path, r.vault)
	if err != nil {
		return nil, fmt.Errorf("read visit log: %w", err)
	}
	for _, c := range logColumns {
		t.AddColumn(c, "")
	}
	return t, nil
}

func (r *SheetVisitRepository) Append(_ context.Context, v *Visit) error {
	t, err := r.load()
	if err != nil {
		return err
	}

	next := 1
	for _, row := range t.Rows {
		if id, ok := parseVisitID(row.Value(ColVisitID)); ok && id >= next {
			next = id + 1
		}
	}
	v.ID = next

	t.Append(roster.RecordFrom(logColumns, []string{
		strconv.Itoa(v.ID),
		v.MotherID,
		v.ChildFirstName,
		v.ChildLastName,
		v.NurseName,
		v.TimeString(),
	}))
	if err := sheet.Write(r.path, roster.TableToGrid(t)); err != nil {
		return fmt.Errorf("write visit log: %w", err)
	}
	return nil
}

func (r *SheetVisitRepository) List(_ context.Context) ([]*Visit, error) {
	t, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*Visit, 0, t.Len())
	for _, row := range t.Rows {
		out = append(out, visitFromRecord(row))
	}
	return out, nil
}

func visitFromRecord(row *roster.Record) *Visit {
	v := &Visit{
		MotherID:       row.Value(roster.ColMotherID),
		ChildFirstName: row.Value(roster.ColChildFirstName),
		ChildLastName:  row.Value(roster.ColChildLastName),
		NurseName:      row.Value(ColNurseName),
	}
	if id, ok := parseVisitID(row.Value(ColVisitID)); ok {
		v.ID = id
	}
	raw := strings.TrimSpace(row.Value(ColVisitTime))
	if t, err := time.ParseInLocation(VisitTimeLayout, raw, time.Local); err == nil {
		v.Time = t
	} else {
		v.RawTime = raw
	}
	return v
}

// parseVisitID accepts integers and the whole-number floats spreadsheet
// tools sometimes write ("12.0").
func parseVisitID(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
