package roster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ehr/rosterlink/internal/platform/sheet"
)

// SheetRepository stores each partition as one sheet file in a directory.
type SheetRepository struct {
	dir    string
	format sheet.Format
	vault  Vault
}

// NewSheetRepository creates a repository rooted at dir. vault may be nil,
// in which case encrypted files are not detected.
func NewSheetRepository(dir string, format sheet.Format, vault Vault) *SheetRepository {
	return &SheetRepository{dir: dir, format: format, vault: vault}
}

// Path returns the file backing a partition.
func (r *SheetRepository) Path(partition string) string {
	return filepath.Join(r.dir, partition+r.format.Ext())
}

// Save overwrites the partition file with t.
func (r *SheetRepository) Save(_ context.Context, partition string, t *Table) error {
	if err := sheet.Write(r.Path(partition), TableToGrid(t)); err != nil {
		return fmt.Errorf("save %s: %w", partition, err)
	}
	return nil
}

// Load reads the partition file, decrypting it first when needed.
func (r *SheetRepository) Load(_ context.Context, partition string) (*Table, error) {
	path := r.Path(partition)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", partition, ErrNoData)
	}
	t, err := ReadTable(path, r.vault)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", partition, err)
	}
	return t, nil
}

// ReadTable reads any sheet file into a Table, decrypting it in place first
// if vault reports it encrypted. Headers get NormalizeHeader applied and
// repeated headers are numbered so no column is lost.
func ReadTable(path string, vault Vault) (*Table, error) {
	if vault != nil {
		encrypted, err := vault.IsEncrypted(path)
		if err != nil {
			return nil, err
		}
		if encrypted {
			if err := vault.DecryptFile(path); err != nil {
				return nil, fmt.Errorf("decrypt %s: %w", path, err)
			}
		}
	}

	g, err := sheet.Read(path)
	if err != nil {
		return nil, err
	}
	return GridToTable(g), nil
}

// GridToTable converts a decoded sheet into records.
func GridToTable(g *sheet.Grid) *Table {
	header := make([]string, len(g.Header))
	seen := make(map[string]int, len(g.Header))
	for i, h := range g.Header {
		name := NormalizeHeader(h)
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n)
		} else {
			seen[name] = 1
		}
		header[i] = name
	}

	t := &Table{Columns: header, Rows: make([]*Record, 0, len(g.Rows))}
	for _, row := range g.Rows {
		t.Rows = append(t.Rows, RecordFrom(header, row))
	}
	return t
}

// TableToGrid flattens t in schema order. Columns a row lacks are written
// blank.
func TableToGrid(t *Table) *sheet.Grid {
	g := &sheet.Grid{
		Header: append([]string(nil), t.Columns...),
		Rows:   make([][]string, 0, len(t.Rows)),
	}
	for _, r := range t.Rows {
		g.Rows = append(g.Rows, r.Values(t.Columns))
	}
	return g
}
