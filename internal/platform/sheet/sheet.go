// Package sheet reads and writes header-first tabular files. Workbooks are
// handled with excelize (first sheet only) and delimited text with
// encoding/csv. Cells are always strings; typing is the caller's concern.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported sheet format")
	ErrEmptySheet        = errors.New("sheet has no header row")
)

// Format identifies an on-disk tabular encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// Ext returns the file extension including the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// ParseFormat maps a configuration value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFor infers the format from a path's extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Grid is a decoded sheet: a header row and data rows of equal width.
type Grid struct {
	Header []string
	Rows   [][]string
}

// Read decodes the file at path, choosing the codec by extension.
func Read(path string) (*Grid, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	var raw [][]string
	switch format {
	case FormatXLSX:
		raw, err = readXLSX(path)
	case FormatCSV:
		raw, err = readCSV(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return toGrid(raw)
}

// Write encodes g to path. The file is written to a sibling temp file and
// renamed into place so readers never observe a half-written sheet.
func Write(path string, g *Grid) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	return writeAtomic(path, format.Ext(), 0o600, func(w io.Writer) error {
		switch format {
		case FormatXLSX:
			return writeXLSX(w, g)
		default:
			return writeCSV(w, g)
		}
	})
}

// ReplaceFile puts data at path the same way Write does. It is used to put
// back a file saved earlier byte for byte, encrypted or not.
func ReplaceFile(path string, data []byte, perm os.FileMode) error {
	return writeAtomic(path, filepath.Ext(path), perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(path, ext string, perm os.FileMode, encode func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".rosterlink-*"+ext)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encode(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func toGrid(raw [][]string) (*Grid, error) {
	if len(raw) == 0 {
		return nil, ErrEmptySheet
	}

	header := make([]string, 0, len(raw[0]))
	for i, h := range raw[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header = append(header, strings.TrimSpace(h))
	}
	// Trailing blank header cells come from formatted but unused columns.
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, ErrEmptySheet
	}

	g := &Grid{Header: header, Rows: make([][]string, 0, len(raw)-1)}
	for _, r := range raw[1:] {
		if blank(r) {
			continue
		}
		row := make([]string, len(header))
		copy(row, r)
		g.Rows = append(g.Rows, row)
	}
	return g, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
