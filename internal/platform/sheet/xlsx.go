package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// readXLSX returns raw cell values of the first worksheet. Raw values keep
// date cells as serial numbers instead of locale-formatted strings.
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func writeXLSX(w io.Writer, g *Grid) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(defaultSheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	if err := setRow(sw, 1, g.Header); err != nil {
		return err
	}
	for i, row := range g.Rows {
		if err := setRow(sw, i+2, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

func setRow(sw *excelize.StreamWriter, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := sw.SetRow(cell, cells); err != nil {
		return fmt.Errorf("row %d: %w", n, err)
	}
	return nil
}
