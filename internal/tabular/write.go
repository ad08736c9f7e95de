package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hyperjump/neardup/pkg/utils"
	"github.com/xuri/excelize/v2"
)

// Write stores t at path in the format implied by the extension. The file
// only appears once fully written.
func Write(path string, t *Table) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if format != t.Format && (format == JSONL) != (t.Format == JSONL) {
		return fmt.Errorf("cannot write %s rows as %s", t.Format, format)
	}
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteTo(w, t, format)
	})
}

// WriteTo encodes t in format.
func WriteTo(w io.Writer, t *Table, format Format) error {
	switch format {
	case CSV:
		return writeDelimited(w, t, ',')
	case TSV:
		return writeDelimited(w, t, '\t')
	case JSONL:
		for _, r := range t.Records {
			if _, err := w.Write(append(r.Raw, '\n')); err != nil {
				return fmt.Errorf("write jsonl: %w", err)
			}
		}
		return nil
	case XLSX:
		return writeXLSX(w, t.Header, recordValues(t))
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func recordValues(t *Table) [][]string {
	rows := make([][]string, len(t.Records))
	for i, r := range t.Records {
		rows[i] = r.Values
	}
	return rows
}

func writeDelimited(w io.Writer, t *Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, r := range t.Records {
		if err := cw.Write(r.Values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSheet writes header and rows as the first sheet of a new workbook.
func WriteSheet(w io.Writer, header []string, rows [][]string) error {
	return writeXLSX(w, header, rows)
}

func writeXLSX(w io.Writer, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	write := func(n int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}
	n := 1
	if len(header) > 0 {
		if err := write(n, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		n++
	}
	for i, r := range rows {
		if err := write(n+i, r); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
