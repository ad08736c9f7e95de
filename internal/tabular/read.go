package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// maxLine bounds a single JSON Lines record.
const maxLine = 64 << 20

// Read loads the table at path, choosing the format by extension.
func Read(path string) (*Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	t, err := ReadFrom(f, format)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ReadFrom decodes a table in the given format.
func ReadFrom(r io.Reader, format Format) (*Table, error) {
	switch format {
	case CSV:
		return readDelimited(r, ',', format)
	case TSV:
		return readDelimited(r, '\t', format)
	case JSONL:
		return readJSONL(r)
	case XLSX:
		return readXLSX(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func readDelimited(r io.Reader, comma rune, format Format) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	if comma == '\t' {
		cr.LazyQuotes = true
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}
	t := &Table{Format: format}
	if len(rows) == 0 {
		return t, nil
	}
	t.Header = rows[0]
	for _, row := range rows[1:] {
		t.Records = append(t.Records, Record{Values: row})
	}
	return t, nil
}

func readJSONL(r io.Reader) (*Table, error) {
	t := &Table{Format: JSONL}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t.Records = append(t.Records, Record{Raw: append(json.RawMessage(nil), raw...), Object: obj})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan jsonl: %w", err)
	}
	return t, nil
}

func readXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	t := &Table{Format: XLSX}
	if len(sheets) == 0 {
		return t, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return t, nil
	}
	t.Header = rows[0]
	for _, row := range rows[1:] {
		t.Records = append(t.Records, Record{Values: row})
	}
	return t, nil
}
