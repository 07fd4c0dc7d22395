package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// headerInfo is the reconciled header line of an import file.
type headerInfo struct {
	columns []string // canonical column names in file order
	found   []string // cells as written in the file
	missing []string // required columns not present
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

// splitLines turns file content into lines. The content is trimmed first so
// leading and trailing blank lines never reach the row loop. Lines are split
// on "\n" and a trailing "\r" is dropped.
func splitLines(data []byte) []string {
	data = bytes.TrimPrefix(data, utf8BOM)
	content := strings.TrimSpace(string(sanitizeUTF8(data)))
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// parseLine parses one line as a comma-separated record. Quoted fields may
// contain commas; a stray quote inside an unquoted field is kept literally.
// An empty line is a single empty field.
func parseLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	fields, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []string{""}, nil
	}
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// reconcileHeader maps header cells to canonical columns and reports which
// required columns are missing. Unknown columns are kept so field positions
// line up; they are ignored later.
func reconcileHeader(cells []string) headerInfo {
	h := headerInfo{
		columns: make([]string, len(cells)),
		found:   make([]string, len(cells)),
	}

	present := make(map[string]bool, len(cells))
	for i, cell := range cells {
		h.found[i] = strings.TrimSpace(cell)
		h.columns[i] = canonicalColumn(cell)
		present[h.columns[i]] = true
	}

	for _, col := range RequiredColumns {
		if !present[col] {
			h.missing = append(h.missing, col)
		}
	}
	return h
}

// diagnostic renders the missing-header report shown to the owner.
func (h headerInfo) diagnostic() []string {
	return []string{
		"Missing required columns: " + strings.Join(h.missing, ", "),
		"Columns found: " + strings.Join(h.found, ", "),
		"Expected columns: " + strings.Join(RequiredColumns, ", "),
	}
}

// columnCountMessage is the row error for a field-count mismatch.
func columnCountMessage(line, expected, found int) string {
	return fmt.Sprintf("Line %d: Incorrect number of columns. Expected: %d, Found: %d", line, expected, found)
}
