package core

// csv.go converts between raw CSV text and the row model.
//
// Parsing rules:
//   - A leading UTF-8 BOM is dropped
//   - The first record is the header; cells are taken literally
//   - Records may have any number of cells. Missing cells are absent from
//     the Row, extra cells past the header are ignored
//   - Blank records (no cell has content) are skipped
//   - With duplicate headers the later column wins for the shared key
//
// Serializing quotes cells containing a comma, quote, CR or LF, doubles
// embedded quotes, and terminates every record with CRLF.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Parse reads CSV text into headers and rows.
func Parse(r io.Reader) (*ParsedCSV, error) {
	reader := csv.NewReader(NewBOMSkippingReader(r))
	reader.FieldsPerRecord = -1 // rows may be ragged

	out := &ParsedCSV{Headers: []string{}, Data: []Row{}}
	haveHeader := false

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, toParseError(err)
		}

		if col := invalidUTF8Cell(record); col >= 0 {
			line, _ := reader.FieldPos(col)
			return nil, &ParseError{
				Line: line,
				Err:  fmt.Errorf("%w: invalid UTF-8 in column %d", ErrEncoding, col+1),
			}
		}

		if !haveHeader {
			out.Headers = record
			haveHeader = true
			continue
		}

		if isBlankRecord(record) {
			continue
		}

		row := make(Row, len(out.Headers))
		for i, h := range out.Headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		out.Data = append(out.Data, row)
	}

	out.RowCount = len(out.Data)
	return out, nil
}

// ParseBytes parses an in-memory CSV file.
func ParseBytes(data []byte) (*ParsedCSV, error) {
	return Parse(bytes.NewReader(data))
}

// ParseString parses CSV text.
func ParseString(s string) (*ParsedCSV, error) {
	return Parse(strings.NewReader(s))
}

// toParseError converts an encoding/csv error into a *ParseError.
func toParseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: csvErr.Err}
	}
	if errors.Is(err, ErrFileTooLarge) {
		return err
	}
	return &ParseError{Err: err}
}

// invalidUTF8Cell returns the index of the first cell that is not valid UTF-8, or -1.
func invalidUTF8Cell(record []string) int {
	for i, cell := range record {
		if !utf8.ValidString(cell) {
			return i
		}
	}
	return -1
}

// isBlankRecord reports whether record came from a line with no content.
// A line of bare separators such as "," is a row of empty cells and is kept.
func isBlankRecord(record []string) bool {
	return len(record) == 1 && record[0] == ""
}

// DecodeCharset returns a reader that converts r from the named character set
// to UTF-8. Names follow the WHATWG encoding labels ("windows-1252",
// "iso-8859-1", "shift_jis", ...). An empty name or any UTF-8 label returns r
// unchanged.
func DecodeCharset(r io.Reader, name string) (io.Reader, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("%w: unknown charset %q", ErrEncoding, name)}
	}
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// Serialize writes rows as CSV. The header is used as given; when empty it is
// taken from the keys of the first row in sorted order. No rows writes nothing.
func Serialize(w io.Writer, rows []CanonicalRow, header []string) error {
	if len(rows) == 0 {
		return nil
	}
	if len(header) == 0 {
		header = sortedKeys(rows[0])
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for i, row := range rows {
		for j, h := range header {
			record[j] = row[h]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SerializeString is Serialize into a string.
func SerializeString(rows []CanonicalRow, header []string) (string, error) {
	var b strings.Builder
	if err := Serialize(&b, rows, header); err != nil {
		return "", err
	}
	return b.String(), nil
}

func sortedKeys(row CanonicalRow) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
