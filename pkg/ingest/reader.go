// Package ingest decodes uploaded delimited-text files into header-keyed rows.
package ingest

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Row maps a header column name to its trimmed cell value
type Row map[string]string

// Get returns the value of a column, "" when the column is absent
func (r Row) Get(column string) string {
	return r[column]
}

// Has reports whether a column is present with a non-empty value
func (r Row) Has(column string) bool {
	return r[column] != ""
}

// DecodeError reports a structural problem with the input stream.
// Once returned, the Reader yields the same error for every further call.
type DecodeError struct {
	Line int // 1-based input line where decoding failed, 0 if unknown
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return "decode line " + strconv.Itoa(e.Line) + ": " + e.Err.Error()
	}
	return "decode: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Reader yields one Row per non-blank data record of a comma-separated stream.
// The first record is the header. The sequence is lazy and cannot be restarted.
type Reader struct {
	cr     *csv.Reader
	header []string
	err    error
}

// NewReader wraps r. Nothing is read until the first call to Next.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(stripBOM(bufio.NewReader(r)))
	cr.TrimLeadingSpace = true
	// Field counts are checked against the header after blank lines are dropped
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Reader{cr: cr}
}

// Header returns the trimmed header columns, nil before the first Next
func (r *Reader) Header() []string {
	return r.header
}

// Next returns the next data row. It returns io.EOF when the stream is exhausted
// (including a stream with no header at all) and a *DecodeError on malformed input.
func (r *Reader) Next() (Row, error) {
	if r.err != nil {
		return nil, r.err
	}

	if r.header == nil {
		rec, err := r.cr.Read()
		if err != nil {
			return nil, r.fail(err)
		}
		r.header = make([]string, len(rec))
		for i, col := range rec {
			r.header[i] = strings.TrimSpace(col)
		}
	}

	for {
		rec, err := r.cr.Read()
		if err != nil {
			return nil, r.fail(err)
		}
		if isBlank(rec) {
			continue
		}
		if len(rec) != len(r.header) {
			line, _ := r.cr.FieldPos(0)
			r.err = &DecodeError{
				Line: line,
				Err:  errors.Newf("record has %d fields, header has %d", len(rec), len(r.header)),
			}
			return nil, r.err
		}
		row := make(Row, len(r.header))
		for i, col := range r.header {
			row[col] = strings.TrimSpace(rec[i])
		}
		return row, nil
	}
}

func (r *Reader) fail(err error) error {
	if errors.Is(err, io.EOF) {
		r.err = io.EOF
		return r.err
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		r.err = &DecodeError{Line: pe.Line, Err: err}
		return r.err
	}
	r.err = &DecodeError{Err: errors.Wrap(err, "read input")}
	return r.err
}

// isBlank reports a record whose cells are all whitespace, e.g. a line with a single space
func isBlank(rec []string) bool {
	if len(rec) != 1 {
		return false
	}
	return strings.TrimSpace(rec[0]) == ""
}

func stripBOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}
