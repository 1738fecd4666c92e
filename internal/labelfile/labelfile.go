// Package labelfile reads and writes synergy label CSV files.
package labelfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ramonehamilton/mtga-synergy/internal/synergy"
)

// Header is the column layout of a label file.
var Header = []string{
	"card_a", "card_b",
	"n11", "w11", "p11",
	"n10", "w10", "p10",
	"n01", "w01", "p01",
	"n00", "w00", "p00",
	"syn_delta",
}

var (
	// ErrMissingColumn is returned when a label file lacks a required column.
	ErrMissingColumn = errors.New("label file is missing a column")
	// ErrMalformedRow wraps per-row read and parse failures.
	ErrMalformedRow = errors.New("malformed label row")
)

// Writer writes label records as CSV.
type Writer struct {
	csv    *csv.Writer
	closer io.Closer
	count  int
	record []string
}

// NewWriter writes the header to w and returns a Writer.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("write label header: %w", err)
	}
	return &Writer{csv: cw, record: make([]string, len(Header))}, nil
}

// Create creates (or truncates) a label file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create label file: %w", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// Write appends one record.
func (w *Writer) Write(rec synergy.LabelRecord) error {
	r := w.record
	r[0] = strconv.FormatUint(rec.CardA, 10)
	r[1] = strconv.FormatUint(rec.CardB, 10)
	r[2], r[3], r[4] = formatBucket(rec.N11, rec.W11, rec.P11)
	r[5], r[6], r[7] = formatBucket(rec.N10, rec.W10, rec.P10)
	r[8], r[9], r[10] = formatBucket(rec.N01, rec.W01, rec.P01)
	r[11], r[12], r[13] = formatBucket(rec.N00, rec.W00, rec.P00)
	r[14] = formatFloat(rec.SynDelta)

	if err := w.csv.Write(r); err != nil {
		return fmt.Errorf("write label %d/%d: %w", rec.CardA, rec.CardB, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.count
}

// Flush writes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush labels: %w", err)
	}
	return nil
}

// Close flushes and closes the file opened by Create.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close label file: %w", cerr)
		}
	}
	return err
}

func formatBucket(n, wins uint64, p float64) (string, string, string) {
	return strconv.FormatUint(n, 10), strconv.FormatUint(wins, 10), formatFloat(p)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// Row is one parsed label line.
type Row struct {
	// Line is the 1-based CSV record number, header included.
	Line   int
	Record synergy.LabelRecord
	// present has bit i set when Header[i] was read from this row.
	present uint16
}

// Present reports whether column name was in the file and parsed on this row.
func (r Row) Present(name string) bool {
	i := slices.Index(Header, name)
	return i >= 0 && r.present&(1<<i) != 0
}

// Required lists the columns every label file must carry.
var Required = []string{"card_a", "card_b", "syn_delta"}

// Read yields the rows of a label file. Columns are found by name; only the
// Required ones must exist and parse, the rest are read when present and
// left zero otherwise (see Row.Present).
//
// A row that cannot be parsed yields an error wrapping ErrMalformedRow and
// reading continues. A missing column or read failure yields an error and
// ends iteration.
func Read(r io.Reader) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		cr := csv.NewReader(r)
		cr.TrimLeadingSpace = true

		header, err := cr.Read()
		if err != nil {
			yield(Row{}, fmt.Errorf("read label header: %w", err))
			return
		}
		cols := make(map[string]int, len(header))
		for i, h := range header {
			cols[strings.TrimSpace(h)] = i
		}
		idx := make([]int, len(Header))
		for i, name := range Header {
			j, ok := cols[name]
			if !ok {
				if slices.Contains(Required, name) {
					yield(Row{}, fmt.Errorf("%w: %s", ErrMissingColumn, name))
					return
				}
				j = -1
			}
			idx[i] = j
		}

		line := 1
		for {
			record, err := cr.Read()
			if err == io.EOF {
				return
			}
			line++
			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					if !yield(Row{Line: line}, fmt.Errorf("line %d: %w: %w", line, ErrMalformedRow, err)) {
						return
					}
					continue
				}
				yield(Row{Line: line}, fmt.Errorf("read labels: %w", err))
				return
			}

			row := parseRow(record, idx)
			row.Line = line
			if row.err != nil {
				err = fmt.Errorf("line %d: %w: %w", line, ErrMalformedRow, row.err)
			}
			if !yield(row.Row, err) {
				return
			}
		}
	}
}

type parsedRow struct {
	Row
	err error
}

func parseRow(record []string, idx []int) parsedRow {
	p := fieldParser{record: record, idx: idx}
	rec := synergy.LabelRecord{
		CardA:    p.uint(0),
		CardB:    p.uint(1),
		N11:      p.uint(2),
		W11:      p.uint(3),
		P11:      p.float(4),
		N10:      p.uint(5),
		W10:      p.uint(6),
		P10:      p.float(7),
		N01:      p.uint(8),
		W01:      p.uint(9),
		P01:      p.float(10),
		N00:      p.uint(11),
		W00:      p.uint(12),
		P00:      p.float(13),
		SynDelta: p.float(14),
	}
	return parsedRow{Row: Row{Record: rec, present: p.present}, err: p.err}
}

// fieldParser keeps the first error on a required column so a row reads in
// one pass. Optional columns that are absent or unparsable stay zero.
type fieldParser struct {
	record  []string
	idx     []int
	present uint16
	err     error
}

func (p *fieldParser) field(i int) (string, bool) {
	j := p.idx[i]
	if j < 0 {
		return "", false
	}
	if j >= len(p.record) {
		p.fail(i, errors.New("missing field"))
		return "", false
	}
	return strings.TrimSpace(p.record[j]), true
}

func (p *fieldParser) fail(i int, err error) {
	if p.err == nil && slices.Contains(Required, Header[i]) {
		p.err = fmt.Errorf("field %s: %w", Header[i], err)
	}
}

func (p *fieldParser) uint(i int) uint64 {
	s, ok := p.field(i)
	if !ok {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		p.fail(i, err)
		return 0
	}
	p.present |= 1 << i
	return v
}

func (p *fieldParser) float(i int) float64 {
	s, ok := p.field(i)
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(i, err)
		return 0
	}
	p.present |= 1 << i
	return v
}
