// Package export writes CSV files in the format the web client expects:
// text fields are always double-quoted with embedded quotes doubled, and
// numbers are written bare.
package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Cell is one already-encoded CSV field.
type Cell string

// Text encodes s as a quoted field.
func Text(s string) Cell {
	return Cell(`"` + strings.ReplaceAll(s, `"`, `""`) + `"`)
}

// Money encodes d as a bare decimal with two places.
func Money(d decimal.Decimal) Cell {
	return Cell(d.StringFixed(2))
}

// Number encodes d as a bare decimal without padding.
func Number(d decimal.Decimal) Cell {
	return Cell(d.String())
}

// Bool encodes b as a bare true/false.
func Bool(b bool) Cell {
	return Cell(strconv.FormatBool(b))
}

// Writer writes CSV rows with CRLF line endings.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Header writes a header row. Header names are plain text.
func (w *Writer) Header(names ...string) {
	cells := make([]Cell, len(names))
	for i, name := range names {
		cells[i] = Cell(name)
	}
	w.Row(cells...)
}

// Row writes one record. After the first error all writes are skipped.
func (w *Writer) Row(cells ...Cell) {
	if w.err != nil {
		return
	}
	for i, cell := range cells {
		if i > 0 {
			if w.err = w.w.WriteByte(','); w.err != nil {
				return
			}
		}
		if _, w.err = w.w.WriteString(string(cell)); w.err != nil {
			return
		}
	}
	_, w.err = w.w.WriteString("\r\n")
}

// Flush writes buffered data and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}
