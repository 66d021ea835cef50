// Package row flattens tracked bodies into fixed-width CSV rows.
package row

import (
	"strconv"
	"strings"
)

// Separator is written between the fields of a row and between header columns.
const Separator = ", "

// Kind tells how a Field is rendered.
type Kind uint8

const (
	Sentinel Kind = iota // Placeholder for an absent value, rendered as NaN
	Verbatim             // Text copied from the input as is
	Float                // Number parsed from the input
)

// A Field is one cell of a row.
type Field struct {
	Kind  Kind
	Text  string
	Value float64
}

// NaN is the field written in place of any missing value.
var NaN = Field{Kind: Sentinel}

func VerbatimField(s string) Field {
	return Field{Kind: Verbatim, Text: s}
}

func FloatField(x float64) Field {
	return Field{Kind: Float, Value: x}
}

func (f Field) String() string {
	switch f.Kind {
	case Verbatim:
		return f.Text
	case Float:
		return strconv.FormatFloat(f.Value, 'f', -1, 64)
	default:
		return "NaN"
	}
}

// A Row is the ordered list of fields produced for one frame.
type Row []Field

func (r Row) Len() int {
	return len(r)
}

// String joins the fields with Separator.
func (r Row) String() string {
	var b strings.Builder
	for i, f := range r {
		if i > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(f.String())
	}
	return b.String()
}
