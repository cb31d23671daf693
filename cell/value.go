package cell

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies what a Value holds.
type Kind int

const (
	KindMissing Kind = iota
	KindText
	KindNumber
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindArray:
		return "array"
	default:
		return "missing"
	}
}

// ErrorPrefix marks a text cell that carries an error message.
const ErrorPrefix = "Error:"

// Value is a typed cell handed back to the host grid. A Value is either a
// scalar (text or number), the missing sentinel, or a rectangular array of
// scalars stored row-major.
type Value struct {
	kind   Kind
	text   string
	num    float64
	width  int
	height int
	cells  []Value
}

// FromString returns a text cell.
func FromString(s string) Value {
	return Value{kind: KindText, text: s}
}

// FromFloat returns a numeric cell.
func FromFloat(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Missing returns the "no data" sentinel.
func Missing() Value {
	return Value{kind: KindMissing}
}

// FromArray packs cells row-major into a width x height array. Short input is
// padded with Missing and surplus cells are dropped, so the result always
// holds exactly width*height cells.
func FromArray(width, height int, cells []Value) Value {
	width = max(width, 0)
	height = max(height, 0)
	packed := make([]Value, width*height)
	for i := range packed {
		if i < len(cells) {
			packed[i] = cells[i]
		} else {
			packed[i] = Missing()
		}
	}
	return Value{kind: KindArray, width: width, height: height, cells: packed}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Text returns the text of a text cell, or "" for any other kind.
func (v Value) Text() string {
	return v.text
}

// Float returns the number held by a numeric cell and whether it is one.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Width returns the number of columns; scalars are 1x1, Missing is 0x0.
func (v Value) Width() int {
	switch v.kind {
	case KindArray:
		return v.width
	case KindMissing:
		return 0
	default:
		return 1
	}
}

// Height returns the number of rows; scalars are 1x1, Missing is 0x0.
func (v Value) Height() int {
	switch v.kind {
	case KindArray:
		return v.height
	case KindMissing:
		return 0
	default:
		return 1
	}
}

// Cells returns a copy of the row-major cells of an array, or the value
// itself as a single cell for scalars.
func (v Value) Cells() []Value {
	switch v.kind {
	case KindArray:
		out := make([]Value, len(v.cells))
		copy(out, v.cells)
		return out
	case KindMissing:
		return nil
	default:
		return []Value{v}
	}
}

// At returns the cell at the given row and column. Out of range positions
// yield Missing.
func (v Value) At(row, col int) Value {
	if v.kind != KindArray {
		if row == 0 && col == 0 && v.kind != KindMissing {
			return v
		}
		return Missing()
	}
	if row < 0 || col < 0 || row >= v.height || col >= v.width {
		return Missing()
	}
	return v.cells[row*v.width+col]
}

// IsError reports whether v is a text cell carrying an error message.
func (v Value) IsError() bool {
	return v.kind == KindText && strings.HasPrefix(v.text, ErrorPrefix)
}

// String renders the value for display. Arrays render one row per line with
// tab separated columns.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindArray:
		var sb strings.Builder
		for row := 0; row < v.height; row++ {
			if row > 0 {
				sb.WriteByte('\n')
			}
			for col := 0; col < v.width; col++ {
				if col > 0 {
					sb.WriteByte('\t')
				}
				sb.WriteString(v.cells[row*v.width+col].String())
			}
		}
		return sb.String()
	default:
		return ""
	}
}

// MarshalJSON encodes text as a string, numbers as numbers, Missing as null
// and arrays as a list of rows.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	case KindArray:
		rows := make([][]Value, v.height)
		for row := range rows {
			rows[row] = v.cells[row*v.width : (row+1)*v.width]
		}
		return json.Marshal(rows)
	default:
		return []byte("null"), nil
	}
}
