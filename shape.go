package haxcel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tkx68/Haxcel/cell"
)

// Shape is the destination region a result is fitted into: Width columns by
// Height rows.
type Shape struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// ParseShape parses a "WxH" string such as "3x2".
func ParseShape(s string) (Shape, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Shape{}, fmt.Errorf("invalid shape %q: expected WxH", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Shape{}, fmt.Errorf("invalid shape width %q: %w", w, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Shape{}, fmt.Errorf("invalid shape height %q: %w", h, err)
	}
	if width < 0 || height < 0 {
		return Shape{}, fmt.Errorf("invalid shape %q: dimensions must not be negative", s)
	}
	return Shape{Width: width, Height: height}, nil
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Structure is the shape of an interpreter value as read off its type
// signature.
type Structure int

const (
	StructureScalar Structure = iota
	StructureList
	StructureListOfLists
)

func (s Structure) String() string {
	switch s {
	case StructureList:
		return "list"
	case StructureListOfLists:
		return "list_of_lists"
	default:
		return "scalar"
	}
}

// ClassifyType decides the structure of a value from the trailing characters
// of its type signature: "]]" is a list of lists, "]" a list, anything else a
// scalar. Deeper nesting is reported as a list of lists.
func ClassifyType(signature string) Structure {
	signature = strings.TrimSpace(signature)
	if !strings.HasSuffix(signature, "]") {
		return StructureScalar
	}
	if strings.HasSuffix(signature, "]]") {
		return StructureListOfLists
	}
	return StructureList
}

// ScalarConverter turns one textual token from the interpreter into a cell.
type ScalarConverter func(text string) cell.Value

// AsText keeps the token as text. It is the converter used by Show.
func AsText(text string) cell.Value {
	return cell.FromString(text)
}

// AsNumber yields a numeric cell when the token parses as a float and a text
// cell otherwise. It is the converter used by Eval.
func AsNumber(text string) cell.Value {
	if value, err := strconv.ParseFloat(text, 64); err == nil {
		return cell.FromFloat(value)
	}
	return cell.FromString(text)
}

// trimBrackets strips the run of leading '[' and the run of trailing ']'.
func trimBrackets(text string) string {
	return strings.TrimRight(strings.TrimLeft(text, "["), "]")
}

// splitList splits the body of a rendered list on the list separator. An
// empty body has no elements.
func splitList(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	tokens := strings.Split(body, ",")
	for i, token := range tokens {
		tokens[i] = strings.TrimSpace(token)
	}
	return tokens
}
