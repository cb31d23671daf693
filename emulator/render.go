package emulator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/risor-io/risor/object"
)

// render prints a value the way the interpreter's show does: lists as
// "[1,2,3]" without spaces, strings quoted, booleans capitalised.
func render(obj object.Object) string {
	switch o := obj.(type) {
	case *object.Int:
		return strconv.FormatInt(o.Value(), 10)
	case *object.Float:
		return renderFloat(o.Value())
	case *object.String:
		return strconv.Quote(o.Value())
	case *object.Bool:
		if o.Value() {
			return "True"
		}
		return "False"
	case *object.NilType:
		return "()"
	case *object.List:
		items := make([]string, 0, len(o.Value()))
		for _, item := range o.Value() {
			items = append(items, render(item))
		}
		return "[" + strings.Join(items, ",") + "]"
	default:
		return obj.Inspect()
	}
}

func renderFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

// typeName returns the interpreter style type signature of a value. Empty
// lists are polymorphic.
func typeName(obj object.Object) string {
	switch o := obj.(type) {
	case *object.Int:
		return "Integer"
	case *object.Float:
		return "Double"
	case *object.String:
		return "String"
	case *object.Bool:
		return "Bool"
	case *object.NilType:
		return "()"
	case *object.List:
		items := o.Value()
		if len(items) == 0 {
			return "[a]"
		}
		return "[" + typeName(items[0]) + "]"
	case *object.Map:
		return "Map String a"
	default:
		return string(obj.Type())
	}
}

// take returns the first n elements of a list or string value.
func take(n int, obj object.Object) (object.Object, error) {
	switch o := obj.(type) {
	case *object.List:
		items := o.Value()
		if n < len(items) {
			items = items[:max(n, 0)]
		}
		return object.NewList(items), nil
	case *object.String:
		runes := []rune(o.Value())
		if n < len(runes) {
			runes = runes[:max(n, 0)]
		}
		return object.NewString(string(runes)), nil
	default:
		return nil, fmt.Errorf("Couldn't match expected type [a] with actual type %s", typeName(obj))
	}
}

// takeNested truncates a list of lists to its first rows elements, each
// truncated to its first cols elements.
func takeNested(rows, cols int, obj object.Object) (object.Object, error) {
	outer, err := take(rows, obj)
	if err != nil {
		return nil, err
	}
	list, ok := outer.(*object.List)
	if !ok {
		return nil, fmt.Errorf("Couldn't match expected type [[a]] with actual type %s", typeName(obj))
	}
	items := make([]object.Object, 0, len(list.Value()))
	for _, item := range list.Value() {
		inner, err := take(cols, item)
		if err != nil {
			return nil, err
		}
		items = append(items, inner)
	}
	return object.NewList(items), nil
}
