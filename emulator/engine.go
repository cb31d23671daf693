package emulator

import (
	"context"
	"fmt"
	"sort"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/compiler"
	"github.com/risor-io/risor/modules/all"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"
)

// engine compiles and runs Risor expressions against a set of globals.
type engine struct {
	globals map[string]any
}

func newEngine(globals map[string]any) *engine {
	return &engine{globals: globals}
}

func (e *engine) eval(ctx context.Context, code string) (object.Object, error) {
	ast, err := parser.Parse(ctx, code)
	if err != nil {
		return nil, err
	}

	var globalNames []string
	for name := range e.globals {
		globalNames = append(globalNames, name)
	}
	sort.Strings(globalNames)

	compiled, err := compiler.Compile(ast, compiler.WithGlobalNames(globalNames))
	if err != nil {
		return nil, err
	}
	value, err := risor.EvalCode(ctx, compiled, risor.WithGlobals(e.globals))
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	return value, nil
}

// builtinGlobals returns the Risor builtins that are deterministic and free
// of side effects.
func builtinGlobals() map[string]any {
	safe := map[string]bool{
		"all":      true,
		"any":      true,
		"bool":     true,
		"chunk":    true,
		"coalesce": true,
		"float":    true,
		"int":      true,
		"keys":     true,
		"len":      true,
		"list":     true,
		"math":     true,
		"reversed": true,
		"sorted":   true,
		"sprintf":  true,
		"string":   true,
		"strings":  true,
		"type":     true,
	}
	globals := map[string]any{}
	for name, value := range all.Builtins() {
		if safe[name] {
			globals[name] = value
		}
	}
	return globals
}
