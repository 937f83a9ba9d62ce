package compiler

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/llir/llvm/ir"
)

// verify checks the structure the passes and code generator rely on:
// unique symbol names and a terminator at the end of every block.
func verify(mod *ir.Module) error {
	var result *multierror.Error
	seen := map[string]bool{}
	declare := func(kind, name string) {
		if seen[name] {
			result = multierror.Append(result, fmt.Errorf("%s %q redefines an existing symbol", kind, name))
		}
		seen[name] = true
	}
	for _, g := range mod.Globals {
		declare("global", g.Name())
	}
	for _, f := range mod.Funcs {
		declare("function", f.Name())
		for i, b := range f.Blocks {
			if b.Term == nil {
				result = multierror.Append(result, fmt.Errorf("function %q: block %d has no terminator", f.Name(), i))
			}
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = joinErrors
	return result
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
