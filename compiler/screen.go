package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"

	"github.com/deepnoodle-ai/bcc/script"
)

// dtorName is the one runtime-reserved function a script may define.
const dtorName = ".rs.dtor"

// A well formed name is a C identifier, optionally dot-separated and with a
// leading dot, as produced for kernels and helpers.
var wellFormedName = regexp.MustCompile(`^\.?[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

func reservedName(name string) bool {
	if strings.HasPrefix(name, ".rs.") {
		return name != dtorName
	}
	return len(name) > 2 && name[:2] == "rs" && name[2] >= 'A' && name[2] <= 'Z'
}

// screenGlobals rejects modules whose externally visible functions could
// not be linked against the runtime. Every violation is reported.
func screenGlobals(mod *ir.Module, info *script.Info) error {
	var result *multierror.Error
	funcs := map[string]*ir.Func{}
	for _, f := range mod.Funcs {
		name := f.Name()
		funcs[name] = f
		if len(f.Blocks) == 0 || f.Linkage == enum.LinkageInternal || f.Linkage == enum.LinkagePrivate {
			continue
		}
		switch {
		case !wellFormedName.MatchString(name):
			result = multierror.Append(result, fmt.Errorf("function %q has a malformed name", name))
		case reservedName(name):
			result = multierror.Append(result, fmt.Errorf("function %q uses a name reserved for the runtime", name))
		}
	}

	exported := append([]string(nil), info.ExportFuncs...)
	for _, k := range info.Kernels {
		exported = append(exported, k.Name)
	}
	for _, name := range exported {
		f, ok := funcs[name]
		switch {
		case !ok:
			result = multierror.Append(result, fmt.Errorf("exported function %q is not in the module", name))
		case len(f.Blocks) == 0:
			result = multierror.Append(result, fmt.Errorf("exported function %q is only declared", name))
		}
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = joinErrors
	return result
}
