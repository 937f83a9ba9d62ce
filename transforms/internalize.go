package transforms

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"

	"github.com/deepnoodle-ai/bcc/pass"
	"github.com/deepnoodle-ai/bcc/script"
)

// UnresolvedExportError is returned by the internalize pass when an exported
// name has no definition in the module.
type UnresolvedExportError struct {
	Name string
}

func (e *UnresolvedExportError) Error() string {
	return fmt.Sprintf("exported symbol %q is not defined in the module", e.Name)
}

// Internalize returns the pass that gives internal linkage to every defined
// symbol the script does not export. Kernels, the runtime entry points and
// invoke helpers stay external.
func Internalize(info *script.Info) pass.Pass {
	return pass.NewFunc(InternalizeName, func(m *ir.Module) error {
		keep, err := ExportSet(m, info)
		if err != nil {
			return err
		}
		for _, f := range m.Funcs {
			name := f.Name()
			if len(f.Blocks) == 0 || keep[name] || runtimeRoots[name] || isHelper(name) {
				continue
			}
			if !isLocal(f.Linkage) {
				f.Linkage = enum.LinkageInternal
			}
		}
		for _, g := range m.Globals {
			if g.Init == nil || keep[g.Name()] {
				continue
			}
			if !isLocal(g.Linkage) {
				g.Linkage = enum.LinkageInternal
			}
		}
		return nil
	})
}

// ExportSet resolves every name the script exports against m. It fails
// with an *UnresolvedExportError for the first name that has no definition.
func ExportSet(m *ir.Module, info *script.Info) (map[string]bool, error) {
	keep := map[string]bool{}
	for _, name := range info.ExportFuncs {
		if f := findFunc(m, name); f == nil || len(f.Blocks) == 0 {
			return nil, &UnresolvedExportError{Name: name}
		}
		keep[name] = true
	}
	for _, k := range info.Kernels {
		if f := findFunc(m, k.Name); f == nil || len(f.Blocks) == 0 {
			return nil, &UnresolvedExportError{Name: k.Name}
		}
		keep[k.Name] = true
	}
	for _, name := range info.ExportVars {
		if g := findGlobal(m, name); g == nil || g.Init == nil {
			return nil, &UnresolvedExportError{Name: name}
		}
		keep[name] = true
	}
	return keep, nil
}
