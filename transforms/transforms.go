// Package transforms contains the built-in module passes of the compiler
// pipeline: symbol internalization, foreach kernel expansion, kernel
// invariant checks, invoke helper synthesis and the optimization passes.
package transforms

import (
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"

	"github.com/deepnoodle-ai/bcc/pass"
)

// Pass names.
const (
	InternalizeName   = "rs-internalize"
	ExpandForEachName = "rs-expand-foreach"
	InvariantName     = "rs-invariant"
	InvokeHelperName  = "rs-invoke-helper"
	DeadBlockElimName = "dead-block-elim"
	GlobalDCEName     = "global-dce"
)

// KernelSuffix is appended to a kernel's name when its single-element body
// is moved aside by foreach expansion.
const KernelSuffix = ".kernel"

// HelperPrefix starts the name of every synthesized invoke helper.
const HelperPrefix = ".helper_"

// Functions the runtime calls directly. They keep external linkage even
// when the script does not export them.
var runtimeRoots = map[string]bool{
	"root":     true,
	"init":     true,
	".rs.dtor": true,
}

func init() {
	pass.Register(DeadBlockElimName, DeadBlockElim)
	pass.Register(GlobalDCEName, GlobalDCE)
}

func findFunc(m *ir.Module, name string) *ir.Func {
	for _, f := range m.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

func findGlobal(m *ir.Module, name string) *ir.Global {
	for _, g := range m.Globals {
		if g.Name() == name {
			return g
		}
	}
	return nil
}

func isLocal(l enum.Linkage) bool {
	return l == enum.LinkageInternal || l == enum.LinkagePrivate
}

func isHelper(name string) bool {
	return strings.HasPrefix(name, HelperPrefix)
}
