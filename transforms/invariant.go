package transforms

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"

	"github.com/deepnoodle-ai/bcc/pass"
	"github.com/deepnoodle-ai/bcc/script"
)

type invariantPass struct {
	info     *script.Info
	requires []string
}

// Invariant returns the pass that checks what the runtime assumes about
// kernel code: every kernel is in range form, and nothing reachable from a
// kernel body recurses or calls through a pointer.
//
// When the script has kernels the pass requires the expansion pass to be
// scheduled before it.
func Invariant(info *script.Info) pass.Pass {
	p := &invariantPass{info: info}
	if info.HasKernels() {
		p.requires = []string{ExpandForEachName}
	}
	return p
}

func (p *invariantPass) Name() string { return InvariantName }

func (p *invariantPass) Requires() []string { return p.requires }

func (p *invariantPass) Run(m *ir.Module) error {
	for _, k := range p.info.Kernels {
		if !IsExpanded(m, k.Name) {
			return fmt.Errorf("kernel %q is not in expanded form", k.Name)
		}
		c := &callChecker{state: map[*ir.Func]int{}}
		if err := c.visit(findFunc(m, k.Name+KernelSuffix), nil); err != nil {
			return fmt.Errorf("kernel %q: %w", k.Name, err)
		}
	}
	return nil
}

const (
	unvisited = iota
	onStack
	done
)

type callChecker struct {
	state map[*ir.Func]int
}

func (c *callChecker) visit(f *ir.Func, path []string) error {
	path = append(path, f.Name())
	switch c.state[f] {
	case onStack:
		return fmt.Errorf("recursion is not allowed: %s", strings.Join(path, " -> "))
	case done:
		return nil
	}
	c.state[f] = onStack
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			call, ok := inst.(*ir.InstCall)
			if !ok {
				continue
			}
			callee, ok := call.Callee.(*ir.Func)
			if !ok {
				return fmt.Errorf("indirect call in %s is not allowed", f.Name())
			}
			if err := c.visit(callee, path); err != nil {
				return err
			}
		}
	}
	c.state[f] = done
	return nil
}
