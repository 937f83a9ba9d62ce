package transforms

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"

	"github.com/deepnoodle-ai/bcc/pass"
)

// DeadBlockElim returns a pass that removes basic blocks unreachable from
// their function's entry block.
func DeadBlockElim() pass.Pass {
	return pass.NewFunc(DeadBlockElimName, func(m *ir.Module) error {
		for _, f := range m.Funcs {
			removeDeadBlocks(f)
		}
		return nil
	})
}

func removeDeadBlocks(f *ir.Func) {
	if len(f.Blocks) == 0 {
		return
	}
	visited := map[*ir.Block]bool{}
	stack := []*ir.Block{f.Blocks[0]}
	for len(stack) > 0 {
		blk := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[blk] {
			continue
		}
		visited[blk] = true
		if blk.Term == nil {
			continue
		}
		for _, succ := range blk.Term.Succs() {
			if !visited[succ] {
				stack = append(stack, succ)
			}
		}
	}
	if len(visited) == len(f.Blocks) {
		return
	}

	live := f.Blocks[:0]
	for _, blk := range f.Blocks {
		if visited[blk] {
			live = append(live, blk)
		}
	}
	f.Blocks = live

	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			phi, ok := inst.(*ir.InstPhi)
			if !ok {
				continue
			}
			incs := phi.Incs[:0]
			for _, inc := range phi.Incs {
				if pred, ok := any(inc.Pred).(*ir.Block); ok && !visited[pred] {
					continue
				}
				incs = append(incs, inc)
			}
			phi.Incs = incs
		}
	}
}

// GlobalDCE returns a pass that deletes internal functions and globals no
// externally visible symbol refers to.
func GlobalDCE() pass.Pass {
	return pass.NewFunc(GlobalDCEName, func(m *ir.Module) error {
		live := liveSymbols(m)
		funcs := m.Funcs[:0]
		for _, f := range m.Funcs {
			if !isLocal(f.Linkage) || live[f] {
				funcs = append(funcs, f)
			}
		}
		m.Funcs = funcs
		globals := m.Globals[:0]
		for _, g := range m.Globals {
			if !isLocal(g.Linkage) || live[g] {
				globals = append(globals, g)
			}
		}
		m.Globals = globals
		return nil
	})
}

func liveSymbols(m *ir.Module) map[value.Value]bool {
	live := map[value.Value]bool{}
	var work []value.Value
	mark := func(v value.Value) {
		switch v.(type) {
		case *ir.Func, *ir.Global:
			if !live[v] {
				live[v] = true
				work = append(work, v)
			}
		}
	}
	for _, f := range m.Funcs {
		if !isLocal(f.Linkage) {
			mark(f)
		}
	}
	for _, g := range m.Globals {
		if !isLocal(g.Linkage) {
			mark(g)
		}
	}
	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		switch v := v.(type) {
		case *ir.Func:
			for _, b := range v.Blocks {
				for _, inst := range b.Insts {
					for _, op := range inst.Operands() {
						markConstant(*op, mark)
					}
				}
				if b.Term != nil {
					for _, op := range b.Term.Operands() {
						markConstant(*op, mark)
					}
				}
			}
		case *ir.Global:
			if v.Init != nil {
				markConstant(v.Init, mark)
			}
		}
	}
	return live
}

// markConstant calls mark for every symbol v refers to, looking through
// aggregate constants and the constant expressions that carry addresses.
func markConstant(v value.Value, mark func(value.Value)) {
	switch v := v.(type) {
	case *ir.Func, *ir.Global:
		mark(v)
	case *constant.Array:
		for _, e := range v.Elems {
			markConstant(e, mark)
		}
	case *constant.Vector:
		for _, e := range v.Elems {
			markConstant(e, mark)
		}
	case *constant.Struct:
		for _, f := range v.Fields {
			markConstant(f, mark)
		}
	case *constant.ExprBitCast:
		markConstant(v.From, mark)
	case *constant.ExprPtrToInt:
		markConstant(v.From, mark)
	case *constant.ExprGetElementPtr:
		markConstant(v.Src, mark)
		for _, idx := range v.Indices {
			markConstant(idx, mark)
		}
	}
}
