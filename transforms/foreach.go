package transforms

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/deepnoodle-ai/bcc/pass"
	"github.com/deepnoodle-ai/bcc/script"
)

// ExpandForEach returns the pass that rewrites every foreach kernel of the
// script into its range form.
//
// A kernel K written for a single element,
//
//	void K([T* in,] [R* out,] [i32 x])
//
// is renamed to K.kernel and made internal, and a new function
//
//	void K([T* in,] [R* out,] i32 x1, i32 x2)
//
// calls it once for every x in [x1, x2), passing &in[x] and &out[x]. The
// pass skips kernels that are already expanded.
func ExpandForEach(info *script.Info) pass.Pass {
	return pass.NewFunc(ExpandForEachName, func(m *ir.Module) error {
		for _, k := range info.Kernels {
			if err := expandKernel(m, k); err != nil {
				return err
			}
		}
		return nil
	})
}

// IsExpanded reports whether kernel name is in range form in m: name is a
// driver whose parameters are the element pointers of name.kernel followed
// by x1 and x2, and which calls name.kernel.
func IsExpanded(m *ir.Module, name string) bool {
	body := findFunc(m, name+KernelSuffix)
	driver := findFunc(m, name)
	if body == nil || driver == nil || len(driver.Blocks) == 0 {
		return false
	}
	n := len(driver.Params)
	if n < 2 {
		return false
	}
	for _, p := range driver.Params[n-2:] {
		if !types.Equal(p.Type(), types.I32) {
			return false
		}
	}
	ptrs := len(body.Params)
	if ptrs > 0 && types.Equal(body.Params[ptrs-1].Type(), types.I32) {
		ptrs--
	}
	if n-2 != ptrs {
		return false
	}
	for i := 0; i < ptrs; i++ {
		if !types.Equal(driver.Params[i].Type(), body.Params[i].Type()) {
			return false
		}
	}
	return calls(driver, body)
}

func calls(f, callee *ir.Func) bool {
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			if call, ok := inst.(*ir.InstCall); ok && call.Callee == value.Value(callee) {
				return true
			}
		}
	}
	return false
}

func expandKernel(m *ir.Module, k script.Kernel) error {
	if IsExpanded(m, k.Name) {
		return nil
	}
	body := findFunc(m, k.Name)
	if body == nil || len(body.Blocks) == 0 {
		return fmt.Errorf("kernel %q is not defined", k.Name)
	}
	if findFunc(m, k.Name+KernelSuffix) != nil {
		return fmt.Errorf("kernel %q: %s is already defined", k.Name, k.Name+KernelSuffix)
	}
	if !types.Equal(body.Sig.RetType, types.Void) {
		return fmt.Errorf("kernel %q must return void", k.Name)
	}

	want := 0
	for _, bit := range []bool{k.HasIn(), k.HasOut(), k.HasX()} {
		if bit {
			want++
		}
	}
	if len(body.Params) != want {
		return fmt.Errorf("kernel %q takes %d parameters, its signature %#x needs %d",
			k.Name, len(body.Params), k.Signature, want)
	}

	var (
		params  []*ir.Param
		in, out *ir.Param
		inElem  types.Type
		outElem types.Type
		next    int
	)
	elemOf := func(p *ir.Param, what string) (types.Type, error) {
		pt, ok := p.Type().(*types.PointerType)
		if !ok || pt.ElemType == nil {
			return nil, fmt.Errorf("kernel %q: %s parameter must be a typed pointer, got %s", k.Name, what, p.Type())
		}
		return pt.ElemType, nil
	}
	if k.HasIn() {
		elem, err := elemOf(body.Params[next], "input")
		if err != nil {
			return err
		}
		in, inElem = ir.NewParam("in", body.Params[next].Type()), elem
		params = append(params, in)
		next++
	}
	if k.HasOut() {
		elem, err := elemOf(body.Params[next], "output")
		if err != nil {
			return err
		}
		out, outElem = ir.NewParam("out", body.Params[next].Type()), elem
		params = append(params, out)
		next++
	}
	if k.HasX() && !types.Equal(body.Params[next].Type(), types.I32) {
		return fmt.Errorf("kernel %q: index parameter must be i32, got %s", k.Name, body.Params[next].Type())
	}
	x1 := ir.NewParam("x1", types.I32)
	x2 := ir.NewParam("x2", types.I32)
	params = append(params, x1, x2)

	body.SetName(k.Name + KernelSuffix)
	body.Linkage = enum.LinkageInternal

	driver := m.NewFunc(k.Name, types.Void, params...)
	entry := driver.NewBlock("entry")
	cond := driver.NewBlock("loop.cond")
	loop := driver.NewBlock("loop.body")
	exit := driver.NewBlock("loop.exit")

	idx := entry.NewAlloca(types.I32)
	entry.NewStore(x1, idx)
	entry.NewBr(cond)

	cur := cond.NewLoad(types.I32, idx)
	more := cond.NewICmp(enum.IPredSLT, cur, x2)
	cond.NewCondBr(more, loop, exit)

	x := loop.NewLoad(types.I32, idx)
	var args []value.Value
	if in != nil {
		args = append(args, loop.NewGetElementPtr(inElem, in, x))
	}
	if out != nil {
		args = append(args, loop.NewGetElementPtr(outElem, out, x))
	}
	if k.HasX() {
		args = append(args, x)
	}
	loop.NewCall(body, args...)
	loop.NewStore(loop.NewAdd(x, constant.NewInt(types.I32, 1)), idx)
	loop.NewBr(cond)

	exit.NewRet(nil)
	return nil
}
