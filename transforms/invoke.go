package transforms

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/deepnoodle-ai/bcc/pass"
	"github.com/deepnoodle-ai/bcc/script"
)

type invokeHelperPass struct {
	info *script.Info
}

// InvokeHelper returns the pass that gives every exported invokable with
// parameters a helper the runtime can call with a single packed argument:
//
//	void .helper_F({P1, P2, ...}* args)
//
// The helper loads each field and calls F. Existing helpers are left alone.
func InvokeHelper(info *script.Info) pass.Pass {
	return &invokeHelperPass{info: info}
}

func (p *invokeHelperPass) Name() string { return InvokeHelperName }

func (p *invokeHelperPass) Requires() []string { return []string{InvariantName} }

func (p *invokeHelperPass) Run(m *ir.Module) error {
	for _, name := range p.info.ExportFuncs {
		f := findFunc(m, name)
		if f == nil || len(f.Blocks) == 0 {
			return fmt.Errorf("invokable %q is not defined", name)
		}
		if len(f.Params) == 0 || findFunc(m, HelperPrefix+name) != nil {
			continue
		}
		fields := make([]types.Type, len(f.Params))
		for i, param := range f.Params {
			fields[i] = param.Type()
		}
		packed := types.NewStruct(fields...)
		args := ir.NewParam("args", types.NewPointer(packed))

		helper := m.NewFunc(HelperPrefix+name, types.Void, args)
		entry := helper.NewBlock("entry")
		vals := make([]value.Value, len(fields))
		for i, t := range fields {
			ptr := entry.NewGetElementPtr(packed, args,
				constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(i)))
			vals[i] = entry.NewLoad(t, ptr)
		}
		entry.NewCall(f, vals...)
		entry.NewRet(nil)
	}
	return nil
}
