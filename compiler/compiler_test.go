package compiler

import (
	"bytes"
	"debug/elf"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/bcc/config"
	"github.com/deepnoodle-ai/bcc/errors"
	"github.com/deepnoodle-ai/bcc/output"
	"github.com/deepnoodle-ai/bcc/pass"
	"github.com/deepnoodle-ai/bcc/script"
	"github.com/deepnoodle-ai/bcc/target"
	"github.com/deepnoodle-ai/bcc/transforms"
)

func TestMain(m *testing.M) {
	target.InitializeAll()
	os.Exit(m.Run())
}

func addInfo() *script.Info {
	return &script.Info{
		ExportFuncs: []string{"setScale"},
		ExportVars:  []string{"scale"},
		Kernels: []script.Kernel{
			{Name: "add", Signature: script.SigIn | script.SigOut | script.SigX},
		},
	}
}

func addScript(t *testing.T, info *script.Info) *script.Script {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "add.ll"))
	require.Nil(t, err)
	return script.FromText("add.ll", string(data), info)
}

func configured(t *testing.T, triple string, opts ...Option) *Compiler {
	t.Helper()
	c, err := NewWithConfig(config.Default(triple), opts...)
	require.Nil(t, err)
	return c
}

// probe records when it runs and what the module looked like at that point.
type probe struct {
	name     string
	requires []string
	ran      []string
	check    func(m *ir.Module) error
}

func (p *probe) Name() string { return p.name }

func (p *probe) Requires() []string { return p.requires }

func (p *probe) Run(m *ir.Module) error {
	p.ran = append(p.ran, p.name)
	if p.check != nil {
		return p.check(m)
	}
	return nil
}

func requireCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	require.NotNil(t, err)
	require.Equal(t, code, errors.CodeOf(err), err.Error())
	require.True(t, stderrors.Is(err, code))
}

func TestConfigureWithoutTarget(t *testing.T) {
	c := New()
	require.Nil(t, c.TargetMachine())

	requireCode(t, c.Configure(nil), errors.InvalidConfigNoTarget)
	requireCode(t, c.Configure(&config.Config{}), errors.InvalidConfigNoTarget)
	err := c.Configure(config.Default("mips-unknown-linux"))
	requireCode(t, err, errors.InvalidConfigNoTarget)
	require.EqualError(t, err, `configure: invalid configuration (no target is specified): no registered target for "mips-unknown-linux"`)
	require.Nil(t, c.TargetMachine())

	require.Nil(t, c.Configure(config.Default("x86_64")))
	m := c.TargetMachine()
	require.NotNil(t, m)
	requireCode(t, c.Configure(config.Default("mips")), errors.InvalidConfigNoTarget)
	require.Same(t, m, c.TargetMachine())
}

func TestCompileUnconfigured(t *testing.T) {
	p := &probe{name: "probe"}
	c := New(WithCustomPasses(p))
	var out, irOut bytes.Buffer
	s := addScript(t, addInfo())

	err := c.Compile(s, &out, &irOut)
	requireCode(t, err, errors.ErrNoTargetMachine)
	require.Empty(t, p.ran)
	require.Zero(t, out.Len())
	require.Zero(t, irOut.Len())
	require.False(t, s.Materialized())

	err = c.CompileFile(s, output.Create(filepath.Join(t.TempDir(), "missing", "x.o")), nil)
	requireCode(t, err, errors.ErrNoTargetMachine)
}

func TestMachineIsReused(t *testing.T) {
	c := configured(t, "aarch64")
	m := c.TargetMachine()
	for i := 0; i < 3; i++ {
		var out bytes.Buffer
		require.Nil(t, c.Compile(addScript(t, addInfo()), &out, nil))
		require.NotZero(t, out.Len())
		require.Same(t, m, c.TargetMachine())
	}
}

func TestReconfigure(t *testing.T) {
	bad := config.Default("x86_64")
	bad.CPU = "cortex-a53"

	c := New()
	requireCode(t, c.Configure(bad), errors.ErrCreateTargetMachine)
	require.Nil(t, c.TargetMachine())

	require.Nil(t, c.Configure(config.Default("x86_64")))
	first := c.TargetMachine()
	require.True(t, c.OptEnabled())

	err := c.Configure(bad)
	requireCode(t, err, errors.ErrSwitchTargetMachine)
	require.Equal(t, "configure", errors.StageOf(err))
	require.Same(t, first, c.TargetMachine())

	unopt := config.Default("armv7-none-linux-gnueabi")
	unopt.OptLevel = config.OptNone
	require.Nil(t, c.Configure(unopt))
	require.NotSame(t, first, c.TargetMachine())
	require.Equal(t, "armv7-none-linux-gnueabi", c.TargetMachine().Triple())
	require.False(t, c.OptEnabled())

	c.EnableOpt(true)
	require.True(t, c.OptEnabled())
}

func TestIllegalGlobalFunctions(t *testing.T) {
	src := `
define void @rsSetElementAt() {
entry:
  ret void
}

define void @.rs.private() {
entry:
  ret void
}

define void @.rs.dtor() {
entry:
  ret void
}

define internal void @rsHelper() {
entry:
  ret void
}

define void @"bad name"() {
entry:
  ret void
}

declare void @kern(i32)
`
	info := &script.Info{Kernels: []script.Kernel{{Name: "kern", Signature: script.SigX}}}
	p := &probe{name: "probe"}
	c := configured(t, "x86_64", WithCustomPasses(p))
	var out, irOut bytes.Buffer

	err := c.Compile(script.FromText("illegal.ll", src, info), &out, &irOut)
	requireCode(t, err, errors.IllegalGlobalFunction)
	require.Equal(t, "screen", errors.StageOf(err))
	require.Contains(t, err.Error(), `function "rsSetElementAt" uses a name reserved for the runtime`)
	require.Contains(t, err.Error(), `function ".rs.private" uses a name reserved for the runtime`)
	require.Contains(t, err.Error(), `function "bad name" has a malformed name`)
	require.Contains(t, err.Error(), `exported function "kern" is only declared`)
	require.NotContains(t, err.Error(), "rs.dtor")
	require.NotContains(t, err.Error(), "rsHelper")

	require.Empty(t, p.ran)
	require.Zero(t, out.Len())
	require.Zero(t, irOut.Len())
}

func TestScreenNames(t *testing.T) {
	tests := []struct {
		name      string
		wellFomed bool
		reserved  bool
	}{
		{"add", true, false},
		{"add.kernel", true, false},
		{".helper_setScale", true, false},
		{".rs.dtor", true, false},
		{".rs.init", true, true},
		{"rsGetElementAt", true, true},
		{"rs_helper", true, false},
		{"rsa", true, false},
		{"rs", true, false},
		{"", false, false},
		{"1st", false, false},
		{"a..b", false, false},
		{"a b", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wellFomed, wellFormedName.MatchString(tt.name))
			require.Equal(t, tt.reserved, reservedName(tt.name))
		})
	}
}

func TestExpandedKernelInIRSink(t *testing.T) {
	c := configured(t, "x86_64")
	s := addScript(t, addInfo())
	var irOut bytes.Buffer

	// Code generation is refused, but the IR sink still sees the module.
	err := c.Compile(s, nil, &irOut)
	requireCode(t, err, errors.ErrInvalidOutputFileState)

	text := irOut.String()
	require.Contains(t, text, "define void @add(i32* %in, i32* %out, i32 %x1, i32 %x2)")
	require.Contains(t, text, "define internal void @add.kernel(i32* %in, i32* %out, i32 %x)")
	require.Contains(t, text, "define void @.helper_setScale({ i32 }* %args)")
	require.Contains(t, text, `target triple = "x86_64-unknown-linux-gnu"`)
	require.Equal(t, script.Transformed, s.State())

	driver := s.Module().Funcs[len(s.Module().Funcs)-2]
	require.Equal(t, "add", driver.Name())
}

func TestPipelineOrder(t *testing.T) {
	var order []string
	custom := &probe{name: "probe", requires: []string{transforms.InvokeHelperName}}
	custom.check = func(m *ir.Module) error {
		order = append(order, "probe")
		if !transforms.IsExpanded(m, "add") {
			return stderrors.New("kernel not expanded")
		}
		for _, f := range m.Funcs {
			if f.Name() == ".helper_setScale" {
				return nil
			}
		}
		return stderrors.New("invoke helper missing")
	}
	post := &probe{name: "post", requires: []string{"probe"}}
	post.check = func(*ir.Module) error {
		order = append(order, "post")
		return nil
	}

	c := configured(t, "x86_64", WithCustomPasses(custom), WithPostLTOPasses(post))
	s := addScript(t, addInfo())
	require.Nil(t, s.Materialize())

	pl, err := c.buildPipeline(s, true, c.log)
	require.Nil(t, err)
	require.Equal(t, []string{
		transforms.InternalizeName,
		transforms.ExpandForEachName,
		transforms.InvariantName,
		transforms.InvokeHelperName,
		transforms.DeadBlockElimName,
		transforms.GlobalDCEName,
		"probe",
		"post",
	}, pl.manager.Names())
	require.Equal(t, 6, pl.builtins)

	pl, err = c.buildPipeline(s, false, c.log)
	require.Nil(t, err)
	require.False(t, pl.manager.Has(transforms.DeadBlockElimName))

	var out bytes.Buffer
	require.Nil(t, c.Compile(s, &out, nil))
	require.Equal(t, []string{"probe", "post"}, order)
}

func TestPipelineWithoutKernels(t *testing.T) {
	c := configured(t, "x86_64")
	s := addScript(t, &script.Info{ExportFuncs: []string{"setScale", "add"}, KeepExternal: true})
	require.Nil(t, s.Materialize())
	pl, err := c.buildPipeline(s, false, c.log)
	require.Nil(t, err)
	require.Equal(t, []string{transforms.InvariantName, transforms.InvokeHelperName}, pl.manager.Names())
}

func TestCustomPassAttachFailures(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		info  func(*script.Info)
		stage string
	}{
		{
			name:  "unmet requirement",
			opts:  []Option{WithCustomPasses(&probe{name: "p", requires: []string{"nope"}})},
			stage: StageCustom,
		},
		{
			name:  "nil pass",
			opts:  []Option{WithPostLTOPasses(nil)},
			stage: StagePostLTO,
		},
		{
			name:  "unknown custom name",
			info:  func(i *script.Info) { i.CustomPasses = []string{"nope"} },
			stage: StageCustom,
		},
		{
			name:  "unknown post-lto name",
			info:  func(i *script.Info) { i.PostLTOPasses = []string{"nope"} },
			stage: StagePostLTO,
		},
		{
			name:  "unresolved export",
			info:  func(i *script.Info) { i.ExportVars = append(i.ExportVars, "missing") },
			stage: StageInternalize,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := addInfo()
			if tt.info != nil {
				tt.info(info)
			}
			c := configured(t, "x86_64", tt.opts...)
			s := addScript(t, info)
			var out bytes.Buffer
			err := c.Compile(s, &out, nil)
			requireCode(t, err, errors.ErrCustomPasses)
			require.Equal(t, tt.stage, errors.StageOf(err))
			require.Zero(t, out.Len())
			require.Equal(t, script.Pristine, s.State())
		})
	}
}

func TestRegisteredCustomPasses(t *testing.T) {
	info := addInfo()
	info.CustomPasses = []string{transforms.GlobalDCEName}
	c := configured(t, "x86_64")
	c.EnableOpt(false)
	s := addScript(t, info)
	var out bytes.Buffer
	require.Nil(t, c.Compile(s, &out, nil))
	for _, f := range s.Module().Funcs {
		require.NotEqual(t, "unused", f.Name())
	}
}

func TestDuplicateCustomPass(t *testing.T) {
	info := addInfo()
	info.CustomPasses = []string{transforms.GlobalDCEName}
	c := configured(t, "x86_64")
	var out bytes.Buffer
	err := c.Compile(addScript(t, info), &out, nil)
	requireCode(t, err, errors.ErrCustomPasses)
	require.Equal(t, StageCustom, errors.StageOf(err))
	require.Zero(t, out.Len())
}

func TestKeepExternal(t *testing.T) {
	info := addInfo()
	info.ExportVars = append(info.ExportVars, "missing")
	info.KeepExternal = true
	c := configured(t, "x86_64")
	var out bytes.Buffer
	s := addScript(t, info)
	require.Nil(t, c.Compile(s, &out, nil))

	// Nothing was internalized, so global-dce keeps the unused function.
	found := false
	for _, f := range s.Module().Funcs {
		found = found || f.Name() == "unused"
	}
	require.True(t, found)
}

func TestFailedScriptMustBeReloaded(t *testing.T) {
	fail := true
	custom := &probe{name: "flaky"}
	custom.check = func(*ir.Module) error {
		if fail {
			return stderrors.New("boom")
		}
		return nil
	}
	c := configured(t, "x86_64", WithCustomPasses(custom))
	s := addScript(t, addInfo())
	var out, irOut bytes.Buffer

	err := c.Compile(s, &out, &irOut)
	requireCode(t, err, errors.ErrCustomPasses)
	require.Equal(t, "flaky", errors.StageOf(err))
	require.EqualError(t, err, "flaky: failed to add a pass to the pipeline: boom")
	require.Equal(t, script.Failed, s.State())
	require.Zero(t, out.Len())
	require.Zero(t, irOut.Len())

	fail = false
	err = c.Compile(s, &out, nil)
	requireCode(t, err, errors.ErrInvalidSource)
	require.Contains(t, err.Error(), "reload it first")

	require.Nil(t, s.Reload())
	require.Nil(t, c.Compile(s, &out, nil))
	require.NotZero(t, out.Len())
	require.Equal(t, script.Transformed, s.State())
}

func TestBuiltinPassFailure(t *testing.T) {
	info := addInfo()
	info.Kernels[0].Signature = script.SigOut
	c := configured(t, "x86_64")
	s := addScript(t, info)
	var out bytes.Buffer
	err := c.Compile(s, &out, nil)
	requireCode(t, err, errors.ErrInvalidSource)
	require.Equal(t, transforms.ExpandForEachName, errors.StageOf(err))
	require.Equal(t, script.Failed, s.State())
	require.Zero(t, out.Len())
}

func TestRecompileTransformedScript(t *testing.T) {
	c := configured(t, "x86_64")
	s := addScript(t, addInfo())
	var first, second bytes.Buffer
	require.Nil(t, c.Compile(s, &first, nil))
	require.Nil(t, c.Compile(s, &second, nil))
	require.Equal(t, first.Bytes(), second.Bytes())
}

func TestOptimizationChangesOutput(t *testing.T) {
	c := configured(t, "x86_64")
	s := addScript(t, addInfo())

	var on, off bytes.Buffer
	errOn := c.Compile(s, &on, nil)
	c.EnableOpt(false)
	errOff := c.Compile(s, &off, nil)
	require.Nil(t, errOn)
	require.Nil(t, errOff)
	require.NotEqual(t, on.Bytes(), off.Bytes())

	// The same holds for a script that is illegal: both runs fail the same way.
	src := "define void @rsBad() {\nentry:\n  ret void\n}\n"
	c.EnableOpt(true)
	errOn = c.Compile(script.FromText("bad.ll", src, nil), &on, nil)
	c.EnableOpt(false)
	errOff = c.Compile(script.FromText("bad.ll", src, nil), &off, nil)
	requireCode(t, errOn, errors.IllegalGlobalFunction)
	require.Equal(t, errOn.Error(), errOff.Error())
}

func TestScriptOptLevelOverride(t *testing.T) {
	zero := 0
	info := addInfo()
	info.OptLevel = &zero

	c := configured(t, "x86_64")
	var viaScript, viaSwitch bytes.Buffer
	require.Nil(t, c.Compile(addScript(t, info), &viaScript, nil))
	c.EnableOpt(false)
	require.Nil(t, c.Compile(addScript(t, addInfo()), &viaSwitch, nil))
	require.Equal(t, viaSwitch.Bytes(), viaScript.Bytes())
}

func TestOptimizationLevelPragma(t *testing.T) {
	info := addInfo()
	info.Pragmas = map[string]string{script.PragmaOptimizationLevel: "0"}

	c := configured(t, "x86_64")
	var viaPragma, viaSwitch bytes.Buffer
	require.Nil(t, c.Compile(addScript(t, info), &viaPragma, nil))
	c.EnableOpt(false)
	require.Nil(t, c.Compile(addScript(t, addInfo()), &viaSwitch, nil))
	require.Equal(t, viaSwitch.Bytes(), viaPragma.Bytes())

	// An explicit level wins over the pragma.
	c.EnableOpt(true)
	require.False(t, c.optimizeFor(info))
	three := 3
	info.OptLevel = &three
	require.True(t, c.optimizeFor(info))
}

func TestInternalizePragma(t *testing.T) {
	c := configured(t, "x86_64")
	info := addInfo()
	info.Pragmas = map[string]string{script.PragmaInternalize: "false"}

	s := addScript(t, info)
	require.Nil(t, s.Materialize())
	pl, err := c.buildPipeline(s, true, zerolog.Nop())
	require.Nil(t, err)
	require.NotContains(t, pl.manager.Names(), transforms.InternalizeName)

	var out bytes.Buffer
	require.Nil(t, c.Compile(s, &out, nil))
	found := false
	for _, f := range s.Module().Funcs {
		found = found || f.Name() == "unused"
	}
	require.True(t, found)

	info.Pragmas[script.PragmaInternalize] = "true"
	s = addScript(t, info)
	require.Nil(t, s.Materialize())
	pl, err = c.buildPipeline(s, true, zerolog.Nop())
	require.Nil(t, err)
	require.Equal(t, transforms.InternalizeName, pl.manager.Names()[0])
}

func TestUserDefinedKernelDriverName(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "add.ll"))
	require.Nil(t, err)
	src := string(data) + `
define internal void @add.kernel(i32 %x) {
entry:
  ret void
}
`
	c := configured(t, "x86_64")
	var out, irOut bytes.Buffer
	err = c.Compile(script.FromText("add.ll", src, addInfo()), &out, &irOut)
	requireCode(t, err, errors.ErrInvalidSource)
	require.Equal(t, transforms.ExpandForEachName, errors.StageOf(err))
	require.Zero(t, out.Len())
	require.Zero(t, irOut.Len())
}

func TestExampleAddKernel(t *testing.T) {
	c := configured(t, "x86_64", WithIRFormat(IRBitcode))
	s := addScript(t, addInfo())
	var out, irOut bytes.Buffer

	err := c.Compile(s, &out, &irOut)
	require.Nil(t, err)
	require.Equal(t, errors.Success, errors.CodeOf(err))
	require.NotZero(t, out.Len())

	obj, err := elf.NewFile(bytes.NewReader(out.Bytes()))
	require.Nil(t, err)
	require.Equal(t, elf.EM_X86_64, obj.Machine)
	syms, err := obj.Symbols()
	require.Nil(t, err)
	global := map[string]bool{}
	for _, sym := range syms {
		if elf.ST_BIND(sym.Info) == elf.STB_GLOBAL {
			global[sym.Name] = true
		}
	}
	require.True(t, global["add"])
	require.True(t, global["setScale"])
	require.True(t, global[".helper_setScale"])
	require.True(t, global["root"])
	require.False(t, global["add.kernel"])
	require.False(t, global["unused"])

	snap, err := script.ReadBitcode("snapshot", irOut.Bytes())
	require.Nil(t, err)
	require.Nil(t, snap.Materialize())
	var add *ir.Func
	for _, f := range snap.Module().Funcs {
		if f.Name() == "add" {
			add = f
		}
	}
	require.NotNil(t, add)
	require.Len(t, add.Params, 4)
	require.Equal(t, "x1", add.Params[2].Name())
	require.Equal(t, "x2", add.Params[3].Name())
	require.Equal(t, addInfo().Exported(), snap.Info().Exported())
}

func TestAssemblyOutput(t *testing.T) {
	cfg := config.Default("aarch64")
	cfg.FileType = config.FileTypeAssembly
	c, err := NewWithConfig(cfg)
	require.Nil(t, err)
	var out bytes.Buffer
	require.Nil(t, c.Compile(addScript(t, addInfo()), &out, nil))
	require.Contains(t, out.String(), "\t.globl\tadd\nadd:\n")
}

func TestModuleChecks(t *testing.T) {
	c := configured(t, "x86_64")
	tests := []struct {
		name   string
		src    string
		code   errors.ErrorCode
		errMsg string
	}{
		{
			name:   "unparsable",
			src:    "define void @f( {",
			code:   errors.ErrMaterialization,
			errMsg: "materialize: failed to materialize the module",
		},
		{
			name:   "triple",
			src:    "target triple = \"aarch64-none-linux-gnueabi\"\ndefine void @f() {\nentry:\n  ret void\n}\n",
			code:   errors.ErrInvalidSource,
			errMsg: `source: source module is invalid: module triple "aarch64-none-linux-gnueabi" does not match target x86_64`,
		},
		{
			name:   "pointer size",
			src:    "target datalayout = \"e-p:32:32\"\ndefine void @f() {\nentry:\n  ret void\n}\n",
			code:   errors.ErrInvalidSource,
			errMsg: "source: source module is invalid: module pointer size 32 does not match target pointer size 64",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := c.Compile(script.FromText(tt.name+".ll", tt.src, nil), &out, nil)
			requireCode(t, err, tt.code)
			require.Contains(t, err.Error(), tt.errMsg)
			require.Zero(t, out.Len())
		})
	}
}

func TestVerifyRejectsMissingTerminator(t *testing.T) {
	mod := ir.NewModule()
	mod.NewFunc("f", types.Void).NewBlock("entry")
	require.EqualError(t, verify(mod), `function "f": block 0 has no terminator`)

	ok := ir.NewModule()
	ok.NewFunc("f", types.Void).NewBlock("entry").NewRet(nil)
	require.Nil(t, verify(ok))
}

func TestPointerBits(t *testing.T) {
	require.Equal(t, 32, pointerBits("e-m:e-p:32:32-i64:64"))
	require.Equal(t, 64, pointerBits("e-m:e-p0:64:64"))
	require.Equal(t, 64, pointerBits("e-m:e-i64:64-n8:16:32:64-S128"))
}

func TestCodegenFailures(t *testing.T) {
	cfg := config.Default("riscv64")
	cfg.FileType = config.FileTypeAssembly
	c, err := NewWithConfig(cfg)
	require.Nil(t, err)
	var out bytes.Buffer
	err = c.Compile(addScript(t, addInfo()), &out, nil)
	requireCode(t, err, errors.ErrPrepareCodeGenPass)
	require.Equal(t, "codegen", errors.StageOf(err))

	c = configured(t, "x86_64")
	err = c.Compile(addScript(t, addInfo()), failingWriter{}, nil)
	requireCode(t, err, errors.ErrPrepareOutput)

	err = c.Compile(addScript(t, addInfo()), &out, failingWriter{})
	requireCode(t, err, errors.ErrPrepareOutput)
	require.Equal(t, "emit-ir", errors.StageOf(err))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, stderrors.New("disk full") }

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	c := configured(t, "i686")

	path := filepath.Join(dir, "add.o")
	require.Nil(t, c.CompileFile(addScript(t, addInfo()), output.Create(path), nil))
	data, err := os.ReadFile(path)
	require.Nil(t, err)
	obj, err := elf.NewFile(bytes.NewReader(data))
	require.Nil(t, err)
	require.Equal(t, elf.ELFCLASS32, obj.Class)

	err = c.CompileFile(addScript(t, addInfo()), output.Create(filepath.Join(dir, "missing", "x.o")), nil)
	requireCode(t, err, errors.ErrInvalidOutputFileState)
	requireCode(t, c.CompileFile(addScript(t, addInfo()), nil, nil), errors.ErrInvalidOutputFileState)

	bad := filepath.Join(dir, "bad.o")
	err = c.CompileFile(script.FromText("bad.ll", "define void @rsBad() {\nentry:\n  ret void\n}\n", nil), output.Create(bad), nil)
	requireCode(t, err, errors.IllegalGlobalFunction)
	_, err = os.Stat(bad)
	require.True(t, os.IsNotExist(err))
}

func TestCompileFileUnconfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "add.o")
	f := output.Create(path)
	require.False(t, f.HasError())
	requireCode(t, New().CompileFile(addScript(t, addInfo()), f, nil), errors.ErrNoTargetMachine)
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
	_, err = f.Writer()
	require.NotNil(t, err)
}

func TestNilScript(t *testing.T) {
	c := configured(t, "x86_64")
	var out bytes.Buffer
	requireCode(t, c.Compile(nil, &out, nil), errors.ErrInvalidSource)
}

var _ pass.Requirer = (*probe)(nil)
