// Package compiler turns a script's IR module into object code or assembly
// for one configured target machine.
//
// # Lifecycle
//
// A Compiler starts out unconfigured. Configure selects a target and builds
// a target machine for it; the machine is then reused by every compilation
// until the next successful Configure replaces it. A failed Configure never
// disturbs the machine already in place.
//
// # Compilation
//
// Compile checks the script's module against the machine, screens its
// exported functions, then runs a pass pipeline built fresh for the script:
//
//   - rs-internalize, unless the script keeps every symbol external
//   - rs-expand-foreach, when the script has foreach kernels
//   - rs-invariant
//   - rs-invoke-helper
//   - dead-block-elim and global-dce, when optimization is on
//   - custom passes, then post-LTO passes
//
// The transformed module is written to the optional IR sink, and finally
// the machine's code generation pass writes the output.
//
// Every failure is an *errors.Error carrying one code of the errors package
// and the name of the stage that failed. A Compiler is not safe for
// concurrent use.
package compiler

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/llir/llvm/ir"
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/bcc/config"
	"github.com/deepnoodle-ai/bcc/errors"
	"github.com/deepnoodle-ai/bcc/output"
	"github.com/deepnoodle-ai/bcc/pass"
	"github.com/deepnoodle-ai/bcc/script"
	"github.com/deepnoodle-ai/bcc/target"
)

// Compiler drives compilation for one target machine at a time.
type Compiler struct {
	machine   *target.Machine
	fileType  config.FileType
	enableOpt bool

	irFormat      IRFormat
	customPasses  []pass.Pass
	postLTOPasses []pass.Pass
	log           zerolog.Logger
}

// New returns an unconfigured Compiler with optimization enabled.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		enableOpt: true,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithConfig returns a Compiler configured with cfg. The Compiler is
// usable even when configuration fails; the error is returned alongside it.
func NewWithConfig(cfg *config.Config, opts ...Option) (*Compiler, error) {
	c := New(opts...)
	return c, c.Configure(cfg)
}

// Configure builds a target machine from cfg and makes it the one used by
// later compilations. On failure the previous machine, if any, stays in
// place.
func (c *Compiler) Configure(cfg *config.Config) error {
	if cfg == nil || strings.TrimSpace(cfg.Triple) == "" {
		return errors.New(errors.InvalidConfigNoTarget, "configure")
	}
	t := target.Lookup(cfg.Triple)
	if t == nil {
		return errors.Errorf(errors.InvalidConfigNoTarget, "configure",
			"no registered target for %q", cfg.Triple)
	}
	m, err := t.CreateMachine(cfg)
	if err != nil {
		code := errors.ErrCreateTargetMachine
		if c.machine != nil {
			code = errors.ErrSwitchTargetMachine
		}
		return errors.Wrap(code, "configure", err)
	}
	c.machine = m
	c.fileType = m.FileType()
	c.enableOpt = cfg.OptLevel != config.OptNone
	c.log.Debug().
		Str("triple", m.Triple()).
		Str("cpu", m.CPU()).
		Strs("features", m.Features()).
		Int("opt_level", m.OptLevel()).
		Msg("target machine configured")
	return nil
}

// TargetMachine returns the live target machine, or nil when the Compiler
// has not been configured.
func (c *Compiler) TargetMachine() *target.Machine {
	return c.machine
}

// EnableOpt switches the optimization passes on or off until the next
// Configure.
func (c *Compiler) EnableOpt(on bool) {
	c.enableOpt = on
}

// OptEnabled reports whether optimization passes are on.
func (c *Compiler) OptEnabled() bool {
	return c.enableOpt
}

// Compile compiles s and writes the generated code to w. When irw is not
// nil the module is also written to it after the transformation passes and
// before code generation, whether or not code generation then succeeds.
func (c *Compiler) Compile(s *script.Script, w io.Writer, irw io.Writer) error {
	if c.machine == nil {
		return errors.New(errors.ErrNoTargetMachine, "compile")
	}
	if s == nil {
		return errors.Errorf(errors.ErrInvalidSource, "compile", "nil script")
	}
	log := c.log.With().
		Str("compile_id", uuid.Must(uuid.NewV4()).String()).
		Str("script", s.Name()).
		Logger()
	start := time.Now()
	if err := c.compile(s, w, irw, log); err != nil {
		log.Error().
			Err(err).
			Stringer("code", errors.CodeOf(err)).
			Msg("compilation failed")
		return err
	}
	log.Info().
		Str("triple", c.machine.Triple()).
		Dur("elapsed", time.Since(start)).
		Msg("compiled")
	return nil
}

// CompileFile compiles s into the output file f and closes it. On failure
// the partially written file is removed.
func (c *Compiler) CompileFile(s *script.Script, f *output.File, irw io.Writer) (err error) {
	if f != nil {
		defer func() {
			if err != nil {
				f.Discard()
			}
		}()
	}
	if c.machine == nil {
		return errors.New(errors.ErrNoTargetMachine, "compile")
	}
	if f == nil || f.HasError() {
		var cause error
		if f != nil {
			cause = f.Err()
		}
		return errors.Wrap(errors.ErrInvalidOutputFileState, "output", cause)
	}
	w, err := f.Writer()
	if err != nil {
		return errors.Wrap(errors.ErrPrepareOutput, "output", err)
	}
	if err := c.Compile(s, w, irw); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrPrepareOutput, "output", err)
	}
	return nil
}

func (c *Compiler) compile(s *script.Script, w io.Writer, irw io.Writer, log zerolog.Logger) error {
	if s.State() == script.Failed {
		return errors.Errorf(errors.ErrInvalidSource, "source",
			"script %s was left in a failed state by an earlier compilation; reload it first", s.Name())
	}
	if err := s.Materialize(); err != nil {
		return errors.Wrap(errors.ErrMaterialization, "materialize", err)
	}
	mod := s.Module()
	if err := c.checkModule(mod); err != nil {
		return errors.Wrap(errors.ErrInvalidSource, "source", err)
	}
	if err := verify(mod); err != nil {
		return errors.Wrap(errors.ErrInvalidSource, "verify", err)
	}
	mod.TargetTriple = c.machine.Triple()
	mod.DataLayout = c.machine.DataLayout()

	if err := screenGlobals(mod, s.Info()); err != nil {
		return errors.Wrap(errors.IllegalGlobalFunction, "screen", err)
	}

	optimize := c.optimizeFor(s.Info())
	pl, err := c.buildPipeline(s, optimize, log)
	if err != nil {
		return err
	}
	if err := pl.manager.Run(mod); err != nil {
		s.MarkFailed()
		var runErr *pass.RunError
		if stderrors.As(err, &runErr) && runErr.Index >= pl.builtins {
			return errors.Wrap(errors.ErrCustomPasses, runErr.Pass, runErr.Err)
		}
		stage := "passes"
		if runErr != nil {
			stage = runErr.Pass
			err = runErr.Err
		}
		return errors.Wrap(errors.ErrInvalidSource, stage, err)
	}
	s.MarkTransformed()

	if irw != nil {
		if err := c.writeIR(irw, s, mod); err != nil {
			return errors.Wrap(errors.ErrPrepareOutput, "emit-ir", err)
		}
	}

	if w == nil {
		return errors.Errorf(errors.ErrInvalidOutputFileState, "output", "no output stream")
	}
	emit, err := c.machine.EmitPass(w, c.fileType, optimize)
	if err != nil {
		return errors.Wrap(errors.ErrPrepareCodeGenPass, "codegen", err)
	}
	codegen := pass.NewManager(log)
	if err := codegen.Add(emit); err != nil {
		return errors.Wrap(errors.ErrPrepareCodeGenPass, "codegen", err)
	}
	if err := codegen.Run(mod); err != nil {
		var werr *target.WriteError
		if stderrors.As(err, &werr) {
			return errors.Wrap(errors.ErrPrepareOutput, "codegen", werr)
		}
		return errors.Wrap(errors.ErrInvalidSource, "codegen", err)
	}
	return nil
}

// optimizeFor combines the compiler's switch with the script's own
// optimization level or optimization_level pragma.
func (c *Compiler) optimizeFor(info *script.Info) bool {
	if lvl, ok := info.EffectiveOptLevel(); ok && lvl == config.OptNone {
		return false
	}
	return c.enableOpt
}

// checkModule rejects modules built for a different target.
func (c *Compiler) checkModule(mod *ir.Module) error {
	if mod.TargetTriple != "" {
		if t := target.Lookup(mod.TargetTriple); t != c.machine.Target() {
			return fmt.Errorf("module triple %q does not match target %s", mod.TargetTriple, c.machine.Target().Name)
		}
	}
	if mod.DataLayout != "" {
		if bits := pointerBits(mod.DataLayout); bits != c.machine.PointerSize() {
			return fmt.Errorf("module pointer size %d does not match target pointer size %d", bits, c.machine.PointerSize())
		}
	}
	return nil
}

// pointerBits returns the size of address space 0 pointers described by an
// LLVM data layout string. LLVM's default is 64.
func pointerBits(layout string) int {
	for _, field := range strings.Split(layout, "-") {
		var rest string
		switch {
		case strings.HasPrefix(field, "p:"):
			rest = field[2:]
		case strings.HasPrefix(field, "p0:"):
			rest = field[3:]
		default:
			continue
		}
		size, _, _ := strings.Cut(rest, ":")
		var bits int
		if _, err := fmt.Sscanf(size, "%d", &bits); err == nil {
			return bits
		}
	}
	return 64
}

func (c *Compiler) writeIR(w io.Writer, s *script.Script, mod *ir.Module) error {
	if c.irFormat == IRBitcode {
		return script.WriteBitcode(w, s.Name(), mod, s.Info())
	}
	_, err := mod.WriteTo(w)
	return err
}
