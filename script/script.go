// Package script holds the unit of compilation: one IR module together with
// the metadata describing what it exports.
//
// A Script may be created around an already parsed module or around a
// loader that produces the module on first use. Compilation rewrites the
// module in place; the state flag records whether that happened and whether
// it went wrong.
package script

import (
	"fmt"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
)

// State tracks what compilation has done to a script's module.
type State int

const (
	// Pristine modules have not been touched by any pass.
	Pristine State = iota
	// Transformed modules went through the pipeline successfully.
	Transformed
	// Failed modules were left partially rewritten by a failed pipeline.
	Failed
)

func (s State) String() string {
	switch s {
	case Pristine:
		return "pristine"
	case Transformed:
		return "transformed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Loader produces a fresh copy of a script's module.
type Loader func() (*ir.Module, error)

// Script is an IR module plus its metadata.
type Script struct {
	name   string
	info   *Info
	load   Loader
	module *ir.Module
	state  State
}

// New wraps an already materialized module. Reload restores the module as
// it was when New was called. A nil module gives a script that fails to
// materialize.
func New(name string, mod *ir.Module, info *Info) *Script {
	if mod == nil {
		return &Script{name: name, info: infoOrEmpty(info)}
	}
	snapshot := mod.String()
	return &Script{
		name:   name,
		info:   infoOrEmpty(info),
		module: mod,
		load: func() (*ir.Module, error) {
			return asm.ParseString(name, snapshot)
		},
	}
}

// NewLazy creates a script whose module is produced by load on first use.
func NewLazy(name string, load Loader, info *Info) *Script {
	return &Script{name: name, info: infoOrEmpty(info), load: load}
}

// FromText creates a script from LLVM assembly. Parsing is deferred until
// the module is materialized.
func FromText(name, text string, info *Info) *Script {
	return NewLazy(name, func() (*ir.Module, error) {
		return asm.ParseString(name, text)
	}, info)
}

func infoOrEmpty(info *Info) *Info {
	if info == nil {
		return &Info{}
	}
	return info
}

// Name identifies the script in diagnostics, usually its source path.
func (s *Script) Name() string { return s.name }

// Info returns the script metadata.
func (s *Script) Info() *Info { return s.info }

// Materialized reports whether the module has been loaded.
func (s *Script) Materialized() bool { return s.module != nil }

// Materialize loads the module if needed.
func (s *Script) Materialize() error {
	if s.module != nil {
		return nil
	}
	if s.load == nil {
		return fmt.Errorf("script %s has no module", s.name)
	}
	mod, err := s.load()
	if err != nil {
		return fmt.Errorf("materialize %s: %w", s.name, err)
	}
	if mod == nil {
		return fmt.Errorf("materialize %s: loader returned no module", s.name)
	}
	s.module = mod
	return nil
}

// Module returns the module, or nil when it has not been materialized.
func (s *Script) Module() *ir.Module { return s.module }

// State returns the compilation state of the module.
func (s *Script) State() State { return s.state }

// MarkTransformed records a successful pass pipeline run.
func (s *Script) MarkTransformed() { s.state = Transformed }

// MarkFailed records that the module was left in an unknown state.
func (s *Script) MarkFailed() { s.state = Failed }

// Reload discards the module and loads it again from its source, returning
// the script to the pristine state.
func (s *Script) Reload() error {
	if s.load == nil {
		return fmt.Errorf("script %s has no source to reload from", s.name)
	}
	s.module = nil
	s.state = Pristine
	return s.Materialize()
}
