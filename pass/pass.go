// Package pass defines module transformation passes and the ordered manager
// that runs them.
//
// A pass is a named step with a Run(*ir.Module) error contract. A Manager
// holds passes in the order they were added and runs them one after another,
// stopping at the first failure. Passes may declare prerequisites by
// implementing Requirer; the manager refuses to add a pass whose
// prerequisites have not already been added, which is how ordering contracts
// between pipeline stages are enforced.
package pass

import (
	"fmt"
	"time"

	"github.com/llir/llvm/ir"
	"github.com/rs/zerolog"
)

// Pass is one discrete module transformation step.
type Pass interface {
	// Name returns a stable identifier for the pass, e.g. "rs-invariant".
	Name() string
	// Run transforms m in place.
	Run(m *ir.Module) error
}

// Requirer is implemented by passes that must run after other passes.
type Requirer interface {
	// Requires returns the names of passes that must already be scheduled.
	Requires() []string
}

type funcPass struct {
	name     string
	requires []string
	fn       func(*ir.Module) error
}

// NewFunc returns a Pass that calls fn. Any names in requires become the
// pass's prerequisites.
func NewFunc(name string, fn func(*ir.Module) error, requires ...string) Pass {
	return &funcPass{name: name, fn: fn, requires: requires}
}

func (p *funcPass) Name() string { return p.name }

func (p *funcPass) Run(m *ir.Module) error { return p.fn(m) }

func (p *funcPass) Requires() []string { return p.requires }

// RunError reports the pass that failed while a Manager was running.
type RunError struct {
	Pass  string
	Index int
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("pass %q failed: %s", e.Pass, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Manager runs an ordered list of passes over a module.
type Manager struct {
	passes    []Pass
	scheduled map[string]bool
	log       zerolog.Logger
}

// NewManager returns an empty Manager that logs pass execution to log.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{scheduled: map[string]bool{}, log: log}
}

// Add appends p to the pipeline. A name may be scheduled once.
func (pm *Manager) Add(p Pass) error {
	if p == nil {
		return fmt.Errorf("nil pass")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("pass has no name")
	}
	if pm.scheduled[name] {
		return fmt.Errorf("pass %q is already scheduled", name)
	}
	if r, ok := p.(Requirer); ok {
		for _, req := range r.Requires() {
			if !pm.scheduled[req] {
				return fmt.Errorf("pass %q requires %q to run first", name, req)
			}
		}
	}
	pm.passes = append(pm.passes, p)
	pm.scheduled[name] = true
	return nil
}

// Len returns the number of scheduled passes.
func (pm *Manager) Len() int {
	return len(pm.passes)
}

// Names returns the scheduled pass names in execution order.
func (pm *Manager) Names() []string {
	names := make([]string, len(pm.passes))
	for i, p := range pm.passes {
		names[i] = p.Name()
	}
	return names
}

// Has reports whether a pass with the given name is scheduled.
func (pm *Manager) Has(name string) bool {
	return pm.scheduled[name]
}

// Run executes every pass in order. The first failure stops the run and is
// returned as a *RunError; the module may be left partially transformed.
func (pm *Manager) Run(m *ir.Module) error {
	for i, p := range pm.passes {
		start := time.Now()
		if err := p.Run(m); err != nil {
			pm.log.Debug().Str("pass", p.Name()).Err(err).Msg("pass failed")
			return &RunError{Pass: p.Name(), Index: i, Err: err}
		}
		pm.log.Debug().
			Str("pass", p.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("pass finished")
	}
	return nil
}
