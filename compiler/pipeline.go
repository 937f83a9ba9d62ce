package compiler

import (
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/bcc/errors"
	"github.com/deepnoodle-ai/bcc/pass"
	"github.com/deepnoodle-ai/bcc/script"
	"github.com/deepnoodle-ai/bcc/transforms"
)

// Stage names reported when a caller-supplied pass cannot be scheduled.
const (
	StageInternalize = "internalize"
	StageCustom      = "custom"
	StagePostLTO     = "post-lto"
)

type pipeline struct {
	manager *pass.Manager
	// builtins is the number of leading passes that belong to the compiler.
	builtins int
}

// buildPipeline assembles the transformation passes for s. Kernel expansion
// always precedes the invariant and invoke helper passes, and both precede
// every caller-supplied pass.
func (c *Compiler) buildPipeline(s *script.Script, optimize bool, log zerolog.Logger) (*pipeline, error) {
	info := s.Info()
	pm := pass.NewManager(log)

	addBuiltin := func(p pass.Pass) error {
		if err := pm.Add(p); err != nil {
			return errors.Wrap(errors.ErrCustomPasses, p.Name(), err)
		}
		return nil
	}

	if info.ShouldInternalize() {
		if _, err := transforms.ExportSet(s.Module(), info); err != nil {
			return nil, errors.Wrap(errors.ErrCustomPasses, StageInternalize, err)
		}
		if err := addBuiltin(transforms.Internalize(info)); err != nil {
			return nil, err
		}
	}
	if info.HasKernels() {
		if err := addBuiltin(transforms.ExpandForEach(info)); err != nil {
			return nil, err
		}
	}
	if err := addBuiltin(transforms.Invariant(info)); err != nil {
		return nil, err
	}
	if err := addBuiltin(transforms.InvokeHelper(info)); err != nil {
		return nil, err
	}
	if optimize {
		if err := addBuiltin(transforms.DeadBlockElim()); err != nil {
			return nil, err
		}
		if err := addBuiltin(transforms.GlobalDCE()); err != nil {
			return nil, err
		}
	}
	builtins := pm.Len()

	if err := addCustom(pm, StageCustom, c.customPasses, info.CustomPasses); err != nil {
		return nil, err
	}
	if err := addCustom(pm, StagePostLTO, c.postLTOPasses, info.PostLTOPasses); err != nil {
		return nil, err
	}
	return &pipeline{manager: pm, builtins: builtins}, nil
}

// addCustom schedules caller-supplied passes followed by the registered
// passes named by the script.
func addCustom(pm *pass.Manager, stage string, passes []pass.Pass, names []string) error {
	for _, p := range passes {
		if err := pm.Add(p); err != nil {
			return errors.Wrap(errors.ErrCustomPasses, stage, err)
		}
	}
	for _, name := range names {
		p, err := pass.Lookup(name)
		if err != nil {
			return errors.Wrap(errors.ErrCustomPasses, stage, err)
		}
		if err := pm.Add(p); err != nil {
			return errors.Wrap(errors.ErrCustomPasses, stage, err)
		}
	}
	return nil
}
