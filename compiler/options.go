package compiler

import (
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/bcc/pass"
)

// IRFormat selects how the pre-codegen module is written to the IR sink.
type IRFormat int

const (
	// IRText writes LLVM assembly.
	IRText IRFormat = iota
	// IRBitcode writes a bitcode container.
	IRBitcode
)

func (f IRFormat) String() string {
	if f == IRBitcode {
		return "bitcode"
	}
	return "text"
}

// Option describes a function used to configure a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger compilation events are written to. The default
// discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Compiler) {
		c.log = log
	}
}

// WithCustomPasses appends passes to run after the built-in pipeline. This
// option is additive.
func WithCustomPasses(passes ...pass.Pass) Option {
	return func(c *Compiler) {
		c.customPasses = append(c.customPasses, passes...)
	}
}

// WithPostLTOPasses appends passes to run after the custom passes. This
// option is additive.
func WithPostLTOPasses(passes ...pass.Pass) Option {
	return func(c *Compiler) {
		c.postLTOPasses = append(c.postLTOPasses, passes...)
	}
}

// WithIRFormat selects the format of the IR sink.
func WithIRFormat(f IRFormat) Option {
	return func(c *Compiler) {
		c.irFormat = f
	}
}
