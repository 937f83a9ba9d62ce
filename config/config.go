// Package config describes the code generation options a compiler is
// configured with. A Config is built once, by the caller or from a TOML file,
// and is only read by the compiler.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// RelocModel selects how code and data addresses are materialized.
type RelocModel string

const (
	RelocDefault      RelocModel = ""
	RelocStatic       RelocModel = "static"
	RelocPIC          RelocModel = "pic"
	RelocDynamicNoPIC RelocModel = "dynamic-no-pic"
)

// CodeModel bounds the size of the generated code and data.
type CodeModel string

const (
	CodeModelDefault CodeModel = ""
	CodeModelSmall   CodeModel = "small"
	CodeModelMedium  CodeModel = "medium"
	CodeModelLarge   CodeModel = "large"
	CodeModelKernel  CodeModel = "kernel"
)

// FileType selects what the code generator writes to the output sink.
type FileType string

const (
	FileTypeObject   FileType = "obj"
	FileTypeAssembly FileType = "asm"
)

// Optimization levels, mirroring -O0 through -O3.
const (
	OptNone       = 0
	OptLess       = 1
	OptDefault    = 2
	OptAggressive = 3
)

// Config holds code generation options.
type Config struct {
	// Triple names the target, e.g. "aarch64-none-linux-gnueabi" or just
	// "x86_64". The architecture component selects the target.
	Triple string `toml:"triple"`

	// CPU selects a specific processor of the target. Empty means generic.
	CPU string `toml:"cpu"`

	// Features enables (+name) or disables (-name) target features.
	Features []string `toml:"features"`

	RelocModel RelocModel `toml:"reloc-model"`
	CodeModel  CodeModel  `toml:"code-model"`

	// OptLevel is the code generation optimization level, 0 through 3.
	OptLevel int `toml:"opt-level"`

	FileType FileType `toml:"file-type"`
}

// Default returns a configuration for triple with aggressive optimization
// and object file output.
func Default(triple string) *Config {
	return &Config{
		Triple:   triple,
		OptLevel: OptAggressive,
		FileType: FileTypeObject,
	}
}

// Parse decodes a TOML document into a Config. Keys that are absent keep
// their Default values.
func Parse(data string) (*Config, error) {
	cfg := Default("")
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Load reads a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return cfg, nil
}

// Arch returns the architecture component of the triple.
func (c *Config) Arch() string {
	arch, _, _ := strings.Cut(c.Triple, "-")
	return arch
}

// FeatureString joins the feature list the way target feature strings are
// usually spelled, e.g. "+neon,-fp16".
func (c *Config) FeatureString() string {
	return strings.Join(c.Features, ",")
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Features = append([]string(nil), c.Features...)
	return &clone
}
