package script

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Foreach kernel signature bits. A kernel takes, in order, an input element
// pointer, an output element pointer and the element index, each present
// only when its bit is set.
const (
	SigIn  uint32 = 0x01
	SigOut uint32 = 0x02
	SigX   uint32 = 0x08

	sigSupported = SigIn | SigOut | SigX
)

// Pragmas the compiler reads. Other pragmas are carried along untouched.
const (
	// PragmaOptimizationLevel sets the script's optimization level, 0-3.
	// An explicit OptLevel takes precedence.
	PragmaOptimizationLevel = "optimization_level"
	// PragmaInternalize set to false keeps every definition external.
	PragmaInternalize = "internalize"
)

// Kernel describes an exported foreach kernel.
type Kernel struct {
	Name      string `toml:"name" cbor:"1,keyasint"`
	Signature uint32 `toml:"signature" cbor:"2,keyasint"`
}

// HasIn reports whether the kernel reads an input element.
func (k Kernel) HasIn() bool { return k.Signature&SigIn != 0 }

// HasOut reports whether the kernel writes an output element.
func (k Kernel) HasOut() bool { return k.Signature&SigOut != 0 }

// HasX reports whether the kernel receives the element index.
func (k Kernel) HasX() bool { return k.Signature&SigX != 0 }

// Info is the metadata a script carries next to its module: what it exports
// and how it wants to be compiled.
type Info struct {
	ExportFuncs []string          `toml:"export-funcs" cbor:"1,keyasint,omitempty"`
	ExportVars  []string          `toml:"export-vars" cbor:"2,keyasint,omitempty"`
	Kernels     []Kernel          `toml:"foreach" cbor:"3,keyasint,omitempty"`
	Pragmas     map[string]string `toml:"pragmas" cbor:"4,keyasint,omitempty"`

	// OptLevel overrides the compiler's optimization switch for this
	// script when set. Zero turns optimization off.
	OptLevel *int `toml:"opt-level" cbor:"5,keyasint,omitempty"`

	// KeepExternal skips symbol internalization.
	KeepExternal bool `toml:"keep-external" cbor:"6,keyasint,omitempty"`

	// CustomPasses and PostLTOPasses name registered passes to run after
	// the built-in pipeline.
	CustomPasses  []string `toml:"custom-passes" cbor:"7,keyasint,omitempty"`
	PostLTOPasses []string `toml:"post-lto-passes" cbor:"8,keyasint,omitempty"`
}

// ParseInfo decodes TOML script metadata.
func ParseInfo(data string) (*Info, error) {
	var info Info
	md, err := toml.Decode(data, &info)
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
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return &info, nil
}

// LoadInfo reads script metadata from a TOML file.
func LoadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	info, err := ParseInfo(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return info, nil
}

// Validate checks that every exported name is given once and that kernel
// signatures only use supported bits.
func (info *Info) Validate() error {
	seen := map[string]string{}
	check := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("empty %s name", kind)
		}
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%q exported as both %s and %s", name, prev, kind)
		}
		seen[name] = kind
		return nil
	}
	for _, name := range info.ExportFuncs {
		if err := check("function", name); err != nil {
			return err
		}
	}
	for _, name := range info.ExportVars {
		if err := check("variable", name); err != nil {
			return err
		}
	}
	for _, k := range info.Kernels {
		if err := check("kernel", k.Name); err != nil {
			return err
		}
		if k.Signature&^sigSupported != 0 {
			return fmt.Errorf("kernel %q: unsupported signature bits %#x", k.Name, k.Signature&^sigSupported)
		}
	}
	if info.OptLevel != nil && (*info.OptLevel < 0 || *info.OptLevel > 3) {
		return fmt.Errorf("invalid optimization level %d", *info.OptLevel)
	}
	if _, _, err := info.pragmaOptLevel(); err != nil {
		return err
	}
	if _, _, err := info.pragmaInternalize(); err != nil {
		return err
	}
	return nil
}

func (info *Info) pragmaOptLevel() (int, bool, error) {
	v, ok := info.Pragma(PragmaOptimizationLevel)
	if !ok {
		return 0, false, nil
	}
	lvl, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || lvl < 0 || lvl > 3 {
		return 0, false, fmt.Errorf("pragma %s: invalid optimization level %q", PragmaOptimizationLevel, v)
	}
	return lvl, true, nil
}

func (info *Info) pragmaInternalize() (bool, bool, error) {
	v, ok := info.Pragma(PragmaInternalize)
	if !ok {
		return false, false, nil
	}
	on, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false, fmt.Errorf("pragma %s: expected a boolean, got %q", PragmaInternalize, v)
	}
	return on, true, nil
}

// EffectiveOptLevel returns the optimization level the script asks for,
// from OptLevel or else the optimization_level pragma. ok is false when
// the script does not ask.
func (info *Info) EffectiveOptLevel() (level int, ok bool) {
	if info.OptLevel != nil {
		return *info.OptLevel, true
	}
	lvl, ok, err := info.pragmaOptLevel()
	if err != nil {
		return 0, false
	}
	return lvl, ok
}

// ShouldInternalize reports whether non-exported definitions may lose
// external linkage.
func (info *Info) ShouldInternalize() bool {
	if info.KeepExternal {
		return false
	}
	on, ok, err := info.pragmaInternalize()
	return err != nil || !ok || on
}

// HasKernels reports whether the script declares foreach kernels.
func (info *Info) HasKernels() bool { return len(info.Kernels) > 0 }

// Exported returns every exported name, sorted.
func (info *Info) Exported() []string {
	names := make([]string, 0, len(info.ExportFuncs)+len(info.ExportVars)+len(info.Kernels))
	names = append(names, info.ExportFuncs...)
	names = append(names, info.ExportVars...)
	for _, k := range info.Kernels {
		names = append(names, k.Name)
	}
	sort.Strings(names)
	return names
}

// Pragma returns the value of a pragma and whether it was set.
func (info *Info) Pragma(name string) (string, bool) {
	v, ok := info.Pragmas[name]
	return v, ok
}

// Clone returns a deep copy of info.
func (info *Info) Clone() *Info {
	out := *info
	out.ExportFuncs = append([]string(nil), info.ExportFuncs...)
	out.ExportVars = append([]string(nil), info.ExportVars...)
	out.Kernels = append([]Kernel(nil), info.Kernels...)
	out.CustomPasses = append([]string(nil), info.CustomPasses...)
	out.PostLTOPasses = append([]string(nil), info.PostLTOPasses...)
	if info.Pragmas != nil {
		out.Pragmas = make(map[string]string, len(info.Pragmas))
		for k, v := range info.Pragmas {
			out.Pragmas[k] = v
		}
	}
	if info.OptLevel != nil {
		lvl := *info.OptLevel
		out.OptLevel = &lvl
	}
	return &out
}
