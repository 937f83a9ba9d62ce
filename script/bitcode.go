package script

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
)

// BitcodeMagic starts every bitcode container.
const BitcodeMagic = "BCC\x00"

// BitcodeVersion is the container version written by WriteBitcode.
const BitcodeVersion = 1

type container struct {
	Magic   string `cbor:"1,keyasint"`
	Version int    `cbor:"2,keyasint"`
	Source  string `cbor:"3,keyasint,omitempty"`
	Info    *Info  `cbor:"4,keyasint"`
	Module  []byte `cbor:"5,keyasint"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("script: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// WriteBitcode writes mod and info as a bitcode container.
func WriteBitcode(w io.Writer, source string, mod *ir.Module, info *Info) error {
	if info == nil {
		info = &Info{}
	}
	var text bytes.Buffer
	if _, err := mod.WriteTo(&text); err != nil {
		return err
	}
	data, err := encMode.Marshal(&container{
		Magic:   BitcodeMagic,
		Version: BitcodeVersion,
		Source:  source,
		Info:    info,
		Module:  text.Bytes(),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadBitcode decodes a bitcode container. The container header and
// metadata are checked immediately; the module itself is parsed when the
// script is materialized.
func ReadBitcode(name string, data []byte) (*Script, error) {
	var c container
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%s: not a bitcode container: %w", name, err)
	}
	if c.Magic != BitcodeMagic {
		return nil, fmt.Errorf("%s: not a bitcode container: bad magic %q", name, c.Magic)
	}
	if c.Version != BitcodeVersion {
		return nil, fmt.Errorf("%s: unsupported bitcode version %d", name, c.Version)
	}
	if c.Info == nil {
		c.Info = &Info{}
	}
	if err := c.Info.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if c.Source != "" {
		name = c.Source
	}
	text := c.Module
	return NewLazy(name, func() (*ir.Module, error) {
		return asm.ParseBytes(name, text)
	}, c.Info), nil
}

// IsBitcode reports whether data looks like a bitcode container.
func IsBitcode(data []byte) bool {
	var c struct {
		Magic string `cbor:"1,keyasint"`
	}
	return cbor.Unmarshal(data, &c) == nil && c.Magic == BitcodeMagic
}
