package script

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// InfoPath returns where LoadFile looks for the metadata of an assembly
// file: the same path with ".toml" appended.
func InfoPath(path string) string { return path + ".toml" }

// LoadFile loads a script from LLVM assembly (.ll) or a bitcode container
// (.bc, or any file starting with the container magic).
//
// Metadata for assembly files is read from InfoPath(path) when that file
// exists. A non-nil info overrides both the sidecar and the metadata stored
// in a bitcode container.
func LoadFile(path string, info *Info) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".bc") || IsBitcode(data) {
		s, err := ReadBitcode(path, data)
		if err != nil {
			return nil, err
		}
		if info != nil {
			s.info = info
		}
		return s, nil
	}
	if info == nil {
		info, err = LoadInfo(InfoPath(path))
		if errors.Is(err, fs.ErrNotExist) {
			info, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
	}
	return FromText(path, string(data), info), nil
}
