package errors

import "fmt"

// ErrorCode identifies the outcome of a driver operation. The set is closed:
// every failure the compiler reports maps to exactly one of these codes, and
// Success is the only non-error member.
type ErrorCode int

const (
	Success ErrorCode = iota

	InvalidConfigNoTarget
	ErrCreateTargetMachine
	ErrSwitchTargetMachine
	ErrNoTargetMachine
	ErrMaterialization
	ErrInvalidOutputFileState
	ErrPrepareOutput
	ErrPrepareCodeGenPass

	ErrCustomPasses

	ErrInvalidSource

	IllegalGlobalFunction

	numCodes
)

var codeNames = [numCodes]string{
	Success:                   "Success",
	InvalidConfigNoTarget:     "InvalidConfigNoTarget",
	ErrCreateTargetMachine:    "ErrCreateTargetMachine",
	ErrSwitchTargetMachine:    "ErrSwitchTargetMachine",
	ErrNoTargetMachine:        "ErrNoTargetMachine",
	ErrMaterialization:        "ErrMaterialization",
	ErrInvalidOutputFileState: "ErrInvalidOutputFileState",
	ErrPrepareOutput:          "ErrPrepareOutput",
	ErrPrepareCodeGenPass:     "ErrPrepareCodeGenPass",
	ErrCustomPasses:           "ErrCustomPasses",
	ErrInvalidSource:          "ErrInvalidSource",
	IllegalGlobalFunction:     "IllegalGlobalFunction",
}

// codeDescriptions maps error codes to their short descriptions.
var codeDescriptions = [numCodes]string{
	Success:                   "successfully compiled",
	InvalidConfigNoTarget:     "invalid configuration (no target is specified)",
	ErrCreateTargetMachine:    "failed to create the target machine",
	ErrSwitchTargetMachine:    "failed to switch to the new target machine (the previous one is kept)",
	ErrNoTargetMachine:        "no target machine configured (call Configure first)",
	ErrMaterialization:        "failed to materialize the module",
	ErrInvalidOutputFileState: "output file is in an invalid state",
	ErrPrepareOutput:          "failed to prepare the output for writing",
	ErrPrepareCodeGenPass:     "failed to add the code generation pass",
	ErrCustomPasses:           "failed to add a pass to the pipeline",
	ErrInvalidSource:          "source module is invalid",
	IllegalGlobalFunction:     "module exports an illegal global function",
}

// Codes returns every member of the enumeration in declaration order.
func Codes() []ErrorCode {
	codes := make([]ErrorCode, 0, numCodes)
	for c := Success; c < numCodes; c++ {
		codes = append(codes, c)
	}
	return codes
}

// Valid reports whether c is a member of the enumeration.
func (c ErrorCode) Valid() bool {
	return c >= Success && c < numCodes
}

// Description returns the human readable description for an error code.
func (c ErrorCode) Description() string {
	if !c.Valid() {
		return fmt.Sprintf("unknown error code %d", int(c))
	}
	return codeDescriptions[c]
}

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	if !c.Valid() {
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
	return codeNames[c]
}

// Error lets a bare code be returned and matched as an error.
func (c ErrorCode) Error() string {
	return c.Description()
}

// Describe returns the description of code. It is the free-function form of
// ErrorCode.Description.
func Describe(code ErrorCode) string {
	return code.Description()
}
