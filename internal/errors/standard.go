// Package errors provides standardized error messaging shared by the
// emitter, its container backends, and the CLI tools built around them.
package errors

import (
	"fmt"
	"runtime"
)

// ErrorCategory represents different categories of errors.
type ErrorCategory string

const (
	CategoryIO         ErrorCategory = "IO"
	CategoryValidation ErrorCategory = "VALIDATION"
	CategoryProgrammer ErrorCategory = "PROGRAMMER"
	CategorySystem     ErrorCategory = "SYSTEM"
)

// StandardError provides a consistent error format.
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface.
func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// NewStandardError creates a new standardized error.
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(1)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// ContainerInitFailed reports that init_writer returned a null handle for
// the given output path. Recoverable only by the caller abandoning emission.
func ContainerInitFailed(path string, cause error) *StandardError {
	return NewStandardError(CategoryIO, "CONTAINER_INIT_FAILED",
		fmt.Sprintf("failed to open object writer for %q: %v", path, cause),
		map[string]interface{}{"path": path})
}

// UnsupportedRelocationKind reports a relocation kind absent from the fixed
// width table. Fatal — the upstream code generator emitted something this
// backend was never taught.
func UnsupportedRelocationKind(kind fmt.Stringer) *StandardError {
	return NewStandardError(CategoryProgrammer, "UNSUPPORTED_RELOCATION_KIND",
		fmt.Sprintf("relocation kind %s is not implemented", kind),
		map[string]interface{}{"kind": kind.String()})
}

// MalformedCFIBlob reports a Unix unwind blob whose length is not a
// multiple of the 8-byte CFI record size.
func MalformedCFIBlob(nodeName string, length int) *StandardError {
	return NewStandardError(CategoryProgrammer, "MALFORMED_CFI_BLOB",
		fmt.Sprintf("CFI blob for %q has length %d, not a multiple of 8", nodeName, length),
		map[string]interface{}{"node": nodeName, "length": length})
}

// FrameOverlap reports a violation of the single-frame-open invariant: two
// FrameInfos for the same node overlap, or a close was seen with no open
// frame.
func FrameOverlap(nodeName string, offset int, detail string) *StandardError {
	return NewStandardError(CategoryProgrammer, "FRAME_OVERLAP",
		fmt.Sprintf("frame overlap in %q at offset %d: %s", nodeName, offset, detail),
		map[string]interface{}{"node": nodeName, "offset": offset})
}

// DuplicateNodeName reports two nodes in the same emission claiming the same
// canonical name. Debug-build-only check; indicates a dependency-graph bug.
func DuplicateNodeName(name string) *StandardError {
	return NewStandardError(CategoryProgrammer, "DUPLICATE_NODE_NAME",
		fmt.Sprintf("node name %q defined more than once in this object", name),
		map[string]interface{}{"name": name})
}

// IncompatibleContainerVersion reports that the native container reported a
// version outside the range this emitter was built against.
func IncompatibleContainerVersion(reported, constraint string) *StandardError {
	return NewStandardError(CategorySystem, "INCOMPATIBLE_CONTAINER_VERSION",
		fmt.Sprintf("container version %q does not satisfy constraint %q", reported, constraint),
		map[string]interface{}{"reported": reported, "constraint": constraint})
}
