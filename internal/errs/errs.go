// Package errs defines the pipeline's error taxonomy. Callers
// distinguish the categories with errors.As to decide whether a retry
// with different input or a force-overwrite retry makes sense.
package errs

import "fmt"

// CollisionError reports that an output path already exists. The caller
// may offer a force-overwrite retry; nothing has been written.
type CollisionError struct {
	Path string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("output file already exists: %s (pass -force to overwrite)", e.Path)
}

// InvalidInputError reports input the pipeline cannot process. Not
// retriable without changing the input.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// Invalidf builds an InvalidInputError with a formatted reason.
func Invalidf(format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// ToolError reports an external tool failure with the diagnostic text
// the tool produced.
type ToolError struct {
	Tool   string
	Detail string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s failed: %v: %s", e.Tool, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
