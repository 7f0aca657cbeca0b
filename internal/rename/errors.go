package rename

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes orchestrator errors.
type ErrorCode string

const (
	// ErrCodeTransform indicates the transformer rejected a name or
	// produced an empty one.
	ErrCodeTransform ErrorCode = "TRANSFORM"

	// ErrCodeStoreIO indicates the provenance store could not be read or
	// written. It aborts the whole invocation.
	ErrCodeStoreIO ErrorCode = "STORE_IO"

	// ErrCodeCorrupt indicates a provenance record that does not decrypt
	// under the current name.
	ErrCodeCorrupt ErrorCode = "PROVENANCE_CORRUPT"

	// ErrCodeRenameFailed indicates the filesystem rename failed or the
	// target already exists.
	ErrCodeRenameFailed ErrorCode = "RENAME_FAILED"

	// ErrCodeInvalidInput indicates bad arguments, detected before any
	// file is touched.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Stage names the step of a rename that failed.
type Stage string

const (
	StageInput     Stage = "input"
	StageRules     Stage = "rules"
	StageTransform Stage = "transform"
	StageRename    Stage = "rename"
	StageRecord    Stage = "record"
	StageLookup    Stage = "lookup"
	StageConsume   Stage = "consume"
)

// Error is returned for every failed forward or reverse operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Stage is the step that failed.
	Stage Stage

	// Path is the affected entry, empty for batch-level errors.
	Path string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s, stage=%s)", e.Code, msg, e.Path, e.Stage)
	}
	return fmt.Sprintf("%s: %s (stage=%s)", e.Code, msg, e.Stage)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsStoreIO returns true if the error is a store IO error.
// Uses errors.As to handle wrapped errors.
func IsStoreIO(err error) bool { return hasCode(err, ErrCodeStoreIO) }

// IsCorrupt returns true if the error is a corrupt provenance record.
func IsCorrupt(err error) bool { return hasCode(err, ErrCodeCorrupt) }

// IsRenameFailed returns true if the error is a failed filesystem rename.
func IsRenameFailed(err error) bool { return hasCode(err, ErrCodeRenameFailed) }

// IsTransform returns true if the error came from the transformer.
func IsTransform(err error) bool { return hasCode(err, ErrCodeTransform) }

// IsInvalidInput returns true if the error rejects the arguments.
func IsInvalidInput(err error) bool { return hasCode(err, ErrCodeInvalidInput) }

func newStoreIOError(stage Stage, path string, err error) *Error {
	return &Error{
		Code:    ErrCodeStoreIO,
		Stage:   stage,
		Path:    path,
		Message: "provenance store failed",
		Err:     err,
	}
}

func newRenameError(path, target string, err error) *Error {
	return &Error{
		Code:    ErrCodeRenameFailed,
		Stage:   StageRename,
		Path:    path,
		Message: fmt.Sprintf("rename to %q failed", target),
		Err:     err,
	}
}

func newInputError(path, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidInput,
		Stage:   StageInput,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}
