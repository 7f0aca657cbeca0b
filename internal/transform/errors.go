package transform

import (
	"errors"
	"fmt"

	"github.com/roach88/fdn/internal/rules"
)

// ErrorCode categorizes transformer errors.
type ErrorCode string

const (
	// ErrCodeNoConvergence indicates a fixed-point loop exceeded its bound.
	ErrCodeNoConvergence ErrorCode = "NO_CONVERGENCE"

	// ErrCodeInvalidRules indicates a rule set the transformer cannot apply.
	ErrCodeInvalidRules ErrorCode = "INVALID_RULES"
)

// Stage names the rewriting step that failed.
type Stage string

const (
	StageCollapse   Stage = "collapse"
	StageTerms      Stage = "terms"
	StageFixedPoint Stage = "fixed_point"
)

// Error is returned when a name cannot be transformed.
type Error struct {
	Code    ErrorCode
	Stage   Stage
	Name    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s (name=%q, stage=%s)", e.Code, e.Message, e.Name, e.Stage)
	}
	return fmt.Sprintf("%s: %s (name=%q)", e.Code, e.Message, e.Name)
}

// IsConvergenceError returns true if the error is a fixed-point bound error.
// Uses errors.As to handle wrapped errors.
func IsConvergenceError(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == ErrCodeNoConvergence
	}
	return false
}

// budget bounds fixed-point iteration. Pass counts are tracked per stage;
// the working string may never exceed maxLen bytes.
type budget struct {
	name      string
	maxPasses int
	maxLen    int
	passes    map[Stage]int
}

func newBudget(name string, r rules.Rules) *budget {
	return &budget{
		name:      name,
		maxPasses: len(name) + r.Size() + 2,
		maxLen:    4*len(name) + 256,
		passes:    make(map[Stage]int, 3),
	}
}

func (b *budget) reset(stage Stage) {
	b.passes[stage] = 0
}

// pass records one changing pass of stage.
func (b *budget) pass(s string, stage Stage) error {
	b.passes[stage]++
	if b.passes[stage] > b.maxPasses {
		return &Error{
			Code:    ErrCodeNoConvergence,
			Stage:   stage,
			Name:    b.name,
			Message: fmt.Sprintf("no fixed point after %d passes", b.maxPasses),
		}
	}
	return b.grow(s, stage)
}

// grow fails once the working string outgrows the bound.
func (b *budget) grow(s string, stage Stage) error {
	if len(s) > b.maxLen {
		return &Error{
			Code:    ErrCodeNoConvergence,
			Stage:   stage,
			Name:    b.name,
			Message: fmt.Sprintf("name grew past %d bytes", b.maxLen),
		}
	}
	return nil
}
