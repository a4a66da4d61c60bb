package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

// Sentinel errors, one per failure kind. Typed errors below wrap them so callers can use errors.Is.
var (
	ErrValidation               = errors.New("invalid workflow definition")
	ErrDefinitionNotFound       = errors.New("workflow definition not found")
	ErrInstanceNotFound         = errors.New("workflow instance not found")
	ErrInvalidOrDisabledState   = errors.New("current state is invalid or disabled")
	ErrTerminalState            = errors.New("cannot execute actions on a final state")
	ErrActionNotFoundOrDisabled = errors.New("action not found or disabled")
	ErrActionNotApplicable      = errors.New("action not valid from current state")
	ErrDwellTimeNotMet          = errors.New("minimum time in state not met")
	ErrConcurrentModification   = errors.New("instance was modified concurrently")
	ErrDefinitionExists         = errors.New("workflow definition already exists")
)

// ErrorKind names the failure categories reported to callers.
type ErrorKind string

const (
	KindNone                     ErrorKind = ""
	KindValidation               ErrorKind = "ValidationError"
	KindDefinitionNotFound       ErrorKind = "DefinitionNotFound"
	KindInstanceNotFound         ErrorKind = "InstanceNotFound"
	KindInvalidOrDisabledState   ErrorKind = "InvalidOrDisabledState"
	KindTerminalStateViolation   ErrorKind = "TerminalStateViolation"
	KindActionNotFoundOrDisabled ErrorKind = "ActionNotFoundOrDisabled"
	KindActionNotApplicable      ErrorKind = "ActionNotApplicable"
	KindMinimumDwellTimeNotMet   ErrorKind = "MinimumDwellTimeNotMet"
	KindConcurrentModification   ErrorKind = "ConcurrentModification"
	KindDefinitionExists         ErrorKind = "DefinitionExists"
	KindInternal                 ErrorKind = "Internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrValidation, KindValidation},
	{ErrDefinitionNotFound, KindDefinitionNotFound},
	{ErrInstanceNotFound, KindInstanceNotFound},
	{ErrInvalidOrDisabledState, KindInvalidOrDisabledState},
	{ErrTerminalState, KindTerminalStateViolation},
	{ErrActionNotFoundOrDisabled, KindActionNotFoundOrDisabled},
	{ErrActionNotApplicable, KindActionNotApplicable},
	{ErrDwellTimeNotMet, KindMinimumDwellTimeNotMet},
	{ErrConcurrentModification, KindConcurrentModification},
	{ErrDefinitionExists, KindDefinitionExists},
}

// KindOf maps err onto the error taxonomy. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ValidationError describes why a definition is malformed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TransitionError wraps a failed guard or store error with the operation context.
type TransitionError struct {
	Op         string // Operation being performed (e.g. "ExecuteAction", "StartInstance")
	InstanceID string
	ActionID   string
	Message    string // Human readable reason surfaced to the end caller
	Err        error
}

func (e *TransitionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s failed for instance %s: %v", e.Op, e.InstanceID, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func (e *TransitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// DwellTimeError reports an action requested before the instance spent long enough in its state.
type DwellTimeError struct {
	StateName       string
	RequiredSeconds int
	Elapsed         time.Duration
}

func (e *DwellTimeError) Error() string {
	return fmt.Sprintf("Must remain in %s for at least %d seconds.", e.StateName, e.RequiredSeconds)
}

func (e *DwellTimeError) Unwrap() error {
	return ErrDwellTimeNotMet
}

// Remaining is how long the caller has to wait before retrying.
func (e *DwellTimeError) Remaining() time.Duration {
	required := domain.DwellDuration(e.RequiredSeconds)
	if e.Elapsed <= 0 {
		return required
	}
	r := required - e.Elapsed
	if r < 0 {
		return 0
	}
	return r
}
