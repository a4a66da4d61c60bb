package engine

import (
	"time"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

// StartInstance binds a new instance to the initial state of def.
// The definition is validated again because it may have been loaded from a store that skipped validation.
func StartInstance(def *domain.WorkflowDef, id string, now time.Time) (*domain.WorkflowInstance, error) {
	if def == nil {
		return nil, &TransitionError{Op: "StartInstance", InstanceID: id, Message: "Workflow definition not found.", Err: ErrDefinitionNotFound}
	}
	if err := ValidateDefinition(def); err != nil {
		return nil, err
	}
	initial := def.InitialState()
	if initial == nil {
		return nil, &ValidationError{Reason: "Workflow must have exactly one initial state."}
	}

	return &domain.WorkflowInstance{
		ID:                   id,
		WorkflowDefinitionID: def.ID,
		CurrentStateID:       initial.ID,
		EnteredStateAt:       now,
		History:              []domain.HistoryEntry{},
		Version:              1,
		Created:              now,
		Modified:             now,
	}, nil
}

// ExecuteAction decides whether actionID may be applied to inst at time now.
//
// Guards are evaluated in order and the first failure is returned. inst is never modified;
// on success a copy is returned with the new state, a reset dwell baseline and one more history entry.
// A nil inst or def reports the instance or definition as not found.
func ExecuteAction(def *domain.WorkflowDef, inst *domain.WorkflowInstance, actionID string, now time.Time) (*domain.WorkflowInstance, error) {
	if inst == nil {
		return nil, guardError("", actionID, "Workflow instance not found.", ErrInstanceNotFound)
	}
	if def == nil || def.ID != inst.WorkflowDefinitionID {
		return nil, guardError(inst.ID, actionID, "Workflow definition not found.", ErrDefinitionNotFound)
	}

	current := def.StateByID(inst.CurrentStateID)
	if current == nil || !current.Enabled {
		return nil, guardError(inst.ID, actionID, "Current state is invalid or disabled.", ErrInvalidOrDisabledState)
	}
	if current.IsFinal {
		return nil, guardError(inst.ID, actionID, "Cannot execute actions on a final state.", ErrTerminalState)
	}

	action := def.ActionByID(actionID)
	if action == nil || !action.Enabled {
		return nil, guardError(inst.ID, actionID, "Action not found or disabled.", ErrActionNotFoundOrDisabled)
	}
	if !action.CanStartFrom(inst.CurrentStateID) {
		return nil, guardError(inst.ID, actionID, "Action not valid from current state.", ErrActionNotApplicable)
	}

	// compared as a duration so a transition that becomes legal mid-second is not rejected
	elapsed := now.Sub(inst.EnteredStateAt)
	if elapsed < action.MinTimeInState() {
		dwell := &DwellTimeError{StateName: current.Name, RequiredSeconds: action.MinTimeInStateSeconds, Elapsed: elapsed}
		return nil, &TransitionError{Op: "ExecuteAction", InstanceID: inst.ID, ActionID: actionID, Message: dwell.Error(), Err: dwell}
	}

	next := inst.Clone()
	next.CurrentStateID = action.ToState
	next.EnteredStateAt = now
	next.History = append(next.History, domain.HistoryEntry{ActionID: actionID, Timestamp: now})
	next.Version = inst.Version + 1
	next.Modified = now
	return next, nil
}

func guardError(instanceID, actionID, message string, err error) error {
	return &TransitionError{Op: "ExecuteAction", InstanceID: instanceID, ActionID: actionID, Message: message, Err: err}
}
