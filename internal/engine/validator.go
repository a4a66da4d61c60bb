package engine

import (
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

// ValidateDefinition checks the structural well-formedness of a definition.
// Checks run in a fixed order and the first failure is returned as a *ValidationError.
// Reachability of states and outgoing actions on final states are deliberately not checked.
func ValidateDefinition(def *domain.WorkflowDef) error {
	if def == nil {
		return &ValidationError{Reason: "Workflow definition is required."}
	}

	initialCount := 0
	for _, s := range def.States {
		if s.IsInitial {
			initialCount++
		}
	}
	if initialCount == 0 {
		return &ValidationError{Reason: "Workflow must have exactly one initial state."}
	}
	if initialCount > 1 {
		return &ValidationError{Reason: "Workflow can have only one initial state."}
	}

	for _, s := range def.States {
		if s.ID == "" {
			return &ValidationError{Reason: "All states must have a non-empty ID."}
		}
	}

	stateIDs := make(map[string]struct{}, len(def.States))
	for _, s := range def.States {
		if _, dup := stateIDs[s.ID]; dup {
			return &ValidationError{Reason: "State IDs must be unique."}
		}
		stateIDs[s.ID] = struct{}{}
	}

	for _, a := range def.Actions {
		if a.ID == "" {
			return &ValidationError{Reason: "All actions must have a non-empty ID."}
		}
	}

	actionIDs := make(map[string]struct{}, len(def.Actions))
	for _, a := range def.Actions {
		if _, dup := actionIDs[a.ID]; dup {
			return &ValidationError{Reason: "Action IDs must be unique."}
		}
		actionIDs[a.ID] = struct{}{}
	}

	for _, a := range def.Actions {
		if _, ok := stateIDs[a.ToState]; a.ToState == "" || !ok {
			return &ValidationError{Reason: "All actions must have a valid ToState."}
		}
	}

	for _, a := range def.Actions {
		for _, from := range a.FromStates {
			if _, ok := stateIDs[from]; from == "" || !ok {
				return &ValidationError{Reason: "All FromStates in actions must be valid."}
			}
		}
	}

	return nil
}
