package domain

import (
	"math"
	"time"
)

// State is a node of a workflow definition.
type State struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	IsInitial   bool   `json:"isInitial" yaml:"isInitial"`
	IsFinal     bool   `json:"isFinal" yaml:"isFinal"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Description string `json:"description" yaml:"description"`
}

// Action moves an instance from any of FromStates to ToState.
type Action struct {
	ID                    string   `json:"id" yaml:"id"`
	Name                  string   `json:"name" yaml:"name"`
	Enabled               bool     `json:"enabled" yaml:"enabled"`
	FromStates            []string `json:"fromStates" yaml:"fromStates"`
	ToState               string   `json:"toState" yaml:"toState"`
	MinTimeInStateSeconds int      `json:"minTimeInStateSeconds" yaml:"minTimeInStateSeconds" validate:"gte=0"`
}

// maxDwellSeconds is the largest whole number of seconds a time.Duration can hold.
const maxDwellSeconds = math.MaxInt64 / int64(time.Second)

// MinTimeInState is the dwell time as a duration. Zero means no constraint.
// Values beyond the range of time.Duration saturate at the maximum duration.
func (a *Action) MinTimeInState() time.Duration {
	return DwellDuration(a.MinTimeInStateSeconds)
}

// DwellDuration converts whole seconds to a duration without overflowing.
func DwellDuration(seconds int) time.Duration {
	if int64(seconds) > maxDwellSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds) * time.Second
}

// CanStartFrom reports whether stateID is one of the action's source states.
func (a *Action) CanStartFrom(stateID string) bool {
	for _, from := range a.FromStates {
		if from == stateID {
			return true
		}
	}
	return false
}

type WorkflowDef struct {
	ID      string    `json:"id" yaml:"id"`
	States  []State   `json:"states" yaml:"states" validate:"dive"`
	Actions []Action  `json:"actions" yaml:"actions" validate:"dive"`
	Created time.Time `json:"created,omitempty" yaml:"created,omitempty"`
}

// InitialState returns the first state flagged as initial, or nil.
func (d *WorkflowDef) InitialState() *State {
	for i := range d.States {
		if d.States[i].IsInitial {
			return &d.States[i]
		}
	}
	return nil
}

func (d *WorkflowDef) StateByID(id string) *State {
	for i := range d.States {
		if d.States[i].ID == id {
			return &d.States[i]
		}
	}
	return nil
}

func (d *WorkflowDef) ActionByID(id string) *Action {
	for i := range d.Actions {
		if d.Actions[i].ID == id {
			return &d.Actions[i]
		}
	}
	return nil
}

// Clone returns a deep copy so stored definitions are never shared with callers.
func (d *WorkflowDef) Clone() *WorkflowDef {
	if d == nil {
		return nil
	}
	c := *d
	if d.States != nil {
		c.States = append([]State(nil), d.States...)
	}
	if d.Actions != nil {
		c.Actions = make([]Action, len(d.Actions))
		for i, a := range d.Actions {
			if a.FromStates != nil {
				a.FromStates = append([]string(nil), a.FromStates...)
			}
			c.Actions[i] = a
		}
	}
	return &c
}
