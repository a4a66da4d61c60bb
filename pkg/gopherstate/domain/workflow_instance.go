package domain

import "time"

// HistoryEntry records one executed action.
type HistoryEntry struct {
	ActionID  string    `json:"actionId" yaml:"actionId"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// WorkflowInstance is one live execution of a definition.
// EnteredStateAt is the dwell-time baseline and always changes together with CurrentStateID.
type WorkflowInstance struct {
	ID                   string         `json:"id" yaml:"id"`
	WorkflowDefinitionID string         `json:"workflowDefinitionId" yaml:"workflowDefinitionId"`
	CurrentStateID       string         `json:"currentStateId" yaml:"currentStateId"`
	EnteredStateAt       time.Time      `json:"enteredStateAt" yaml:"enteredStateAt"`
	History              []HistoryEntry `json:"history" yaml:"history"`
	Version              int64          `json:"version" yaml:"version"`
	Created              time.Time      `json:"created" yaml:"created"`
	Modified             time.Time      `json:"modified" yaml:"modified"`
}

func (w *WorkflowInstance) Clone() *WorkflowInstance {
	if w == nil {
		return nil
	}
	c := *w
	c.History = append(make([]HistoryEntry, 0, len(w.History)+1), w.History...)
	return &c
}

// LastHistoryEntry returns the most recent history entry, or nil for a fresh instance.
func (w *WorkflowInstance) LastHistoryEntry() *HistoryEntry {
	if len(w.History) == 0 {
		return nil
	}
	return &w.History[len(w.History)-1]
}

// TransitionEvent is emitted after an action has been applied to an instance.
type TransitionEvent struct {
	InstanceID           string    `json:"instanceId"`
	WorkflowDefinitionID string    `json:"workflowDefinitionId"`
	ActionID             string    `json:"actionId"`
	FromStateID          string    `json:"fromStateId"`
	ToStateID            string    `json:"toStateId"`
	Timestamp            time.Time `json:"timestamp"`
	Version              int64     `json:"version"`
}
