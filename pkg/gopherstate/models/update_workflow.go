package models

// ExecuteActionRequest applies an action to an instance.
// ActionID may also be supplied as the actionId query parameter.
type ExecuteActionRequest struct {
	ActionID string `json:"actionId" validate:"required"`
}
