package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func startABC(t *testing.T) *domain.WorkflowInstance {
	t.Helper()
	inst, err := StartInstance(abcDefinition(), "i-1", epoch)
	require.NoError(t, err)
	return inst
}

func TestStartInstance(t *testing.T) {
	inst := startABC(t)

	assert.Equal(t, "i-1", inst.ID)
	assert.Equal(t, "abc", inst.WorkflowDefinitionID)
	assert.Equal(t, "A", inst.CurrentStateID)
	assert.Equal(t, epoch, inst.EnteredStateAt)
	assert.Empty(t, inst.History)
	assert.Equal(t, int64(1), inst.Version)
}

func TestStartInstance_MissingDefinition(t *testing.T) {
	_, err := StartInstance(nil, "i-1", epoch)
	assert.ErrorIs(t, err, ErrDefinitionNotFound)
}

func TestStartInstance_RevalidatesDefinition(t *testing.T) {
	def := abcDefinition()
	def.States[1].IsInitial = true

	_, err := StartInstance(def, "i-1", epoch)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExecuteAction_Success(t *testing.T) {
	inst := startABC(t)
	now := epoch.Add(5 * time.Second)

	next, err := ExecuteAction(abcDefinition(), inst, "toB", now)
	require.NoError(t, err)

	assert.Equal(t, "B", next.CurrentStateID)
	assert.Equal(t, now, next.EnteredStateAt)
	assert.Equal(t, []domain.HistoryEntry{{ActionID: "toB", Timestamp: now}}, next.History)
	assert.Equal(t, int64(2), next.Version)

	// the input is left untouched
	assert.Equal(t, "A", inst.CurrentStateID)
	assert.Empty(t, inst.History)
	assert.Equal(t, int64(1), inst.Version)
}

func TestExecuteAction_DwellBoundary(t *testing.T) {
	inst := startABC(t)

	_, err := ExecuteAction(abcDefinition(), inst, "toB", epoch.Add(4999*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDwellTimeNotMet)
	assert.Equal(t, "Must remain in Start for at least 5 seconds.", err.Error())

	var dwell *DwellTimeError
	require.True(t, errors.As(err, &dwell))
	assert.Equal(t, time.Millisecond, dwell.Remaining())

	_, err = ExecuteAction(abcDefinition(), inst, "toB", epoch.Add(5*time.Second))
	assert.NoError(t, err)
}

func TestExecuteAction_DwellBeyondDurationRange(t *testing.T) {
	for _, seconds := range []int{10_000_000_000, math.MaxInt} {
		t.Run(fmt.Sprint(seconds), func(t *testing.T) {
			def := abcDefinition()
			def.Actions[0].MinTimeInStateSeconds = seconds
			inst := startABC(t)

			for _, at := range []time.Time{epoch, epoch.Add(100 * 365 * 24 * time.Hour)} {
				_, err := ExecuteAction(def, inst, "toB", at)
				require.Error(t, err)
				assert.Equal(t, KindMinimumDwellTimeNotMet, KindOf(err))

				var dwell *DwellTimeError
				require.True(t, errors.As(err, &dwell))
				assert.Positive(t, dwell.Remaining())
			}
			assert.Equal(t, time.Duration(math.MaxInt64), def.Actions[0].MinTimeInState())
		})
	}
}

func TestExecuteAction_Guards(t *testing.T) {
	tests := []struct {
		name     string
		def      func() *domain.WorkflowDef
		inst     func(t *testing.T) *domain.WorkflowInstance
		actionID string
		wantErr  error
		wantMsg  string
	}{
		{
			name:     "missing instance",
			def:      abcDefinition,
			inst:     func(*testing.T) *domain.WorkflowInstance { return nil },
			actionID: "toB",
			wantErr:  ErrInstanceNotFound,
			wantMsg:  "Workflow instance not found.",
		},
		{
			name:     "missing definition",
			def:      func() *domain.WorkflowDef { return nil },
			inst:     startABC,
			actionID: "toB",
			wantErr:  ErrDefinitionNotFound,
			wantMsg:  "Workflow definition not found.",
		},
		{
			name: "definition of another workflow",
			def: func() *domain.WorkflowDef {
				d := abcDefinition()
				d.ID = "other"
				return d
			},
			inst:     startABC,
			actionID: "toB",
			wantErr:  ErrDefinitionNotFound,
		},
		{
			name: "current state disabled",
			def: func() *domain.WorkflowDef {
				d := abcDefinition()
				d.States[0].Enabled = false
				return d
			},
			inst:     startABC,
			actionID: "toB",
			wantErr:  ErrInvalidOrDisabledState,
			wantMsg:  "Current state is invalid or disabled.",
		},
		{
			name: "current state unknown",
			def:  abcDefinition,
			inst: func(t *testing.T) *domain.WorkflowInstance {
				inst := startABC(t)
				inst.CurrentStateID = "gone"
				return inst
			},
			actionID: "toB",
			wantErr:  ErrInvalidOrDisabledState,
		},
		{
			name: "final state",
			def:  abcDefinition,
			inst: func(t *testing.T) *domain.WorkflowInstance {
				inst := startABC(t)
				inst.CurrentStateID = "C"
				return inst
			},
			actionID: "toC",
			wantErr:  ErrTerminalState,
			wantMsg:  "Cannot execute actions on a final state.",
		},
		{
			name:     "unknown action",
			def:      abcDefinition,
			inst:     startABC,
			actionID: "nope",
			wantErr:  ErrActionNotFoundOrDisabled,
			wantMsg:  "Action not found or disabled.",
		},
		{
			name: "disabled action",
			def: func() *domain.WorkflowDef {
				d := abcDefinition()
				d.Actions[0].Enabled = false
				return d
			},
			inst:     startABC,
			actionID: "toB",
			wantErr:  ErrActionNotFoundOrDisabled,
		},
		{
			name:     "action from another state",
			def:      abcDefinition,
			inst:     startABC,
			actionID: "toC",
			wantErr:  ErrActionNotApplicable,
			wantMsg:  "Action not valid from current state.",
		},
		{
			name:     "dwell time",
			def:      abcDefinition,
			inst:     startABC,
			actionID: "toB",
			wantErr:  ErrDwellTimeNotMet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ExecuteAction(tt.def(), tt.inst(t), tt.actionID, epoch.Add(time.Second))
			assert.Nil(t, next)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
		})
	}
}

func TestExecuteAction_ScenarioABC(t *testing.T) {
	def := abcDefinition()
	inst := startABC(t)

	_, err := ExecuteAction(def, inst, "toB", epoch.Add(4*time.Second))
	require.ErrorIs(t, err, ErrDwellTimeNotMet)

	inst, err = ExecuteAction(def, inst, "toB", epoch.Add(5*time.Second))
	require.NoError(t, err)

	_, err = ExecuteAction(def, inst, "toB", epoch.Add(6*time.Second))
	require.ErrorIs(t, err, ErrActionNotApplicable)

	inst, err = ExecuteAction(def, inst, "toC", epoch.Add(6*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "C", inst.CurrentStateID)

	_, err = ExecuteAction(def, inst, "toC", epoch.Add(7*time.Second))
	require.ErrorIs(t, err, ErrTerminalState)

	require.Len(t, inst.History, 2)
	assert.Equal(t, "toB", inst.History[0].ActionID)
	assert.Equal(t, "toC", inst.History[1].ActionID)
	assert.Equal(t, int64(3), inst.Version)
}

// Random definitions and action sequences: every accepted transition obeys the guards,
// and every rejected one leaves the instance unchanged.
func TestExecuteAction_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 6).Draw(t, "states")
		def := &domain.WorkflowDef{ID: "random"}
		for i := 0; i < n; i++ {
			def.States = append(def.States, domain.State{
				ID:        fmt.Sprintf("s%d", i),
				Name:      fmt.Sprintf("State %d", i),
				IsInitial: i == 0,
				IsFinal:   i == n-1,
				Enabled:   i == 0 || rapid.Float64Range(0, 1).Draw(t, "enabledRoll") > 0.1,
			})
		}
		stateID := rapid.SampledFrom(stateIDs(def))
		m := rapid.IntRange(1, 8).Draw(t, "actions")
		for i := 0; i < m; i++ {
			def.Actions = append(def.Actions, domain.Action{
				ID:                    fmt.Sprintf("a%d", i),
				Enabled:               rapid.Float64Range(0, 1).Draw(t, "actionEnabledRoll") > 0.2,
				FromStates:            rapid.SliceOfNDistinct(stateID, 1, n, rapid.ID[string]).Draw(t, "from"),
				ToState:               stateID.Draw(t, "to"),
				MinTimeInStateSeconds: rapid.IntRange(0, 3).Draw(t, "dwell"),
			})
		}
		require.NoError(t, ValidateDefinition(def))

		inst, err := StartInstance(def, "i", epoch)
		require.NoError(t, err)

		now := epoch
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for s := 0; s < steps; s++ {
			now = now.Add(time.Duration(rapid.IntRange(0, 2500).Draw(t, "advanceMs")) * time.Millisecond)
			actionID := fmt.Sprintf("a%d", rapid.IntRange(0, m-1).Draw(t, "action"))

			before := inst.Clone()
			next, err := ExecuteAction(def, inst, actionID, now)
			if err != nil {
				assert.NotEqual(t, KindInternal, KindOf(err))
				assert.Equal(t, before, inst)
				continue
			}

			from := def.StateByID(before.CurrentStateID)
			action := def.ActionByID(actionID)
			assert.False(t, from.IsFinal)
			assert.True(t, from.Enabled)
			assert.True(t, action.Enabled)
			assert.True(t, action.CanStartFrom(before.CurrentStateID))
			assert.GreaterOrEqual(t, now.Sub(before.EnteredStateAt), action.MinTimeInState())
			assert.Equal(t, action.ToState, next.CurrentStateID)
			assert.Len(t, next.History, len(before.History)+1)
			assert.Equal(t, before.Version+1, next.Version)
			inst = next
		}
		assert.Equal(t, int64(len(inst.History))+1, inst.Version)
	})
}

func stateIDs(def *domain.WorkflowDef) []string {
	ids := make([]string, 0, len(def.States))
	for _, s := range def.States {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestExecuteAction_RejectionLeavesInstanceByteIdentical(t *testing.T) {
	inst := startABC(t)
	before, err := json.Marshal(inst)
	require.NoError(t, err)

	for _, actionID := range []string{"toB", "toC", "nope"} {
		_, err := ExecuteAction(abcDefinition(), inst, actionID, epoch.Add(time.Second))
		require.Error(t, err)
	}

	after, err := json.Marshal(inst)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}
