package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWorkflowState(t *testing.T) {
	for _, state := range WorkflowStates() {
		parsed, err := ParseWorkflowState(string(state))
		require.NoError(t, err)
		assert.Equal(t, state, parsed)
	}

	_, err := ParseWorkflowState("half approved")
	assert.Error(t, err)
}

func TestWorkflowState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    WorkflowState
		to      WorkflowState
		allowed bool
	}{
		{StatePendingInitialApproval, StateTemplateSubmission, true},
		{StatePendingInitialApproval, StateRejected, true},
		{StatePendingInitialApproval, StateApproved, false},
		{StatePendingInitialApproval, StateRejectedTemplate, false},
		{StateTemplateSubmission, StatePendingTemplateApproval, true},
		{StateTemplateSubmission, StateRejected, false},
		{StatePendingTemplateApproval, StateApproved, true},
		{StatePendingTemplateApproval, StateRejectedTemplate, true},
		{StatePendingTemplateApproval, StateRejected, false},
		{StateApproved, StatePendingInitialApproval, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestWorkflowState_TerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []WorkflowState{StateApproved, StateRejected, StateRejectedTemplate} {
		assert.True(t, terminal.Terminal(), "%s", terminal)

		for _, target := range WorkflowStates() {
			assert.False(t, terminal.CanTransitionTo(target),
				"terminal state %s must not reach %s", terminal, target)
		}
	}
}

func TestParseBundleStatus(t *testing.T) {
	for _, status := range BundleStatuses() {
		parsed, err := ParseBundleStatus(string(status))
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}

	_, err := ParseBundleStatus("archived")
	assert.Error(t, err)
}
