package models

import "fmt"

// WorkflowState is a provider's position in the fixed approval sequence.
type WorkflowState string

const (
	StatePendingInitialApproval  WorkflowState = "pending initial approval"
	StateTemplateSubmission      WorkflowState = "pending service template submission"
	StatePendingTemplateApproval WorkflowState = "pending service template approval"
	StateApproved                WorkflowState = "approved"
	StateRejected                WorkflowState = "rejected"
	StateRejectedTemplate        WorkflowState = "rejected service template"
)

// WorkflowStates lists every declared state.
func WorkflowStates() []WorkflowState {
	return []WorkflowState{
		StatePendingInitialApproval,
		StateTemplateSubmission,
		StatePendingTemplateApproval,
		StateApproved,
		StateRejected,
		StateRejectedTemplate,
	}
}

// ParseWorkflowState maps a string to a WorkflowState; unknown values fail.
func ParseWorkflowState(s string) (WorkflowState, error) {
	for _, state := range WorkflowStates() {
		if string(state) == s {
			return state, nil
		}
	}

	return "", fmt.Errorf("unknown workflow state %q", s)
}

// transitions is the closed edge set of the approval graph. Approval moves
// forward through the pending states; rejection branches off the two pending
// approval states and is terminal.
var transitions = map[WorkflowState][]WorkflowState{
	StatePendingInitialApproval:  {StateTemplateSubmission, StateRejected},
	StateTemplateSubmission:      {StatePendingTemplateApproval},
	StatePendingTemplateApproval: {StateApproved, StateRejectedTemplate},
	StateApproved:                {},
	StateRejected:                {},
	StateRejectedTemplate:        {},
}

// CanTransitionTo reports whether (s, target) is an edge of the state graph.
func (s WorkflowState) CanTransitionTo(target WorkflowState) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}

	return false
}

// Terminal reports whether no transition leaves s. The Active flag on a
// provider bundle may still flip in a terminal state.
func (s WorkflowState) Terminal() bool {
	return len(transitions[s]) == 0
}

func init() {
	// The transition table must cover every declared state, and must not
	// reference undeclared ones.
	for _, state := range WorkflowStates() {
		targets, ok := transitions[state]
		if !ok {
			panic(fmt.Sprintf("workflow state %q missing from transition table", state))
		}

		for _, target := range targets {
			if _, err := ParseWorkflowState(string(target)); err != nil {
				panic(fmt.Sprintf("workflow state %q has undeclared target %q", state, target))
			}
		}
	}

	if len(transitions) != len(WorkflowStates()) {
		panic("transition table references undeclared workflow states")
	}
}
