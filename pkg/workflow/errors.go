package workflow

import (
	"errors"
	"fmt"

	"github.com/opencatalog/registrar/pkg/models"
)

var (
	// ErrIllegalTransition indicates the requested edge is not part of the
	// approval graph, or the provider sits in a terminal state.
	ErrIllegalTransition = errors.New("illegal workflow transition")

	// ErrForbidden indicates the principal may not perform the transition.
	ErrForbidden = errors.New("principal not authorized for transition")

	// ErrConflict indicates the transition repeatedly lost against
	// concurrent writes and was abandoned.
	ErrConflict = errors.New("transition lost against concurrent update")

	// ErrTemplateExists indicates the provider already has a service
	// template registered.
	ErrTemplateExists = errors.New("provider already has a service template")
)

// TransitionError carries the provider and the attempted edge alongside the
// underlying cause.
type TransitionError struct {
	ProviderID string
	From       models.WorkflowState
	To         models.WorkflowState
	Err        error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %q -> %q for provider %s: %v", e.From, e.To, e.ProviderID, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func (e *TransitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newTransitionError(providerID string, from, to models.WorkflowState, err error) *TransitionError {
	return &TransitionError{ProviderID: providerID, From: from, To: to, Err: err}
}

// IsIllegalTransition checks whether an error indicates a disallowed edge.
func IsIllegalTransition(err error) bool {
	return errors.Is(err, ErrIllegalTransition)
}

// IsForbidden checks whether an error indicates missing authorization.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsConflict checks whether an error indicates an abandoned optimistic update.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
