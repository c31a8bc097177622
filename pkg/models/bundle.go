// Package models defines the core domain records of the catalog registrar.
package models

import "fmt"

// Identifiable is implemented by every payload a Bundle can carry.
type Identifiable interface {
	GetID() string
}

// BundleStatus is the storage-level lifecycle of a record, independent of the
// moderation workflow state.
type BundleStatus string

const (
	StatusPublished   BundleStatus = "published"
	StatusDeactivated BundleStatus = "deactivated"
	StatusDeprecated  BundleStatus = "deprecated"
	StatusDeleted     BundleStatus = "deleted"
)

// BundleStatuses lists every valid status value.
func BundleStatuses() []BundleStatus {
	return []BundleStatus{StatusPublished, StatusDeactivated, StatusDeprecated, StatusDeleted}
}

// ParseBundleStatus maps a string to a BundleStatus. Unknown values are an
// error, never silently accepted.
func ParseBundleStatus(s string) (BundleStatus, error) {
	for _, status := range BundleStatuses() {
		if string(status) == s {
			return status, nil
		}
	}

	return "", fmt.Errorf("unknown bundle status %q", s)
}

// Bundle is the envelope pairing a domain payload with moderation metadata
// and a storage status. The bundle's identity is its payload's identity.
type Bundle[T Identifiable] struct {
	Payload  T            `json:"payload"  validate:"required"`
	Metadata Metadata     `json:"metadata"`
	Status   BundleStatus `json:"status"`

	// Revision is the optimistic-lock counter managed by the record stores.
	// A Save with a stale revision fails with a conflict.
	Revision int64 `json:"revision"`
}

func (b Bundle[T]) GetID() string {
	return b.Payload.GetID()
}

// ProviderBundle carries a Provider through the approval workflow. Active is
// orthogonal to State: an approved provider can still be switched inactive.
type ProviderBundle struct {
	Bundle[*Provider]

	State  WorkflowState `json:"state"`
	Active bool          `json:"active"`
}

// ServiceBundle carries a Service. Template marks the service submitted to
// complete its provider's onboarding.
type ServiceBundle struct {
	Bundle[*Service]

	Template bool `json:"template,omitempty"`
}
