// Package web provides the HTTP surface of the registrar: provider
// registration, workflow moderation and service submission.
package web

import "github.com/opencatalog/registrar/pkg/models"

// UserRequest is one provider contact in a registration request.
type UserRequest struct {
	ID    string `json:"id"`
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name"`
}

// RegisterProviderRequest is the request body for registering a provider.
// The catalog id is derived server-side, never supplied by the caller.
type RegisterProviderRequest struct {
	Name    string        `json:"name"    validate:"required,min=2"`
	Acronym string        `json:"acronym"`
	Users   []UserRequest `json:"users"   validate:"required,min=1,dive"`
}

// TransitionRequest names the workflow state to move the provider to.
type TransitionRequest struct {
	Target string `json:"target" validate:"required"`
}

// ActiveRequest flips the provider's availability flag.
type ActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// CreateServiceRequest is the request body for submitting a service.
type CreateServiceRequest struct {
	Name         string `json:"name"          validate:"required"`
	MainProvider string `json:"main_provider" validate:"required"`
}

// EligibilityResponse answers the service-template gate check.
type EligibilityResponse struct {
	ProviderID string `json:"provider_id"`
	Eligible   bool   `json:"eligible"`
}

func (r RegisterProviderRequest) toModel() *models.Provider {
	users := make([]models.User, 0, len(r.Users))
	for _, u := range r.Users {
		users = append(users, models.User{ID: u.ID, Email: u.Email, Name: u.Name})
	}

	return &models.Provider{
		Name:    r.Name,
		Acronym: r.Acronym,
		Users:   users,
	}
}

func (r CreateServiceRequest) toModel() *models.Service {
	return &models.Service{
		Name:         r.Name,
		MainProvider: r.MainProvider,
	}
}
