package models

// User is a weak reference to an account listed on a provider. At least one
// of ID or Email is expected; a user with neither can never be matched or
// notified.
type User struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Provider is an organisation offering services through the catalog.
type Provider struct {
	ID      string `json:"id"`
	Name    string `json:"name"              validate:"required,min=2"`
	Acronym string `json:"acronym,omitempty"`
	Users   []User `json:"users"             validate:"required,min=1"`
}

func (p *Provider) GetID() string {
	return p.ID
}
