// Package auth answers the question "who may act on this bundle".
package auth

import "fmt"

const RoleAdmin = "ROLE_ADMIN"

// Principal is the authenticated caller. Web handlers build it from gateway
// headers; background jobs use the system principal.
type Principal struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}

	return false
}

func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// SystemPrincipal is the identity stamped on records touched by scheduled
// jobs and other non-interactive actors.
func SystemPrincipal(projectName string) Principal {
	return Principal{
		ID:    "1",
		Email: fmt.Sprintf("no-reply@%s.org", projectName),
		Name:  projectName,
		Roles: []string{RoleAdmin},
	}
}
