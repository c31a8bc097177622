// Package config carries the project-level settings shared by the registrar
// binaries.
package config

import (
	"strings"

	"github.com/opencatalog/registrar/pkg/auth"
)

// Default digest cadences, overridable per deployment.
const (
	DefaultReminderCron = "0 12 * * MON"
	DefaultPendingCron  = "0 12 */2 * *"
	DefaultDailyCron    = "0 12 * * *"
)

// Crons holds the three digest schedules.
type Crons struct {
	Reminder      string
	PendingDigest string
	DailyDigest   string
}

// Config is built once at startup from CLI flags and environment.
type Config struct {
	ProjectName       string
	Endpoint          string
	RegistrationEmail string
	Admins            []string
	Debug             bool
	System            auth.Principal
	Crons             Crons
}

// New assembles the runtime configuration. The admin list arrives as a
// comma-separated string; blank entries are dropped.
func New(projectName, endpoint, registrationEmail, admins string, debug bool) Config {
	return Config{
		ProjectName:       projectName,
		Endpoint:          endpoint,
		RegistrationEmail: registrationEmail,
		Admins:            SplitAdmins(admins),
		Debug:             debug,
		System:            auth.SystemPrincipal(projectName),
		Crons: Crons{
			Reminder:      DefaultReminderCron,
			PendingDigest: DefaultPendingCron,
			DailyDigest:   DefaultDailyCron,
		},
	}
}

// SplitAdmins parses a comma-separated admin address list.
func SplitAdmins(admins string) []string {
	var out []string

	for _, admin := range strings.Split(admins, ",") {
		admin = strings.TrimSpace(admin)
		if admin != "" {
			out = append(out, admin)
		}
	}

	return out
}
