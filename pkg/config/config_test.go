package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	cfg := New("OpenCatalog", "https://catalog.example.org", "registration@example.org",
		"admin@example.org, second@example.org,", true)

	assert.Equal(t, []string{"admin@example.org", "second@example.org"}, cfg.Admins)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "no-reply@OpenCatalog.org", cfg.System.Email)
	assert.Equal(t, DefaultReminderCron, cfg.Crons.Reminder)
}

func TestSplitAdmins_Empty(t *testing.T) {
	assert.Empty(t, SplitAdmins(""))
	assert.Empty(t, SplitAdmins(" , "))
}
