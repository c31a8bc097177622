package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/persistence"
	"github.com/opencatalog/registrar/pkg/persistence/file"
)

func seedProvider(t *testing.T, store *file.Persistence, id string, users []models.User) {
	t.Helper()

	bundle := &models.ProviderBundle{
		Bundle: models.Bundle[*models.Provider]{
			Payload: &models.Provider{ID: id, Name: id, Users: users},
		},
		State: models.StateApproved,
	}
	require.NoError(t, store.ProviderRepository().Save(t.Context(), bundle))
}

func seedService(t *testing.T, store *file.Persistence, id, mainProvider string) {
	t.Helper()

	bundle := &models.ServiceBundle{
		Bundle: models.Bundle[*models.Service]{
			Payload: &models.Service{ID: id, Name: id, MainProvider: mainProvider},
		},
	}
	require.NoError(t, store.ServiceRepository().Save(t.Context(), bundle))
}

func TestPrincipal_HasRole(t *testing.T) {
	p := Principal{Roles: []string{"ROLE_USER", RoleAdmin}}
	assert.True(t, p.IsAdmin())
	assert.False(t, Principal{Roles: []string{"ROLE_USER"}}.IsAdmin())
	assert.False(t, Principal{}.IsAdmin())
}

func TestSystemPrincipal(t *testing.T) {
	p := SystemPrincipal("opencatalog")
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, "no-reply@opencatalog.org", p.Email)
	assert.True(t, p.IsAdmin())
}

func TestIsProviderAdmin_MatchesByID(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	seedProvider(t, store, "acme_labs", []models.User{
		{ID: "u-1", Email: "owner@example.org"},
	})

	svc := NewService(store)

	ok, err := svc.IsProviderAdmin(t.Context(), Principal{ID: "u-1"}, "acme_labs")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsProviderAdmin_MatchesByEmailWhenUserHasBoth(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	seedProvider(t, store, "acme_labs", []models.User{
		{ID: "u-1", Email: "owner@example.org"},
	})

	svc := NewService(store)

	ok, err := svc.IsProviderAdmin(t.Context(), Principal{ID: "someone-else", Email: "owner@example.org"}, "acme_labs")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsProviderAdmin_IDOnlyUserIgnoresEmail(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	seedProvider(t, store, "acme_labs", []models.User{
		{ID: "u-1"},
	})

	svc := NewService(store)

	ok, err := svc.IsProviderAdmin(t.Context(), Principal{ID: "u-2", Email: ""}, "acme_labs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsProviderAdmin_EmailOnlyUser(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	seedProvider(t, store, "acme_labs", []models.User{
		{Email: "owner@example.org"},
	})

	svc := NewService(store)

	ok, err := svc.IsProviderAdmin(t.Context(), Principal{Email: "owner@example.org"}, "acme_labs")
	require.NoError(t, err)
	assert.True(t, ok)

	// Empty emails on both sides never match.
	ok, err = svc.IsProviderAdmin(t.Context(), Principal{}, "acme_labs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsProviderAdmin_ProviderNotFound(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	svc := NewService(store)

	_, err := svc.IsProviderAdmin(t.Context(), Principal{ID: "u-1"}, "ghost")
	assert.True(t, persistence.IsNotFound(err))
}

func TestIsServiceOwner(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	seedProvider(t, store, "acme_labs", []models.User{
		{ID: "u-1", Email: "owner@example.org"},
	})
	seedService(t, store, "acme_labs.tool_a", "acme_labs")

	svc := NewService(store)

	ok, err := svc.IsServiceOwner(t.Context(), Principal{ID: "u-1"}, "acme_labs.tool_a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsServiceOwner(t.Context(), Principal{ID: "stranger"}, "acme_labs.tool_a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsServiceOwner_NoMainProvider(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	seedService(t, store, "orphan.tool", "")

	svc := NewService(store)

	_, err := svc.IsServiceOwner(t.Context(), Principal{ID: "u-1"}, "orphan.tool")
	assert.ErrorIs(t, err, ErrNoMainProvider)
}
