package store

import (
	"context"
	"testing"

	"github.com/diewo77/go-asso/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countDefaults(t *testing.T, env *testEnv) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Unscoped().Model(&models.Role{}).Where("is_default = ?", true).Count(&n).Error)
	return n
}

func TestSetDefaultMovesFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r1, err := env.roles.Create(ctx, "r1", "", false)
	require.NoError(t, err)
	r2, err := env.roles.Create(ctx, "r2", "", true)
	require.NoError(t, err)
	r3, err := env.roles.Create(ctx, "r3", "", false)
	require.NoError(t, err)

	require.NoError(t, env.roles.SetDefault(ctx, r3.ID))

	got2, err := env.roles.Get(ctx, r2.ID)
	require.NoError(t, err)
	assert.False(t, got2.IsDefault)
	got3, err := env.roles.Get(ctx, r3.ID)
	require.NoError(t, err)
	assert.True(t, got3.IsDefault)

	def, err := env.roles.Default(ctx)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, r3.ID, def.ID)
	assert.EqualValues(t, 1, countDefaults(t, env))

	// Already the default: no change.
	require.NoError(t, env.roles.SetDefault(ctx, r3.ID))
	assert.EqualValues(t, 1, countDefaults(t, env))

	assert.ErrorIs(t, env.roles.SetDefault(ctx, 9999), ErrNotFound)
	_ = r1
}

func TestCreateDefaultReplacesPrevious(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.roles.Create(ctx, "a", "", true)
	require.NoError(t, err)
	b, err := env.roles.Create(ctx, "b", "", true)
	require.NoError(t, err)

	def, err := env.roles.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, def.ID)
	got, err := env.roles.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)
	assert.EqualValues(t, 1, countDefaults(t, env))
}

func TestSoftDeletedDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old, err := env.roles.Create(ctx, "ancien", "", true)
	require.NoError(t, err)
	require.NoError(t, env.roles.SoftDelete(ctx, old.ID))

	def, err := env.roles.Default(ctx)
	require.NoError(t, err)
	assert.Nil(t, def)

	active, err := env.roles.Active(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Promoting another role clears the deleted row's flag too.
	next, err := env.roles.Create(ctx, "nouveau", "", false)
	require.NoError(t, err)
	require.NoError(t, env.roles.SetDefault(ctx, next.ID))
	assert.EqualValues(t, 1, countDefaults(t, env))

	deleted, err := env.roles.Query().Deleted().Find(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.False(t, deleted[0].IsDefault)

	// The flag cannot be set on a deleted role.
	assert.ErrorIs(t, env.roles.SetDefault(ctx, old.ID), ErrNotFound)
}

func TestPartialIndexRejectsSecondDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.roles.Create(ctx, "un", "", true)
	require.NoError(t, err)

	// Bypass the registry: the database itself refuses a second default.
	err = env.lc.Save(ctx, &models.Role{Name: "deux", IsDefault: true})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
}

func TestCreateRoleValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.roles.Create(ctx, "  ", "", false)
	assert.ErrorIs(t, err, ErrInvariantViolation)

	_, err = env.roles.Create(ctx, "bureau", "", false)
	require.NoError(t, err)
	_, err = env.roles.Create(ctx, "bureau", "", false)
	assert.ErrorIs(t, err, ErrInvariantViolation)

	r, err := env.roles.ByName(ctx, "bureau")
	require.NoError(t, err)
	require.NotNil(t, r)
	missing, err := env.roles.ByName(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	restored, err := env.roles.Restore(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "bureau", restored.Name)
}
