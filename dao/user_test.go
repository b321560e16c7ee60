package dao

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserGeneratesAPIKey(t *testing.T) {
	d := NewUserDAO(newTestDB(t))

	user := newTestUser(t, d, "a@example.com", 10)

	assert.NotZero(t, user.ID)
	assert.Regexp(t, `^ak_`, user.APIKey)
	assert.EqualValues(t, 10, user.APICallsLimit)
	assert.Zero(t, user.APICallsCount)
}

func TestConsumeQuotaStopsAtLimit(t *testing.T) {
	d := NewUserDAO(newTestDB(t))
	user := newTestUser(t, d, "a@example.com", 2)

	for i := 0; i < 2; i++ {
		ok, err := d.ConsumeQuota(user.ID)
		require.NoError(t, err)
		assert.True(t, ok, "call %d should be within quota", i+1)
	}

	ok, err := d.ConsumeQuota(user.ID)
	require.NoError(t, err)
	assert.False(t, ok, "third call should be rejected")

	got, err := d.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.APICallsCount, "rejected call must not increment the counter")
	assert.NotNil(t, got.LastAPICallAt)
}

func TestConsumeQuotaZeroLimit(t *testing.T) {
	d := NewUserDAO(newTestDB(t))
	user := newTestUser(t, d, "a@example.com", 0)

	got, err := d.GetUserByID(user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, got.APICallsLimit, "a zero limit must be stored as zero")

	ok, err := d.ConsumeQuota(user.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetQuota(t *testing.T) {
	d := NewUserDAO(newTestDB(t))
	user := newTestUser(t, d, "a@example.com", 1)

	ok, err := d.ConsumeQuota(user.ID)
	require.NoError(t, err)
	require.True(t, ok)

	before, err := d.GetUserByID(user.ID)
	require.NoError(t, err)

	require.NoError(t, d.ResetQuota(user.ID))

	got, err := d.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Zero(t, got.APICallsCount)
	assert.True(t, got.APICallsResetAt.After(before.APICallsResetAt) || got.APICallsResetAt.Equal(before.APICallsResetAt))

	// Counter is usable again after the reset
	ok, err = d.ConsumeQuota(user.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
