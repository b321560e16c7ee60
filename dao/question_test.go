package dao

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acskang/endless-openrouter/models"
)

func TestGetOrCreateDedupesOnCaseAndWhitespace(t *testing.T) {
	db := newTestDB(t)
	d := NewQuestionDAO(db)
	user := newTestUser(t, NewUserDAO(db), "a@example.com", 10)

	first, err := d.GetOrCreate(user.ID, "  Hello World  ")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", first.Content)
	assert.False(t, first.IsProcessed)

	second, err := d.GetOrCreate(user.ID, "hello world")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	third, err := d.GetOrCreate(user.ID, "HELLO WORLD\n")
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)

	var count int64
	require.NoError(t, db.Model(&models.Question{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "identical text modulo case/whitespace must yield one row")
}

func TestGetOrCreateIsPerOwner(t *testing.T) {
	db := newTestDB(t)
	d := NewQuestionDAO(db)
	userDAO := NewUserDAO(db)
	alice := newTestUser(t, userDAO, "alice@example.com", 10)
	bob := newTestUser(t, userDAO, "bob@example.com", 10)

	q1, err := d.GetOrCreate(alice.ID, "Hello")
	require.NoError(t, err)
	q2, err := d.GetOrCreate(bob.ID, "Hello")
	require.NoError(t, err)

	assert.NotEqual(t, q1.ID, q2.ID, "different owners get separate questions")
}

func TestGetOrCreateRestoresSoftDeleted(t *testing.T) {
	db := newTestDB(t)
	d := NewQuestionDAO(db)
	user := newTestUser(t, NewUserDAO(db), "a@example.com", 10)

	q, err := d.GetOrCreate(user.ID, "Hello")
	require.NoError(t, err)
	require.NoError(t, d.SoftDelete(q.ID))

	again, err := d.GetOrCreate(user.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, q.ID, again.ID)
	assert.False(t, again.IsDeleted)

	var count int64
	require.NoError(t, db.Model(&models.Question{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestListByUserPaginatesNewestFirst(t *testing.T) {
	db := newTestDB(t)
	d := NewQuestionDAO(db)
	user := newTestUser(t, NewUserDAO(db), "a@example.com", 10)

	for _, text := range []string{"one", "two", "three"} {
		_, err := d.GetOrCreate(user.ID, text)
		require.NoError(t, err)
	}

	page, total, err := d.ListByUser(user.ID, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)

	rest, _, err := d.ListByUser(user.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
}

func TestListByUserSkipsDeleted(t *testing.T) {
	db := newTestDB(t)
	d := NewQuestionDAO(db)
	user := newTestUser(t, NewUserDAO(db), "a@example.com", 10)

	q, err := d.GetOrCreate(user.ID, "gone")
	require.NoError(t, err)
	_, err = d.GetOrCreate(user.ID, "kept")
	require.NoError(t, err)
	require.NoError(t, d.SoftDelete(q.ID))

	page, total, err := d.ListByUser(user.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, "kept", page[0].Content)
}
