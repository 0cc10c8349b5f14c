package service

import (
	"bitwise74/szoniska-api/internal/model"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserID(t *testing.T) {
	id, err := NewUserID()
	require.NoError(t, err)
	assert.Len(t, id, 16)
}

func TestCheckAvailable(t *testing.T) {
	db := setup(t)
	s := NewUsers(db, nil)
	u := newUser(t, db, "alice")
	ctx := context.Background()

	assert.ErrorIs(t, s.CheckAvailable(ctx, "alice@example.com", "", ""), ErrEmailTaken)
	assert.ErrorIs(t, s.CheckAvailable(ctx, "", "ALICE", ""), ErrUsernameTaken)
	assert.NoError(t, s.CheckAvailable(ctx, "alice@example.com", "alice", u.ID))
	assert.NoError(t, s.CheckAvailable(ctx, "bob@example.com", "bob", ""))
}

func TestDeleteUserCascades(t *testing.T) {
	db := setup(t)
	media := &fakeRemover{}
	s := NewUsers(db, media)
	m := NewModeration(db)
	c := NewComments(db)
	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	ctx := context.Background()

	post := newPost(t, db, alice, model.PostApproved)
	require.NoError(t, db.Model(post).Update("images", model.StringSlice{testCDN + "/posts/x.png"}).Error)
	_, err := c.Create(ctx, bob, post.ID, "hi")
	require.NoError(t, err)
	addWarnings(t, m, alice, 2)

	bobsPost := newPost(t, db, bob, model.PostApproved)
	_, err = c.Create(ctx, alice, bobsPost.ID, "hello")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, alice.ID))

	_, err = s.Get(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	var n int64
	require.NoError(t, db.Model(&model.Post{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	require.NoError(t, db.Model(&model.Comment{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&model.Warning{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, []string{testCDN + "/posts/x.png"}, media.removed)

	assert.ErrorIs(t, s.Delete(ctx, alice.ID), ErrUserNotFound)
}

func TestDeleteExpiredUsers(t *testing.T) {
	db := setup(t)
	s := NewUsers(db, nil)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	stale := newUser(t, db, "stale")
	require.NoError(t, db.Model(stale).Update("expires_at", past).Error)
	newUser(t, db, "fresh")

	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	users, total, err := s.List(ctx, UserListOpts{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "fresh", users[0].Username)
}

func TestListUsersByStatus(t *testing.T) {
	db := setup(t)
	s := NewUsers(db, nil)
	m := NewModeration(db)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	newUser(t, db, "bob")
	addWarnings(t, m, alice, 4)

	got, total, err := s.List(ctx, UserListOpts{Limit: 10, Status: "restricted"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "alice", got[0].Username)

	got, _, err = s.List(ctx, UserListOpts{Limit: 10, Query: "BO"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Username)
}

func TestCreateUserConflicts(t *testing.T) {
	db := setup(t)
	s := NewUsers(db, nil)
	newUser(t, db, "alice")
	ctx := context.Background()

	// Inserts that raced past CheckAvailable hit the unique indexes
	email := "alice@example.com"
	err := s.Create(ctx, &model.User{ID: "id-dupe-email", Email: &email, Username: "alice2"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	other := "someone@example.com"
	err = s.Create(ctx, &model.User{ID: "id-dupe-name", Email: &other, Username: "alice"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	require.NoError(t, s.Create(ctx, &model.User{ID: "id-bob", Email: &other, Username: "bob"}))

	var n int64
	require.NoError(t, db.Model(&model.User{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}
