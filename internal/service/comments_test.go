package service

import (
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/pkg/validators"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComment(t *testing.T) {
	db := setup(t)
	c := NewComments(db)
	alice := newUser(t, db, "alice")
	ctx := context.Background()

	pending := newPost(t, db, alice, model.PostPending)
	_, err := c.Create(ctx, alice, pending.ID, "hi")
	assert.ErrorIs(t, err, ErrPostNotApproved)

	_, err = c.Create(ctx, alice, 999, "hi")
	assert.ErrorIs(t, err, ErrPostNotFound)

	post := newPost(t, db, alice, model.PostApproved)
	_, err = c.Create(ctx, alice, post.ID, strings.Repeat("a", validators.MaxCommentLength+1))
	assert.ErrorIs(t, err, validators.ErrCommentTooLong)

	restricted := newUser(t, db, "bob")
	restricted.IsRestricted = true
	_, err = c.Create(ctx, restricted, post.ID, "hi")
	assert.ErrorIs(t, err, ErrUserRestricted)

	got, err := c.Create(ctx, alice, post.ID, "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Content)

	list, total, err := c.List(ctx, post.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.NotNil(t, list[0].Author)
	assert.Equal(t, "alice", list[0].Author.Username)
}

func TestDeleteCommentPermissions(t *testing.T) {
	db := setup(t)
	c := NewComments(db)
	owner := newUser(t, db, "owner")
	author := newUser(t, db, "author")
	stranger := newUser(t, db, "stranger")
	admin := newUser(t, db, "root")
	admin.IsAdmin = true
	ctx := context.Background()

	post := newPost(t, db, owner, model.PostApproved)

	for _, actor := range []*model.User{author, owner, admin} {
		comment, err := c.Create(ctx, author, post.ID, "hello")
		require.NoError(t, err)

		assert.ErrorIs(t, c.Delete(ctx, stranger, comment.ID), ErrNotOwner)
		assert.NoError(t, c.Delete(ctx, actor, comment.ID), actor.Username)
	}

	assert.ErrorIs(t, c.Delete(ctx, admin, 999), ErrCommentNotFound)
}
