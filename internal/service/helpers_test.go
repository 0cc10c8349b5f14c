package service

import (
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/internal/testutil"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testCDN = "https://cdn.example.com"

func newUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()

	email := username + "@example.com"
	u := &model.User{
		ID:           "id-" + username,
		Email:        &email,
		Username:     username,
		PasswordHash: "hash",
	}

	require.NoError(t, db.Create(u).Error)
	return u
}

func newPost(t *testing.T, db *gorm.DB, owner *model.User, status model.PostStatus) *model.Post {
	t.Helper()

	p := &model.Post{
		UserID:      owner.ID,
		Title:       "title",
		Description: "description",
		Status:      status,
	}

	require.NoError(t, db.Create(p).Error)
	return p
}

func addWarnings(t *testing.T, m *Moderation, u *model.User, n int) UserStatus {
	t.Helper()

	var status UserStatus
	for i := range n {
		var err error
		_, status, err = m.AddWarning(context.Background(), "admin", u.ID, fmt.Sprintf("warning %d", i+1))
		require.NoError(t, err)
	}

	return status
}

func reload(t *testing.T, db *gorm.DB, u *model.User) *model.User {
	t.Helper()

	var out model.User
	require.NoError(t, db.First(&out, "id = ?", u.ID).Error)
	return &out
}

func setup(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewDB(t)
}

type fakeRemover struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (f *fakeRemover) Remove(_ context.Context, urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed = append(f.removed, urls...)
	return f.err
}
