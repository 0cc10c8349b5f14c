package service

import (
	"bitwise74/szoniska-api/internal/model"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveMaintenance(t *testing.T) {
	db := setup(t)
	s := NewSite(db, 7*24*time.Hour)
	ctx := context.Background()

	got, err := s.ActiveMaintenance(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	ended := &model.SystemMaintenance{Message: "old", IsActive: true, EndTime: &past}
	scheduled := &model.SystemMaintenance{Message: "later", IsActive: true, StartTime: &future}
	running := &model.SystemMaintenance{Message: "now", IsActive: true, EndTime: &future}
	require.NoError(t, db.Create(ended).Error)
	require.NoError(t, db.Create(scheduled).Error)
	require.NoError(t, db.Create(running).Error)

	got, err = s.ActiveMaintenance(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "now", got.Message)

	var reloaded model.SystemMaintenance
	require.NoError(t, db.First(&reloaded, ended.ID).Error)
	assert.False(t, reloaded.IsActive)

	s.now = func() time.Time { return future.Add(time.Minute) }

	n, err := s.DeactivateExpiredMaintenance(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err = s.ActiveMaintenance(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "later", got.Message)
}

func TestActiveAnnouncements(t *testing.T) {
	db := setup(t)
	s := NewSite(db, time.Hour)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, db.Create(&model.Announcement{Title: "a", Message: "live"}).Error)
	require.NoError(t, db.Create(&model.Announcement{Title: "b", Message: "expired", ExpiresAt: &past}).Error)
	off := &model.Announcement{Title: "c", Message: "off"}
	require.NoError(t, db.Create(off).Error)
	require.NoError(t, db.Model(off).Update("is_active", false).Error)

	got, err := s.ActiveAnnouncements(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "live", got[0].Message)
}

func TestChatPrunedOnRead(t *testing.T) {
	db := setup(t)
	s := NewSite(db, 7*24*time.Hour)
	admin := newUser(t, db, "root")
	ctx := context.Background()

	old := &model.ChatMessage{UserID: admin.ID, Content: "old", CreatedAt: time.Now().Add(-8 * 24 * time.Hour)}
	require.NoError(t, db.Create(old).Error)

	_, err := s.PostChatMessage(ctx, admin, "first")
	require.NoError(t, err)
	m, err := s.PostChatMessage(ctx, admin, "second")
	require.NoError(t, err)
	require.NotNil(t, m.Author)

	_, err = s.PostChatMessage(ctx, admin, "  ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	got, err := s.ChatMessages(ctx, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	require.NotNil(t, got[0].Author)
	assert.Equal(t, "root", got[0].Author.Username)

	var n int64
	require.NoError(t, db.Model(&model.ChatMessage{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}
