package service

import (
	"bitwise74/szoniska-api/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrChatMessageEmpty = errors.New("message can't be empty")

const MaxChatMessageLength = 2000

// Site covers the site-wide state: maintenance windows, announcements and
// the admin chat
type Site struct {
	DB            *gorm.DB
	ChatRetention time.Duration

	now func() time.Time
}

func NewSite(db *gorm.DB, chatRetention time.Duration) *Site {
	return &Site{
		DB:            db,
		ChatRetention: chatRetention,
		now:           time.Now,
	}
}

// ActiveMaintenance returns the window currently in effect or nil. Windows
// whose end time passed are switched off on the way.
func (s *Site) ActiveMaintenance(ctx context.Context) (*model.SystemMaintenance, error) {
	var windows []model.SystemMaintenance

	err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id desc").
		Find(&windows).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to query maintenance, %w", err)
	}

	now := s.now()
	var active *model.SystemMaintenance

	for i := range windows {
		w := &windows[i]

		if w.Over(now) {
			if err := s.deactivate(ctx, w.ID); err != nil {
				return nil, err
			}

			continue
		}

		if active == nil && w.Started(now) {
			active = w
		}
	}

	return active, nil
}

// DeactivateExpiredMaintenance switches off every window past its end time
func (s *Site) DeactivateExpiredMaintenance(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).
		Model(&model.SystemMaintenance{}).
		Where("is_active = ? AND end_time IS NOT NULL AND end_time <= ?", true, s.now()).
		Update("is_active", false)

	return res.RowsAffected, res.Error
}

func (s *Site) deactivate(ctx context.Context, id uint) error {
	err := s.DB.WithContext(ctx).
		Model(&model.SystemMaintenance{}).
		Where("id = ?", id).
		Update("is_active", false).
		Error
	if err != nil {
		return fmt.Errorf("failed to deactivate maintenance, %w", err)
	}

	zap.L().Info("Maintenance window ended", zap.Uint("id", id))
	return nil
}

// ActiveAnnouncements lists announcements that are switched on and not expired
func (s *Site) ActiveAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	var out []model.Announcement

	err := s.DB.WithContext(ctx).
		Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, s.now()).
		Order("created_at desc").
		Find(&out).
		Error

	return out, err
}

// ChatMessages prunes old messages and returns the rest, oldest first
func (s *Site) ChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	if _, err := s.PruneChat(ctx); err != nil {
		return nil, err
	}

	var out []model.ChatMessage

	err := s.DB.WithContext(ctx).
		Preload("User").
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&out).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages, %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out, nil
}

func (s *Site) PostChatMessage(ctx context.Context, u *model.User, content string) (*model.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid(ErrChatMessageEmpty)
	}

	if len([]rune(content)) > MaxChatMessageLength {
		return nil, invalid(fmt.Errorf("message can't be longer than %d characters", MaxChatMessageLength))
	}

	m := &model.ChatMessage{
		UserID:    u.ID,
		Content:   content,
		CreatedAt: s.now(),
	}

	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("failed to create chat message, %w", err)
	}

	a := u.Public()
	m.Author = &a

	return m, nil
}

// PruneChat deletes messages older than the retention window
func (s *Site) PruneChat(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("created_at < ?", s.now().Add(-s.ChatRetention)).
		Delete(&model.ChatMessage{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune chat, %w", res.Error)
	}

	return res.RowsAffected, nil
}
