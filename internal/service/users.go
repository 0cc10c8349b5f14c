package service

import (
	"bitwise74/szoniska-api/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

func NewUserID() (string, error) {
	return gonanoid.Generate(idCharset, 16)
}

type Users struct {
	DB    *gorm.DB
	Media MediaRemover
}

func NewUsers(db *gorm.DB, media MediaRemover) *Users {
	return &Users{
		DB:    db,
		Media: media,
	}
}

func (s *Users) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &u, nil
}

// ByEmail looks a user up by normalized email
func (s *Users) ByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	if err := s.DB.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &u, nil
}

// CheckAvailable returns ErrEmailTaken or ErrUsernameTaken when either is in
// use by someone other than exceptID
func (s *Users) CheckAvailable(ctx context.Context, email, username, exceptID string) error {
	db := s.DB.WithContext(ctx)

	if email != "" {
		var n int64
		if err := db.Model(&model.User{}).Where("email = ? AND id <> ?", email, exceptID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
	}

	if username != "" {
		var n int64
		if err := db.Model(&model.User{}).Where("LOWER(username) = ? AND id <> ?", strings.ToLower(username), exceptID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrUsernameTaken
		}
	}

	return nil
}

// Create inserts u. A unique constraint hit, usually from a concurrent
// signup that passed CheckAvailable too, comes back as ErrEmailTaken or
// ErrUsernameTaken.
func (s *Users) Create(ctx context.Context, u *model.User) error {
	err := s.DB.WithContext(ctx).Create(u).Error
	if err == nil {
		return nil
	}

	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to create user, %w", err)
	}

	var email string
	if u.Email != nil {
		email = *u.Email
	}

	if err := s.CheckAvailable(ctx, email, u.Username, ""); err != nil {
		return err
	}

	return ErrEmailTaken
}

type UserListOpts struct {
	Page   int
	Limit  int
	Query  string
	Status string
}

func (s *Users) List(ctx context.Context, opts UserListOpts) ([]model.User, int64, error) {
	q := s.DB.WithContext(ctx).Model(&model.User{})

	if opts.Query != "" {
		like := "%" + strings.ToLower(opts.Query) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like, like)
	}

	switch opts.Status {
	case "blocked":
		q = q.Where("is_blocked = ?", true)
	case "restricted":
		q = q.Where("is_restricted = ? AND is_blocked = ?", true, false)
	case "active":
		q = q.Where("is_restricted = ? AND is_blocked = ?", false, false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users, %w", err)
	}

	var users []model.User
	err := q.
		Order("created_at desc").
		Offset(opts.Page * opts.Limit).
		Limit(opts.Limit).
		Find(&users).
		Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users, %w", err)
	}

	return users, total, nil
}

// Delete removes a user and everything they own. Uploaded media is removed
// after the rows are gone.
func (s *Users) Delete(ctx context.Context, id string) error {
	var media []string

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.User
		if err := tx.Select("id", "email").First(&u, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}

			return err
		}

		var posts []model.Post
		if err := tx.Select("id", "images", "videos").Where("user_id = ?", id).Find(&posts).Error; err != nil {
			return err
		}

		postIDs := make([]uint, len(posts))
		for i, p := range posts {
			postIDs[i] = p.ID
			media = append(media, p.Images...)
			media = append(media, p.Videos...)
		}

		if len(postIDs) > 0 {
			if err := tx.Where("post_id IN ?", postIDs).Delete(&model.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("post_id IN ?", postIDs).Delete(&model.PostWarning{}).Error; err != nil {
				return err
			}
		}

		for _, m := range []any{&model.Comment{}, &model.Post{}, &model.Warning{}, &model.ChatMessage{}} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}

		identifiers := []string{id}
		if u.Email != nil {
			identifiers = append(identifiers, *u.Email)
		}

		if err := tx.Where("identifier IN ?", identifiers).Delete(&model.Token{}).Error; err != nil {
			return err
		}

		return tx.Delete(&model.User{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	if s.Media != nil && len(media) > 0 {
		if err := s.Media.Remove(ctx, media); err != nil {
			zap.L().Warn("Failed to remove media of deleted user", zap.String("userID", id), zap.Error(err))
		}
	}

	zap.L().Info("User deleted", zap.String("userID", id))
	return nil
}

// DeleteExpired removes credential accounts that never verified their email
// before expiring
func (s *Users) DeleteExpired(ctx context.Context) (int, error) {
	var ids []string

	err := s.DB.WithContext(ctx).
		Model(&model.User{}).
		Where("expires_at < ? AND email_verified_at IS NULL", time.Now()).
		Pluck("id", &ids).
		Error
	if err != nil {
		return 0, fmt.Errorf("failed to query expired users, %w", err)
	}

	deleted := 0
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil && !errors.Is(err, ErrUserNotFound) {
			zap.L().Error("Failed to delete expired user", zap.String("userID", id), zap.Error(err))
			continue
		}

		deleted++
	}

	return deleted, nil
}
