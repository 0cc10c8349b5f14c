package service

import (
	"bitwise74/szoniska-api/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// RestrictThreshold is the warning count at which a user gets restricted
	RestrictThreshold = 4
	// BlockThreshold is the warning count at which a user gets blocked
	BlockThreshold = 8
)

type UserStatus struct {
	Blocked    bool `json:"isBlocked"`
	Restricted bool `json:"isRestricted"`
}

// Severity orders statuses: 0 active, 1 restricted, 2 blocked
func (s UserStatus) Severity() int {
	switch {
	case s.Blocked:
		return 2
	case s.Restricted:
		return 1
	}

	return 0
}

func (s UserStatus) String() string {
	switch s.Severity() {
	case 2:
		return "blocked"
	case 1:
		return "restricted"
	}

	return "active"
}

// DeriveStatus maps a warning count to the restriction level it implies
func DeriveStatus(warnings int64) UserStatus {
	switch {
	case warnings >= BlockThreshold:
		return UserStatus{Blocked: true, Restricted: true}
	case warnings >= RestrictThreshold:
		return UserStatus{Restricted: true}
	}

	return UserStatus{}
}

// CheckContentAccess decides whether u may create or edit posts and comments.
// Blocked wins over restricted.
func CheckContentAccess(u *model.User) error {
	if u.IsBlocked {
		return ErrUserBlocked
	}

	if u.IsRestricted {
		return ErrUserRestricted
	}

	return nil
}

// CheckBrowseAccess decides whether u may read posts. A nil user is an
// anonymous visitor.
func CheckBrowseAccess(u *model.User) error {
	if u != nil && u.IsBlocked {
		return ErrUserBlocked
	}

	return nil
}

// Moderation owns user warnings and keeps the user's status flags in sync
// with their warning count
type Moderation struct {
	DB *gorm.DB
}

func NewModeration(db *gorm.DB) *Moderation {
	return &Moderation{DB: db}
}

// AddWarning stores a new warning for userID and recomputes the user's
// status in the same transaction
func (m *Moderation) AddWarning(ctx context.Context, issuedBy, userID, message string) (*model.Warning, UserStatus, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, UserStatus{}, invalid(errors.New("warning message can't be empty"))
	}

	w := &model.Warning{
		UserID:   userID,
		IssuedBy: issuedBy,
		Message:  message,
	}

	var status UserStatus

	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		if err := tx.Create(w).Error; err != nil {
			return fmt.Errorf("failed to create warning, %w", err)
		}

		var err error
		status, err = recompute(tx, userID)
		return err
	})
	if err != nil {
		return nil, UserStatus{}, err
	}

	zap.L().Info("Warning added",
		zap.String("userID", userID),
		zap.String("issuedBy", issuedBy),
		zap.String("status", status.String()))

	return w, status, nil
}

// EditWarning changes the message of a warning. The count doesn't change so
// only the restriction reason may need refreshing.
func (m *Moderation) EditWarning(ctx context.Context, warningID uint, message string) (*model.Warning, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalid(errors.New("warning message can't be empty"))
	}

	var w model.Warning

	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&w, warningID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWarningNotFound
			}

			return err
		}

		if err := lockUser(tx, w.UserID); err != nil {
			return err
		}

		w.Message = message
		if err := tx.Model(&w).Update("message", message).Error; err != nil {
			return fmt.Errorf("failed to update warning, %w", err)
		}

		_, err := recompute(tx, w.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &w, nil
}

// DeleteWarning removes a warning and recomputes the owner's status in the
// same transaction. It returns the owner's ID and new status.
func (m *Moderation) DeleteWarning(ctx context.Context, warningID uint) (string, UserStatus, error) {
	var (
		w      model.Warning
		status UserStatus
	)

	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&w, warningID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWarningNotFound
			}

			return err
		}

		if err := lockUser(tx, w.UserID); err != nil {
			return err
		}

		if err := tx.Delete(&model.Warning{}, w.ID).Error; err != nil {
			return fmt.Errorf("failed to delete warning, %w", err)
		}

		var err error
		status, err = recompute(tx, w.UserID)
		return err
	})
	if err != nil {
		return "", UserStatus{}, err
	}

	zap.L().Info("Warning removed",
		zap.String("userID", w.UserID),
		zap.Uint("warningID", warningID),
		zap.String("status", status.String()))

	return w.UserID, status, nil
}

// Recompute derives the user's status from their current warnings and saves it
func (m *Moderation) Recompute(ctx context.Context, userID string) (UserStatus, error) {
	var status UserStatus

	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		var err error
		status, err = recompute(tx, userID)
		return err
	})

	return status, err
}

// SetStatus is a manual admin override. The next warning mutation derives
// the status from the warning count again.
func (m *Moderation) SetStatus(ctx context.Context, userID string, status UserStatus, reason string) error {
	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" && status.Severity() > 0 {
		reasonPtr = &r
	}

	// Blocked users are always restricted too
	if status.Blocked {
		status.Restricted = true
	}

	res := m.DB.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"is_blocked":         status.Blocked,
			"is_restricted":      status.Restricted,
			"restriction_reason": reasonPtr,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update user status, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Warnings lists the warnings of a user, newest first
func (m *Moderation) Warnings(ctx context.Context, userID string) ([]model.Warning, error) {
	var out []model.Warning

	err := m.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&out).
		Error

	return out, err
}

func lockUser(tx *gorm.DB, userID string) error {
	var u model.User

	err := forUpdate(tx).
		Select("id").
		Where("id = ?", userID).
		First(&u).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}

		return fmt.Errorf("failed to lock user, %w", err)
	}

	return nil
}

func recompute(tx *gorm.DB, userID string) (UserStatus, error) {
	var count int64

	err := tx.Model(&model.Warning{}).
		Where("user_id = ?", userID).
		Count(&count).
		Error
	if err != nil {
		return UserStatus{}, fmt.Errorf("failed to count warnings, %w", err)
	}

	status := DeriveStatus(count)

	var reason *string
	if status.Severity() > 0 {
		var latest model.Warning

		err := tx.Where("user_id = ?", userID).
			Order("created_at desc, id desc").
			First(&latest).
			Error
		if err != nil {
			return UserStatus{}, fmt.Errorf("failed to fetch latest warning, %w", err)
		}

		reason = &latest.Message
	}

	err = tx.Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"is_blocked":         status.Blocked,
			"is_restricted":      status.Restricted,
			"restriction_reason": reason,
		}).
		Error
	if err != nil {
		return UserStatus{}, fmt.Errorf("failed to update user status, %w", err)
	}

	return status, nil
}
