package service

import (
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/pkg/util"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	codeDigits     = 6
	hexTokenLength = 32

	// MaxTokenAttempts is how many wrong guesses a token survives
	MaxTokenAttempts = 5
)

// Tokens issues and consumes single-use expiring tokens. Email verification
// uses short numeric codes, everything else random hex.
type Tokens struct {
	DB             *gorm.DB
	TTL            map[model.TokenPurpose]time.Duration
	ResendCooldown time.Duration

	now func() time.Time
}

func NewTokens(db *gorm.DB, ttl map[model.TokenPurpose]time.Duration, resendCooldown time.Duration) *Tokens {
	return &Tokens{
		DB:             db,
		TTL:            ttl,
		ResendCooldown: resendCooldown,
		now:            time.Now,
	}
}

// Issue creates a new token for identifier, replacing any previous token
// with the same purpose
func (t *Tokens) Issue(ctx context.Context, purpose model.TokenPurpose, identifier string) (*model.Token, error) {
	ttl, ok := t.TTL[purpose]
	if !ok || ttl <= 0 {
		return nil, fmt.Errorf("no ttl configured for token purpose %q", purpose)
	}

	var (
		value string
		err   error
	)

	if purpose == model.PurposeEmailVerify {
		value, err = util.GenerateCode(codeDigits)
	} else {
		value, err = util.GenerateToken(hexTokenLength)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate token, %w", err)
	}

	now := t.now()
	tok := &model.Token{
		Purpose:    purpose,
		Identifier: identifier,
		Value:      value,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}

	err = t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purpose = ? AND identifier = ?", purpose, identifier).Delete(&model.Token{}).Error; err != nil {
			return err
		}

		return tx.Create(tok).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store token, %w", err)
	}

	return tok, nil
}

// Consume checks value against the stored token for purpose and identifier.
// The token is deleted when it matches and when it turns out to be expired.
func (t *Tokens) Consume(ctx context.Context, purpose model.TokenPurpose, identifier, value string) (*model.Token, error) {
	return t.consume(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("purpose = ? AND identifier = ?", purpose, identifier)
	}, value)
}

// ConsumeValue is Consume for flows where only the token value is known,
// like password reset links
func (t *Tokens) ConsumeValue(ctx context.Context, purpose model.TokenPurpose, value string) (*model.Token, error) {
	return t.consume(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("purpose = ? AND value = ?", purpose, value)
	}, value)
}

// Peek validates a token without using it up. Expired tokens are still
// deleted.
func (t *Tokens) Peek(ctx context.Context, purpose model.TokenPurpose, value string) (*model.Token, error) {
	var tok model.Token

	err := t.DB.WithContext(ctx).
		Where("purpose = ? AND value = ?", purpose, value).
		First(&tok).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}

		return nil, err
	}

	if tok.Expired(t.now()) {
		if err := t.DB.WithContext(ctx).Delete(&model.Token{}, tok.ID).Error; err != nil {
			return nil, fmt.Errorf("failed to delete expired token, %w", err)
		}

		return nil, ErrTokenExpired
	}

	return &tok, nil
}

// RecordFailure counts a wrong guess against tok and deletes it once
// MaxTokenAttempts is reached. The returned bool reports whether the token
// is gone.
func (t *Tokens) RecordFailure(ctx context.Context, tok *model.Token) (bool, error) {
	var exhausted bool

	err := t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Token{}).
			Where("id = ?", tok.ID).
			Update("attempts", gorm.Expr("attempts + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to count token attempt, %w", res.Error)
		}

		if res.RowsAffected == 0 {
			exhausted = true
			return nil
		}

		var current model.Token
		if err := tx.First(&current, tok.ID).Error; err != nil {
			return err
		}

		if current.Attempts < MaxTokenAttempts {
			return nil
		}

		exhausted = true
		return tx.Delete(&model.Token{}, tok.ID).Error
	})
	if err != nil {
		return false, err
	}

	return exhausted, nil
}

func (t *Tokens) consume(ctx context.Context, scope func(*gorm.DB) *gorm.DB, value string) (*model.Token, error) {
	if value == "" {
		return nil, ErrTokenInvalid
	}

	var (
		tok     model.Token
		expired bool
	)

	err := t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(scope(tx)).First(&tok).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenInvalid
			}

			return err
		}

		if subtle.ConstantTimeCompare([]byte(tok.Value), []byte(value)) != 1 {
			return ErrTokenInvalid
		}

		res := tx.Delete(&model.Token{}, tok.ID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete token, %w", res.Error)
		}

		// Someone else used it between the read and the delete
		if res.RowsAffected == 0 {
			return ErrTokenInvalid
		}

		expired = tok.Expired(t.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired {
		return nil, ErrTokenExpired
	}

	return &tok, nil
}

// AllowResend records a resend for identifier, failing with
// ErrResendTooSoon while the cooldown is active
func (t *Tokens) AllowResend(ctx context.Context, identifier string) error {
	now := t.now()

	return t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r model.ResendRequest

		err := forUpdate(tx).Where("identifier = ?", identifier).First(&r).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err == nil && now.Sub(r.LastResend) < t.ResendCooldown {
			return ErrResendTooSoon
		}

		r.Identifier = identifier
		r.LastResend = now
		r.Count++

		return tx.Save(&r).Error
	})
}

// DeleteExpired removes every token that expired before now
func (t *Tokens) DeleteExpired(ctx context.Context) (int64, error) {
	res := t.DB.WithContext(ctx).
		Where("expires_at < ?", t.now()).
		Delete(&model.Token{})

	return res.RowsAffected, res.Error
}

// DeleteStaleResends forgets resend records whose cooldown ended long ago
func (t *Tokens) DeleteStaleResends(ctx context.Context) (int64, error) {
	res := t.DB.WithContext(ctx).
		Where("last_resend < ?", t.now().Add(-24*time.Hour)).
		Delete(&model.ResendRequest{})

	return res.RowsAffected, res.Error
}
