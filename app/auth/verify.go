package auth

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/pkg/validators"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type verifyBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Verify confirms an email address with the code that was mailed to it and
// signs the user in
func Verify(c *gin.Context, d *internal.Deps) {
	var data verifyBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	data.Email = validators.NormalizeEmail(data.Email)
	data.Code = strings.TrimSpace(data.Code)

	if data.Email == "" || data.Code == "" {
		respond.Fail(c, http.StatusBadRequest, "Email and code are required")
		return
	}

	ctx := c.Request.Context()

	user, err := d.Users.ByEmail(ctx, data.Email)
	if err != nil {
		respond.Error(c, err)
		return
	}

	if user.Verified() {
		respond.Fail(c, http.StatusConflict, "Email already verified")
		return
	}

	if _, err := d.Tokens.Consume(ctx, model.PurposeEmailVerify, data.Email, data.Code); err != nil {
		respond.Error(c, err)
		return
	}

	now := time.Now()
	err = d.DB.WithContext(ctx).
		Model(user).
		Updates(map[string]any{
			"email_verified_at": now,
			"expires_at":        nil,
		}).
		Error
	if err != nil {
		respond.Error(c, err)
		return
	}

	user.EmailVerifiedAt = &now
	zap.L().Info("Email verified", zap.String("userID", user.ID))

	if user.TwoFactorEnabled {
		c.JSON(http.StatusOK, gin.H{"message": "Email verified, please log in"})
		return
	}

	if err := startSession(c, d, user); err != nil {
		respond.Error(c, err)
		return
	}

	loggedIn(c, user)
}

type resendBody struct {
	Email string `json:"email"`
}

// Resend mails a new verification code. The response doesn't tell whether
// the address is registered.
func Resend(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data resendBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	data.Email = validators.NormalizeEmail(data.Email)
	if err := validators.EmailValidator(data.Email); err != nil {
		respond.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	ok := gin.H{"message": "If the address belongs to an unverified account a new code was sent"}

	user, err := d.Users.ByEmail(c.Request.Context(), data.Email)
	if errors.Is(err, service.ErrUserNotFound) || (err == nil && user.Verified()) {
		c.JSON(http.StatusOK, ok)
		return
	}
	if err != nil {
		respond.Error(c, err)
		return
	}

	if err := d.Tokens.AllowResend(c.Request.Context(), data.Email); err != nil {
		respond.Error(c, err)
		return
	}

	if err := sendVerificationCode(c, d, data.Email); err != nil {
		respond.Fail(c, http.StatusInternalServerError, "Failed to send verification email")
		zap.L().Error("Failed to resend verification email", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, ok)
}
