package auth

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/pkg/security"
	"bitwise74/szoniska-api/pkg/validators"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	data.Email = validators.NormalizeEmail(data.Email)

	if data.Email == "" {
		respond.Fail(c, http.StatusBadRequest, "Email field can't be empty")
		return
	}

	if data.Password == "" {
		respond.Fail(c, http.StatusBadRequest, "Password field can't be empty")
		return
	}

	ctx := c.Request.Context()

	user, err := d.Users.ByEmail(ctx, data.Email)
	if err != nil {
		respond.Error(c, err)
		return
	}

	// OAuth accounts have no password to check against
	if user.PasswordHash == "" {
		respond.Fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	ok, err := d.Argon.Verify(data.Password, user.PasswordHash)
	if err != nil {
		respond.Error(c, err)
		return
	}

	if !ok {
		respond.Fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if d.Argon.NeedsRehash(user.PasswordHash) {
		if hash, err := d.Argon.Hash(data.Password); err == nil {
			if err := d.DB.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
				zap.L().Warn("Failed to upgrade password hash", zap.Error(err), zap.String("requestID", requestID))
			}
		}
	}

	if !user.Verified() {
		respond.Fail(c, http.StatusForbidden, "Please verify your email before logging in")
		return
	}

	finishLogin(c, d, user)
}

// finishLogin either starts a session or, with 2FA on, hands out a short
// lived login token that has to be exchanged together with a TOTP code
func finishLogin(c *gin.Context, d *internal.Deps, user *model.User) {
	if !user.TwoFactorEnabled {
		if err := startSession(c, d, user); err != nil {
			respond.Error(c, err)
			return
		}

		loggedIn(c, user)
		return
	}

	tok, err := d.Tokens.Issue(c.Request.Context(), model.PurposeTwoFactorLogin, user.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"twoFactorRequired": true,
		"loginToken":        tok.Value,
		"userID":            user.ID,
	})
}

type twoFactorBody struct {
	UserID     string `json:"userID"`
	LoginToken string `json:"loginToken"`
	Code       string `json:"code"`
}

// TwoFactor completes a login that was paused for a TOTP code
func TwoFactor(c *gin.Context, d *internal.Deps) {
	var data twoFactorBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if data.UserID == "" || data.LoginToken == "" || data.Code == "" {
		respond.Fail(c, http.StatusBadRequest, "userID, loginToken and code are required")
		return
	}

	ctx := c.Request.Context()

	user, err := d.Users.Get(ctx, data.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respond.Fail(c, http.StatusUnauthorized, "Login token expired or invalid")
			return
		}

		respond.Error(c, err)
		return
	}

	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		respond.Fail(c, http.StatusBadRequest, "Two factor authentication is not enabled")
		return
	}

	// The code is checked before the token is used up so a typo doesn't
	// force the user to log in again
	tok, err := d.Tokens.Peek(ctx, model.PurposeTwoFactorLogin, data.LoginToken)
	if err != nil || tok.Identifier != user.ID {
		respond.Fail(c, http.StatusUnauthorized, "Login token expired or invalid")
		return
	}

	if !security.ValidateTOTP(*user.TwoFactorSecret, data.Code, time.Now()) {
		exhausted, err := d.Tokens.RecordFailure(ctx, tok)
		if err != nil {
			respond.Error(c, err)
			return
		}

		if exhausted {
			respond.Fail(c, http.StatusUnauthorized, "Too many invalid codes, please log in again")
			return
		}

		respond.Fail(c, http.StatusUnauthorized, "Invalid two factor code")
		return
	}

	if _, err := d.Tokens.Consume(ctx, model.PurposeTwoFactorLogin, user.ID, data.LoginToken); err != nil {
		respond.Fail(c, http.StatusUnauthorized, "Login token expired or invalid")
		return
	}

	if err := startSession(c, d, user); err != nil {
		respond.Error(c, err)
		return
	}

	loggedIn(c, user)
}
