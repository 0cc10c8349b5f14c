package auth

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/pkg/validators"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type forgotBody struct {
	Email string `json:"email"`
}

// ForgotPassword always answers 200 so it can't be used to probe for
// registered addresses
func ForgotPassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data forgotBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	data.Email = validators.NormalizeEmail(data.Email)
	if err := validators.EmailValidator(data.Email); err != nil {
		respond.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	ok := gin.H{"message": "If the address is registered a reset link was sent"}
	ctx := c.Request.Context()

	user, err := d.Users.ByEmail(ctx, data.Email)
	if err != nil {
		if !errors.Is(err, service.ErrUserNotFound) {
			zap.L().Error("Failed to look up user for password reset", zap.Error(err), zap.String("requestID", requestID))
		}

		c.JSON(http.StatusOK, ok)
		return
	}

	tok, err := d.Tokens.Issue(ctx, model.PurposePasswordReset, user.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	link := fmt.Sprintf("%s/reset-password?token=%s",
		strings.TrimRight(viper.GetString("host.frontend_url"), "/"), url.QueryEscape(tok.Value))

	if err := d.Mailer.Send(ctx, service.PasswordResetMail(viper.GetString("app.name"), data.Email, link)); err != nil {
		zap.L().Error("Failed to send password reset email", zap.Error(err), zap.String("requestID", requestID))
	}

	c.JSON(http.StatusOK, ok)
}

type resetBody struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func ResetPassword(c *gin.Context, d *internal.Deps) {
	var data resetBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if data.Token == "" {
		respond.Fail(c, http.StatusBadRequest, "No reset token provided")
		return
	}

	if err := validators.PasswordValidator(data.Password); err != nil {
		respond.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()

	tok, err := d.Tokens.ConsumeValue(ctx, model.PurposePasswordReset, data.Token)
	if err != nil {
		respond.Error(c, err)
		return
	}

	hash, err := d.Argon.Hash(data.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}

	res := d.DB.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", tok.Identifier).
		Update("password_hash", hash)
	if res.Error != nil {
		respond.Error(c, res.Error)
		return
	}

	if res.RowsAffected == 0 {
		respond.Error(c, service.ErrUserNotFound)
		return
	}

	zap.L().Info("Password reset", zap.String("userID", tok.Identifier))
	c.JSON(http.StatusOK, gin.H{"message": "Password changed, you can log in now"})
}
