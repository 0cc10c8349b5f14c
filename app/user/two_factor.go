package user

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/pkg/middleware"
	"bitwise74/szoniska-api/pkg/security"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TwoFactorSetup creates a fresh secret. 2FA stays off until the user
// confirms a code with TwoFactorEnable.
func TwoFactorSetup(c *gin.Context, d *internal.Deps) {
	u := middleware.CurrentUser(c)

	if u.TwoFactorEnabled {
		respond.Fail(c, http.StatusConflict, "Two factor authentication is already enabled")
		return
	}

	account := u.Username
	if u.Email != nil {
		account = *u.Email
	}

	secret, otpURL, err := security.GenerateTOTPSecret(viper.GetString("app.name"), account)
	if err != nil {
		respond.Error(c, err)
		return
	}

	qr, err := security.QRCodeDataURL(otpURL, 256)
	if err != nil {
		respond.Error(c, err)
		return
	}

	if err := d.DB.WithContext(c.Request.Context()).Model(u).Update("two_factor_secret", secret).Error; err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"secret": secret,
		"otpURL": otpURL,
		"qrCode": qr,
	})
}

type codeBody struct {
	Code string `json:"code"`
}

func TwoFactorEnable(c *gin.Context, d *internal.Deps) {
	toggleTwoFactor(c, d, true)
}

func TwoFactorDisable(c *gin.Context, d *internal.Deps) {
	toggleTwoFactor(c, d, false)
}

func toggleTwoFactor(c *gin.Context, d *internal.Deps, enable bool) {
	u := middleware.CurrentUser(c)

	var data codeBody
	if err := c.ShouldBindJSON(&data); err != nil || data.Code == "" {
		respond.Fail(c, http.StatusBadRequest, "No code provided")
		return
	}

	if u.TwoFactorEnabled == enable {
		respond.Fail(c, http.StatusConflict, "Nothing to change")
		return
	}

	if u.TwoFactorSecret == nil {
		respond.Fail(c, http.StatusBadRequest, "Set up two factor authentication first")
		return
	}

	if !security.ValidateTOTP(*u.TwoFactorSecret, data.Code, time.Now()) {
		respond.Fail(c, http.StatusUnauthorized, "Invalid two factor code")
		return
	}

	updates := map[string]any{"two_factor_enabled": enable}
	if !enable {
		updates["two_factor_secret"] = nil
	}

	if err := d.DB.WithContext(c.Request.Context()).Model(u).Updates(updates).Error; err != nil {
		respond.Error(c, err)
		return
	}

	zap.L().Info("Two factor authentication changed", zap.String("userID", u.ID), zap.Bool("enabled", enable))
	c.JSON(http.StatusOK, gin.H{"twoFactorEnabled": enable})
}
