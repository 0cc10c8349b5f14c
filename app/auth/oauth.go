package auth

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/pkg/util"
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const stateCookie = "oauth_state"

// OAuthStart redirects to the provider's consent page
func OAuthStart(c *gin.Context, d *internal.Deps) {
	state, err := util.GenerateToken(16)
	if err != nil {
		respond.Error(c, err)
		return
	}

	target, err := d.OAuth.AuthCodeURL(c.Param("provider"), state)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/api/auth/oauth", "", viper.GetBool("host.ssl.enabled"), true)
	c.Redirect(http.StatusFound, target)
}

// OAuthCallback finishes the provider flow and sends the user back to the
// frontend. Errors are passed along in the error query param.
func OAuthCallback(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	provider := c.Param("provider")

	fail := func(msg string) {
		redirectFrontend(c, "/login", url.Values{"error": {msg}})
	}

	state, _ := c.Cookie(stateCookie)
	c.SetCookie(stateCookie, "", -1, "/api/auth/oauth", "", viper.GetBool("host.ssl.enabled"), true)

	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(c.Query("state"))) != 1 {
		fail("invalid_state")
		return
	}

	if e := c.Query("error"); e != "" {
		fail(e)
		return
	}

	profile, err := d.OAuth.Exchange(c.Request.Context(), provider, c.Query("code"))
	if err != nil {
		zap.L().Error("OAuth exchange failed", zap.Error(err), zap.String("provider", provider), zap.String("requestID", requestID))
		fail("exchange_failed")
		return
	}

	user, created, err := d.OAuth.SignIn(c.Request.Context(), profile)
	if err != nil {
		zap.L().Error("OAuth sign in failed", zap.Error(err), zap.String("provider", provider), zap.String("requestID", requestID))
		fail("sign_in_failed")
		return
	}

	if created {
		zap.L().Info("User created through OAuth", zap.String("userID", user.ID), zap.String("provider", provider))
	}

	if user.TwoFactorEnabled {
		tok, err := d.Tokens.Issue(c.Request.Context(), model.PurposeTwoFactorLogin, user.ID)
		if err != nil {
			zap.L().Error("Failed to issue login token", zap.Error(err), zap.String("requestID", requestID))
			fail("sign_in_failed")
			return
		}

		redirectFrontend(c, "/login/2fa", url.Values{"userID": {user.ID}, "loginToken": {tok.Value}})
		return
	}

	if err := startSession(c, d, user); err != nil {
		zap.L().Error("Failed to start session", zap.Error(err), zap.String("requestID", requestID))
		fail("sign_in_failed")
		return
	}

	redirectFrontend(c, "/", nil)
}

func redirectFrontend(c *gin.Context, path string, q url.Values) {
	target := strings.TrimRight(viper.GetString("host.frontend_url"), "/") + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	c.Redirect(http.StatusFound, target)
}
