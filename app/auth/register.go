package auth

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/pkg/validators"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type registerBody struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func Register(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	data.Email = validators.NormalizeEmail(data.Email)
	data.Username = strings.TrimSpace(data.Username)

	for _, err := range []error{
		validators.EmailValidator(data.Email),
		validators.UsernameValidator(data.Username),
		validators.PasswordValidator(data.Password),
	} {
		if err != nil {
			zap.L().Debug("Invalid registration", zap.Error(err), zap.String("requestID", requestID))
			respond.Fail(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	ctx := c.Request.Context()

	if err := d.Users.CheckAvailable(ctx, data.Email, data.Username, ""); err != nil {
		respond.Error(c, err)
		return
	}

	hash, err := d.Argon.Hash(data.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}

	userID, err := service.NewUserID()
	if err != nil {
		respond.Error(c, err)
		return
	}

	expiry := time.Now().Add(viper.GetDuration("accounts.unverified_ttl"))
	name := strings.TrimSpace(data.Name)
	if name == "" {
		name = data.Username
	}

	user := &model.User{
		ID:           userID,
		Email:        &data.Email,
		Username:     data.Username,
		Name:         name,
		PasswordHash: hash,
		ExpiresAt:    &expiry,
	}

	if err := d.Users.Create(ctx, user); err != nil {
		respond.Error(c, err)
		return
	}

	if err := sendVerificationCode(c, d, data.Email); err != nil {
		// The account exists already, the code can be re-sent
		zap.L().Error("Failed to send verification email", zap.Error(err), zap.String("requestID", requestID))
	}

	c.JSON(http.StatusCreated, gin.H{
		"userID":  userID,
		"message": "Account created. Check your inbox for the verification code",
	})
}

func sendVerificationCode(c *gin.Context, d *internal.Deps, email string) error {
	tok, err := d.Tokens.Issue(c.Request.Context(), model.PurposeEmailVerify, email)
	if err != nil {
		return err
	}

	return d.Mailer.Send(c.Request.Context(), service.VerificationMail(viper.GetString("app.name"), email, tok.Value))
}
