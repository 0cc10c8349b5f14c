package internal

import (
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/pkg/middleware"
	"bitwise74/szoniska-api/pkg/security"

	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Argon    *security.Argon
	Sessions *security.Sessions
	Auth     *middleware.Auth
	Mailer   service.Mailer

	Tokens     *service.Tokens
	Moderation *service.Moderation
	Posts      *service.Posts
	Comments   *service.Comments
	Users      *service.Users
	Site       *service.Site
	OAuth      *service.OAuth
	Uploader   *service.Uploader
}
