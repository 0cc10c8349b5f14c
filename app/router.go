// Package app wires every HTTP handler to its route
package app

import (
	"bitwise74/szoniska-api/app/admin"
	"bitwise74/szoniska-api/app/auth"
	"bitwise74/szoniska-api/app/comment"
	"bitwise74/szoniska-api/app/media"
	"bitwise74/szoniska-api/app/post"
	"bitwise74/szoniska-api/app/root"
	"bitwise74/szoniska-api/app/site"
	"bitwise74/szoniska-api/app/user"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/pkg/middleware"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// jsonBodyLimit caps every request body that isn't a media upload
const jsonBodyLimit = 1 << 20

type Config struct {
	Origins       []string
	MaxUploadSize int64
	// Nil disables rate limiting
	RateLimiter *middleware.RateLimiter
	// Nil falls back to an in-memory store
	Cache persist.CacheStore
	// Skipped when false so tests don't need a Cloudflare secret
	Turnstile bool
}

func NewRouter(d *internal.Deps, cfg Config) *gin.Engine {
	router := gin.New()

	store := cfg.Cache
	if store == nil {
		store = persist.NewMemoryStore(time.Minute)
	}

	cacheFor := func(sec int) gin.HandlerFunc {
		return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.Origins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 8 << 20

	optional := d.Auth.Optional()
	required := d.Auth.Required()
	maintenance := middleware.MaintenanceGate(d.Site)

	var turnstile gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.Turnstile {
		turnstile = middleware.NewTurnstileMiddleware()
	}

	h := func(fn func(*gin.Context, *internal.Deps)) gin.HandlerFunc {
		return func(c *gin.Context) { fn(c, d) }
	}

	m := router.Group("/api")
	if cfg.RateLimiter != nil {
		m.Use(cfg.RateLimiter.Middleware())
	}
	{
		// HEAD /api/heartbeat			-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/maintenance			-> Returns the active maintenance window, if any
		m.GET("/maintenance", h(site.Maintenance))

		// GET /api/announcements		-> Lists the active announcements
		m.GET("/announcements", cacheFor(30), h(site.Announcements))

		// GET /api/updates			-> Lists the site changelog
		m.GET("/updates", cacheFor(60), h(site.Updates))
	}

	a := m.Group("/auth", middleware.BodySizeLimiter(jsonBodyLimit))
	{
		// POST /api/auth/register		-> Registers a new user and mails a verification code
		a.POST("/register", turnstile, optional, maintenance, h(auth.Register))

		// POST /api/auth/verify		-> Verifies an email with the mailed code
		a.POST("/verify", h(auth.Verify))

		// POST /api/auth/verify/resend		-> Mails a new verification code
		a.POST("/verify/resend", h(auth.Resend))

		// POST /api/auth/login			-> Logs in with email and password
		a.POST("/login", turnstile, h(auth.Login))

		// POST /api/auth/2fa			-> Finishes a login that needs a TOTP code
		a.POST("/2fa", h(auth.TwoFactor))

		// POST /api/auth/logout		-> Clears the session cookies
		a.POST("/logout", auth.Logout)

		// POST /api/auth/password/forgot	-> Mails a password reset link
		a.POST("/password/forgot", turnstile, h(auth.ForgotPassword))

		// POST /api/auth/password/reset	-> Sets a new password with a reset token
		a.POST("/password/reset", h(auth.ResetPassword))

		// GET /api/auth/oauth/:provider	-> Redirects to Discord or Google
		a.GET("/oauth/:provider", h(auth.OAuthStart))

		// GET /api/auth/oauth/:provider/callback -> Signs in with the provider's profile
		a.GET("/oauth/:provider/callback", h(auth.OAuthCallback))
	}

	u := m.Group("/users", middleware.BodySizeLimiter(jsonBodyLimit))
	{
		// GET /api/users/me			-> Returns the logged in user and their warnings
		u.GET("/me", required, h(user.Me))

		// PATCH /api/users/me			-> Updates the username, name or avatar
		u.PATCH("/me", required, maintenance, h(user.UpdateMe))

		// GET /api/users/me/warnings		-> Lists the user's warnings
		u.GET("/me/warnings", required, h(user.MyWarnings))

		// GET /api/users/me/posts		-> Lists the user's posts in every status
		u.GET("/me/posts", required, h(user.MyPosts))

		// POST /api/users/me/2fa/setup		-> Generates a TOTP secret and QR code
		u.POST("/me/2fa/setup", required, h(user.TwoFactorSetup))

		// POST /api/users/me/2fa/enable	-> Turns on 2FA after checking a code
		u.POST("/me/2fa/enable", required, h(user.TwoFactorEnable))

		// POST /api/users/me/2fa/disable	-> Turns off 2FA after checking a code
		u.POST("/me/2fa/disable", required, h(user.TwoFactorDisable))

		// GET /api/users/:id			-> Returns a public profile with approved posts
		u.GET("/:id", optional, maintenance, h(user.Profile))
	}

	p := m.Group("/posts", middleware.BodySizeLimiter(jsonBodyLimit), optional, maintenance)
	{
		// GET /api/posts			-> Public feed, pinned posts first
		p.GET("", h(post.Feed))

		// GET /api/posts/:id			-> Returns a post if the viewer may see it
		p.GET("/:id", h(post.Fetch))

		// POST /api/posts			-> Creates a pending post
		p.POST("", required, h(post.Create))

		// PATCH /api/posts/:id			-> Edits an approved post
		p.PATCH("/:id", required, h(post.Edit))

		// DELETE /api/posts/:id		-> Deletes a post with its comments
		p.DELETE("/:id", required, h(post.Delete))

		// GET /api/posts/:id/comments		-> Lists the comments of a post
		p.GET("/:id/comments", h(comment.List))

		// POST /api/posts/:id/comments		-> Comments on an approved post
		p.POST("/:id/comments", required, h(comment.Create))
	}

	// DELETE /api/comments/:id			-> Deletes a comment
	m.DELETE("/comments/:id", required, maintenance, h(comment.Delete))

	// POST /api/media				-> Uploads an image or video for a post
	m.POST("/media", middleware.BodySizeLimiter(cfg.MaxUploadSize+jsonBodyLimit), required, maintenance, h(media.Upload))

	ad := m.Group("/admin", middleware.BodySizeLimiter(jsonBodyLimit), required, middleware.AdminOnly())
	{
		// GET /api/admin/users			-> Searches users, filtered by status
		ad.GET("/users", h(admin.ListUsers))

		// GET /api/admin/users/:id		-> Returns a user with their warnings
		ad.GET("/users/:id", h(admin.GetUser))

		// PATCH /api/admin/users/:id/status	-> Overrides the derived status
		ad.PATCH("/users/:id/status", h(admin.SetUserStatus))

		// DELETE /api/admin/users/:id		-> Deletes a user and everything they own
		ad.DELETE("/users/:id", h(admin.DeleteUser))

		// POST /api/admin/users/:id/warnings	-> Warns a user
		ad.POST("/users/:id/warnings", h(admin.CreateWarning))

		// PATCH /api/admin/warnings/:id	-> Edits a warning message
		ad.PATCH("/warnings/:id", h(admin.EditWarning))

		// DELETE /api/admin/warnings/:id	-> Removes a warning
		ad.DELETE("/warnings/:id", h(admin.DeleteWarning))

		// GET /api/admin/posts			-> Lists posts, filtered by status
		ad.GET("/posts", h(admin.ListPosts))

		// POST /api/admin/posts/:id/moderate	-> Approves or rejects a pending post
		ad.POST("/posts/:id/moderate", h(admin.ModeratePost))

		// POST /api/admin/posts/:id/pin	-> Pins a post
		ad.POST("/posts/:id/pin", h(admin.PinPost))

		// DELETE /api/admin/posts/:id/pin	-> Unpins a post
		ad.DELETE("/posts/:id/pin", h(admin.UnpinPost))

		// POST /api/admin/posts/:id/warnings	-> Adds a post warning
		ad.POST("/posts/:id/warnings", h(admin.AddPostWarning))

		// DELETE /api/admin/posts/:id/warnings/:warningId -> Removes a post warning
		ad.DELETE("/posts/:id/warnings/:warningId", h(admin.DeletePostWarning))

		// DELETE /api/admin/posts/:id		-> Deletes any post
		ad.DELETE("/posts/:id", h(post.Delete))

		// GET /api/admin/chat			-> Recent admin chat messages
		ad.GET("/chat", h(admin.ChatMessages))

		// POST /api/admin/chat			-> Sends a chat message
		ad.POST("/chat", h(admin.PostChatMessage))

		ad.GET("/announcements", h(admin.ListAnnouncements))
		ad.POST("/announcements", h(admin.CreateAnnouncement))
		ad.PATCH("/announcements/:id", h(admin.UpdateAnnouncement))
		ad.DELETE("/announcements/:id", h(admin.DeleteAnnouncement))

		ad.GET("/maintenance", h(admin.ListMaintenance))
		ad.POST("/maintenance", h(admin.CreateMaintenance))
		ad.PATCH("/maintenance/:id", h(admin.UpdateMaintenance))
		ad.DELETE("/maintenance/:id", h(admin.DeleteMaintenance))

		ad.POST("/updates", h(admin.CreateUpdate))
		ad.PATCH("/updates/:id", h(admin.EditUpdate))
		ad.DELETE("/updates/:id", h(admin.DeleteUpdate))
	}

	return router
}
