package main

import (
	"bitwise74/szoniska-api/app"
	"bitwise74/szoniska-api/config"
	"bitwise74/szoniska-api/db"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/logger"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/pkg/middleware"
	"bitwise74/szoniska-api/pkg/security"
	"bitwise74/szoniska-api/storage"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	if err := logger.Setup(viper.GetString("app.log_level")); err != nil {
		panic(err)
	}
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zap.L().Fatal("Server stopped", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	conn, err := db.New()
	if err != nil {
		return err
	}

	sessions := security.NewSessions(viper.GetString("jwt.secret"), viper.GetDuration("session.ttl"))

	d := &internal.Deps{
		DB:       conn,
		Argon:    security.NewArgon(),
		Sessions: sessions,
	}
	d.Auth = middleware.NewAuth(conn, d.Sessions)

	// Media removal stays a nil interface when no bucket is configured
	var media service.MediaRemover
	cdnURL := viper.GetString("storage.cdn_url")

	if viper.GetString("storage.bucket") != "" {
		s3, err := storage.New(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize storage client, %w", err)
		}

		media = s3
		d.Uploader = service.NewUploader(s3, viper.GetInt64("upload.max_size"))
	} else {
		zap.L().Warn("No storage bucket configured, media uploads are disabled")
	}

	mailer, closeMail, err := newMailer()
	if err != nil {
		return err
	}
	defer closeMail()
	d.Mailer = mailer

	d.Tokens = service.NewTokens(conn, map[model.TokenPurpose]time.Duration{
		model.PurposeEmailVerify:    viper.GetDuration("tokens.email_verify_ttl"),
		model.PurposePasswordReset:  viper.GetDuration("tokens.password_reset_ttl"),
		model.PurposeTwoFactorLogin: viper.GetDuration("tokens.two_factor_ttl"),
	}, viper.GetDuration("tokens.resend_cooldown"))
	d.Moderation = service.NewModeration(conn)
	d.Posts = service.NewPosts(conn, cdnURL, media)
	d.Comments = service.NewComments(conn)
	d.Users = service.NewUsers(conn, media)
	d.Site = service.NewSite(conn, viper.GetDuration("chat.retention"))
	d.OAuth = service.NewOAuth(conn, viper.GetString("host.api_url"), map[string]service.OAuthCredentials{
		service.ProviderDiscord: {
			ClientID:     viper.GetString("oauth.discord.client_id"),
			ClientSecret: viper.GetString("oauth.discord.client_secret"),
		},
		service.ProviderGoogle: {
			ClientID:     viper.GetString("oauth.google.client_id"),
			ClientSecret: viper.GetString("oauth.google.client_secret"),
		},
	})

	scheduler, err := service.StartScheduler(service.Cleanup{
		Tokens: d.Tokens,
		Users:  d.Users,
		Site:   d.Site,
	})
	if err != nil {
		return fmt.Errorf("failed to start scheduler, %w", err)
	}
	defer scheduler.Stop()

	store, err := app.NewCacheStore(viper.GetString("cache.redis_addr"))
	if err != nil {
		return err
	}

	rateLimit := viper.GetInt("security.rate_limit")
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
	})
	defer limiter.Close()

	router := app.NewRouter(d, app.Config{
		Origins:       viper.GetStringSlice("host.cors"),
		MaxUploadSize: viper.GetInt64("upload.max_size"),
		RateLimiter:   limiter,
		Cache:         store,
		Turnstile:     viper.GetBool("cloudflare.turnstile.enabled"),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", viper.GetInt("host.port")),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr))

		if viper.GetBool("host.ssl.enabled") {
			errCh <- srv.ListenAndServeTLS(
				viper.GetString("host.ssl.certificate_path"),
				viper.GetString("host.ssl.certificate_key_path"),
			)
			return
		}

		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		zap.L().Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// newMailer picks SMTP when mail.host is set and logs mails otherwise. With
// queue.redis_addr set, mails go through asynq and a worker sends them.
func newMailer() (service.Mailer, func(), error) {
	var direct service.Mailer = service.LogMailer{}

	if host := viper.GetString("mail.host"); host != "" {
		direct = service.NewSMTPMailer(service.SMTPConfig{
			Host:     host,
			Port:     viper.GetInt("mail.port"),
			From:     viper.GetString("mail.sender_address"),
			Password: viper.GetString("mail.password"),
		})
	} else {
		zap.L().Warn("No mail host configured, mails will only be logged")
	}

	addr := viper.GetString("queue.redis_addr")
	if addr == "" {
		return direct, func() {}, nil
	}

	worker := service.NewMailWorker(addr, direct)
	if err := worker.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start mail worker, %w", err)
	}

	queued := service.NewQueuedMailer(addr)

	return queued, func() {
		queued.Close()
		worker.Shutdown()
	}, nil
}
