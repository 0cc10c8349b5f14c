package service

import (
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/pkg/util"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

var (
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrOAuthNoEmail    = errors.New("provider didn't return a verified email")

	discordEndpoint = oauth2.Endpoint{
		AuthURL:   "https://discord.com/oauth2/authorize",
		TokenURL:  "https://discord.com/api/oauth2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}

	usernameStrip = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

const (
	ProviderDiscord = "discord"
	ProviderGoogle  = "google"
)

// OAuthProfile is what the providers tell us about the signed in user
type OAuthProfile struct {
	Provider      string
	ID            string
	Username      string
	Name          string
	Email         string
	EmailVerified bool
	Avatar        string
}

type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
}

type oauthProvider struct {
	config     *oauth2.Config
	profileURL string
	parse      func([]byte) (*OAuthProfile, error)
}

type OAuth struct {
	DB        *gorm.DB
	providers map[string]*oauthProvider
}

// NewOAuth registers the providers that have credentials. redirectBase is the
// public API address the callbacks are served on.
func NewOAuth(db *gorm.DB, redirectBase string, creds map[string]OAuthCredentials) *OAuth {
	o := &OAuth{
		DB:        db,
		providers: make(map[string]*oauthProvider),
	}

	redirectBase = strings.TrimRight(redirectBase, "/")

	if c, ok := creds[ProviderDiscord]; ok && c.ClientID != "" {
		o.providers[ProviderDiscord] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     c.ClientID,
				ClientSecret: c.ClientSecret,
				Endpoint:     discordEndpoint,
				RedirectURL:  redirectBase + "/api/auth/oauth/discord/callback",
				Scopes:       []string{"identify", "email"},
			},
			profileURL: "https://discord.com/api/users/@me",
			parse:      parseDiscordProfile,
		}
	}

	if c, ok := creds[ProviderGoogle]; ok && c.ClientID != "" {
		o.providers[ProviderGoogle] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     c.ClientID,
				ClientSecret: c.ClientSecret,
				Endpoint:     google.Endpoint,
				RedirectURL:  redirectBase + "/api/auth/oauth/google/callback",
				Scopes:       []string{"openid", "profile", "email"},
			},
			profileURL: "https://www.googleapis.com/oauth2/v3/userinfo",
			parse:      parseGoogleProfile,
		}
	}

	return o
}

func (o *OAuth) provider(name string) (*oauthProvider, error) {
	p, ok := o.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}

	return p, nil
}

// AuthCodeURL is where the user gets redirected to sign in
func (o *OAuth) AuthCodeURL(provider, state string) (string, error) {
	p, err := o.provider(provider)
	if err != nil {
		return "", err
	}

	return p.config.AuthCodeURL(state), nil
}

// Exchange trades the callback code for a token and fetches the profile
func (o *OAuth) Exchange(ctx context.Context, provider, code string) (*OAuthProfile, error) {
	p, err := o.provider(provider)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code, %w", err)
	}

	res, err := p.config.Client(ctx, tok).Get(p.profileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch oauth profile, %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth profile, %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth profile request failed with status %d", res.StatusCode)
	}

	profile, err := p.parse(body)
	if err != nil {
		return nil, err
	}

	profile.Provider = provider
	return profile, nil
}

func parseDiscordProfile(body []byte) (*OAuthProfile, error) {
	var d struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Email      string `json:"email"`
		Verified   bool   `json:"verified"`
		Avatar     string `json:"avatar"`
	}

	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to decode discord profile, %w", err)
	}

	if d.ID == "" {
		return nil, errors.New("discord profile has no id")
	}

	p := &OAuthProfile{
		ID:            d.ID,
		Username:      d.Username,
		Name:          d.GlobalName,
		Email:         d.Email,
		EmailVerified: d.Verified,
	}

	if d.Avatar != "" {
		p.Avatar = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", d.ID, d.Avatar)
	}

	return p, nil
}

func parseGoogleProfile(body []byte) (*OAuthProfile, error) {
	var g struct {
		Sub           string `json:"sub"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Picture       string `json:"picture"`
	}

	if err := json.Unmarshal(body, &g); err != nil {
		return nil, fmt.Errorf("failed to decode google profile, %w", err)
	}

	if g.Sub == "" {
		return nil, errors.New("google profile has no id")
	}

	username, _, _ := strings.Cut(g.Email, "@")

	return &OAuthProfile{
		ID:            g.Sub,
		Username:      username,
		Name:          g.Name,
		Email:         g.Email,
		EmailVerified: g.EmailVerified,
		Avatar:        g.Picture,
	}, nil
}

func providerColumn(provider string) (string, error) {
	switch provider {
	case ProviderDiscord:
		return "discord_id", nil
	case ProviderGoogle:
		return "google_id", nil
	}

	return "", ErrUnknownProvider
}

// SignIn finds the user behind profile. Users are matched by provider id
// first, then linked by verified email, and created when neither matches.
func (o *OAuth) SignIn(ctx context.Context, profile *OAuthProfile) (*model.User, bool, error) {
	column, err := providerColumn(profile.Provider)
	if err != nil {
		return nil, false, err
	}

	var (
		user    model.User
		created bool
	)

	err = o.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(column+" = ?", profile.ID).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		email := strings.ToLower(strings.TrimSpace(profile.Email))
		now := time.Now()

		if email != "" && profile.EmailVerified {
			err := tx.Where("email = ?", email).First(&user).Error
			if err == nil {
				updates := map[string]any{column: profile.ID}

				// Nobody ever proved they own an unverified account, so the
				// provider takes it over and any credentials set at signup
				// stop working
				if user.EmailVerifiedAt == nil {
					updates["email_verified_at"] = now
					updates["expires_at"] = nil
					updates["password_hash"] = ""
					updates["two_factor_enabled"] = false
					updates["two_factor_secret"] = nil

					if err := tx.Where("identifier IN ?", []string{email, user.ID}).Delete(&model.Token{}).Error; err != nil {
						return fmt.Errorf("failed to revoke pending tokens, %w", err)
					}

					if err := tx.Where("identifier = ?", email).Delete(&model.ResendRequest{}).Error; err != nil {
						return fmt.Errorf("failed to clear resend records, %w", err)
					}
				}
				if user.Avatar == "" && profile.Avatar != "" {
					updates["avatar"] = profile.Avatar
				}

				if err := tx.Model(&user).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to link oauth account, %w", err)
				}

				return tx.First(&user, "id = ?", user.ID).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		username, err := uniqueUsername(tx, profile.Username)
		if err != nil {
			return err
		}

		id, err := NewUserID()
		if err != nil {
			return err
		}

		providerID := profile.ID
		user = model.User{
			ID:              id,
			Username:        username,
			Name:            profile.Name,
			Avatar:          profile.Avatar,
			EmailVerifiedAt: &now,
		}

		if email != "" && profile.EmailVerified {
			user.Email = &email
		}

		switch profile.Provider {
		case ProviderDiscord:
			user.DiscordID = &providerID
		case ProviderGoogle:
			user.GoogleID = &providerID
		}

		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create oauth user, %w", err)
		}

		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &user, created, nil
}

// uniqueUsername turns a provider username into a free local one
func uniqueUsername(tx *gorm.DB, base string) (string, error) {
	base = usernameStrip.ReplaceAllString(base, "")
	if len(base) > 24 {
		base = base[:24]
	}
	if len(base) < 3 {
		base = "user"
	}

	candidate := base
	for range 5 {
		var taken int64
		if err := tx.Model(&model.User{}).Where("username = ?", candidate).Count(&taken).Error; err != nil {
			return "", err
		}

		if taken == 0 {
			return candidate, nil
		}

		candidate = base + "_" + strings.ToLower(util.RandStr(6))
	}

	return "", errors.New("failed to find a free username")
}
