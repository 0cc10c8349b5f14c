package app

import (
	"bitwise74/szoniska-api/config"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/internal/testutil"
	"bitwise74/szoniska-api/pkg/middleware"
	"bitwise74/szoniska-api/pkg/security"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "hunter22hunter"

type testMailer struct {
	mu   sync.Mutex
	sent []service.Mail
}

func (m *testMailer) Send(_ context.Context, mail service.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, mail)
	return nil
}

func (m *testMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sent)
}

type harness struct {
	t      *testing.T
	d      *internal.Deps
	router *gin.Engine
	mailer *testMailer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	gin.SetMode(gin.TestMode)
	viper.Reset()
	config.SetDefaults()

	conn := testutil.NewDB(t)
	sessions := security.NewSessions("test-secret", time.Hour)
	mailer := &testMailer{}

	// Cheap parameters, the defaults make every test slow
	argon := &security.Argon{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}

	tokens := service.NewTokens(conn, map[model.TokenPurpose]time.Duration{
		model.PurposeEmailVerify:    15 * time.Minute,
		model.PurposePasswordReset:  time.Hour,
		model.PurposeTwoFactorLogin: 5 * time.Minute,
	}, time.Minute)

	d := &internal.Deps{
		DB:         conn,
		Argon:      argon,
		Sessions:   sessions,
		Auth:       middleware.NewAuth(conn, sessions),
		Mailer:     mailer,
		Tokens:     tokens,
		Moderation: service.NewModeration(conn),
		Posts:      service.NewPosts(conn, "", nil),
		Comments:   service.NewComments(conn),
		Users:      service.NewUsers(conn, nil),
		Site:       service.NewSite(conn, 24*time.Hour),
		OAuth:      service.NewOAuth(conn, "http://localhost:8080", nil),
	}

	return &harness{
		t:      t,
		d:      d,
		mailer: mailer,
		router: NewRouter(d, Config{
			Origins:       []string{"http://localhost:3000"},
			MaxUploadSize: 1 << 20,
		}),
	}
}

// user creates a verified account that can log in with testPassword
func (h *harness) user(name string, admin bool) *model.User {
	h.t.Helper()

	hash, err := h.d.Argon.Hash(testPassword)
	require.NoError(h.t, err)

	now := time.Now()
	email := name + "@example.com"
	u := &model.User{
		ID:              "id-" + name,
		Email:           &email,
		Username:        name,
		Name:            name,
		PasswordHash:    hash,
		EmailVerifiedAt: &now,
		IsAdmin:         admin,
	}

	require.NoError(h.t, h.d.DB.Create(u).Error)
	return u
}

func (h *harness) session(u *model.User) *http.Cookie {
	h.t.Helper()

	token, err := h.d.Sessions.Issue(u.ID)
	require.NoError(h.t, err)

	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func (h *harness) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			return c
		}
	}

	return nil
}

func TestHeartbeat(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodHead, "/api/heartbeat", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRegisterVerifyLogin(t *testing.T) {
	h := newHarness(t)

	register := map[string]string{
		"email":    "New.User@Example.com",
		"username": "newuser",
		"password": testPassword,
	}

	rec := h.do(http.MethodPost, "/api/auth/register", register)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, h.mailer.count())

	rec = h.do(http.MethodPost, "/api/auth/register", register)
	assert.Equal(t, http.StatusConflict, rec.Code)

	login := map[string]string{"email": "new.user@example.com", "password": testPassword}

	rec = h.do(http.MethodPost, "/api/auth/login", login)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/verify", map[string]string{"email": "new.user@example.com", "code": "000000x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var tok model.Token
	require.NoError(t, h.d.DB.Where("purpose = ? AND identifier = ?", model.PurposeEmailVerify, "new.user@example.com").First(&tok).Error)

	rec = h.do(http.MethodPost, "/api/auth/verify", map[string]string{"email": "new.user@example.com", "code": tok.Value})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, sessionCookie(rec))

	// A verified account has nothing left to verify
	rec = h.do(http.MethodPost, "/api/auth/verify", map[string]string{"email": "new.user@example.com", "code": tok.Value})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "new.user@example.com", "password": "wrongpass1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/login", login)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	rec = h.do(http.MethodGet, "/api/users/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "newuser", decode(t, rec)["username"])
}

func TestResendCooldown(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "slow@example.com",
		"username": "slow",
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/verify/resend", map[string]string{"email": "slow@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/verify/resend", map[string]string{"email": "slow@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Unknown addresses get the same answer as known ones
	rec = h.do(http.MethodPost, "/api/auth/verify/resend", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, h.mailer.count())
}

func TestLoginWithTwoFactor(t *testing.T) {
	h := newHarness(t)
	u := h.user("guarded", false)

	secret, _, err := security.GenerateTOTPSecret("Szoniska", *u.Email)
	require.NoError(t, err)
	require.NoError(t, h.d.DB.Model(u).Updates(map[string]any{
		"two_factor_enabled": true,
		"two_factor_secret":  secret,
	}).Error)

	rec := h.do(http.MethodPost, "/api/auth/login", map[string]string{"email": *u.Email, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, sessionCookie(rec))

	body := decode(t, rec)
	assert.Equal(t, true, body["twoFactorRequired"])
	loginToken := body["loginToken"].(string)

	rec = h.do(http.MethodPost, "/api/auth/2fa", map[string]string{"userID": u.ID, "loginToken": loginToken, "code": "12345"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	rec = h.do(http.MethodPost, "/api/auth/2fa", map[string]string{"userID": u.ID, "loginToken": loginToken, "code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, sessionCookie(rec))

	rec = h.do(http.MethodPost, "/api/auth/2fa", map[string]string{"userID": u.ID, "loginToken": loginToken, "code": code})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutes(t *testing.T) {
	h := newHarness(t)
	u := h.user("plain", false)

	rec := h.do(http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/users", nil, h.session(u))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/api/users/me", nil, &http.Cookie{Name: middleware.SessionCookie, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWarningsRestrictPosting(t *testing.T) {
	h := newHarness(t)
	admin := h.session(h.user("admin", true))
	target := h.user("target", false)
	userCookie := h.session(target)

	var lastWarning float64
	for i := range service.RestrictThreshold {
		rec := h.do(http.MethodPost, "/api/admin/users/"+target.ID+"/warnings", map[string]string{
			"message": fmt.Sprintf("warning %d", i+1),
		}, admin)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		body := decode(t, rec)
		status := body["status"].(map[string]any)
		assert.Equal(t, i+1 >= service.RestrictThreshold, status["isRestricted"])
		assert.Equal(t, false, status["isBlocked"])

		lastWarning = body["warning"].(map[string]any)["id"].(float64)
	}

	post := map[string]string{"title": "Hello", "description": "World"}

	rec := h.do(http.MethodPost, "/api/posts", post, userCookie)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Your account is restricted and can't create or edit content", decode(t, rec)["error"])

	rec = h.do(http.MethodGet, "/api/users/me", nil, userCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "warning 4", decode(t, rec)["restrictionReason"])

	rec = h.do(http.MethodDelete, fmt.Sprintf("/api/admin/warnings/%d", int(lastWarning)), nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["status"].(map[string]any)["isRestricted"])

	rec = h.do(http.MethodPost, "/api/posts", post, userCookie)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestModerationOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin := h.session(h.user("admin", true))
	author := h.session(h.user("author", false))

	rec := h.do(http.MethodPost, "/api/posts", map[string]string{"title": "Hello", "description": "World"}, author)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode(t, rec)
	assert.Equal(t, string(model.PostPending), created["status"])
	postPath := fmt.Sprintf("/api/posts/%d", int(created["id"].(float64)))
	adminPath := fmt.Sprintf("/api/admin/posts/%d", int(created["id"].(float64)))

	rec = h.do(http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["total"])

	rec = h.do(http.MethodGet, postPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, adminPath+"/moderate", map[string]string{"status": "approved", "warning": "  blurry photo  "}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, adminPath+"/moderate", map[string]string{"status": "REJECTED"}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var warnings int64
	require.NoError(t, h.d.DB.Model(&model.PostWarning{}).Count(&warnings).Error)
	assert.Equal(t, int64(1), warnings)

	rec = h.do(http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total"])

	// Warnings are only shown to the author and admins
	rec = h.do(http.MethodGet, postPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["warnings"])

	rec = h.do(http.MethodGet, postPath, nil, author)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["warnings"], 1)

	rec = h.do(http.MethodPost, postPath+"/comments", map[string]string{"content": "nice"}, author)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, postPath+"/comments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total"])
}

func TestPinLimitOverHTTP(t *testing.T) {
	h := newHarness(t)
	admin := h.session(h.user("admin", true))
	author := h.user("author", false)

	var ids []uint
	for i := range service.MaxPinnedPosts + 1 {
		p := &model.Post{
			UserID:      author.ID,
			Title:       fmt.Sprintf("post %d", i),
			Description: "description",
			Status:      model.PostApproved,
		}
		require.NoError(t, h.d.DB.Create(p).Error)
		ids = append(ids, p.ID)
	}

	for _, id := range ids[:service.MaxPinnedPosts] {
		rec := h.do(http.MethodPost, fmt.Sprintf("/api/admin/posts/%d/pin", id), nil, admin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	last := fmt.Sprintf("/api/admin/posts/%d/pin", ids[service.MaxPinnedPosts])

	rec := h.do(http.MethodPost, last, nil, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var pinned int64
	require.NoError(t, h.d.DB.Model(&model.Post{}).Where("is_pinned = ?", true).Count(&pinned).Error)
	assert.Equal(t, int64(service.MaxPinnedPosts), pinned)

	rec = h.do(http.MethodDelete, fmt.Sprintf("/api/admin/posts/%d/pin", ids[0]), nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, last, nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMaintenanceLocksOutVisitors(t *testing.T) {
	h := newHarness(t)
	adminUser := h.user("admin", true)
	admin := h.session(adminUser)

	rec := h.do(http.MethodPost, "/api/admin/maintenance", map[string]any{
		"message":  "Back soon",
		"isActive": true,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Back soon", decode(t, rec)["error"])

	rec = h.do(http.MethodGet, "/api/posts", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Admins can still sign in
	rec = h.do(http.MethodPost, "/api/auth/login", map[string]string{"email": *adminUser.Email, "password": testPassword})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/maintenance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["active"])
}

func TestAdminSiteContent(t *testing.T) {
	h := newHarness(t)
	admin := h.session(h.user("admin", true))

	rec := h.do(http.MethodPost, "/api/admin/announcements", map[string]any{
		"title":    "Hi",
		"message":  "Hidden for now",
		"isActive": false,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int(decode(t, rec)["id"].(float64))

	var a model.Announcement
	require.NoError(t, h.d.DB.First(&a, id).Error)
	assert.False(t, a.IsActive)

	rec = h.do(http.MethodPatch, fmt.Sprintf("/api/admin/announcements/%d", id), map[string]any{"isActive": true}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	active, err := h.d.Site.ActiveAnnouncements(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)

	rec = h.do(http.MethodPost, "/api/admin/updates", map[string]any{"title": "v1", "description": "First release", "version": "1.0.0"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodPost, "/api/admin/updates", map[string]any{"title": "", "description": "x"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodDelete, "/api/admin/updates/999", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/admin/maintenance", map[string]any{
		"message":   "Window",
		"startTime": time.Now().Add(time.Hour),
		"endTime":   time.Now(),
	}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminChat(t *testing.T) {
	h := newHarness(t)
	admin := h.session(h.user("admin", true))

	rec := h.do(http.MethodPost, "/api/admin/chat", map[string]string{"content": "  hello team  "}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "hello team", decode(t, rec)["content"])

	rec = h.do(http.MethodPost, "/api/admin/chat", map[string]string{"content": "   "}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/chat", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["messages"], 1)
}

func TestTwoFactorAttemptLimit(t *testing.T) {
	h := newHarness(t)
	u := h.user("guarded", false)
	other := h.user("other", false)

	secret, _, err := security.GenerateTOTPSecret("Szoniska", *u.Email)
	require.NoError(t, err)
	require.NoError(t, h.d.DB.Model(u).Updates(map[string]any{
		"two_factor_enabled": true,
		"two_factor_secret":  secret,
	}).Error)

	rec := h.do(http.MethodPost, "/api/auth/login", map[string]string{"email": *u.Email, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	loginToken := decode(t, rec)["loginToken"].(string)

	// A login token only works for the account it was issued to
	foreign, err := h.d.Tokens.Issue(context.Background(), model.PurposeTwoFactorLogin, other.ID)
	require.NoError(t, err)
	rec = h.do(http.MethodPost, "/api/auth/2fa", map[string]string{"userID": u.ID, "loginToken": foreign.Value, "code": "12345"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Login token expired or invalid", decode(t, rec)["error"])

	for i := 1; i < service.MaxTokenAttempts; i++ {
		rec = h.do(http.MethodPost, "/api/auth/2fa", map[string]string{"userID": u.ID, "loginToken": loginToken, "code": "12345"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid two factor code", decode(t, rec)["error"])
	}

	rec = h.do(http.MethodPost, "/api/auth/2fa", map[string]string{"userID": u.ID, "loginToken": loginToken, "code": "12345"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Too many invalid codes, please log in again", decode(t, rec)["error"])

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	rec = h.do(http.MethodPost, "/api/auth/2fa", map[string]string{"userID": u.ID, "loginToken": loginToken, "code": code})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))
}

func TestProfileChecksViewerEveryRequest(t *testing.T) {
	h := newHarness(t)
	owner := h.user("alice", false)
	visitor := h.user("mallory", false)
	cookie := h.session(visitor)

	path := "/api/users/" + owner.ID

	rec := h.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, path, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, h.d.DB.Model(visitor).Update("is_blocked", true).Error)

	rec = h.do(http.MethodGet, path, nil, cookie)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Your account has been blocked", decode(t, rec)["error"])

	rec = h.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMaintenanceStatusIsLive(t *testing.T) {
	h := newHarness(t)
	admin := h.session(h.user("admin", true))

	rec := h.do(http.MethodGet, "/api/maintenance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["active"])

	rec = h.do(http.MethodPost, "/api/admin/maintenance", map[string]any{
		"message":  "Back soon",
		"isActive": true,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int(decode(t, rec)["id"].(float64))

	rec = h.do(http.MethodGet, "/api/maintenance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["active"])

	rec = h.do(http.MethodDelete, fmt.Sprintf("/api/admin/maintenance/%d", id), nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodGet, "/api/maintenance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["active"])
}
