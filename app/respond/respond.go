// Package respond maps errors coming out of the service layer to JSON
// responses
package respond

import (
	"bitwise74/szoniska-api/internal/service"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorCase maps a sentinel error to a status code and the message users see
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

var cases = []ErrorCase{
	{service.ErrUserBlocked, http.StatusForbidden, "Your account has been blocked"},
	{service.ErrUserRestricted, http.StatusForbidden, "Your account is restricted and can't create or edit content"},

	{service.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{service.ErrWarningNotFound, http.StatusNotFound, "Warning not found"},
	{service.ErrPostNotFound, http.StatusNotFound, "Post not found"},
	{service.ErrCommentNotFound, http.StatusNotFound, "Comment not found"},

	{service.ErrNotOwner, http.StatusForbidden, "You are not allowed to do that"},
	{service.ErrNotEditable, http.StatusConflict, "Only approved posts can be edited"},
	{service.ErrAlreadyModerated, http.StatusConflict, "Post was already moderated"},
	{service.ErrInvalidDecision, http.StatusBadRequest, "Status must be APPROVED or REJECTED"},
	{service.ErrPinLimit, http.StatusConflict, "At most 4 posts can be pinned at once"},
	{service.ErrAlreadyPinned, http.StatusConflict, "Post is already pinned"},
	{service.ErrNotPinned, http.StatusConflict, "Post is not pinned"},
	{service.ErrPostNotApproved, http.StatusConflict, "Comments are only allowed on approved posts"},

	{service.ErrTokenExpired, http.StatusBadRequest, "Token expired"},
	{service.ErrTokenInvalid, http.StatusBadRequest, "Token expired or invalid"},
	{service.ErrResendTooSoon, http.StatusTooManyRequests, "Please wait a minute before requesting another code"},

	{service.ErrEmailTaken, http.StatusConflict, "This email is already registered. Please login or use a different email"},
	{service.ErrUsernameTaken, http.StatusConflict, "This username is already taken"},
	{service.ErrUnknownProvider, http.StatusNotFound, "Unknown sign in provider"},
}

// Error writes err as a JSON error. Unknown errors become a 500 and are logged.
func Error(c *gin.Context, err error) {
	requestID := c.GetString("requestID")

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		Fail(c, http.StatusBadRequest, verr.Error())
		return
	}

	var uerr *service.UploadError
	if errors.As(err, &uerr) && uerr.Status != 0 && uerr.Status < http.StatusInternalServerError {
		Fail(c, uerr.Status, uerr.Error())
		return
	}

	for _, cs := range cases {
		if errors.Is(err, cs.Err) {
			Fail(c, cs.Status, cs.Message)
			return
		}
	}

	Fail(c, http.StatusInternalServerError, "Internal server error")
	zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID), zap.String("path", c.FullPath()))
}

// Fail writes a JSON error with the request ID attached
func Fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"error":     msg,
		"requestID": c.GetString("requestID"),
	})
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Page reads the page and limit query params. Pages start at 0.
func Page(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 0 {
		page = 0
	}

	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}

	return page, min(limit, maxLimit)
}

// ID parses a numeric path param. It writes a 400 and returns false when
// the param is not a positive integer.
func ID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		Fail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}

	return uint(id), true
}

// Paged is the envelope for list endpoints
func Paged(c *gin.Context, key string, items any, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		key:     items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
