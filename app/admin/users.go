// Package admin contains the handlers behind the admin panel. Every route
// requires an admin session.
package admin

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/pkg/middleware"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ListUsers(c *gin.Context, d *internal.Deps) {
	page, limit := respond.Page(c)

	users, total, err := d.Users.List(c.Request.Context(), service.UserListOpts{
		Page:   page,
		Limit:  limit,
		Query:  strings.TrimSpace(c.Query("q")),
		Status: c.Query("status"),
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.Paged(c, "users", users, total, page, limit)
}

func GetUser(c *gin.Context, d *internal.Deps) {
	u, err := d.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	warnings, err := d.Moderation.Warnings(c.Request.Context(), u.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	u.Warnings = warnings
	c.JSON(http.StatusOK, u)
}

type statusBody struct {
	IsBlocked    bool   `json:"isBlocked"`
	IsRestricted bool   `json:"isRestricted"`
	Reason       string `json:"reason"`
}

// SetUserStatus overrides the derived status until the next warning change
func SetUserStatus(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	admin := middleware.CurrentUser(c)
	userID := c.Param("id")

	var data statusBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if userID == admin.ID {
		respond.Fail(c, http.StatusBadRequest, "You can't change your own status")
		return
	}

	status := service.UserStatus{Blocked: data.IsBlocked, Restricted: data.IsRestricted}
	if err := d.Moderation.SetStatus(c.Request.Context(), userID, status, data.Reason); err != nil {
		respond.Error(c, err)
		return
	}

	zap.L().Info("User status set manually",
		zap.String("userID", userID),
		zap.String("adminID", admin.ID),
		zap.String("status", status.String()),
		zap.String("requestID", requestID))

	GetUser(c, d)
}

func DeleteUser(c *gin.Context, d *internal.Deps) {
	admin := middleware.CurrentUser(c)
	userID := c.Param("id")

	if userID == admin.ID {
		respond.Fail(c, http.StatusBadRequest, "You can't delete your own account here")
		return
	}

	if err := d.Users.Delete(c.Request.Context(), userID); err != nil {
		respond.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
