// Package user contains the handlers for the signed in user's own account
// and public profiles
package user

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/pkg/middleware"
	"bitwise74/szoniska-api/pkg/validators"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

const maxNameLength = 64

// Me returns the signed in user together with their warnings
func Me(c *gin.Context, d *internal.Deps) {
	u := middleware.CurrentUser(c)

	warnings, err := d.Moderation.Warnings(c.Request.Context(), u.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	u.Warnings = warnings
	c.JSON(http.StatusOK, u)
}

type updateMeBody struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
}

func UpdateMe(c *gin.Context, d *internal.Deps) {
	u := middleware.CurrentUser(c)

	var data updateMeBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	updates := map[string]any{}

	if data.Username != nil {
		username := strings.TrimSpace(*data.Username)
		if err := validators.UsernameValidator(username); err != nil {
			respond.Fail(c, http.StatusBadRequest, err.Error())
			return
		}

		if err := d.Users.CheckAvailable(c.Request.Context(), "", username, u.ID); err != nil {
			respond.Error(c, err)
			return
		}

		updates["username"] = username
	}

	if data.Name != nil {
		name := strings.TrimSpace(*data.Name)
		if utf8.RuneCountInString(name) > maxNameLength {
			respond.Fail(c, http.StatusBadRequest, "Name is too long")
			return
		}

		updates["name"] = name
	}

	if data.Avatar != nil {
		avatar := strings.TrimSpace(*data.Avatar)
		if avatar != "" {
			if err := validators.MediaURLValidator(avatar, d.Posts.CDNURL); err != nil {
				respond.Fail(c, http.StatusBadRequest, "Avatar must be uploaded through the media endpoint")
				return
			}
		}

		updates["avatar"] = avatar
	}

	if len(updates) == 0 {
		respond.Fail(c, http.StatusBadRequest, "Nothing to update")
		return
	}

	if err := d.DB.WithContext(c.Request.Context()).Model(u).Updates(updates).Error; err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, u)
}

func MyWarnings(c *gin.Context, d *internal.Deps) {
	u := middleware.CurrentUser(c)

	warnings, err := d.Moderation.Warnings(c.Request.Context(), u.ID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"warnings":          warnings,
		"isRestricted":      u.IsRestricted,
		"isBlocked":         u.IsBlocked,
		"restrictionReason": u.RestrictionReason,
	})
}

// MyPosts lists every post of the signed in user with any status
func MyPosts(c *gin.Context, d *internal.Deps) {
	u := middleware.CurrentUser(c)
	page, limit := respond.Page(c)

	posts, total, err := d.Posts.List(c.Request.Context(), service.ListOpts{
		Page:   page,
		Limit:  limit,
		UserID: u.ID,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.Paged(c, "posts", posts, total, page, limit)
}
