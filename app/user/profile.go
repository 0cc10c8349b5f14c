package user

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Profile is the public view of a user with their approved posts
func Profile(c *gin.Context, d *internal.Deps) {
	if err := service.CheckBrowseAccess(middleware.CurrentUser(c)); err != nil {
		respond.Error(c, err)
		return
	}

	u, err := d.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	page, limit := respond.Page(c)

	posts, total, err := d.Posts.List(c.Request.Context(), service.ListOpts{
		Page:   page,
		Limit:  limit,
		UserID: u.ID,
		Status: model.PostApproved,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	for i := range posts {
		posts[i].Warnings = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"user":      u.Public(),
		"createdAt": u.CreatedAt,
		"posts":     posts,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}
