// Package post contains the public and owner facing post handlers
package post

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/service"
	"bitwise74/szoniska-api/pkg/middleware"
	"bitwise74/szoniska-api/pkg/validators"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Feed lists approved posts, pinned ones first
func Feed(c *gin.Context, d *internal.Deps) {
	if err := service.CheckBrowseAccess(middleware.CurrentUser(c)); err != nil {
		respond.Error(c, err)
		return
	}

	page, limit := respond.Page(c)

	posts, total, err := d.Posts.Feed(c.Request.Context(), service.ListOpts{
		Page:  page,
		Limit: limit,
		Query: strings.TrimSpace(c.Query("q")),
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	for i := range posts {
		posts[i].Warnings = nil
	}

	respond.Paged(c, "posts", posts, total, page, limit)
}

func Fetch(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	post, err := d.Posts.Visible(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func Create(c *gin.Context, d *internal.Deps) {
	var data validators.PostContent
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := d.Posts.Create(c.Request.Context(), middleware.CurrentUser(c), data)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

func Edit(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	var data validators.PostContent
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := d.Posts.Edit(c.Request.Context(), middleware.CurrentUser(c), id, data)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func Delete(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	if err := d.Posts.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		respond.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
