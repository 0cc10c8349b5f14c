package comment

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

// List returns the comments of a post the viewer is allowed to see
func List(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	if _, err := d.Posts.Visible(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		respond.Error(c, err)
		return
	}

	page, limit := respond.Page(c)

	comments, total, err := d.Comments.List(c.Request.Context(), id, page, limit)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.Paged(c, "comments", comments, total, page, limit)
}

type createBody struct {
	Content string `json:"content"`
}

func Create(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	var data createBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := d.Comments.Create(c.Request.Context(), middleware.CurrentUser(c), id, data.Content)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func Delete(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	if err := d.Comments.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		respond.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
