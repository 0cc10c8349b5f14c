package admin

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/internal/service"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func ListPosts(c *gin.Context, d *internal.Deps) {
	page, limit := respond.Page(c)

	status := model.PostStatus(strings.ToUpper(c.Query("status")))
	if status != "" && !status.Valid() {
		respond.Fail(c, http.StatusBadRequest, "Invalid status filter")
		return
	}

	posts, total, err := d.Posts.List(c.Request.Context(), service.ListOpts{
		Page:   page,
		Limit:  limit,
		Status: status,
		UserID: c.Query("userId"),
		Query:  strings.TrimSpace(c.Query("q")),
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.Paged(c, "posts", posts, total, page, limit)
}

type moderateBody struct {
	Status  model.PostStatus `json:"status"`
	Warning string           `json:"warning"`
}

// ModeratePost approves or rejects a pending post
func ModeratePost(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	var data moderateBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := d.Posts.Moderate(c.Request.Context(), id, model.PostStatus(strings.ToUpper(string(data.Status))), data.Warning)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func PinPost(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	post, err := d.Posts.Pin(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func UnpinPost(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	post, err := d.Posts.Unpin(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func AddPostWarning(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	var data warningBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	w, err := d.Posts.AddWarning(c.Request.Context(), id, data.Message)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, w)
}

func DeletePostWarning(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	warningID, ok := respond.ID(c, "warningId")
	if !ok {
		return
	}

	if err := d.Posts.DeleteWarning(c.Request.Context(), id, warningID); err != nil {
		respond.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
