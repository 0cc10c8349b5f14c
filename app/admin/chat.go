package admin

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/pkg/middleware"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const chatHistory = 200

// ChatMessages returns the recent admin chat. Messages past the retention
// window are dropped first.
func ChatMessages(c *gin.Context, d *internal.Deps) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(chatHistory)))
	if err != nil || limit <= 0 || limit > chatHistory {
		limit = chatHistory
	}

	msgs, err := d.Site.ChatMessages(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type chatBody struct {
	Content string `json:"content"`
}

func PostChatMessage(c *gin.Context, d *internal.Deps) {
	var data chatBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	m, err := d.Site.PostChatMessage(c.Request.Context(), middleware.CurrentUser(c), data.Content)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}
