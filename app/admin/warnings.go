package admin

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

type warningBody struct {
	Message string `json:"message"`
}

// CreateWarning warns a user. Reaching 4 warnings restricts them, 8 blocks them.
func CreateWarning(c *gin.Context, d *internal.Deps) {
	var data warningBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	w, status, err := d.Moderation.AddWarning(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), data.Message)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"warning": w,
		"status":  status,
	})
}

func EditWarning(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	var data warningBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	w, err := d.Moderation.EditWarning(c.Request.Context(), id, data.Message)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, w)
}

func DeleteWarning(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	userID, status, err := d.Moderation.DeleteWarning(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userID": userID,
		"status": status,
	})
}
