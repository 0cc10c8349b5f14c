package media

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Upload stores a single image or video for use in a post
func Upload(c *gin.Context, d *internal.Deps) {
	if d.Uploader == nil {
		respond.Fail(c, http.StatusServiceUnavailable, "Uploads are disabled")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, "No file provided")
		return
	}

	m, err := d.Uploader.Do(c.Request.Context(), middleware.CurrentUser(c), fh)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}
