// Package site serves the public site-wide state: maintenance,
// announcements and the changelog
package site

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
)

func Maintenance(c *gin.Context, d *internal.Deps) {
	m, err := d.Site.ActiveMaintenance(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":      m != nil,
		"maintenance": m,
	})
}

func Announcements(c *gin.Context, d *internal.Deps) {
	out, err := d.Site.ActiveAnnouncements(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"announcements": out})
}

func Updates(c *gin.Context, d *internal.Deps) {
	page, limit := respond.Page(c)
	db := d.DB.WithContext(c.Request.Context())

	var total int64
	if err := db.Model(&model.Update{}).Count(&total).Error; err != nil {
		respond.Error(c, err)
		return
	}

	var out []model.Update
	err := db.
		Order("created_at desc").
		Offset(page * limit).
		Limit(limit).
		Find(&out).
		Error
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.Paged(c, "updates", out, total, page, limit)
}
