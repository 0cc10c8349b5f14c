package admin

import (
	"bitwise74/szoniska-api/app/respond"
	"bitwise74/szoniska-api/internal"
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/pkg/middleware"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxTitleLength = 120

type announcementBody struct {
	Title     *string    `json:"title"`
	Message   *string    `json:"message"`
	IsActive  *bool      `json:"isActive"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func ListAnnouncements(c *gin.Context, d *internal.Deps) {
	var out []model.Announcement

	if err := d.DB.WithContext(c.Request.Context()).Order("created_at desc").Find(&out).Error; err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"announcements": out})
}

func CreateAnnouncement(c *gin.Context, d *internal.Deps) {
	var data announcementBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if data.Title == nil || data.Message == nil {
		respond.Fail(c, http.StatusBadRequest, "Title and message are required")
		return
	}

	a := model.Announcement{CreatedBy: middleware.CurrentUser(c).ID}
	if !applyAnnouncement(c, &a, data) {
		return
	}

	if err := d.DB.WithContext(c.Request.Context()).Create(&a).Error; err != nil {
		respond.Error(c, err)
		return
	}

	// is_active defaults to true in the schema, so false has to be written separately
	if !a.IsActive {
		if err := d.DB.WithContext(c.Request.Context()).Model(&a).Update("is_active", false).Error; err != nil {
			respond.Error(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, a)
}

func UpdateAnnouncement(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	var data announcementBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var a model.Announcement
	if !find(c, d, &a, id, "Announcement") {
		return
	}

	if !applyAnnouncement(c, &a, data) {
		return
	}

	if err := d.DB.WithContext(c.Request.Context()).Save(&a).Error; err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

func DeleteAnnouncement(c *gin.Context, d *internal.Deps) {
	remove(c, d, &model.Announcement{}, "Announcement")
}

func applyAnnouncement(c *gin.Context, a *model.Announcement, data announcementBody) bool {
	if data.Title != nil {
		a.Title = strings.TrimSpace(*data.Title)
		if a.Title == "" || utf8.RuneCountInString(a.Title) > maxTitleLength {
			respond.Fail(c, http.StatusBadRequest, "Title must be between 1 and 120 characters")
			return false
		}
	}

	if data.Message != nil {
		a.Message = strings.TrimSpace(*data.Message)
		if a.Message == "" {
			respond.Fail(c, http.StatusBadRequest, "Message can't be empty")
			return false
		}
	}

	if data.IsActive != nil {
		a.IsActive = *data.IsActive
	} else if a.ID == 0 {
		a.IsActive = true
	}

	if data.ExpiresAt != nil {
		a.ExpiresAt = data.ExpiresAt
	}

	return true
}

type maintenanceBody struct {
	Message   *string    `json:"message"`
	IsActive  *bool      `json:"isActive"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
}

func ListMaintenance(c *gin.Context, d *internal.Deps) {
	var out []model.SystemMaintenance

	if err := d.DB.WithContext(c.Request.Context()).Order("created_at desc").Find(&out).Error; err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"maintenance": out})
}

// CreateMaintenance schedules a maintenance window. Only admins can use the
// site while one is active.
func CreateMaintenance(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data maintenanceBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if data.Message == nil {
		respond.Fail(c, http.StatusBadRequest, "Message is required")
		return
	}

	var m model.SystemMaintenance
	if !applyMaintenance(c, &m, data) {
		return
	}

	if err := d.DB.WithContext(c.Request.Context()).Create(&m).Error; err != nil {
		respond.Error(c, err)
		return
	}

	zap.L().Info("Maintenance window created",
		zap.Uint("id", m.ID),
		zap.Bool("active", m.IsActive),
		zap.String("requestID", requestID))

	c.JSON(http.StatusCreated, m)
}

func UpdateMaintenance(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	var data maintenanceBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var m model.SystemMaintenance
	if !find(c, d, &m, id, "Maintenance window") {
		return
	}

	if !applyMaintenance(c, &m, data) {
		return
	}

	if err := d.DB.WithContext(c.Request.Context()).Save(&m).Error; err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

func DeleteMaintenance(c *gin.Context, d *internal.Deps) {
	remove(c, d, &model.SystemMaintenance{}, "Maintenance window")
}

func applyMaintenance(c *gin.Context, m *model.SystemMaintenance, data maintenanceBody) bool {
	if data.Message != nil {
		m.Message = strings.TrimSpace(*data.Message)
		if m.Message == "" {
			respond.Fail(c, http.StatusBadRequest, "Message can't be empty")
			return false
		}
	}

	if data.IsActive != nil {
		m.IsActive = *data.IsActive
	}

	if data.StartTime != nil {
		m.StartTime = data.StartTime
	}

	if data.EndTime != nil {
		m.EndTime = data.EndTime
	}

	if m.StartTime != nil && m.EndTime != nil && !m.EndTime.After(*m.StartTime) {
		respond.Fail(c, http.StatusBadRequest, "End time must be after the start time")
		return false
	}

	return true
}

type updateBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Version     *string `json:"version"`
}

func CreateUpdate(c *gin.Context, d *internal.Deps) {
	var data updateBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if data.Title == nil || data.Description == nil {
		respond.Fail(c, http.StatusBadRequest, "Title and description are required")
		return
	}

	var u model.Update
	if !applyUpdate(c, &u, data) {
		return
	}

	if err := d.DB.WithContext(c.Request.Context()).Create(&u).Error; err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, u)
}

func EditUpdate(c *gin.Context, d *internal.Deps) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	var data updateBody
	if err := c.ShouldBindJSON(&data); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var u model.Update
	if !find(c, d, &u, id, "Update") {
		return
	}

	if !applyUpdate(c, &u, data) {
		return
	}

	if err := d.DB.WithContext(c.Request.Context()).Save(&u).Error; err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, u)
}

func DeleteUpdate(c *gin.Context, d *internal.Deps) {
	remove(c, d, &model.Update{}, "Update")
}

func applyUpdate(c *gin.Context, u *model.Update, data updateBody) bool {
	if data.Title != nil {
		u.Title = strings.TrimSpace(*data.Title)
		if u.Title == "" || utf8.RuneCountInString(u.Title) > maxTitleLength {
			respond.Fail(c, http.StatusBadRequest, "Title must be between 1 and 120 characters")
			return false
		}
	}

	if data.Description != nil {
		u.Description = strings.TrimSpace(*data.Description)
		if u.Description == "" {
			respond.Fail(c, http.StatusBadRequest, "Description can't be empty")
			return false
		}
	}

	if data.Version != nil {
		u.Version = strings.TrimSpace(*data.Version)
	}

	return true
}

func find(c *gin.Context, d *internal.Deps, dst any, id uint, what string) bool {
	err := d.DB.WithContext(c.Request.Context()).First(dst, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Fail(c, http.StatusNotFound, what+" not found")
			return false
		}

		respond.Error(c, err)
		return false
	}

	return true
}

func remove(c *gin.Context, d *internal.Deps, m any, what string) {
	id, ok := respond.ID(c, "id")
	if !ok {
		return
	}

	res := d.DB.WithContext(c.Request.Context()).Delete(m, id)
	if res.Error != nil {
		respond.Error(c, res.Error)
		return
	}

	if res.RowsAffected == 0 {
		respond.Fail(c, http.StatusNotFound, what+" not found")
		return
	}

	c.Status(http.StatusNoContent)
}
