package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"elitehub/web/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const notificationPage = 50

func (h *Handler) Notifications(c *gin.Context) {
	q := h.DB.WithContext(c.Request.Context()).
		Where("user_uid = ?", mustUser(c).UID).
		Order("created_at desc").
		Order("id desc").
		Limit(notificationPage)
	if c.Query("unread") == "true" {
		q = q.Where("is_read = ?", false)
	}

	notes := []db.Notification{}
	if err := q.Find(&notes).Error; err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notes})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return
	}

	conn := h.DB.WithContext(c.Request.Context())
	var note db.Notification
	if err := conn.Where("id = ? AND user_uid = ?", id, mustUser(c).UID).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.fail(c, err)
		return
	}
	// marking an already read notification is a no-op
	if err := conn.Model(&note).Update("is_read", true).Error; err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
