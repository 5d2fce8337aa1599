package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"elitehub/web/db"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CleanupResult struct {
	DemotedTiers         int   `json:"demoted_tiers"`
	DeletedNotifications int64 `json:"deleted_notifications"`
}

// Cleanup demotes expired listing tiers and purges read notifications
// older than the retention window.
func (h *Handler) Cleanup(ctx context.Context, now time.Time) (CleanupResult, error) {
	var res CleanupResult

	demoted, err := h.Directory.DemoteExpired(ctx, now)
	if err != nil {
		return res, fmt.Errorf("demote tiers: %w", err)
	}
	res.DemotedTiers = demoted

	del := h.DB.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, now.Add(-h.Retention)).
		Delete(&db.Notification{})
	if del.Error != nil {
		return res, fmt.Errorf("purge notifications: %w", del.Error)
	}
	res.DeletedNotifications = del.RowsAffected
	return res, nil
}

func (h *Handler) RunCleanup(c *gin.Context) {
	res, err := h.Cleanup(c.Request.Context(), time.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Log.WithFields(logrus.Fields{
		"demoted": res.DemotedTiers,
		"deleted": res.DeletedNotifications,
	}).Info("cleanup: finished")
	c.JSON(http.StatusOK, res)
}
