package controllers

import (
	"encoding/json"
	"net/http"

	"elitehub/web/db"
	"elitehub/web/metrics"

	"github.com/gin-gonic/gin"
)

func (h *Handler) SubmitApplication(c *gin.Context) {
	var body struct {
		Type    db.ProviderType `json:"type" binding:"required"`
		Payload json.RawMessage `json:"payload" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}

	app, err := h.Ledger.SubmitApplication(c.Request.Context(), mustUser(c).UID, body.Type, body.Payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"application": app})
}

func (h *Handler) MyApplications(c *gin.Context) {
	apps, err := h.Ledger.Applications(c.Request.Context(), mustUser(c).UID, db.ApplicationStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *Handler) AdminApplications(c *gin.Context) {
	status := db.ApplicationStatus(c.DefaultQuery("status", string(db.ApplicationPending)))
	if status == "all" {
		status = ""
	}
	apps, err := h.Ledger.Applications(c.Request.Context(), "", status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// ApproveApplication approves the application, lists the new provider and
// pays out any referral reward that the approval completes.
func (h *Handler) ApproveApplication(c *gin.Context) {
	t, ok := providerType(c)
	if !ok {
		return
	}
	admin := mustUser(c)

	approval, err := h.Ledger.ApproveApplication(c.Request.Context(), c.Param("id"), t, admin.UID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Directory.Add(t, approval.Provider, approval.Profile)

	metrics.ReferralEvent("approved")
	if approval.Referral != nil {
		metrics.ReferralEvent("completed")
		metrics.RewardCredited(approval.Referral.RewardAmount)
	}
	c.JSON(http.StatusOK, gin.H{
		"application": approval.Application,
		"provider":    approval.Provider,
		"referral":    approval.Referral,
	})
}

func (h *Handler) RejectApplication(c *gin.Context) {
	t, ok := providerType(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason" binding:"max=500"`
	}
	// the reason is optional, so an empty body is fine
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
			return
		}
	}

	app, err := h.Ledger.RejectApplication(c.Request.Context(), c.Param("id"), t, body.Reason, mustUser(c).UID)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.ReferralEvent("rejected")
	c.JSON(http.StatusOK, gin.H{"application": app})
}
