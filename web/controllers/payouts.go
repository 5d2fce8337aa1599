package controllers

import (
	"errors"
	"net/http"

	"elitehub/payment/gateway"
	"elitehub/web/db"
	"elitehub/web/ledger"
	"elitehub/web/metrics"

	"github.com/gin-gonic/gin"
)

func (h *Handler) RequestPayout(c *gin.Context) {
	var body struct {
		Amount int64 `json:"amount" binding:"required,gt=0"`
		ledger.BankDetails
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()

	// resolve the holder name when a gateway is configured
	if h.Gateway != nil {
		acct, err := h.Gateway.ResolveBank(ctx, body.AccountNumber, body.BankCode)
		switch {
		case err == nil:
			body.AccountName = acct.AccountName
		case errors.Is(err, gateway.ErrNotConfigured):
		case errors.Is(err, gateway.ErrRejected), errors.Is(err, gateway.ErrUnknownReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not resolve bank account"})
			return
		default:
			h.Log.WithError(err).Warn("payout: bank resolution failed")
		}
	}

	req, err := h.Ledger.RequestPayout(ctx, mustUser(c).UID, body.Amount, body.BankDetails)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payout": req})
}

func (h *Handler) MyPayouts(c *gin.Context) {
	reqs, err := h.Ledger.Payouts(c.Request.Context(), mustUser(c).UID, db.PayoutStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": reqs})
}

func (h *Handler) AdminPayouts(c *gin.Context) {
	status := db.PayoutStatus(c.DefaultQuery("status", string(db.PayoutPending)))
	if status == "all" {
		status = ""
	}
	reqs, err := h.Ledger.Payouts(c.Request.Context(), "", status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": reqs})
}

func (h *Handler) DecidePayout(c *gin.Context) {
	var body struct {
		Decision ledger.Decision `json:"decision" binding:"required,oneof=approve reject"`
		Reason   string          `json:"reason" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}

	req, err := h.Ledger.DecidePayout(c.Request.Context(), c.Param("id"), body.Decision, body.Reason, mustUser(c).UID)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.PayoutDecided(string(req.Status))
	c.JSON(http.StatusOK, gin.H{"payout": req})
}
