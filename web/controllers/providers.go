package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"elitehub/web/db"
	"elitehub/web/listing"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage = 20
	maxPage     = 100
)

// ListProviders pages through an approved provider directory, promoted
// tiers first.
func (h *Handler) ListProviders(c *gin.Context) {
	t, ok := providerType(c)
	if !ok {
		return
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPage)))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPage {
		limit = defaultPage
	}

	c.JSON(http.StatusOK, gin.H{
		"providers": h.Directory.List(t, offset, limit),
		"total":     h.Directory.Len(t),
		"offset":    offset,
		"limit":     limit,
	})
}

func (h *Handler) AssignTier(c *gin.Context) {
	t, ok := providerType(c)
	if !ok {
		return
	}
	var body struct {
		Tier db.Tier `json:"tier"`
		Days int     `json:"days" binding:"gte=0,lte=366"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}
	period := listing.TierPeriod
	if body.Days > 0 {
		period = time.Duration(body.Days) * 24 * time.Hour
	}

	entry, err := h.Directory.AssignTier(c.Request.Context(), t, c.Param("id"), db.Tier(strings.ToUpper(string(body.Tier))), period)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": entry})
}

// PurchaseTier promotes the caller's listing once the gateway confirms
// the payment behind reference.
func (h *Handler) PurchaseTier(c *gin.Context) {
	t, ok := providerType(c)
	if !ok {
		return
	}
	var body struct {
		Tier      db.Tier `json:"tier" binding:"required"`
		Reference string  `json:"reference" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}
	tier := db.Tier(strings.ToUpper(string(body.Tier)))
	if _, ok := listing.TierPrices[tier]; !ok {
		h.fail(c, listing.ErrInvalidTier)
		return
	}
	ctx := c.Request.Context()

	txn, err := h.Gateway.VerifyTransaction(ctx, body.Reference)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !txn.Succeeded() {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Payment has not succeeded"})
		return
	}

	entry, err := h.Directory.PurchaseTier(ctx, mustUser(c).UID, t, c.Param("id"), tier, db.GatewayPayment{
		Reference: body.Reference,
		Amount:    txn.Amount,
		Currency:  txn.Currency,
		Status:    txn.Status,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": entry})
}
