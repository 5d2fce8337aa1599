package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"elitehub/web/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func (h *Handler) ExchangeQuote(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}
	from := strings.ToUpper(c.DefaultQuery("from", "USD"))
	to := strings.ToUpper(c.DefaultQuery("to", "NGN"))

	result, err := h.Exchange.Convert(c.Request.Context(), amount, from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"amount": amount,
		"from":   from,
		"to":     to,
		"result": result,
	})
}

// VerifyPayment checks a gateway reference and records it against the
// caller. A reference is accepted once.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var body struct {
		Reference string `json:"reference" binding:"required"`
		Purpose   string `json:"purpose" binding:"max=64"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()

	txn, err := h.Gateway.VerifyTransaction(ctx, body.Reference)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !txn.Succeeded() {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Payment has not succeeded", "status": txn.Status})
		return
	}

	payment := db.GatewayPayment{
		Reference:  body.Reference,
		UID:        mustUser(c).UID,
		Purpose:    body.Purpose,
		Amount:     txn.Amount,
		Currency:   txn.Currency,
		Status:     txn.Status,
		VerifiedAt: time.Now(),
	}
	var used bool
	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.GatewayPayment{}).Where("reference = ?", body.Reference).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			used = true
			return nil
		}
		err := tx.Create(&payment).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			used = true
			return nil
		}
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if used {
		c.JSON(http.StatusConflict, gin.H{"error": "Payment reference already used"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}
