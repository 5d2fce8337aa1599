package controllers

import (
	"net/http"
	"strconv"

	"elitehub/payment/qrcode"

	"github.com/gin-gonic/gin"
)

// Referrals returns the caller's code, share link, balance and both
// referral lists.
func (h *Handler) Referrals(c *gin.Context) {
	user := mustUser(c)
	summary, err := h.Ledger.Summary(c.Request.Context(), user.UID)
	if err != nil {
		h.fail(c, err)
		return
	}
	link, err := qrcode.ShareLink(h.ShareBaseURL, summary.ReferralCode)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary":    summary,
		"share_link": link,
		"tiers":      h.Ledger.RewardTiers(),
	})
}

func (h *Handler) ReferralQRCode(c *gin.Context) {
	user := mustUser(c)
	size := qrcode.DefaultSize
	if s := c.Query("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 1024 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 64 and 1024"})
			return
		}
		size = n
	}

	png, err := qrcode.ReferralPNG(h.ShareBaseURL, user.ReferralCode, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
