package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"elitehub/payment/exchange"
	"elitehub/payment/gateway"
	"elitehub/web/chat"
	"elitehub/web/db"
	"elitehub/web/ledger"
	"elitehub/web/listing"
	"elitehub/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Gateway verifies payments and bank accounts.
type Gateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*gateway.Transaction, error)
	ResolveBank(ctx context.Context, accountNumber, bankCode string) (*gateway.Account, error)
}

// Converter quotes currency conversions.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

type Deps struct {
	DB        *gorm.DB
	Log       *logrus.Logger
	Ledger    *ledger.Ledger
	Directory *listing.Directory
	Chat      *chat.Service
	Auth      *middleware.Auth
	Gateway   Gateway
	Exchange  Converter

	ShareBaseURL string
	// Read notifications older than this are purged by the cleanup job.
	Retention time.Duration
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Retention <= 0 {
		d.Retention = 30 * 24 * time.Hour
	}
	return &Handler{Deps: d}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, listing.ErrNotFound),
		errors.Is(err, chat.ErrNotFound),
		errors.Is(err, gateway.ErrUnknownReference):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyApproved),
		errors.Is(err, ledger.ErrApplicationClosed),
		errors.Is(err, ledger.ErrAlreadyDecided),
		errors.Is(err, ledger.ErrPendingApplication),
		errors.Is(err, ledger.ErrAlreadyProvider),
		errors.Is(err, listing.ErrReferenceUsed):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, listing.ErrUnderpaid):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrInvalidPayload),
		errors.Is(err, ledger.ErrUnknownType),
		errors.Is(err, ledger.ErrTypeMismatch),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidDecision),
		errors.Is(err, listing.ErrInvalidTier),
		errors.Is(err, listing.ErrWrongCurrency),
		errors.Is(err, chat.ErrSelfChat),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrTooLong),
		errors.Is(err, exchange.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, listing.ErrNotOwner),
		errors.Is(err, chat.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, gateway.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, gateway.ErrRejected):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error body. Unexpected errors are logged and
// hidden from the client.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.Log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func mustUser(c *gin.Context) db.User {
	user, _ := middleware.CurrentUser(c)
	return user
}

func providerType(c *gin.Context) (db.ProviderType, bool) {
	t := db.ProviderType(c.Param("type"))
	if !t.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider type"})
		return "", false
	}
	return t, true
}
