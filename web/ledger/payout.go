package ledger

import (
	"context"
	"fmt"

	"elitehub/web/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type BankDetails struct {
	BankCode      string `json:"bank_code" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required,numeric,len=10"`
	AccountName   string `json:"account_name"`
}

// RequestPayout debits amount from the user's referral balance and opens a
// pending payout request for it.
func (l *Ledger) RequestPayout(ctx context.Context, uid string, amount int64, bank BankDetails) (*db.PayoutRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	req := db.PayoutRequest{
		ID:            uuid.NewString(),
		UserUID:       uid,
		Amount:        amount,
		BankCode:      bank.BankCode,
		AccountNumber: bank.AccountNumber,
		AccountName:   bank.AccountName,
		Status:        db.PayoutPending,
	}
	err := l.transact(ctx, func(tx *gorm.DB, out *outbox) error {
		var user db.User
		if err := forUpdate(tx).Where("uid = ?", uid).First(&user).Error; err != nil {
			return notFound(err, "user", uid)
		}
		if user.ReferralBalance < amount {
			return fmt.Errorf("requested %s, available %s: %w",
				FormatNaira(amount), FormatNaira(user.ReferralBalance), ErrInsufficientBalance)
		}

		if err := tx.Model(&user).Update("referral_balance", user.ReferralBalance-amount).Error; err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
		if err := tx.Create(&req).Error; err != nil {
			return fmt.Errorf("create payout request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{"uid": uid, "request_id": req.ID, "amount": amount}).Info("ledger: payout requested")
	return &req, nil
}

// DecidePayout settles a pending payout request. Rejection refunds the
// requested amount to the user; approval marks the request paid. A request
// is decided at most once.
func (l *Ledger) DecidePayout(ctx context.Context, requestID string, decision Decision, reason, decider string) (*db.PayoutRequest, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, ErrInvalidDecision
	}

	var req db.PayoutRequest
	err := l.transact(ctx, func(tx *gorm.DB, out *outbox) error {
		if err := forUpdate(tx).Where("id = ?", requestID).First(&req).Error; err != nil {
			return notFound(err, "payout request", requestID)
		}
		if req.Status != db.PayoutPending {
			return fmt.Errorf("request %s is %s: %w", requestID, req.Status, ErrAlreadyDecided)
		}

		now := l.now()
		req.DecidedBy = decider
		req.DecidedAt = &now

		var title, body string
		switch decision {
		case DecisionReject:
			var user db.User
			if err := forUpdate(tx).Where("uid = ?", req.UserUID).First(&user).Error; err != nil {
				return notFound(err, "user", req.UserUID)
			}
			if err := tx.Model(&user).Update("referral_balance", user.ReferralBalance+req.Amount).Error; err != nil {
				return fmt.Errorf("refund balance: %w", err)
			}
			req.Status = db.PayoutRejected
			req.Reason = reason
			title = "Payout rejected"
			body = fmt.Sprintf("Your payout of %s was rejected and refunded to your referral balance.", FormatNaira(req.Amount))
			if reason != "" {
				body += " Reason: " + reason
			}
		case DecisionApprove:
			req.Status = db.PayoutPaid
			title = "Payout sent"
			body = fmt.Sprintf("Your payout of %s has been paid.", FormatNaira(req.Amount))
		}

		if err := tx.Save(&req).Error; err != nil {
			return fmt.Errorf("update payout request: %w", err)
		}
		return out.add(tx, req.UserUID, "payout_"+string(req.Status), title, body)
	})
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{"request_id": requestID, "decision": decision, "uid": req.UserUID}).Info("ledger: payout decided")
	return &req, nil
}

// Payouts lists payout requests, newest first. Empty filters match all.
func (l *Ledger) Payouts(ctx context.Context, uid string, status db.PayoutStatus) ([]db.PayoutRequest, error) {
	q := l.db.WithContext(ctx).Order("created_at desc")
	if uid != "" {
		q = q.Where("user_uid = ?", uid)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []db.PayoutRequest
	if err := q.Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}
