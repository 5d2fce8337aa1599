package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"elitehub/web/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewReferralCode returns an 8 character upper-case share code.
func NewReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
}

// NormalizeCode trims and upper-cases a code typed by a user.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RecordSignupReferral links a freshly created user to the owner of code
// and adds them to that owner's pending list. Problems are logged and
// reported as false; they never fail the signup itself.
func (l *Ledger) RecordSignupReferral(ctx context.Context, newUID, newName, code string) bool {
	code = NormalizeCode(code)
	if code == "" {
		return false
	}
	entry := l.log.WithFields(logrus.Fields{"uid": newUID, "referral_code": code})

	err := l.transact(ctx, func(tx *gorm.DB, out *outbox) error {
		var referrer db.User
		if err := forUpdate(tx).Where("referral_code = ?", code).First(&referrer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidReferralCode
			}
			return fmt.Errorf("load referrer: %w", err)
		}
		if referrer.UID == newUID {
			return ErrSelfReferral
		}

		var user db.User
		if err := forUpdate(tx).Where("uid = ?", newUID).First(&user).Error; err != nil {
			return notFound(err, "user", newUID)
		}
		if user.ReferredBy != "" {
			return ErrAlreadyReferred
		}

		ref := db.ReferralEntry{
			ReferrerUID: referrer.UID,
			UID:         newUID,
			FullName:    newName,
			Status:      db.ReferralPending,
		}
		if err := tx.Create(&ref).Error; err != nil {
			return fmt.Errorf("create referral entry: %w", err)
		}
		if err := tx.Model(&user).Update("referred_by", referrer.UID).Error; err != nil {
			return fmt.Errorf("set referred_by: %w", err)
		}

		return out.add(tx, referrer.UID, "referral_pending",
			"New referral",
			fmt.Sprintf("%s signed up with your referral code. You will be rewarded once their application is approved.", newName))
	})
	if err != nil {
		entry.WithError(err).Warn("ledger: referral not applied")
		return false
	}

	entry.Info("ledger: referral recorded")
	return true
}
