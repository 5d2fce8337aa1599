package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"elitehub/web/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Approval is the outcome of ApproveApplication.
type Approval struct {
	Application db.Application
	Provider    db.ProviderBase
	Profile     any
	// Referral is the entry moved to successful, nil when the applicant
	// had no pending referral.
	Referral *db.ReferralEntry
}

// SubmitApplication validates payload for appType and stores a pending
// application. The stored payload is the normalized profile.
func (l *Ledger) SubmitApplication(ctx context.Context, uid string, appType db.ProviderType, payload json.RawMessage) (*db.Application, error) {
	profile, err := DecodeProfile(appType, payload)
	if err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	app := db.Application{
		ID:      uuid.NewString(),
		UID:     uid,
		AppType: appType,
		Status:  db.ApplicationPending,
		Payload: normalized,
	}
	err = l.transact(ctx, func(tx *gorm.DB, out *outbox) error {
		var user db.User
		if err := forUpdate(tx).Where("uid = ?", uid).First(&user).Error; err != nil {
			return notFound(err, "user", uid)
		}
		var pending int64
		if err := tx.Model(&db.Application{}).
			Where("uid = ? AND app_type = ? AND status = ?", uid, appType, db.ApplicationPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrPendingApplication
		}
		if err := refuseExistingProvider(tx, appType, uid); err != nil {
			return err
		}
		return tx.Create(&app).Error
	})
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{"uid": uid, "app_id": app.ID, "app_type": appType}).Info("ledger: application submitted")
	return &app, nil
}

// refuseExistingProvider fails when uid already holds a provider record of
// type t. An account is one provider per type.
func refuseExistingProvider(tx *gorm.DB, t db.ProviderType, uid string) error {
	var n int64
	if err := tx.Table(t.Table()).Where("uid = ?", uid).Count(&n).Error; err != nil {
		return fmt.Errorf("count %s records: %w", t, err)
	}
	if n > 0 {
		return fmt.Errorf("%s %s: %w", t, uid, ErrAlreadyProvider)
	}
	return nil
}

// lockApplication loads a pending application of appType for update.
func lockApplication(tx *gorm.DB, appID string, appType db.ProviderType) (db.Application, error) {
	var app db.Application
	if err := forUpdate(tx).Where("id = ?", appID).First(&app).Error; err != nil {
		return app, notFound(err, "application", appID)
	}
	if app.AppType != appType {
		return app, fmt.Errorf("application %s is %q, not %q: %w", appID, app.AppType, appType, ErrTypeMismatch)
	}
	switch app.Status {
	case db.ApplicationApproved:
		return app, ErrAlreadyApproved
	case db.ApplicationRejected:
		return app, ErrApplicationClosed
	}
	return app, nil
}

// ApproveApplication creates the provider record for a pending application,
// marks it approved and, when the applicant was referred, moves their entry
// on the referrer from pending to successful and credits the reward. All of
// it commits together or not at all.
func (l *Ledger) ApproveApplication(ctx context.Context, appID string, appType db.ProviderType, reviewer string) (*Approval, error) {
	if !appType.Valid() {
		return nil, fmt.Errorf("%q: %w", appType, ErrUnknownType)
	}

	var result Approval
	err := l.transact(ctx, func(tx *gorm.DB, out *outbox) error {
		result = Approval{}

		app, err := lockApplication(tx, appID, appType)
		if err != nil {
			return err
		}
		if err := refuseExistingProvider(tx, appType, app.UID); err != nil {
			return err
		}

		profile, err := DecodeProfile(appType, app.Payload)
		if err != nil {
			return err
		}
		now := l.now()
		base := db.ProviderBase{
			ID:            uuid.NewString(),
			UID:           app.UID,
			ApplicationID: app.ID,
			ApprovedAt:    now,
		}
		record, err := newProvider(base, profile)
		if err != nil {
			return err
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("create %s record: %w", appType, err)
		}

		app.Status = db.ApplicationApproved
		app.ReviewedBy = reviewer
		app.ReviewedAt = &now
		if err := tx.Save(&app).Error; err != nil {
			return fmt.Errorf("update application: %w", err)
		}

		moved, err := l.completeReferral(tx, out, app.UID)
		if err != nil {
			return err
		}

		if err := out.add(tx, app.UID, "application_approved",
			"Application approved",
			fmt.Sprintf("Your %s application has been approved.", appType)); err != nil {
			return err
		}

		result = Approval{
			Application: app,
			Provider:    base,
			Profile:     profile,
			Referral:    moved,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"app_id": appID, "app_type": appType, "uid": result.Application.UID}
	if result.Referral != nil {
		fields["referrer"] = result.Referral.ReferrerUID
		fields["reward"] = result.Referral.RewardAmount
	}
	l.log.WithFields(fields).Info("ledger: application approved")
	return &result, nil
}

// completeReferral moves uid's pending entry to successful on their
// referrer. It returns nil when there is nothing to move.
func (l *Ledger) completeReferral(tx *gorm.DB, out *outbox, uid string) (*db.ReferralEntry, error) {
	var applicant db.User
	if err := forUpdate(tx).Where("uid = ?", uid).First(&applicant).Error; err != nil {
		return nil, notFound(err, "user", uid)
	}
	if applicant.ReferredBy == "" {
		return nil, nil
	}

	var referrer db.User
	if err := forUpdate(tx).Where("uid = ?", applicant.ReferredBy).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.log.WithField("uid", uid).Warn("ledger: referrer no longer exists")
			return nil, nil
		}
		return nil, fmt.Errorf("load referrer: %w", err)
	}

	var entry db.ReferralEntry
	err := forUpdate(tx).
		Where("referrer_uid = ? AND uid = ? AND status = ?", referrer.UID, uid, db.ReferralPending).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load referral entry: %w", err)
	}

	var successful int64
	if err := tx.Model(&db.ReferralEntry{}).
		Where("referrer_uid = ? AND status = ?", referrer.UID, db.ReferralSuccessful).
		Count(&successful).Error; err != nil {
		return nil, fmt.Errorf("count referrals: %w", err)
	}
	reward := l.tiers.RewardFor(int(successful) + 1)

	now := l.now()
	entry.Status = db.ReferralSuccessful
	entry.RewardAmount = reward
	entry.CompletedAt = &now
	if err := tx.Save(&entry).Error; err != nil {
		return nil, fmt.Errorf("update referral entry: %w", err)
	}

	referrer.ReferralBalance += reward
	if err := tx.Model(&referrer).Update("referral_balance", referrer.ReferralBalance).Error; err != nil {
		return nil, fmt.Errorf("credit referrer: %w", err)
	}

	if err := out.add(tx, referrer.UID, "referral_successful",
		"Referral reward earned",
		fmt.Sprintf("%s was approved. %s has been added to your referral balance.", entry.FullName, FormatNaira(reward))); err != nil {
		return nil, err
	}
	return &entry, nil
}

// RejectApplication closes a pending application. Any referral entry for
// the applicant stays pending.
func (l *Ledger) RejectApplication(ctx context.Context, appID string, appType db.ProviderType, reason, reviewer string) (*db.Application, error) {
	if !appType.Valid() {
		return nil, fmt.Errorf("%q: %w", appType, ErrUnknownType)
	}

	var app db.Application
	err := l.transact(ctx, func(tx *gorm.DB, out *outbox) error {
		var err error
		app, err = lockApplication(tx, appID, appType)
		if err != nil {
			return err
		}

		now := l.now()
		app.Status = db.ApplicationRejected
		app.Reason = reason
		app.ReviewedBy = reviewer
		app.ReviewedAt = &now
		if err := tx.Save(&app).Error; err != nil {
			return fmt.Errorf("update application: %w", err)
		}

		body := fmt.Sprintf("Your %s application was not approved.", appType)
		if reason != "" {
			body += " Reason: " + reason
		}
		return out.add(tx, app.UID, "application_rejected", "Application rejected", body)
	})
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{"app_id": appID, "app_type": appType, "uid": app.UID}).Info("ledger: application rejected")
	return &app, nil
}

// Applications lists applications, newest first. Empty filters match all.
func (l *Ledger) Applications(ctx context.Context, uid string, status db.ApplicationStatus) ([]db.Application, error) {
	q := l.db.WithContext(ctx).Order("created_at desc")
	if uid != "" {
		q = q.Where("uid = ?", uid)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var apps []db.Application
	if err := q.Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}
