// Package listing serves the public provider directories. Approved
// providers are held in memory ordered by promotion tier and rebuilt from
// the database on startup.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"elitehub/web/db"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound      = errors.New("provider not found")
	ErrNotOwner      = errors.New("provider belongs to another user")
	ErrInvalidTier   = errors.New("unknown tier")
	ErrReferenceUsed = errors.New("payment reference already used")
	ErrUnderpaid     = errors.New("payment does not cover the tier price")
	ErrWrongCurrency = errors.New("tier payments must be in naira")
)

// TierPrices are in kobo for one TierPeriod.
var TierPrices = map[db.Tier]int64{
	db.TierVIP:  5_000_00,
	db.TierVVIP: 10_000_00,
}

const TierPeriod = 30 * 24 * time.Hour

// TierCurrency is the only currency TierPrices are quoted in.
const TierCurrency = "NGN"

type Directory struct {
	db    *gorm.DB
	log   *logrus.Logger
	index *Index
	now   func() time.Time
}

func New(conn *gorm.DB, log *logrus.Logger) *Directory {
	return &Directory{
		db:    conn,
		log:   log,
		index: NewIndex(),
		now:   time.Now,
	}
}

// Restore rebuilds the index from every provider table.
func (d *Directory) Restore(ctx context.Context) error {
	var all []Entry
	for _, t := range db.ProviderTypes {
		entries, err := loadEntries(d.db.WithContext(ctx), t)
		if err != nil {
			return fmt.Errorf("restore %s: %w", t, err)
		}
		all = append(all, entries...)
	}
	d.index.Reset(all)
	d.log.WithField("providers", len(all)).Info("listing: index restored")
	return nil
}

// Add indexes a freshly approved provider.
func (d *Directory) Add(t db.ProviderType, base db.ProviderBase, profile any) {
	d.index.Put(entryOf(t, base, profile))
}

func (d *Directory) List(t db.ProviderType, offset, limit int) []Entry {
	return d.index.List(t, offset, limit)
}

func (d *Directory) Len(t db.ProviderType) int {
	return d.index.Len(t)
}

// AssignTier sets the tier of provider id for period starting now. The
// none tier clears any promotion.
func (d *Directory) AssignTier(ctx context.Context, t db.ProviderType, id string, tier db.Tier, period time.Duration) (*Entry, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%q: %w", t, ErrNotFound)
	}
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base, err := lockProvider(tx, t, id)
		if err != nil {
			return err
		}
		var expires *time.Time
		if tier != db.TierNone {
			until := d.now().Add(period)
			expires = &until
		}
		return setTier(tx, t, base, tier, expires, fmt.Sprintf("An administrator set your listing tier to %s.", tierName(tier)))
	})
	if err != nil {
		return nil, err
	}
	return d.refresh(ctx, t, id)
}

// PurchaseTier promotes the caller's own provider after a verified gateway
// payment. The payment reference is recorded in the same transaction so it
// can be spent only once. Buying the tier already held extends it.
func (d *Directory) PurchaseTier(ctx context.Context, uid string, t db.ProviderType, id string, tier db.Tier, payment db.GatewayPayment) (*Entry, error) {
	price, ok := TierPrices[tier]
	if !ok {
		return nil, ErrInvalidTier
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%q: %w", t, ErrNotFound)
	}
	if !strings.EqualFold(payment.Currency, TierCurrency) {
		return nil, fmt.Errorf("paid in %q: %w", payment.Currency, ErrWrongCurrency)
	}
	if payment.Amount < price {
		return nil, fmt.Errorf("paid %d, price %d: %w", payment.Amount, price, ErrUnderpaid)
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base, err := lockProvider(tx, t, id)
		if err != nil {
			return err
		}
		if base.UID != uid {
			return ErrNotOwner
		}

		var used int64
		if err := tx.Model(&db.GatewayPayment{}).Where("reference = ?", payment.Reference).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return ErrReferenceUsed
		}
		payment.UID = uid
		payment.Purpose = "tier:" + string(tier)
		payment.VerifiedAt = d.now()
		if err := tx.Create(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrReferenceUsed
			}
			return fmt.Errorf("record payment: %w", err)
		}

		start := d.now()
		if base.Tier == tier && base.TierExpiresAt != nil && base.TierExpiresAt.After(start) {
			start = *base.TierExpiresAt
		}
		until := start.Add(TierPeriod)
		return setTier(tx, t, base, tier, &until, fmt.Sprintf("Your listing is now %s until %s.", tier, until.Format("2 Jan 2006")))
	})
	if err != nil {
		return nil, err
	}

	d.log.WithFields(logrus.Fields{"uid": uid, "provider": id, "tier": tier, "reference": payment.Reference}).Info("listing: tier purchased")
	return d.refresh(ctx, t, id)
}

// DemoteExpired clears every tier whose expiry is before now and returns
// how many providers were demoted.
func (d *Directory) DemoteExpired(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for _, t := range db.ProviderTypes {
		var expired []db.ProviderBase
		if err := d.db.WithContext(ctx).Table(t.Table()).
			Where("tier <> ? AND tier_expires_at IS NOT NULL AND tier_expires_at < ?", db.TierNone, now).
			Find(&expired).Error; err != nil {
			return total, fmt.Errorf("find expired %s: %w", t, err)
		}
		for _, candidate := range expired {
			demoted := false
			err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				base, err := lockProvider(tx, t, candidate.ID)
				if err != nil {
					return err
				}
				// renewed since the scan
				if base.Tier == db.TierNone || base.TierExpiresAt == nil || !base.TierExpiresAt.Before(now) {
					return nil
				}
				demoted = true
				return setTier(tx, t, base, db.TierNone, nil, fmt.Sprintf("Your %s listing promotion has expired.", base.Tier))
			})
			if err != nil {
				return total, err
			}
			if !demoted {
				continue
			}
			if _, err := d.refresh(ctx, t, candidate.ID); err != nil {
				return total, err
			}
			total++
		}
	}
	if total > 0 {
		d.log.WithField("demoted", total).Info("listing: expired tiers cleared")
	}
	return total, nil
}

func (d *Directory) refresh(ctx context.Context, t db.ProviderType, id string) (*Entry, error) {
	entries, err := loadEntries(d.db.WithContext(ctx).Where("id = ?", id), t)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		d.index.Remove(id)
		return nil, ErrNotFound
	}
	d.index.Put(entries[0])
	return &entries[0], nil
}

func lockProvider(tx *gorm.DB, t db.ProviderType, id string) (db.ProviderBase, error) {
	var base db.ProviderBase
	err := tx.Table(t.Table()).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).Take(&base).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return base, ErrNotFound
	}
	return base, err
}

func setTier(tx *gorm.DB, t db.ProviderType, base db.ProviderBase, tier db.Tier, expires *time.Time, body string) error {
	if err := tx.Table(t.Table()).Where("id = ?", base.ID).Updates(map[string]any{
		"tier":            tier,
		"tier_expires_at": expires,
	}).Error; err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	return tx.Create(&db.Notification{
		UserUID: base.UID,
		Kind:    "tier_changed",
		Title:   "Listing tier updated",
		Body:    body,
	}).Error
}

func tierName(t db.Tier) string {
	if t == db.TierNone {
		return "standard"
	}
	return string(t)
}

func entryOf(t db.ProviderType, base db.ProviderBase, profile any) Entry {
	return Entry{
		ID:            base.ID,
		UID:           base.UID,
		Type:          t,
		Tier:          base.Tier,
		TierExpiresAt: base.TierExpiresAt,
		ApprovedAt:    base.ApprovedAt,
		Profile:       profile,
	}
}

// loadEntries reads the rows of t matched by q.
func loadEntries(q *gorm.DB, t db.ProviderType) ([]Entry, error) {
	var out []Entry
	switch t {
	case db.ProviderVendor:
		var rows []db.Vendor
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, entryOf(t, r.ProviderBase, r.VendorProfile))
		}
	case db.ProviderLawyer:
		var rows []db.Lawyer
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, entryOf(t, r.ProviderBase, r.LawyerProfile))
		}
	case db.ProviderLogistics:
		var rows []db.LogisticsCompany
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, entryOf(t, r.ProviderBase, r.LogisticsProfile))
		}
	case db.ProviderService:
		var rows []db.ServiceProvider
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, entryOf(t, r.ProviderBase, r.ServiceProfile))
		}
	case db.ProviderExchange:
		var rows []db.CurrencyExchangeAgent
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, entryOf(t, r.ProviderBase, r.ExchangeProfile))
		}
	default:
		return nil, ErrNotFound
	}
	return out, nil
}
