// Package ledger owns the referral state shared between referrers and the
// users they bring in: pending and successful referral lists, reward
// balances and payout requests. Every mutation runs inside one database
// transaction with the touched rows locked.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"elitehub/web/db"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxTxAttempts = 3

// Notifier receives notifications after the transaction that wrote them
// has committed.
type Notifier interface {
	Notify(ctx context.Context, n db.Notification)
}

type Ledger struct {
	db       *gorm.DB
	log      *logrus.Logger
	tiers    RewardTiers
	notifier Notifier
	now      func() time.Time
}

func New(conn *gorm.DB, log *logrus.Logger) *Ledger {
	return &Ledger{
		db:    conn,
		log:   log,
		tiers: DefaultRewardTiers,
		now:   time.Now,
	}
}

// WithNotifier sets the post-commit notification sink.
func (l *Ledger) WithNotifier(n Notifier) *Ledger {
	l.notifier = n
	return l
}

// WithRewardTiers replaces the reward table.
func (l *Ledger) WithRewardTiers(t RewardTiers) *Ledger {
	l.tiers = t
	return l
}

func (l *Ledger) RewardTiers() RewardTiers {
	return l.tiers
}

// outbox collects notifications written during one transaction attempt.
type outbox struct {
	items []db.Notification
}

func (o *outbox) add(tx *gorm.DB, uid, kind, title, body string) error {
	n := db.Notification{
		UserUID: uid,
		Kind:    kind,
		Title:   title,
		Body:    body,
	}
	if err := tx.Create(&n).Error; err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	o.items = append(o.items, n)
	return nil
}

// transact runs fn in a transaction, retrying lock conflicts. Notifications
// queued by the successful attempt are dispatched after commit.
func (l *Ledger) transact(ctx context.Context, fn func(tx *gorm.DB, out *outbox) error) error {
	var (
		out *outbox
		err error
	)
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		out = &outbox{}
		err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx, out)
		})
		if err == nil || !retryable(err) || attempt == maxTxAttempts {
			break
		}
		l.log.WithError(err).WithField("attempt", attempt).Warn("ledger: retrying transaction")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		}
	}
	if err != nil {
		return err
	}
	if l.notifier != nil {
		for _, n := range out.items {
			l.notifier.Notify(ctx, n)
		}
	}
	return nil
}

// retryable reports deadlocks and lock wait timeouts.
func retryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return strings.Contains(err.Error(), "database is locked")
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}
