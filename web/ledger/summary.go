package ledger

import (
	"context"

	"elitehub/web/db"
)

type Summary struct {
	ReferralCode    string             `json:"referral_code"`
	ReferralBalance int64              `json:"referral_balance"`
	Pending         []db.ReferralEntry `json:"pending_referrals"`
	Successful      []db.ReferralEntry `json:"successful_referrals"`
	Tier            *RewardTier        `json:"tier,omitempty"`
	NextReward      int64              `json:"next_reward"`
}

// Summary reports uid's referral code, balance and both referral lists.
func (l *Ledger) Summary(ctx context.Context, uid string) (*Summary, error) {
	conn := l.db.WithContext(ctx)

	var user db.User
	if err := conn.Where("uid = ?", uid).First(&user).Error; err != nil {
		return nil, notFound(err, "user", uid)
	}

	var entries []db.ReferralEntry
	if err := conn.Where("referrer_uid = ?", uid).Order("created_at asc").Find(&entries).Error; err != nil {
		return nil, err
	}

	s := Summary{
		ReferralCode:    user.ReferralCode,
		ReferralBalance: user.ReferralBalance,
		Pending:         []db.ReferralEntry{},
		Successful:      []db.ReferralEntry{},
	}
	for _, e := range entries {
		switch e.Status {
		case db.ReferralPending:
			s.Pending = append(s.Pending, e)
		case db.ReferralSuccessful:
			s.Successful = append(s.Successful, e)
		}
	}
	if tier, ok := l.tiers.For(len(s.Successful)); ok {
		s.Tier = &tier
	}
	s.NextReward = l.tiers.RewardFor(len(s.Successful) + 1)
	return &s, nil
}
