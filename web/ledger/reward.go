package ledger

import "fmt"

// RewardTier pays Reward kobo for each successful referral once the
// referrer has at least Min of them.
type RewardTier struct {
	Name   string `json:"name"`
	Min    int    `json:"min"`
	Reward int64  `json:"reward"`
}

// RewardTiers is ordered by ascending Min.
type RewardTiers []RewardTier

var DefaultRewardTiers = RewardTiers{
	{Name: "Bronze", Min: 1, Reward: 500_00},
	{Name: "Silver", Min: 5, Reward: 750_00},
	{Name: "Gold", Min: 10, Reward: 1_000_00},
}

// For returns the tier reached with count successful referrals.
func (t RewardTiers) For(count int) (RewardTier, bool) {
	var (
		found RewardTier
		ok    bool
	)
	for _, tier := range t {
		if count >= tier.Min {
			found, ok = tier, true
		}
	}
	return found, ok
}

// RewardFor is the amount credited for the referral that brings the
// successful count to count.
func (t RewardTiers) RewardFor(count int) int64 {
	tier, ok := t.For(count)
	if !ok {
		return 0
	}
	return tier.Reward
}

// FormatNaira renders kobo as a naira amount, e.g. ₦750.00.
func FormatNaira(kobo int64) string {
	sign := ""
	if kobo < 0 {
		sign, kobo = "-", -kobo
	}
	return fmt.Sprintf("%s₦%d.%02d", sign, kobo/100, kobo%100)
}
