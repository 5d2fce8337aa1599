package ledger

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnknownType         = errors.New("unknown provider type")
	ErrTypeMismatch        = errors.New("application type mismatch")
	ErrInvalidPayload      = errors.New("invalid application payload")
	ErrPendingApplication  = errors.New("an application of this type is already pending")
	ErrAlreadyApproved     = errors.New("application already approved")
	ErrApplicationClosed   = errors.New("application already rejected")
	ErrAlreadyProvider     = errors.New("account is already a provider of this type")
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrSelfReferral        = errors.New("users cannot refer themselves")
	ErrAlreadyReferred     = errors.New("user already has a referrer")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient referral balance")
	ErrInvalidDecision     = errors.New("decision must be approve or reject")
	ErrAlreadyDecided      = errors.New("payout request already decided")
)
