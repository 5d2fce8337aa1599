package db

import (
	"encoding/json"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	UID             string    `gorm:"primaryKey;size:36" json:"uid"`
	FullName        string    `gorm:"size:120;not null" json:"full_name"`
	Email           string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password        string    `gorm:"not null" json:"-"`
	Role            string    `gorm:"size:16;not null;default:user" json:"role"`
	ReferralCode    string    `gorm:"size:16;uniqueIndex;not null" json:"referral_code"`
	ReferralBalance int64     `gorm:"not null;default:0" json:"referral_balance"` // kobo
	ReferredBy      string    `gorm:"size:36;index" json:"referred_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ReferralStatus string

const (
	ReferralPending    ReferralStatus = "pending"
	ReferralSuccessful ReferralStatus = "successful"
)

// ReferralEntry is one element of a referrer's pending or successful list.
// The unique (referrer_uid, uid) pair and the single status column keep an
// entry in exactly one list.
type ReferralEntry struct {
	ID           uint           `gorm:"primaryKey" json:"-"`
	ReferrerUID  string         `gorm:"size:36;not null;uniqueIndex:idx_referral_pair;index" json:"-"`
	UID          string         `gorm:"size:36;not null;uniqueIndex:idx_referral_pair" json:"uid"`
	FullName     string         `gorm:"size:120" json:"full_name"`
	Status       ReferralStatus `gorm:"size:16;not null;index" json:"status"`
	RewardAmount int64          `gorm:"not null;default:0" json:"reward_amount,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

type ProviderType string

const (
	ProviderVendor    ProviderType = "vendor"
	ProviderLawyer    ProviderType = "lawyer"
	ProviderLogistics ProviderType = "logistics"
	ProviderService   ProviderType = "service"
	ProviderExchange  ProviderType = "exchange"
)

var ProviderTypes = []ProviderType{
	ProviderVendor,
	ProviderLawyer,
	ProviderLogistics,
	ProviderService,
	ProviderExchange,
}

func (t ProviderType) Valid() bool {
	for _, pt := range ProviderTypes {
		if t == pt {
			return true
		}
	}
	return false
}

// Table is the name of the table holding approved providers of this type.
func (t ProviderType) Table() string {
	switch t {
	case ProviderVendor:
		return "vendors"
	case ProviderLawyer:
		return "lawyers"
	case ProviderLogistics:
		return "logistics_companies"
	case ProviderService:
		return "service_providers"
	case ProviderExchange:
		return "currency_exchange_agents"
	}
	return ""
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

type Application struct {
	ID         string            `gorm:"primaryKey;size:36" json:"id"`
	UID        string            `gorm:"size:36;not null;index" json:"uid"`
	AppType    ProviderType      `gorm:"size:16;not null;index" json:"app_type"`
	Status     ApplicationStatus `gorm:"size:16;not null;index;default:pending" json:"status"`
	Payload    json.RawMessage   `gorm:"type:text;serializer:json" json:"payload"`
	Reason     string            `gorm:"size:255" json:"reason,omitempty"`
	ReviewedBy string            `gorm:"size:36" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type Tier string

const (
	TierNone Tier = ""
	TierVIP  Tier = "VIP"
	TierVVIP Tier = "VVIP"
)

// Rank orders tiers for listings, higher first.
func (t Tier) Rank() int {
	switch t {
	case TierVVIP:
		return 2
	case TierVIP:
		return 1
	}
	return 0
}

func (t Tier) Valid() bool {
	return t == TierNone || t == TierVIP || t == TierVVIP
}

// ProviderBase holds the columns shared by every provider table.
type ProviderBase struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	UID           string     `gorm:"size:36;not null;index" json:"uid"`
	ApplicationID string     `gorm:"size:36;not null;uniqueIndex" json:"application_id"`
	Tier          Tier       `gorm:"size:8;not null;default:''" json:"tier,omitempty"`
	TierExpiresAt *time.Time `json:"tier_expires_at,omitempty"`
	ApprovedAt    time.Time  `json:"approved_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type VendorProfile struct {
	BusinessName string `gorm:"size:160" json:"business_name" binding:"required"`
	Category     string `gorm:"size:80" json:"category" binding:"required"`
	Address      string `gorm:"size:255" json:"address" binding:"required"`
	Phone        string `gorm:"size:32" json:"phone,omitempty"`
}

type LawyerProfile struct {
	FullName        string `gorm:"size:120" json:"full_name" binding:"required"`
	BarNumber       string `gorm:"size:64" json:"bar_number" binding:"required"`
	Specialization  string `gorm:"size:120" json:"specialization" binding:"required"`
	YearsOfPractice int    `json:"years_of_practice,omitempty" binding:"gte=0"`
}

type LogisticsProfile struct {
	CompanyName  string `gorm:"size:160" json:"company_name" binding:"required"`
	FleetSize    int    `json:"fleet_size" binding:"required,gte=1"`
	CoverageArea string `gorm:"size:255" json:"coverage_area" binding:"required"`
}

type ServiceProfile struct {
	BusinessName    string `gorm:"size:160" json:"business_name" binding:"required"`
	ServiceCategory string `gorm:"size:80" json:"service_category" binding:"required"`
	Description     string `gorm:"type:text" json:"description,omitempty"`
}

type ExchangeProfile struct {
	BusinessName string   `gorm:"size:160" json:"business_name" binding:"required"`
	Currencies   []string `gorm:"serializer:json;type:text" json:"currencies" binding:"required,min=1,dive,len=3"`
	Location     string   `gorm:"size:255" json:"location,omitempty"`
}

type Vendor struct {
	ProviderBase
	VendorProfile
}

type Lawyer struct {
	ProviderBase
	LawyerProfile
}

type LogisticsCompany struct {
	ProviderBase
	LogisticsProfile
}

type ServiceProvider struct {
	ProviderBase
	ServiceProfile
}

type CurrencyExchangeAgent struct {
	ProviderBase
	ExchangeProfile
}

type PayoutStatus string

const (
	PayoutPending  PayoutStatus = "pending"
	PayoutPaid     PayoutStatus = "paid"
	PayoutRejected PayoutStatus = "rejected"
)

type PayoutRequest struct {
	ID            string       `gorm:"primaryKey;size:36" json:"id"`
	UserUID       string       `gorm:"size:36;not null;index" json:"user_uid"`
	Amount        int64        `gorm:"not null" json:"amount"`
	BankCode      string       `gorm:"size:16" json:"bank_code"`
	AccountNumber string       `gorm:"size:20" json:"account_number"`
	AccountName   string       `gorm:"size:120" json:"account_name,omitempty"`
	Status        PayoutStatus `gorm:"size:16;not null;index;default:pending" json:"status"`
	Reason        string       `gorm:"size:255" json:"reason,omitempty"`
	DecidedBy     string       `gorm:"size:36" json:"decided_by,omitempty"`
	DecidedAt     *time.Time   `json:"decided_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserUID   string    `gorm:"size:36;not null;index" json:"user_uid"`
	Kind      string    `gorm:"size:32;not null" json:"kind"`
	Title     string    `gorm:"size:160" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Read      bool      `gorm:"column:is_read;not null;default:false;index" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Chat is a two-party room. MemberA sorts before MemberB.
type Chat struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	MemberA   string    `gorm:"size:36;not null;uniqueIndex:idx_chat_members" json:"member_a"`
	MemberB   string    `gorm:"size:36;not null;uniqueIndex:idx_chat_members" json:"member_b"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Chat) HasMember(uid string) bool {
	return uid != "" && (c.MemberA == uid || c.MemberB == uid)
}

type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    string    `gorm:"size:36;not null;index" json:"chat_id"`
	SenderUID string    `gorm:"size:36;not null" json:"sender_uid"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// GatewayPayment records a verified gateway reference so it is spent once.
type GatewayPayment struct {
	Reference  string    `gorm:"primaryKey;size:100" json:"reference"`
	UID        string    `gorm:"size:36;not null;index" json:"uid"`
	Purpose    string    `gorm:"size:64" json:"purpose"`
	Amount     int64     `json:"amount"`
	Currency   string    `gorm:"size:8" json:"currency"`
	Status     string    `gorm:"size:16" json:"status"`
	VerifiedAt time.Time `json:"verified_at"`
}
