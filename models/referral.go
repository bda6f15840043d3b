package models

import "time"

// Referral tracks one redeemed referral code. The unique index on
// ReferredFid is what makes "one credit per distinct referred user" hold:
// the ledger itself only enforces the numeric cap.
type Referral struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReferrerFid int64  `gorm:"index;not null" json:"referrer_fid"`
	ReferredFid int64  `gorm:"uniqueIndex;not null" json:"referred_fid"`

	CodeUsed   string     `gorm:"not null" json:"code_used"`
	XPEarned   int64      `json:"xp_earned" gorm:"default:0"`
	Credited   bool       `json:"credited" gorm:"default:false"`
	CreditedAt *time.Time `json:"credited_at,omitempty"`

	Timestamps
}
