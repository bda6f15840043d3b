package models

import (
	"time"
)

// RewardEventKind names the ledger operation that produced an event.
type RewardEventKind string

const (
	EventDailyClaim RewardEventKind = "daily_claim"
	EventDonation   RewardEventKind = "donation"
	EventReferral   RewardEventKind = "referral"
	EventTask       RewardEventKind = "task"
	EventMint       RewardEventKind = "mint"
	EventAdminGrant RewardEventKind = "admin_grant"
)

// RewardEvent is one applied ledger transition, appended after every
// successful commit. The history endpoints page over it and the SSE stream
// tails it.
type RewardEvent struct {
	ID   string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Fid  int64           `gorm:"index;not null" json:"fid"`
	Kind RewardEventKind `gorm:"type:varchar(32);not null;index" json:"kind"`

	XPDelta    int64   `json:"xp_delta"`
	SpendDelta float64 `json:"spend_delta,omitempty"`

	Tier     *string `gorm:"type:varchar(32)" json:"tier,omitempty"`      // mint events
	TaskSlug *string `gorm:"type:varchar(128)" json:"task_slug,omitempty"` // task events
	Note     string  `gorm:"type:text" json:"note,omitempty"`              // admin grants, referral codes

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}
