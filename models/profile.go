package models

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ProfileMirror is a local snapshot of Farcaster profile data needed for
// leaderboards and referral codes. Owned solely by the rewards service;
// populated via the profile sync worker from the identity service.
type ProfileMirror struct {
	ID          string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Fid         int64   `gorm:"uniqueIndex;not null" json:"fid"`
	Username    string  `gorm:"index;not null" json:"username"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`

	// ReferralCode is derived from the username at sync time and handed out
	// in share links.
	ReferralCode string `gorm:"uniqueIndex" json:"referral_code"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	LastSeen *time.Time `json:"last_seen,omitempty"`
	IsBanned bool       `json:"is_banned" gorm:"default:false"` // local rewards ban

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ReferralCodeFor derives a stable, shareable code. The fid suffix keeps
// codes unique when usernames collide after slugging.
func ReferralCodeFor(username string, fid int64) string {
	return fmt.Sprintf("%s-%d", slug.Make(username), fid)
}
