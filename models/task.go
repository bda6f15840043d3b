package models

import (
	"time"
)

// SocialTask: admin-defined one-shot task (follow, recast, join channel…)
// that pays a fixed XP reward on first completion.
type SocialTask struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"` // e.g., "follow-channel"
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	IconURL     string `gorm:"type:text" json:"icon_url"` // R2 URL to SVG/png
	TargetURL   string `gorm:"type:text" json:"target_url"`
	XPReward    int64  `gorm:"not null" json:"xp_reward"`
	Active      bool   `gorm:"default:true;index" json:"active"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TaskCompletion: one row per (user, task). The composite unique index is
// the per-task distinctness guarantee the ledger delegates to its caller.
type TaskCompletion struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Fid         int64     `gorm:"not null;uniqueIndex:idx_task_completion_once" json:"fid"`
	TaskID      string    `gorm:"not null;uniqueIndex:idx_task_completion_once" json:"task_id"`
	XPEarned    int64     `json:"xp_earned"`
	CompletedAt time.Time `json:"completed_at" gorm:"autoCreateTime"`
}

// DefaultTasks seed the task table on first boot (idempotent upsert by slug).
var DefaultTasks = []SocialTask{
	{
		Slug:        "follow-channel",
		Title:       "Follow the channel",
		Description: "Follow our Farcaster channel",
		XPReward:    30,
		Active:      true,
	},
	{
		Slug:        "recast-announcement",
		Title:       "Recast the launch cast",
		Description: "Recast the launch announcement",
		XPReward:    20,
		Active:      true,
	},
	{
		Slug:        "add-miniapp",
		Title:       "Add the Mini App",
		Description: "Add the app to your Farcaster client",
		XPReward:    50,
		Active:      true,
	},
	{
		Slug:        "share-frame",
		Title:       "Share your progress",
		Description: "Cast your reward card to your followers",
		XPReward:    25,
		Active:      true,
	},
}
