// models/mint.go
package models

import (
	"time"
)

// MintTxStatus is the lifecycle of an on-chain mint transaction. Pending is
// the only non-terminal state; confirmed, reverted and timeout are terminal.
type MintTxStatus string

const (
	MintTxPending   MintTxStatus = "pending"
	MintTxConfirmed MintTxStatus = "confirmed"
	MintTxReverted  MintTxStatus = "reverted"
	MintTxTimeout   MintTxStatus = "timeout"
)

// MintTransaction records one submitted mint. Ledger XP is credited only
// after the row reaches confirmed — never while pending.
type MintTransaction struct {
	ID   string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Fid  int64  `gorm:"index;not null" json:"fid"`
	Tier string `gorm:"type:varchar(32);not null;index" json:"tier"`

	TxHash   string       `gorm:"uniqueIndex;not null" json:"tx_hash"`
	PriceUsd float64      `json:"price_usd"`
	Status   MintTxStatus `gorm:"type:varchar(16);not null;index" json:"status"`

	SubmittedAt time.Time  `gorm:"not null" json:"submitted_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	XPCredited  bool       `gorm:"default:false" json:"xp_credited"`

	Timestamps
}

// TierSupply mirrors the global minted count per tier, reconciled from the
// chain relay by the chain sync worker. Used to enforce global supply caps
// (the early-bird 3000) before submitting a transaction.
type TierSupply struct {
	Tier            string    `gorm:"primaryKey;type:varchar(32)" json:"tier"`
	Minted          int64     `gorm:"not null;default:0" json:"minted"`
	GlobalLimit     int64     `gorm:"not null;default:0" json:"global_limit"` // 0 = unlimited
	ContractAddress string    `gorm:"type:varchar(64)" json:"contract_address"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
