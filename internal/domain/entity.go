package domain

import (
	"time"
)

// AssetInfo is searchable metadata for a catalog instrument, synced in the background.
type AssetInfo struct {
	Symbol       string    `gorm:"primaryKey" json:"symbol"`
	Name         string    `json:"name"`
	Class        Class     `json:"class" gorm:"index"`
	IconPath     string    `json:"icon_path"`
	Rank         int       `json:"rank"`
	LastSyncedAt time.Time `json:"last_synced_at"` // Last icon sync time
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
