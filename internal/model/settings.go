package model

import "time"

// ShopSettings is a single-row table of shop-wide switches.
type ShopSettings struct {
	ID                 int  `gorm:"primaryKey"`
	AllowNegativeStock bool `gorm:"not null;default:false"`
	UpdatedAt          time.Time
}

// SettingsRowID is the primary key of the only ShopSettings row.
const SettingsRowID = 1
