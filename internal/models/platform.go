package models

// PlatformConfig is the owner-gated configuration aggregate. A single row is
// seeded at first startup and afterwards mutated only through owner-gated
// operations.
type PlatformConfig struct {
	// ID is always 1; the table holds exactly one row.
	ID int64 `json:"-" gorm:"column:id;primaryKey"`
	// FeeBps is the platform fee in basis points, 0-500 inclusive.
	FeeBps uint64 `json:"fee_bps" gorm:"column:fee_bps;not null"`
	// FeeCollector is the principal that receives platform fees.
	FeeCollector string `json:"fee_collector" gorm:"column:fee_collector;size:64;not null"`
	// Owner is the principal allowed to change fees and pause the platform.
	Owner string `json:"owner" gorm:"column:owner;size:64;not null"`
	// Paused disables all mutating operations while set.
	Paused bool `json:"paused" gorm:"column:paused;not null;default:false"`
}

// TableName specifies the table name for GORM.
func (PlatformConfig) TableName() string {
	return "platform_config"
}
