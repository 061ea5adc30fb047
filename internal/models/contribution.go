package models

// Contribution is the cumulative amount one contributor has put into one
// remittance. Repeated contributions from the same principal accumulate into
// a single row, so the table doubles as the contributor set.
type Contribution struct {
	// ID is the unique identifier for the row.
	ID int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// RemittanceID is the remittance this contribution belongs to.
	RemittanceID uint64 `json:"remittance_id" gorm:"column:remittance_id;not null;uniqueIndex:idx_contribution_key"`
	// Contributor is the principal that contributed.
	Contributor string `json:"contributor" gorm:"column:contributor;size:64;not null;uniqueIndex:idx_contribution_key"`
	// Amount is the cumulative contributed amount in motes.
	Amount Amount `json:"amount" gorm:"column:amount;type:numeric;not null"`
	// UpdatedAt is the Unix timestamp of the most recent contribution.
	UpdatedAt int64 `json:"updated_at" gorm:"column:updated_at;not null"`
}

// RefundClaim marks that a contributor has claimed their refund from a
// cancelled remittance. The contribution row itself is left untouched as
// history; the presence of this row is the sole gate against double claims.
type RefundClaim struct {
	// ID is the unique identifier for the row.
	ID int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// RemittanceID is the cancelled remittance.
	RemittanceID uint64 `json:"remittance_id" gorm:"column:remittance_id;not null;uniqueIndex:idx_refund_claim_key"`
	// Contributor is the principal that claimed the refund.
	Contributor string `json:"contributor" gorm:"column:contributor;size:64;not null;uniqueIndex:idx_refund_claim_key"`
	// ClaimedAt is the Unix timestamp of the claim.
	ClaimedAt int64 `json:"claimed_at" gorm:"column:claimed_at;not null"`
}
