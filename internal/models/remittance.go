package models

import "math/big"

// MaxPurposeLength is the maximum length of a remittance purpose description.
const MaxPurposeLength = 256

// Remittance represents one escrow campaign: contributors pool funds toward
// the target amount, then the recipient releases them or the creator cancels
// and contributors claim refunds.
type Remittance struct {
	// ID is the unique identifier, assigned at creation and never reused.
	ID uint64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// Creator is the principal that created the remittance.
	Creator string `json:"creator" gorm:"column:creator;size:64;not null;index"`
	// Recipient is the principal that receives the funds on release.
	Recipient string `json:"recipient" gorm:"column:recipient;size:64;not null;index"`
	// TargetAmount is the amount to be collected, in motes.
	TargetAmount Amount `json:"target_amount" gorm:"column:target_amount;type:numeric;not null"`
	// CurrentAmount is the total contributed so far, in motes.
	CurrentAmount Amount `json:"current_amount" gorm:"column:current_amount;type:numeric;not null"`
	// Purpose describes what the funds are for.
	Purpose string `json:"purpose" gorm:"column:purpose;size:256;not null"`
	// CreatedAt is the Unix timestamp of creation.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at;not null;index"`
	// IsReleased is set once the funds have been paid out to the recipient.
	IsReleased bool `json:"is_released" gorm:"column:is_released;not null;default:false"`
	// IsCancelled is set once the creator has cancelled the remittance.
	IsCancelled bool `json:"is_cancelled" gorm:"column:is_cancelled;not null;default:false"`
}

// IsActive reports whether the remittance is neither released nor cancelled.
func (r *Remittance) IsActive() bool {
	return !r.IsReleased && !r.IsCancelled
}

// IsTargetMet reports whether the target amount has been met or exceeded.
func (r *Remittance) IsTargetMet() bool {
	return r.CurrentAmount.Cmp(&r.TargetAmount) >= 0
}

// RemainingAmount returns how much is still needed to reach the target,
// zero once the target is met.
func (r *Remittance) RemainingAmount() *Amount {
	if r.IsTargetMet() {
		return NewAmount(0)
	}
	remaining, _ := r.TargetAmount.Sub(&r.CurrentAmount)
	return remaining
}

// ProgressPercentage returns funding progress as 0-100. The calculation is
// done in full precision so amounts above 64 bits report correctly.
func (r *Remittance) ProgressPercentage() uint64 {
	target := r.TargetAmount.BigInt()
	if target.Sign() == 0 {
		return 100
	}
	pct := new(big.Int).Mul(r.CurrentAmount.BigInt(), big.NewInt(100))
	pct.Div(pct, target)
	if pct.Cmp(big.NewInt(100)) > 0 {
		return 100
	}
	return pct.Uint64()
}
