package escrow

import (
	"github.com/casperflow/remitd/internal/models"
)

const (
	// MaxFeeBps is the highest allowed platform fee: 500 bps = 5%.
	MaxFeeBps = 500
	// DefaultFeeBps is the fee seeded at first startup: 50 bps = 0.5%.
	DefaultFeeBps = 50

	basisPointDenominator = 10000
)

// CalculateFee computes floor(amount * feeBps / 10000) in full precision, so
// the intermediate product cannot overflow. The fee is always <= amount
// because feeBps is capped well below the denominator.
func CalculateFee(amount *models.Amount, feeBps uint64) *models.Amount {
	fee := amount.Mul(models.NewAmount(feeBps))
	fee, _ = fee.Div(models.NewAmount(basisPointDenominator))
	return fee
}

// ValidateFeeBps rejects fees above the cap. Zero is valid (fee-free).
func ValidateFeeBps(feeBps uint64) error {
	if feeBps > MaxFeeBps {
		return ErrFeeTooHigh
	}
	return nil
}
