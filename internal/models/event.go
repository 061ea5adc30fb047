package models

import "fmt"

// Operation names carried in notification events.
const (
	EventRemittanceCreated   = "remittance_created"
	EventContributionMade    = "contribution_made"
	EventFundsReleased       = "funds_released"
	EventRemittanceCancelled = "remittance_cancelled"
	EventRefundClaimed       = "refund_claimed"
	EventPlatformFeeUpdated  = "platform_fee_updated"
	EventContractPaused      = "contract_paused"
	EventContractUnpaused    = "contract_unpaused"
)

// Event is the notification record emitted after every successful mutating
// operation. It is consumed by off-system observers and is not required for
// correctness.
type Event struct {
	Op           string  `json:"op"`
	RemittanceID uint64  `json:"remittance_id,omitempty"`
	Creator      string  `json:"creator,omitempty"`
	Recipient    string  `json:"recipient,omitempty"`
	Contributor  string  `json:"contributor,omitempty"`
	Amount       *Amount `json:"amount,omitempty"`
	NewTotal     *Amount `json:"new_total,omitempty"`
	PlatformFee  *Amount `json:"platform_fee,omitempty"`
	OldFeeBps    uint64  `json:"old_fee_bps,omitempty"`
	NewFeeBps    uint64  `json:"new_fee_bps,omitempty"`
	Timestamp    int64   `json:"timestamp"`
}

// String renders a short human-readable message for telegram and email
// delivery.
func (e *Event) String() string {
	switch e.Op {
	case EventRemittanceCreated:
		return fmt.Sprintf("Remittance #%d created by %s for %s, target %s motes", e.RemittanceID, e.Creator, e.Recipient, e.Amount)
	case EventContributionMade:
		return fmt.Sprintf("Remittance #%d received %s motes from %s, total %s", e.RemittanceID, e.Amount, e.Contributor, e.NewTotal)
	case EventFundsReleased:
		return fmt.Sprintf("Remittance #%d released: %s motes to %s, fee %s", e.RemittanceID, e.Amount, e.Recipient, e.PlatformFee)
	case EventRemittanceCancelled:
		return fmt.Sprintf("Remittance #%d cancelled by %s, %s motes refundable", e.RemittanceID, e.Creator, e.Amount)
	case EventRefundClaimed:
		return fmt.Sprintf("Remittance #%d refund of %s motes claimed by %s", e.RemittanceID, e.Amount, e.Contributor)
	case EventPlatformFeeUpdated:
		return fmt.Sprintf("Platform fee changed from %d to %d bps", e.OldFeeBps, e.NewFeeBps)
	case EventContractPaused:
		return "Platform paused"
	case EventContractUnpaused:
		return "Platform unpaused"
	}
	return fmt.Sprintf("Event %s for remittance #%d", e.Op, e.RemittanceID)
}

// Notifier delivers operation events to external observers. Delivery is
// best-effort and must never affect the outcome of the operation.
type Notifier interface {
	Notify(event *Event)
}
