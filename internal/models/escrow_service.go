package models

import "context"

// EscrowService is the full operation surface of the escrow engine. Every
// mutating operation takes the acting principal explicitly; resolving that
// principal is the facade's job.
type EscrowService interface {
	CreateRemittance(ctx context.Context, caller, recipient string, targetAmount *Amount, purpose string) (uint64, error)
	Contribute(ctx context.Context, caller string, remittanceID uint64, amount *Amount) error
	ReleaseFunds(ctx context.Context, caller string, remittanceID uint64) error
	CancelRemittance(ctx context.Context, caller string, remittanceID uint64) error
	ClaimRefund(ctx context.Context, caller string, remittanceID uint64) error

	GetRemittance(remittanceID uint64) (*Remittance, error)
	GetContribution(remittanceID uint64, contributor string) (*Amount, error)
	IsRefundClaimed(remittanceID uint64, contributor string) (bool, error)
	GetPlatformFee() (uint64, error)
	ListCreatedBy(creator string) ([]*Remittance, error)
	ListIncomingTo(recipient string) ([]*Remittance, error)
	ListContributors(remittanceID uint64) ([]string, error)

	SetPlatformFee(caller string, feeBps uint64) error
	PauseContract(caller string) error
	UnpauseContract(caller string) error
}

// APIServer is the outward-facing operation facade.
type APIServer interface {
	Start()
	Shutdown() error
}
