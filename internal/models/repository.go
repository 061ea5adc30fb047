package models

import "errors"

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("record not found")

type Repository interface {
	// CreateRemittance persists a new remittance and assigns the next
	// monotonically increasing ID.
	CreateRemittance(remittance *Remittance) error
	GetRemittance(id uint64) (*Remittance, error)
	UpdateRemittance(remittance *Remittance) error
	ListRemittancesByCreator(creator string) ([]*Remittance, error)
	ListRemittancesByRecipient(recipient string) ([]*Remittance, error)

	// ApplyContribution persists the updated remittance counters and
	// accumulates amount into the (remittance, contributor) ledger entry in
	// one transaction.
	ApplyContribution(remittance *Remittance, contributor string, amount *Amount, timestamp int64) error
	// GetContribution returns the cumulative contributed amount, zero if the
	// contributor never contributed.
	GetContribution(remittanceID uint64, contributor string) (*Amount, error)
	ListContributors(remittanceID uint64) ([]string, error)

	MarkRefundClaimed(remittanceID uint64, contributor string, claimedAt int64) error
	IsRefundClaimed(remittanceID uint64, contributor string) (bool, error)

	// EnsurePlatformConfig returns the stored configuration aggregate,
	// seeding it with defaults on first startup.
	EnsurePlatformConfig(defaults *PlatformConfig) (*PlatformConfig, error)
	GetPlatformConfig() (*PlatformConfig, error)
	SavePlatformConfig(config *PlatformConfig) error

	Close() error
}
