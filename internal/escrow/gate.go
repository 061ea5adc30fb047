package escrow

import (
	"github.com/casperflow/remitd/internal/models"
	"github.com/casperflow/remitd/pkg/validation"
)

// resolvePrincipal validates and normalizes the acting principal. The caller
// identity itself is resolved upstream (the facade trusts its transport);
// the gate only rejects malformed or zero account hashes.
func resolvePrincipal(principal string) (string, error) {
	normalized, err := validation.ValidateAndNormalizePrincipal(principal)
	if err != nil {
		return "", ErrInvalidPrincipal
	}
	return normalized, nil
}

// DefaultPlatformConfig builds the configuration aggregate seeded on first
// startup: the installer becomes owner, fees flow to the collector, and the
// platform starts unpaused.
func DefaultPlatformConfig(owner, feeCollector string, feeBps uint64) *models.PlatformConfig {
	return &models.PlatformConfig{
		FeeBps:       feeBps,
		FeeCollector: feeCollector,
		Owner:        owner,
	}
}

// requireOwner admits only the stored platform owner.
func requireOwner(config *models.PlatformConfig, caller string) error {
	caller, err := resolvePrincipal(caller)
	if err != nil {
		return err
	}
	if caller != config.Owner {
		return ErrUnauthorized
	}
	return nil
}
