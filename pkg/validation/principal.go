package validation

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// PrincipalLength is the expected length of a principal identifier in hex
// characters (32 bytes).
const PrincipalLength = 64

// ValidatePrincipal validates an account-hash principal identifier.
func ValidatePrincipal(principal string) error {
	if principal == "" {
		return fmt.Errorf("principal cannot be empty")
	}

	normalized := strings.TrimPrefix(principal, "account-hash-")
	normalized = strings.TrimPrefix(normalized, "0x")
	normalized = strings.TrimPrefix(normalized, "0X")

	if len(normalized) != PrincipalLength {
		return fmt.Errorf("invalid principal length: expected %d characters, got %d", PrincipalLength, len(normalized))
	}

	raw, err := hex.DecodeString(normalized)
	if err != nil {
		return fmt.Errorf("invalid hex principal: %w", err)
	}

	// The zero account hash is never a valid acting party.
	zero := true
	for _, b := range raw {
		if b != 0 {
			zero = false
			break
		}
	}
	if zero {
		return fmt.Errorf("principal cannot be the zero account hash")
	}

	return nil
}

// NormalizePrincipal converts a principal to lowercase hex without prefixes.
func NormalizePrincipal(principal string) string {
	principal = strings.TrimPrefix(principal, "account-hash-")
	principal = strings.TrimPrefix(principal, "0x")
	principal = strings.TrimPrefix(principal, "0X")
	return strings.ToLower(principal)
}

// ValidateAndNormalizePrincipal validates a principal and returns its
// normalized form.
func ValidateAndNormalizePrincipal(principal string) (string, error) {
	if err := ValidatePrincipal(principal); err != nil {
		return "", err
	}
	return NormalizePrincipal(principal), nil
}
