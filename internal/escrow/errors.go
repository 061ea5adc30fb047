package escrow

import "errors"

// Domain errors. Every operation aborts with exactly one of these; the HTTP
// facade maps them onto status codes.
var (
	// ErrRemittanceNotFound means no remittance exists with the given ID.
	ErrRemittanceNotFound = errors.New("remittance not found")
	// ErrUnauthorized means the caller is not allowed to perform the action.
	ErrUnauthorized = errors.New("caller is not authorized")
	// ErrInvalidTargetAmount means the target amount is zero.
	ErrInvalidTargetAmount = errors.New("target amount must be greater than zero")
	// ErrInvalidContributionAmount means the contribution amount is zero.
	ErrInvalidContributionAmount = errors.New("contribution amount must be greater than zero")
	// ErrAlreadyReleased means the remittance funds were already paid out.
	ErrAlreadyReleased = errors.New("remittance has already been released")
	// ErrRemittanceCancelled means the remittance was cancelled.
	ErrRemittanceCancelled = errors.New("remittance has been cancelled")
	// ErrTargetNotMet means the collected amount is below the target.
	ErrTargetNotMet = errors.New("target amount not yet met")
	// ErrPurposeMaxLength means the purpose is empty or exceeds the limit.
	ErrPurposeMaxLength = errors.New("purpose must be 1-256 characters")
	// ErrInvalidPrincipal means a principal identifier is malformed.
	ErrInvalidPrincipal = errors.New("invalid principal")
	// ErrRefundAlreadyClaimed means this contributor already claimed.
	ErrRefundAlreadyClaimed = errors.New("refund has already been claimed")
	// ErrNoContribution means the caller never contributed to the remittance.
	ErrNoContribution = errors.New("no contribution found for this principal")
	// ErrNotCancelled means refunds are only available after cancellation.
	ErrNotCancelled = errors.New("remittance is not cancelled")
	// ErrContractPaused means all mutating operations are disabled.
	ErrContractPaused = errors.New("platform is paused")
	// ErrFeeTooHigh means a proposed fee exceeds the 500 bps cap.
	ErrFeeTooHigh = errors.New("platform fee exceeds maximum")
	// ErrTransferFailed means the external value transfer did not complete.
	ErrTransferFailed = errors.New("funds transfer failed")
	// ErrArithmeticOverflow means an amount computation left the valid range.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)
