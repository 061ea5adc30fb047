package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/casperflow/remitd/internal/models"
	"github.com/casperflow/remitd/pkg/logger"
)

// Engine is the escrow state machine. It owns the remittance lifecycle, the
// contribution ledger and the refund-claim ledger, and is the only component
// allowed to instruct the treasury.
//
// Mutating operations are serialized by a single mutex, so correctness rests
// on the ordering of persisted writes relative to external transfers: the
// flag or marker that prevents re-entry is always committed before the
// transfer that could fail is issued.
type Engine struct {
	logger *logger.Logger

	repo     models.Repository
	treasury models.Treasury
	notifier models.Notifier

	// escrowAccount is the principal that holds pooled funds in custody.
	escrowAccount string

	mu  sync.Mutex
	now func() int64
}

// NewEngine creates the escrow engine.
func NewEngine(
	repo models.Repository,
	treasury models.Treasury,
	notifier models.Notifier,
	logger *logger.Logger,
	escrowAccount string,
) *Engine {
	return &Engine{
		repo:          repo,
		treasury:      treasury,
		notifier:      notifier,
		logger:        logger,
		escrowAccount: escrowAccount,
		now:           func() int64 { return time.Now().Unix() },
	}
}

// CreateRemittance allocates the next remittance ID and persists a new
// active remittance. Returns the new ID.
func (e *Engine) CreateRemittance(ctx context.Context, caller, recipient string, targetAmount *models.Amount, purpose string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	config, err := e.repo.GetPlatformConfig()
	if err != nil {
		return 0, fmt.Errorf("failed to load platform config: %w", err)
	}
	if err := requireUnpaused(config); err != nil {
		return 0, err
	}

	creator, err := resolvePrincipal(caller)
	if err != nil {
		return 0, err
	}
	recipient, err = resolvePrincipal(recipient)
	if err != nil {
		return 0, err
	}

	if targetAmount == nil || targetAmount.IsZero() {
		return 0, ErrInvalidTargetAmount
	}

	purpose = strings.TrimSpace(purpose)
	if purpose == "" || len(purpose) > models.MaxPurposeLength {
		return 0, ErrPurposeMaxLength
	}

	remittance := &models.Remittance{
		Creator:       creator,
		Recipient:     recipient,
		TargetAmount:  *targetAmount.Clone(),
		CurrentAmount: *models.NewAmount(0),
		Purpose:       purpose,
		CreatedAt:     e.now(),
	}
	if err := e.repo.CreateRemittance(remittance); err != nil {
		return 0, fmt.Errorf("failed to store remittance: %w", err)
	}

	e.logger.Info("Remittance created ", "id ", remittance.ID, "creator ", creator, "target ", targetAmount.String())
	e.notify(&models.Event{
		Op:           models.EventRemittanceCreated,
		RemittanceID: remittance.ID,
		Creator:      creator,
		Recipient:    recipient,
		Amount:       targetAmount,
		Timestamp:    remittance.CreatedAt,
	})

	return remittance.ID, nil
}

// Contribute moves amount from the caller into escrow and accumulates it
// into the remittance and the caller's ledger entry. The external transfer
// happens first: if it fails, no ledger state changes.
func (e *Engine) Contribute(ctx context.Context, caller string, remittanceID uint64, amount *models.Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	config, err := e.repo.GetPlatformConfig()
	if err != nil {
		return fmt.Errorf("failed to load platform config: %w", err)
	}
	if err := requireUnpaused(config); err != nil {
		return err
	}

	contributor, err := resolvePrincipal(caller)
	if err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidContributionAmount
	}

	remittance, err := e.getRemittance(remittanceID)
	if err != nil {
		return err
	}
	if err := requireActive(remittance); err != nil {
		return err
	}

	// Funds move into escrow before any ledger mutation so a failed transfer
	// leaves the ledger untouched.
	if err := e.treasury.Transfer(ctx, contributor, e.escrowAccount, amount); err != nil {
		e.logger.Error("Contribution transfer failed ", "id ", remittanceID, "contributor ", contributor, "error ", err)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	remittance.CurrentAmount = *remittance.CurrentAmount.Add(amount)
	timestamp := e.now()
	if err := e.repo.ApplyContribution(remittance, contributor, amount, timestamp); err != nil {
		return fmt.Errorf("failed to store contribution: %w", err)
	}

	e.logger.Debug("Contribution recorded ", "id ", remittanceID, "contributor ", contributor, "amount ", amount.String())
	e.notify(&models.Event{
		Op:           models.EventContributionMade,
		RemittanceID: remittanceID,
		Contributor:  contributor,
		Amount:       amount,
		NewTotal:     &remittance.CurrentAmount,
		Timestamp:    timestamp,
	})

	return nil
}

// ReleaseFunds pays out the collected amount minus the platform fee to the
// recipient. Only the recipient may call it, and only once the target is
// met. The released flag is committed before the transfers so a crash
// mid-transfer can never be replayed into a double release.
func (e *Engine) ReleaseFunds(ctx context.Context, caller string, remittanceID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	config, err := e.repo.GetPlatformConfig()
	if err != nil {
		return fmt.Errorf("failed to load platform config: %w", err)
	}
	if err := requireUnpaused(config); err != nil {
		return err
	}

	caller, err = resolvePrincipal(caller)
	if err != nil {
		return err
	}

	remittance, err := e.getRemittance(remittanceID)
	if err != nil {
		return err
	}
	if caller != remittance.Recipient {
		return ErrUnauthorized
	}
	if remittance.IsReleased {
		return ErrAlreadyReleased
	}
	if remittance.IsCancelled {
		return ErrRemittanceCancelled
	}
	if !remittance.IsTargetMet() {
		return ErrTargetNotMet
	}

	platformFee := CalculateFee(&remittance.CurrentAmount, config.FeeBps)
	payout, err := remittance.CurrentAmount.Sub(platformFee)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArithmeticOverflow, err)
	}

	// Commit the terminal state first. If a transfer below fails the funds
	// may be stranded in escrow, but a double release is impossible.
	remittance.IsReleased = true
	if err := e.repo.UpdateRemittance(remittance); err != nil {
		return fmt.Errorf("failed to store remittance: %w", err)
	}

	if !platformFee.IsZero() {
		if err := e.treasury.Transfer(ctx, e.escrowAccount, config.FeeCollector, platformFee); err != nil {
			e.logger.Error("Fee transfer failed after release was committed ", "id ", remittanceID, "fee ", platformFee.String(), "error ", err)
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	if err := e.treasury.Transfer(ctx, e.escrowAccount, remittance.Recipient, payout); err != nil {
		e.logger.Error("Payout transfer failed after release was committed ", "id ", remittanceID, "payout ", payout.String(), "error ", err)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	e.logger.Info("Remittance released ", "id ", remittanceID, "payout ", payout.String(), "fee ", platformFee.String())
	e.notify(&models.Event{
		Op:           models.EventFundsReleased,
		RemittanceID: remittanceID,
		Recipient:    remittance.Recipient,
		Amount:       payout,
		PlatformFee:  platformFee,
		Timestamp:    e.now(),
	})

	return nil
}

// CancelRemittance marks the remittance cancelled, unlocking the pull-based
// refund path. No funds move here; refunds are claimed individually so
// cancellation stays O(1) regardless of the number of contributors.
func (e *Engine) CancelRemittance(ctx context.Context, caller string, remittanceID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	config, err := e.repo.GetPlatformConfig()
	if err != nil {
		return fmt.Errorf("failed to load platform config: %w", err)
	}
	if err := requireUnpaused(config); err != nil {
		return err
	}

	caller, err = resolvePrincipal(caller)
	if err != nil {
		return err
	}

	remittance, err := e.getRemittance(remittanceID)
	if err != nil {
		return err
	}
	if caller != remittance.Creator {
		return ErrUnauthorized
	}
	if remittance.IsReleased {
		return ErrAlreadyReleased
	}
	if remittance.IsCancelled {
		return ErrRemittanceCancelled
	}

	remittance.IsCancelled = true
	if err := e.repo.UpdateRemittance(remittance); err != nil {
		return fmt.Errorf("failed to store remittance: %w", err)
	}

	e.logger.Info("Remittance cancelled ", "id ", remittanceID, "refundable ", remittance.CurrentAmount.String())
	e.notify(&models.Event{
		Op:           models.EventRemittanceCancelled,
		RemittanceID: remittanceID,
		Creator:      remittance.Creator,
		Amount:       &remittance.CurrentAmount,
		Timestamp:    e.now(),
	})

	return nil
}

// ClaimRefund pays the caller back their full cumulative contribution to a
// cancelled remittance. The claim marker is committed before the transfer,
// so a claim can never be paid twice; the ledger entry itself stays as
// history.
func (e *Engine) ClaimRefund(ctx context.Context, caller string, remittanceID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	config, err := e.repo.GetPlatformConfig()
	if err != nil {
		return fmt.Errorf("failed to load platform config: %w", err)
	}
	if err := requireUnpaused(config); err != nil {
		return err
	}

	caller, err = resolvePrincipal(caller)
	if err != nil {
		return err
	}

	remittance, err := e.getRemittance(remittanceID)
	if err != nil {
		return err
	}
	if !remittance.IsCancelled {
		return ErrNotCancelled
	}

	contribution, err := e.repo.GetContribution(remittanceID, caller)
	if err != nil {
		return fmt.Errorf("failed to load contribution: %w", err)
	}
	if contribution.IsZero() {
		return ErrNoContribution
	}

	claimed, err := e.repo.IsRefundClaimed(remittanceID, caller)
	if err != nil {
		return fmt.Errorf("failed to check refund claim: %w", err)
	}
	if claimed {
		return ErrRefundAlreadyClaimed
	}

	timestamp := e.now()
	if err := e.repo.MarkRefundClaimed(remittanceID, caller, timestamp); err != nil {
		return fmt.Errorf("failed to mark refund claimed: %w", err)
	}

	if err := e.treasury.Transfer(ctx, e.escrowAccount, caller, contribution); err != nil {
		e.logger.Error("Refund transfer failed after claim was committed ", "id ", remittanceID, "contributor ", caller, "error ", err)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	e.logger.Info("Refund claimed ", "id ", remittanceID, "contributor ", caller, "amount ", contribution.String())
	e.notify(&models.Event{
		Op:           models.EventRefundClaimed,
		RemittanceID: remittanceID,
		Contributor:  caller,
		Amount:       contribution,
		Timestamp:    timestamp,
	})

	return nil
}

// GetRemittance returns the full remittance record.
func (e *Engine) GetRemittance(remittanceID uint64) (*models.Remittance, error) {
	return e.getRemittance(remittanceID)
}

// GetContribution returns the cumulative contribution of a principal, zero
// if they never contributed.
func (e *Engine) GetContribution(remittanceID uint64, contributor string) (*models.Amount, error) {
	contributor, err := resolvePrincipal(contributor)
	if err != nil {
		return nil, err
	}
	if _, err := e.getRemittance(remittanceID); err != nil {
		return nil, err
	}
	return e.repo.GetContribution(remittanceID, contributor)
}

// IsRefundClaimed reports whether a principal has claimed their refund.
func (e *Engine) IsRefundClaimed(remittanceID uint64, contributor string) (bool, error) {
	contributor, err := resolvePrincipal(contributor)
	if err != nil {
		return false, err
	}
	if _, err := e.getRemittance(remittanceID); err != nil {
		return false, err
	}
	return e.repo.IsRefundClaimed(remittanceID, contributor)
}

// GetPlatformFee returns the current platform fee in basis points.
func (e *Engine) GetPlatformFee() (uint64, error) {
	config, err := e.repo.GetPlatformConfig()
	if err != nil {
		return 0, fmt.Errorf("failed to load platform config: %w", err)
	}
	return config.FeeBps, nil
}

// ListCreatedBy returns all remittances created by a principal.
func (e *Engine) ListCreatedBy(creator string) ([]*models.Remittance, error) {
	creator, err := resolvePrincipal(creator)
	if err != nil {
		return nil, err
	}
	return e.repo.ListRemittancesByCreator(creator)
}

// ListIncomingTo returns all remittances addressed to a recipient.
func (e *Engine) ListIncomingTo(recipient string) ([]*models.Remittance, error) {
	recipient, err := resolvePrincipal(recipient)
	if err != nil {
		return nil, err
	}
	return e.repo.ListRemittancesByRecipient(recipient)
}

// ListContributors returns every principal that has ever contributed to the
// remittance.
func (e *Engine) ListContributors(remittanceID uint64) ([]string, error) {
	if _, err := e.getRemittance(remittanceID); err != nil {
		return nil, err
	}
	return e.repo.ListContributors(remittanceID)
}

// SetPlatformFee updates the platform fee. Owner only, capped at 500 bps.
func (e *Engine) SetPlatformFee(caller string, feeBps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	config, err := e.repo.GetPlatformConfig()
	if err != nil {
		return fmt.Errorf("failed to load platform config: %w", err)
	}
	if err := requireOwner(config, caller); err != nil {
		return err
	}
	if err := ValidateFeeBps(feeBps); err != nil {
		return err
	}

	oldFeeBps := config.FeeBps
	config.FeeBps = feeBps
	if err := e.repo.SavePlatformConfig(config); err != nil {
		return fmt.Errorf("failed to store platform config: %w", err)
	}

	e.logger.Info("Platform fee updated ", "old ", oldFeeBps, "new ", feeBps)
	e.notify(&models.Event{
		Op:        models.EventPlatformFeeUpdated,
		OldFeeBps: oldFeeBps,
		NewFeeBps: feeBps,
		Timestamp: e.now(),
	})

	return nil
}

// PauseContract disables all mutating operations. Owner only.
func (e *Engine) PauseContract(caller string) error {
	return e.setPaused(caller, true, models.EventContractPaused)
}

// UnpauseContract re-enables mutating operations. Owner only.
func (e *Engine) UnpauseContract(caller string) error {
	return e.setPaused(caller, false, models.EventContractUnpaused)
}

func (e *Engine) setPaused(caller string, paused bool, op string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	config, err := e.repo.GetPlatformConfig()
	if err != nil {
		return fmt.Errorf("failed to load platform config: %w", err)
	}
	if err := requireOwner(config, caller); err != nil {
		return err
	}

	config.Paused = paused
	if err := e.repo.SavePlatformConfig(config); err != nil {
		return fmt.Errorf("failed to store platform config: %w", err)
	}

	e.logger.Warn("Platform pause state changed ", "paused ", paused)
	e.notify(&models.Event{Op: op, Timestamp: e.now()})

	return nil
}

func (e *Engine) getRemittance(remittanceID uint64) (*models.Remittance, error) {
	remittance, err := e.repo.GetRemittance(remittanceID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrRemittanceNotFound
		}
		return nil, fmt.Errorf("failed to load remittance: %w", err)
	}
	return remittance, nil
}

func (e *Engine) notify(event *models.Event) {
	if e.notifier != nil {
		e.notifier.Notify(event)
	}
}

func requireActive(remittance *models.Remittance) error {
	if remittance.IsReleased {
		return ErrAlreadyReleased
	}
	if remittance.IsCancelled {
		return ErrRemittanceCancelled
	}
	return nil
}

func requireUnpaused(config *models.PlatformConfig) error {
	if config.Paused {
		return ErrContractPaused
	}
	return nil
}
