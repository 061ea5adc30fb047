package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/casperflow/remitd/internal/models"
	"github.com/casperflow/remitd/internal/repository"
	"github.com/casperflow/remitd/pkg/logger"
)

var (
	testOwner        = testPrincipal(0xaa)
	testFeeCollector = testPrincipal(0xbb)
	testEscrow       = testPrincipal(0xcc)
	testCreator      = testPrincipal(0x01)
	testRecipient    = testPrincipal(0x02)
	testContributorA = testPrincipal(0x03)
	testContributorB = testPrincipal(0x04)
)

func testPrincipal(b byte) string {
	return strings.Repeat(fmt.Sprintf("%02x", b), 32)
}

type transferCall struct {
	from   string
	to     string
	amount string
}

type fakeTreasury struct {
	transfers []transferCall
	failNext  error
}

func (f *fakeTreasury) Transfer(ctx context.Context, from, to string, amount *models.Amount) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.transfers = append(f.transfers, transferCall{from: from, to: to, amount: amount.String()})
	return nil
}

type recordingNotifier struct {
	events []*models.Event
}

func (n *recordingNotifier) Notify(event *models.Event) {
	n.events = append(n.events, event)
}

func newTestEngine(t *testing.T) (*Engine, *repository.MemoryDB, *fakeTreasury, *recordingNotifier) {
	t.Helper()

	repo := repository.NewMemoryDB()
	if _, err := repo.EnsurePlatformConfig(DefaultPlatformConfig(testOwner, testFeeCollector, DefaultFeeBps)); err != nil {
		t.Fatalf("failed to seed platform config: %v", err)
	}

	treasury := &fakeTreasury{}
	notifier := &recordingNotifier{}
	engine := NewEngine(repo, treasury, notifier, logger.NewNopLogger(), testEscrow)
	engine.now = func() int64 { return 1700000000 }

	return engine, repo, treasury, notifier
}

func mustCreate(t *testing.T, engine *Engine, target uint64) uint64 {
	t.Helper()
	id, err := engine.CreateRemittance(context.Background(), testCreator, testRecipient, models.NewAmount(target), "School fees for the term")
	if err != nil {
		t.Fatalf("CreateRemittance failed: %v", err)
	}
	return id
}

func mustContribute(t *testing.T, engine *Engine, caller string, id uint64, amount uint64) {
	t.Helper()
	if err := engine.Contribute(context.Background(), caller, id, models.NewAmount(amount)); err != nil {
		t.Fatalf("Contribute(%d) failed: %v", amount, err)
	}
}

// checkLedgerInvariant verifies that the contribution ledger entries for a
// remittance sum to its current amount.
func checkLedgerInvariant(t *testing.T, engine *Engine, id uint64) {
	t.Helper()

	remittance, err := engine.GetRemittance(id)
	if err != nil {
		t.Fatalf("GetRemittance failed: %v", err)
	}
	contributors, err := engine.ListContributors(id)
	if err != nil {
		t.Fatalf("ListContributors failed: %v", err)
	}
	sum := models.NewAmount(0)
	for _, contributor := range contributors {
		amount, err := engine.GetContribution(id, contributor)
		if err != nil {
			t.Fatalf("GetContribution failed: %v", err)
		}
		sum = sum.Add(amount)
	}
	if sum.Cmp(&remittance.CurrentAmount) != 0 {
		t.Fatalf("ledger sum %s != current amount %s", sum, remittance.CurrentAmount.String())
	}
}

func TestCreateRemittance(t *testing.T) {
	engine, _, _, notifier := newTestEngine(t)

	id := mustCreate(t, engine, 1000)
	if id != 1 {
		t.Fatalf("expected first remittance id 1, got %d", id)
	}

	remittance, err := engine.GetRemittance(id)
	if err != nil {
		t.Fatalf("GetRemittance failed: %v", err)
	}
	if remittance.Creator != testCreator || remittance.Recipient != testRecipient {
		t.Fatalf("unexpected principals: %s / %s", remittance.Creator, remittance.Recipient)
	}
	if !remittance.CurrentAmount.IsZero() {
		t.Fatalf("new remittance must start at zero, got %s", remittance.CurrentAmount.String())
	}
	if !remittance.IsActive() {
		t.Fatal("new remittance must be active")
	}

	second := mustCreate(t, engine, 500)
	if second != 2 {
		t.Fatalf("expected monotonically increasing id 2, got %d", second)
	}

	if len(notifier.events) != 2 || notifier.events[0].Op != models.EventRemittanceCreated {
		t.Fatalf("expected creation events, got %+v", notifier.events)
	}
}

func TestCreateRemittanceValidation(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateRemittance(ctx, testCreator, testRecipient, models.NewAmount(0), "purpose"); !errors.Is(err, ErrInvalidTargetAmount) {
		t.Fatalf("zero target: expected ErrInvalidTargetAmount, got %v", err)
	}
	if _, err := engine.CreateRemittance(ctx, testCreator, testRecipient, models.NewAmount(100), "   "); !errors.Is(err, ErrPurposeMaxLength) {
		t.Fatalf("blank purpose: expected ErrPurposeMaxLength, got %v", err)
	}
	if _, err := engine.CreateRemittance(ctx, testCreator, testRecipient, models.NewAmount(100), strings.Repeat("a", 257)); !errors.Is(err, ErrPurposeMaxLength) {
		t.Fatalf("long purpose: expected ErrPurposeMaxLength, got %v", err)
	}
	if _, err := engine.CreateRemittance(ctx, testCreator, "not-a-principal", models.NewAmount(100), "purpose"); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("bad recipient: expected ErrInvalidPrincipal, got %v", err)
	}
	if _, err := engine.CreateRemittance(ctx, strings.Repeat("00", 32), testRecipient, models.NewAmount(100), "purpose"); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("zero caller: expected ErrInvalidPrincipal, got %v", err)
	}
}

func TestContributionsAccumulate(t *testing.T) {
	engine, _, treasury, _ := newTestEngine(t)
	id := mustCreate(t, engine, 1000)

	mustContribute(t, engine, testContributorA, id, 300)
	mustContribute(t, engine, testContributorB, id, 700)

	remittance, err := engine.GetRemittance(id)
	if err != nil {
		t.Fatalf("GetRemittance failed: %v", err)
	}
	if remittance.CurrentAmount.String() != "1000" {
		t.Fatalf("expected current amount 1000, got %s", remittance.CurrentAmount.String())
	}
	if !remittance.IsTargetMet() {
		t.Fatal("target of 1000 must be met after 300+700")
	}
	checkLedgerInvariant(t, engine, id)

	// Both transfers must have gone into escrow.
	if len(treasury.transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(treasury.transfers))
	}
	for _, transfer := range treasury.transfers {
		if transfer.to != testEscrow {
			t.Fatalf("contribution must land in escrow, went to %s", transfer.to)
		}
	}

	// Repeated contributions from the same principal accumulate.
	mustContribute(t, engine, testContributorA, id, 50)
	amount, err := engine.GetContribution(id, testContributorA)
	if err != nil {
		t.Fatalf("GetContribution failed: %v", err)
	}
	if amount.String() != "350" {
		t.Fatalf("expected cumulative 350, got %s", amount.String())
	}
	checkLedgerInvariant(t, engine, id)

	contributors, err := engine.ListContributors(id)
	if err != nil {
		t.Fatalf("ListContributors failed: %v", err)
	}
	if len(contributors) != 2 {
		t.Fatalf("expected 2 distinct contributors, got %v", contributors)
	}
}

func TestOverFundingIsRetained(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	id := mustCreate(t, engine, 1000)

	mustContribute(t, engine, testContributorA, id, 5000)

	remittance, _ := engine.GetRemittance(id)
	if remittance.CurrentAmount.String() != "5000" {
		t.Fatalf("over-funding must be retained, got %s", remittance.CurrentAmount.String())
	}
	if remittance.ProgressPercentage() != 100 {
		t.Fatalf("progress must cap at 100, got %d", remittance.ProgressPercentage())
	}
}

func TestContributeValidation(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	id := mustCreate(t, engine, 1000)

	if err := engine.Contribute(ctx, testContributorA, id, models.NewAmount(0)); !errors.Is(err, ErrInvalidContributionAmount) {
		t.Fatalf("zero amount: expected ErrInvalidContributionAmount, got %v", err)
	}
	if err := engine.Contribute(ctx, testContributorA, 99, models.NewAmount(10)); !errors.Is(err, ErrRemittanceNotFound) {
		t.Fatalf("unknown id: expected ErrRemittanceNotFound, got %v", err)
	}

	// The failed calls must not have touched the ledger.
	remittance, _ := engine.GetRemittance(id)
	if !remittance.CurrentAmount.IsZero() {
		t.Fatalf("ledger mutated by failed contribution: %s", remittance.CurrentAmount.String())
	}
}

func TestContributeTransferFailureLeavesLedgerUntouched(t *testing.T) {
	engine, _, treasury, _ := newTestEngine(t)
	ctx := context.Background()
	id := mustCreate(t, engine, 1000)

	treasury.failNext = errors.New("custody unreachable")
	err := engine.Contribute(ctx, testContributorA, id, models.NewAmount(100))
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	remittance, _ := engine.GetRemittance(id)
	if !remittance.CurrentAmount.IsZero() {
		t.Fatal("failed transfer must not mutate the ledger")
	}
	amount, _ := engine.GetContribution(id, testContributorA)
	if !amount.IsZero() {
		t.Fatal("failed transfer must not create a contribution entry")
	}
}

func TestReleaseFunds(t *testing.T) {
	engine, _, treasury, notifier := newTestEngine(t)
	ctx := context.Background()
	id := mustCreate(t, engine, 10000)
	mustContribute(t, engine, testContributorA, id, 10000)
	treasury.transfers = nil

	if err := engine.ReleaseFunds(ctx, testRecipient, id); err != nil {
		t.Fatalf("ReleaseFunds failed: %v", err)
	}

	// Default fee is 50 bps: fee 50, payout 9950.
	if len(treasury.transfers) != 2 {
		t.Fatalf("expected fee + payout transfers, got %d", len(treasury.transfers))
	}
	fee := treasury.transfers[0]
	if fee.from != testEscrow || fee.to != testFeeCollector || fee.amount != "50" {
		t.Fatalf("unexpected fee transfer: %+v", fee)
	}
	payout := treasury.transfers[1]
	if payout.from != testEscrow || payout.to != testRecipient || payout.amount != "9950" {
		t.Fatalf("unexpected payout transfer: %+v", payout)
	}

	remittance, _ := engine.GetRemittance(id)
	if !remittance.IsReleased || remittance.IsCancelled {
		t.Fatalf("expected released terminal state, got released=%v cancelled=%v", remittance.IsReleased, remittance.IsCancelled)
	}

	last := notifier.events[len(notifier.events)-1]
	if last.Op != models.EventFundsReleased || last.PlatformFee.String() != "50" {
		t.Fatalf("unexpected release event: %+v", last)
	}

	// Retrying is a no-op that reports the terminal state.
	if err := engine.ReleaseFunds(ctx, testRecipient, id); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("expected ErrAlreadyReleased on retry, got %v", err)
	}
}

func TestReleaseFundsPreconditions(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	id := mustCreate(t, engine, 1000)
	mustContribute(t, engine, testContributorA, id, 500)

	if err := engine.ReleaseFunds(ctx, testContributorA, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-recipient: expected ErrUnauthorized, got %v", err)
	}
	if err := engine.ReleaseFunds(ctx, testRecipient, id); !errors.Is(err, ErrTargetNotMet) {
		t.Fatalf("under target: expected ErrTargetNotMet, got %v", err)
	}

	remittance, _ := engine.GetRemittance(id)
	if !remittance.IsActive() {
		t.Fatal("failed release attempts must not change state")
	}
}

func TestReleaseZeroFeeSkipsFeeTransfer(t *testing.T) {
	engine, _, treasury, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.SetPlatformFee(testOwner, 0); err != nil {
		t.Fatalf("SetPlatformFee(0) failed: %v", err)
	}

	id := mustCreate(t, engine, 1000)
	mustContribute(t, engine, testContributorA, id, 1000)
	treasury.transfers = nil

	if err := engine.ReleaseFunds(ctx, testRecipient, id); err != nil {
		t.Fatalf("ReleaseFunds failed: %v", err)
	}
	if len(treasury.transfers) != 1 {
		t.Fatalf("zero fee must skip the fee transfer, got %d transfers", len(treasury.transfers))
	}
	if treasury.transfers[0].amount != "1000" {
		t.Fatalf("expected full payout 1000, got %s", treasury.transfers[0].amount)
	}
}

func TestReleaseTransferFailureCommitsTerminalState(t *testing.T) {
	engine, _, treasury, _ := newTestEngine(t)
	ctx := context.Background()
	id := mustCreate(t, engine, 1000)
	mustContribute(t, engine, testContributorA, id, 1000)

	treasury.failNext = errors.New("custody unreachable")
	if err := engine.ReleaseFunds(ctx, testRecipient, id); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// The released flag was committed before the transfer, so the call
	// cannot be replayed into a double release.
	remittance, _ := engine.GetRemittance(id)
	if !remittance.IsReleased {
		t.Fatal("released flag must be durably set before transfers")
	}
	if err := engine.ReleaseFunds(ctx, testRecipient, id); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("retry after committed release: expected ErrAlreadyReleased, got %v", err)
	}
}

func TestCancelAndClaimRefunds(t *testing.T) {
	engine, _, treasury, _ := newTestEngine(t)
	ctx := context.Background()
	id := mustCreate(t, engine, 1000)
	mustContribute(t, engine, testContributorA, id, 100)
	mustContribute(t, engine, testContributorB, id, 200)

	if err := engine.ClaimRefund(ctx, testContributorA, id); !errors.Is(err, ErrNotCancelled) {
		t.Fatalf("claim before cancel: expected ErrNotCancelled, got %v", err)
	}
	if err := engine.CancelRemittance(ctx, testContributorA, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-creator cancel: expected ErrUnauthorized, got %v", err)
	}
	if err := engine.CancelRemittance(ctx, testCreator, id); err != nil {
		t.Fatalf("CancelRemittance failed: %v", err)
	}

	// Cancellation alone moves no funds.
	if len(treasury.transfers) != 2 {
		t.Fatalf("cancellation must not move funds, transfers: %d", len(treasury.transfers))
	}
	if err := engine.Contribute(ctx, testContributorA, id, models.NewAmount(1)); !errors.Is(err, ErrRemittanceCancelled) {
		t.Fatalf("contribute after cancel: expected ErrRemittanceCancelled, got %v", err)
	}

	treasury.transfers = nil
	if err := engine.ClaimRefund(ctx, testContributorA, id); err != nil {
		t.Fatalf("first claim by A failed: %v", err)
	}
	if err := engine.ClaimRefund(ctx, testContributorB, id); err != nil {
		t.Fatalf("first claim by B failed: %v", err)
	}

	if len(treasury.transfers) != 2 {
		t.Fatalf("expected 2 refund transfers, got %d", len(treasury.transfers))
	}
	if treasury.transfers[0].to != testContributorA || treasury.transfers[0].amount != "100" {
		t.Fatalf("unexpected refund for A: %+v", treasury.transfers[0])
	}
	if treasury.transfers[1].to != testContributorB || treasury.transfers[1].amount != "200" {
		t.Fatalf("unexpected refund for B: %+v", treasury.transfers[1])
	}

	// Second claims fail; the ledger entries stay as history.
	if err := engine.ClaimRefund(ctx, testContributorA, id); !errors.Is(err, ErrRefundAlreadyClaimed) {
		t.Fatalf("second claim by A: expected ErrRefundAlreadyClaimed, got %v", err)
	}
	if err := engine.ClaimRefund(ctx, testContributorB, id); !errors.Is(err, ErrRefundAlreadyClaimed) {
		t.Fatalf("second claim by B: expected ErrRefundAlreadyClaimed, got %v", err)
	}
	amount, _ := engine.GetContribution(id, testContributorA)
	if amount.String() != "100" {
		t.Fatalf("ledger entry must survive the claim, got %s", amount.String())
	}

	// A principal that never contributed has nothing to claim.
	if err := engine.ClaimRefund(ctx, testRecipient, id); !errors.Is(err, ErrNoContribution) {
		t.Fatalf("expected ErrNoContribution, got %v", err)
	}
}

func TestClaimRefundTransferFailureCommitsMarker(t *testing.T) {
	engine, _, treasury, _ := newTestEngine(t)
	ctx := context.Background()
	id := mustCreate(t, engine, 1000)
	mustContribute(t, engine, testContributorA, id, 100)
	if err := engine.CancelRemittance(ctx, testCreator, id); err != nil {
		t.Fatalf("CancelRemittance failed: %v", err)
	}

	treasury.failNext = errors.New("custody unreachable")
	if err := engine.ClaimRefund(ctx, testContributorA, id); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// The marker was committed first, so the claim cannot be paid twice.
	claimed, _ := engine.IsRefundClaimed(id, testContributorA)
	if !claimed {
		t.Fatal("claim marker must be durably set before the transfer")
	}
	if err := engine.ClaimRefund(ctx, testContributorA, id); !errors.Is(err, ErrRefundAlreadyClaimed) {
		t.Fatalf("retry: expected ErrRefundAlreadyClaimed, got %v", err)
	}
}

func TestTerminalStatesAreExclusive(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	released := mustCreate(t, engine, 100)
	mustContribute(t, engine, testContributorA, released, 100)
	if err := engine.ReleaseFunds(ctx, testRecipient, released); err != nil {
		t.Fatalf("ReleaseFunds failed: %v", err)
	}
	if err := engine.CancelRemittance(ctx, testCreator, released); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("cancel after release: expected ErrAlreadyReleased, got %v", err)
	}

	cancelled := mustCreate(t, engine, 100)
	mustContribute(t, engine, testContributorA, cancelled, 100)
	if err := engine.CancelRemittance(ctx, testCreator, cancelled); err != nil {
		t.Fatalf("CancelRemittance failed: %v", err)
	}
	if err := engine.ReleaseFunds(ctx, testRecipient, cancelled); !errors.Is(err, ErrRemittanceCancelled) {
		t.Fatalf("release after cancel: expected ErrRemittanceCancelled, got %v", err)
	}
	if err := engine.CancelRemittance(ctx, testCreator, cancelled); !errors.Is(err, ErrRemittanceCancelled) {
		t.Fatalf("double cancel: expected ErrRemittanceCancelled, got %v", err)
	}

	for _, id := range []uint64{released, cancelled} {
		remittance, _ := engine.GetRemittance(id)
		if remittance.IsReleased && remittance.IsCancelled {
			t.Fatalf("remittance %d has both terminal flags set", id)
		}
	}
}

func TestPauseGatesMutatingOperations(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	id := mustCreate(t, engine, 1000)
	mustContribute(t, engine, testContributorA, id, 1000)

	if err := engine.PauseContract(testCreator); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner pause: expected ErrUnauthorized, got %v", err)
	}
	if err := engine.PauseContract(testOwner); err != nil {
		t.Fatalf("PauseContract failed: %v", err)
	}

	if _, err := engine.CreateRemittance(ctx, testCreator, testRecipient, models.NewAmount(10), "purpose"); !errors.Is(err, ErrContractPaused) {
		t.Fatalf("create while paused: expected ErrContractPaused, got %v", err)
	}
	if err := engine.Contribute(ctx, testContributorA, id, models.NewAmount(1)); !errors.Is(err, ErrContractPaused) {
		t.Fatalf("contribute while paused: expected ErrContractPaused, got %v", err)
	}
	if err := engine.ReleaseFunds(ctx, testRecipient, id); !errors.Is(err, ErrContractPaused) {
		t.Fatalf("release while paused: expected ErrContractPaused, got %v", err)
	}
	if err := engine.CancelRemittance(ctx, testCreator, id); !errors.Is(err, ErrContractPaused) {
		t.Fatalf("cancel while paused: expected ErrContractPaused, got %v", err)
	}
	if err := engine.ClaimRefund(ctx, testContributorA, id); !errors.Is(err, ErrContractPaused) {
		t.Fatalf("claim while paused: expected ErrContractPaused, got %v", err)
	}

	// Reads stay available while paused.
	if _, err := engine.GetRemittance(id); err != nil {
		t.Fatalf("reads must work while paused: %v", err)
	}

	if err := engine.UnpauseContract(testOwner); err != nil {
		t.Fatalf("UnpauseContract failed: %v", err)
	}
	if err := engine.ReleaseFunds(ctx, testRecipient, id); err != nil {
		t.Fatalf("release after unpause failed: %v", err)
	}
}

func TestSetPlatformFee(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	if err := engine.SetPlatformFee(testCreator, 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner: expected ErrUnauthorized, got %v", err)
	}

	if err := engine.SetPlatformFee(testOwner, 100); err != nil {
		t.Fatalf("SetPlatformFee failed: %v", err)
	}
	feeBps, err := engine.GetPlatformFee()
	if err != nil || feeBps != 100 {
		t.Fatalf("expected fee 100, got %d (err %v)", feeBps, err)
	}

	// Over-cap updates fail and leave the prior value unchanged.
	if err := engine.SetPlatformFee(testOwner, 501); !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("expected ErrFeeTooHigh, got %v", err)
	}
	feeBps, _ = engine.GetPlatformFee()
	if feeBps != 100 {
		t.Fatalf("failed update must not change the fee, got %d", feeBps)
	}

	if err := engine.SetPlatformFee(testOwner, 500); err != nil {
		t.Fatalf("cap value 500 must be accepted: %v", err)
	}
}

func TestListIndexes(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	first := mustCreate(t, engine, 100)
	second := mustCreate(t, engine, 200)

	created, err := engine.ListCreatedBy(testCreator)
	if err != nil {
		t.Fatalf("ListCreatedBy failed: %v", err)
	}
	if len(created) != 2 || created[0].ID != first || created[1].ID != second {
		t.Fatalf("unexpected created index: %+v", created)
	}

	incoming, err := engine.ListIncomingTo(testRecipient)
	if err != nil {
		t.Fatalf("ListIncomingTo failed: %v", err)
	}
	if len(incoming) != 2 {
		t.Fatalf("unexpected incoming index: %+v", incoming)
	}

	other, err := engine.ListCreatedBy(testContributorA)
	if err != nil {
		t.Fatalf("ListCreatedBy failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty index for non-creator, got %+v", other)
	}
}
