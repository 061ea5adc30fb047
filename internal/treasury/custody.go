package treasury

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/casperflow/remitd/internal/models"
	"github.com/casperflow/remitd/pkg/logger"
)

// transferRequest is the JSON body sent to the custody service.
type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// transferResponse is the custody service's reply. The transaction hash is
// used to confirm on-chain settlement.
type transferResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"tx_hash"`
	Error   string `json:"error"`
}

// Custody executes value transfers through an external custody service and,
// when a chain client is configured, waits for the settlement transaction to
// be confirmed on chain. Either the whole move happens or none of it does,
// as far as the caller can observe.
type Custody struct {
	logger  *logger.Logger
	baseURL string
	client  *http.Client
	chain   *Chain
}

// NewCustody creates a custody-backed treasury. chain may be nil, in which
// case the custody service's reply is trusted without receipt confirmation.
func NewCustody(baseURL string, chain *Chain, logger *logger.Logger) *Custody {
	return &Custody{
		logger:  logger,
		baseURL: baseURL,
		chain:   chain,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Transfer moves amount in motes from one account to another.
func (t *Custody) Transfer(ctx context.Context, from, to string, amount *models.Amount) error {
	body, err := json.Marshal(transferRequest{
		From:   from,
		To:     to,
		Amount: amount.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("custody service unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read custody response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("custody service returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result transferResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("failed to decode custody response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("custody service rejected transfer: %s", result.Error)
	}

	if t.chain != nil && result.TxHash != "" {
		if err := t.chain.WaitForSettlement(ctx, result.TxHash); err != nil {
			return fmt.Errorf("settlement not confirmed: %w", err)
		}
	}

	t.logger.Debug("Transfer settled ", "from ", from, "to ", to, "amount ", amount.String(), "tx ", result.TxHash)
	return nil
}
