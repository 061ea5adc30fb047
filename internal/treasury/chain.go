package treasury

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/core/types"
	"github.com/core-coin/go-core/v2/xcbclient"

	"github.com/casperflow/remitd/pkg/logger"
)

const (
	// receiptPollInterval is how often a pending settlement is re-checked.
	receiptPollInterval = 2 * time.Second
	// receiptTimeout bounds how long a single settlement may stay pending.
	receiptTimeout = 90 * time.Second
)

// Chain wraps the RPC client used to confirm that settlement transactions
// submitted by the custody service actually landed on chain.
type Chain struct {
	logger *logger.Logger
	apiURL string

	mu     sync.Mutex
	client *xcbclient.Client
}

// NewChain creates a new Chain instance.
func NewChain(apiURL string, logger *logger.Logger) *Chain {
	return &Chain{apiURL: apiURL, logger: logger}
}

func (c *Chain) Run() error {
	return c.ConnectToRPC()
}

func (c *Chain) ConnectToRPC() error {
	client, err := xcbclient.Dial(c.apiURL)
	if err != nil {
		return fmt.Errorf("failed to connect to the core RPC server: %w", err)
	}
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	return nil
}

func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	return nil
}

func (c *Chain) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	hash := common.HexToHash(txHash)
	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	return receipt, nil
}

// WaitForSettlement polls for the receipt of a settlement transaction until
// it succeeds, fails, or the timeout expires.
func (c *Chain) WaitForSettlement(ctx context.Context, txHash string) error {
	ctx, cancel := context.WithTimeout(ctx, receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.GetTransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("settlement transaction %s reverted", txHash)
			}
			return nil
		}
		c.logger.Debug("Settlement receipt not available yet ", "tx ", txHash, "error ", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for settlement %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}
