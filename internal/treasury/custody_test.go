package treasury

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casperflow/remitd/internal/models"
	"github.com/casperflow/remitd/pkg/logger"
)

func TestCustodyTransfer(t *testing.T) {
	var received transferRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/transfers" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(transferResponse{Success: true, TxHash: "0xabc"})
	}))
	defer server.Close()

	custody := NewCustody(server.URL, nil, logger.NewNopLogger())
	err := custody.Transfer(context.Background(), "sender", "receiver", models.NewAmount(1500))
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if received.From != "sender" || received.To != "receiver" || received.Amount != "1500" {
		t.Fatalf("unexpected transfer request: %+v", received)
	}
}

func TestCustodyTransferRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transferResponse{Success: false, Error: "insufficient funds"})
	}))
	defer server.Close()

	custody := NewCustody(server.URL, nil, logger.NewNopLogger())
	err := custody.Transfer(context.Background(), "sender", "receiver", models.NewAmount(10))
	if err == nil || !strings.Contains(err.Error(), "insufficient funds") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestCustodyTransferHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	custody := NewCustody(server.URL, nil, logger.NewNopLogger())
	if err := custody.Transfer(context.Background(), "sender", "receiver", models.NewAmount(10)); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestCustodyTransferUnreachable(t *testing.T) {
	custody := NewCustody("http://127.0.0.1:1", nil, logger.NewNopLogger())
	if err := custody.Transfer(context.Background(), "sender", "receiver", models.NewAmount(10)); err == nil {
		t.Fatal("expected error when custody service is unreachable")
	}
}
