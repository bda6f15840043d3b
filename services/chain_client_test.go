package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"farcaster-rewards-system/models"
)

func relayStub(t *testing.T, status func() string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":%q}`, status())
	}))
}

func testChainClient(baseURL string) *ChainClient {
	c := NewChainClient(baseURL, "test-token")
	c.PollInterval = 5 * time.Millisecond
	return c
}

func TestTxStatus_Mapping(t *testing.T) {
	tests := []struct {
		relay   string
		want    models.MintTxStatus
		wantErr bool
	}{
		{"pending", models.MintTxPending, false},
		{"confirmed", models.MintTxConfirmed, false},
		{"reverted", models.MintTxReverted, false},
		{"dropped", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.relay, func(t *testing.T) {
			srv := relayStub(t, func() string { return tt.relay })
			defer srv.Close()

			got, err := testChainClient(srv.URL).TxStatus(context.Background(), "0xabc")
			if (err != nil) != tt.wantErr {
				t.Fatalf("TxStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("TxStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

// A relay stuck on pending must yield a clean timeout outcome, not an error:
// the caller keeps the transaction row pending for the reconciler to settle.
func TestAwaitConfirmation_WindowExpiry(t *testing.T) {
	srv := relayStub(t, func() string { return "pending" })
	defer srv.Close()

	status, err := testChainClient(srv.URL).AwaitConfirmation(context.Background(), "0xabc", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("AwaitConfirmation() error = %v", err)
	}
	if status != models.MintTxTimeout {
		t.Errorf("AwaitConfirmation() = %q, want %q", status, models.MintTxTimeout)
	}
}

func TestAwaitConfirmation_EventualConfirm(t *testing.T) {
	var polls int64
	srv := relayStub(t, func() string {
		if atomic.AddInt64(&polls, 1) < 3 {
			return "pending"
		}
		return "confirmed"
	})
	defer srv.Close()

	status, err := testChainClient(srv.URL).AwaitConfirmation(context.Background(), "0xabc", 5*time.Second)
	if err != nil {
		t.Fatalf("AwaitConfirmation() error = %v", err)
	}
	if status != models.MintTxConfirmed {
		t.Errorf("AwaitConfirmation() = %q, want %q", status, models.MintTxConfirmed)
	}
}

func TestAwaitConfirmation_Reverted(t *testing.T) {
	srv := relayStub(t, func() string { return "reverted" })
	defer srv.Close()

	status, err := testChainClient(srv.URL).AwaitConfirmation(context.Background(), "0xabc", 5*time.Second)
	if err != nil {
		t.Fatalf("AwaitConfirmation() error = %v", err)
	}
	if status != models.MintTxReverted {
		t.Errorf("AwaitConfirmation() = %q, want %q", status, models.MintTxReverted)
	}
}

func TestAwaitConfirmation_ContextCancel(t *testing.T) {
	srv := relayStub(t, func() string { return "pending" })
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := testChainClient(srv.URL).AwaitConfirmation(ctx, "0xabc", 5*time.Second)
	if err == nil {
		t.Fatal("AwaitConfirmation() expected context error")
	}
	if status != models.MintTxTimeout {
		t.Errorf("AwaitConfirmation() = %q, want %q", status, models.MintTxTimeout)
	}
}
