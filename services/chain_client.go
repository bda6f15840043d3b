// farcaster-rewards-system/services/chain_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"farcaster-rewards-system/models"
)

// ChainClient talks to the chain relay service that submits mint
// transactions and indexes the NFT contracts. The rewards service never
// signs or decodes chain data itself.
type ChainClient struct {
	BaseURL string
	Token   string
	Client  *http.Client

	// PollInterval paces AwaitConfirmation's status checks.
	PollInterval time.Duration
}

func NewChainClient(baseURL, token string) *ChainClient {
	return &ChainClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		PollInterval: 3 * time.Second,
	}
}

// SubmitMintResponse is the relay's answer to a mint submission.
type SubmitMintResponse struct {
	TxHash string `json:"tx_hash"`
}

// Deployment describes the currently deployed contracts and their supply
// counters, fetched as one consistent snapshot.
type Deployment struct {
	Contracts map[string]string `json:"contracts"` // tier -> contract address
	Supplies  []TierSupplyInfo  `json:"supplies"`
	FetchedAt time.Time         `json:"fetched_at"`
}

type TierSupplyInfo struct {
	Tier        string `json:"tier"`
	Minted      int64  `json:"minted"`
	GlobalLimit int64  `json:"global_limit"`
}

// MintEventInfo is one confirmed mint observed on chain, including mints
// that did not go through this service.
type MintEventInfo struct {
	TxHash      string    `json:"tx_hash"`
	Tier        string    `json:"tier"`
	Fid         int64     `json:"fid"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// SubmitMint asks the relay to submit one mint transaction for the user.
func (c *ChainClient) SubmitMint(ctx context.Context, fid int64, tier string, priceUsd float64) (string, error) {
	reqBody := map[string]interface{}{
		"fid":       fid,
		"tier":      tier,
		"price_usd": priceUsd,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v1/mint", c.BaseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		log.Printf("ChainRelay /v1/mint returned %d: %s", resp.StatusCode, string(body))
		return "", fmt.Errorf("mint submission failed: %d", resp.StatusCode)
	}

	var out SubmitMintResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.TxHash == "" {
		return "", fmt.Errorf("mint submission returned empty tx hash")
	}
	return out.TxHash, nil
}

// TxStatus returns the relay's view of one transaction: pending, confirmed
// or reverted.
func (c *ChainClient) TxStatus(ctx context.Context, txHash string) (models.MintTxStatus, error) {
	u := fmt.Sprintf("%s/v1/tx/%s", c.BaseURL, url.PathEscape(txHash))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("tx status returned %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	switch out.Status {
	case "pending":
		return models.MintTxPending, nil
	case "confirmed":
		return models.MintTxConfirmed, nil
	case "reverted":
		return models.MintTxReverted, nil
	default:
		return "", fmt.Errorf("unknown tx status %q", out.Status)
	}
}

// AwaitConfirmation polls until the transaction reaches a terminal state or
// the window elapses. The returned status is always terminal: confirmed,
// reverted, or timeout.
func (c *ChainClient) AwaitConfirmation(ctx context.Context, txHash string, window time.Duration) (models.MintTxStatus, error) {
	deadline := time.NewTimer(window)
	defer deadline.Stop()
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return models.MintTxTimeout, ctx.Err()
		case <-deadline.C:
			return models.MintTxTimeout, nil
		case <-ticker.C:
			status, err := c.TxStatus(ctx, txHash)
			if err != nil {
				log.Printf("⚠️ tx %s status poll failed: %v", txHash, err)
				continue
			}
			if status != models.MintTxPending {
				return status, nil
			}
		}
	}
}

// GetDeployment fetches contract addresses and global supply counters.
func (c *ChainClient) GetDeployment(ctx context.Context) (*Deployment, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/v1/deployment", c.BaseURL), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("deployment fetch returned %d: %s", resp.StatusCode, string(body))
	}

	var out Deployment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.FetchedAt.IsZero() {
		out.FetchedAt = time.Now().UTC()
	}
	return &out, nil
}

// MintEventsSince returns confirmed mint events observed on chain after the
// given time, for supply reconciliation.
func (c *ChainClient) MintEventsSince(ctx context.Context, since time.Time) ([]MintEventInfo, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v1/mints", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("mint events fetch returned %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Mints []MintEventInfo `json:"mints"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Mints, nil
}
