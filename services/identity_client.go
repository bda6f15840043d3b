// farcaster-rewards-system/services/identity_client.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// IdentityClient verifies Farcaster sign-ins against the identity service.
// The rewards service never checks signatures itself; it trusts the
// verifier and treats the returned fid as opaque and stable.
type IdentityClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// VerifySignInResponse carries the identity established for a session.
type VerifySignInResponse struct {
	Fid         int64   `json:"fid"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

func NewIdentityClient(baseURL, token string) *IdentityClient {
	return &IdentityClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// VerifySignIn validates a client-supplied Farcaster auth token and returns
// the verified identity.
func (c *IdentityClient) VerifySignIn(authToken string) (*VerifySignInResponse, error) {
	url := fmt.Sprintf("%s/v1/signin/verify", c.BaseURL)

	reqBody := map[string]interface{}{
		"token": authToken,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("IdentityService /signin/verify returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("sign-in verification failed: %d", resp.StatusCode)
	}

	var out VerifySignInResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.Fid <= 0 {
		return nil, fmt.Errorf("sign-in verification returned invalid fid %d", out.Fid)
	}
	return &out, nil
}
