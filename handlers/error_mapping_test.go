package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"farcaster-rewards-system/ledger"
	"farcaster-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"cooldown rejection", &ledger.Rejection{Reason: ledger.ReasonClaimOnCooldown, RetryAfter: 6 * time.Hour}, fiber.StatusConflict},
		{"below minimum", &ledger.Rejection{Reason: ledger.ReasonBelowMinimum}, fiber.StatusUnprocessableEntity},
		{"mint limit", &ledger.Rejection{Reason: ledger.ReasonMintLimitReached}, fiber.StatusConflict},
		{"task not found", services.ErrTaskNotFound, fiber.StatusNotFound},
		{"referral code not found", services.ErrReferralCodeNotFound, fiber.StatusNotFound},
		{"task already completed", services.ErrTaskAlreadyCompleted, fiber.StatusConflict},
		{"already referred", services.ErrAlreadyReferred, fiber.StatusConflict},
		{"self referral", services.ErrSelfReferral, fiber.StatusConflict},
		{"supply exhausted", services.ErrSupplyExhausted, fiber.StatusConflict},
		{"unknown tier", ledger.ErrUnknownTier, fiber.StatusBadRequest},
		{"mint reverted", services.ErrMintReverted, fiber.StatusBadGateway},
		{"mint timeout", services.ErrMintTimeout, fiber.StatusGatewayTimeout},
		{"infra failure", errors.New("connection refused"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/x", func(c *fiber.Ctx) error {
				return respondDomainError(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestRespondDomainError_CooldownBody(t *testing.T) {
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		return respondDomainError(c, &ledger.Rejection{
			Reason:     ledger.ReasonClaimOnCooldown,
			RetryAfter: 90 * time.Minute,
		})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Error             string `json:"error"`
		Reason            string `json:"reason"`
		RetryAfterSeconds int64  `json:"retry_after_seconds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Reason != string(ledger.ReasonClaimOnCooldown) {
		t.Errorf("reason = %q, want %q", body.Reason, ledger.ReasonClaimOnCooldown)
	}
	if body.RetryAfterSeconds != 5400 {
		t.Errorf("retry_after_seconds = %d, want 5400", body.RetryAfterSeconds)
	}
}
