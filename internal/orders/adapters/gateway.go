package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPPaymentGateway implements PaymentGateway against the processor's
// payment-intents REST API. Transient failures are retried with backoff;
// the engine surfaces anything that survives the retries as a gateway
// error, leaving the order untouched.
type HTTPPaymentGateway struct {
	baseURL   string
	secretKey string
	client    *retryablehttp.Client
}

// NewHTTPPaymentGateway creates a gateway client with a hard timeout
func NewHTTPPaymentGateway(baseURL, secretKey string, timeout time.Duration, retryMax int) *HTTPPaymentGateway {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	return &HTTPPaymentGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    client,
	}
}

type intentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// CreateIntent registers a payment with the processor and returns the
// client-confirmable secret. The amount is in the currency's smallest unit.
func (g *HTTPPaymentGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (string, error) {
	body, err := json.Marshal(intentRequest{
		Amount:   amountCents,
		Currency: currency,
		Metadata: metadata,
	})
	if err != nil {
		return "", fmt.Errorf("marshal intent request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/payment_intents", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call payment processor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("payment processor returned status %d", resp.StatusCode)
	}

	var intent intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return "", fmt.Errorf("decode intent response: %w", err)
	}
	if intent.ClientSecret == "" {
		return "", fmt.Errorf("payment processor returned no client secret")
	}

	return intent.ClientSecret, nil
}
