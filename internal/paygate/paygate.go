// Package paygate talks to the card/UPI/wallet payment gateway. Settlement is
// client-mediated: the server registers a gateway order, the buyer completes
// the flow in the client, and the success callback is verified against the
// gateway's HMAC signature before the order is marked paid.
package paygate

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

type Client struct {
	URL    string
	KeyID  string
	Secret string
	HTTP   *http.Client
}

func NewClient(url, keyID, secret string) *Client {
	return &Client{
		URL:    url,
		KeyID:  keyID,
		Secret: secret,
		HTTP:   &http.Client{Timeout: 15 * time.Second},
	}
}

type GatewayOrder struct {
	ID         string `json:"id"`
	PaymentURL string `json:"payment_url"`
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder registers an order with the gateway. Amount is converted to the
// currency's smallest unit as the gateway expects.
func (c *Client) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*GatewayOrder, error) {
	payload := createOrderRequest{
		Amount:   int64(math.Round(amount * 100)),
		Currency: currency,
		Receipt:  receipt,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("paygate: marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/orders", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("paygate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.Secret)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paygate: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paygate: gateway returned %d: %s", resp.StatusCode, body)
	}

	var out GatewayOrder
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("paygate: parse response: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("paygate: gateway returned empty order id")
	}
	return &out, nil
}

// VerifySignature authenticates a payment-success callback. The gateway signs
// "<gateway_order_id>|<payment_id>" with the shared secret.
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.Secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
