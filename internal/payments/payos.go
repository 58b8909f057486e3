package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

// PayOSConfig holds the merchant credentials for PayOS.
type PayOSConfig struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
	BaseURL     string
	ReturnURL   string
	CancelURL   string
}

// PayOSAdapter normalizes PayOS webhook payloads. PayOS signs the
// alphabetically-sorted key=value join of the data envelope fields with
// HMAC-SHA256 keyed by the checksum key.
type PayOSAdapter struct {
	config PayOSConfig
	client *http.Client
}

// NewPayOSAdapter creates a PayOS gateway adapter
func NewPayOSAdapter(config PayOSConfig) *PayOSAdapter {
	return &PayOSAdapter{
		config: config,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name implements GatewayAdapter
func (a *PayOSAdapter) Name() string {
	return "payos"
}

// Verify recomputes the data signature and compares it in constant time.
func (a *PayOSAdapter) Verify(payload map[string]string, signature string) bool {
	if signature == "" {
		return false
	}
	expected := a.Sign(payload)
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

// Sign produces the HMAC-SHA256 hex digest over sorted key=value pairs.
func (a *PayOSAdapter) Sign(payload map[string]string) string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		if key == "signature" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, key := range keys {
		if i > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(payload[key])
	}

	mac := hmac.New(sha256.New, []byte(a.config.ChecksumKey))
	mac.Write([]byte(builder.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Normalize maps a PayOS payload onto the canonical event shape.
func (a *PayOSAdapter) Normalize(payload map[string]string) (*CanonicalEvent, error) {
	orderRef := payload["orderCode"]
	if orderRef == "" {
		return nil, apperrors.Validation("payos payload missing orderCode")
	}

	var amount int64
	if raw := payload["amount"]; raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperrors.Validation("payos payload has malformed amount %q", raw)
		}
		amount = parsed
	}

	return &CanonicalEvent{
		OrderRef:    orderRef,
		Status:      payosStatus(payload),
		Amount:      amount,
		ExternalRef: payload["reference"],
	}, nil
}

// CheckoutURL creates a PayOS payment request and returns its hosted link.
// PayOS order codes are numeric, so order references for this method must
// be digit strings.
func (a *PayOSAdapter) CheckoutURL(ctx context.Context, orderRef string, amount int64, description string) (string, error) {
	orderCode, err := strconv.ParseInt(orderRef, 10, 64)
	if err != nil {
		return "", apperrors.Validation("payos order reference %q is not numeric", orderRef)
	}

	signature := a.Sign(map[string]string{
		"amount":      strconv.FormatInt(amount, 10),
		"cancelUrl":   a.config.CancelURL,
		"description": description,
		"orderCode":   orderRef,
		"returnUrl":   a.config.ReturnURL,
	})

	body, err := json.Marshal(map[string]interface{}{
		"orderCode":   orderCode,
		"amount":      amount,
		"description": description,
		"returnUrl":   a.config.ReturnURL,
		"cancelUrl":   a.config.CancelURL,
		"signature":   signature,
	})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(a.config.BaseURL, "/") + "/v2/payment-requests"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", a.config.ClientID)
	req.Header.Set("x-api-key", a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: payos create payment request: %v", apperrors.ErrExternalGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: payos create payment request returned %d", apperrors.ErrExternalGateway, resp.StatusCode)
	}

	var parsed struct {
		Code string `json:"code"`
		Desc string `json:"desc"`
		Data struct {
			CheckoutURL string `json:"checkoutUrl"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: payos response decode: %v", apperrors.ErrExternalGateway, err)
	}
	if parsed.Code != "00" || parsed.Data.CheckoutURL == "" {
		return "", fmt.Errorf("%w: payos rejected payment request: %s", apperrors.ErrExternalGateway, parsed.Desc)
	}
	return parsed.Data.CheckoutURL, nil
}

// Refund calls PayOS's cancel/refund endpoint for a payment link.
func (a *PayOSAdapter) Refund(ctx context.Context, externalRef string, amount int64) error {
	body, err := json.Marshal(map[string]interface{}{
		"cancellationReason": "platform refund",
		"amount":             amount,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v2/payment-requests/%s/cancel", strings.TrimRight(a.config.BaseURL, "/"), externalRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", a.config.ClientID)
	req.Header.Set("x-api-key", a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: payos refund call: %v", apperrors.ErrExternalGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: payos refund returned %d", apperrors.ErrExternalGateway, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("payos refund rejected with status %d", resp.StatusCode)
	}
	return nil
}

func payosStatus(payload map[string]string) CanonicalStatus {
	status := strings.ToUpper(payload["status"])
	switch status {
	case "PAID":
		return CanonicalPaid
	case "CANCELLED":
		return CanonicalCancelled
	case "EXPIRED":
		return CanonicalExpired
	}
	// Webhook success envelopes may only carry code "00".
	if payload["code"] == "00" && status == "" {
		return CanonicalPaid
	}
	return CanonicalPending
}
