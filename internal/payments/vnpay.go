package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

// VNPayConfig holds the merchant credentials for VNPay.
type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	RefundURL  string
	ReturnURL  string
}

// VNPayAdapter normalizes VNPay IPN and return-redirect payloads. VNPay
// signs the alphabetically-sorted, URL-encoded key=value join of every
// vnp_ field except the signature fields with HMAC-SHA512.
type VNPayAdapter struct {
	config VNPayConfig
	client *http.Client
}

// NewVNPayAdapter creates a VNPay gateway adapter
func NewVNPayAdapter(config VNPayConfig) *VNPayAdapter {
	return &VNPayAdapter{
		config: config,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name implements GatewayAdapter
func (a *VNPayAdapter) Name() string {
	return "vnpay"
}

// Verify recomputes the payload signature and compares it in constant time.
func (a *VNPayAdapter) Verify(payload map[string]string, signature string) bool {
	if signature == "" {
		return false
	}
	expected := a.Sign(payload)
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

// Sign produces the HMAC-SHA512 hex digest of the canonical string.
func (a *VNPayAdapter) Sign(payload map[string]string) string {
	mac := hmac.New(sha512.New, []byte(a.config.HashSecret))
	mac.Write([]byte(canonicalQuery(payload, "vnp_SecureHash", "vnp_SecureHashType")))
	return hex.EncodeToString(mac.Sum(nil))
}

// Normalize maps a VNPay payload onto the canonical event shape.
func (a *VNPayAdapter) Normalize(payload map[string]string) (*CanonicalEvent, error) {
	orderRef := payload["vnp_TxnRef"]
	if orderRef == "" {
		return nil, apperrors.Validation("vnpay payload missing vnp_TxnRef")
	}

	// VNPay wire amounts are multiplied by 100.
	var amount int64
	if raw := payload["vnp_Amount"]; raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperrors.Validation("vnpay payload has malformed vnp_Amount %q", raw)
		}
		amount = parsed / 100
	}

	return &CanonicalEvent{
		OrderRef:    orderRef,
		Status:      vnpayStatus(payload["vnp_ResponseCode"], payload["vnp_TransactionStatus"]),
		Amount:      amount,
		ExternalRef: payload["vnp_TransactionNo"],
	}, nil
}

// CheckoutURL builds the signed hosted-checkout URL for an open order.
// The signature covers the same canonical query the gateway echoes back.
func (a *VNPayAdapter) CheckoutURL(_ context.Context, orderRef string, amount int64, description string) (string, error) {
	now := time.Now().UTC()
	payload := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    a.config.TmnCode,
		"vnp_Amount":     strconv.FormatInt(amount*100, 10),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     orderRef,
		"vnp_OrderInfo":  description,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  a.config.ReturnURL,
		"vnp_CreateDate": now.Format("20060102150405"),
		"vnp_ExpireDate": now.Add(15 * time.Minute).Format("20060102150405"),
	}

	query := canonicalQuery(payload)
	return fmt.Sprintf("%s?%s&vnp_SecureHash=%s", a.config.PayURL, query, a.Sign(payload)), nil
}

// Refund calls VNPay's refund endpoint. Runs outside any database
// transaction; the committed ledger debit is the source of truth.
func (a *VNPayAdapter) Refund(ctx context.Context, externalRef string, amount int64) error {
	body := map[string]interface{}{
		"vnp_TmnCode":       a.config.TmnCode,
		"vnp_TransactionNo": externalRef,
		"vnp_Amount":        amount * 100,
		"vnp_Command":       "refund",
		"vnp_CreateDate":    time.Now().UTC().Format("20060102150405"),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.RefundURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: vnpay refund call: %v", apperrors.ErrExternalGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: vnpay refund returned %d", apperrors.ErrExternalGateway, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vnpay refund rejected with status %d", resp.StatusCode)
	}
	return nil
}

func vnpayStatus(responseCode, transactionStatus string) CanonicalStatus {
	// vnp_TransactionStatus wins when present; the IPN carries both.
	code := transactionStatus
	if code == "" {
		code = responseCode
	}
	switch code {
	case "00":
		return CanonicalPaid
	case "24":
		return CanonicalCancelled
	case "11":
		return CanonicalExpired
	default:
		return CanonicalPending
	}
}

// canonicalQuery builds the provider canonical string: alphabetically sorted
// key=value pairs with URL-encoded values, joined by "&", skipping excluded
// keys and empty values.
func canonicalQuery(payload map[string]string, exclude ...string) string {
	skip := make(map[string]bool, len(exclude))
	for _, key := range exclude {
		skip[key] = true
	}

	keys := make([]string, 0, len(payload))
	for key, value := range payload {
		if skip[key] || value == "" {
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
		builder.WriteString(url.QueryEscape(payload[key]))
	}
	return builder.String()
}
