package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client authorises external payments (esewa, khalti, card, cod) through a payment
// aggregator that speaks a code/msg JSON envelope.
type Client struct {
	BaseURL    string
	MerchantID string
	Key        string
	Currency   string
	HTTP       *http.Client
	Now        func() time.Time
}

type authorizeReq struct {
	MerchantID string `json:"merchant_id"`
	OrderID    string `json:"order_id"`
	Method     string `json:"method"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

type authorizeData struct {
	Reference string `json:"reference"`
	Captured  bool   `json:"captured"`
}

type authorizeResp struct {
	Code int           `json:"code"`
	Msg  string        `json:"msg"`
	Data authorizeData `json:"data"`
}

// Authorize sends the amount in minor units (paisa) and returns the aggregator reference.
func (c *Client) Authorize(ctx context.Context, method string, amount decimal.Decimal, orderID string) (string, bool, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		return "", false, errors.New("payment method required")
	}
	currency := c.Currency
	if currency == "" {
		currency = "NPR"
	}
	raw, err := json.Marshal(authorizeReq{
		MerchantID: c.MerchantID,
		OrderID:    orderID,
		Method:     method,
		Amount:     amount.Shift(2).Round(0).IntPart(),
		Currency:   currency,
	})
	if err != nil {
		return "", false, err
	}
	var out authorizeResp
	if err := c.post(ctx, "/v1/payments/authorize", raw, &out); err != nil {
		return "", false, err
	}
	if out.Code != 0 {
		return "", false, fmt.Errorf("gateway error: %d %s", out.Code, out.Msg)
	}
	if strings.TrimSpace(out.Data.Reference) == "" {
		return "", false, errors.New("missing payment reference")
	}
	return out.Data.Reference, out.Data.Captured, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return errors.New("gateway base url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorization(http.MethodPost, path, body))
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}

// authorization signs method, path, timestamp, nonce and body with the merchant key.
func (c *Client) authorization(method, path string, body []byte) string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	ts := strconv.FormatInt(now().Unix(), 10)
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	sig := Sign(c.Key, method+"\n"+path+"\n"+ts+"\n"+nonce+"\n"+string(body)+"\n")
	return fmt.Sprintf(`FARMCART-HMAC-SHA256 merchant="%s",nonce="%s",timestamp="%s",signature="%s"`, c.MerchantID, nonce, ts, sig)
}

// Sign returns the hex HMAC-SHA256 of message under key.
func Sign(key, message string) string {
	m := hmac.New(sha256.New, []byte(key))
	m.Write([]byte(message))
	return hex.EncodeToString(m.Sum(nil))
}
