package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flexy-hms/payments-api/internal/common"
	"github.com/flexy-hms/payments-api/internal/config"
	"github.com/flexy-hms/payments-api/internal/obs"
	"github.com/flexy-hms/payments-api/internal/resilience"
)

// Wallee implements Client against the Wallee REST API. Authentication uses
// the x-mac request signing scheme: an HMAC-SHA512 over
// version|userId|timestamp|method|path computed with the base64-decoded
// application user secret.
type Wallee struct {
	Creds   config.GatewayCredentials
	BaseURL string
	HTTP    *resilience.HTTPClient

	// TerminalTimeout bounds the blocking perform-transaction call; a
	// cardholder interacting with a terminal takes far longer than an API
	// round trip.
	Timeout         time.Duration
	TerminalTimeout time.Duration
}

const macVersion = "1"

// CreateTransaction opens a transaction at the gateway.
func (w Wallee) CreateTransaction(ctx context.Context, req TransactionCreate) (Transaction, error) {
	var tx Transaction
	q := url.Values{"spaceId": {w.spaceID()}}
	if err := w.call(ctx, http.MethodPost, "/api/transaction/create", q, req, &tx, w.timeout()); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// PaymentPageURL returns the hosted payment page URL for a created transaction.
func (w Wallee) PaymentPageURL(ctx context.Context, transactionID int64) (string, error) {
	q := url.Values{"spaceId": {w.spaceID()}, "id": {strconv.FormatInt(transactionID, 10)}}
	var raw json.RawMessage
	if err := w.call(ctx, http.MethodGet, "/api/transaction-payment-page/payment-page-url", q, nil, &raw, w.timeout()); err != nil {
		return "", err
	}
	// The endpoint returns a bare JSON string.
	var pageURL string
	if err := json.Unmarshal(raw, &pageURL); err != nil {
		pageURL = strings.Trim(strings.TrimSpace(string(raw)), `"`)
	}
	if pageURL == "" {
		return "", common.NewGateway("GATEWAY_EMPTY_RESPONSE", "gateway returned no payment page url", nil)
	}
	return pageURL, nil
}

// TriggerOnTerminal starts the transaction on a physical terminal and blocks
// until the terminal reports a state or the call times out.
func (w Wallee) TriggerOnTerminal(ctx context.Context, transactionID int64, terminalID string) (Transaction, error) {
	q := url.Values{
		"spaceId":            {w.spaceID()},
		"transactionId":      {strconv.FormatInt(transactionID, 10)},
		"terminalIdentifier": {terminalID},
	}
	var tx Transaction
	if err := w.call(ctx, http.MethodPost, "/api/payment-terminal-till/perform-transaction-by-identifier", q, nil, &tx, w.terminalTimeout()); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// CreateToken mints a reusable token bound to a completed transaction.
func (w Wallee) CreateToken(ctx context.Context, transactionID int64) (string, error) {
	q := url.Values{"spaceId": {w.spaceID()}, "transactionId": {strconv.FormatInt(transactionID, 10)}}
	var doc struct {
		ID int64 `json:"id"`
	}
	if err := w.call(ctx, http.MethodPost, "/api/token/create-token", q, nil, &doc, w.timeout()); err != nil {
		return "", err
	}
	if doc.ID == 0 {
		return "", common.NewGateway("GATEWAY_EMPTY_RESPONSE", "gateway returned no token id", nil)
	}
	return strconv.FormatInt(doc.ID, 10), nil
}

// ActiveTokenVersion fetches the presentable instrument details for a token.
// Token creation and version metadata are separate gateway concepts; the
// version carries the card description and brand image.
func (w Wallee) ActiveTokenVersion(ctx context.Context, tokenID string) (TokenVersion, error) {
	q := url.Values{"spaceId": {w.spaceID()}, "id": {tokenID}}
	var doc struct {
		Name                          string `json:"name"`
		PaymentConnectorConfiguration struct {
			ImagePath string `json:"imagePath"`
		} `json:"paymentConnectorConfiguration"`
	}
	if err := w.call(ctx, http.MethodGet, "/api/token-version/active-version", q, nil, &doc, w.timeout()); err != nil {
		return TokenVersion{}, err
	}
	return TokenVersion{Name: doc.Name, ImagePath: doc.PaymentConnectorConfiguration.ImagePath}, nil
}

// ProcessWithToken charges a transaction created with a token reference.
func (w Wallee) ProcessWithToken(ctx context.Context, transactionID int64) (Transaction, error) {
	q := url.Values{"spaceId": {w.spaceID()}, "transactionId": {strconv.FormatInt(transactionID, 10)}}
	var tx Transaction
	if err := w.call(ctx, http.MethodPost, "/api/token/process-transaction", q, nil, &tx, w.timeout()); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// DeleteToken revokes a token at the gateway.
func (w Wallee) DeleteToken(ctx context.Context, tokenID string) error {
	q := url.Values{"spaceId": {w.spaceID()}, "id": {tokenID}}
	return w.call(ctx, http.MethodPost, "/api/token/delete", q, nil, nil, w.timeout())
}

func (w Wallee) call(ctx context.Context, method, path string, query url.Values, body, out any, timeout time.Duration) error {
	start := time.Now()
	defer func() {
		if obs.GatewayCallDuration != nil {
			obs.GatewayCallDuration.WithLabelValues(path).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	pathWithQuery := path
	if encoded := query.Encode(); encoded != "" {
		pathWithQuery += "?" + encoded
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return common.NewGateway("GATEWAY_ENCODE_ERROR", "encode gateway request", err)
		}
		reader = bytes.NewReader(payload)
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, method, strings.TrimRight(w.BaseURL, "/")+pathWithQuery, reader)
	if err != nil {
		return common.NewGateway("GATEWAY_REQUEST_ERROR", "build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	if err := w.sign(req, method, pathWithQuery); err != nil {
		return err
	}

	httpClient := w.HTTP
	if httpClient == nil {
		httpClient = &resilience.HTTPClient{Client: http.DefaultClient}
	}
	resp, err := httpClient.Do(callCtx, req)
	if err != nil {
		return common.NewGateway("GATEWAY_UNREACHABLE", "gateway call failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return common.NewGateway("GATEWAY_READ_ERROR", "read gateway response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return common.NewGateway("GATEWAY_REJECTED",
			fmt.Sprintf("gateway responded %d: %s", resp.StatusCode, snippet(data)), nil)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return common.NewGateway("GATEWAY_DECODE_ERROR", "decode gateway response", err)
	}
	return nil
}

func (w Wallee) sign(req *http.Request, method, pathWithQuery string) error {
	secret, err := base64.StdEncoding.DecodeString(w.Creds.Secret)
	if err != nil {
		// some merchant setups store the raw secret instead of base64
		secret = []byte(w.Creds.Secret)
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	userID := strconv.FormatInt(w.Creds.UserID, 10)
	message := strings.Join([]string{macVersion, userID, timestamp, method, pathWithQuery}, "|")

	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(message))

	req.Header.Set("x-mac-version", macVersion)
	req.Header.Set("x-mac-userid", userID)
	req.Header.Set("x-mac-timestamp", timestamp)
	req.Header.Set("x-mac-value", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return nil
}

func (w Wallee) spaceID() string {
	return strconv.FormatInt(w.Creds.SpaceID, 10)
}

func (w Wallee) timeout() time.Duration {
	if w.Timeout > 0 {
		return w.Timeout
	}
	return 15 * time.Second
}

func (w Wallee) terminalTimeout() time.Duration {
	if w.TerminalTimeout > 0 {
		return w.TerminalTimeout
	}
	return 2 * time.Minute
}

func snippet(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) > 200 {
		return trimmed[:200] + "..."
	}
	return trimmed
}
