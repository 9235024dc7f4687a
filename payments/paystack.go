package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/logging"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/rs/zerolog"
)

const providerPaystack = "paystack"

// PaystackClient implements TransferProvider and PaymentVerifier over the Paystack REST API.
type PaystackClient struct {
	baseURL       string
	secretKey     string
	currency      string
	recipientType string
	bankCode      string
	httpClient    *http.Client
	recipients    *recipientCache
	logger        *zerolog.Logger
}

func NewPaystackClient(cfg configs.PaystackConfig, logger *zerolog.Logger) *PaystackClient {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PaystackClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:     cfg.SecretKey,
		currency:      cfg.Currency,
		recipientType: cfg.RecipientType,
		bankCode:      cfg.BankCode,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		recipients:    newRecipientCache(cfg.RecipientTTL),
		logger:        logger,
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type transferData struct {
	TransferCode string `json:"transfer_code"`
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	Failures     *struct {
		Reason string `json:"reason"`
	} `json:"failures"`
}

func (d transferData) toTransfer() *Transfer {
	t := &Transfer{
		TransferCode: d.TransferCode,
		Reference:    d.Reference,
		Status:       d.Status,
		Outcome:      TransferOutcome(d.Status),
	}
	if d.Failures != nil {
		t.FailureReason = d.Failures.Reason
	}
	return t
}

func (c *PaystackClient) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &workflow.ExternalProviderError{Provider: providerPaystack, Op: op, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &workflow.ExternalProviderError{Provider: providerPaystack, Op: op, Retryable: true, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= 300 || decodeErr != nil || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn().
			Str("op", op).
			Int("status", resp.StatusCode).
			Str("message", msg).
			Msg("paystack request failed")
		return &workflow.ExternalProviderError{
			Provider:   providerPaystack,
			Op:         op,
			StatusCode: resp.StatusCode,
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Err:        errors.New(msg),
		}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &workflow.ExternalProviderError{Provider: providerPaystack, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return nil
}

func (c *PaystackClient) recipientCode(ctx context.Context, name, mpesaNumber string) (string, error) {
	return c.recipients.getOrCreate(mpesaNumber, func() (string, error) {
		// Paystack expects the local 07XX / 01XX form for Kenyan mobile money.
		account := mpesaNumber
		if strings.HasPrefix(account, "254") {
			account = "0" + account[3:]
		}
		var data struct {
			RecipientCode string `json:"recipient_code"`
		}
		err := c.do(ctx, "create_recipient", http.MethodPost, "/transferrecipient", map[string]string{
			"type":           c.recipientType,
			"name":           name,
			"account_number": account,
			"bank_code":      c.bankCode,
			"currency":       c.currency,
		}, &data)
		if err != nil {
			return "", err
		}
		if data.RecipientCode == "" {
			return "", &workflow.ExternalProviderError{Provider: providerPaystack, Op: "create_recipient", Err: errors.New("empty recipient code")}
		}
		return data.RecipientCode, nil
	})
}

func (c *PaystackClient) InitiateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	recipient, err := c.recipientCode(ctx, req.RecipientName, req.MpesaNumber)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}

	var data transferData
	err = c.do(ctx, "initiate_transfer", http.MethodPost, "/transfer", map[string]interface{}{
		"source":    "balance",
		"amount":    toSubunits(req.Amount),
		"recipient": recipient,
		"reference": req.Reference,
		"reason":    req.Reason,
		"currency":  currency,
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.TransferCode == "" {
		return nil, &workflow.ExternalProviderError{Provider: providerPaystack, Op: "initiate_transfer", Retryable: true, Err: errors.New("response had no transfer code")}
	}
	return data.toTransfer(), nil
}

func (c *PaystackClient) FinalizeTransfer(ctx context.Context, transferCode, otp string) (*Transfer, error) {
	var data transferData
	err := c.do(ctx, "finalize_transfer", http.MethodPost, "/transfer/finalize_transfer", map[string]string{
		"transfer_code": transferCode,
		"otp":           otp,
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.TransferCode == "" {
		data.TransferCode = transferCode
	}
	return data.toTransfer(), nil
}

func (c *PaystackClient) VerifyTransfer(ctx context.Context, reference string) (*Transfer, error) {
	var data transferData
	if err := c.do(ctx, "verify_transfer", http.MethodGet, "/transfer/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, err
	}
	return data.toTransfer(), nil
}

func (c *PaystackClient) VerifyPayment(ctx context.Context, reference string) (*PaymentVerification, error) {
	var data struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	}
	if err := c.do(ctx, "verify_payment", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, err
	}
	return &PaymentVerification{
		Reference: data.Reference,
		Status:    data.Status,
		Amount:    float64(data.Amount) / 100,
		Currency:  data.Currency,
	}, nil
}

// VerifySignature checks the x-paystack-signature header: HMAC-SHA512 of the raw body.
func (c *PaystackClient) VerifySignature(body []byte, signature string) bool {
	if c.secretKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference    string `json:"reference"`
		TransferCode string `json:"transfer_code"`
		Status       string `json:"status"`
	} `json:"data"`
}

// IsTransfer reports whether the event concerns an outgoing transfer.
func (e *WebhookEvent) IsTransfer() bool {
	return strings.HasPrefix(e.Event, "transfer.")
}

func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, workflow.Invalid("body", "malformed webhook payload")
	}
	if ev.Event == "" {
		return nil, workflow.Invalid("event", "is required")
	}
	return &ev, nil
}

func toSubunits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
