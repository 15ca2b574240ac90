package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"saas-api-console/internal/domain"
	"saas-api-console/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*PaystackGateway)(nil)

// PaystackGateway implements adapter.PaymentGateway against the Paystack REST
// API (transaction/initialize + transaction/verify). It never mutates local
// state; both calls are queries against the provider.
type PaystackGateway struct {
	secretKey string
	baseURL   string
	callback  string
	client    *http.Client
}

func NewPaystackGateway(secretKey, baseURL, callbackURL string) (*PaystackGateway, error) {
	if secretKey == "" {
		return nil, errors.New("paystack secret key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	if callbackURL != "" {
		if _, err := url.Parse(callbackURL); err != nil {
			return nil, fmt.Errorf("invalid callback url: %w", err)
		}
	}
	return &PaystackGateway{
		secretKey: secretKey,
		baseURL:   baseURL,
		callback:  callbackURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *PaystackGateway) Name() string { return "paystack" }

// Initiate calls POST /transaction/initialize and returns the redirect URL.
// The internal payment id rides in metadata.payment_id so verification can
// resolve the record even when references diverge.
func (g *PaystackGateway) Initiate(ctx context.Context, req adapter.InitiateRequest) (*adapter.InitiateResult, error) {
	fields := make([]map[string]string, 0, len(req.CustomFields))
	for _, f := range req.CustomFields {
		fields = append(fields, map[string]string{
			"display_name":  f.DisplayName,
			"variable_name": f.VariableName,
			"value":         f.Value,
		})
	}
	payload := map[string]any{
		"email":     req.Email,
		"amount":    req.AmountMinor,
		"reference": req.Reference,
		"currency":  req.Currency,
		"metadata": map[string]any{
			"payment_id":    req.PaymentID,
			"custom_fields": fields,
		},
	}
	if req.CallbackURL != "" {
		payload["callback_url"] = req.CallbackURL
	} else if g.callback != "" {
		payload["callback_url"] = g.callback
	}

	body, err := g.do(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	var out struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed initialize response: %v", domain.ErrGatewayUnavailable, err)
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, out.Message)
	}
	return &adapter.InitiateResult{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		Reference:        out.Data.Reference,
	}, nil
}

// verifyResponse mirrors the subset of GET /transaction/verify/{reference}
// the reconciliation flow consumes.
type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status          string `json:"status"` // success|failed|abandoned|...
		Reference       string `json:"reference"`
		Amount          int64  `json:"amount"` // kobo
		Currency        string `json:"currency"`
		GatewayResponse string `json:"gateway_response"`
		PaidAt          string `json:"paid_at"`
		Channel         string `json:"channel"`
		Customer        struct {
			Email string `json:"email"`
		} `json:"customer"`
		Metadata struct {
			PaymentID    string `json:"payment_id"`
			CustomFields []struct {
				DisplayName  string `json:"display_name"`
				VariableName string `json:"variable_name"`
				Value        string `json:"value"`
			} `json:"custom_fields"`
		} `json:"metadata"`
	} `json:"data"`
}

// Verify calls GET /transaction/verify/{reference} and normalizes the answer.
// Transport failures (timeout, non-2xx, malformed body) wrap
// domain.ErrGatewayUnavailable; a completed call yields an Outcome.
func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*adapter.VerifyResult, error) {
	body, err := g.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var out verifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed verify response: %v", domain.ErrGatewayUnavailable, err)
	}

	// Raw payload travels with the payment record as gateway metadata.
	var raw struct {
		Data map[string]any `json:"data"`
	}
	_ = json.Unmarshal(body, &raw)

	res := &adapter.VerifyResult{
		Reference:     out.Data.Reference,
		AmountMinor:   out.Data.Amount,
		Currency:      out.Data.Currency,
		Email:         out.Data.Customer.Email,
		Channel:       out.Data.Channel,
		Message:       out.Data.GatewayResponse,
		PaymentIDHint: out.Data.Metadata.PaymentID,
		Raw:           raw.Data,
	}
	if res.Reference == "" {
		res.Reference = reference
	}
	for _, f := range out.Data.Metadata.CustomFields {
		res.CustomFields = append(res.CustomFields, adapter.CustomField{
			DisplayName:  f.DisplayName,
			VariableName: f.VariableName,
			Value:        f.Value,
		})
	}
	if t, err := time.Parse(time.RFC3339, out.Data.PaidAt); err == nil {
		res.PaidAt = t
	}

	if out.Data.Status == "success" {
		res.Outcome = adapter.OutcomeSuccess
	} else {
		res.Outcome = adapter.OutcomeNotSuccessful
	}
	return res, nil
}

// do performs one authorized request and returns the body of a 2xx response.
// Anything short of a parseable 2xx answer is a retryable transport failure.
func (g *PaystackGateway) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	return b, nil
}
