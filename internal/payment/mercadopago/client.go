// Package mercadopago is the payment-gateway adapter: checkout-preference
// creation, payment lookup, OAuth code exchange and webhook signature
// verification. Only the wire contract lives here; no business rules.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rifalibre/rifa-api/internal/config"
)

const defaultBaseURL = "https://api.mercadopago.com"

var (
	// ErrGatewayFailure wraps any non-success response from the gateway.
	// The caller surfaces it to the buyer; the order stays pending and
	// retry is a manual re-checkout, never automatic.
	ErrGatewayFailure = errors.New("payment gateway request failed")
)

type Client struct {
	conf       *config.MercadoPagoConfig
	baseURL    string
	httpClient *http.Client
}

func NewClient(conf *config.MercadoPagoConfig) *Client {
	timeout := time.Duration(conf.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		conf:    conf,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type PreferenceItem struct {
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	CurrencyID string `json:"currency_id"`
}

type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type Preference struct {
	Items             []PreferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	BackURLs          BackURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return"`
	NotificationURL   string           `json:"notification_url,omitempty"`
}

type CreatedPreference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type Payment struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

const PaymentStatusApproved = "approved"

// CreatePreference registers a checkout session and returns the redirect
// target (init_point) for the buyer.
func (c *Client) CreatePreference(ctx context.Context, pref Preference) (CreatedPreference, error) {
	var created CreatedPreference
	if err := c.post(ctx, "/checkout/preferences", pref, &created); err != nil {
		return CreatedPreference{}, err
	}
	if created.InitPoint == "" {
		return CreatedPreference{}, fmt.Errorf("%w: preference response missing init_point", ErrGatewayFailure)
	}

	return created, nil
}

// GetPayment resolves a webhook's data.id into the payment's status and
// external_reference.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (Payment, error) {
	var payment Payment
	if err := c.get(ctx, "/v1/payments/"+paymentID, &payment); err != nil {
		return Payment{}, err
	}

	return payment, nil
}

type oauthTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
	GrantType    string `json:"grant_type"`
	RedirectURI  string `json:"redirect_uri"`
}

type oauthTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// ExchangeCode trades an account-linking authorization code for the
// organizer's access credential. The credential is opaque to the rest of
// the system.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	req := oauthTokenRequest{
		ClientID:     c.conf.AppID,
		ClientSecret: c.conf.AccessToken,
		Code:         code,
		GrantType:    "authorization_code",
		RedirectURI:  c.conf.RedirectURL,
	}

	var resp oauthTokenResponse
	if err := c.post(ctx, "/oauth/token", req, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: token response missing access_token", ErrGatewayFailure)
	}

	return resp.AccessToken, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.conf.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %v %v: %s", ErrGatewayFailure, req.Method, resp.StatusCode, body)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrGatewayFailure, err)
	}

	return nil
}
