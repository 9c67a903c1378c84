package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifalibre/rifa-api/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(&config.MercadoPagoConfig{
		AppID:          "app-1",
		AccessToken:    "APP_USR-secret",
		RedirectURL:    "http://localhost:8080/api/v1/users/mercadopago/callback",
		TimeoutSeconds: 2,
	})
	client.baseURL = server.URL

	return client
}

func TestCreatePreference(t *testing.T) {
	t.Run("returns the redirect target", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/checkout/preferences", r.URL.Path)
			assert.Equal(t, "Bearer APP_USR-secret", r.Header.Get("Authorization"))

			var pref Preference
			require.NoError(t, json.NewDecoder(r.Body).Decode(&pref))
			assert.Equal(t, "order-1", pref.ExternalReference)

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(CreatedPreference{
				ID:        "pref-1",
				InitPoint: "https://mp.example/init",
			})
		})

		created, err := client.CreatePreference(context.Background(), Preference{
			ExternalReference: "order-1",
		})

		require.NoError(t, err)
		assert.Equal(t, "https://mp.example/init", created.InitPoint)
	})

	t.Run("missing init_point fails", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(CreatedPreference{ID: "pref-1"})
		})

		_, err := client.CreatePreference(context.Background(), Preference{})

		assert.ErrorIs(t, err, ErrGatewayFailure)
	})

	t.Run("non-2xx fails", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"invalid items"}`, http.StatusBadRequest)
		})

		_, err := client.CreatePreference(context.Background(), Preference{})

		assert.ErrorIs(t, err, ErrGatewayFailure)
	})
}

func TestGetPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/314159", r.URL.Path)

		_ = json.NewEncoder(w).Encode(Payment{
			ID:                314159,
			Status:            PaymentStatusApproved,
			ExternalReference: "order-1",
		})
	})

	payment, err := client.GetPayment(context.Background(), "314159")

	require.NoError(t, err)
	assert.Equal(t, PaymentStatusApproved, payment.Status)
	assert.Equal(t, "order-1", payment.ExternalReference)
}

func TestExchangeCode(t *testing.T) {
	t.Run("returns the access token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/oauth/token", r.URL.Path)

			var req oauthTokenRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "auth-code", req.Code)
			assert.Equal(t, "authorization_code", req.GrantType)

			_ = json.NewEncoder(w).Encode(oauthTokenResponse{AccessToken: "APP_USR-linked"})
		})

		token, err := client.ExchangeCode(context.Background(), "auth-code")

		require.NoError(t, err)
		assert.Equal(t, "APP_USR-linked", token)
	})

	t.Run("missing token fails", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(oauthTokenResponse{})
		})

		_, err := client.ExchangeCode(context.Background(), "auth-code")

		assert.ErrorIs(t, err, ErrGatewayFailure)
	})
}
