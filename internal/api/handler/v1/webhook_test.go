package v1

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifalibre/rifa-api/internal/config"
)

type fakeSettler struct {
	kinds   []string
	dataIDs []string
	err     error
}

func (f *fakeSettler) HandleWebhookEvent(_ context.Context, kind, dataID string) error {
	f.kinds = append(f.kinds, kind)
	f.dataIDs = append(f.dataIDs, dataID)

	return f.err
}

func newWebhookRouter(conf *config.MercadoPagoConfig, settler *fakeSettler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhooks/mercadopago", NewWebhookHandler(conf, settler).HandleMercadoPagoWebhook)

	return router
}

func signWebhook(secret, dataID, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)))

	return fmt.Sprintf("ts=%v,v1=%v", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, router *gin.Engine, url, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	return recorder
}

func TestHandleMercadoPagoWebhook(t *testing.T) {
	const (
		secret    = "whsec_test"
		dataID    = "314159"
		requestID = "req-42"
		ts        = "1704908010"
	)

	conf := &config.MercadoPagoConfig{WebhookSecret: secret}
	body := `{"action":"payment.created","type":"payment","data":{"id":"314159"}}`
	url := "/webhooks/mercadopago?data.id=" + dataID

	t.Run("verified notification is dispatched", func(t *testing.T) {
		settler := &fakeSettler{}
		router := newWebhookRouter(conf, settler)

		recorder := postWebhook(t, router, url, body, map[string]string{
			"x-signature":  signWebhook(secret, dataID, requestID, ts),
			"x-request-id": requestID,
		})

		assert.Equal(t, http.StatusOK, recorder.Code)
		require.Len(t, settler.kinds, 1)
		assert.Equal(t, "payment.created", settler.kinds[0])
		assert.Equal(t, dataID, settler.dataIDs[0])
	})

	t.Run("signature mismatch is 401 and never dispatched", func(t *testing.T) {
		settler := &fakeSettler{}
		router := newWebhookRouter(conf, settler)

		recorder := postWebhook(t, router, url, body, map[string]string{
			"x-signature":  signWebhook("other-secret", dataID, requestID, ts),
			"x-request-id": requestID,
		})

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Empty(t, settler.kinds)
	})

	t.Run("malformed signature header is 400", func(t *testing.T) {
		settler := &fakeSettler{}
		router := newWebhookRouter(conf, settler)

		recorder := postWebhook(t, router, url, body, map[string]string{
			"x-signature":  "garbage",
			"x-request-id": requestID,
		})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Empty(t, settler.kinds)
	})

	t.Run("missing signature header is 400", func(t *testing.T) {
		settler := &fakeSettler{}
		router := newWebhookRouter(conf, settler)

		recorder := postWebhook(t, router, url, body, nil)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Empty(t, settler.kinds)
	})

	t.Run("missing secret rejects even a correctly keyed signature", func(t *testing.T) {
		settler := &fakeSettler{}
		router := newWebhookRouter(&config.MercadoPagoConfig{WebhookSecret: ""}, settler)

		// Signed with the empty key, which any sender can compute.
		recorder := postWebhook(t, router, url, body, map[string]string{
			"x-signature":  signWebhook("", dataID, requestID, ts),
			"x-request-id": requestID,
		})

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Empty(t, settler.kinds)
	})

	t.Run("unverified mode accepts unsigned notifications", func(t *testing.T) {
		settler := &fakeSettler{}
		router := newWebhookRouter(&config.MercadoPagoConfig{
			WebhookSecret:           secret,
			AllowUnverifiedWebhooks: true,
		}, settler)

		recorder := postWebhook(t, router, url, body, nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		require.Len(t, settler.kinds, 1)
	})

	t.Run("data id falls back to the body", func(t *testing.T) {
		settler := &fakeSettler{}
		router := newWebhookRouter(&config.MercadoPagoConfig{
			WebhookSecret:           secret,
			AllowUnverifiedWebhooks: true,
		}, settler)

		recorder := postWebhook(t, router, "/webhooks/mercadopago", body, nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		require.Len(t, settler.dataIDs, 1)
		assert.Equal(t, "314159", settler.dataIDs[0])
	})

	t.Run("invalid json body is 400", func(t *testing.T) {
		settler := &fakeSettler{}
		router := newWebhookRouter(conf, settler)

		recorder := postWebhook(t, router, url, "{not json", nil)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}
