package acquirer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eduwebgroup/affipay/acquirer/models"
	"github.com/eduwebgroup/affipay/internal/affipay"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, g *fakeGateway) (chi.Router, *Repository) {
	t.Helper()
	svc, repo := newTestService(t, affipay.EnvSandbox, g)
	router := chi.NewRouter()
	NewAPI(svc).AppendRoutes(router)
	return router, repo
}

func TestAPITransactions(t *testing.T) {
	g := newFakeGateway(t)
	router, repo := newTestRouter(t, g)
	storedToken(t, repo)

	var tx models.Transaction

	t.Run("create transaction", func(t *testing.T) {
		body := map[string]any{
			"reference":  "SO001",
			"amount":     "15.50",
			"currency":   "MXN",
			"partner_id": "partner-1",
			"token_id":   "tok-1",
		}
		jsonReq, _ := json.Marshal(body)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/transactions", bytes.NewBuffer(jsonReq))
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))
		require.Equal(t, models.TransactionStateDraft, tx.State)
		require.NotEmpty(t, tx.ID)
	})

	t.Run("charge approved", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/transactions/"+tx.ID+"/charge", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success     bool                `json:"success"`
			Transaction *models.Transaction `json:"transaction"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.True(t, resp.Success)
		require.Equal(t, models.TransactionStateDone, resp.Transaction.State)
		require.Equal(t, "abc123", resp.Transaction.AcquirerReference)
	})

	t.Run("get transaction", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/transactions/"+tx.ID, nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/transactions/nope", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAPIChargeDeclinedIsNotAnHTTPError(t *testing.T) {
	g := newFakeGateway(t)
	g.chargeJSON = `{"status": false, "error": {"code": "05", "description": "Declined by issuer"}}`
	router, repo := newTestRouter(t, g)
	storedToken(t, repo)

	body := []byte(`{"reference": "SO002", "amount": "10.00", "currency": "MXN", "partner_id": "partner-1", "token_id": "tok-1"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/transactions", bytes.NewBuffer(body))
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var tx models.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/transactions/"+tx.ID+"/charge", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success     bool                `json:"success"`
		Transaction *models.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, models.TransactionStateError, resp.Transaction.State)
}

func TestAPIChargeUnsupportedCurrency(t *testing.T) {
	g := newFakeGateway(t)
	router, repo := newTestRouter(t, g)
	storedToken(t, repo)

	body := []byte(`{"reference": "SO003", "amount": "10.00", "currency": "USD", "partner_id": "partner-1", "token_id": "tok-1"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/transactions", bytes.NewBuffer(body))
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var tx models.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/transactions/"+tx.ID+"/charge", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAPICreateToken(t *testing.T) {
	g := newFakeGateway(t)
	router, _ := newTestRouter(t, g)

	t.Run("valid card", func(t *testing.T) {
		body := []byte(`{
			"card": {"cc_number": "4111 1111 1111 1111", "cc_brand": "visa", "cc_holder_name": "JUAN PEREZ", "cc_expiry": "04/27", "cc_cvc": "123"},
			"customer": {"name": "Juan Perez", "country_code": "MX"}
		}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/partners/partner-1/tokens", bytes.NewBuffer(body))
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var token models.CardToken
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))
		require.Equal(t, "card-ref-9", token.AcquirerRef)
		require.Equal(t, "partner-1", token.PartnerID)
	})

	t.Run("incomplete card", func(t *testing.T) {
		body := []byte(`{"card": {"cc_number": "4111111111111111"}}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/partners/partner-1/tokens", bytes.NewBuffer(body))
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list tokens", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/partners/partner-1/tokens", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var tokens []*models.CardToken
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
		require.Len(t, tokens, 1)
	})
}
