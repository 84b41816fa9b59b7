package acquirer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eduwebgroup/affipay/acquirer/models"
	"github.com/eduwebgroup/affipay/internal/affipay"
	"github.com/go-chi/chi/v5"
)

// API is the HTTP surface the host platform calls into.
type API struct {
	acquirer *Service
}

func NewAPI(acquirer *Service) *API {
	return &API{
		acquirer: acquirer,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", a.createTransaction)
		r.Route("/{transactionID}", func(r chi.Router) {
			r.Get("/", a.getTransaction)
			r.Post("/charge", a.charge)
		})
	})
	r.Route("/partners/{partnerID}/tokens", func(r chi.Router) {
		r.Post("/", a.createToken)
		r.Get("/", a.listTokens)
	})
}

func (a *API) createTransaction(w http.ResponseWriter, r *http.Request) {
	create := CreateTransaction{}
	err := json.NewDecoder(r.Body).Decode(&create)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := a.acquirer.CreateTransaction(create)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tx)
}

func (a *API) getTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	tx, err := a.acquirer.GetTransaction(transactionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(tx)
}

// charge collects payment on a transaction. A gateway decline is a normal
// outcome: the response is a 200 with success=false and the transaction in
// its error state, never a 5xx.
func (a *API) charge(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	success, err := a.acquirer.Charge(r.Context(), transactionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, affipay.ErrUnsupportedCurrency):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
		return
	}

	tx, err := a.acquirer.GetTransaction(transactionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(struct {
		Success     bool                `json:"success"`
		Transaction *models.Transaction `json:"transaction"`
	}{success, tx})
}

func (a *API) createToken(w http.ResponseWriter, r *http.Request) {
	partnerID := chi.URLParam(r, "partnerID")

	var body struct {
		Card     *models.Card     `json:"card"`
		Customer *models.Customer `json:"customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := a.acquirer.CreateToken(r.Context(), body.Card, body.Customer, partnerID)
	if err != nil {
		var gwErr *affipay.GatewayError
		switch {
		case errors.As(err, &gwErr):
			http.Error(w, gwErr.Description, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(token)
}

func (a *API) listTokens(w http.ResponseWriter, r *http.Request) {
	partnerID := chi.URLParam(r, "partnerID")

	tokens, err := a.acquirer.ListTokens(partnerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(tokens)
}
