package acquirer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eduwebgroup/affipay/acquirer/models"
	"github.com/eduwebgroup/affipay/internal/affipay"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"
)

// sandboxAmountCap bounds test spend outside production.
var sandboxAmountCap = decimal.NewFromFloat(20.0)

// CreateTransaction is the inbound payload for a new payment attempt.
type CreateTransaction struct {
	Reference string           `json:"reference"`
	Amount    decimal.Decimal  `json:"amount"`
	Currency  string           `json:"currency"`
	PartnerID string           `json:"partner_id"`
	TokenID   string           `json:"token_id"`
	SaveCard  bool             `json:"save_card"`
	Card      *models.Card     `json:"card"`
	Customer  *models.Customer `json:"customer"`
}

// Service drives the local transaction state machine from gateway responses
// and orchestrates charge and tokenize calls.
type Service struct {
	repo   *Repository
	client *affipay.Client
	cfg    *Config
	logger *slog.Logger
	onDone func(*models.Transaction)
}

func NewService(logger *slog.Logger, repo *Repository, client *affipay.Client, cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		repo:   repo,
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// OnTransactionDone registers the callback fired after a charge settles.
func (s *Service) OnTransactionDone(fn func(*models.Transaction)) {
	s.onDone = fn
}

func (s *Service) CreateTransaction(req CreateTransaction) (*models.Transaction, error) {
	if req.TokenID == "" && req.Card == nil {
		return nil, fmt.Errorf("transaction needs a token_id or card data")
	}
	tx := &models.Transaction{
		ID:        uuid.New().String(),
		Reference: req.Reference,
		Amount:    req.Amount,
		Currency:  req.Currency,
		PartnerID: req.PartnerID,
		State:     models.TransactionStateDraft,
		TokenID:   req.TokenID,
		SaveCard:  req.SaveCard,
		Card:      req.Card,
		Customer:  req.Customer,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateTransaction(tx); err != nil {
		return nil, fmt.Errorf("creating transaction: %w", err)
	}
	return tx, nil
}

func (s *Service) GetTransaction(id string) (*models.Transaction, error) {
	tx, err := s.repo.GetTransaction(id)
	if err != nil {
		return nil, fmt.Errorf("finding transaction: %w", err)
	}
	return tx, nil
}

// Charge collects payment on a transaction. The returned bool follows the
// reconciler contract: true when the transaction settled (or was already
// terminal), false on a gateway decline. System faults come back as errors.
func (s *Service) Charge(ctx context.Context, transactionID string) (bool, error) {
	tx, err := s.repo.GetTransaction(transactionID)
	if err != nil {
		return false, fmt.Errorf("finding transaction: %w", err)
	}

	// A terminal transaction must not hit the gateway again; a duplicate
	// charge request would move money twice.
	if !tx.Reconcilable() {
		s.logger.Info("transaction already reconciled",
			slog.String("reference", tx.Reference),
			slog.String("state", string(tx.State)))
		return true, nil
	}

	currency, err := affipay.CurrencyCode(tx.Currency)
	if err != nil {
		return false, err
	}

	cardToken, err := s.chargeTokenRef(ctx, tx)
	if err != nil {
		return false, err
	}
	tx.GatewayTokenRef = cardToken

	amount := tx.Amount
	if s.cfg.Environment != affipay.EnvProduction {
		// Sandbox charges move (small amounts of) real test money.
		if amount.GreaterThan(sandboxAmountCap) {
			amount = sandboxAmountCap
		}
	}

	res, err := s.client.Charge(ctx, affipay.ChargeRequest{
		Amount:            amount.InexactFloat64(),
		Currency:          currency,
		NoPresentCardData: affipay.NoPresentCardData{CardToken: cardToken},
	})
	if err != nil {
		var gwErr *affipay.GatewayError
		if errors.As(err, &gwErr) {
			// Declines are a normal terminal state, not a fault.
			return s.ApplyChargeResult(tx, gwErr.Response()), nil
		}
		return false, err
	}
	return s.ApplyChargeResult(tx, res), nil
}

// chargeTokenRef resolves the gateway card token to charge: the stored token
// when the transaction references one, otherwise a fresh tokenize of the
// submitted card data.
func (s *Service) chargeTokenRef(ctx context.Context, tx *models.Transaction) (string, error) {
	if tx.TokenID != "" {
		token, err := s.repo.GetToken(tx.TokenID)
		if err != nil {
			return "", fmt.Errorf("finding card token: %w", err)
		}
		return token.AcquirerRef, nil
	}
	if tx.Card == nil {
		return "", fmt.Errorf("transaction has no card token and no card data")
	}
	res, err := s.tokenize(ctx, tx.Card, tx.Customer)
	if err != nil {
		return "", err
	}
	return res.DataResponse.ID, nil
}

// ApplyChargeResult interprets a charge response tree and moves the
// transaction forward. Terminal transactions are left untouched and report
// success, so duplicate gateway callbacks are harmless.
func (s *Service) ApplyChargeResult(tx *models.Transaction, tree *affipay.ChargeResponse) bool {
	if !tx.Reconcilable() {
		s.logger.Info("transaction already reconciled",
			slog.String("reference", tx.Reference),
			slog.String("state", string(tx.State)))
		return true
	}

	if tree.Approved() {
		tx.AcquirerReference = tree.DataResponse.ID
		settledAt := time.Now().UTC()
		tx.Date = &settledAt

		if tx.TokenID == "" && tx.SaveCard && tx.GatewayTokenRef != "" && tx.Card != nil {
			token := &models.CardToken{
				ID:          uuid.New().String(),
				PartnerID:   tx.PartnerID,
				AcquirerRef: tx.GatewayTokenRef,
				Name:        models.TokenDisplayName(tx.Card.Number, tx.Card.HolderName),
			}
			if err := s.repo.CreateToken(token); err != nil {
				s.logger.Error("saving card token after charge", "err", err)
			} else {
				tx.TokenID = token.ID
			}
		}
		if tx.TokenID != "" {
			if err := s.repo.VerifyToken(tx.TokenID); err != nil {
				s.logger.Error("marking card token verified", "err", err)
			}
		}

		tx.SetDone()
		if err := s.repo.UpdateTransaction(tx); err != nil {
			s.logger.Error("persisting settled transaction", "err", err)
		}
		if s.onDone != nil {
			s.onDone(tx)
		}
		return true
	}

	code, description := declineFields(tree)
	if tree.Error == nil || tree.Error.Code == "" || tree.Error.Description == "" {
		// A decline without the documented error shape is suspicious;
		// make it distinguishable from a well-formed decline in logs.
		s.logger.Warn("gateway decline with missing error fields",
			slog.String("reference", tx.Reference),
			slog.String("code", code))
	}
	tx.SetError(fmt.Sprintf("affipay error: %s - %s", code, description))
	if err := s.repo.UpdateTransaction(tx); err != nil {
		s.logger.Error("persisting declined transaction", "err", err)
	}
	return false
}

func declineFields(tree *affipay.ChargeResponse) (code, description string) {
	code = "ERR"
	description = "affipay gave an error response"
	if tree.Error != nil {
		if tree.Error.Code != "" {
			code = tree.Error.Code
		}
		if tree.Error.Description != "" {
			description = tree.Error.Description
		}
	}
	return code, description
}

// CreateToken stores a reusable card reference for a partner.
func (s *Service) CreateToken(ctx context.Context, card *models.Card, customer *models.Customer, partnerID string) (*models.CardToken, error) {
	if card == nil {
		return nil, fmt.Errorf("missing card data")
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}

	res, err := s.tokenize(ctx, card, customer)
	if err != nil {
		return nil, err
	}

	token := &models.CardToken{
		ID:          uuid.New().String(),
		PartnerID:   partnerID,
		AcquirerRef: res.DataResponse.ID,
		Name:        models.TokenDisplayName(card.Number, card.HolderName),
	}
	if err := s.repo.CreateToken(token); err != nil {
		return nil, fmt.Errorf("storing card token: %w", err)
	}
	return token, nil
}

// ListTokens returns the stored card tokens for a partner.
func (s *Service) ListTokens(partnerID string) ([]*models.CardToken, error) {
	tokens, err := s.repo.ListTokens(partnerID)
	if err != nil {
		return nil, fmt.Errorf("listing card tokens: %w", err)
	}
	return tokens, nil
}

func (s *Service) tokenize(ctx context.Context, card *models.Card, customer *models.Customer) (*affipay.CardTokenResponse, error) {
	cust := models.Customer{}
	if customer != nil {
		cust = *customer
	}
	req, err := affipay.BuildCardTokenRequest(affipay.Card{
		Number:     card.Number,
		Brand:      card.Brand,
		HolderName: card.HolderName,
		Expiry:     card.Expiry,
		CVC:        card.CVC,
	}, affipay.Customer{
		Name:        cust.Name,
		Company:     cust.Company,
		Email:       cust.Email,
		Street:      cust.Street,
		City:        cust.City,
		CountryCode: cust.CountryCode,
		IP:          cust.IP,
	})
	if err != nil {
		return nil, err
	}

	res, err := s.client.AddCardToken(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tokenizing card: %w", err)
	}
	if !res.Status || res.DataResponse == nil {
		description := ""
		if res.Error != nil {
			description = res.Error.Description
		}
		return nil, fmt.Errorf("tokenizing card: %s", description)
	}
	return res, nil
}
