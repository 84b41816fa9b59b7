package acquirer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/eduwebgroup/affipay/acquirer/models"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

var ErrNotFound = fmt.Errorf("not found")
var ErrConflict = fmt.Errorf("conflict")

// Repository stores transactions and card tokens. The in-memory backend is
// used by tests; production runs against Postgres.
type Repository struct {
	Transactions []*models.Transaction
	Tokens       []*models.CardToken

	mu       sync.RWMutex
	refIndex map[string]struct{}
	db       *sql.DB
}

func NewRepository() *Repository {
	return &Repository{
		Transactions: make([]*models.Transaction, 0),
		Tokens:       make([]*models.CardToken, 0),
		refIndex:     make(map[string]struct{}),
	}
}

// NewPGRepository constructs a db-backed repository.
func NewPGRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateTransaction(tx *models.Transaction) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.Transactions = append(r.Transactions, tx)
		return nil
	}
	cardJSON, err := marshalOptional(tx.Card != nil, tx.Card)
	if err != nil {
		return fmt.Errorf("encoding card data: %w", err)
	}
	customerJSON, err := marshalOptional(tx.Customer != nil, tx.Customer)
	if err != nil {
		return fmt.Errorf("encoding customer data: %w", err)
	}
	_, err = r.db.ExecContext(context.Background(), `
        INSERT INTO acquirer.transactions(tx_id, reference, amount, currency, partner_id, state, token_id, save_card, card_data, customer_data, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `, tx.ID, tx.Reference, tx.Amount, tx.Currency, tx.PartnerID, string(tx.State), nullable(tx.TokenID), tx.SaveCard, cardJSON, customerJSON, tx.CreatedAt)
	return err
}

func (r *Repository) GetTransaction(id string) (*models.Transaction, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, tx := range r.Transactions {
			if tx.ID == id {
				return tx, nil
			}
		}
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(context.Background(), `
        SELECT tx_id, reference, amount, currency, partner_id, state, state_message, acquirer_reference, token_id, save_card, card_data, customer_data, settled_at, created_at
          FROM acquirer.transactions WHERE tx_id=$1
    `, id)
	tx := &models.Transaction{}
	var state string
	var msg, ref, tokenID sql.NullString
	var cardJSON, customerJSON []byte
	var settled sql.NullTime
	if err := row.Scan(&tx.ID, &tx.Reference, &tx.Amount, &tx.Currency, &tx.PartnerID, &state, &msg, &ref, &tokenID, &tx.SaveCard, &cardJSON, &customerJSON, &settled, &tx.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	tx.State = models.TransactionState(state)
	tx.StateMessage = msg.String
	tx.AcquirerReference = ref.String
	tx.TokenID = tokenID.String
	if len(cardJSON) > 0 {
		tx.Card = &models.Card{}
		if err := json.Unmarshal(cardJSON, tx.Card); err != nil {
			return nil, fmt.Errorf("decoding card data: %w", err)
		}
	}
	if len(customerJSON) > 0 {
		tx.Customer = &models.Customer{}
		if err := json.Unmarshal(customerJSON, tx.Customer); err != nil {
			return nil, fmt.Errorf("decoding customer data: %w", err)
		}
	}
	if settled.Valid {
		settledAt := settled.Time
		tx.Date = &settledAt
	}
	return tx, nil
}

// UpdateTransaction persists the mutable reconciliation fields.
func (r *Repository) UpdateTransaction(tx *models.Transaction) error {
	if r.db == nil {
		// In-memory transactions are shared pointers; nothing to write back.
		return nil
	}
	_, err := r.db.ExecContext(context.Background(), `
        UPDATE acquirer.transactions
           SET state=$2, state_message=$3, acquirer_reference=$4, token_id=$5, settled_at=$6, updated_at=now()
         WHERE tx_id=$1
    `, tx.ID, string(tx.State), nullable(tx.StateMessage), nullable(tx.AcquirerReference), nullable(tx.TokenID), tx.Date)
	return err
}

func (r *Repository) CreateToken(token *models.CardToken) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.refIndex[token.AcquirerRef]; ok {
			return fmt.Errorf("acquirer ref exists: %w", ErrConflict)
		}
		r.Tokens = append(r.Tokens, token)
		r.refIndex[token.AcquirerRef] = struct{}{}
		return nil
	}
	_, err := r.db.ExecContext(context.Background(), `
        INSERT INTO acquirer.card_tokens(token_id, partner_id, acquirer_ref, name, verified)
        VALUES ($1,$2,$3,$4,$5)
    `, token.ID, token.PartnerID, token.AcquirerRef, token.Name, token.Verified)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *Repository) GetToken(id string) (*models.CardToken, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, t := range r.Tokens {
			if t.ID == id {
				return t, nil
			}
		}
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(context.Background(), `
        SELECT token_id, partner_id, acquirer_ref, name, verified FROM acquirer.card_tokens WHERE token_id=$1
    `, id)
	t := &models.CardToken{}
	if err := row.Scan(&t.ID, &t.PartnerID, &t.AcquirerRef, &t.Name, &t.Verified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// VerifyToken marks a stored token verified after its first approved charge.
func (r *Repository) VerifyToken(id string) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, t := range r.Tokens {
			if t.ID == id {
				t.Verified = true
				return nil
			}
		}
		return ErrNotFound
	}
	res, err := r.db.ExecContext(context.Background(), `
        UPDATE acquirer.card_tokens SET verified=true WHERE token_id=$1
    `, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTokens returns all stored tokens for a partner.
func (r *Repository) ListTokens(partnerID string) ([]*models.CardToken, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		var out []*models.CardToken
		for _, t := range r.Tokens {
			if t.PartnerID == partnerID {
				out = append(out, t)
			}
		}
		return out, nil
	}
	rows, err := r.db.QueryContext(context.Background(), `
        SELECT token_id, partner_id, acquirer_ref, name, verified
          FROM acquirer.card_tokens WHERE partner_id=$1 ORDER BY created_at DESC
    `, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.CardToken
	for rows.Next() {
		t := &models.CardToken{}
		if err := rows.Scan(&t.ID, &t.PartnerID, &t.AcquirerRef, &t.Name, &t.Verified); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Ping returns DB readiness
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// marshalOptional encodes v when present; a nil slice maps to SQL NULL.
func marshalOptional(present bool, v any) ([]byte, error) {
	if !present {
		return nil, nil
	}
	return json.Marshal(v)
}

func isUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23505" {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		return true
	}
	return false
}
