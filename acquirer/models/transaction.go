package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionState string

const (
	TransactionStateDraft   TransactionState = "draft"
	TransactionStatePending TransactionState = "pending"
	TransactionStateDone    TransactionState = "done"
	TransactionStateError   TransactionState = "error"
	TransactionStateCancel  TransactionState = "cancel"
)

// Transaction is a local payment collection attempt against one partner.
type Transaction struct {
	ID        string           `json:"id"`
	Reference string           `json:"reference"`
	Amount    decimal.Decimal  `json:"amount"`
	Currency  string           `json:"currency"`
	PartnerID string           `json:"partner_id"`
	State     TransactionState `json:"state"`

	// StateMessage carries the gateway decline text when State is error.
	StateMessage string `json:"state_message,omitempty"`

	// AcquirerReference is the gateway's id for the settled charge.
	AcquirerReference string `json:"acquirer_reference,omitempty"`

	// Date is the settlement date, set when the charge is approved.
	Date *time.Time `json:"date,omitempty"`

	// TokenID references a stored card token to charge. When empty, Card
	// and Customer carry the raw data to tokenize instead.
	TokenID  string    `json:"token_id,omitempty"`
	SaveCard bool      `json:"save_card,omitempty"`
	Card     *Card     `json:"card,omitempty"`
	Customer *Customer `json:"customer,omitempty"`

	// GatewayTokenRef is the gateway card token the charge was placed
	// against; kept so save-on-success can persist it locally.
	GatewayTokenRef string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Reconcilable reports whether a gateway result may still be applied.
// Transactions outside draft/pending are terminal; duplicate gateway
// callbacks must not move them.
func (t *Transaction) Reconcilable() bool {
	return t.State == TransactionStateDraft || t.State == TransactionStatePending
}

func (t *Transaction) SetDone() {
	t.State = TransactionStateDone
	t.StateMessage = ""
}

func (t *Transaction) SetError(msg string) {
	t.State = TransactionStateError
	t.StateMessage = msg
}
