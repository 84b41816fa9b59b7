package acquirer

import (
	"testing"
	"time"

	"github.com/eduwebgroup/affipay/acquirer/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRepositoryTransactions(t *testing.T) {
	repo := NewRepository()

	tx := &models.Transaction{
		ID:        "tx-1",
		Reference: "SO001",
		Amount:    decimal.RequireFromString("15.50"),
		Currency:  "MXN",
		PartnerID: "partner-1",
		State:     models.TransactionStateDraft,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateTransaction(tx))

	got, err := repo.GetTransaction("tx-1")
	require.NoError(t, err)
	require.Equal(t, tx, got)

	_, err = repo.GetTransaction("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryTokenConflict(t *testing.T) {
	repo := NewRepository()

	require.NoError(t, repo.CreateToken(&models.CardToken{
		ID:          "tok-1",
		PartnerID:   "partner-1",
		AcquirerRef: "card-ref-1",
	}))

	// Same gateway reference must not be stored twice.
	err := repo.CreateToken(&models.CardToken{
		ID:          "tok-2",
		PartnerID:   "partner-1",
		AcquirerRef: "card-ref-1",
	})
	require.ErrorIs(t, err, ErrConflict)
}

func TestRepositoryVerifyToken(t *testing.T) {
	repo := NewRepository()

	require.NoError(t, repo.CreateToken(&models.CardToken{
		ID:          "tok-1",
		PartnerID:   "partner-1",
		AcquirerRef: "card-ref-1",
	}))

	require.NoError(t, repo.VerifyToken("tok-1"))
	token, err := repo.GetToken("tok-1")
	require.NoError(t, err)
	require.True(t, token.Verified)

	require.ErrorIs(t, repo.VerifyToken("missing"), ErrNotFound)
}

func TestRepositoryListTokens(t *testing.T) {
	repo := NewRepository()

	require.NoError(t, repo.CreateToken(&models.CardToken{ID: "tok-1", PartnerID: "partner-1", AcquirerRef: "ref-1"}))
	require.NoError(t, repo.CreateToken(&models.CardToken{ID: "tok-2", PartnerID: "partner-2", AcquirerRef: "ref-2"}))

	tokens, err := repo.ListTokens("partner-1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Equal(t, "tok-1", tokens[0].ID)
}
