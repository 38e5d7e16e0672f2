package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/dhecash/gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_transactions")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewTransactionRepo(mock)
	t_ := &domain.Transaction{
		ID: uuid.New(), Reference: "txn_abc", PaymentID: uuid.New(), MerchantID: uuid.New(),
		Type: domain.TransactionTypeCredit, Status: domain.TransactionStatusSuccess, Amount: 97.5, Currency: "HTG",
	}
	err = repo.Create(context.Background(), tx, t_)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_SumRefunds(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	paymentID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT SUM(amount)")).
		WithArgs(paymentID, domain.TransactionTypeRefund).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(40.0))

	repo := NewTransactionRepo(mock)
	sum, err := repo.SumRefunds(context.Background(), paymentID)

	require.NoError(t, err)
	assert.Equal(t, 40.0, sum)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_SumRefunds_NoneYet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	paymentID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT SUM(amount)")).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(nil))

	repo := NewTransactionRepo(mock)
	sum, err := repo.SumRefunds(context.Background(), paymentID)

	require.NoError(t, err)
	assert.Equal(t, 0.0, sum)
}
