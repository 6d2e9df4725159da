// Package cash_repo provides the PostgreSQL cash ledger repository.
package cash_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/domain/cash"
	"pheezes/internal/infrastructure/storage/postgres"
)

const transactionsTable = "transactions"

var transactionColumns = postgres.ExtractDBColumns[cash.Transaction]()

// TransactionRepo implements cash.Repository.
type TransactionRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ cash.Repository = (*TransactionRepo)(nil)

// NewTransactionRepo creates a new cash transaction repository.
func NewTransactionRepo(txm *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *TransactionRepo) Create(ctx context.Context, t *cash.Transaction) error {
	sql, args, err := r.builder.Insert(transactionsTable).SetMap(postgres.StructToMap(t)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError("insert transaction", err)
	}
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, txID id.ID) (*cash.Transaction, error) {
	sql, args, err := r.selectTransactions().Where(squirrel.Eq{"id": txID}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t cash.Transaction
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transaction", txID)
		}
		return nil, postgres.MapError("get transaction", err)
	}
	return &t, nil
}

func (r *TransactionRepo) Update(ctx context.Context, t *cash.Transaction) error {
	sql, args, err := r.updateTransaction(t).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError("update transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("transaction", t.ID)
	}
	return nil
}

func (r *TransactionRepo) Delete(ctx context.Context, txID id.ID) error {
	sql, args, err := r.builder.Delete(transactionsTable).Where(squirrel.Eq{"id": txID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError("delete transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("transaction", txID)
	}
	return nil
}

func (r *TransactionRepo) List(ctx context.Context) ([]cash.Transaction, error) {
	sql, args, err := r.selectTransactions().OrderBy("date DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	list := make([]cash.Transaction, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &list, sql, args...); err != nil {
		return nil, postgres.MapError("list transactions", err)
	}
	return list, nil
}

func (r *TransactionRepo) selectTransactions() squirrel.SelectBuilder {
	return r.builder.Select(transactionColumns...).From(transactionsTable)
}

func (r *TransactionRepo) updateTransaction(t *cash.Transaction) squirrel.UpdateBuilder {
	data := postgres.StructToMap(t)
	delete(data, "id")
	return r.builder.Update(transactionsTable).SetMap(data).Where(squirrel.Eq{"id": t.ID})
}
