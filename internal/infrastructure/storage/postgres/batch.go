package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter bulk-inserts rows with the COPY protocol.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice inserts rows into table. Each row holds values matching columns.
// It must run inside a transaction so the rows commit with their parent.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx := b.txManager.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("copy into %s requires transaction context", table)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, MapError("copy into "+table, err)
	}
	return n, nil
}

// CopyStructs inserts items into table, reading values by the "db" tags
// of T listed in columns.
func CopyStructs[T any](ctx context.Context, b *BatchInserter, table string, columns []string, items []T) (int64, error) {
	rows := make([][]any, 0, len(items))
	for i := range items {
		rows = append(rows, Values(StructToMap(&items[i]), columns))
	}
	return b.CopyFromSlice(ctx, table, columns, rows)
}
