package ports

import (
	"context"

	"profitlift/domain/basket"
)

// TransactionSource provides read-only access to the enriched transaction
// table owned by the ingestion side. Mining and estimation consume it and
// never write back.
type TransactionSource interface {
	// Transactions returns the full enriched transaction set. Datasets are
	// bounded (batch pipeline), so a bulk load is the contract.
	Transactions(ctx context.Context) ([]basket.Transaction, error)

	// CountTransactions returns the table size without loading rows,
	// used for data-mode parameter recommendation.
	CountTransactions(ctx context.Context) (int, error)
}

// TransactionStore extends the source with persistence for the ingest path
type TransactionStore interface {
	TransactionSource

	// SaveTransactions persists a batch of enriched transactions.
	// Existing rows with the same transaction id are replaced.
	SaveTransactions(ctx context.Context, txs []basket.Transaction) error
}
