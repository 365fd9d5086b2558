package postgres

import (
	"context"
	"fmt"
	"time"

	"profitlift/domain/basket"
	"profitlift/domain/core"
	apperrors "profitlift/internal/errors"
	"profitlift/ports"

	"github.com/jmoiron/sqlx"
)

// TransactionStoreImpl implements TransactionStore for PostgreSQL
type TransactionStoreImpl struct {
	db *sqlx.DB
}

// NewTransactionStore creates a new PostgreSQL transaction store
func NewTransactionStore(db *sqlx.DB) ports.TransactionStore {
	return &TransactionStoreImpl{db: db}
}

// SaveTransactions persists a batch of enriched transactions. Rows sharing
// a transaction id are replaced, and the item catalog picks up the latest
// category, price and margin seen for each item.
func (s *TransactionStoreImpl) SaveTransactions(ctx context.Context, txs []basket.Transaction) error {
	dbTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, "begin transaction save")
	}
	defer dbTx.Rollback()

	for _, tx := range txs {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO transactions (
				id, ts, store_id, customer_hash, discount_flag,
				time_bin, day_type, quarter, festival, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			ON CONFLICT (id) DO UPDATE SET
				ts = EXCLUDED.ts,
				store_id = EXCLUDED.store_id,
				customer_hash = EXCLUDED.customer_hash,
				discount_flag = EXCLUDED.discount_flag,
				time_bin = EXCLUDED.time_bin,
				day_type = EXCLUDED.day_type,
				quarter = EXCLUDED.quarter,
				festival = EXCLUDED.festival`,
			tx.ID.String(), tx.Timestamp.Time(), tx.StoreID.String(),
			tx.CustomerHash.String(), tx.DiscountFlag,
			string(tx.TimeBin), string(tx.DayType), string(tx.Quarter), string(tx.Festival))
		if err != nil {
			return apperrors.Wrap(err, fmt.Sprintf("upsert transaction %s", tx.ID))
		}

		if _, err := dbTx.ExecContext(ctx,
			`DELETE FROM transaction_items WHERE transaction_id = $1`, tx.ID.String()); err != nil {
			return apperrors.Wrap(err, fmt.Sprintf("clear lines of transaction %s", tx.ID))
		}

		for _, line := range tx.Items {
			_, err := dbTx.ExecContext(ctx, `
				INSERT INTO transaction_items (
					transaction_id, item_id, quantity, unit_price, category, margin_pct
				) VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (transaction_id, item_id) DO UPDATE SET
					quantity = transaction_items.quantity + EXCLUDED.quantity`,
				tx.ID.String(), line.ItemID.String(), line.Quantity,
				line.UnitPrice, line.Category, line.MarginPct)
			if err != nil {
				return apperrors.Wrap(err, fmt.Sprintf("insert line %s/%s", tx.ID, line.ItemID))
			}

			_, err = dbTx.ExecContext(ctx, `
				INSERT INTO items (id, category, last_unit_price, margin_pct, updated_at)
				VALUES ($1, $2, $3, $4, NOW())
				ON CONFLICT (id) DO UPDATE SET
					category = EXCLUDED.category,
					last_unit_price = EXCLUDED.last_unit_price,
					margin_pct = EXCLUDED.margin_pct,
					updated_at = NOW()`,
				line.ItemID.String(), line.Category, line.UnitPrice, line.MarginPct)
			if err != nil {
				return apperrors.Wrap(err, fmt.Sprintf("upsert item %s", line.ItemID))
			}
		}
	}

	if err := dbTx.Commit(); err != nil {
		return apperrors.Wrap(err, "commit transaction save")
	}
	return nil
}

// Transactions bulk loads the enriched transaction set ordered by id.
// Line items are fetched in one pass and merged in memory, keeping the
// load at two queries regardless of dataset size.
func (s *TransactionStoreImpl) Transactions(ctx context.Context) ([]basket.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, store_id, customer_hash, discount_flag,
		       time_bin, day_type, quarter, festival
		FROM transactions
		ORDER BY id`)
	if err != nil {
		return nil, apperrors.Wrap(err, "load transactions")
	}
	defer rows.Close()

	var txs []basket.Transaction
	index := make(map[core.TransactionID]int)
	for rows.Next() {
		var tx basket.Transaction
		var id, storeID, customerHash, timeBin, dayType, quarter, festival string
		var ts time.Time

		if err := rows.Scan(&id, &ts, &storeID, &customerHash, &tx.DiscountFlag,
			&timeBin, &dayType, &quarter, &festival); err != nil {
			return nil, err
		}
		tx.ID = core.TransactionID(id)
		tx.Timestamp = core.NewTimestamp(ts)
		tx.StoreID = core.StoreID(storeID)
		tx.CustomerHash = core.CustomerHash(customerHash)
		tx.TimeBin = basket.TimeBin(timeBin)
		tx.DayType = basket.DayType(dayType)
		tx.Quarter = basket.Quarter(quarter)
		tx.Festival = basket.FestivalPeriod(festival)

		index[tx.ID] = len(txs)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, item_id, quantity, unit_price, category, margin_pct
		FROM transaction_items
		ORDER BY transaction_id, item_id`)
	if err != nil {
		return nil, apperrors.Wrap(err, "load transaction items")
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var txID, itemID, category string
		var line basket.LineItem
		if err := lineRows.Scan(&txID, &itemID, &line.Quantity,
			&line.UnitPrice, &category, &line.MarginPct); err != nil {
			return nil, err
		}
		line.ItemID = core.ItemID(itemID)
		line.Category = category

		at, ok := index[core.TransactionID(txID)]
		if !ok {
			continue
		}
		txs[at].Items = append(txs[at].Items, line)
	}
	return txs, lineRows.Err()
}

// CountTransactions returns the table size without loading rows
func (s *TransactionStoreImpl) CountTransactions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "count transactions")
	}
	return count, nil
}

// Ensure TransactionStoreImpl implements TransactionStore
var _ ports.TransactionStore = (*TransactionStoreImpl)(nil)
