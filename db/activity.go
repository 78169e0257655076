package db

import (
	"context"
	"marketplace/sale"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/segmentio/ksuid"
)

// InsertActivity records a committed operation and fills in its txid and slot.
func (t *Tx) InsertActivity(ctx context.Context, a *sale.Activity) error {
	const query = "INSERT INTO `activity` (`txid`, `kind`, `mint`, `seller`, `buyer`, `price`, `created_at`) VALUES (?, ?, ?, ?, ?, ?, ?)"

	if a.TxID == "" {
		a.TxID = ksuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	res, err := t.tx.ExecContext(ctx, query,
		a.TxID,
		string(a.Kind),
		a.Mint.String(),
		keyStr(a.Seller),
		keyStr(a.Buyer),
		amountStr(a.Price),
		a.CreatedAt.Unix(),
	)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	a.Slot = uint64(id)
	return nil
}

// GetActivity returns the latest activity of mint, newest first. A zero mint
// selects all mints.
func GetActivity(ctx context.Context, mint solana.PublicKey, limit uint) ([]*sale.Activity, error) {
	query := "SELECT `id`, `txid`, `kind`, `mint`, `seller`, `buyer`, `price`, `created_at` FROM `activity`"
	args := []interface{}{}

	if !mint.IsZero() {
		query += " WHERE `mint` = ?"
		args = append(args, mint.String())
	}

	query += " ORDER BY `id` DESC LIMIT ?"
	args = append(args, limit)

	rows, err := wrappedQuery(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*sale.Activity{}

	for rows.Next() {
		var (
			a                            sale.Activity
			kind, mintStr, seller, buyer string
			price                        string
			createdAt                    int64
		)

		if err := rows.Scan(&a.Slot, &a.TxID, &kind, &mintStr, &seller, &buyer, &price, &createdAt); err != nil {
			return nil, err
		}

		a.Kind = sale.ActivityKind(kind)
		a.CreatedAt = time.Unix(createdAt, 0)

		if a.Mint, err = parseKey(mintStr); err != nil {
			return nil, err
		}
		if a.Seller, err = parseKey(seller); err != nil {
			return nil, err
		}
		if a.Buyer, err = parseKey(buyer); err != nil {
			return nil, err
		}
		if a.Price, err = parseAmount(price); err != nil {
			return nil, err
		}

		result = append(result, &a)
	}

	return result, rows.Err()
}

// GetStats aggregates activity counts per kind and the traded volume.
func GetStats(ctx context.Context) (*sale.Stats, error) {
	const countQuery = "SELECT `kind`, COUNT(*) FROM `activity` GROUP BY `kind`"

	stats := &sale.Stats{Counts: map[sale.ActivityKind]uint64{}}

	rows, err := wrappedQuery(ctx, countQuery)
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		var kind string
		var n uint64
		if err := rows.Scan(&kind, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.Counts[sale.ActivityKind(kind)] = n
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Prices are stored as text on sqlite, so the sum is taken here.
	const volumeQuery = "SELECT `price` FROM `activity` WHERE `kind` = ?"

	rows, err = wrappedQuery(ctx, volumeQuery, string(sale.ActivityBuy))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var price string
		if err := rows.Scan(&price); err != nil {
			return nil, err
		}

		v, err := parseAmount(price)
		if err != nil {
			return nil, err
		}

		stats.Volume += v
	}

	return stats, rows.Err()
}
