package db

import (
	"context"
	"database/sql"
	"errors"
	"marketplace/sale"
	"time"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrNotFound is returned when a sale record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a sale record already exists for the mint.
	ErrDuplicate = errors.New("record already exists")
)

const saleColumns = "`mint`, `address`, `seller`, `price`, `bump`, `custody`, `lamports`, `created_at`"

// InsertSale stores a listing. It fails with ErrDuplicate when the mint is
// already listed.
func (t *Tx) InsertSale(ctx context.Context, l *sale.Listing) error {
	const query = "INSERT INTO `sale` (" + saleColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

	_, err := t.tx.ExecContext(ctx, query,
		l.Mint.String(),
		l.Address.String(),
		l.Seller.String(),
		amountStr(l.Price),
		l.Bump,
		l.Custody.String(),
		amountStr(l.Lamports),
		l.CreatedAt.Unix(),
	)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// GetSale returns the listing of mint, locking it until the unit ends.
func (t *Tx) GetSale(ctx context.Context, mint solana.PublicKey) (*sale.Listing, error) {
	query := "SELECT " + saleColumns + " FROM `sale` WHERE `mint` = ?" + t.lock
	return scanSale(t.tx.QueryRowContext(ctx, query, mint.String()))
}

// DeleteSale removes the listing of mint if it still belongs to seller.
// Exactly one competing unit observes the row; the others get ErrNotFound.
func (t *Tx) DeleteSale(ctx context.Context, mint, seller solana.PublicKey) error {
	const query = "DELETE FROM `sale` WHERE `mint` = ? AND `seller` = ?"

	res, err := t.tx.ExecContext(ctx, query, mint.String(), seller.String())
	if err != nil {
		return err
	}

	return expectOne(res, ErrNotFound)
}

// GetListing returns the active listing of mint.
func GetListing(ctx context.Context, mint solana.PublicKey) (*sale.Listing, error) {
	const query = "SELECT " + saleColumns + " FROM `sale` WHERE `mint` = ?"
	return scanSale(wrappedQueryRow(ctx, query, mint.String()))
}

// GetListings returns up to limit listings whose mint sorts after the given one.
func GetListings(ctx context.Context, after string, limit uint) ([]*sale.Listing, error) {
	const query = "SELECT " + saleColumns + " FROM `sale` WHERE `mint` > ? ORDER BY `mint` ASC LIMIT ?"

	rows, err := wrappedQuery(ctx, query, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*sale.Listing{}

	for rows.Next() {
		l, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}

	return result, rows.Err()
}

// GetAllListings returns every active listing ordered by mint.
func GetAllListings(ctx context.Context) ([]*sale.Listing, error) {
	const pageSize = 500

	result := []*sale.Listing{}
	after := ""

	for {
		page, err := GetListings(ctx, after, pageSize)
		if err != nil {
			return nil, err
		}

		result = append(result, page...)
		if len(page) < pageSize {
			return result, nil
		}

		after = page[len(page)-1].Mint.String()
	}
}

func scanSale(row scanner) (*sale.Listing, error) {
	var (
		mint, address, seller, custody string
		price, lamports                string
		bump                           uint8
		createdAt                      int64
	)

	err := row.Scan(&mint, &address, &seller, &price, &bump, &custody, &lamports, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	l := sale.Listing{
		Bump:      bump,
		CreatedAt: time.Unix(createdAt, 0),
	}

	if l.Mint, err = parseKey(mint); err != nil {
		return nil, err
	}
	if l.Address, err = parseKey(address); err != nil {
		return nil, err
	}
	if l.Seller, err = parseKey(seller); err != nil {
		return nil, err
	}
	if l.Custody, err = parseKey(custody); err != nil {
		return nil, err
	}
	if l.Price, err = parseAmount(price); err != nil {
		return nil, err
	}
	if l.Lamports, err = parseAmount(lamports); err != nil {
		return nil, err
	}

	return &l, nil
}
