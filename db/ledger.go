package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"marketplace/asset"
	"marketplace/token"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

// Tx is one atomic unit of work over the ledger. It implements token.Store.
type Tx struct {
	tx *sql.Tx
	d  *dialect
	// lock is empty for read only units.
	lock string
}

var _ token.Store = (*Tx)(nil)

func amountStr(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stored amount %q: %w", s, err)
	}
	return v, nil
}

func parseKey(s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(s)
}

func keyStr(k solana.PublicKey) string {
	if k.IsZero() {
		return ""
	}
	return k.String()
}

// GetLamports returns the wallet balance of address, zero when unknown.
func (t *Tx) GetLamports(ctx context.Context, address solana.PublicKey) (uint64, error) {
	query := "SELECT `lamports` FROM `wallet` WHERE `address` = ?" + t.lock

	var lamports string
	err := t.tx.QueryRowContext(ctx, query, address.String()).Scan(&lamports)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return parseAmount(lamports)
}

// SetLamports stores the wallet balance of address.
func (t *Tx) SetLamports(ctx context.Context, address solana.PublicKey, lamports uint64) error {
	_, err := t.tx.ExecContext(ctx, t.d.upsertWallet, address.String(), amountStr(lamports))
	return err
}

// GetMint returns the mint at address.
func (t *Tx) GetMint(ctx context.Context, address solana.PublicKey) (*asset.Mint, error) {
	query := "SELECT `decimals`, `supply`, `mint_authority`, `freeze_authority`, `lamports` FROM `mint` WHERE `address` = ?" + t.lock

	m := asset.Mint{Address: address}

	var (
		supply, lamports     string
		mintAuth, freezeAuth string
	)

	err := t.tx.QueryRowContext(ctx, query, address.String()).Scan(&m.Decimals, &supply, &mintAuth, &freezeAuth, &lamports)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, token.ErrAccountNotFound{Address: address}
	}
	if err != nil {
		return nil, err
	}

	if m.Supply, err = parseAmount(supply); err != nil {
		return nil, err
	}
	if m.Lamports, err = parseAmount(lamports); err != nil {
		return nil, err
	}
	if m.MintAuthority, err = parseKey(mintAuth); err != nil {
		return nil, err
	}
	if m.FreezeAuthority, err = parseKey(freezeAuth); err != nil {
		return nil, err
	}

	return &m, nil
}

// InsertMint creates a mint record.
func (t *Tx) InsertMint(ctx context.Context, m *asset.Mint) error {
	const query = "INSERT INTO `mint` (`address`, `decimals`, `supply`, `mint_authority`, `freeze_authority`, `lamports`) VALUES (?, ?, ?, ?, ?, ?)"

	_, err := t.tx.ExecContext(ctx, query,
		m.Address.String(),
		m.Decimals,
		amountStr(m.Supply),
		keyStr(m.MintAuthority),
		keyStr(m.FreezeAuthority),
		amountStr(m.Lamports),
	)
	if isDuplicate(err) {
		return token.ErrAccountExists{Address: m.Address}
	}
	return err
}

// UpdateMint stores supply and authorities of a mint.
func (t *Tx) UpdateMint(ctx context.Context, m *asset.Mint) error {
	const query = "UPDATE `mint` SET `supply` = ?, `mint_authority` = ?, `freeze_authority` = ? WHERE `address` = ?"

	res, err := t.tx.ExecContext(ctx, query,
		amountStr(m.Supply),
		keyStr(m.MintAuthority),
		keyStr(m.FreezeAuthority),
		m.Address.String(),
	)
	if err != nil {
		return err
	}

	return expectOne(res, token.ErrAccountNotFound{Address: m.Address})
}

// GetAccount returns the token account at address.
func (t *Tx) GetAccount(ctx context.Context, address solana.PublicKey) (*token.Account, error) {
	query := "SELECT " + accountColumns + " FROM `token_account` WHERE `address` = ?" + t.lock

	acc, err := scanAccount(t.tx.QueryRowContext(ctx, query, address.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, token.ErrAccountNotFound{Address: address}
	}
	return acc, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = "`address`, `mint`, `owner`, `amount`, `lamports`"

func scanAccount(row scanner) (*token.Account, error) {
	var (
		address, mint, owner string
		amount, lamports     string
	)

	if err := row.Scan(&address, &mint, &owner, &amount, &lamports); err != nil {
		return nil, err
	}

	var (
		acc token.Account
		err error
	)

	if acc.Address, err = parseKey(address); err != nil {
		return nil, err
	}
	if acc.Mint, err = parseKey(mint); err != nil {
		return nil, err
	}
	if acc.Owner, err = parseKey(owner); err != nil {
		return nil, err
	}
	if acc.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	if acc.Lamports, err = parseAmount(lamports); err != nil {
		return nil, err
	}

	return &acc, nil
}

// InsertAccount creates a token account.
func (t *Tx) InsertAccount(ctx context.Context, a *token.Account) error {
	const query = "INSERT INTO `token_account` (`address`, `mint`, `owner`, `amount`, `lamports`) VALUES (?, ?, ?, ?, ?)"

	_, err := t.tx.ExecContext(ctx, query,
		a.Address.String(),
		a.Mint.String(),
		a.Owner.String(),
		amountStr(a.Amount),
		amountStr(a.Lamports),
	)
	if isDuplicate(err) {
		return token.ErrAccountExists{Address: a.Address}
	}
	return err
}

// UpdateAmount stores the token balance of an account.
func (t *Tx) UpdateAmount(ctx context.Context, address solana.PublicKey, amount uint64) error {
	const query = "UPDATE `token_account` SET `amount` = ? WHERE `address` = ?"

	res, err := t.tx.ExecContext(ctx, query, amountStr(amount), address.String())
	if err != nil {
		return err
	}

	return expectOne(res, token.ErrAccountNotFound{Address: address})
}

// DeleteAccount removes a token account.
func (t *Tx) DeleteAccount(ctx context.Context, address solana.PublicKey) error {
	const query = "DELETE FROM `token_account` WHERE `address` = ?"

	res, err := t.tx.ExecContext(ctx, query, address.String())
	if err != nil {
		return err
	}

	return expectOne(res, token.ErrAccountNotFound{Address: address})
}

// expectOne returns notFound unless exactly one row was affected.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return notFound
	}

	return nil
}

// GetLamports returns the wallet balance of address.
func GetLamports(ctx context.Context, address solana.PublicKey) (uint64, error) {
	var lamports uint64
	err := View(ctx, func(tx *Tx) error {
		var err error
		lamports, err = tx.GetLamports(ctx, address)
		return err
	})
	return lamports, err
}

// GetTokenAccount returns the token account at address.
func GetTokenAccount(ctx context.Context, address solana.PublicKey) (*token.Account, error) {
	var acc *token.Account
	err := View(ctx, func(tx *Tx) error {
		var err error
		acc, err = tx.GetAccount(ctx, address)
		return err
	})
	return acc, err
}

// GetTokenAccountsByMint returns every token account holding mint.
func GetTokenAccountsByMint(ctx context.Context, mint solana.PublicKey) ([]*token.Account, error) {
	const query = "SELECT " + accountColumns + " FROM `token_account` WHERE `mint` = ? ORDER BY `address`"

	rows, err := wrappedQuery(ctx, query, mint.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*token.Account{}

	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, acc)
	}

	return result, rows.Err()
}
