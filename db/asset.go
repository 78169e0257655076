package db

import (
	"context"
	"database/sql"
	"errors"
	"marketplace/asset"
	"marketplace/token"

	"github.com/gagliardetto/solana-go"
)

const metadataColumns = "`address`, `mint`, `name`, `symbol`, `uri`, `update_authority`, `kind`, `collection`, `verified`, `lamports`"

// InsertMetadata stores the metadata of a freshly minted asset.
func (t *Tx) InsertMetadata(ctx context.Context, m *asset.Metadata) error {
	const query = "INSERT INTO `metadata` (" + metadataColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	var collection sql.NullString
	if m.Collection != nil {
		collection = sql.NullString{String: m.Collection.String(), Valid: true}
	}

	verified := 0
	if m.Verified {
		verified = 1
	}

	_, err := t.tx.ExecContext(ctx, query,
		m.Address.String(),
		m.Mint.String(),
		m.Name,
		m.Symbol,
		m.URI,
		m.UpdateAuthority.String(),
		string(m.Kind),
		collection,
		verified,
		amountStr(m.Lamports),
	)
	if isDuplicate(err) {
		return token.ErrAccountExists{Address: m.Address}
	}
	return err
}

// GetMetadata returns the metadata of mint within the transaction.
func (t *Tx) GetMetadata(ctx context.Context, mint solana.PublicKey) (*asset.Metadata, error) {
	const query = "SELECT " + metadataColumns + " FROM `metadata` WHERE `mint` = ?"
	return scanMetadata(mint, t.tx.QueryRowContext(ctx, query, mint.String()))
}

// GetMetadata returns the metadata of mint.
func GetMetadata(ctx context.Context, mint solana.PublicKey) (*asset.Metadata, error) {
	const query = "SELECT " + metadataColumns + " FROM `metadata` WHERE `mint` = ?"
	return scanMetadata(mint, wrappedQueryRow(ctx, query, mint.String()))
}

func scanMetadata(mint solana.PublicKey, row scanner) (*asset.Metadata, error) {
	var (
		m                                 asset.Metadata
		address, mintStr, updateAuthority string
		kind, lamports                    string
		collection                        sql.NullString
		verified                          int
	)

	err := row.Scan(
		&address,
		&mintStr,
		&m.Name,
		&m.Symbol,
		&m.URI,
		&updateAuthority,
		&kind,
		&collection,
		&verified,
		&lamports,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, token.ErrAccountNotFound{Address: mint}
	}
	if err != nil {
		return nil, err
	}

	if m.Address, err = parseKey(address); err != nil {
		return nil, err
	}
	if m.Mint, err = parseKey(mintStr); err != nil {
		return nil, err
	}
	if m.UpdateAuthority, err = parseKey(updateAuthority); err != nil {
		return nil, err
	}
	if m.Lamports, err = parseAmount(lamports); err != nil {
		return nil, err
	}

	if collection.Valid {
		c, err := parseKey(collection.String)
		if err != nil {
			return nil, err
		}
		m.Collection = &c
	}

	m.Kind = asset.Kind(kind)
	m.Verified = verified != 0

	return &m, nil
}

// InsertMasterEdition stores the master edition of a mint.
func (t *Tx) InsertMasterEdition(ctx context.Context, e *asset.MasterEdition) error {
	const query = "INSERT INTO `master_edition` (`address`, `mint`, `max_supply`, `lamports`) VALUES (?, ?, ?, ?)"

	_, err := t.tx.ExecContext(ctx, query,
		e.Address.String(),
		e.Mint.String(),
		amountStr(e.MaxSupply),
		amountStr(e.Lamports),
	)
	if isDuplicate(err) {
		return token.ErrAccountExists{Address: e.Address}
	}
	return err
}

// GetMasterEdition returns the master edition of mint.
func GetMasterEdition(ctx context.Context, mint solana.PublicKey) (*asset.MasterEdition, error) {
	const query = "SELECT `address`, `max_supply`, `lamports` FROM `master_edition` WHERE `mint` = ?"

	var address, maxSupply, lamports string
	err := wrappedQueryRow(ctx, query, mint.String()).Scan(&address, &maxSupply, &lamports)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, token.ErrAccountNotFound{Address: mint}
	}
	if err != nil {
		return nil, err
	}

	e := asset.MasterEdition{Mint: mint}
	if e.Address, err = parseKey(address); err != nil {
		return nil, err
	}
	if e.MaxSupply, err = parseAmount(maxSupply); err != nil {
		return nil, err
	}
	if e.Lamports, err = parseAmount(lamports); err != nil {
		return nil, err
	}

	return &e, nil
}

// GetMint returns a mint outside of any transaction.
func GetMint(ctx context.Context, address solana.PublicKey) (*asset.Mint, error) {
	var m *asset.Mint
	err := View(ctx, func(tx *Tx) error {
		var err error
		m, err = tx.GetMint(ctx, address)
		return err
	})
	return m, err
}
