package db

import (
	"context"
	"database/sql"
	"errors"
	"marketplace/asset"
	"marketplace/config"
	"marketplace/sale"
	"marketplace/token"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) {
	t.Helper()
	require.NoError(t, InitWith(config.DriverSQLite, filepath.Join(t.TempDir(), "ledger.db")))
	t.Cleanup(func() { Close() })
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func TestDialectOf(t *testing.T) {
	_, err := dialectOf("postgres")
	assert.Error(t, err)

	dl, err := dialectOf(config.DriverMySQL)
	require.NoError(t, err)
	assert.Equal(t, " FOR UPDATE", dl.lock)

	for _, stmt := range dl.statements() {
		assert.Contains(t, stmt, "CREATE TABLE IF NOT EXISTS")
	}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", sqliteDialect.dsn("a.db"))
	assert.Equal(t, "a.db?mode=ro", sqliteDialect.dsn("a.db?mode=ro"))
	assert.Equal(t, "u:p@tcp(h:1)/d", mysqlDialect.dsn("u:p@tcp(h:1)/d"))
}

func TestWalletRoundTrip(t *testing.T) {
	setupSQLite(t)
	ctx := context.Background()
	addr := newKey(t)

	n, err := GetLamports(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	const big = uint64(18_000_000_000_000_000_000)
	require.NoError(t, Transact(ctx, func(tx *Tx) error {
		if err := tx.SetLamports(ctx, addr, 5); err != nil {
			return err
		}
		return tx.SetLamports(ctx, addr, big)
	}))

	n, err = GetLamports(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, big, n)
}

func TestTransactRollsBack(t *testing.T) {
	setupSQLite(t)
	ctx := context.Background()
	addr := newKey(t)
	boom := errors.New("boom")

	err := Transact(ctx, func(tx *Tx) error {
		if err := tx.SetLamports(ctx, addr, 100); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := GetLamports(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	assert.Panics(t, func() {
		Transact(ctx, func(tx *Tx) error {
			tx.SetLamports(ctx, addr, 100)
			panic("boom")
		})
	})

	n, err = GetLamports(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestTransactReplaysDeadlockVictim(t *testing.T) {
	setupSQLite(t)
	ctx := context.Background()
	addr := newKey(t)

	calls := 0
	require.NoError(t, Transact(ctx, func(tx *Tx) error {
		calls++
		n, err := tx.GetLamports(ctx, addr)
		if err != nil {
			return err
		}
		if err := tx.SetLamports(ctx, addr, n+100); err != nil {
			return err
		}
		if calls == 1 {
			return &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
		}
		return nil
	}))
	assert.Equal(t, 2, calls)

	n, err := GetLamports(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)

	assert.True(t, deadlock(&mysql.MySQLError{Number: 1205}))
	assert.False(t, deadlock(&mysql.MySQLError{Number: 1062}))
	assert.False(t, deadlock(errors.New("Error 1213")))
}

func TestTransactStopsReplayWhenCancelled(t *testing.T) {
	setupSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Transact(ctx, func(tx *Tx) error {
		calls++
		cancel()
		return &mysql.MySQLError{Number: 1213}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestTransactDoesNotReplayUnknownCommit(t *testing.T) {
	setupSQLite(t)
	ctx := context.Background()
	addr := newKey(t)

	commit = func(tx *sql.Tx) error {
		if err := tx.Commit(); err != nil {
			return err
		}
		return mysql.ErrInvalidConn
	}
	t.Cleanup(func() { commit = func(tx *sql.Tx) error { return tx.Commit() } })

	calls := 0
	err := Transact(ctx, func(tx *Tx) error {
		calls++
		n, err := tx.GetLamports(ctx, addr)
		if err != nil {
			return err
		}
		return tx.SetLamports(ctx, addr, n+100)
	})
	assert.ErrorAs(t, err, &ErrCommitUnknown{})
	assert.ErrorIs(t, err, mysql.ErrInvalidConn)
	assert.Equal(t, 1, calls)

	n, err := GetLamports(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)
}

func TestNonceIsSingleUse(t *testing.T) {
	setupSQLite(t)
	signer := newKey(t)
	addr := newKey(t)
	n := Nonce{Signer: signer, Value: "2Hq4Rz7n5pQXBvYxW8JdTfE3kLm", Expires: time.Now().Add(time.Minute)}
	ctx := WithNonce(context.Background(), n)

	credit := func(tx *Tx) error {
		v, err := tx.GetLamports(ctx, addr)
		if err != nil {
			return err
		}
		return tx.SetLamports(ctx, addr, v+1)
	}

	boom := errors.New("boom")
	err := Transact(ctx, func(tx *Tx) error { return boom })
	assert.ErrorIs(t, err, boom)

	require.NoError(t, Transact(ctx, credit))
	assert.ErrorIs(t, Transact(ctx, credit), ErrNonceUsed)

	other := WithNonce(context.Background(), Nonce{Signer: newKey(t), Value: n.Value, Expires: n.Expires})
	require.NoError(t, Transact(other, credit))

	v, err := GetLamports(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)
}

func TestPruneNonces(t *testing.T) {
	setupSQLite(t)
	now := time.Now()
	signer := newKey(t)

	for i, expires := range []time.Time{now.Add(-time.Hour), now.Add(-time.Second), now.Add(time.Hour)} {
		ctx := WithNonce(context.Background(), Nonce{Signer: signer, Value: string(rune('a' + i)), Expires: expires})
		require.NoError(t, Transact(ctx, func(*Tx) error { return nil }))
	}

	pruned, err := PruneNonces(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	pruned, err = PruneNonces(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pruned)
}

func TestTokenStore(t *testing.T) {
	setupSQLite(t)
	ctx := context.Background()
	payer := newKey(t)
	mint := newKey(t)

	require.NoError(t, Transact(ctx, func(tx *Tx) error {
		return tx.SetLamports(ctx, payer, solana.LAMPORTS_PER_SOL)
	}))

	var accAddr solana.PublicKey
	require.NoError(t, Transact(ctx, func(tx *Tx) error {
		if _, err := token.InitializeMint(ctx, tx, payer, mint, payer); err != nil {
			return err
		}
		acc, err := token.CreateAssociatedAccount(ctx, tx, payer, payer, mint)
		if err != nil {
			return err
		}
		accAddr = acc.Address
		return token.MintTo(ctx, tx, mint, acc.Address, token.WalletAuthority(payer), 1)
	}))

	acc, err := GetTokenAccount(ctx, accAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), acc.Amount)
	assert.Equal(t, payer, acc.Owner)
	assert.Equal(t, mint, acc.Mint)
	assert.Equal(t, token.MinimumBalance(token.AccountSize), acc.Lamports)

	m, err := GetMint(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Supply)
	assert.Equal(t, payer, m.MintAuthority)

	holders, err := GetTokenAccountsByMint(ctx, mint)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, accAddr, holders[0].Address)

	_, err = GetTokenAccount(ctx, newKey(t))
	assert.True(t, token.IsNotFound(err))

	err = Transact(ctx, func(tx *Tx) error {
		return tx.InsertAccount(ctx, acc)
	})
	assert.ErrorAs(t, err, &token.ErrAccountExists{})

	err = Transact(ctx, func(tx *Tx) error {
		return tx.DeleteAccount(ctx, newKey(t))
	})
	assert.True(t, token.IsNotFound(err))
}

func TestMetadataStore(t *testing.T) {
	setupSQLite(t)
	ctx := context.Background()
	collection := newKey(t)
	mint := newKey(t)

	md := &asset.Metadata{
		Address:         newKey(t),
		Mint:            mint,
		Data:            asset.Data{Name: "Cool NFT", Symbol: "CNFT", URI: "https://example.com/nft.json"},
		UpdateAuthority: newKey(t),
		Kind:            asset.KindMember,
		Collection:      &collection,
		Lamports:        42,
	}

	require.NoError(t, Transact(ctx, func(tx *Tx) error {
		return tx.InsertMetadata(ctx, md)
	}))

	got, err := GetMetadata(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, md, got)

	_, err = GetMetadata(ctx, newKey(t))
	assert.True(t, token.IsNotFound(err))

	edition := &asset.MasterEdition{Address: newKey(t), Mint: mint, MaxSupply: 0, Lamports: 7}
	require.NoError(t, Transact(ctx, func(tx *Tx) error {
		return tx.InsertMasterEdition(ctx, edition)
	}))

	gotEdition, err := GetMasterEdition(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, edition, gotEdition)
}

func newListing(t *testing.T) *sale.Listing {
	return &sale.Listing{
		Address:   newKey(t),
		Seller:    newKey(t),
		Mint:      newKey(t),
		Price:     1_000_000_000,
		Bump:      254,
		Custody:   newKey(t),
		Lamports:  1_454_640,
		CreatedAt: time.Unix(1700000000, 0),
	}
}

func TestSaleStore(t *testing.T) {
	setupSQLite(t)
	ctx := context.Background()
	l := newListing(t)

	require.NoError(t, Transact(ctx, func(tx *Tx) error {
		return tx.InsertSale(ctx, l)
	}))

	err := Transact(ctx, func(tx *Tx) error {
		return tx.InsertSale(ctx, l)
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := GetListing(ctx, l.Mint)
	require.NoError(t, err)
	assert.Equal(t, l, got)

	err = Transact(ctx, func(tx *Tx) error {
		return tx.DeleteSale(ctx, l.Mint, newKey(t))
	})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, Transact(ctx, func(tx *Tx) error {
		return tx.DeleteSale(ctx, l.Mint, l.Seller)
	}))

	_, err = GetListing(ctx, l.Mint)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetListingsPages(t *testing.T) {
	setupSQLite(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l := newListing(t)
		require.NoError(t, Transact(ctx, func(tx *Tx) error {
			return tx.InsertSale(ctx, l)
		}))
	}

	first, err := GetListings(ctx, "", 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	rest, err := GetListings(ctx, first[2].Mint.String(), 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.True(t, first[2].Mint.String() < rest[0].Mint.String())

	all, err := GetAllListings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestActivityAndStats(t *testing.T) {
	setupSQLite(t)
	ctx := context.Background()
	mint := newKey(t)
	seller, buyer := newKey(t), newKey(t)

	records := []*sale.Activity{
		{Kind: sale.ActivityMintNft, Mint: mint, Seller: seller},
		{Kind: sale.ActivityList, Mint: mint, Seller: seller, Price: 10},
		{Kind: sale.ActivityBuy, Mint: mint, Seller: seller, Buyer: buyer, Price: 10},
		{Kind: sale.ActivityBuy, Mint: newKey(t), Seller: seller, Buyer: buyer, Price: 5},
	}

	for _, a := range records {
		a := a
		require.NoError(t, Transact(ctx, func(tx *Tx) error {
			return tx.InsertActivity(ctx, a)
		}))
		assert.NotEmpty(t, a.TxID)
		assert.NotZero(t, a.Slot)
	}
	assert.Less(t, records[0].Slot, records[1].Slot)

	acts, err := GetActivity(ctx, mint, 10)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, sale.ActivityBuy, acts[0].Kind)
	assert.Equal(t, buyer, acts[0].Buyer)
	assert.True(t, acts[2].Buyer.IsZero())

	all, err := GetActivity(ctx, solana.PublicKey{}, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	stats, err := GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Counts[sale.ActivityBuy])
	assert.Equal(t, uint64(1), stats.Counts[sale.ActivityList])
	assert.Equal(t, uint64(15), stats.Volume)
}
