package tasks

import (
	"context"
	"marketplace/asset"
	"marketplace/config"
	"marketplace/db"
	"marketplace/market"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) context.Context {
	t.Helper()
	require.NoError(t, db.InitWith(config.DriverSQLite, filepath.Join(t.TempDir(), "audit.db")))
	t.Cleanup(func() { db.Close() })
	market.SetProgramID(solana.MustPublicKeyFromBase58(config.DefaultProgramID))
	return context.Background()
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

// listN lists n freshly minted assets and returns their mints.
func listN(t *testing.T, ctx context.Context, n int) []solana.PublicKey {
	t.Helper()
	seller := newKey(t)
	_, err := market.Airdrop(ctx, seller, 10*solana.LAMPORTS_PER_SOL)
	require.NoError(t, err)

	collection := newKey(t)
	_, err = market.MintCollection(ctx, seller, collection, asset.Data{Name: "Collection"})
	require.NoError(t, err)

	mints := make([]solana.PublicKey, n)
	for i := range mints {
		mints[i] = newKey(t)
		_, err = market.MintNft(ctx, seller, mints[i], asset.Data{Name: "Member"}, collection)
		require.NoError(t, err)
		_, err = market.List(ctx, seller, mints[i], uint64(i+1)*solana.LAMPORTS_PER_SOL/10)
		require.NoError(t, err)
	}
	return mints
}

func TestAuditClean(t *testing.T) {
	ctx := setup(t)
	listN(t, ctx, 5)

	r, err := Audit(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Listings)
	assert.Empty(t, r.Violations)
	assert.Len(t, r.Fingerprint, 40)
}

func TestAuditEmpty(t *testing.T) {
	ctx := setup(t)

	r, err := Audit(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Listings)
	assert.Empty(t, r.Violations)
}

func TestAuditDetectsDrainedCustody(t *testing.T) {
	ctx := setup(t)
	mints := listN(t, ctx, 3)

	drained, err := market.Get(ctx, mints[1])
	require.NoError(t, err)
	missing, err := market.Get(ctx, mints[2])
	require.NoError(t, err)

	require.NoError(t, db.Transact(ctx, func(tx *db.Tx) error {
		if err := tx.UpdateAmount(ctx, drained.Custody, 0); err != nil {
			return err
		}
		return tx.DeleteAccount(ctx, missing.Custody)
	}))

	r, err := Audit(ctx, 2)
	require.NoError(t, err)
	require.Len(t, r.Violations, 2)

	reasons := map[string]string{}
	for _, v := range r.Violations {
		reasons[v.Mint] = v.Reason
	}
	assert.Equal(t, "custody account holds 0 units", reasons[mints[1].String()])
	assert.Equal(t, "custody account is missing", reasons[mints[2].String()])
}

func TestAuditUnderOtherProgram(t *testing.T) {
	ctx := setup(t)
	listN(t, ctx, 2)

	market.SetProgramID(newKey(t))

	r, err := Audit(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, r.Violations, 2)
}

func TestFingerprintTracksListingSet(t *testing.T) {
	ctx := setup(t)
	mints := listN(t, ctx, 2)
	p := newProgress()

	first, err := Audit(ctx, 1)
	require.NoError(t, err)
	changed, notify := p.update(first)
	assert.True(t, changed)
	assert.False(t, notify)

	again, err := Audit(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, again.Fingerprint)
	changed, _ = p.update(again)
	assert.False(t, changed)

	l, err := market.Get(ctx, mints[0])
	require.NoError(t, err)
	_, err = market.Withdraw(ctx, market.WithdrawRequest{Caller: l.Seller, Mint: mints[0]})
	require.NoError(t, err)

	after, err := Audit(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, after.Fingerprint)
	changed, _ = p.update(after)
	assert.True(t, changed)
}

func TestProgressNotifiesOncePerListingSet(t *testing.T) {
	p := newProgress()
	broken := &Report{Listings: 1, Fingerprint: "a", Violations: []Violation{{Mint: "m", Reason: "r"}}}

	_, notify := p.update(broken)
	assert.True(t, notify)
	_, notify = p.update(broken)
	assert.False(t, notify)

	_, notify = p.update(&Report{Fingerprint: "a"})
	assert.False(t, notify)
	_, notify = p.update(broken)
	assert.True(t, notify)

	assert.Contains(t, violationMail(broken), "m: r")
	assert.Contains(t, p.summary(broken), "audit #4")
}

func TestSweepNonces(t *testing.T) {
	setup(t)
	now := time.Now()

	for i, expires := range []time.Time{now.Add(-time.Minute), now.Add(time.Minute)} {
		ctx := db.WithNonce(context.Background(), db.Nonce{Signer: newKey(t), Value: string(rune('a' + i)), Expires: expires})
		require.NoError(t, db.Transact(ctx, func(*db.Tx) error { return nil }))
	}

	assert.Equal(t, int64(1), sweepNonces(now))
	assert.Equal(t, int64(0), sweepNonces(now))
	assert.Equal(t, int64(1), sweepNonces(now.Add(time.Hour)))
}
