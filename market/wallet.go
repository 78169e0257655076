package market

import (
	"context"
	"marketplace/config"
	"marketplace/db"
	"marketplace/pda"
	"marketplace/sale"
	"marketplace/token"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// MaxActivity bounds one activity query.
const MaxActivity = 500

// Airdrop credits lamports to address from the faucet and returns the new balance.
func Airdrop(ctx context.Context, address solana.PublicKey, lamports uint64) (uint64, error) {
	cfg := config.GetAirdropConfig()
	if !cfg.Enabled {
		return 0, ErrAirdropDisabled{}
	}

	if lamports == 0 || lamports > cfg.MaxLamports {
		return 0, ErrInvalidAmount{Amount: lamports, Max: cfg.MaxLamports}
	}

	var balance uint64

	err := run(ctx, "airdrop", logrus.Fields{"address": address, "lamports": lamports}, func(tx *db.Tx) error {
		if err := token.Credit(ctx, tx, address, lamports); err != nil {
			return err
		}

		var err error
		balance, err = tx.GetLamports(ctx, address)
		return err
	})

	return balance, err
}

// Balance returns the lamports held by address.
func Balance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	return db.GetLamports(ctx, address)
}

// TokenBalance returns the units of mint held in owner's associated account.
func TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	ata, err := pda.AssociatedToken(owner, mint)
	if err != nil {
		return 0, err
	}

	acc, err := db.GetTokenAccount(ctx, ata)
	if token.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return acc.Amount, nil
}

// TokenAccount returns the token account at address.
func TokenAccount(ctx context.Context, address solana.PublicKey) (*token.Account, error) {
	return db.GetTokenAccount(ctx, address)
}

// Holders returns every token account of mint.
func Holders(ctx context.Context, mint solana.PublicKey) ([]*token.Account, error) {
	return db.GetTokenAccountsByMint(ctx, mint)
}

// Activity returns recorded operations on mint, newest first. A zero mint
// returns activity across all mints.
func Activity(ctx context.Context, mint solana.PublicKey, limit uint) ([]*sale.Activity, error) {
	if limit == 0 || limit > MaxActivity {
		limit = MaxActivity
	}
	return db.GetActivity(ctx, mint, limit)
}

// Stats returns activity counts and traded volume.
func Stats(ctx context.Context) (*sale.Stats, error) {
	return db.GetStats(ctx)
}
