// Package market implements the NFT escrow marketplace: minting collection
// and member assets, listing them into program custody, and settling or
// cancelling listings. Every mutating operation is one db.Transact unit, so
// the listing record and its custody account appear and disappear together.
package market

import (
	"context"
	"marketplace/cache"
	"marketplace/config"
	"marketplace/db"
	"marketplace/log"
	"marketplace/mail"
	"marketplace/sale"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

var (
	programID = solana.MustPublicKeyFromBase58(config.DefaultProgramID)
	programMu sync.RWMutex
)

// Init applies configuration to the market.
func Init() error {
	SetProgramID(config.GetProgramID())
	return cache.Init(config.GetCacheSize())
}

// SetProgramID sets the program that custody identities are derived under.
func SetProgramID(id solana.PublicKey) {
	programMu.Lock()
	defer programMu.Unlock()
	programID = id
}

// ProgramID returns the program that custody identities are derived under.
func ProgramID() solana.PublicKey {
	programMu.RLock()
	defer programMu.RUnlock()
	return programID
}

// run executes fn as one atomic unit and reports its outcome.
func run(ctx context.Context, op string, fields logrus.Fields, fn func(*db.Tx) error) error {
	start := time.Now()
	err := db.Transact(ctx, fn)

	entry := log.WithFields(fields).WithField("op", op)

	switch KindOf(err) {
	case KindNone:
		entry.WithField("elapsed", time.Since(start)).Info("committed")
		return nil
	case KindFatal:
		mail.AlertFatal(op, err)
		return ErrInternal{Op: op, Err: err}
	default:
		entry.WithField("kind", KindOf(err)).WithError(err).Warn("rejected")
		return err
	}
}

func record(ctx context.Context, tx *db.Tx, a *sale.Activity) (*sale.Receipt, error) {
	if err := tx.InsertActivity(ctx, a); err != nil {
		return nil, err
	}

	return &sale.Receipt{
		TxID:   a.TxID,
		Slot:   a.Slot,
		Kind:   a.Kind,
		Mint:   a.Mint,
		Seller: a.Seller,
		Buyer:  a.Buyer,
		Price:  a.Price,
	}, nil
}
