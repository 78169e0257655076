package db

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
)

// ErrNonceUsed is returned when a signed request nonce was already consumed.
var ErrNonceUsed = errors.New("request nonce already used")

// Nonce identifies one signed request of Signer.
type Nonce struct {
	Signer  solana.PublicKey
	Value   string
	Expires time.Time
}

type nonceKey struct{}

// WithNonce returns a context whose Transact units consume n before any other
// write. A unit that fails leaves n unused.
func WithNonce(ctx context.Context, n Nonce) context.Context {
	return context.WithValue(ctx, nonceKey{}, n)
}

func nonceFrom(ctx context.Context) (Nonce, bool) {
	n, ok := ctx.Value(nonceKey{}).(Nonce)
	return n, ok
}

func (t *Tx) useNonce(ctx context.Context, n Nonce) error {
	const query = "INSERT INTO `nonce` (`signer`, `nonce`, `expires_at`) VALUES (?, ?, ?)"

	_, err := t.tx.ExecContext(ctx, query, n.Signer.String(), n.Value, n.Expires.Unix())
	if isDuplicate(err) {
		return ErrNonceUsed
	}
	return err
}

// PruneNonces deletes nonces that expired before now. An expired request is
// rejected before its nonce is looked up, so pruned nonces cannot be replayed.
func PruneNonces(ctx context.Context, now time.Time) (int64, error) {
	const query = "DELETE FROM `nonce` WHERE `expires_at` < ?"

	var pruned int64

	err := Transact(ctx, func(tx *Tx) error {
		res, err := tx.tx.ExecContext(ctx, query, now.Unix())
		if err != nil {
			return err
		}
		pruned, err = res.RowsAffected()
		return err
	})

	return pruned, err
}
