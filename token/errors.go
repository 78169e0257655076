package token

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrAccountNotFound is returned when an account, mint or wallet record does not exist.
type ErrAccountNotFound struct {
	Address solana.PublicKey
}

func (e ErrAccountNotFound) Error() string {
	return fmt.Sprintf("account not found: %s", e.Address)
}

// IsNotFound reports whether err is an ErrAccountNotFound.
func IsNotFound(err error) bool {
	var nf ErrAccountNotFound
	return errors.As(err, &nf)
}

// ErrAccountExists is returned when creating an account at an address already in use.
type ErrAccountExists struct {
	Address solana.PublicKey
}

func (e ErrAccountExists) Error() string {
	return fmt.Sprintf("account already in use: %s", e.Address)
}

// ErrInsufficientFunds is returned when a wallet cannot cover a debit.
type ErrInsufficientFunds struct {
	Address solana.PublicKey
	Have    uint64
	Need    uint64
}

func (e ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient lamports in %s: have %d, need %d", e.Address, e.Have, e.Need)
}

// ErrInsufficientTokens is returned when a token account cannot cover a transfer.
type ErrInsufficientTokens struct {
	Account solana.PublicKey
	Have    uint64
	Need    uint64
}

func (e ErrInsufficientTokens) Error() string {
	return fmt.Sprintf("insufficient token balance in %s: have %d, need %d", e.Account, e.Have, e.Need)
}

// ErrOwnerMismatch is returned when the authority is not the account owner.
type ErrOwnerMismatch struct {
	Account   solana.PublicKey
	Owner     solana.PublicKey
	Authority solana.PublicKey
}

func (e ErrOwnerMismatch) Error() string {
	return fmt.Sprintf("account %s is owned by %s, not %s", e.Account, e.Owner, e.Authority)
}

// ErrMissingSigner is returned when a derived owner is debited without a derivation proof.
type ErrMissingSigner struct {
	Account solana.PublicKey
	Owner   solana.PublicKey
}

func (e ErrMissingSigner) Error() string {
	return fmt.Sprintf("account %s is owned by derived address %s and needs its seeds", e.Account, e.Owner)
}

// ErrMintMismatch is returned when an account holds a different mint than expected.
type ErrMintMismatch struct {
	Account solana.PublicKey
	Want    solana.PublicKey
	Got     solana.PublicKey
}

func (e ErrMintMismatch) Error() string {
	return fmt.Sprintf("account %s holds mint %s, expected %s", e.Account, e.Got, e.Want)
}

// ErrMintAuthority is returned when issuance is closed or the authority is wrong.
type ErrMintAuthority struct {
	Mint solana.PublicKey
}

func (e ErrMintAuthority) Error() string {
	return fmt.Sprintf("invalid mint authority for %s", e.Mint)
}

// ErrNonZeroBalance is returned when closing an account that still holds tokens.
type ErrNonZeroBalance struct {
	Account solana.PublicKey
	Amount  uint64
}

func (e ErrNonZeroBalance) Error() string {
	return fmt.Sprintf("cannot close %s holding %d units", e.Account, e.Amount)
}

// ErrOverflow is returned when a balance would exceed uint64.
type ErrOverflow struct {
	Address solana.PublicKey
}

func (e ErrOverflow) Error() string {
	return fmt.Sprintf("balance overflow at %s", e.Address)
}
