package market

import (
	"context"
	"errors"
	"fmt"
	"marketplace/db"
	"marketplace/pda"
	"marketplace/token"

	"github.com/gagliardetto/solana-go"
)

// Kind classifies a failed operation.
type Kind int

// Error kinds.
const (
	KindNone Kind = iota
	// KindValidation rejects bad input before any side effect.
	KindValidation
	// KindAuthorization rejects a caller or derivation that is not allowed.
	KindAuthorization
	// KindState rejects an operation the current ledger state does not permit.
	KindState
	// KindFatal aborts on an internal inconsistency.
	KindFatal
	// KindCanceled reports a unit abandoned because its context ended.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindCanceled:
		return "canceled"
	default:
		return "fatal"
	}
}

type kinded interface {
	Kind() Kind
}

// KindOf classifies err. Errors of unknown origin are fatal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, db.ErrNonceUsed):
		return KindAuthorization
	case errors.As(err, &token.ErrInsufficientFunds{}),
		errors.As(err, &token.ErrInsufficientTokens{}),
		errors.As(err, &token.ErrAccountNotFound{}):
		return KindState
	case errors.As(err, &token.ErrOwnerMismatch{}),
		errors.As(err, &token.ErrMissingSigner{}),
		errors.As(err, &token.ErrMintMismatch{}),
		errors.As(err, &token.ErrMintAuthority{}),
		errors.Is(err, pda.ErrSignerMismatch):
		return KindAuthorization
	case errors.As(err, &token.ErrAccountExists{}):
		return KindValidation
	}

	return KindFatal
}

// ErrInvalidPrice is returned for a zero, negative or malformed price.
type ErrInvalidPrice struct {
	Price string
}

func (e ErrInvalidPrice) Error() string {
	return fmt.Sprintf("invalid price %q: must be a positive integer amount of lamports", e.Price)
}

// Kind implements kinded.
func (ErrInvalidPrice) Kind() Kind { return KindValidation }

// ErrPriceAboveLimit is returned when the listing costs more than the buyer agreed to pay.
type ErrPriceAboveLimit struct {
	Mint     solana.PublicKey
	Price    uint64
	MaxPrice uint64
}

func (e ErrPriceAboveLimit) Error() string {
	return fmt.Sprintf("mint %s is listed at %d lamports, above the limit of %d", e.Mint, e.Price, e.MaxPrice)
}

// Kind implements kinded.
func (ErrPriceAboveLimit) Kind() Kind { return KindValidation }

// ErrInvalidMetadata is returned when name, symbol or uri exceed their limits.
type ErrInvalidMetadata struct {
	Err error
}

func (e ErrInvalidMetadata) Error() string {
	return fmt.Sprintf("invalid metadata: %s", e.Err)
}

func (e ErrInvalidMetadata) Unwrap() error { return e.Err }

// Kind implements kinded.
func (ErrInvalidMetadata) Kind() Kind { return KindValidation }

// ErrInvalidAmount is returned for an out of range lamport amount.
type ErrInvalidAmount struct {
	Amount uint64
	Max    uint64
}

func (e ErrInvalidAmount) Error() string {
	return fmt.Sprintf("invalid amount %d: must be between 1 and %d", e.Amount, e.Max)
}

// Kind implements kinded.
func (ErrInvalidAmount) Kind() Kind { return KindValidation }

// ErrMintInUse is returned when a mint identity is not fresh.
type ErrMintInUse struct {
	Mint solana.PublicKey
}

func (e ErrMintInUse) Error() string {
	return fmt.Sprintf("mint %s is already in use", e.Mint)
}

// Kind implements kinded.
func (ErrMintInUse) Kind() Kind { return KindValidation }

// ErrInvalidCollection is returned when a member references something that
// is not a collection asset.
type ErrInvalidCollection struct {
	Collection solana.PublicKey
	Reason     string
}

func (e ErrInvalidCollection) Error() string {
	return fmt.Sprintf("invalid collection %s: %s", e.Collection, e.Reason)
}

// Kind implements kinded.
func (ErrInvalidCollection) Kind() Kind { return KindState }

// ErrAssetNotFound is returned when a mint has no metadata.
type ErrAssetNotFound struct {
	Mint solana.PublicKey
}

func (e ErrAssetNotFound) Error() string {
	return fmt.Sprintf("asset not found: %s", e.Mint)
}

// Kind implements kinded.
func (ErrAssetNotFound) Kind() Kind { return KindState }

// ErrListingNotFound is returned when the mint is not listed.
type ErrListingNotFound struct {
	Mint solana.PublicKey
}

func (e ErrListingNotFound) Error() string {
	return fmt.Sprintf("no listing for mint %s", e.Mint)
}

// Kind implements kinded.
func (ErrListingNotFound) Kind() Kind { return KindState }

// ErrDuplicateListing is returned when the mint is already listed.
type ErrDuplicateListing struct {
	Mint solana.PublicKey
}

func (e ErrDuplicateListing) Error() string {
	return fmt.Sprintf("mint %s is already listed", e.Mint)
}

// Kind implements kinded.
func (ErrDuplicateListing) Kind() Kind { return KindState }

// ErrInsufficientBalance is returned when an owner does not hold the unit it trades.
type ErrInsufficientBalance struct {
	Owner solana.PublicKey
	Mint  solana.PublicKey
	Have  uint64
	Need  uint64
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("%s holds %d of mint %s, needs %d", e.Owner, e.Have, e.Mint, e.Need)
}

// Kind implements kinded.
func (ErrInsufficientBalance) Kind() Kind { return KindState }

// ErrNotSeller is returned when someone other than the seller withdraws.
type ErrNotSeller struct {
	Mint   solana.PublicKey
	Seller solana.PublicKey
	Caller solana.PublicKey
}

func (e ErrNotSeller) Error() string {
	return fmt.Sprintf("%s is not the seller of mint %s", e.Caller, e.Mint)
}

// Kind implements kinded.
func (ErrNotSeller) Kind() Kind { return KindAuthorization }

// ErrIdentityMismatch is returned when an account named by the caller or
// stored in the listing does not match the one derived for the mint.
type ErrIdentityMismatch struct {
	Mint     solana.PublicKey
	Field    string
	Expected solana.PublicKey
	Got      solana.PublicKey
}

func (e ErrIdentityMismatch) Error() string {
	return fmt.Sprintf("%s mismatch for mint %s: expected %s, got %s", e.Field, e.Mint, e.Expected, e.Got)
}

// Kind implements kinded.
func (ErrIdentityMismatch) Kind() Kind { return KindAuthorization }

// ErrDerivation is returned when the custody identity cannot be derived or
// its bump disagrees with the stored listing.
type ErrDerivation struct {
	Mint solana.PublicKey
	Err  error
}

func (e ErrDerivation) Error() string {
	return fmt.Sprintf("custody derivation failed for mint %s: %s", e.Mint, e.Err)
}

func (e ErrDerivation) Unwrap() error { return e.Err }

// Kind implements kinded.
func (ErrDerivation) Kind() Kind { return KindAuthorization }

// ErrAirdropDisabled is returned when the faucet is turned off.
type ErrAirdropDisabled struct{}

func (ErrAirdropDisabled) Error() string { return "airdrop is disabled" }

// Kind implements kinded.
func (ErrAirdropDisabled) Kind() Kind { return KindAuthorization }

// ErrInvariant reports ledger state that no committed operation can produce.
type ErrInvariant struct {
	Mint   solana.PublicKey
	Detail string
}

func (e ErrInvariant) Error() string {
	return fmt.Sprintf("ledger invariant violated for mint %s: %s", e.Mint, e.Detail)
}

// Kind implements kinded.
func (ErrInvariant) Kind() Kind { return KindFatal }

// ErrInternal wraps a fatal error that aborted op.
type ErrInternal struct {
	Op  string
	Err error
}

func (e ErrInternal) Error() string {
	return fmt.Sprintf("%s aborted: %s", e.Op, e.Err)
}

func (e ErrInternal) Unwrap() error { return e.Err }

// Kind implements kinded.
func (ErrInternal) Kind() Kind { return KindFatal }
