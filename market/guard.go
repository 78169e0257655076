package market

import (
	"context"
	"fmt"
	"marketplace/db"
	"marketplace/pda"
	"marketplace/sale"
	"marketplace/token"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ParsePrice parses a lamport price, rejecting zero and negative values.
func ParsePrice(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return 0, ErrInvalidPrice{Price: s}
	}

	price, err := strconv.ParseUint(s, 10, 64)
	if err != nil || price == 0 {
		return 0, ErrInvalidPrice{Price: s}
	}

	return price, nil
}

// custody derives the custody identity of mint under the current program.
func custody(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := pda.Custody(ProgramID(), mint)
	if err != nil {
		return solana.PublicKey{}, 0, ErrDerivation{Mint: mint, Err: err}
	}
	return addr, bump, nil
}

// escrow is a listing whose custody has been checked against the derivation.
type escrow struct {
	listing   *sale.Listing
	authority token.Authority
}

// loadEscrow reads and locks the listing of mint, then checks that the
// stored record, the derived custody identity and the custody token account
// all refer to the same asset.
func loadEscrow(ctx context.Context, tx *db.Tx, mint solana.PublicKey) (*escrow, error) {
	l, err := tx.GetSale(ctx, mint)
	if err == db.ErrNotFound {
		return nil, ErrListingNotFound{Mint: mint}
	}
	if err != nil {
		return nil, err
	}

	// A sold listing is never left behind; a zero price means the record is stale.
	if l.Price == 0 {
		return nil, ErrListingNotFound{Mint: mint}
	}

	addr, bump, err := custody(mint)
	if err != nil {
		return nil, err
	}

	if !l.Mint.Equals(mint) {
		return nil, ErrIdentityMismatch{Mint: mint, Field: "listing mint", Expected: mint, Got: l.Mint}
	}

	if !l.Address.Equals(addr) {
		return nil, ErrIdentityMismatch{Mint: mint, Field: "custody identity", Expected: addr, Got: l.Address}
	}

	if l.Bump != bump {
		return nil, ErrDerivation{Mint: mint, Err: fmt.Errorf("stored bump %d, derived %d", l.Bump, bump)}
	}

	signer := pda.CustodySigner(ProgramID(), mint, l.Bump)
	if err := signer.Verify(addr); err != nil {
		return nil, ErrDerivation{Mint: mint, Err: err}
	}

	ata, err := pda.AssociatedToken(addr, mint)
	if err != nil {
		return nil, ErrDerivation{Mint: mint, Err: err}
	}

	if !l.Custody.Equals(ata) {
		return nil, ErrIdentityMismatch{Mint: mint, Field: "custody account", Expected: ata, Got: l.Custody}
	}

	acc, err := tx.GetAccount(ctx, l.Custody)
	if token.IsNotFound(err) {
		return nil, ErrInvariant{Mint: mint, Detail: "listing without custody account"}
	}
	if err != nil {
		return nil, err
	}

	if !acc.Mint.Equals(mint) || !acc.Owner.Equals(addr) || acc.Amount != 1 {
		return nil, ErrInvariant{Mint: mint, Detail: "custody account does not hold the listed unit"}
	}

	return &escrow{
		listing:   l,
		authority: token.ProgramAuthority(addr, signer),
	}, nil
}

// requireClaim checks an optional account named by the caller.
func requireClaim(mint solana.PublicKey, field string, claimed *solana.PublicKey, actual solana.PublicKey) error {
	if claimed == nil || claimed.Equals(actual) {
		return nil
	}
	return ErrIdentityMismatch{Mint: mint, Field: field, Expected: actual, Got: *claimed}
}

// requireSeller restricts an operation to the listing's seller.
func requireSeller(l *sale.Listing, caller solana.PublicKey) error {
	if !l.Seller.Equals(caller) {
		return ErrNotSeller{Mint: l.Mint, Seller: l.Seller, Caller: caller}
	}
	return nil
}

// requireHolder checks that owner holds the unit of mint in its associated account.
func requireHolder(ctx context.Context, tx *db.Tx, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, err := pda.AssociatedToken(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	acc, err := tx.GetAccount(ctx, ata)
	if token.IsNotFound(err) {
		return solana.PublicKey{}, ErrInsufficientBalance{Owner: owner, Mint: mint, Have: 0, Need: 1}
	}
	if err != nil {
		return solana.PublicKey{}, err
	}

	if acc.Amount < 1 {
		return solana.PublicKey{}, ErrInsufficientBalance{Owner: owner, Mint: mint, Have: acc.Amount, Need: 1}
	}

	return ata, nil
}
