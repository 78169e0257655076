// Package pda derives program owned addresses. A derived address has no
// private key; the program proves authority over it by presenting the seeds
// and bump that reproduce it.
package pda

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SaleSeed is the namespace tag of custody and sale record derivation.
const SaleSeed = "sale"

const (
	metadataSeed = "metadata"
	editionSeed  = "edition"
)

// ErrSignerMismatch is returned when seeds and bump do not reproduce the expected address.
var ErrSignerMismatch = errors.New("derived signer does not match authority")

// Custody returns the custody identity of mint and its canonical bump.
// The same address keys the sale record of the mint.
//
// The bump is searched from 255 downward and the first value that lands off
// the curve wins, as the on-chain runtime does. Any off-curve bump would give
// a keyless address, but only the canonical one is accepted when custody is
// later released, so a mint has exactly one custody identity.
func Custody(programID, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(custodySeeds(mint), programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive custody for mint %s: %w", mint, err)
	}
	return addr, bump, nil
}

func custodySeeds(mint solana.PublicKey) [][]byte {
	return [][]byte{[]byte(SaleSeed), mint.Bytes()}
}

// Signer is the program's proof of authority over a derived address.
type Signer struct {
	ProgramID solana.PublicKey
	Seeds     [][]byte
	Bump      uint8
}

// CustodySigner builds the signer for the custody identity of mint.
func CustodySigner(programID, mint solana.PublicKey, bump uint8) Signer {
	return Signer{
		ProgramID: programID,
		Seeds:     custodySeeds(mint),
		Bump:      bump,
	}
}

// Address recomputes the address from seeds and bump.
func (s Signer) Address() (solana.PublicKey, error) {
	seeds := make([][]byte, 0, len(s.Seeds)+1)
	seeds = append(seeds, s.Seeds...)
	seeds = append(seeds, []byte{s.Bump})
	return solana.CreateProgramAddress(seeds, s.ProgramID)
}

// Verify checks that the signer reproduces authority.
func (s Signer) Verify(authority solana.PublicKey) error {
	addr, err := s.Address()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignerMismatch, err)
	}
	if !addr.Equals(authority) {
		return fmt.Errorf("%w: derived %s, authority %s", ErrSignerMismatch, addr, authority)
	}
	return nil
}

// AssociatedToken returns the associated token account of owner for mint.
func AssociatedToken(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token account for %s/%s: %w", owner, mint, err)
	}
	return addr, nil
}

// Metadata returns the metadata account of mint.
func Metadata(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte(metadataSeed),
		solana.TokenMetadataProgramID.Bytes(),
		mint.Bytes(),
	}, solana.TokenMetadataProgramID)
	return addr, err
}

// Edition returns the master edition account of mint.
func Edition(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte(metadataSeed),
		solana.TokenMetadataProgramID.Bytes(),
		mint.Bytes(),
		[]byte(editionSeed),
	}, solana.TokenMetadataProgramID)
	return addr, err
}
