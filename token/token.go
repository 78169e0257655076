// Package token is the ledger's token subsystem. It moves lamports and token
// units between accounts held by a Store and enforces ownership, including the
// derivation proof required when the owner is a program derived address.
package token

import (
	"context"
	"marketplace/asset"
	"marketplace/pda"
	"marketplace/util"

	"github.com/gagliardetto/solana-go"
)

// AccountSize is the byte size of a token account.
const AccountSize = 165

const (
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionYears         = 2
)

// MinimumBalance returns the rent exempt deposit of an account holding dataLen bytes.
func MinimumBalance(dataLen uint64) uint64 {
	return (accountStorageOverhead + dataLen) * lamportsPerByteYear * exemptionYears
}

// Account is a token account db model.
type Account struct {
	Address  solana.PublicKey `json:"address"`
	Mint     solana.PublicKey `json:"mint"`
	Owner    solana.PublicKey `json:"owner"`
	Amount   uint64           `json:"amount"`
	Lamports uint64           `json:"lamports"`
}

// Store persists wallets, mints and token accounts. Lookups of missing
// mints and token accounts return ErrAccountNotFound; a missing wallet reads
// as zero lamports. Implementations are scoped to one atomic unit of work.
type Store interface {
	GetLamports(ctx context.Context, address solana.PublicKey) (uint64, error)
	SetLamports(ctx context.Context, address solana.PublicKey, lamports uint64) error

	GetMint(ctx context.Context, address solana.PublicKey) (*asset.Mint, error)
	InsertMint(ctx context.Context, m *asset.Mint) error
	UpdateMint(ctx context.Context, m *asset.Mint) error

	GetAccount(ctx context.Context, address solana.PublicKey) (*Account, error)
	InsertAccount(ctx context.Context, a *Account) error
	UpdateAmount(ctx context.Context, address solana.PublicKey, amount uint64) error
	DeleteAccount(ctx context.Context, address solana.PublicKey) error
}

// Authority authorizes a debit of an account. Signer must be set when Key
// is a program derived address.
type Authority struct {
	Key    solana.PublicKey
	Signer *pda.Signer
}

// WalletAuthority is the authority of a key bearing wallet whose signature
// was checked by the caller.
func WalletAuthority(key solana.PublicKey) Authority {
	return Authority{Key: key}
}

// ProgramAuthority is the authority of a derived address proven by signer.
func ProgramAuthority(key solana.PublicKey, signer pda.Signer) Authority {
	return Authority{Key: key, Signer: &signer}
}

func (a Authority) check(account, owner solana.PublicKey) error {
	if !a.Key.Equals(owner) {
		return ErrOwnerMismatch{Account: account, Owner: owner, Authority: a.Key}
	}

	if a.Signer != nil {
		return a.Signer.Verify(owner)
	}

	if !owner.IsOnCurve() {
		return ErrMissingSigner{Account: account, Owner: owner}
	}

	return nil
}

// SystemTransfer moves lamports between wallets.
func SystemTransfer(ctx context.Context, s Store, from, to solana.PublicKey, lamports uint64) error {
	if lamports == 0 || from.Equals(to) {
		return nil
	}

	if err := Debit(ctx, s, from, lamports); err != nil {
		return err
	}

	return Credit(ctx, s, to, lamports)
}

// Debit removes lamports from a wallet.
func Debit(ctx context.Context, s Store, address solana.PublicKey, lamports uint64) error {
	have, err := s.GetLamports(ctx, address)
	if err != nil {
		return err
	}

	left, ok := util.SafeSub(have, lamports)
	if !ok {
		return ErrInsufficientFunds{Address: address, Have: have, Need: lamports}
	}

	return s.SetLamports(ctx, address, left)
}

// Credit adds lamports to a wallet, creating it if needed.
func Credit(ctx context.Context, s Store, address solana.PublicKey, lamports uint64) error {
	have, err := s.GetLamports(ctx, address)
	if err != nil {
		return err
	}

	total, ok := util.SafeAdd(have, lamports)
	if !ok {
		return ErrOverflow{Address: address}
	}

	return s.SetLamports(ctx, address, total)
}

// PayRent debits the rent exempt deposit of dataLen bytes from payer and
// returns the amount.
func PayRent(ctx context.Context, s Store, payer solana.PublicKey, dataLen uint64) (uint64, error) {
	rent := MinimumBalance(dataLen)
	if err := Debit(ctx, s, payer, rent); err != nil {
		return 0, err
	}
	return rent, nil
}

// InitializeMint creates a zero decimal mint at a fresh address.
func InitializeMint(ctx context.Context, s Store, payer, mint, authority solana.PublicKey) (*asset.Mint, error) {
	if _, err := s.GetMint(ctx, mint); err == nil {
		return nil, ErrAccountExists{Address: mint}
	} else if !IsNotFound(err) {
		return nil, err
	}

	if _, err := s.GetAccount(ctx, mint); err == nil {
		return nil, ErrAccountExists{Address: mint}
	} else if !IsNotFound(err) {
		return nil, err
	}

	rent, err := PayRent(ctx, s, payer, asset.MintSize)
	if err != nil {
		return nil, err
	}

	m := &asset.Mint{
		Address:         mint,
		Decimals:        0,
		Supply:          0,
		MintAuthority:   authority,
		FreezeAuthority: authority,
		Lamports:        rent,
	}

	if err := s.InsertMint(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

// CreateAssociatedAccount returns the associated token account of owner for
// mint, creating it at payer's expense when absent.
func CreateAssociatedAccount(ctx context.Context, s Store, payer, owner, mint solana.PublicKey) (*Account, error) {
	address, err := pda.AssociatedToken(owner, mint)
	if err != nil {
		return nil, err
	}

	existing, err := s.GetAccount(ctx, address)
	if err == nil {
		if !existing.Mint.Equals(mint) {
			return nil, ErrMintMismatch{Account: address, Want: mint, Got: existing.Mint}
		}
		if !existing.Owner.Equals(owner) {
			return nil, ErrOwnerMismatch{Account: address, Owner: existing.Owner, Authority: owner}
		}
		return existing, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	if _, err := s.GetMint(ctx, mint); err != nil {
		return nil, err
	}

	rent, err := PayRent(ctx, s, payer, AccountSize)
	if err != nil {
		return nil, err
	}

	acc := &Account{
		Address:  address,
		Mint:     mint,
		Owner:    owner,
		Amount:   0,
		Lamports: rent,
	}

	if err := s.InsertAccount(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

// MintTo issues amount units of mint into dest.
func MintTo(ctx context.Context, s Store, mint, dest solana.PublicKey, authority Authority, amount uint64) error {
	m, err := s.GetMint(ctx, mint)
	if err != nil {
		return err
	}

	if m.MintAuthority.IsZero() || !m.MintAuthority.Equals(authority.Key) {
		return ErrMintAuthority{Mint: mint}
	}

	acc, err := s.GetAccount(ctx, dest)
	if err != nil {
		return err
	}

	if !acc.Mint.Equals(mint) {
		return ErrMintMismatch{Account: dest, Want: mint, Got: acc.Mint}
	}

	supply, ok := util.SafeAdd(m.Supply, amount)
	if !ok {
		return ErrOverflow{Address: mint}
	}

	balance, ok := util.SafeAdd(acc.Amount, amount)
	if !ok {
		return ErrOverflow{Address: dest}
	}

	m.Supply = supply
	if err := s.UpdateMint(ctx, m); err != nil {
		return err
	}

	return s.UpdateAmount(ctx, dest, balance)
}

// SetMintAuthority hands issuance over to next. A zero next closes issuance.
func SetMintAuthority(ctx context.Context, s Store, mint solana.PublicKey, current Authority, next solana.PublicKey) error {
	m, err := s.GetMint(ctx, mint)
	if err != nil {
		return err
	}

	if m.MintAuthority.IsZero() || !m.MintAuthority.Equals(current.Key) {
		return ErrMintAuthority{Mint: mint}
	}

	m.MintAuthority = next
	m.FreezeAuthority = next

	return s.UpdateMint(ctx, m)
}

// Transfer moves amount units of mint from src to dst.
func Transfer(ctx context.Context, s Store, mint, src, dst solana.PublicKey, authority Authority, amount uint64) error {
	from, err := s.GetAccount(ctx, src)
	if err != nil {
		return err
	}

	to, err := s.GetAccount(ctx, dst)
	if err != nil {
		return err
	}

	if !from.Mint.Equals(mint) {
		return ErrMintMismatch{Account: src, Want: mint, Got: from.Mint}
	}

	if !to.Mint.Equals(mint) {
		return ErrMintMismatch{Account: dst, Want: mint, Got: to.Mint}
	}

	if err := authority.check(src, from.Owner); err != nil {
		return err
	}

	if src.Equals(dst) {
		return nil
	}

	left, ok := util.SafeSub(from.Amount, amount)
	if !ok {
		return ErrInsufficientTokens{Account: src, Have: from.Amount, Need: amount}
	}

	received, ok := util.SafeAdd(to.Amount, amount)
	if !ok {
		return ErrOverflow{Address: dst}
	}

	if err := s.UpdateAmount(ctx, src, left); err != nil {
		return err
	}

	return s.UpdateAmount(ctx, dst, received)
}

// CloseAccount deletes an empty token account and moves its deposit to
// destination. It returns the refunded lamports.
func CloseAccount(ctx context.Context, s Store, account, destination solana.PublicKey, authority Authority) (uint64, error) {
	acc, err := s.GetAccount(ctx, account)
	if err != nil {
		return 0, err
	}

	if err := authority.check(account, acc.Owner); err != nil {
		return 0, err
	}

	if acc.Amount != 0 {
		return 0, ErrNonZeroBalance{Account: account, Amount: acc.Amount}
	}

	if err := s.DeleteAccount(ctx, account); err != nil {
		return 0, err
	}

	if err := Credit(ctx, s, destination, acc.Lamports); err != nil {
		return 0, err
	}

	return acc.Lamports, nil
}

// Balance returns the amount of mint held by owner in its associated account,
// zero when the account does not exist.
func Balance(ctx context.Context, s Store, owner, mint solana.PublicKey) (uint64, error) {
	address, err := pda.AssociatedToken(owner, mint)
	if err != nil {
		return 0, err
	}

	acc, err := s.GetAccount(ctx, address)
	if IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return acc.Amount, nil
}
