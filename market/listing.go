package market

import (
	"context"
	"marketplace/db"
	"marketplace/sale"
	"marketplace/token"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Listing page bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// List moves the unit of mint from seller into program custody and records
// a listing at price.
func List(ctx context.Context, seller, mint solana.PublicKey, price uint64) (*sale.Receipt, error) {
	if price == 0 {
		return nil, ErrInvalidPrice{Price: "0"}
	}

	addr, bump, err := custody(mint)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"mint": mint, "seller": seller, "price": price}

	var receipt *sale.Receipt

	err = run(ctx, string(sale.ActivityList), fields, func(tx *db.Tx) error {
		if _, err := tx.GetSale(ctx, mint); err == nil {
			return ErrDuplicateListing{Mint: mint}
		} else if err != db.ErrNotFound {
			return err
		}

		src, err := requireHolder(ctx, tx, seller, mint)
		if err != nil {
			return err
		}

		escrowAcc, err := token.CreateAssociatedAccount(ctx, tx, seller, addr, mint)
		if err != nil {
			return err
		}

		if err := token.Transfer(ctx, tx, mint, src, escrowAcc.Address, token.WalletAuthority(seller), 1); err != nil {
			return err
		}

		rent, err := token.PayRent(ctx, tx, seller, sale.Size)
		if err != nil {
			return err
		}

		l := &sale.Listing{
			Address:   addr,
			Seller:    seller,
			Mint:      mint,
			Price:     price,
			Bump:      bump,
			Custody:   escrowAcc.Address,
			Lamports:  rent,
			CreatedAt: time.Now().Truncate(time.Second),
		}

		if err := tx.InsertSale(ctx, l); err != nil {
			if err == db.ErrDuplicate {
				return ErrDuplicateListing{Mint: mint}
			}
			return err
		}

		receipt, err = record(ctx, tx, &sale.Activity{
			Kind:   sale.ActivityList,
			Mint:   mint,
			Seller: seller,
			Price:  price,
		})
		if err != nil {
			return err
		}

		receipt.Listing = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// Get returns the active listing of mint.
func Get(ctx context.Context, mint solana.PublicKey) (*sale.Listing, error) {
	l, err := db.GetListing(ctx, mint)
	if err == db.ErrNotFound {
		return nil, ErrListingNotFound{Mint: mint}
	}
	return l, err
}

// Listings returns active listings ordered by mint, starting after the given mint.
func Listings(ctx context.Context, after *solana.PublicKey, limit uint) ([]*sale.Listing, error) {
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	cursor := ""
	if after != nil {
		cursor = after.String()
	}

	return db.GetListings(ctx, cursor, limit)
}
