package market

import (
	"context"
	"marketplace/db"
	"marketplace/sale"
	"marketplace/token"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// BuyRequest names the buyer and the asset. Seller and CustodyAccount are
// optional claims that must match the listing when set. A non-zero MaxPrice
// rejects a listing priced above it.
type BuyRequest struct {
	Buyer          solana.PublicKey
	Mint           solana.PublicKey
	MaxPrice       uint64
	Seller         *solana.PublicKey
	CustodyAccount *solana.PublicKey
}

// WithdrawRequest cancels the listing of Mint on behalf of Caller.
type WithdrawRequest struct {
	Caller solana.PublicKey
	Mint   solana.PublicKey
}

// Buy pays the seller, hands the unit to the buyer and closes the listing.
func Buy(ctx context.Context, req BuyRequest) (*sale.Receipt, error) {
	fields := logrus.Fields{"mint": req.Mint, "buyer": req.Buyer}

	var receipt *sale.Receipt

	err := run(ctx, string(sale.ActivityBuy), fields, func(tx *db.Tx) error {
		e, err := loadEscrow(ctx, tx, req.Mint)
		if err != nil {
			return err
		}
		l := e.listing

		if err := requireClaim(req.Mint, "seller", req.Seller, l.Seller); err != nil {
			return err
		}
		if err := requireClaim(req.Mint, "custody account", req.CustodyAccount, l.Custody); err != nil {
			return err
		}
		if req.MaxPrice != 0 && l.Price > req.MaxPrice {
			return ErrPriceAboveLimit{Mint: req.Mint, Price: l.Price, MaxPrice: req.MaxPrice}
		}

		if err := token.SystemTransfer(ctx, tx, req.Buyer, l.Seller, l.Price); err != nil {
			return err
		}

		dst, err := token.CreateAssociatedAccount(ctx, tx, req.Buyer, req.Buyer, req.Mint)
		if err != nil {
			return err
		}

		refund, err := release(ctx, tx, e, dst.Address)
		if err != nil {
			return err
		}

		receipt, err = record(ctx, tx, &sale.Activity{
			Kind:   sale.ActivityBuy,
			Mint:   req.Mint,
			Seller: l.Seller,
			Buyer:  req.Buyer,
			Price:  l.Price,
		})
		if err != nil {
			return err
		}

		receipt.RentRefunded = refund
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// Withdraw returns the unit to the seller and closes the listing.
func Withdraw(ctx context.Context, req WithdrawRequest) (*sale.Receipt, error) {
	fields := logrus.Fields{"mint": req.Mint, "caller": req.Caller}

	var receipt *sale.Receipt

	err := run(ctx, string(sale.ActivityWithdraw), fields, func(tx *db.Tx) error {
		e, err := loadEscrow(ctx, tx, req.Mint)
		if err != nil {
			return err
		}
		l := e.listing

		if err := requireSeller(l, req.Caller); err != nil {
			return err
		}

		dst, err := token.CreateAssociatedAccount(ctx, tx, l.Seller, l.Seller, req.Mint)
		if err != nil {
			return err
		}

		refund, err := release(ctx, tx, e, dst.Address)
		if err != nil {
			return err
		}

		receipt, err = record(ctx, tx, &sale.Activity{
			Kind:   sale.ActivityWithdraw,
			Mint:   req.Mint,
			Seller: l.Seller,
			Price:  l.Price,
		})
		if err != nil {
			return err
		}

		receipt.RentRefunded = refund
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// release moves the unit out of custody to dst, closes the custody account
// and the listing, and refunds both deposits to the seller.
func release(ctx context.Context, tx *db.Tx, e *escrow, dst solana.PublicKey) (uint64, error) {
	l := e.listing

	if err := token.Transfer(ctx, tx, l.Mint, l.Custody, dst, e.authority, 1); err != nil {
		return 0, err
	}

	accountRent, err := token.CloseAccount(ctx, tx, l.Custody, l.Seller, e.authority)
	if err != nil {
		return 0, err
	}

	if err := tx.DeleteSale(ctx, l.Mint, l.Seller); err != nil {
		if err == db.ErrNotFound {
			return 0, ErrListingNotFound{Mint: l.Mint}
		}
		return 0, err
	}

	if err := token.Credit(ctx, tx, l.Seller, l.Lamports); err != nil {
		return 0, err
	}

	return accountRent + l.Lamports, nil
}
