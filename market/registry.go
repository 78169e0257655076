package market

import (
	"context"
	"errors"
	"marketplace/asset"
	"marketplace/cache"
	"marketplace/db"
	"marketplace/pda"
	"marketplace/sale"
	"marketplace/token"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// MintCollection creates a collection asset at the fresh identity mint.
// payer funds every account and receives the single unit.
func MintCollection(ctx context.Context, payer, mint solana.PublicKey, data asset.Data) (*sale.Receipt, error) {
	return mintAsset(ctx, payer, mint, data, nil)
}

// MintNft creates a member asset of collection at the fresh identity mint.
func MintNft(ctx context.Context, payer, mint solana.PublicKey, data asset.Data, collection solana.PublicKey) (*sale.Receipt, error) {
	return mintAsset(ctx, payer, mint, data, &collection)
}

func mintAsset(ctx context.Context, payer, mint solana.PublicKey, data asset.Data, collection *solana.PublicKey) (*sale.Receipt, error) {
	if err := data.Validate(); err != nil {
		return nil, ErrInvalidMetadata{Err: err}
	}

	if mint.Equals(payer) {
		return nil, ErrMintInUse{Mint: mint}
	}

	kind, activity := asset.KindCollection, sale.ActivityMintCollection
	if collection != nil {
		kind, activity = asset.KindMember, sale.ActivityMintNft
	}

	metadataAddr, err := pda.Metadata(mint)
	if err != nil {
		return nil, ErrDerivation{Mint: mint, Err: err}
	}

	editionAddr, err := pda.Edition(mint)
	if err != nil {
		return nil, ErrDerivation{Mint: mint, Err: err}
	}

	fields := logrus.Fields{"mint": mint, "payer": payer, "kind": kind}
	if collection != nil {
		fields["collection"] = *collection
	}

	var (
		receipt *sale.Receipt
		md      *asset.Metadata
	)

	err = run(ctx, string(activity), fields, func(tx *db.Tx) error {
		if collection != nil {
			if err := requireCollection(ctx, tx, *collection); err != nil {
				return err
			}
		}

		if err := requireFresh(ctx, tx, mint); err != nil {
			return err
		}

		if _, err := token.InitializeMint(ctx, tx, payer, mint, payer); err != nil {
			if errors.As(err, &token.ErrAccountExists{}) {
				return ErrMintInUse{Mint: mint}
			}
			return err
		}

		acc, err := token.CreateAssociatedAccount(ctx, tx, payer, payer, mint)
		if err != nil {
			return err
		}

		if err := token.MintTo(ctx, tx, mint, acc.Address, token.WalletAuthority(payer), 1); err != nil {
			return err
		}

		rent, err := token.PayRent(ctx, tx, payer, asset.MetadataSize)
		if err != nil {
			return err
		}

		md = &asset.Metadata{
			Address:         metadataAddr,
			Mint:            mint,
			Data:            data,
			UpdateAuthority: payer,
			Kind:            kind,
			Collection:      collection,
			Verified:        false,
			Lamports:        rent,
		}
		if err := tx.InsertMetadata(ctx, md); err != nil {
			return err
		}

		rent, err = token.PayRent(ctx, tx, payer, asset.MasterEditionSize)
		if err != nil {
			return err
		}

		edition := &asset.MasterEdition{
			Address:   editionAddr,
			Mint:      mint,
			MaxSupply: 0,
			Lamports:  rent,
		}
		if err := tx.InsertMasterEdition(ctx, edition); err != nil {
			return err
		}

		// The edition takes over issuance, fixing the supply at 1.
		if err := token.SetMintAuthority(ctx, tx, mint, token.WalletAuthority(payer), editionAddr); err != nil {
			return err
		}

		receipt, err = record(ctx, tx, &sale.Activity{
			Kind:   activity,
			Mint:   mint,
			Seller: payer,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	cache.AddMetadata(md)
	return receipt, nil
}

// requireFresh rejects an identity that already holds lamports or data.
func requireFresh(ctx context.Context, tx *db.Tx, mint solana.PublicKey) error {
	lamports, err := tx.GetLamports(ctx, mint)
	if err != nil {
		return err
	}

	if lamports > 0 {
		return ErrMintInUse{Mint: mint}
	}

	if _, err := tx.GetMetadata(ctx, mint); err == nil {
		return ErrMintInUse{Mint: mint}
	} else if !token.IsNotFound(err) {
		return err
	}

	return nil
}

func requireCollection(ctx context.Context, tx *db.Tx, collection solana.PublicKey) error {
	isCollection, ok := cache.IsCollection(collection)
	if !ok {
		md, err := tx.GetMetadata(ctx, collection)
		if token.IsNotFound(err) {
			return ErrInvalidCollection{Collection: collection, Reason: "asset not found"}
		}
		if err != nil {
			return err
		}

		cache.AddMetadata(md)
		isCollection = md.IsCollection()
	}

	if !isCollection {
		return ErrInvalidCollection{Collection: collection, Reason: "asset is not a collection"}
	}

	return nil
}

// Metadata returns the metadata of mint.
func Metadata(ctx context.Context, mint solana.PublicKey) (*asset.Metadata, error) {
	if md, ok := cache.GetMetadata(mint); ok {
		return md, nil
	}

	md, err := db.GetMetadata(ctx, mint)
	if token.IsNotFound(err) {
		return nil, ErrAssetNotFound{Mint: mint}
	}
	if err != nil {
		return nil, err
	}

	cache.AddMetadata(md)
	return md, nil
}

// Mint returns the mint account of an asset.
func Mint(ctx context.Context, mint solana.PublicKey) (*asset.Mint, error) {
	m, err := db.GetMint(ctx, mint)
	if token.IsNotFound(err) {
		return nil, ErrAssetNotFound{Mint: mint}
	}
	return m, err
}
