package rpc

import (
	stdjson "encoding/json"
	"marketplace/asset"
	"marketplace/sale"
	"marketplace/token"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

func (c *Client) mint(method string, payer, mint solana.PrivateKey, data asset.Data, collection *solana.PublicKey) (*sale.Receipt, error) {
	params := MintParams{
		Payer:      payer.PublicKey(),
		Mint:       mint.PublicKey(),
		Name:       data.Name,
		Symbol:     data.Symbol,
		URI:        data.URI,
		Collection: collection,
	}

	var r sale.Receipt
	if err := c.Call(method, params, &r, payer, mint); err != nil {
		return nil, err
	}
	return &r, nil
}

// MintCollection creates a collection asset owned by payer.
func (c *Client) MintCollection(payer, mint solana.PrivateKey, data asset.Data) (*sale.Receipt, error) {
	return c.mint(MethodMintCollection, payer, mint, data, nil)
}

// MintNft creates a member asset of collection owned by payer.
func (c *Client) MintNft(payer, mint solana.PrivateKey, data asset.Data, collection solana.PublicKey) (*sale.Receipt, error) {
	return c.mint(MethodMintNft, payer, mint, data, &collection)
}

// List offers mint for sale at price lamports.
func (c *Client) List(seller solana.PrivateKey, mint solana.PublicKey, price uint64) (*sale.Receipt, error) {
	params := ListParams{
		Seller: seller.PublicKey(),
		Mint:   mint,
		Price:  stdjson.Number(strconv.FormatUint(price, 10)),
	}

	var r sale.Receipt
	if err := c.Call(MethodListNftForSale, params, &r, seller); err != nil {
		return nil, err
	}
	return &r, nil
}

// Buy purchases the listed mint for at most maxPrice lamports. seller and
// custody are optional claims checked against the listing.
func (c *Client) Buy(buyer solana.PrivateKey, mint solana.PublicKey, maxPrice uint64, seller, custody *solana.PublicKey) (*sale.Receipt, error) {
	params := BuyParams{
		Buyer:          buyer.PublicKey(),
		Mint:           mint,
		MaxPrice:       maxPrice,
		Seller:         seller,
		CustodyAccount: custody,
	}

	var r sale.Receipt
	if err := c.Call(MethodBuyNft, params, &r, buyer); err != nil {
		return nil, err
	}
	return &r, nil
}

// Withdraw cancels the listing of mint.
func (c *Client) Withdraw(seller solana.PrivateKey, mint solana.PublicKey) (*sale.Receipt, error) {
	params := WithdrawParams{Seller: seller.PublicKey(), Mint: mint}

	var r sale.Receipt
	if err := c.Call(MethodWithdrawNft, params, &r, seller); err != nil {
		return nil, err
	}
	return &r, nil
}

// Airdrop credits lamports to address.
func (c *Client) Airdrop(address solana.PublicKey, lamports uint64) (*BalanceResult, error) {
	var r BalanceResult
	if err := c.Call(MethodRequestAirdrop, AirdropParams{Address: address, Lamports: lamports}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetBalance returns the lamports held by address.
func (c *Client) GetBalance(address solana.PublicKey) (*BalanceResult, error) {
	var r BalanceResult
	if err := c.Call(MethodGetBalance, AddressParams{Address: address}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetTokenBalance returns the units of mint held by owner.
func (c *Client) GetTokenBalance(owner, mint solana.PublicKey) (uint64, error) {
	var r TokenBalanceResult
	if err := c.Call(MethodGetTokenBalance, TokenBalanceParams{Owner: owner, Mint: mint}, &r); err != nil {
		return 0, err
	}
	return r.Amount, nil
}

// GetTokenAccount returns the token account at address.
func (c *Client) GetTokenAccount(address solana.PublicKey) (*token.Account, error) {
	var r token.Account
	if err := c.Call(MethodGetTokenAccount, AddressParams{Address: address}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetMetadata returns the metadata of mint.
func (c *Client) GetMetadata(mint solana.PublicKey) (*asset.Metadata, error) {
	var r asset.Metadata
	if err := c.Call(MethodGetMetadata, MintQueryParams{Mint: mint}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetListing returns the active listing of mint.
func (c *Client) GetListing(mint solana.PublicKey) (*sale.Listing, error) {
	var r sale.Listing
	if err := c.Call(MethodGetListing, MintQueryParams{Mint: mint}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetListings returns one page of active listings ordered by mint.
func (c *Client) GetListings(after *solana.PublicKey, limit uint) ([]*sale.Listing, error) {
	var r []*sale.Listing
	if err := c.Call(MethodGetListings, ListingsParams{After: after, Limit: limit}, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetActivity returns recent activity, newest first. A nil mint selects all mints.
func (c *Client) GetActivity(mint *solana.PublicKey, limit uint) ([]*sale.Activity, error) {
	var r []*sale.Activity
	if err := c.Call(MethodGetActivity, ActivityParams{Mint: mint, Limit: limit}, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetStats returns activity counts and sales volume.
func (c *Client) GetStats() (*sale.Stats, error) {
	var r sale.Stats
	if err := c.Call(MethodGetStats, struct{}{}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
