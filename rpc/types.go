package rpc

import (
	stdjson "encoding/json"

	"github.com/gagliardetto/solana-go"
	jsoniter "github.com/json-iterator/go"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary
	// strict decodes params, rejecting unknown fields.
	strict = jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		DisallowUnknownFields:  true,
	}.Froze()
)

// Method names.
const (
	MethodMintCollection  = "mintCollection"
	MethodMintNft         = "mintNft"
	MethodListNftForSale  = "listNftForSale"
	MethodBuyNft          = "buyNft"
	MethodWithdrawNft     = "withdrawNft"
	MethodRequestAirdrop  = "requestAirdrop"
	MethodGetBalance      = "getBalance"
	MethodGetTokenBalance = "getTokenBalance"
	MethodGetTokenAccount = "getTokenAccount"
	MethodGetMetadata     = "getMetadata"
	MethodGetListing      = "getListing"
	MethodGetListings     = "getListings"
	MethodGetActivity     = "getActivity"
	MethodGetStats        = "getStats"
)

// Error codes. Market error kinds use the 6000 range.
const (
	CodeValidation    = 6000
	CodeAuthorization = 6001
	CodeState         = 6002
	CodeFatal         = 6003
	CodeCanceled      = 6004

	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
)

// Request is a JSON-RPC 2.0 request carrying detached signatures. Each
// signature signs Message(Method, Nonce, Expires, Params) and is keyed by the
// signer's base58 public key. Signed requests are accepted once, before
// Expires (unix seconds).
type Request struct {
	JSONRPC    string             `json:"jsonrpc"`
	ID         stdjson.RawMessage `json:"id"`
	Method     string             `json:"method"`
	Params     stdjson.RawMessage `json:"params"`
	Nonce      string             `json:"nonce,omitempty"`
	Expires    int64              `json:"expires,omitempty"`
	Signatures map[string]string  `json:"signatures,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      stdjson.RawMessage `json:"id"`
	Result  stdjson.RawMessage `json:"result,omitempty"`
	Error   *Error             `json:"error,omitempty"`
}

// Error is the error member of a response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// MintParams are the params of mintCollection and mintNft. Collection is
// required by mintNft only.
type MintParams struct {
	Payer      solana.PublicKey  `json:"payer" validate:"required"`
	Mint       solana.PublicKey  `json:"mint" validate:"required"`
	Name       string            `json:"name"`
	Symbol     string            `json:"symbol"`
	URI        string            `json:"uri"`
	Collection *solana.PublicKey `json:"collection,omitempty"`
}

// ListParams are the params of listNftForSale.
type ListParams struct {
	Seller solana.PublicKey `json:"seller" validate:"required"`
	Mint   solana.PublicKey `json:"mint" validate:"required"`
	// Price is kept verbatim so negative or fractional values reach price validation.
	Price stdjson.Number `json:"price" validate:"required"`
}

// BuyParams are the params of buyNft. MaxPrice is the most the buyer pays.
type BuyParams struct {
	Buyer          solana.PublicKey  `json:"buyer" validate:"required"`
	Mint           solana.PublicKey  `json:"mint" validate:"required"`
	MaxPrice       uint64            `json:"max_price" validate:"required"`
	Seller         *solana.PublicKey `json:"seller,omitempty"`
	CustodyAccount *solana.PublicKey `json:"custody_account,omitempty"`
}

// WithdrawParams are the params of withdrawNft.
type WithdrawParams struct {
	Seller solana.PublicKey `json:"seller" validate:"required"`
	Mint   solana.PublicKey `json:"mint" validate:"required"`
}

// AirdropParams are the params of requestAirdrop.
type AirdropParams struct {
	Address  solana.PublicKey `json:"address" validate:"required"`
	Lamports uint64           `json:"lamports"`
}

// AddressParams select a single account.
type AddressParams struct {
	Address solana.PublicKey `json:"address" validate:"required"`
}

// MintQueryParams select a single mint.
type MintQueryParams struct {
	Mint solana.PublicKey `json:"mint" validate:"required"`
}

// TokenBalanceParams are the params of getTokenBalance.
type TokenBalanceParams struct {
	Owner solana.PublicKey `json:"owner" validate:"required"`
	Mint  solana.PublicKey `json:"mint" validate:"required"`
}

// ListingsParams page through active listings.
type ListingsParams struct {
	After *solana.PublicKey `json:"after,omitempty"`
	Limit uint              `json:"limit" validate:"lte=100"`
}

// ActivityParams query recorded activity. A missing mint selects all mints.
type ActivityParams struct {
	Mint  *solana.PublicKey `json:"mint,omitempty"`
	Limit uint              `json:"limit" validate:"lte=500"`
}

// BalanceResult is returned by balance queries.
type BalanceResult struct {
	Lamports uint64 `json:"lamports"`
	SOL      string `json:"sol"`
}

// TokenBalanceResult is returned by getTokenBalance.
type TokenBalanceResult struct {
	Amount uint64 `json:"amount"`
}
