package rpc

import (
	"context"
	"errors"
	"marketplace/asset"
	"marketplace/db"
	"marketplace/log"
	"marketplace/market"
	"marketplace/util"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	requestTimeout = 30 * time.Second
	maxBodySize    = 1 << 20
)

// method describes one JSON-RPC method.
type method struct {
	params func() interface{}
	// signers lists the keys that must sign the request.
	signers func(p interface{}) []solana.PublicKey
	call    func(ctx context.Context, p interface{}) (interface{}, error)
}

func noSigners(interface{}) []solana.PublicKey { return nil }

var methods = map[string]method{
	MethodMintCollection: {
		params: func() interface{} { return &MintParams{} },
		signers: func(p interface{}) []solana.PublicKey {
			m := p.(*MintParams)
			return []solana.PublicKey{m.Payer, m.Mint}
		},
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			m := p.(*MintParams)
			return market.MintCollection(ctx, m.Payer, m.Mint, asset.Data{Name: m.Name, Symbol: m.Symbol, URI: m.URI})
		},
	},
	MethodMintNft: {
		params: func() interface{} { return &MintParams{} },
		signers: func(p interface{}) []solana.PublicKey {
			m := p.(*MintParams)
			return []solana.PublicKey{m.Payer, m.Mint}
		},
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			m := p.(*MintParams)
			if m.Collection == nil {
				return nil, &Error{Code: CodeInvalidParams, Message: "collection is required"}
			}
			return market.MintNft(ctx, m.Payer, m.Mint, asset.Data{Name: m.Name, Symbol: m.Symbol, URI: m.URI}, *m.Collection)
		},
	},
	MethodListNftForSale: {
		params: func() interface{} { return &ListParams{} },
		signers: func(p interface{}) []solana.PublicKey {
			return []solana.PublicKey{p.(*ListParams).Seller}
		},
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			l := p.(*ListParams)
			price, err := market.ParsePrice(l.Price.String())
			if err != nil {
				return nil, err
			}
			return market.List(ctx, l.Seller, l.Mint, price)
		},
	},
	MethodBuyNft: {
		params: func() interface{} { return &BuyParams{} },
		signers: func(p interface{}) []solana.PublicKey {
			return []solana.PublicKey{p.(*BuyParams).Buyer}
		},
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			b := p.(*BuyParams)
			return market.Buy(ctx, market.BuyRequest{
				Buyer:          b.Buyer,
				Mint:           b.Mint,
				MaxPrice:       b.MaxPrice,
				Seller:         b.Seller,
				CustodyAccount: b.CustodyAccount,
			})
		},
	},
	MethodWithdrawNft: {
		params: func() interface{} { return &WithdrawParams{} },
		signers: func(p interface{}) []solana.PublicKey {
			return []solana.PublicKey{p.(*WithdrawParams).Seller}
		},
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			w := p.(*WithdrawParams)
			return market.Withdraw(ctx, market.WithdrawRequest{Caller: w.Seller, Mint: w.Mint})
		},
	},
	MethodRequestAirdrop: {
		params:  func() interface{} { return &AirdropParams{} },
		signers: noSigners,
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			a := p.(*AirdropParams)
			lamports, err := market.Airdrop(ctx, a.Address, a.Lamports)
			if err != nil {
				return nil, err
			}
			return balanceResult(lamports), nil
		},
	},
	MethodGetBalance: {
		params:  func() interface{} { return &AddressParams{} },
		signers: noSigners,
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			lamports, err := market.Balance(ctx, p.(*AddressParams).Address)
			if err != nil {
				return nil, err
			}
			return balanceResult(lamports), nil
		},
	},
	MethodGetTokenBalance: {
		params:  func() interface{} { return &TokenBalanceParams{} },
		signers: noSigners,
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			q := p.(*TokenBalanceParams)
			amount, err := market.TokenBalance(ctx, q.Owner, q.Mint)
			if err != nil {
				return nil, err
			}
			return TokenBalanceResult{Amount: amount}, nil
		},
	},
	MethodGetTokenAccount: {
		params:  func() interface{} { return &AddressParams{} },
		signers: noSigners,
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			return market.TokenAccount(ctx, p.(*AddressParams).Address)
		},
	},
	MethodGetMetadata: {
		params:  func() interface{} { return &MintQueryParams{} },
		signers: noSigners,
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			return market.Metadata(ctx, p.(*MintQueryParams).Mint)
		},
	},
	MethodGetListing: {
		params:  func() interface{} { return &MintQueryParams{} },
		signers: noSigners,
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			return market.Get(ctx, p.(*MintQueryParams).Mint)
		},
	},
	MethodGetListings: {
		params:  func() interface{} { return &ListingsParams{} },
		signers: noSigners,
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			q := p.(*ListingsParams)
			return market.Listings(ctx, q.After, q.Limit)
		},
	},
	MethodGetActivity: {
		params:  func() interface{} { return &ActivityParams{} },
		signers: noSigners,
		call: func(ctx context.Context, p interface{}) (interface{}, error) {
			q := p.(*ActivityParams)
			mint := solana.PublicKey{}
			if q.Mint != nil {
				mint = *q.Mint
			}
			return market.Activity(ctx, mint, q.Limit)
		},
	},
	MethodGetStats: {
		params:  func() interface{} { return &struct{}{} },
		signers: noSigners,
		call: func(ctx context.Context, _ interface{}) (interface{}, error) {
			return market.Stats(ctx)
		},
	},
}

func balanceResult(lamports uint64) BalanceResult {
	return BalanceResult{Lamports: lamports, SOL: util.LamportsToSOL(lamports)}
}

// NewServer returns the JSON-RPC server.
func NewServer() *fasthttp.Server {
	return &fasthttp.Server{
		Handler:            Handle,
		Name:               "marketplace",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       requestTimeout + 5*time.Second,
		MaxRequestBodySize: maxBodySize,
	}
}

// Serve accepts JSON-RPC requests on addr.
func Serve(addr string) error {
	log.Printf("JSON-RPC server listening on %s", addr)
	return NewServer().ListenAndServe(addr)
}

// Handle serves one HTTP request.
func Handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.Error("only POST is supported", fasthttp.StatusMethodNotAllowed)
		return
	}

	resp := dispatch(ctx.PostBody())

	body, err := json.Marshal(resp)
	if err != nil {
		log.Error.Println(err)
		ctx.Error("cannot encode response", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func dispatch(body []byte) *Response {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil || req.JSONRPC != "2.0" || req.Method == "" {
		return failure(nil, &Error{Code: CodeInvalidRequest, Message: "invalid request"})
	}

	m, ok := methods[req.Method]
	if !ok {
		return failure(req.ID, &Error{Code: CodeMethodNotFound, Message: "method not found: " + req.Method})
	}

	params := m.params()
	if len(req.Params) > 0 && string(req.Params) != "null" {
		if err := strict.Unmarshal(req.Params, params); err != nil {
			return failure(req.ID, &Error{Code: CodeInvalidParams, Message: err.Error()})
		}
	}

	if err := asset.Validator().Struct(params); err != nil {
		return failure(req.ID, &Error{Code: CodeInvalidParams, Message: err.Error()})
	}

	signers := m.signers(params)
	if err := verify(&req, time.Now(), signers...); err != nil {
		return failure(req.ID, &Error{Code: CodeAuthorization, Message: err.Error(), Kind: market.KindAuthorization.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	// The first signer owns the nonce; it is consumed by the unit the call commits.
	if len(signers) > 0 {
		ctx = db.WithNonce(ctx, db.Nonce{
			Signer:  signers[0],
			Value:   req.Nonce,
			Expires: time.Unix(req.Expires, 0),
		})
	}

	start := time.Now()
	result, err := m.call(ctx, params)

	log.WithFields(logrus.Fields{
		"method":  req.Method,
		"elapsed": time.Since(start),
		"ok":      err == nil,
	}).Debug("rpc call")

	if err != nil {
		return failure(req.ID, toError(err))
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return failure(req.ID, &Error{Code: CodeFatal, Message: err.Error(), Kind: market.KindFatal.String()})
	}

	return &Response{JSONRPC: "2.0", ID: responseID(req.ID), Result: raw}
}

func failure(id []byte, e *Error) *Response {
	return &Response{JSONRPC: "2.0", ID: responseID(id), Error: e}
}

func responseID(id []byte) []byte {
	if len(id) == 0 {
		return []byte("null")
	}
	return id
}

func toError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	kind := market.KindOf(err)

	code := CodeFatal
	switch kind {
	case market.KindValidation:
		code = CodeValidation
	case market.KindAuthorization:
		code = CodeAuthorization
	case market.KindState:
		code = CodeState
	case market.KindCanceled:
		code = CodeCanceled
	}

	return &Error{Code: code, Message: err.Error(), Kind: kind.String()}
}
