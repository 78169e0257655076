package market

import (
	"context"
	"errors"
	"marketplace/db"
	"marketplace/sale"
	"marketplace/token"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listed mints an asset for a funded seller and lists it at price.
func listed(t *testing.T, ctx context.Context) (seller, mint solana.PublicKey) {
	t.Helper()
	seller = fund(t, ctx, 2)
	mint = mintMember(t, ctx, seller)

	_, err := List(ctx, seller, mint, price)
	require.NoError(t, err)
	return seller, mint
}

func requireUnlisted(t *testing.T, ctx context.Context, mint solana.PublicKey) {
	t.Helper()
	_, err := Get(ctx, mint)
	assert.ErrorAs(t, err, &ErrListingNotFound{})

	_, ata := custodyOf(t, mint)
	_, err = TokenAccount(ctx, ata)
	assert.True(t, token.IsNotFound(err))
}

func TestListThenGet(t *testing.T) {
	ctx := setup(t)
	seller := fund(t, ctx, 2)
	mint := mintMember(t, ctx, seller)
	before := balance(t, ctx, seller)

	receipt, err := List(ctx, seller, mint, price)
	require.NoError(t, err)
	require.NotNil(t, receipt.Listing)

	l, err := Get(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(price), l.Price)
	assert.Equal(t, seller, l.Seller)
	assert.Equal(t, mint, l.Mint)

	addr, ata := custodyOf(t, mint)
	assert.Equal(t, addr, l.Address)
	assert.Equal(t, ata, l.Custody)

	assert.Equal(t, uint64(0), tokens(t, ctx, seller, mint))
	assert.Equal(t, uint64(1), tokens(t, ctx, addr, mint))
	requireSingleHolder(t, ctx, mint, addr)

	deposits := token.MinimumBalance(token.AccountSize) + token.MinimumBalance(sale.Size)
	assert.Equal(t, before-deposits, balance(t, ctx, seller))
	assert.Equal(t, token.MinimumBalance(sale.Size), l.Lamports)
}

func TestListRejectsZeroPrice(t *testing.T) {
	ctx := setup(t)
	seller := fund(t, ctx, 2)
	mint := mintMember(t, ctx, seller)

	_, err := List(ctx, seller, mint, 0)
	assert.ErrorAs(t, err, &ErrInvalidPrice{})
	assert.Equal(t, KindValidation, KindOf(err))

	assert.Equal(t, uint64(1), tokens(t, ctx, seller, mint))
	requireUnlisted(t, ctx, mint)
}

func TestListTwice(t *testing.T) {
	ctx := setup(t)
	seller, mint := listed(t, ctx)
	before := balance(t, ctx, seller)

	_, err := List(ctx, seller, mint, 2*price)
	assert.ErrorAs(t, err, &ErrDuplicateListing{})
	assert.Equal(t, KindState, KindOf(err))

	l, err := Get(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(price), l.Price)
	assert.Equal(t, before, balance(t, ctx, seller))
	addr, _ := custodyOf(t, mint)
	requireSingleHolder(t, ctx, mint, addr)
}

func TestListWithoutHolding(t *testing.T) {
	ctx := setup(t)
	owner := fund(t, ctx, 2)
	mint := mintMember(t, ctx, owner)
	other := fund(t, ctx, 1)

	_, err := List(ctx, other, mint, price)
	assert.ErrorAs(t, err, &ErrInsufficientBalance{})
	assert.Equal(t, KindState, KindOf(err))

	requireUnlisted(t, ctx, mint)
	requireSingleHolder(t, ctx, mint, owner)
}

func TestBuy(t *testing.T) {
	ctx := setup(t)
	seller, mint := listed(t, ctx)
	buyer := fund(t, ctx, 2)

	sellerBefore := balance(t, ctx, seller)
	buyerBefore := balance(t, ctx, buyer)

	receipt, err := Buy(ctx, BuyRequest{Buyer: buyer, Mint: mint})
	require.NoError(t, err)
	assert.Equal(t, sale.ActivityBuy, receipt.Kind)
	assert.Equal(t, buyer, receipt.Buyer)
	assert.Equal(t, seller, receipt.Seller)
	assert.Equal(t, uint64(price), receipt.Price)

	refund := token.MinimumBalance(token.AccountSize) + token.MinimumBalance(sale.Size)
	assert.Equal(t, refund, receipt.RentRefunded)

	assert.Equal(t, uint64(1), tokens(t, ctx, buyer, mint))
	assert.Equal(t, sellerBefore+price+refund, balance(t, ctx, seller))
	assert.Equal(t, buyerBefore-price-token.MinimumBalance(token.AccountSize), balance(t, ctx, buyer))

	requireUnlisted(t, ctx, mint)
	requireSingleHolder(t, ctx, mint, buyer)
}

func TestBuyUnderfunded(t *testing.T) {
	ctx := setup(t)
	seller, mint := listed(t, ctx)
	buyer := newKey(t)
	_, err := Airdrop(ctx, buyer, price-1)
	require.NoError(t, err)

	_, err = Buy(ctx, BuyRequest{Buyer: buyer, Mint: mint})
	assert.ErrorAs(t, err, &token.ErrInsufficientFunds{})
	assert.Equal(t, KindState, KindOf(err))

	assert.Equal(t, uint64(price-1), balance(t, ctx, buyer))
	l, err := Get(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, seller, l.Seller)
	addr, _ := custodyOf(t, mint)
	requireSingleHolder(t, ctx, mint, addr)
}

func TestBuyRejectsPriceAboveLimit(t *testing.T) {
	ctx := setup(t)
	seller, mint := listed(t, ctx)
	buyer := fund(t, ctx, 2)

	_, err := Buy(ctx, BuyRequest{Buyer: buyer, Mint: mint, MaxPrice: price - 1})
	assert.ErrorAs(t, err, &ErrPriceAboveLimit{})
	assert.Equal(t, KindValidation, KindOf(err))

	assert.Equal(t, 2*solana.LAMPORTS_PER_SOL, balance(t, ctx, buyer))
	addr, _ := custodyOf(t, mint)
	requireSingleHolder(t, ctx, mint, addr)

	receipt, err := Buy(ctx, BuyRequest{Buyer: buyer, Mint: mint, MaxPrice: price})
	require.NoError(t, err)
	assert.Equal(t, seller, receipt.Seller)
	requireSingleHolder(t, ctx, mint, buyer)
}

func TestBuyNotListed(t *testing.T) {
	ctx := setup(t)
	owner := fund(t, ctx, 2)
	mint := mintMember(t, ctx, owner)
	buyer := fund(t, ctx, 2)

	_, err := Buy(ctx, BuyRequest{Buyer: buyer, Mint: mint})
	assert.ErrorAs(t, err, &ErrListingNotFound{})
	assert.Equal(t, KindState, KindOf(err))
}

func TestBuyRejectsMismatchedClaims(t *testing.T) {
	ctx := setup(t)
	_, mint := listed(t, ctx)
	buyer := fund(t, ctx, 2)
	stranger := newKey(t)

	for name, req := range map[string]BuyRequest{
		"seller":  {Buyer: buyer, Mint: mint, Seller: &stranger},
		"custody": {Buyer: buyer, Mint: mint, CustodyAccount: &stranger},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Buy(ctx, req)
			assert.ErrorAs(t, err, &ErrIdentityMismatch{})
			assert.Equal(t, KindAuthorization, KindOf(err))
		})
	}

	addr, _ := custodyOf(t, mint)
	requireSingleHolder(t, ctx, mint, addr)
}

func TestBuyUnderOtherProgram(t *testing.T) {
	ctx := setup(t)
	_, mint := listed(t, ctx)
	addr, _ := custodyOf(t, mint)
	buyer := fund(t, ctx, 2)

	SetProgramID(newKey(t))

	_, err := Buy(ctx, BuyRequest{Buyer: buyer, Mint: mint})
	assert.Equal(t, KindAuthorization, KindOf(err))
	assert.Equal(t, 2*solana.LAMPORTS_PER_SOL, balance(t, ctx, buyer))
	requireSingleHolder(t, ctx, mint, addr)
}

func TestWithdrawByNonSeller(t *testing.T) {
	ctx := setup(t)
	_, mint := listed(t, ctx)
	other := fund(t, ctx, 1)

	_, err := Withdraw(ctx, WithdrawRequest{Caller: other, Mint: mint})
	assert.ErrorAs(t, err, &ErrNotSeller{})
	assert.Equal(t, KindAuthorization, KindOf(err))

	_, err = Get(ctx, mint)
	require.NoError(t, err)
	addr, _ := custodyOf(t, mint)
	requireSingleHolder(t, ctx, mint, addr)
}

func TestWithdraw(t *testing.T) {
	ctx := setup(t)
	seller, mint := listed(t, ctx)
	before := balance(t, ctx, seller)

	receipt, err := Withdraw(ctx, WithdrawRequest{Caller: seller, Mint: mint})
	require.NoError(t, err)
	assert.Equal(t, sale.ActivityWithdraw, receipt.Kind)
	assert.True(t, receipt.Buyer.IsZero())

	assert.Equal(t, uint64(1), tokens(t, ctx, seller, mint))
	assert.Equal(t, before+receipt.RentRefunded, balance(t, ctx, seller))
	requireUnlisted(t, ctx, mint)
	requireSingleHolder(t, ctx, mint, seller)

	_, err = Withdraw(ctx, WithdrawRequest{Caller: seller, Mint: mint})
	assert.ErrorAs(t, err, &ErrListingNotFound{})
}

func TestRelistAfterWithdraw(t *testing.T) {
	ctx := setup(t)
	seller, mint := listed(t, ctx)

	_, err := Withdraw(ctx, WithdrawRequest{Caller: seller, Mint: mint})
	require.NoError(t, err)

	_, err = List(ctx, seller, mint, 3*price)
	require.NoError(t, err)

	l, err := Get(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(3*price), l.Price)

	buyer := fund(t, ctx, 5)
	receipt, err := Buy(ctx, BuyRequest{Buyer: buyer, Mint: mint, Seller: &seller, CustodyAccount: &l.Custody})
	require.NoError(t, err)
	assert.Equal(t, uint64(3*price), receipt.Price)
	requireSingleHolder(t, ctx, mint, buyer)
}

func TestConcurrentBuyAndWithdraw(t *testing.T) {
	ctx := setup(t)
	seller, mint := listed(t, ctx)

	const buyers = 6
	keys := make([]solana.PublicKey, buyers)
	for i := range keys {
		keys[i] = fund(t, ctx, 2)
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers+1)

	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Buy(ctx, BuyRequest{Buyer: keys[i], Mint: mint})
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[buyers] = Withdraw(ctx, WithdrawRequest{Caller: seller, Mint: mint})
	}()

	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorAs(t, err, &ErrListingNotFound{})
	}
	assert.Equal(t, 1, winners)

	requireUnlisted(t, ctx, mint)

	holders, err := Holders(ctx, mint)
	require.NoError(t, err)
	total := uint64(0)
	for _, acc := range holders {
		total += acc.Amount
	}
	assert.Equal(t, uint64(1), total)
}

func TestConcurrentList(t *testing.T) {
	ctx := setup(t)
	seller := fund(t, ctx, 2)
	mint := mintMember(t, ctx, seller)
	before := balance(t, ctx, seller)

	const racers = 6

	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = List(ctx, seller, mint, uint64(i+1)*price)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorAs(t, err, &ErrDuplicateListing{})
		assert.Equal(t, KindState, KindOf(err))
	}
	assert.Equal(t, 1, winners)

	l, err := Get(ctx, mint)
	require.NoError(t, err)
	addr, ata := custodyOf(t, mint)
	assert.Equal(t, ata, l.Custody)
	assert.Equal(t, uint64(1), tokens(t, ctx, addr, mint))
	requireSingleHolder(t, ctx, mint, addr)

	deposits := token.MinimumBalance(token.AccountSize) + token.MinimumBalance(sale.Size)
	assert.Equal(t, before-deposits, balance(t, ctx, seller))
}

func TestConcurrentListAndWithdraw(t *testing.T) {
	ctx := setup(t)
	seller, mint := listed(t, ctx)
	addr, _ := custodyOf(t, mint)

	var (
		wg                   sync.WaitGroup
		listErr, withdrawErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, listErr = List(ctx, seller, mint, 2*price)
	}()
	go func() {
		defer wg.Done()
		_, withdrawErr = Withdraw(ctx, WithdrawRequest{Caller: seller, Mint: mint})
	}()
	wg.Wait()

	require.NoError(t, withdrawErr)

	if listErr != nil {
		// The listing was still active when List ran.
		assert.ErrorAs(t, listErr, &ErrDuplicateListing{})
		requireUnlisted(t, ctx, mint)
		requireSingleHolder(t, ctx, mint, seller)
		return
	}

	l, err := Get(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(2*price), l.Price)
	requireSingleHolder(t, ctx, mint, addr)
}

func TestCanceledUnitIsNotFatal(t *testing.T) {
	ctx := setup(t)
	seller := fund(t, ctx, 2)
	mint := mintMember(t, ctx, seller)

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := List(canceled, seller, mint, price)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindCanceled, KindOf(err))
	assert.False(t, errors.As(err, &ErrInternal{}))

	requireUnlisted(t, ctx, mint)
	requireSingleHolder(t, ctx, mint, seller)
}

func TestActivityAndStats(t *testing.T) {
	ctx := setup(t)
	seller, mint := listed(t, ctx)
	buyer := fund(t, ctx, 2)

	_, err := Buy(ctx, BuyRequest{Buyer: buyer, Mint: mint})
	require.NoError(t, err)

	acts, err := Activity(ctx, mint, 10)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, sale.ActivityBuy, acts[0].Kind)
	assert.Equal(t, sale.ActivityList, acts[1].Kind)
	assert.Equal(t, sale.ActivityMintNft, acts[2].Kind)
	assert.Equal(t, seller, acts[1].Seller)

	stats, err := Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Counts[sale.ActivityMintCollection])
	assert.Equal(t, uint64(1), stats.Counts[sale.ActivityBuy])
	assert.Equal(t, uint64(price), stats.Volume)

	page, err := Listings(ctx, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = db.GetListing(ctx, mint)
	assert.ErrorIs(t, err, db.ErrNotFound)
}
