package sale

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Size is the byte size of a sale record: discriminator, seller, mint, price, bump.
const Size = 8 + 32 + 32 + 8 + 1

// Listing is the sale record of a mint currently offered for sale.
type Listing struct {
	// Address is the custody identity derived from the mint; it keys the record.
	Address solana.PublicKey `json:"address"`
	Seller  solana.PublicKey `json:"seller"`
	Mint    solana.PublicKey `json:"mint"`
	Price   uint64           `json:"price"`
	Bump    uint8            `json:"bump"`
	// Custody is the token account holding the listed unit.
	Custody   solana.PublicKey `json:"custody"`
	Lamports  uint64           `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
}

// ActivityKind names a recorded marketplace operation.
type ActivityKind string

// Activity kinds.
const (
	ActivityMintCollection ActivityKind = "mint_collection"
	ActivityMintNft        ActivityKind = "mint_nft"
	ActivityList           ActivityKind = "list"
	ActivityBuy            ActivityKind = "buy"
	ActivityWithdraw       ActivityKind = "withdraw"
)

// Activity db model, one row per committed operation.
type Activity struct {
	Slot      uint64           `json:"slot"`
	TxID      string           `json:"txid"`
	Kind      ActivityKind     `json:"kind"`
	Mint      solana.PublicKey `json:"mint"`
	Seller    solana.PublicKey `json:"seller"`
	Buyer     solana.PublicKey `json:"buyer"`
	Price     uint64           `json:"price"`
	CreatedAt time.Time        `json:"created_at"`
}

// Receipt is returned by every state changing operation.
type Receipt struct {
	TxID   string           `json:"txid"`
	Slot   uint64           `json:"slot"`
	Kind   ActivityKind     `json:"kind"`
	Mint   solana.PublicKey `json:"mint"`
	Seller solana.PublicKey `json:"seller"`
	Buyer  solana.PublicKey `json:"buyer"`
	Price  uint64           `json:"price"`
	// RentRefunded is the storage deposit returned to the seller on close.
	RentRefunded uint64 `json:"rent_refunded"`
	// Listing is set by list.
	Listing *Listing `json:"listing,omitempty"`
}

// Stats aggregates recorded activity.
type Stats struct {
	Counts map[ActivityKind]uint64 `json:"counts"`
	// Volume is the sum of prices of all purchases in lamports.
	Volume uint64 `json:"volume"`
}
