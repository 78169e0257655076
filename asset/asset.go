package asset

import (
	"strconv"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/go-playground/validator/v10"
)

// Metadata field limits.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

// Account sizes in bytes, used for rent.
const (
	MintSize          = 82
	MetadataSize      = 679
	MasterEditionSize = 282
)

// Kind tells collection assets from member assets.
type Kind string

// Asset kinds.
const (
	KindCollection Kind = "collection"
	KindMember     Kind = "member"
)

// Mint db model. A marketplace mint has zero decimals and a supply of 1.
type Mint struct {
	Address         solana.PublicKey `json:"address"`
	Decimals        uint8            `json:"decimals"`
	Supply          uint64           `json:"supply"`
	MintAuthority   solana.PublicKey `json:"mint_authority"` // zero once issuance is closed
	FreezeAuthority solana.PublicKey `json:"freeze_authority"`
	Lamports        uint64           `json:"lamports"`
}

// Data is the descriptive part of metadata supplied at mint time. Limits
// count bytes of the UTF-8 encoding.
type Data struct {
	Name   string `json:"name" validate:"required,maxbytes=32"`
	Symbol string `json:"symbol" validate:"maxbytes=10"`
	URI    string `json:"uri" validate:"maxbytes=200"`
}

// Metadata db model, immutable after creation.
type Metadata struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Data
	UpdateAuthority solana.PublicKey  `json:"update_authority"`
	Kind            Kind              `json:"kind"`
	Collection      *solana.PublicKey `json:"collection,omitempty"`
	Verified        bool              `json:"verified"`
	Lamports        uint64            `json:"-"`
}

// IsCollection reports whether the asset groups other assets.
func (m *Metadata) IsCollection() bool {
	return m.Kind == KindCollection
}

// MasterEdition db model. MaxSupply 0 forbids prints.
type MasterEdition struct {
	Address   solana.PublicKey
	Mint      solana.PublicKey
	MaxSupply uint64
	Lamports  uint64
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		if err := validate.RegisterValidation("maxbytes", maxBytes); err != nil {
			panic(err)
		}
	})
	return validate
}

// maxBytes limits the byte length of a string, where max counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// Validate checks metadata field limits.
func (d Data) Validate() error {
	return Validator().Struct(d)
}
