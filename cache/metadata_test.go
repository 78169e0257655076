package cache

import (
	"marketplace/asset"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMint(t *testing.T) solana.PublicKey {
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func TestMetadataCache(t *testing.T) {
	require.NoError(t, Init(2))

	a := &asset.Metadata{Mint: newMint(t), Kind: asset.KindCollection}
	b := &asset.Metadata{Mint: newMint(t), Kind: asset.KindMember}
	c := &asset.Metadata{Mint: newMint(t), Kind: asset.KindMember}

	AddMetadata(a)
	AddMetadata(b)

	got, ok := GetMetadata(a.Mint)
	require.True(t, ok)
	assert.Same(t, a, got)

	isCollection, ok := IsCollection(a.Mint)
	assert.True(t, ok)
	assert.True(t, isCollection)

	// a was used last, so b is evicted.
	AddMetadata(c)
	assert.Equal(t, 2, Len())

	_, ok = GetMetadata(b.Mint)
	assert.False(t, ok)

	_, ok = IsCollection(b.Mint)
	assert.False(t, ok)
}

func TestInitRejectsInvalidSize(t *testing.T) {
	assert.Error(t, Init(0))
}
