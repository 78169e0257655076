package cache

import (
	"marketplace/asset"
	"sync"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru"
)

const defaultSize = 4096

var (
	// metadataCache maps mint to its metadata. Metadata never changes once
	// written, so entries are never invalidated.
	metadataCache *lru.Cache
	cacheLock     sync.Mutex
)

// Init sizes the metadata cache, dropping every cached entry.
func Init(size int) error {
	c, err := lru.New(size)
	if err != nil {
		return err
	}

	cacheLock.Lock()
	metadataCache = c
	cacheLock.Unlock()

	return nil
}

func get() *lru.Cache {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	if metadataCache == nil {
		metadataCache, _ = lru.New(defaultSize)
	}

	return metadataCache
}

// GetMetadata returns cached metadata of mint.
func GetMetadata(mint solana.PublicKey) (*asset.Metadata, bool) {
	v, ok := get().Get(mint)
	if !ok {
		return nil, false
	}

	return v.(*asset.Metadata), true
}

// AddMetadata caches md under its mint.
func AddMetadata(md *asset.Metadata) {
	get().Add(md.Mint, md)
}

// IsCollection reports whether mint is a cached collection asset. The second
// value is false when mint is not cached.
func IsCollection(mint solana.PublicKey) (bool, bool) {
	md, ok := GetMetadata(mint)
	if !ok {
		return false, false
	}

	return md.IsCollection(), true
}

// Len returns the number of cached entries.
func Len() int {
	return get().Len()
}
