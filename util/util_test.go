package util

import (
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash160(t *testing.T) {
	// RIPEMD160(SHA256("")).
	assert.Equal(t, "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb", hex.EncodeToString(Hash160(nil)))
}

func TestSafeMath(t *testing.T) {
	v, ok := SafeAdd(1, 2)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), v)

	_, ok = SafeAdd(math.MaxUint64, 1)
	assert.False(t, ok)

	v, ok = SafeSub(5, 5)
	assert.True(t, ok)
	assert.Zero(t, v)

	_, ok = SafeSub(1, 2)
	assert.False(t, ok)

	v, ok = SafeSum(1, 2, 3)
	assert.True(t, ok)
	assert.Equal(t, uint64(6), v)

	_, ok = SafeSum(math.MaxUint64-1, 1, 1)
	assert.False(t, ok)
}

func TestLamports(t *testing.T) {
	assert.Equal(t, "1", LamportsToSOL(1_000_000_000))
	assert.Equal(t, "0.000000001", LamportsToSOL(1))
	assert.Equal(t, "1.5", LamportsToSOL(1_500_000_000))

	v, ok := SOLToLamports("1.5")
	assert.True(t, ok)
	assert.Equal(t, uint64(1_500_000_000), v)

	_, ok = SOLToLamports("0.0000000001")
	assert.False(t, ok)

	_, ok = SOLToLamports("-1")
	assert.False(t, ok)

	_, ok = SOLToLamports("abc")
	assert.False(t, ok)
}

func TestSecondsToHuman(t *testing.T) {
	assert.Equal(t, "05s", SecondsToHuman(5))
	assert.Equal(t, "01m 05s", SecondsToHuman(65))
	assert.Equal(t, "01h 01m 05s", SecondsToHuman(3665))
}

func TestSafeCounter(t *testing.T) {
	var c SafeCounter
	c.Set(2)
	assert.Equal(t, 3, c.Add(1))
	assert.Equal(t, 3, c.Get())
}
