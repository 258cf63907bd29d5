package otc

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	poolSeed  = []byte("otc/pool")
	offerSeed = []byte("otc/offer")
	vaultSeed = []byte("otc/vault")
)

// PoolID derives the deterministic storage identifier for a pool from its
// authority and a caller-supplied nonce. Re-running initialization with the
// same inputs targets the same slot, which the engine rejects.
func PoolID(authority [20]byte, nonce [32]byte) [32]byte {
	return ethcrypto.Keccak256Hash(poolSeed, authority[:], nonce[:])
}

// OfferID derives the deterministic storage identifier for a swap offer.
func OfferID(poolID [32]byte, maker [20]byte, nonce [32]byte) [32]byte {
	return ethcrypto.Keccak256Hash(offerSeed, poolID[:], maker[:], nonce[:])
}

// VaultAddress derives the escrow vault account for a pool. The address has
// no known private key; only engine transitions move value out of it.
func VaultAddress(poolID [32]byte) [20]byte {
	hash := ethcrypto.Keccak256Hash(vaultSeed, poolID[:])
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}
