package otc

import (
	"fmt"
	"math/big"
)

// Predicate helpers shared by every mutating entry point. Keeping the checks
// in one place keeps enforcement identical across operations.

func requireAuthority(pool *Pool, caller [20]byte) error {
	if pool == nil {
		return fmt.Errorf("%w: nil pool", ErrInvalidParameter)
	}
	if caller != pool.Authority {
		return fmt.Errorf("%w: caller is not the pool authority", ErrUnauthorized)
	}
	return nil
}

func requirePartner(pool *Pool, addr [20]byte) error {
	if !pool.HasPartner(addr) {
		return fmt.Errorf("%w: %x is not a registered partner", ErrUnauthorized, addr)
	}
	return nil
}

func requireWhitelisted(pool *Pool, assets ...string) error {
	for _, asset := range assets {
		if !pool.HasMint(asset) {
			return fmt.Errorf("%w: %s", ErrAssetNotWhitelisted, asset)
		}
	}
	return nil
}

func requireActive(pool *Pool) error {
	if pool.Paused {
		return fmt.Errorf("%w: pool %x", ErrPoolPaused, pool.ID)
	}
	return nil
}

func requireMinimum(pool *Pool, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidParameter)
	}
	if pool.MinSwapAmount != nil && amount.Cmp(pool.MinSwapAmount) < 0 {
		return fmt.Errorf("%w: %s below %s", ErrBelowMinimum, amount, pool.MinSwapAmount)
	}
	return nil
}

func requireLifetime(pool *Pool, lifetimeSecs int64) error {
	if lifetimeSecs <= 0 {
		return fmt.Errorf("%w: lifetime must be positive", ErrInvalidParameter)
	}
	if lifetimeSecs > pool.MaxExpirationSecs {
		return fmt.Errorf("%w: %ds exceeds %ds", ErrLifetimeTooLong, lifetimeSecs, pool.MaxExpirationSecs)
	}
	return nil
}

func requireOpen(offer *SwapOffer) error {
	if offer.Status != OfferOpen {
		return fmt.Errorf("%w: offer is %s", ErrNotOpen, offer.Status)
	}
	return nil
}

func expired(offer *SwapOffer, now int64) bool {
	return now >= offer.ExpiresAt
}

// feeFor computes the treasury cut on a notional: floor(amount*bps/10000).
func feeFor(amount *big.Int, feeBps uint32) *big.Int {
	if amount == nil || amount.Sign() <= 0 || feeBps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(feeBps)))
	return fee.Div(fee, big.NewInt(FeeDenominator))
}
