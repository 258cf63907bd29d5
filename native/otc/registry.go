package otc

import (
	"fmt"

	nativecommon "github.com/btorressz/otc-pool/native/common"
)

// AddPartner registers an identity allowed to originate swap offers under
// the pool. Authority-only; the registry is bounded by the pool's
// MaxPartners allocation.
func (e *Engine) AddPartner(poolID [32]byte, caller, partner [20]byte) error {
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := requireAuthority(pool, caller); err != nil {
		return err
	}
	if len(pool.Partners) >= int(pool.MaxPartners) {
		return fmt.Errorf("%w: partner limit %d reached", ErrCapacityExceeded, pool.MaxPartners)
	}
	if pool.HasPartner(partner) {
		return fmt.Errorf("%w: partner %x", ErrAlreadyExists, partner)
	}
	pool.Partners = append(pool.Partners, partner)
	if err := e.storePool(pool); err != nil {
		return err
	}
	e.emit(NewPartnerAddedEvent(pool, partner))
	return nil
}

// RemovePartner drops an identity from the partner registry. The partner's
// already-open offers are left intact: an offer is self-contained once its
// escrow is locked, so removal only stops new origination.
func (e *Engine) RemovePartner(poolID [32]byte, caller, partner [20]byte) error {
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := requireAuthority(pool, caller); err != nil {
		return err
	}
	for i, existing := range pool.Partners {
		if existing == partner {
			pool.Partners = append(pool.Partners[:i], pool.Partners[i+1:]...)
			if err := e.storePool(pool); err != nil {
				return err
			}
			e.emit(NewPartnerRemovedEvent(pool, partner))
			return nil
		}
	}
	return fmt.Errorf("%w: partner %x", ErrNotFound, partner)
}

// AddWhitelistedMint marks an asset as eligible for use in offers and direct
// swaps. Authority-only; the whitelist cannot grow past its fixed allocation.
func (e *Engine) AddWhitelistedMint(poolID [32]byte, caller [20]byte, asset string) error {
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := requireAuthority(pool, caller); err != nil {
		return err
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return err
	}
	if len(pool.WhitelistedMints) >= MaxWhitelistCapacity {
		return fmt.Errorf("%w: whitelist allocation of %d reached", ErrCapacityExceeded, MaxWhitelistCapacity)
	}
	if pool.HasMint(normalized) {
		return fmt.Errorf("%w: mint %s", ErrAlreadyExists, normalized)
	}
	pool.WhitelistedMints = append(pool.WhitelistedMints, normalized)
	if err := e.storePool(pool); err != nil {
		return err
	}
	e.emit(NewMintWhitelistedEvent(pool, normalized))
	return nil
}

// RemoveWhitelistedMint drops an asset from the whitelist. Open offers that
// already reference the asset still settle; only new offer creation checks
// the current whitelist. Pairs using the asset are dropped with it.
func (e *Engine) RemoveWhitelistedMint(poolID [32]byte, caller [20]byte, asset string) error {
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := requireAuthority(pool, caller); err != nil {
		return err
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return err
	}
	for i, existing := range pool.WhitelistedMints {
		if existing == normalized {
			pool.WhitelistedMints = append(pool.WhitelistedMints[:i], pool.WhitelistedMints[i+1:]...)
			retained := pool.SupportedPairs[:0]
			for _, pair := range pool.SupportedPairs {
				if pair.Base != normalized && pair.Quote != normalized {
					retained = append(retained, pair)
				}
			}
			pool.SupportedPairs = retained
			if err := e.storePool(pool); err != nil {
				return err
			}
			e.emit(NewMintRemovedEvent(pool, normalized))
			return nil
		}
	}
	return fmt.Errorf("%w: mint %s", ErrNotFound, normalized)
}

// AddSupportedPair registers an ordered asset pair for direct swaps. Both
// legs must already be whitelisted.
func (e *Engine) AddSupportedPair(poolID [32]byte, caller [20]byte, base, quote string) error {
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := requireAuthority(pool, caller); err != nil {
		return err
	}
	normalizedBase, err := NormalizeAsset(base)
	if err != nil {
		return err
	}
	normalizedQuote, err := NormalizeAsset(quote)
	if err != nil {
		return err
	}
	if err := requireWhitelisted(pool, normalizedBase, normalizedQuote); err != nil {
		return err
	}
	if len(pool.SupportedPairs) >= MaxPairCapacity {
		return fmt.Errorf("%w: pair allocation of %d reached", ErrCapacityExceeded, MaxPairCapacity)
	}
	if pool.HasPair(normalizedBase, normalizedQuote) {
		return fmt.Errorf("%w: pair %s/%s", ErrAlreadyExists, normalizedBase, normalizedQuote)
	}
	pool.SupportedPairs = append(pool.SupportedPairs, Pair{Base: normalizedBase, Quote: normalizedQuote})
	if err := e.storePool(pool); err != nil {
		return err
	}
	e.emit(NewPairAddedEvent(pool, normalizedBase, normalizedQuote))
	return nil
}

// RemoveSupportedPair drops an ordered pair from the direct-swap registry.
func (e *Engine) RemoveSupportedPair(poolID [32]byte, caller [20]byte, base, quote string) error {
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := requireAuthority(pool, caller); err != nil {
		return err
	}
	normalizedBase, err := NormalizeAsset(base)
	if err != nil {
		return err
	}
	normalizedQuote, err := NormalizeAsset(quote)
	if err != nil {
		return err
	}
	for i, pair := range pool.SupportedPairs {
		if pair.Base == normalizedBase && pair.Quote == normalizedQuote {
			pool.SupportedPairs = append(pool.SupportedPairs[:i], pool.SupportedPairs[i+1:]...)
			if err := e.storePool(pool); err != nil {
				return err
			}
			e.emit(NewPairRemovedEvent(pool, normalizedBase, normalizedQuote))
			return nil
		}
	}
	return fmt.Errorf("%w: pair %s/%s", ErrNotFound, normalizedBase, normalizedQuote)
}
