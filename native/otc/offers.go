package otc

import (
	"fmt"
	"math/big"

	nativecommon "github.com/btorressz/otc-pool/native/common"
)

// CreateOffer locks the maker side into the pool vault and persists a new
// open offer expiring lifetimeSecs from now. Only registered partners may
// originate offers and both legs must currently be whitelisted.
func (e *Engine) CreateOffer(poolID [32]byte, maker [20]byte, nonce [32]byte, makerAsset, takerAsset string, makerAmount, takerAmount *big.Int, lifetimeSecs int64) (*SwapOffer, error) {
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := requireActive(pool); err != nil {
		return nil, err
	}
	if err := requirePartner(pool, maker); err != nil {
		return nil, err
	}
	normalizedMaker, err := NormalizeAsset(makerAsset)
	if err != nil {
		return nil, err
	}
	normalizedTaker, err := NormalizeAsset(takerAsset)
	if err != nil {
		return nil, err
	}
	if err := requireWhitelisted(pool, normalizedMaker, normalizedTaker); err != nil {
		return nil, err
	}
	if err := requireMinimum(pool, makerAmount); err != nil {
		return nil, err
	}
	if takerAmount == nil || takerAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: taker amount must be positive", ErrInvalidParameter)
	}
	if err := requireLifetime(pool, lifetimeSecs); err != nil {
		return nil, err
	}
	now := e.now()
	quotaUsage, quotaActive, err := e.admitOffer(pool.ID, maker, now)
	if err != nil {
		return nil, err
	}
	id := OfferID(pool.ID, maker, nonce)
	if _, ok := e.state.OfferGet(id); ok {
		return nil, fmt.Errorf("%w: offer %x", ErrAlreadyExists, id)
	}
	vault, err := e.state.OfferVaultAddress(pool.ID)
	if err != nil {
		return nil, err
	}
	if err := e.transferAsset(maker, vault, normalizedMaker, makerAmount); err != nil {
		return nil, err
	}
	offer := &SwapOffer{
		ID:          id,
		Pool:        pool.ID,
		Maker:       maker,
		MakerAsset:  normalizedMaker,
		TakerAsset:  normalizedTaker,
		MakerAmount: cloneBigInt(makerAmount),
		TakerAmount: cloneBigInt(takerAmount),
		CreatedAt:   now,
		ExpiresAt:   now + lifetimeSecs,
		Status:      OfferOpen,
	}
	if quotaActive {
		if err := e.state.QuotaPut(pool.ID, maker, quotaUsage); err != nil {
			return nil, err
		}
	}
	if err := e.storeOffer(offer); err != nil {
		return nil, err
	}
	e.emit(NewOfferCreatedEvent(offer))
	return offer.Clone(), nil
}

func (e *Engine) admitOffer(poolID [32]byte, maker [20]byte, now int64) (nativecommon.QuotaNow, bool, error) {
	if !e.offerQuota.Enabled() {
		return nativecommon.QuotaNow{}, false, nil
	}
	prev, err := e.state.QuotaGet(poolID, maker)
	if err != nil {
		return nativecommon.QuotaNow{}, false, err
	}
	next, err := nativecommon.CheckQuota(e.offerQuota, e.offerQuota.Epoch(now), prev, 1)
	if err != nil {
		return nativecommon.QuotaNow{}, false, err
	}
	return next, true, nil
}

// AcceptOffer fills an open offer. The taker side is pulled into the vault
// first; every later transfer spends funds the vault already holds, so a
// failed taker debit leaves no partial settlement behind. Accepting an offer
// past its expiry commits the expiry transition (escrow refunded to the
// maker) and reports ErrExpired.
func (e *Engine) AcceptOffer(offerID [32]byte, taker [20]byte) (*SwapOffer, error) {
	offer, err := e.loadOffer(offerID)
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool(offer.Pool)
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := requireOpen(offer); err != nil {
		return nil, err
	}
	if err := requireActive(pool); err != nil {
		return nil, err
	}
	vault, err := e.state.OfferVaultAddress(pool.ID)
	if err != nil {
		return nil, err
	}
	if taker == vault {
		return nil, fmt.Errorf("%w: taker must not be the pool vault", ErrInvalidParameter)
	}
	now := e.now()
	if expired(offer, now) {
		if err := e.retireOffer(offer, vault, OfferExpired); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: offer %x lapsed at %d", ErrExpired, offer.ID, offer.ExpiresAt)
	}
	fee := feeFor(offer.TakerAmount, pool.FeeBps)
	makerProceeds := new(big.Int).Sub(offer.TakerAmount, fee)
	if err := e.transferAsset(taker, vault, offer.TakerAsset, offer.TakerAmount); err != nil {
		return nil, err
	}
	if err := e.transferAsset(vault, offer.Maker, offer.TakerAsset, makerProceeds); err != nil {
		return nil, err
	}
	if err := e.transferAsset(vault, pool.Treasury, offer.TakerAsset, fee); err != nil {
		return nil, err
	}
	if err := e.transferAsset(vault, taker, offer.MakerAsset, offer.MakerAmount); err != nil {
		return nil, err
	}
	offer.Taker = taker
	offer.Status = OfferFilled
	if err := e.storeOffer(offer); err != nil {
		return nil, err
	}
	e.emit(NewOfferFilledEvent(offer, fee))
	return offer.Clone(), nil
}

// CancelOffer returns the escrow to the maker and closes the offer. Only the
// maker may cancel, and only while the offer is still open. No fee is taken
// on cancellation.
func (e *Engine) CancelOffer(offerID [32]byte, caller [20]byte) error {
	offer, err := e.loadOffer(offerID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != offer.Maker {
		return fmt.Errorf("%w: only the maker may cancel", ErrUnauthorized)
	}
	if err := requireOpen(offer); err != nil {
		return err
	}
	vault, err := e.state.OfferVaultAddress(offer.Pool)
	if err != nil {
		return err
	}
	return e.retireOffer(offer, vault, OfferCancelled)
}

// ExpireOffer sweeps a lapsed offer, refunding the escrow to the maker.
// Anyone may call it; expiry is otherwise only detected lazily when an
// accept touches the offer.
func (e *Engine) ExpireOffer(offerID [32]byte) error {
	offer, err := e.loadOffer(offerID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !expired(offer, e.now()) {
		return fmt.Errorf("%w: offer lapses at %d", ErrNotExpired, offer.ExpiresAt)
	}
	if err := requireOpen(offer); err != nil {
		return err
	}
	vault, err := e.state.OfferVaultAddress(offer.Pool)
	if err != nil {
		return err
	}
	return e.retireOffer(offer, vault, OfferExpired)
}

// ExtendOffer pushes the expiry of an open offer further out. Maker-only;
// the new expiry must be strictly later and still within the pool's maximum
// lifetime measured from now.
func (e *Engine) ExtendOffer(offerID [32]byte, caller [20]byte, newExpiresAt int64) error {
	offer, err := e.loadOffer(offerID)
	if err != nil {
		return err
	}
	pool, err := e.loadPool(offer.Pool)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != offer.Maker {
		return fmt.Errorf("%w: only the maker may extend", ErrUnauthorized)
	}
	if err := requireOpen(offer); err != nil {
		return err
	}
	if newExpiresAt <= offer.ExpiresAt {
		return fmt.Errorf("%w: new expiry must be later than %d", ErrInvalidExtension, offer.ExpiresAt)
	}
	if newExpiresAt > e.now()+pool.MaxExpirationSecs {
		return fmt.Errorf("%w: expiry beyond pool maximum", ErrLifetimeTooLong)
	}
	offer.ExpiresAt = newExpiresAt
	if err := e.storeOffer(offer); err != nil {
		return err
	}
	e.emit(NewOfferExtendedEvent(offer))
	return nil
}

// retireOffer refunds the escrowed maker leg and moves the offer to the
// supplied terminal status.
func (e *Engine) retireOffer(offer *SwapOffer, vault [20]byte, status OfferStatus) error {
	if err := e.transferAsset(vault, offer.Maker, offer.MakerAsset, offer.MakerAmount); err != nil {
		return err
	}
	offer.Status = status
	if err := e.storeOffer(offer); err != nil {
		return err
	}
	switch status {
	case OfferCancelled:
		e.emit(NewOfferCancelledEvent(offer))
	case OfferExpired:
		e.emit(NewOfferExpiredEvent(offer))
	}
	return nil
}

// SwapDirect executes an immediate bilateral swap between two partners
// without an offer record. Both legs must be whitelisted, the ordered pair
// registered, and both notionals at or above the pool minimum. No fee is
// taken on direct swaps.
func (e *Engine) SwapDirect(poolID [32]byte, partyA, partyB [20]byte, assetA, assetB string, amountA, amountB *big.Int) error {
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := requireActive(pool); err != nil {
		return err
	}
	if partyA == partyB {
		return fmt.Errorf("%w: counterparties must be distinct", ErrInvalidParameter)
	}
	if err := requirePartner(pool, partyA); err != nil {
		return err
	}
	if err := requirePartner(pool, partyB); err != nil {
		return err
	}
	normalizedA, err := NormalizeAsset(assetA)
	if err != nil {
		return err
	}
	normalizedB, err := NormalizeAsset(assetB)
	if err != nil {
		return err
	}
	if err := requireWhitelisted(pool, normalizedA, normalizedB); err != nil {
		return err
	}
	if !pool.HasPair(normalizedA, normalizedB) {
		return fmt.Errorf("%w: %s/%s", ErrPairNotSupported, normalizedA, normalizedB)
	}
	if err := requireMinimum(pool, amountA); err != nil {
		return err
	}
	if err := requireMinimum(pool, amountB); err != nil {
		return err
	}
	// Both legs debit user accounts, so verify cover for each before moving
	// anything: once the first transfer commits there is no rollback.
	if err := e.requireBalance(partyA, normalizedA, amountA); err != nil {
		return err
	}
	if err := e.requireBalance(partyB, normalizedB, amountB); err != nil {
		return err
	}
	if err := e.transferAsset(partyA, partyB, normalizedA, amountA); err != nil {
		return err
	}
	if err := e.transferAsset(partyB, partyA, normalizedB, amountB); err != nil {
		return err
	}
	e.emit(NewDirectSwapEvent(pool, partyA, partyB, normalizedA, normalizedB, amountA, amountB))
	return nil
}
