package otc

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"github.com/btorressz/otc-pool/core/types"
)

const (
	EventTypePoolInitialized = "otc.pool.initialized"
	EventTypePolicyUpdated   = "otc.pool.policy_updated"
	EventTypePoolPaused      = "otc.pool.paused"
	EventTypePoolResumed     = "otc.pool.resumed"
	EventTypePartnerAdded    = "otc.partner.added"
	EventTypePartnerRemoved  = "otc.partner.removed"
	EventTypeMintWhitelisted = "otc.mint.whitelisted"
	EventTypeMintRemoved     = "otc.mint.removed"
	EventTypePairAdded       = "otc.pair.added"
	EventTypePairRemoved     = "otc.pair.removed"
	EventTypeOfferCreated    = "otc.offer.created"
	EventTypeOfferFilled     = "otc.offer.filled"
	EventTypeOfferCancelled  = "otc.offer.cancelled"
	EventTypeOfferExpired    = "otc.offer.expired"
	EventTypeOfferExtended   = "otc.offer.extended"
	EventTypeDirectSwap      = "otc.swap.direct"
)

// NewPoolInitializedEvent returns the canonical payload for a new pool.
func NewPoolInitializedEvent(p *Pool) *types.Event {
	evt := newPoolEvent(EventTypePoolInitialized, p)
	if p != nil {
		evt.Attributes["maxPartners"] = strconv.FormatUint(uint64(p.MaxPartners), 10)
		evt.Attributes["whitelistedMints"] = strings.Join(p.WhitelistedMints, ",")
	}
	return evt
}

// NewPolicyUpdatedEvent returns the payload emitted after a policy change.
func NewPolicyUpdatedEvent(p *Pool) *types.Event {
	return newPoolEvent(EventTypePolicyUpdated, p)
}

// NewPoolPausedEvent returns the payload emitted when a pool is paused.
func NewPoolPausedEvent(p *Pool, now int64) *types.Event {
	evt := newPoolEvent(EventTypePoolPaused, p)
	evt.Attributes["timestamp"] = strconv.FormatInt(now, 10)
	return evt
}

// NewPoolResumedEvent returns the payload emitted when a pause is lifted.
func NewPoolResumedEvent(p *Pool, now int64) *types.Event {
	evt := newPoolEvent(EventTypePoolResumed, p)
	evt.Attributes["timestamp"] = strconv.FormatInt(now, 10)
	return evt
}

// NewPartnerAddedEvent returns the payload for a registry addition.
func NewPartnerAddedEvent(p *Pool, partner [20]byte) *types.Event {
	evt := newPoolEvent(EventTypePartnerAdded, p)
	evt.Attributes["partner"] = hex.EncodeToString(partner[:])
	return evt
}

// NewPartnerRemovedEvent returns the payload for a registry removal.
func NewPartnerRemovedEvent(p *Pool, partner [20]byte) *types.Event {
	evt := newPoolEvent(EventTypePartnerRemoved, p)
	evt.Attributes["partner"] = hex.EncodeToString(partner[:])
	return evt
}

// NewMintWhitelistedEvent returns the payload for a whitelist addition.
func NewMintWhitelistedEvent(p *Pool, asset string) *types.Event {
	evt := newPoolEvent(EventTypeMintWhitelisted, p)
	evt.Attributes["mint"] = asset
	return evt
}

// NewMintRemovedEvent returns the payload for a whitelist removal.
func NewMintRemovedEvent(p *Pool, asset string) *types.Event {
	evt := newPoolEvent(EventTypeMintRemoved, p)
	evt.Attributes["mint"] = asset
	return evt
}

// NewPairAddedEvent returns the payload for a supported pair addition.
func NewPairAddedEvent(p *Pool, base, quote string) *types.Event {
	evt := newPoolEvent(EventTypePairAdded, p)
	evt.Attributes["base"] = base
	evt.Attributes["quote"] = quote
	return evt
}

// NewPairRemovedEvent returns the payload for a supported pair removal.
func NewPairRemovedEvent(p *Pool, base, quote string) *types.Event {
	evt := newPoolEvent(EventTypePairRemoved, p)
	evt.Attributes["base"] = base
	evt.Attributes["quote"] = quote
	return evt
}

// NewOfferCreatedEvent returns the payload for a freshly escrowed offer.
func NewOfferCreatedEvent(o *SwapOffer) *types.Event {
	return newOfferEvent(EventTypeOfferCreated, o)
}

// NewOfferFilledEvent returns the payload for a settled offer, including the
// treasury fee taken from the taker leg.
func NewOfferFilledEvent(o *SwapOffer, fee *big.Int) *types.Event {
	evt := newOfferEvent(EventTypeOfferFilled, o)
	if fee == nil {
		fee = big.NewInt(0)
	}
	evt.Attributes["fee"] = fee.String()
	return evt
}

// NewOfferCancelledEvent returns the payload for a maker cancellation.
func NewOfferCancelledEvent(o *SwapOffer) *types.Event {
	return newOfferEvent(EventTypeOfferCancelled, o)
}

// NewOfferExpiredEvent returns the payload emitted when a lapsed offer is
// retired and its escrow refunded.
func NewOfferExpiredEvent(o *SwapOffer) *types.Event {
	return newOfferEvent(EventTypeOfferExpired, o)
}

// NewOfferExtendedEvent returns the payload for an expiry extension.
func NewOfferExtendedEvent(o *SwapOffer) *types.Event {
	return newOfferEvent(EventTypeOfferExtended, o)
}

// NewDirectSwapEvent returns the payload for an immediate bilateral swap.
func NewDirectSwapEvent(p *Pool, partyA, partyB [20]byte, assetA, assetB string, amountA, amountB *big.Int) *types.Event {
	evt := newPoolEvent(EventTypeDirectSwap, p)
	evt.Attributes["partyA"] = hex.EncodeToString(partyA[:])
	evt.Attributes["partyB"] = hex.EncodeToString(partyB[:])
	evt.Attributes["assetA"] = assetA
	evt.Attributes["assetB"] = assetB
	if amountA != nil {
		evt.Attributes["amountA"] = amountA.String()
	}
	if amountB != nil {
		evt.Attributes["amountB"] = amountB.String()
	}
	return evt
}

func newPoolEvent(eventType string, p *Pool) *types.Event {
	attrs := make(map[string]string)
	evt := &types.Event{Type: eventType, Attributes: attrs}
	if p == nil {
		return evt
	}
	attrs["poolId"] = hex.EncodeToString(p.ID[:])
	attrs["authority"] = hex.EncodeToString(p.Authority[:])
	attrs["treasury"] = hex.EncodeToString(p.Treasury[:])
	attrs["feeBps"] = strconv.FormatUint(uint64(p.FeeBps), 10)
	if p.MinSwapAmount != nil {
		attrs["minSwapAmount"] = p.MinSwapAmount.String()
	}
	attrs["maxExpirationSecs"] = strconv.FormatInt(p.MaxExpirationSecs, 10)
	return evt
}

func newOfferEvent(eventType string, o *SwapOffer) *types.Event {
	attrs := make(map[string]string)
	evt := &types.Event{Type: eventType, Attributes: attrs}
	if o == nil {
		return evt
	}
	sanitized, err := SanitizeOffer(o)
	if err != nil {
		return evt
	}
	attrs["offerId"] = hex.EncodeToString(sanitized.ID[:])
	attrs["poolId"] = hex.EncodeToString(sanitized.Pool[:])
	attrs["maker"] = hex.EncodeToString(sanitized.Maker[:])
	if sanitized.Taker != ([20]byte{}) {
		attrs["taker"] = hex.EncodeToString(sanitized.Taker[:])
	}
	attrs["makerAsset"] = sanitized.MakerAsset
	attrs["takerAsset"] = sanitized.TakerAsset
	attrs["makerAmount"] = sanitized.MakerAmount.String()
	attrs["takerAmount"] = sanitized.TakerAmount.String()
	attrs["createdAt"] = strconv.FormatInt(sanitized.CreatedAt, 10)
	attrs["expiresAt"] = strconv.FormatInt(sanitized.ExpiresAt, 10)
	attrs["status"] = sanitized.Status.String()
	return evt
}
