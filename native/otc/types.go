package otc

import (
	"fmt"
	"math/big"
	"strings"
)

// Fixed storage allocations for the registry sets. A pool cannot outgrow
// these without a storage migration, so the engine enforces them on every
// mutation rather than letting the slices grow unbounded.
const (
	MaxPartnerCapacity   = 255
	MaxWhitelistCapacity = 10
	MaxPairCapacity      = 10

	// MaxAssetSymbolLen bounds the normalized asset symbol accepted for
	// whitelisting and offers.
	MaxAssetSymbolLen = 16

	// FeeDenominator is the basis-point divisor used for fee math.
	FeeDenominator = 10_000
)

// Pair is an ordered asset pairing eligible for direct swaps.
type Pair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// Pool holds the policy and registry state for one OTC trading venue. The
// authority is fixed at initialization; everything else mutates only through
// the engine's authority-gated operations.
type Pool struct {
	ID                [32]byte   `json:"id"`
	Authority         [20]byte   `json:"authority"`
	Treasury          [20]byte   `json:"treasury"`
	MaxPartners       uint8      `json:"maxPartners"`
	FeeBps            uint32     `json:"feeBps"`
	MinSwapAmount     *big.Int   `json:"minSwapAmount"`
	MaxExpirationSecs int64      `json:"maxExpirationSecs"`
	WhitelistedMints  []string   `json:"whitelistedMints"`
	SupportedPairs    []Pair     `json:"supportedPairs"`
	Partners          [][20]byte `json:"partners"`
	Paused            bool       `json:"paused"`
	CreatedAt         int64      `json:"createdAt"`
}

// Clone returns a deep copy of the pool so callers can mutate the result
// without affecting the stored instance.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	if p.MinSwapAmount != nil {
		clone.MinSwapAmount = new(big.Int).Set(p.MinSwapAmount)
	} else {
		clone.MinSwapAmount = big.NewInt(0)
	}
	clone.WhitelistedMints = append([]string(nil), p.WhitelistedMints...)
	clone.SupportedPairs = append([]Pair(nil), p.SupportedPairs...)
	clone.Partners = append([][20]byte(nil), p.Partners...)
	return &clone
}

// HasPartner reports whether the address is a registered partner.
func (p *Pool) HasPartner(addr [20]byte) bool {
	if p == nil {
		return false
	}
	for _, partner := range p.Partners {
		if partner == addr {
			return true
		}
	}
	return false
}

// HasMint reports whether the normalized asset symbol is whitelisted.
func (p *Pool) HasMint(asset string) bool {
	if p == nil {
		return false
	}
	for _, mint := range p.WhitelistedMints {
		if mint == asset {
			return true
		}
	}
	return false
}

// HasPair reports whether the ordered pair is registered for direct swaps.
func (p *Pool) HasPair(base, quote string) bool {
	if p == nil {
		return false
	}
	for _, pair := range p.SupportedPairs {
		if pair.Base == base && pair.Quote == quote {
			return true
		}
	}
	return false
}

// OfferStatus represents the lifecycle states of a swap offer. Every status
// other than OfferOpen is terminal.
type OfferStatus uint8

const (
	OfferOpen OfferStatus = iota
	OfferFilled
	OfferCancelled
	OfferExpired
)

// Valid reports whether the status value is within the supported range.
func (s OfferStatus) Valid() bool {
	switch s {
	case OfferOpen, OfferFilled, OfferCancelled, OfferExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further transitions.
func (s OfferStatus) Terminal() bool {
	return s == OfferFilled || s == OfferCancelled || s == OfferExpired
}

func (s OfferStatus) String() string {
	switch s {
	case OfferOpen:
		return "open"
	case OfferFilled:
		return "filled"
	case OfferCancelled:
		return "cancelled"
	case OfferExpired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// SwapOffer captures one proposed bilateral trade. The maker side is held
// in the pool vault from creation until the offer reaches a terminal state;
// Taker stays zero until the offer is filled.
type SwapOffer struct {
	ID          [32]byte    `json:"id"`
	Pool        [32]byte    `json:"pool"`
	Maker       [20]byte    `json:"maker"`
	Taker       [20]byte    `json:"taker"`
	MakerAsset  string      `json:"makerAsset"`
	TakerAsset  string      `json:"takerAsset"`
	MakerAmount *big.Int    `json:"makerAmount"`
	TakerAmount *big.Int    `json:"takerAmount"`
	CreatedAt   int64       `json:"createdAt"`
	ExpiresAt   int64       `json:"expiresAt"`
	Status      OfferStatus `json:"status"`
}

// Clone returns a deep copy of the offer.
func (o *SwapOffer) Clone() *SwapOffer {
	if o == nil {
		return nil
	}
	clone := *o
	if o.MakerAmount != nil {
		clone.MakerAmount = new(big.Int).Set(o.MakerAmount)
	} else {
		clone.MakerAmount = big.NewInt(0)
	}
	if o.TakerAmount != nil {
		clone.TakerAmount = new(big.Int).Set(o.TakerAmount)
	} else {
		clone.TakerAmount = big.NewInt(0)
	}
	return &clone
}

// NormalizeAsset canonicalizes an asset symbol: trimmed, uppercased,
// non-empty and bounded in length.
func NormalizeAsset(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty asset symbol", ErrInvalidParameter)
	}
	if len(trimmed) > MaxAssetSymbolLen {
		return "", fmt.Errorf("%w: asset symbol too long", ErrInvalidParameter)
	}
	return trimmed, nil
}

// SanitizePool validates and normalises the supplied pool definition,
// returning a cloned instance. The original value is never mutated.
func SanitizePool(p *Pool) (*Pool, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil pool", ErrInvalidParameter)
	}
	clone := p.Clone()
	if clone.FeeBps > FeeDenominator {
		return nil, fmt.Errorf("%w: fee bps out of range", ErrInvalidParameter)
	}
	if clone.MinSwapAmount.Sign() < 0 {
		return nil, fmt.Errorf("%w: min swap amount must be non-negative", ErrInvalidParameter)
	}
	if clone.MaxExpirationSecs <= 0 {
		return nil, fmt.Errorf("%w: max expiration must be positive", ErrInvalidParameter)
	}
	if len(clone.Partners) > int(clone.MaxPartners) {
		return nil, fmt.Errorf("%w: partner set exceeds limit", ErrCapacityExceeded)
	}
	if len(clone.WhitelistedMints) > MaxWhitelistCapacity {
		return nil, fmt.Errorf("%w: whitelist exceeds allocation", ErrCapacityExceeded)
	}
	if len(clone.SupportedPairs) > MaxPairCapacity {
		return nil, fmt.Errorf("%w: pair set exceeds allocation", ErrCapacityExceeded)
	}
	for i, mint := range clone.WhitelistedMints {
		normalized, err := NormalizeAsset(mint)
		if err != nil {
			return nil, err
		}
		clone.WhitelistedMints[i] = normalized
	}
	return clone, nil
}

// SanitizeOffer validates and normalises the supplied offer, returning a
// cloned instance with canonical asset casing and non-nil amounts.
func SanitizeOffer(o *SwapOffer) (*SwapOffer, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil offer", ErrInvalidParameter)
	}
	clone := o.Clone()
	makerAsset, err := NormalizeAsset(clone.MakerAsset)
	if err != nil {
		return nil, err
	}
	clone.MakerAsset = makerAsset
	takerAsset, err := NormalizeAsset(clone.TakerAsset)
	if err != nil {
		return nil, err
	}
	clone.TakerAsset = takerAsset
	if clone.MakerAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: maker amount must be positive", ErrInvalidParameter)
	}
	if clone.TakerAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: taker amount must be positive", ErrInvalidParameter)
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid offer status %d", ErrInvalidParameter, clone.Status)
	}
	return clone, nil
}
