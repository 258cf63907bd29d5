package otc

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/btorressz/otc-pool/core/events"
	"github.com/btorressz/otc-pool/core/types"
	nativecommon "github.com/btorressz/otc-pool/native/common"
)

const moduleName = "otc"

var (
	errNilState = errors.New("otc engine: state not configured")
)

type engineState interface {
	PoolPut(*Pool) error
	PoolGet(id [32]byte) (*Pool, bool)
	OfferPut(*SwapOffer) error
	OfferGet(id [32]byte) (*SwapOffer, bool)
	OfferVaultAddress(poolID [32]byte) ([20]byte, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	QuotaGet(poolID [32]byte, partner [20]byte) (nativecommon.QuotaNow, error)
	QuotaPut(poolID [32]byte, partner [20]byte, usage nativecommon.QuotaNow) error
}

type otcEvent struct {
	evt *types.Event
}

func (e otcEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e otcEvent) Event() *types.Event { return e.evt }

// Engine wires the pool state machine with external state and event
// emitters. Every mutating entry point validates the caller against the
// stored record before applying a single transition; clock reads always go
// through the injected time source.
type Engine struct {
	state      engineState
	emitter    events.Emitter
	nowFn      func() int64
	pauses     nativecommon.PauseView
	offerQuota nativecommon.Quota
}

// NewEngine creates a pool engine with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPauses configures the host pause view consulted before every mutation.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetOfferQuota configures the per-partner offer creation quota. A zero
// quota disables enforcement.
func (e *Engine) SetOfferQuota(q nativecommon.Quota) { e.offerQuota = q }

// SetNowFunc overrides the time source used by the engine. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(otcEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) loadPool(id [32]byte) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, ok := e.state.PoolGet(id)
	if !ok {
		return nil, fmt.Errorf("%w: pool %x", ErrNotFound, id)
	}
	return pool, nil
}

func (e *Engine) storePool(pool *Pool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.PoolPut(pool)
}

func (e *Engine) loadOffer(id [32]byte) (*SwapOffer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	offer, ok := e.state.OfferGet(id)
	if !ok {
		return nil, fmt.Errorf("%w: offer %x", ErrNotFound, id)
	}
	return offer, nil
}

func (e *Engine) storeOffer(offer *SwapOffer) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.OfferPut(offer)
}

// requireBalance verifies the account covers the amount without touching the
// ledger. Used to pre-check multi-leg settlements whose later transfers must
// not fail.
func (e *Engine) requireBalance(addr [20]byte, asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return nil
	}
	account, err := e.state.GetAccount(addr[:])
	if err != nil {
		return err
	}
	balance := account.Balance(asset)
	if balance.Cmp(amt) < 0 {
		return fmt.Errorf("%w: %s balance %s below %s", ErrInsufficientFunds, asset, balance, amt)
	}
	return nil
}

// transferAsset moves value between two ledger accounts. A zero amount is a
// no-op; the sender must cover the full amount or the transfer fails with
// ErrInsufficientFunds and nothing is written.
func (e *Engine) transferAsset(from, to [20]byte, asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("%w: negative transfer amount", ErrInvalidParameter)
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return err
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	if fromAcc == nil {
		fromAcc = types.NewAccount()
	}
	balance := fromAcc.Balance(normalized)
	if balance.Cmp(amt) < 0 {
		return fmt.Errorf("%w: %s balance %s below %s", ErrInsufficientFunds, normalized, balance, amt)
	}
	// A self-transfer conserves value; nothing to write.
	if from == to {
		return nil
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	if toAcc == nil {
		toAcc = types.NewAccount()
	}
	fromAcc.SetBalance(normalized, new(big.Int).Sub(balance, amt))
	toAcc.SetBalance(normalized, new(big.Int).Add(toAcc.Balance(normalized), amt))
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// InitializePool constructs and persists a new pool. The caller becomes the
// immutable authority; the partner set starts empty and the whitelist is the
// deduplicated, normalized input. Reinitializing an existing slot fails with
// ErrAlreadyInitialized.
func (e *Engine) InitializePool(authority [20]byte, nonce [32]byte, maxPartners uint8, feeBps uint32, treasury [20]byte, minSwapAmount *big.Int, maxExpirationSecs int64, whitelist []string) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if feeBps > FeeDenominator {
		return nil, fmt.Errorf("%w: fee bps %d out of range", ErrInvalidParameter, feeBps)
	}
	if treasury == ([20]byte{}) {
		return nil, fmt.Errorf("%w: treasury not set", ErrInvalidParameter)
	}
	amt := cloneBigInt(minSwapAmount)
	if amt.Sign() < 0 {
		return nil, fmt.Errorf("%w: min swap amount must be non-negative", ErrInvalidParameter)
	}
	if maxExpirationSecs <= 0 {
		return nil, fmt.Errorf("%w: max expiration must be positive", ErrInvalidParameter)
	}
	mints := make([]string, 0, len(whitelist))
	for _, symbol := range whitelist {
		normalized, err := NormalizeAsset(symbol)
		if err != nil {
			return nil, err
		}
		duplicate := false
		for _, existing := range mints {
			if existing == normalized {
				duplicate = true
				break
			}
		}
		if !duplicate {
			mints = append(mints, normalized)
		}
	}
	if len(mints) > MaxWhitelistCapacity {
		return nil, fmt.Errorf("%w: whitelist exceeds allocation of %d", ErrInvalidParameter, MaxWhitelistCapacity)
	}
	id := PoolID(authority, nonce)
	if _, ok := e.state.PoolGet(id); ok {
		return nil, fmt.Errorf("%w: pool %x", ErrAlreadyInitialized, id)
	}
	pool := &Pool{
		ID:                id,
		Authority:         authority,
		Treasury:          treasury,
		MaxPartners:       maxPartners,
		FeeBps:            feeBps,
		MinSwapAmount:     amt,
		MaxExpirationSecs: maxExpirationSecs,
		WhitelistedMints:  mints,
		SupportedPairs:    []Pair{},
		Partners:          [][20]byte{},
		CreatedAt:         e.now(),
	}
	if err := e.storePool(pool); err != nil {
		return nil, err
	}
	e.emit(NewPoolInitializedEvent(pool))
	return pool.Clone(), nil
}

// PolicyUpdate is a partial update to the pool's mutable policy fields. Nil
// fields stay untouched.
type PolicyUpdate struct {
	FeeBps            *uint32
	Treasury          *[20]byte
	MinSwapAmount     *big.Int
	MaxExpirationSecs *int64
}

// UpdatePolicy applies a partial policy update. Only the pool authority may
// call it; validation mirrors InitializePool.
func (e *Engine) UpdatePolicy(poolID [32]byte, caller [20]byte, update PolicyUpdate) (*Pool, error) {
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := requireAuthority(pool, caller); err != nil {
		return nil, err
	}
	if update.FeeBps != nil {
		if *update.FeeBps > FeeDenominator {
			return nil, fmt.Errorf("%w: fee bps %d out of range", ErrInvalidParameter, *update.FeeBps)
		}
		pool.FeeBps = *update.FeeBps
	}
	if update.Treasury != nil {
		if *update.Treasury == ([20]byte{}) {
			return nil, fmt.Errorf("%w: treasury not set", ErrInvalidParameter)
		}
		pool.Treasury = *update.Treasury
	}
	if update.MinSwapAmount != nil {
		if update.MinSwapAmount.Sign() < 0 {
			return nil, fmt.Errorf("%w: min swap amount must be non-negative", ErrInvalidParameter)
		}
		pool.MinSwapAmount = new(big.Int).Set(update.MinSwapAmount)
	}
	if update.MaxExpirationSecs != nil {
		if *update.MaxExpirationSecs <= 0 {
			return nil, fmt.Errorf("%w: max expiration must be positive", ErrInvalidParameter)
		}
		pool.MaxExpirationSecs = *update.MaxExpirationSecs
	}
	if err := e.storePool(pool); err != nil {
		return nil, err
	}
	e.emit(NewPolicyUpdatedEvent(pool))
	return pool.Clone(), nil
}

// PausePool halts offer creation, acceptance and direct swaps for the pool.
// Authority-only; already-paused pools are left untouched.
func (e *Engine) PausePool(poolID [32]byte, caller [20]byte) error {
	return e.setPaused(poolID, caller, true)
}

// ResumePool lifts a pause set by PausePool. Authority-only.
func (e *Engine) ResumePool(poolID [32]byte, caller [20]byte) error {
	return e.setPaused(poolID, caller, false)
}

func (e *Engine) setPaused(poolID [32]byte, caller [20]byte, paused bool) error {
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
	if pool.Paused == paused {
		return nil
	}
	pool.Paused = paused
	if err := e.storePool(pool); err != nil {
		return err
	}
	if paused {
		e.emit(NewPoolPausedEvent(pool, e.now()))
	} else {
		e.emit(NewPoolResumedEvent(pool, e.now()))
	}
	return nil
}

// Pool returns a copy of the stored pool record.
func (e *Engine) Pool(poolID [32]byte) (*Pool, error) {
	return e.loadPool(poolID)
}

// Offer returns a copy of the stored offer record.
func (e *Engine) Offer(offerID [32]byte) (*SwapOffer, error) {
	return e.loadOffer(offerID)
}
