package otc

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/btorressz/otc-pool/core/events"
	"github.com/btorressz/otc-pool/core/types"
	nativecommon "github.com/btorressz/otc-pool/native/common"
)

type mockState struct {
	pools    map[[32]byte]*Pool
	offers   map[[32]byte]*SwapOffer
	accounts map[[20]byte]*types.Account
	quotas   map[string]nativecommon.QuotaNow
}

func newMockState() *mockState {
	return &mockState{
		pools:    make(map[[32]byte]*Pool),
		offers:   make(map[[32]byte]*SwapOffer),
		accounts: make(map[[20]byte]*types.Account),
		quotas:   make(map[string]nativecommon.QuotaNow),
	}
}

func (m *mockState) PoolPut(p *Pool) error {
	sanitized, err := SanitizePool(p)
	if err != nil {
		return err
	}
	m.pools[sanitized.ID] = sanitized.Clone()
	return nil
}

func (m *mockState) PoolGet(id [32]byte) (*Pool, bool) {
	pool, ok := m.pools[id]
	if !ok {
		return nil, false
	}
	return pool.Clone(), true
}

func (m *mockState) OfferPut(o *SwapOffer) error {
	sanitized, err := SanitizeOffer(o)
	if err != nil {
		return err
	}
	m.offers[sanitized.ID] = sanitized.Clone()
	return nil
}

func (m *mockState) OfferGet(id [32]byte) (*SwapOffer, bool) {
	offer, ok := m.offers[id]
	if !ok {
		return nil, false
	}
	return offer.Clone(), true
}

func (m *mockState) OfferVaultAddress(poolID [32]byte) ([20]byte, error) {
	return VaultAddress(poolID), nil
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	acc, ok := m.accounts[key]
	if !ok {
		return types.NewAccount(), nil
	}
	return acc.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = account.Clone()
	return nil
}

func quotaKey(poolID [32]byte, partner [20]byte) string {
	return string(poolID[:]) + string(partner[:])
}

func (m *mockState) QuotaGet(poolID [32]byte, partner [20]byte) (nativecommon.QuotaNow, error) {
	return m.quotas[quotaKey(poolID, partner)], nil
}

func (m *mockState) QuotaPut(poolID [32]byte, partner [20]byte, usage nativecommon.QuotaNow) error {
	m.quotas[quotaKey(poolID, partner)] = usage
	return nil
}

func (m *mockState) setBalance(addr [20]byte, asset string, amount int64) {
	acc, ok := m.accounts[addr]
	if !ok {
		acc = types.NewAccount()
		m.accounts[addr] = acc
	}
	acc.SetBalance(asset, big.NewInt(amount))
}

func (m *mockState) balance(addr [20]byte, asset string) *big.Int {
	acc, ok := m.accounts[addr]
	if !ok {
		return big.NewInt(0)
	}
	return acc.Balance(asset)
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func eventSeen(emitter *capturingEmitter, eventType string) bool {
	if emitter == nil {
		return false
	}
	for _, evt := range emitter.events {
		if evt.EventType() == eventType {
			return true
		}
	}
	return false
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func setupEngine(t *testing.T) (*Engine, *mockState, *capturingEmitter) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	emitter := &capturingEmitter{}
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return 1000 })
	return engine, state, emitter
}

func TestInitializePoolRoundTrip(t *testing.T) {
	engine, state, emitter := setupEngine(t)
	authority := newTestAddress(0x01)
	treasury := newTestAddress(0x02)
	pool, err := engine.InitializePool(authority, [32]byte{0xAA}, 5, 100, treasury, big.NewInt(1000), 3600, []string{"usdx"})
	if err != nil {
		t.Fatalf("InitializePool error: %v", err)
	}
	if pool.Authority != authority {
		t.Fatalf("authority mismatch")
	}
	if len(pool.Partners) != 0 {
		t.Fatalf("expected empty partner set, got %d", len(pool.Partners))
	}
	if len(pool.WhitelistedMints) != 1 || pool.WhitelistedMints[0] != "USDX" {
		t.Fatalf("unexpected whitelist: %v", pool.WhitelistedMints)
	}
	stored, ok := state.PoolGet(pool.ID)
	if !ok {
		t.Fatalf("pool not stored")
	}
	if stored.MaxPartners != 5 || stored.FeeBps != 100 || stored.MaxExpirationSecs != 3600 {
		t.Fatalf("stored pool mismatch: %+v", stored)
	}
	if stored.MinSwapAmount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("min swap amount mismatch: %s", stored.MinSwapAmount)
	}
	if !eventSeen(emitter, EventTypePoolInitialized) {
		t.Fatalf("expected pool initialized event")
	}
}

func TestInitializePoolValidation(t *testing.T) {
	engine, _, _ := setupEngine(t)
	authority := newTestAddress(0x01)
	treasury := newTestAddress(0x02)

	if _, err := engine.InitializePool(authority, [32]byte{0x01}, 5, 10001, treasury, big.NewInt(1), 3600, []string{"USDX"}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for fee bps, got %v", err)
	}
	if _, err := engine.InitializePool(authority, [32]byte{0x02}, 5, 100, [20]byte{}, big.NewInt(1), 3600, []string{"USDX"}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for zero treasury, got %v", err)
	}
	if _, err := engine.InitializePool(authority, [32]byte{0x03}, 5, 100, treasury, big.NewInt(1), 0, []string{"USDX"}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for zero expiration, got %v", err)
	}
	oversized := make([]string, MaxWhitelistCapacity+1)
	for i := range oversized {
		oversized[i] = "M" + string(rune('A'+i))
	}
	if _, err := engine.InitializePool(authority, [32]byte{0x04}, 5, 100, treasury, big.NewInt(1), 3600, oversized); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for oversized whitelist, got %v", err)
	}
}

func TestInitializePoolDeduplicatesWhitelist(t *testing.T) {
	engine, _, _ := setupEngine(t)
	pool, err := engine.InitializePool(newTestAddress(0x01), [32]byte{0x05}, 5, 100, newTestAddress(0x02), big.NewInt(1), 3600, []string{"usdx", "USDX", " nhb "})
	if err != nil {
		t.Fatalf("InitializePool error: %v", err)
	}
	if len(pool.WhitelistedMints) != 2 {
		t.Fatalf("expected deduplicated whitelist, got %v", pool.WhitelistedMints)
	}
}

func TestInitializePoolReinitializationFails(t *testing.T) {
	engine, _, _ := setupEngine(t)
	authority := newTestAddress(0x01)
	nonce := [32]byte{0x06}
	if _, err := engine.InitializePool(authority, nonce, 5, 100, newTestAddress(0x02), big.NewInt(1), 3600, []string{"USDX"}); err != nil {
		t.Fatalf("first initialization error: %v", err)
	}
	if _, err := engine.InitializePool(authority, nonce, 9, 50, newTestAddress(0x03), big.NewInt(5), 60, []string{"NHB"}); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestUpdatePolicy(t *testing.T) {
	engine, state, emitter := setupEngine(t)
	authority := newTestAddress(0x01)
	pool, err := engine.InitializePool(authority, [32]byte{0x07}, 5, 100, newTestAddress(0x02), big.NewInt(1000), 3600, []string{"USDX"})
	if err != nil {
		t.Fatalf("InitializePool error: %v", err)
	}

	if _, err := engine.UpdatePolicy(pool.ID, newTestAddress(0x09), PolicyUpdate{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	newFee := uint32(250)
	newMin := big.NewInt(5000)
	updated, err := engine.UpdatePolicy(pool.ID, authority, PolicyUpdate{FeeBps: &newFee, MinSwapAmount: newMin})
	if err != nil {
		t.Fatalf("UpdatePolicy error: %v", err)
	}
	if updated.FeeBps != 250 || updated.MinSwapAmount.Cmp(newMin) != 0 {
		t.Fatalf("policy not applied: %+v", updated)
	}
	if updated.MaxExpirationSecs != 3600 {
		t.Fatalf("untouched field changed: %d", updated.MaxExpirationSecs)
	}
	stored, _ := state.PoolGet(pool.ID)
	if stored.FeeBps != 250 {
		t.Fatalf("policy not persisted")
	}
	if !eventSeen(emitter, EventTypePolicyUpdated) {
		t.Fatalf("expected policy updated event")
	}

	badFee := uint32(10001)
	if _, err := engine.UpdatePolicy(pool.ID, authority, PolicyUpdate{FeeBps: &badFee}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestPauseResume(t *testing.T) {
	engine, state, emitter := setupEngine(t)
	authority := newTestAddress(0x01)
	pool, err := engine.InitializePool(authority, [32]byte{0x08}, 5, 100, newTestAddress(0x02), big.NewInt(1), 3600, []string{"USDX"})
	if err != nil {
		t.Fatalf("InitializePool error: %v", err)
	}
	if err := engine.PausePool(pool.ID, newTestAddress(0x09)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.PausePool(pool.ID, authority); err != nil {
		t.Fatalf("PausePool error: %v", err)
	}
	stored, _ := state.PoolGet(pool.ID)
	if !stored.Paused {
		t.Fatalf("expected pool paused")
	}
	if !eventSeen(emitter, EventTypePoolPaused) {
		t.Fatalf("expected pause event")
	}
	if err := engine.ResumePool(pool.ID, authority); err != nil {
		t.Fatalf("ResumePool error: %v", err)
	}
	stored, _ = state.PoolGet(pool.ID)
	if stored.Paused {
		t.Fatalf("expected pool resumed")
	}
	if !eventSeen(emitter, EventTypePoolResumed) {
		t.Fatalf("expected resume event")
	}
}

func TestTransferAssetSelfTransferConservesValue(t *testing.T) {
	engine, state, _ := setupEngine(t)
	addr := newTestAddress(0x11)
	state.setBalance(addr, "NHB", 5000)

	if err := engine.transferAsset(addr, addr, "NHB", big.NewInt(3000)); err != nil {
		t.Fatalf("self-transfer error: %v", err)
	}
	if got := state.balance(addr, "NHB"); got.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("self-transfer changed balance: %s", got)
	}
	if err := engine.transferAsset(addr, addr, "NHB", big.NewInt(6000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds for uncovered self-transfer, got %v", err)
	}
	if got := state.balance(addr, "NHB"); got.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("failed self-transfer changed balance: %s", got)
	}
}

type stubPauses map[string]bool

func (s stubPauses) IsPaused(module string) bool { return s[module] }

func TestHostPauseBlocksPauseResume(t *testing.T) {
	engine, _, _ := setupEngine(t)
	authority := newTestAddress(0x01)
	pool, err := engine.InitializePool(authority, [32]byte{0x09}, 5, 100, newTestAddress(0x02), big.NewInt(1), 3600, []string{"USDX"})
	if err != nil {
		t.Fatalf("InitializePool error: %v", err)
	}

	engine.SetPauses(stubPauses{"otc": true})
	if err := engine.PausePool(pool.ID, authority); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused on pause, got %v", err)
	}
	if err := engine.ResumePool(pool.ID, authority); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused on resume, got %v", err)
	}
	stored, _ := engine.Pool(pool.ID)
	if stored.Paused {
		t.Fatalf("pool flag flipped while module halted")
	}
}

func TestEngineRequiresState(t *testing.T) {
	engine := NewEngine()
	if _, err := engine.InitializePool(newTestAddress(0x01), [32]byte{}, 5, 100, newTestAddress(0x02), big.NewInt(1), 3600, nil); err == nil {
		t.Fatalf("expected error without state backend")
	}
}
