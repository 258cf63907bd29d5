package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/btorressz/otc-pool/core/types"
	nativecommon "github.com/btorressz/otc-pool/native/common"
	"github.com/btorressz/otc-pool/native/otc"
	"github.com/btorressz/otc-pool/storage"
)

var (
	poolPrefix    = []byte("otc/pool/")
	offerPrefix   = []byte("otc/offer/")
	accountPrefix = []byte("otc/account/")
	quotaPrefix   = []byte("otc/quota/")
)

// PoolState is the durable backend for the pool engine. Records are stored
// JSON-encoded in a key-value database; every method takes the state lock so
// concurrent readers never observe a torn write. Serialization of whole
// engine transitions against the same record remains the host's job.
type PoolState struct {
	mu sync.RWMutex
	db storage.Database
}

// NewPoolState wraps the supplied database.
func NewPoolState(db storage.Database) *PoolState {
	return &PoolState{db: db}
}

func prefixedKey(prefix []byte, parts ...[]byte) []byte {
	key := append([]byte(nil), prefix...)
	for i, part := range parts {
		if i > 0 {
			key = append(key, '/')
		}
		key = append(key, hex.EncodeToString(part)...)
	}
	return key
}

func (s *PoolState) put(key []byte, record any) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return s.db.Put(key, encoded)
}

func (s *PoolState) get(key []byte, record any) (bool, error) {
	encoded, err := s.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(encoded, record); err != nil {
		return false, fmt.Errorf("state: decode record: %w", err)
	}
	return true, nil
}

// PoolPut persists a sanitized copy of the pool record.
func (s *PoolState) PoolPut(pool *otc.Pool) error {
	sanitized, err := otc.SanitizePool(pool)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(prefixedKey(poolPrefix, sanitized.ID[:]), sanitized)
}

// PoolGet loads a pool record by identifier.
func (s *PoolState) PoolGet(id [32]byte) (*otc.Pool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool := new(otc.Pool)
	ok, err := s.get(prefixedKey(poolPrefix, id[:]), pool)
	if err != nil || !ok {
		return nil, false
	}
	return pool, true
}

// OfferPut persists a sanitized copy of the offer record.
func (s *PoolState) OfferPut(offer *otc.SwapOffer) error {
	sanitized, err := otc.SanitizeOffer(offer)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(prefixedKey(offerPrefix, sanitized.ID[:]), sanitized)
}

// OfferGet loads an offer record by identifier.
func (s *PoolState) OfferGet(id [32]byte) (*otc.SwapOffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offer := new(otc.SwapOffer)
	ok, err := s.get(prefixedKey(offerPrefix, id[:]), offer)
	if err != nil || !ok {
		return nil, false
	}
	return offer, true
}

// OfferVaultAddress returns the escrow vault account for the pool.
func (s *PoolState) OfferVaultAddress(poolID [32]byte) ([20]byte, error) {
	return otc.VaultAddress(poolID), nil
}

// GetAccount loads the ledger account for an address. Unknown addresses read
// as empty accounts.
func (s *PoolState) GetAccount(addr []byte) (*types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account := types.NewAccount()
	if _, err := s.get(prefixedKey(accountPrefix, addr), account); err != nil {
		return nil, err
	}
	if account.Balances == nil {
		account.Balances = make(map[string]*big.Int)
	}
	return account, nil
}

// PutAccount persists the ledger account for an address.
func (s *PoolState) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		account = types.NewAccount()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(prefixedKey(accountPrefix, addr), account)
}

// QuotaGet loads the offer-creation quota counters for a partner.
func (s *PoolState) QuotaGet(poolID [32]byte, partner [20]byte) (nativecommon.QuotaNow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var usage nativecommon.QuotaNow
	if _, err := s.get(prefixedKey(quotaPrefix, poolID[:], partner[:]), &usage); err != nil {
		return nativecommon.QuotaNow{}, err
	}
	return usage, nil
}

// QuotaPut persists the offer-creation quota counters for a partner.
func (s *PoolState) QuotaPut(poolID [32]byte, partner [20]byte, usage nativecommon.QuotaNow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(prefixedKey(quotaPrefix, poolID[:], partner[:]), usage)
}
