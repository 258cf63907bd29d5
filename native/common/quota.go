package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaExceeded        = errors.New("quota offers exceeded")
	ErrQuotaCounterOverflow = errors.New("quota counter overflow")
)

// QuotaNow captures the usage counters for one address inside one epoch.
type QuotaNow struct {
	Count   uint32
	EpochID uint64
}

// Quota bounds how many offers a partner may originate per epoch. A zero
// MaxOffersPerEpoch disables enforcement.
type Quota struct {
	MaxOffersPerEpoch uint32
	EpochSeconds      uint32
}

// Enabled reports whether the quota will reject anything at all.
func (q Quota) Enabled() bool {
	return q.MaxOffersPerEpoch > 0 && q.EpochSeconds > 0
}

// Epoch maps a unix timestamp onto the quota epoch counter.
func (q Quota) Epoch(now int64) uint64 {
	if q.EpochSeconds == 0 || now <= 0 {
		return 0
	}
	return uint64(now) / uint64(q.EpochSeconds)
}

// CheckQuota verifies the additional usage fits within the configured quota.
// The returned counters reflect the updated usage when admitted; on denial
// the previous counters are returned unchanged.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, add uint32) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}
	if add > 0 {
		if next.Count > math.MaxUint32-add {
			return prev, ErrQuotaCounterOverflow
		}
		next.Count += add
	}
	if q.MaxOffersPerEpoch > 0 && next.Count > q.MaxOffersPerEpoch {
		return prev, ErrQuotaExceeded
	}
	return next, nil
}
