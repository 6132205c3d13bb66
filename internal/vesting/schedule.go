package vesting

import (
	"math"
	"math/bits"
	"strconv"
)

// Entitlement is the result of assessing a grant at a point in time.
type Entitlement struct {
	Time      int64  `json:"time"`
	Vested    uint64 `json:"vested"`
	Withdrawn uint64 `json:"withdrawn"`
	Claimable uint64 `json:"claimable"`
}

// Inconsistent reports whether more has been withdrawn than has vested.
// This can only follow from a clock that moved backwards or corrupted state.
func (e Entitlement) Inconsistent() bool {
	return e.Withdrawn > e.Vested
}

// VestedAmount returns how much of g has vested at now.
//
// At or after EndTime the full TotalAmount has vested. Before that the
// amount is floor(total * elapsed / duration) with elapsed saturating at 0,
// so nothing vests before StartTime. The cliff is not considered here.
func VestedAmount(g GrantEntry, now int64) (uint64, error) {
	duration := saturatingSub(g.EndTime, g.StartTime)
	if duration == 0 {
		return 0, newError(ErrInvalidVestingPeriod, nil,
			"start_time", strconv.FormatInt(g.StartTime, 10),
			"end_time", strconv.FormatInt(g.EndTime, 10))
	}
	if now >= g.EndTime {
		return g.TotalAmount, nil
	}

	elapsed := saturatingSub(now, g.StartTime)
	if elapsed <= 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(g.TotalAmount, uint64(elapsed))
	if hi != 0 {
		return 0, newError(ErrCalculationOverflow, nil,
			"total_amount", strconv.FormatUint(g.TotalAmount, 10),
			"elapsed", strconv.FormatInt(elapsed, 10))
	}
	// now < EndTime and elapsed > 0 imply StartTime < EndTime, so duration > 0.
	return lo / uint64(duration), nil
}

// Assess computes what may be claimed from g at now.
//
// Fails with ErrClaimNotAvailableYet before the cliff, ErrInvalidVestingPeriod
// for a zero-length schedule, ErrCalculationOverflow if the proportion
// cannot be computed, and ErrNothingToClaim when vested does not exceed
// withdrawn. Claimable is floored at zero; the returned Entitlement reports
// Inconsistent when that floor was applied.
func Assess(g GrantEntry, now int64) (Entitlement, error) {
	e := Entitlement{Time: now, Withdrawn: g.TotalWithdrawn}
	if now < g.CliffTime {
		return e, newError(ErrClaimNotAvailableYet, nil,
			"now", strconv.FormatInt(now, 10),
			"cliff_time", strconv.FormatInt(g.CliffTime, 10))
	}

	vested, err := VestedAmount(g, now)
	if err != nil {
		return e, err
	}
	e.Vested = vested

	if vested > g.TotalWithdrawn {
		e.Claimable = vested - g.TotalWithdrawn
	}
	if e.Claimable == 0 {
		return e, newError(ErrNothingToClaim, nil,
			"vested", strconv.FormatUint(vested, 10),
			"withdrawn", strconv.FormatUint(g.TotalWithdrawn, 10))
	}
	return e, nil
}

// saturatingSub returns a-b clamped to the int64 range.
func saturatingSub(a, b int64) int64 {
	d := a - b
	// Overflow iff a and b have different signs and d's sign differs from a's.
	if (a >= 0) != (b >= 0) && (d >= 0) != (a >= 0) {
		if a >= 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return d
}
