package lending

import "math/big"

// LiquidationInfo is the read-only liquidation quote for a position.
type LiquidationInfo struct {
	// Liquidatable reports current eligibility after projecting interest.
	Liquidatable bool
	// HealthFactorBps is the normalized collateral sufficiency; values at or
	// above 10000 are healthy.
	HealthFactorBps *big.Int
	// TotalDebt is principal plus interest projected to now.
	TotalDebt *big.Int
	// CollateralAmount is the collateral currently locked.
	CollateralAmount *big.Int
	// ProjectedSeize is the payout a liquidator would receive right now,
	// capped to the held collateral.
	ProjectedSeize *big.Int
	// SecondsToEligibility estimates when accruing interest alone will push
	// the position over the threshold, assuming constant parameters and no
	// further activity. Zero when already liquidatable or when the position
	// will never become eligible through accrual.
	SecondsToEligibility uint64
}

// LiquidationInfo quotes the liquidation state of a position without mutating
// the ledger.
func (e *Engine) LiquidationInfo(account, asset string) (*LiquidationInfo, error) {
	position, err := e.GetPosition(account, asset)
	if err != nil {
		return nil, err
	}

	debt := position.TotalDebt()
	info := &LiquidationInfo{
		Liquidatable:     IsLiquidatable(e.params, position),
		HealthFactorBps:  HealthFactor(e.params, position),
		TotalDebt:        debt,
		CollateralAmount: new(big.Int).Set(position.CollateralAmount),
	}
	if info.Liquidatable {
		info.ProjectedSeize = minBig(bpsMul(debt, e.params.LiquidationBonusBps), position.CollateralAmount)
		return info, nil
	}
	info.ProjectedSeize = big.NewInt(0)
	info.SecondsToEligibility = secondsToEligibility(e.params, position)
	return info, nil
}

// secondsToEligibility solves for the smallest elapsed time t where
//
//	(debt + floor(principal*rate*t/(secondsPerYear*10000))) * 10000 > collateral * threshold
//
// holds. Returns zero when accrual alone can never cross the threshold
// (no principal or a zero rate).
func secondsToEligibility(params ProtocolParams, position *Position) uint64 {
	if position == nil || position.BorrowedAmount == nil || position.BorrowedAmount.Sign() == 0 {
		return 0
	}
	if params.InterestRateBps == 0 {
		return 0
	}

	// Strict inequality: debt must reach floor(collateral*threshold/10000)+1.
	target := bpsMul(position.CollateralAmount, params.LiquidationThresholdBps)
	target.Add(target, big.NewInt(1))
	needed := new(big.Int).Sub(target, position.TotalDebt())
	if needed.Sign() <= 0 {
		return 0
	}

	// Invert the accrual floor: t = ceil(needed * secondsPerYear * 10000 / (principal * rate)).
	numerator := new(big.Int).Mul(needed, big.NewInt(secondsPerYear))
	numerator.Mul(numerator, basisPoints)
	denominator := new(big.Int).Mul(position.BorrowedAmount, new(big.Int).SetUint64(params.InterestRateBps))
	seconds := ceilDiv(numerator, denominator)
	if !seconds.IsUint64() {
		return 0
	}
	return seconds.Uint64()
}
