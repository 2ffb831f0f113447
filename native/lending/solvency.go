package lending

import "math/big"

// MaxHealthFactor is the sentinel returned for positions with no debt.
var MaxHealthFactor = new(big.Int).SetUint64(^uint64(0))

// RequiredCollateral returns the minimum collateral a position must hold to
// support the given debt: floor(debt * collateralRatioBps / 10000).
func RequiredCollateral(params ProtocolParams, debt *big.Int) *big.Int {
	return bpsMul(debt, params.CollateralRatioBps)
}

// MaxBorrowable returns the largest debt the given collateral can support:
// floor(collateral * 10000 / collateralRatioBps).
func MaxBorrowable(params ProtocolParams, collateral *big.Int) *big.Int {
	return bpsDiv(collateral, params.CollateralRatioBps)
}

// IsLiquidatable reports whether the position has fallen below the
// liquidation threshold. The comparison is cross-multiplied to avoid precision
// loss from division and uses strict inequality: a position exactly at the
// threshold is not liquidatable. Positions with zero debt are never
// liquidatable.
func IsLiquidatable(params ProtocolParams, p *Position) bool {
	if p == nil {
		return false
	}
	debt := p.TotalDebt()
	if debt.Sign() == 0 {
		return false
	}
	collateral := p.CollateralAmount
	if collateral == nil {
		collateral = new(big.Int)
	}
	lhs := new(big.Int).Mul(collateral, new(big.Int).SetUint64(params.LiquidationThresholdBps))
	rhs := new(big.Int).Mul(debt, basisPoints)
	return lhs.Cmp(rhs) < 0
}

// HealthFactor returns the normalized collateral sufficiency of the position
// in basis points. Values at or above 10000 are healthy; MaxHealthFactor is
// returned when the position carries no debt.
func HealthFactor(params ProtocolParams, p *Position) *big.Int {
	if p == nil {
		return new(big.Int).Set(MaxHealthFactor)
	}
	debt := p.TotalDebt()
	if debt.Sign() == 0 {
		return new(big.Int).Set(MaxHealthFactor)
	}
	required := RequiredCollateral(params, debt)
	if required.Sign() == 0 {
		return new(big.Int).Set(MaxHealthFactor)
	}
	collateral := p.CollateralAmount
	if collateral == nil {
		collateral = new(big.Int)
	}
	health := new(big.Int).Mul(collateral, basisPoints)
	return health.Quo(health, required)
}
