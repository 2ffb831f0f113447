package lending

import (
	"errors"
	"fmt"
	"math/big"
)

// Position captures the lending state for a single account and asset. Amounts
// are unsigned big integers denominated in the smallest unit of the asset.
type Position struct {
	// CollateralAmount is the collateral currently held on the account's
	// behalf.
	CollateralAmount *big.Int
	// BorrowedAmount stores the outstanding principal excluding interest.
	BorrowedAmount *big.Int
	// InterestAccrued is interest settled into the position but not yet
	// repaid.
	InterestAccrued *big.Int
	// LastAccrualTime is the unix timestamp of the last interest settlement.
	// Zero means the position has never borrowed or is fully settled with no
	// open checkpoint.
	LastAccrualTime uint64
}

// EnsureDefaults populates nil big.Int fields so RLP and JSON handling is safe.
func (p *Position) EnsureDefaults() {
	if p.CollateralAmount == nil {
		p.CollateralAmount = big.NewInt(0)
	}
	if p.BorrowedAmount == nil {
		p.BorrowedAmount = big.NewInt(0)
	}
	if p.InterestAccrued == nil {
		p.InterestAccrued = big.NewInt(0)
	}
}

// TotalDebt returns principal plus settled interest.
func (p *Position) TotalDebt() *big.Int {
	debt := new(big.Int)
	if p == nil {
		return debt
	}
	if p.BorrowedAmount != nil {
		debt.Add(debt, p.BorrowedAmount)
	}
	if p.InterestAccrued != nil {
		debt.Add(debt, p.InterestAccrued)
	}
	return debt
}

// IsZero reports whether the position carries no collateral and no debt.
func (p *Position) IsZero() bool {
	if p == nil {
		return true
	}
	return (p.CollateralAmount == nil || p.CollateralAmount.Sign() == 0) &&
		(p.BorrowedAmount == nil || p.BorrowedAmount.Sign() == 0) &&
		(p.InterestAccrued == nil || p.InterestAccrued.Sign() == 0)
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{LastAccrualTime: p.LastAccrualTime}
	if p.CollateralAmount != nil {
		clone.CollateralAmount = new(big.Int).Set(p.CollateralAmount)
	}
	if p.BorrowedAmount != nil {
		clone.BorrowedAmount = new(big.Int).Set(p.BorrowedAmount)
	}
	if p.InterestAccrued != nil {
		clone.InterestAccrued = new(big.Int).Set(p.InterestAccrued)
	}
	return clone
}

// AssetLiquidity tracks the protocol-wide aggregates for one asset. The totals
// must equal the sums over all positions of the same asset at every point
// between operations.
type AssetLiquidity struct {
	TotalCollateral *big.Int
	TotalBorrowed   *big.Int
}

// EnsureDefaults populates nil big.Int fields.
func (l *AssetLiquidity) EnsureDefaults() {
	if l.TotalCollateral == nil {
		l.TotalCollateral = big.NewInt(0)
	}
	if l.TotalBorrowed == nil {
		l.TotalBorrowed = big.NewInt(0)
	}
}

// Clone returns a deep copy of the liquidity aggregates.
func (l *AssetLiquidity) Clone() *AssetLiquidity {
	if l == nil {
		return nil
	}
	clone := &AssetLiquidity{}
	if l.TotalCollateral != nil {
		clone.TotalCollateral = new(big.Int).Set(l.TotalCollateral)
	}
	if l.TotalBorrowed != nil {
		clone.TotalBorrowed = new(big.Int).Set(l.TotalBorrowed)
	}
	return clone
}

// ProtocolParams groups the governance controlled knobs consumed by the
// accounting engine. All ratios are expressed in basis points.
type ProtocolParams struct {
	// InterestRateBps is the annualized simple-interest borrow rate.
	InterestRateBps uint64
	// CollateralRatioBps is the required collateral/debt ratio to open or
	// maintain a position. Must be at least 10000.
	CollateralRatioBps uint64
	// LiquidationThresholdBps is the ratio below which a position becomes
	// seizable. Must be strictly below CollateralRatioBps.
	LiquidationThresholdBps uint64
	// LiquidationBonusBps is the multiplier applied to repaid debt when
	// computing the liquidator payout. Must be at least 10000.
	LiquidationBonusBps uint64
	// Paused halts every mutating operation when set.
	Paused bool
}

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("lending params: invalid")

var (
	errCollateralRatioTooLow = fmt.Errorf("%w: collateral ratio below 10000 bps", ErrInvalidParams)
	errThresholdOrdering     = fmt.Errorf("%w: liquidation threshold must be below collateral ratio", ErrInvalidParams)
	errBonusTooLow           = fmt.Errorf("%w: liquidation bonus below 10000 bps", ErrInvalidParams)
)

// Validate enforces the parameter ordering invariants. It is consulted on
// every governance mutation, not just at read time.
func (p ProtocolParams) Validate() error {
	if p.CollateralRatioBps < 10_000 {
		return errCollateralRatioTooLow
	}
	if p.LiquidationThresholdBps >= p.CollateralRatioBps {
		return errThresholdOrdering
	}
	if p.LiquidationBonusBps < 10_000 {
		return errBonusTooLow
	}
	return nil
}

// DefaultParams returns the protocol defaults applied when governance has not
// configured the store yet.
func DefaultParams() ProtocolParams {
	return ProtocolParams{
		InterestRateBps:         500,
		CollateralRatioBps:      15_000,
		LiquidationThresholdBps: 12_500,
		LiquidationBonusBps:     10_500,
	}
}
