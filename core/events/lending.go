package events

import "math/big"

const (
	TypeCollateralDeposited = "lending.collateral.deposited"
	TypeCollateralWithdrawn = "lending.collateral.withdrawn"
	TypeLoanBorrowed        = "lending.loan.borrowed"
	TypeLoanRepaid          = "lending.loan.repaid"
	TypePositionLiquidated  = "lending.position.liquidated"
	TypeFlashCredit         = "lending.flash.credit"
	TypeParamsUpdated       = "lending.params.updated"
	TypeAssetListed         = "lending.asset.listed"
	TypeAccountFunded       = "lending.account.funded"
)

// CollateralDeposited is emitted when an account locks collateral.
type CollateralDeposited struct {
	Account string
	Asset   string
	Amount  *big.Int
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account,
		"asset":   e.Asset,
		"amount":  formatAmount(e.Amount),
	}
}

// CollateralWithdrawn is emitted when collateral is released back to the
// account.
type CollateralWithdrawn struct {
	Account string
	Asset   string
	Amount  *big.Int
}

func (CollateralWithdrawn) EventType() string { return TypeCollateralWithdrawn }

func (e CollateralWithdrawn) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account,
		"asset":   e.Asset,
		"amount":  formatAmount(e.Amount),
	}
}

// LoanBorrowed is emitted when principal is drawn against collateral.
type LoanBorrowed struct {
	Account string
	Asset   string
	Amount  *big.Int
}

func (LoanBorrowed) EventType() string { return TypeLoanBorrowed }

func (e LoanBorrowed) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account,
		"asset":   e.Asset,
		"amount":  formatAmount(e.Amount),
	}
}

// LoanRepaid carries the interest/principal split of a repayment.
type LoanRepaid struct {
	Account   string
	Asset     string
	Amount    *big.Int
	Interest  *big.Int
	Principal *big.Int
}

func (LoanRepaid) EventType() string { return TypeLoanRepaid }

func (e LoanRepaid) Attributes() map[string]string {
	return map[string]string{
		"account":   e.Account,
		"asset":     e.Asset,
		"amount":    formatAmount(e.Amount),
		"interest":  formatAmount(e.Interest),
		"principal": formatAmount(e.Principal),
	}
}

// PositionLiquidated carries the collateral/debt split of a liquidation.
type PositionLiquidated struct {
	Liquidator        string
	Account           string
	Asset             string
	DebtRepaid        *big.Int
	CollateralSeized  *big.Int
	CollateralCleared *big.Int
}

func (PositionLiquidated) EventType() string { return TypePositionLiquidated }

func (e PositionLiquidated) Attributes() map[string]string {
	return map[string]string{
		"liquidator":        e.Liquidator,
		"account":           e.Account,
		"asset":             e.Asset,
		"debtRepaid":        formatAmount(e.DebtRepaid),
		"collateralSeized":  formatAmount(e.CollateralSeized),
		"collateralCleared": formatAmount(e.CollateralCleared),
	}
}

// FlashCredit is emitted after a flash credit settles successfully.
type FlashCredit struct {
	Account string
	Asset   string
	Amount  *big.Int
	Fee     *big.Int
}

func (FlashCredit) EventType() string { return TypeFlashCredit }

func (e FlashCredit) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account,
		"asset":   e.Asset,
		"amount":  formatAmount(e.Amount),
		"fee":     formatAmount(e.Fee),
	}
}

// ParamsUpdated records a governance parameter change.
type ParamsUpdated struct {
	Principal               string
	InterestRateBps         uint64
	CollateralRatioBps      uint64
	LiquidationThresholdBps uint64
	LiquidationBonusBps     uint64
	Paused                  bool
}

func (ParamsUpdated) EventType() string { return TypeParamsUpdated }

func (e ParamsUpdated) Attributes() map[string]string {
	paused := "false"
	if e.Paused {
		paused = "true"
	}
	return map[string]string{
		"principal":               e.Principal,
		"interestRateBps":         uintToString(e.InterestRateBps),
		"collateralRatioBps":      uintToString(e.CollateralRatioBps),
		"liquidationThresholdBps": uintToString(e.LiquidationThresholdBps),
		"liquidationBonusBps":     uintToString(e.LiquidationBonusBps),
		"paused":                  paused,
	}
}

// AssetListed records a newly supported asset.
type AssetListed struct {
	Principal string
	Asset     string
}

func (AssetListed) EventType() string { return TypeAssetListed }

func (e AssetListed) Attributes() map[string]string {
	return map[string]string{
		"principal": e.Principal,
		"asset":     e.Asset,
	}
}

// AccountFunded records an administrative balance credit.
type AccountFunded struct {
	Principal string
	Account   string
	Asset     string
	Amount    *big.Int
}

func (AccountFunded) EventType() string { return TypeAccountFunded }

func (e AccountFunded) Attributes() map[string]string {
	return map[string]string{
		"principal": e.Principal,
		"account":   e.Account,
		"asset":     e.Asset,
		"amount":    formatAmount(e.Amount),
	}
}
