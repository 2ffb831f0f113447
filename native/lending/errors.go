package lending

import "errors"

var (
	ErrNilState              = errors.New("lending engine: state not configured")
	ErrNilTransfer           = errors.New("lending engine: transfer collaborator not configured")
	ErrAssetNotSupported     = errors.New("lending engine: asset not supported")
	ErrInvalidAmount         = errors.New("lending engine: amount must be positive")
	ErrInsufficientBalance   = errors.New("lending engine: insufficient balance")
	ErrInsufficientLiquidity = errors.New("lending engine: insufficient liquidity")
	ErrSolvencyViolation     = errors.New("lending engine: required collateral exceeds held collateral")
	ErrNoDebtToRepay         = errors.New("lending engine: no outstanding debt to repay")
	ErrNotLiquidatable       = errors.New("lending engine: position not eligible for liquidation")
	ErrSelfLiquidation       = errors.New("lending engine: cannot liquidate own position")
	ErrFlashCreditUnrepaid   = errors.New("lending engine: flash credit not repaid with fee")
	ErrReentrancy            = errors.New("lending engine: reentrant call rejected")
)
