package lending

import (
	"math/big"
	"sync/atomic"

	"lendledger/core/events"
	nativecommon "lendledger/native/common"
)

// State is the persistence surface the engine mutates. Lookups return nil for
// records that do not exist yet; positions and liquidity aggregates are
// created implicitly on first use.
type State interface {
	GetPosition(asset, account string) (*Position, error)
	PutPosition(asset, account string, position *Position) error
	GetLiquidity(asset string) (*AssetLiquidity, error)
	PutLiquidity(asset string, liquidity *AssetLiquidity) error
	IsAssetSupported(asset string) (bool, error)
}

// Transfer is the external asset-movement collaborator. Pull moves value from
// an account into the protocol vault, Push moves value from the vault to an
// account. A failure from either aborts the whole enclosing operation.
type Transfer interface {
	Pull(asset, from string, amount *big.Int) error
	Push(asset, to string, amount *big.Int) error
	BalanceOf(asset, account string) (*big.Int, error)
}

// Clock supplies the timestamps used for interest accrual, in unix seconds.
// Whoever sequences operations controls the clock.
type Clock interface {
	Now() uint64
}

// Engine orchestrates the primary state transitions for the lending module.
// Operations are not safe for concurrent use: the host serialises them into a
// single total order, and the engine's reentrancy guard rejects any nested
// mutating call that slips through (e.g. from a flash-credit callback).
type Engine struct {
	state        State
	transfer     Transfer
	clock        Clock
	params       ProtocolParams
	vaultAccount string
	emitter      events.Emitter
	busy         atomic.Bool
}

// NewEngine constructs a lending engine bound to the protocol vault account.
func NewEngine(vaultAccount string, params ProtocolParams) *Engine {
	return &Engine{
		vaultAccount: vaultAccount,
		params:       params,
		emitter:      events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state State) { e.state = state }

// SetTransfer wires the engine to the asset transfer collaborator.
func (e *Engine) SetTransfer(transfer Transfer) { e.transfer = transfer }

// SetClock configures the accrual time source.
func (e *Engine) SetClock(clock Clock) { e.clock = clock }

// SetParams refreshes the governance parameters consumed by subsequent
// operations.
func (e *Engine) SetParams(params ProtocolParams) { e.params = params }

// Params returns the currently configured protocol parameters.
func (e *Engine) Params() ProtocolParams { return e.params }

// SetEmitter configures the event sink. A nil emitter discards events.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) enter() error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrReentrancy
	}
	return nil
}

func (e *Engine) leave() { e.busy.Store(false) }

func (e *Engine) now() uint64 {
	if e.clock == nil {
		return 0
	}
	return e.clock.Now()
}

// guardMutation performs the checks shared by every mutating operation.
func (e *Engine) guardMutation(asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.transfer == nil {
		return ErrNilTransfer
	}
	if e.params.Paused {
		return nativecommon.ErrModulePaused
	}
	if amount != nil && amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	supported, err := e.state.IsAssetSupported(asset)
	if err != nil {
		return err
	}
	if !supported {
		return ErrAssetNotSupported
	}
	return nil
}

func (e *Engine) ensurePosition(asset, account string) (*Position, error) {
	position, err := e.state.GetPosition(asset, account)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &Position{}
	}
	position.EnsureDefaults()
	return position, nil
}

func (e *Engine) ensureLiquidity(asset string) (*AssetLiquidity, error) {
	liquidity, err := e.state.GetLiquidity(asset)
	if err != nil {
		return nil, err
	}
	if liquidity == nil {
		liquidity = &AssetLiquidity{}
	}
	liquidity.EnsureDefaults()
	return liquidity, nil
}

// availableLiquidity is the value actually free to lend: the vault's asset
// balance minus outstanding principal, floored at zero.
func (e *Engine) availableLiquidity(asset string, liquidity *AssetLiquidity) (*big.Int, error) {
	balance, err := e.transfer.BalanceOf(asset, e.vaultAccount)
	if err != nil {
		return nil, err
	}
	free := new(big.Int).Sub(balance, liquidity.TotalBorrowed)
	if free.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return free, nil
}

// Deposit locks collateral for the account inside the lending vault.
func (e *Engine) Deposit(account, asset string, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()
	if err := e.guardMutation(asset, amount); err != nil {
		return err
	}

	position, err := e.ensurePosition(asset, account)
	if err != nil {
		return err
	}
	Settle(position, e.now(), e.params.InterestRateBps)

	liquidity, err := e.ensureLiquidity(asset)
	if err != nil {
		return err
	}

	if err := e.transfer.Pull(asset, account, amount); err != nil {
		return err
	}

	position.CollateralAmount = new(big.Int).Add(position.CollateralAmount, amount)
	liquidity.TotalCollateral = new(big.Int).Add(liquidity.TotalCollateral, amount)

	if err := e.state.PutPosition(asset, account, position); err != nil {
		return err
	}
	if err := e.state.PutLiquidity(asset, liquidity); err != nil {
		return err
	}

	e.emitter.Emit(events.CollateralDeposited{Account: account, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// Withdraw releases collateral back to the account while keeping the
// remaining position solvent against its debt.
func (e *Engine) Withdraw(account, asset string, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()
	if err := e.guardMutation(asset, amount); err != nil {
		return err
	}

	position, err := e.ensurePosition(asset, account)
	if err != nil {
		return err
	}
	Settle(position, e.now(), e.params.InterestRateBps)

	if position.CollateralAmount.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	remaining := new(big.Int).Sub(position.CollateralAmount, amount)
	debt := position.TotalDebt()
	if debt.Sign() > 0 && remaining.Cmp(RequiredCollateral(e.params, debt)) < 0 {
		return ErrSolvencyViolation
	}

	liquidity, err := e.ensureLiquidity(asset)
	if err != nil {
		return err
	}

	if err := e.transfer.Push(asset, account, amount); err != nil {
		return err
	}

	position.CollateralAmount = remaining
	liquidity.TotalCollateral = new(big.Int).Sub(liquidity.TotalCollateral, amount)

	if err := e.state.PutPosition(asset, account, position); err != nil {
		return err
	}
	if err := e.state.PutLiquidity(asset, liquidity); err != nil {
		return err
	}

	e.emitter.Emit(events.CollateralWithdrawn{Account: account, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// Borrow draws principal against the account's collateral. The post-borrow
// debt must remain fully covered: a borrow that makes required collateral
// exactly equal to held collateral succeeds.
func (e *Engine) Borrow(account, asset string, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()
	if err := e.guardMutation(asset, amount); err != nil {
		return err
	}

	position, err := e.ensurePosition(asset, account)
	if err != nil {
		return err
	}
	Settle(position, e.now(), e.params.InterestRateBps)

	liquidity, err := e.ensureLiquidity(asset)
	if err != nil {
		return err
	}
	free, err := e.availableLiquidity(asset, liquidity)
	if err != nil {
		return err
	}
	if free.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}

	projectedDebt := new(big.Int).Add(position.TotalDebt(), amount)
	if position.CollateralAmount.Cmp(RequiredCollateral(e.params, projectedDebt)) < 0 {
		return ErrSolvencyViolation
	}

	if err := e.transfer.Push(asset, account, amount); err != nil {
		return err
	}

	position.BorrowedAmount = new(big.Int).Add(position.BorrowedAmount, amount)
	liquidity.TotalBorrowed = new(big.Int).Add(liquidity.TotalBorrowed, amount)

	if err := e.state.PutPosition(asset, account, position); err != nil {
		return err
	}
	if err := e.state.PutLiquidity(asset, liquidity); err != nil {
		return err
	}

	e.emitter.Emit(events.LoanBorrowed{Account: account, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// Repay settles outstanding debt, interest first. The effective repayment is
// capped to the total debt; the excess is never pulled from the caller.
func (e *Engine) Repay(account, asset string, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()
	if err := e.guardMutation(asset, amount); err != nil {
		return err
	}

	position, err := e.ensurePosition(asset, account)
	if err != nil {
		return err
	}
	Settle(position, e.now(), e.params.InterestRateBps)

	debt := position.TotalDebt()
	if debt.Sign() == 0 {
		return ErrNoDebtToRepay
	}
	repayAmount := minBig(amount, debt)

	if err := e.transfer.Pull(asset, account, repayAmount); err != nil {
		return err
	}

	interestPayment := minBig(repayAmount, position.InterestAccrued)
	principalPayment := new(big.Int).Sub(repayAmount, interestPayment)

	position.InterestAccrued = new(big.Int).Sub(position.InterestAccrued, interestPayment)
	position.BorrowedAmount = new(big.Int).Sub(position.BorrowedAmount, principalPayment)
	if position.BorrowedAmount.Sign() == 0 && position.InterestAccrued.Sign() == 0 {
		position.LastAccrualTime = 0
	}

	liquidity, err := e.ensureLiquidity(asset)
	if err != nil {
		return err
	}
	// Interest is not part of the aggregate-borrowed metric.
	liquidity.TotalBorrowed = new(big.Int).Sub(liquidity.TotalBorrowed, principalPayment)

	if err := e.state.PutPosition(asset, account, position); err != nil {
		return err
	}
	if err := e.state.PutLiquidity(asset, liquidity); err != nil {
		return err
	}

	e.emitter.Emit(events.LoanRepaid{
		Account:   account,
		Asset:     asset,
		Amount:    repayAmount,
		Interest:  interestPayment,
		Principal: principalPayment,
	})
	return nil
}

// Liquidate lets a third party repay an unhealthy borrower's full debt in
// exchange for a bonus-weighted share of their collateral. Partial
// liquidation is not supported: the position is reset to zero.
func (e *Engine) Liquidate(liquidator, account, asset string) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()
	if liquidator == account {
		return ErrSelfLiquidation
	}
	if err := e.guardMutation(asset, nil); err != nil {
		return err
	}

	position, err := e.ensurePosition(asset, account)
	if err != nil {
		return err
	}
	Settle(position, e.now(), e.params.InterestRateBps)

	debt := position.TotalDebt()
	if debt.Sign() == 0 {
		return ErrNotLiquidatable
	}
	if !IsLiquidatable(e.params, position) {
		return ErrNotLiquidatable
	}

	seize := minBig(bpsMul(debt, e.params.LiquidationBonusBps), position.CollateralAmount)

	// The liquidator covers the full debt before collateral is released.
	if err := e.transfer.Pull(asset, liquidator, debt); err != nil {
		return err
	}
	if err := e.transfer.Push(asset, liquidator, seize); err != nil {
		return err
	}

	liquidity, err := e.ensureLiquidity(asset)
	if err != nil {
		return err
	}
	liquidity.TotalBorrowed = new(big.Int).Sub(liquidity.TotalBorrowed, position.BorrowedAmount)
	liquidity.TotalCollateral = new(big.Int).Sub(liquidity.TotalCollateral, position.CollateralAmount)

	cleared := new(big.Int).Set(position.CollateralAmount)
	position.CollateralAmount = big.NewInt(0)
	position.BorrowedAmount = big.NewInt(0)
	position.InterestAccrued = big.NewInt(0)
	position.LastAccrualTime = 0

	if err := e.state.PutPosition(asset, account, position); err != nil {
		return err
	}
	if err := e.state.PutLiquidity(asset, liquidity); err != nil {
		return err
	}

	e.emitter.Emit(events.PositionLiquidated{
		Liquidator:        liquidator,
		Account:           account,
		Asset:             asset,
		DebtRepaid:        debt,
		CollateralSeized:  seize,
		CollateralCleared: cleared,
	})
	return nil
}

// GetPosition returns the stored position with interest projected to now. The
// stored record is not mutated.
func (e *Engine) GetPosition(account, asset string) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	position, err := e.state.GetPosition(asset, account)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &Position{}
	}
	projected := position.Clone()
	projected.EnsureDefaults()
	Settle(projected, e.now(), e.params.InterestRateBps)
	return projected, nil
}

// GetAssetLiquidity returns the aggregate collateral and borrow totals for an
// asset.
func (e *Engine) GetAssetLiquidity(asset string) (*AssetLiquidity, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	liquidity, err := e.ensureLiquidity(asset)
	if err != nil {
		return nil, err
	}
	return liquidity.Clone(), nil
}

// AvailableToBorrow returns the additional principal the account could draw
// right now: the solvency headroom of its collateral, capped by the
// protocol's free liquidity.
func (e *Engine) AvailableToBorrow(account, asset string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if e.transfer == nil {
		return nil, ErrNilTransfer
	}
	position, err := e.GetPosition(account, asset)
	if err != nil {
		return nil, err
	}
	headroom := new(big.Int).Sub(MaxBorrowable(e.params, position.CollateralAmount), position.TotalDebt())
	if headroom.Sign() < 0 {
		headroom = big.NewInt(0)
	}
	liquidity, err := e.ensureLiquidity(asset)
	if err != nil {
		return nil, err
	}
	free, err := e.availableLiquidity(asset, liquidity)
	if err != nil {
		return nil, err
	}
	return minBig(headroom, free), nil
}
