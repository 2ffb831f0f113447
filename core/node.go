package core

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"lendledger/core/events"
	"lendledger/core/state"
	"lendledger/native/lending"
)

// VaultAccount is the protocol account holding deposited collateral and
// lendable liquidity.
const VaultAccount = "lending-module-vault"

// Node wires the lending engine to persistent state, the asset ledger, the
// event sinks and the governance gate. It serialises every operation into the
// single total order the accounting engine requires.
type Node struct {
	mu       sync.Mutex
	state    *state.Manager
	engine   *lending.Engine
	auth     lending.Authorizer
	emitter  events.Emitter
	recorder *events.Recorder
	logger   *slog.Logger

	// inCallback is set while a flash-credit handler runs. The handler holds
	// the open transaction, so any node call it issues could never acquire the
	// lock; rejecting up front turns that circular wait into ErrReentrancy.
	inCallback atomic.Bool
}

// Clock implementations supply accrual timestamps in unix seconds.
type systemClock struct{}

func (systemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// Option configures optional node collaborators.
type Option func(*Node)

// WithAuthorizer installs the governance authorization gate.
func WithAuthorizer(auth lending.Authorizer) Option {
	return func(n *Node) { n.auth = auth }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) { n.logger = logger }
}

// WithClock overrides the accrual time source. Intended for tests and for
// hosts that sequence operations against their own timeline.
func WithClock(clock lending.Clock) Option {
	return func(n *Node) { n.engine.SetClock(clock) }
}

// WithEmitter adds an additional event sink beside the built-in recorder.
func WithEmitter(emitter events.Emitter) Option {
	return func(n *Node) {
		n.emitter = events.MultiEmitter{n.recorder, emitter}
	}
}

// NewNode constructs a node over the given state manager.
func NewNode(manager *state.Manager, opts ...Option) *Node {
	node := &Node{
		state:    manager,
		engine:   lending.NewEngine(VaultAccount, lending.DefaultParams()),
		recorder: events.NewRecorder(0),
		logger:   slog.Default(),
	}
	node.engine.SetClock(systemClock{})
	node.emitter = node.recorder
	for _, opt := range opts {
		opt(node)
	}
	return node
}

// Events exposes the bounded audit journal.
func (n *Node) Events() *events.Recorder { return n.recorder }

// withEngine binds the engine to a transaction and runs fn. Mutating callers
// hold the node lock and supply an emitter; views pass nil to discard events.
func (n *Node) withEngine(txn *state.Txn, emitter events.Emitter, fn func(*lending.Engine) error) error {
	params, ok, err := txn.LendingGetParams()
	if err != nil {
		return err
	}
	if !ok {
		params = lending.DefaultParams()
	}
	n.engine.SetState(&engineState{txn: txn})
	n.engine.SetTransfer(&stateTransfer{txn: txn})
	n.engine.SetParams(params)
	n.engine.SetEmitter(emitter)
	defer func() {
		n.engine.SetState(nil)
		n.engine.SetTransfer(nil)
		n.engine.SetEmitter(nil)
	}()
	return fn(n.engine)
}

// lockLedger acquires the node lock. A flash-credit handler already holds the
// open transaction, so a nested call from one is rejected instead of queued.
func (n *Node) lockLedger() error {
	if n.inCallback.Load() {
		return lending.ErrReentrancy
	}
	n.mu.Lock()
	return nil
}

func (n *Node) update(op string, fn func(*lending.Engine) error) error {
	if err := n.lockLedger(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	// Events raised inside the transaction stay buffered until the batch
	// commits; a failed commit must not leave phantom audit records.
	buffer := new(events.Buffer)
	err := n.state.Update(func(txn *state.Txn) error {
		return n.withEngine(txn, buffer, fn)
	})
	if err != nil {
		n.logger.Warn("lending operation rejected", "op", op, "err", err)
		return err
	}
	buffer.FlushTo(n.emitter)
	return nil
}

func (n *Node) view(fn func(*lending.Engine) error) error {
	if err := n.lockLedger(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.state.View(func(txn *state.Txn) error {
		return n.withEngine(txn, nil, fn)
	})
}

// Deposit locks collateral for the account.
func (n *Node) Deposit(account, asset string, amount *big.Int) error {
	return n.update("deposit", func(e *lending.Engine) error {
		return e.Deposit(account, asset, amount)
	})
}

// Withdraw releases collateral back to the account.
func (n *Node) Withdraw(account, asset string, amount *big.Int) error {
	return n.update("withdraw", func(e *lending.Engine) error {
		return e.Withdraw(account, asset, amount)
	})
}

// Borrow draws principal against the account's collateral.
func (n *Node) Borrow(account, asset string, amount *big.Int) error {
	return n.update("borrow", func(e *lending.Engine) error {
		return e.Borrow(account, asset, amount)
	})
}

// Repay settles outstanding debt, interest first.
func (n *Node) Repay(account, asset string, amount *big.Int) error {
	return n.update("repay", func(e *lending.Engine) error {
		return e.Repay(account, asset, amount)
	})
}

// Liquidate seizes an unhealthy position on behalf of the liquidator.
func (n *Node) Liquidate(liquidator, account, asset string) error {
	return n.update("liquidate", func(e *lending.Engine) error {
		return e.Liquidate(liquidator, account, asset)
	})
}

// FlashBorrow grants an uncollateralized single-transaction loan. When the
// handler fails to return the amount plus fee, the transaction overlay is
// discarded and no effect persists, including the outbound transfer.
func (n *Node) FlashBorrow(account, asset string, amount *big.Int, handler lending.FlashHandler, data []byte) error {
	var guarded lending.FlashHandler
	if handler != nil {
		guarded = lending.FlashHandlerFunc(func(credit *lending.FlashCredit) error {
			n.inCallback.Store(true)
			defer n.inCallback.Store(false)
			return handler.OnFlashCredit(credit)
		})
	}
	return n.update("flashBorrow", func(e *lending.Engine) error {
		return e.FlashBorrow(account, asset, amount, guarded, data)
	})
}

// GetPosition returns the position with interest projected to now.
func (n *Node) GetPosition(account, asset string) (*lending.Position, error) {
	var position *lending.Position
	err := n.view(func(e *lending.Engine) error {
		var inner error
		position, inner = e.GetPosition(account, asset)
		return inner
	})
	return position, err
}

// GetAssetLiquidity returns the aggregate totals for an asset.
func (n *Node) GetAssetLiquidity(asset string) (*lending.AssetLiquidity, error) {
	var liquidity *lending.AssetLiquidity
	err := n.view(func(e *lending.Engine) error {
		var inner error
		liquidity, inner = e.GetAssetLiquidity(asset)
		return inner
	})
	return liquidity, err
}

// AvailableToBorrow returns the account's remaining borrow headroom.
func (n *Node) AvailableToBorrow(account, asset string) (*big.Int, error) {
	var available *big.Int
	err := n.view(func(e *lending.Engine) error {
		var inner error
		available, inner = e.AvailableToBorrow(account, asset)
		return inner
	})
	return available, err
}

// LiquidationInfo quotes the liquidation state of a position.
func (n *Node) LiquidationInfo(account, asset string) (*lending.LiquidationInfo, error) {
	var info *lending.LiquidationInfo
	err := n.view(func(e *lending.Engine) error {
		var inner error
		info, inner = e.LiquidationInfo(account, asset)
		return inner
	})
	return info, err
}

// Params returns the currently effective protocol parameters.
func (n *Node) Params() (lending.ProtocolParams, error) {
	params := lending.DefaultParams()
	err := n.state.View(func(txn *state.Txn) error {
		stored, ok, err := txn.LendingGetParams()
		if err != nil {
			return err
		}
		if ok {
			params = stored
		}
		return nil
	})
	return params, err
}

// BalanceOf returns the asset balance held by an account.
func (n *Node) BalanceOf(asset, account string) (*big.Int, error) {
	var balance *big.Int
	err := n.state.View(func(txn *state.Txn) error {
		var inner error
		balance, inner = txn.BalanceOf(asset, account)
		return inner
	})
	return balance, err
}

// SupportedAssets lists the assets eligible for ledger operations.
func (n *Node) SupportedAssets() ([]string, error) {
	var assets []string
	err := n.state.View(func(txn *state.Txn) error {
		var inner error
		assets, inner = txn.LendingSupportedAssets()
		return inner
	})
	return assets, err
}

func (n *Node) authorize(principal string) error {
	if n.auth == nil || !n.auth.IsAuthorized(principal) {
		return lending.ErrUnauthorized
	}
	return nil
}

// SetParams replaces the protocol parameters. The ordering invariants are
// enforced here, at mutation time.
func (n *Node) SetParams(principal string, params lending.ProtocolParams) error {
	if err := n.authorize(principal); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if err := n.lockLedger(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	err := n.state.Update(func(txn *state.Txn) error {
		return txn.LendingPutParams(params)
	})
	if err != nil {
		return err
	}
	n.emitter.Emit(events.ParamsUpdated{
		Principal:               principal,
		InterestRateBps:         params.InterestRateBps,
		CollateralRatioBps:      params.CollateralRatioBps,
		LiquidationThresholdBps: params.LiquidationThresholdBps,
		LiquidationBonusBps:     params.LiquidationBonusBps,
		Paused:                  params.Paused,
	})
	return nil
}

// InitParams installs parameters on a fresh ledger. A populated parameter
// store wins and the call becomes a no-op, so restarting a configured daemon
// never clobbers governance changes.
func (n *Node) InitParams(params lending.ProtocolParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := n.lockLedger(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.state.Update(func(txn *state.Txn) error {
		_, ok, err := txn.LendingGetParams()
		if err != nil || ok {
			return err
		}
		return txn.LendingPutParams(params)
	})
}

// SetPaused toggles the protocol-wide pause flag.
func (n *Node) SetPaused(principal string, paused bool) error {
	if err := n.authorize(principal); err != nil {
		return err
	}
	if err := n.lockLedger(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	return n.state.Update(func(txn *state.Txn) error {
		params, ok, err := txn.LendingGetParams()
		if err != nil {
			return err
		}
		if !ok {
			params = lending.DefaultParams()
		}
		params.Paused = paused
		return txn.LendingPutParams(params)
	})
}

// AddSupportedAsset lists a new asset for deposit and borrow.
func (n *Node) AddSupportedAsset(principal, asset string) error {
	if err := n.authorize(principal); err != nil {
		return err
	}
	if err := n.lockLedger(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	err := n.state.Update(func(txn *state.Txn) error {
		return txn.LendingAddSupportedAsset(asset)
	})
	if err != nil {
		return err
	}
	n.emitter.Emit(events.AssetListed{Principal: principal, Asset: asset})
	return nil
}

// FundAccount credits an account balance. This administrative surface exists
// for seeding and operations tooling; custody of real value is external.
func (n *Node) FundAccount(principal, account, asset string, amount *big.Int) error {
	if err := n.authorize(principal); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return lending.ErrInvalidAmount
	}
	if err := n.lockLedger(); err != nil {
		return err
	}
	defer n.mu.Unlock()
	err := n.state.Update(func(txn *state.Txn) error {
		balance, err := txn.BalanceOf(asset, account)
		if err != nil {
			return err
		}
		return txn.SetBalance(asset, account, new(big.Int).Add(balance, amount))
	})
	if err != nil {
		return err
	}
	n.emitter.Emit(events.AccountFunded{Principal: principal, Account: account, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// Close releases the node's state backend.
func (n *Node) Close() error {
	if n == nil || n.state == nil {
		return nil
	}
	if err := n.state.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	return nil
}
