package lending

import (
	"math/big"

	"lendledger/core/events"
)

// flashFeeBps is the flat fee charged on flash credits: 9 basis points.
const flashFeeBps = 9

// FlashHandler is the caller-supplied callback invoked synchronously inside
// the flash transaction. The handler must return the borrowed amount plus the
// fee to the vault (via FlashCredit.Repay or any other credit to the vault)
// before returning, otherwise the whole transaction is rolled back.
type FlashHandler interface {
	OnFlashCredit(credit *FlashCredit) error
}

// FlashHandlerFunc adapts a function to the FlashHandler interface.
type FlashHandlerFunc func(credit *FlashCredit) error

// OnFlashCredit implements the FlashHandler interface.
func (f FlashHandlerFunc) OnFlashCredit(credit *FlashCredit) error { return f(credit) }

// FlashCredit describes an in-flight flash loan. Repay is the only mutating
// re-entry permitted while the ledger lock is held.
type FlashCredit struct {
	Asset  string
	Amount *big.Int
	Fee    *big.Int
	Data   []byte

	repay func(amount *big.Int) error
}

// Repay moves amount from the borrowing account back into the vault.
func (c *FlashCredit) Repay(amount *big.Int) error {
	if c == nil || c.repay == nil {
		return ErrNilTransfer
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return c.repay(amount)
}

// FlashFee returns the fee charged for flash-borrowing the given amount:
// floor(amount * 9 / 10000).
func FlashFee(amount *big.Int) *big.Int {
	return bpsMul(amount, flashFeeBps)
}

// FlashBorrow grants an uncollateralized single-transaction loan. The amount
// is pushed to the account, the handler runs, and the vault balance must have
// grown by at least the fee relative to the pre-call balance. No position or
// interest bookkeeping is touched; on failure the caller's enclosing
// transaction must discard every effect including the outbound transfer.
func (e *Engine) FlashBorrow(account, asset string, amount *big.Int, handler FlashHandler, data []byte) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()
	if err := e.guardMutation(asset, amount); err != nil {
		return err
	}
	if handler == nil {
		return ErrFlashCreditUnrepaid
	}

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

	initialBalance, err := e.transfer.BalanceOf(asset, e.vaultAccount)
	if err != nil {
		return err
	}
	fee := FlashFee(amount)

	if err := e.transfer.Push(asset, account, amount); err != nil {
		return err
	}

	credit := &FlashCredit{
		Asset:  asset,
		Amount: new(big.Int).Set(amount),
		Fee:    fee,
		Data:   data,
		repay: func(repayment *big.Int) error {
			return e.transfer.Pull(asset, account, repayment)
		},
	}
	if err := handler.OnFlashCredit(credit); err != nil {
		return err
	}

	finalBalance, err := e.transfer.BalanceOf(asset, e.vaultAccount)
	if err != nil {
		return err
	}
	owed := new(big.Int).Add(initialBalance, fee)
	if finalBalance.Cmp(owed) < 0 {
		return ErrFlashCreditUnrepaid
	}

	e.emitter.Emit(events.FlashCredit{Account: account, Asset: asset, Amount: new(big.Int).Set(amount), Fee: fee})
	return nil
}
