package core

import (
	"math/big"

	"lendledger/core/state"
	"lendledger/native/lending"
)

// engineState adapts a state transaction to the engine's persistence surface.
type engineState struct {
	txn *state.Txn
}

func (s *engineState) GetPosition(asset, account string) (*lending.Position, error) {
	return s.txn.LendingGetPosition(asset, account)
}

func (s *engineState) PutPosition(asset, account string, position *lending.Position) error {
	return s.txn.LendingPutPosition(asset, account, position)
}

func (s *engineState) GetLiquidity(asset string) (*lending.AssetLiquidity, error) {
	return s.txn.LendingGetLiquidity(asset)
}

func (s *engineState) PutLiquidity(asset string, liquidity *lending.AssetLiquidity) error {
	return s.txn.LendingPutLiquidity(asset, liquidity)
}

func (s *engineState) IsAssetSupported(asset string) (bool, error) {
	return s.txn.LendingIsAssetSupported(asset)
}

// stateTransfer implements the asset transfer collaborator against the same
// transaction the engine mutates, so transfer effects commit and roll back
// together with the bookkeeping they belong to.
type stateTransfer struct {
	txn *state.Txn
}

func (t *stateTransfer) move(asset, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return lending.ErrInvalidAmount
	}
	source, err := t.txn.BalanceOf(asset, from)
	if err != nil {
		return err
	}
	if source.Cmp(amount) < 0 {
		return lending.ErrInsufficientBalance
	}
	destination, err := t.txn.BalanceOf(asset, to)
	if err != nil {
		return err
	}
	if err := t.txn.SetBalance(asset, from, new(big.Int).Sub(source, amount)); err != nil {
		return err
	}
	return t.txn.SetBalance(asset, to, new(big.Int).Add(destination, amount))
}

func (t *stateTransfer) Pull(asset, from string, amount *big.Int) error {
	return t.move(asset, from, VaultAccount, amount)
}

func (t *stateTransfer) Push(asset, to string, amount *big.Int) error {
	return t.move(asset, VaultAccount, to, amount)
}

func (t *stateTransfer) BalanceOf(asset, account string) (*big.Int, error) {
	return t.txn.BalanceOf(asset, account)
}
