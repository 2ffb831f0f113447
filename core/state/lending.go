package state

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"lendledger/native/lending"
)

const (
	nsPosition  = "lending/position"
	nsLiquidity = "lending/liquidity"
	nsParams    = "lending/params"
	nsAssets    = "lending/assets"
	nsBalance   = "lending/balance"
)

// LendingGetPosition loads the position for an account and asset. A missing
// record returns nil without error: positions are created implicitly on first
// use.
func (t *Txn) LendingGetPosition(asset, account string) (*lending.Position, error) {
	position := new(lending.Position)
	ok, err := t.getRLP(storageKey(nsPosition, asset, account), position)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	position.EnsureDefaults()
	return position, nil
}

// LendingPutPosition stores the position for an account and asset.
func (t *Txn) LendingPutPosition(asset, account string, position *lending.Position) error {
	if position == nil {
		return fmt.Errorf("state: nil position")
	}
	position.EnsureDefaults()
	return t.putRLP(storageKey(nsPosition, asset, account), position)
}

// LendingGetLiquidity loads the aggregate liquidity record for an asset.
func (t *Txn) LendingGetLiquidity(asset string) (*lending.AssetLiquidity, error) {
	liquidity := new(lending.AssetLiquidity)
	ok, err := t.getRLP(storageKey(nsLiquidity, asset), liquidity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	liquidity.EnsureDefaults()
	return liquidity, nil
}

// LendingPutLiquidity stores the aggregate liquidity record for an asset.
func (t *Txn) LendingPutLiquidity(asset string, liquidity *lending.AssetLiquidity) error {
	if liquidity == nil {
		return fmt.Errorf("state: nil liquidity")
	}
	liquidity.EnsureDefaults()
	return t.putRLP(storageKey(nsLiquidity, asset), liquidity)
}

// LendingGetParams loads the governance parameters. The second return value
// reports whether the store has been initialised.
func (t *Txn) LendingGetParams() (lending.ProtocolParams, bool, error) {
	var params lending.ProtocolParams
	ok, err := t.getRLP(storageKey(nsParams), &params)
	if err != nil {
		return lending.ProtocolParams{}, false, err
	}
	return params, ok, nil
}

// LendingPutParams stores the governance parameters.
func (t *Txn) LendingPutParams(params lending.ProtocolParams) error {
	return t.putRLP(storageKey(nsParams), &params)
}

// LendingSupportedAssets returns the sorted list of supported asset
// identifiers.
func (t *Txn) LendingSupportedAssets() ([]string, error) {
	var assets []string
	if _, err := t.getRLP(storageKey(nsAssets), &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// LendingIsAssetSupported reports whether the asset is eligible for
// position-mutating operations.
func (t *Txn) LendingIsAssetSupported(asset string) (bool, error) {
	assets, err := t.LendingSupportedAssets()
	if err != nil {
		return false, err
	}
	for _, candidate := range assets {
		if candidate == asset {
			return true, nil
		}
	}
	return false, nil
}

// LendingAddSupportedAsset appends an asset to the supported set. Adding an
// already-listed asset is a no-op.
func (t *Txn) LendingAddSupportedAsset(asset string) error {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return fmt.Errorf("state: empty asset identifier")
	}
	assets, err := t.LendingSupportedAssets()
	if err != nil {
		return err
	}
	for _, candidate := range assets {
		if candidate == asset {
			return nil
		}
	}
	assets = append(assets, asset)
	sort.Strings(assets)
	return t.putRLP(storageKey(nsAssets), assets)
}

// BalanceOf returns the asset balance held by an account. Missing records
// read as zero.
func (t *Txn) BalanceOf(asset, account string) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := t.getRLP(storageKey(nsBalance, asset, account), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

// SetBalance overwrites the asset balance held by an account.
func (t *Txn) SetBalance(asset, account string, balance *big.Int) error {
	if balance == nil || balance.Sign() < 0 {
		return fmt.Errorf("state: negative balance for %s/%s", asset, account)
	}
	return t.putRLP(storageKey(nsBalance, asset, account), balance)
}
