package core

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"lendledger/core/state"
)

// Seed describes the genesis-style allocations applied when a fresh ledger
// boots: the supported asset list and initial account balances.
type Seed struct {
	Assets   []string      `yaml:"assets"`
	Balances []SeedBalance `yaml:"balances"`
}

// SeedBalance is one initial allocation. Amount is a decimal string in the
// asset's smallest unit.
type SeedBalance struct {
	Account string `yaml:"account"`
	Asset   string `yaml:"asset"`
	Amount  string `yaml:"amount"`
}

// LoadSeed parses a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	seed := new(Seed)
	if err := yaml.Unmarshal(raw, seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return seed, nil
}

// ApplySeed writes the seed allocations in one transaction. Balances are
// additive so re-seeding a populated ledger is an operator decision, not a
// silent overwrite.
func (n *Node) ApplySeed(seed *Seed) error {
	if seed == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.Update(func(txn *state.Txn) error {
		for _, asset := range seed.Assets {
			if err := txn.LendingAddSupportedAsset(asset); err != nil {
				return err
			}
		}
		for _, allocation := range seed.Balances {
			amount, ok := new(big.Int).SetString(allocation.Amount, 10)
			if !ok || amount.Sign() < 0 {
				return fmt.Errorf("seed: invalid amount %q for %s/%s", allocation.Amount, allocation.Asset, allocation.Account)
			}
			balance, err := txn.BalanceOf(allocation.Asset, allocation.Account)
			if err != nil {
				return err
			}
			if err := txn.SetBalance(allocation.Asset, allocation.Account, balance.Add(balance, amount)); err != nil {
				return err
			}
		}
		return nil
	})
}
