package state

import (
	"fmt"
	"math/big"
	"testing"

	"lendledger/native/lending"
	"lendledger/storage"
)

func newTestManager() *Manager {
	return NewManager(storage.NewMemDB())
}

func TestPositionRoundTrip(t *testing.T) {
	manager := newTestManager()
	stored := &lending.Position{
		CollateralAmount: big.NewInt(1_500),
		BorrowedAmount:   big.NewInt(1_000),
		InterestAccrued:  big.NewInt(50),
		LastAccrualTime:  123_456,
	}
	err := manager.Update(func(txn *Txn) error {
		return txn.LendingPutPosition("stable", "alice", stored)
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	err = manager.View(func(txn *Txn) error {
		loaded, err := txn.LendingGetPosition("stable", "alice")
		if err != nil {
			return err
		}
		if loaded == nil {
			t.Fatal("position missing after commit")
		}
		if loaded.CollateralAmount.Cmp(stored.CollateralAmount) != 0 ||
			loaded.BorrowedAmount.Cmp(stored.BorrowedAmount) != 0 ||
			loaded.InterestAccrued.Cmp(stored.InterestAccrued) != 0 ||
			loaded.LastAccrualTime != stored.LastAccrualTime {
			t.Fatalf("loaded %+v differs from stored %+v", loaded, stored)
		}
		// A different account under the same asset is a separate record.
		other, err := txn.LendingGetPosition("stable", "bob")
		if err != nil {
			return err
		}
		if other != nil {
			t.Fatalf("unexpected position for bob: %+v", other)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	manager := newTestManager()
	err := manager.View(func(txn *Txn) error {
		_, ok, err := txn.LendingGetParams()
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("fresh store reports params present")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	stored := lending.ProtocolParams{
		InterestRateBps:         750,
		CollateralRatioBps:      16_000,
		LiquidationThresholdBps: 13_000,
		LiquidationBonusBps:     11_000,
		Paused:                  true,
	}
	err = manager.Update(func(txn *Txn) error {
		return txn.LendingPutParams(stored)
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	err = manager.View(func(txn *Txn) error {
		loaded, ok, err := txn.LendingGetParams()
		if err != nil {
			return err
		}
		if !ok || loaded != stored {
			t.Fatalf("loaded %+v, want %+v", loaded, stored)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestSupportedAssetsSortedAndDeduplicated(t *testing.T) {
	manager := newTestManager()
	err := manager.Update(func(txn *Txn) error {
		for _, asset := range []string{"zeta", "alpha", "zeta", "mid"} {
			if err := txn.LendingAddSupportedAsset(asset); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	err = manager.View(func(txn *Txn) error {
		assets, err := txn.LendingSupportedAssets()
		if err != nil {
			return err
		}
		want := []string{"alpha", "mid", "zeta"}
		if len(assets) != len(want) {
			t.Fatalf("assets = %v, want %v", assets, want)
		}
		for i := range want {
			if assets[i] != want[i] {
				t.Fatalf("assets = %v, want %v", assets, want)
			}
		}
		supported, err := txn.LendingIsAssetSupported("mid")
		if err != nil {
			return err
		}
		if !supported {
			t.Fatal("mid not reported as supported")
		}
		supported, err = txn.LendingIsAssetSupported("nope")
		if err != nil {
			return err
		}
		if supported {
			t.Fatal("unlisted asset reported as supported")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestBalanceRejectsNegative(t *testing.T) {
	manager := newTestManager()
	err := manager.Update(func(txn *Txn) error {
		return txn.SetBalance("stable", "alice", big.NewInt(-1))
	})
	if err == nil {
		t.Fatal("negative balance accepted")
	}
}

func TestUpdateDiscardsOverlayOnError(t *testing.T) {
	manager := newTestManager()
	err := manager.Update(func(txn *Txn) error {
		return txn.SetBalance("stable", "alice", big.NewInt(100))
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	failure := fmt.Errorf("deliberate failure")
	err = manager.Update(func(txn *Txn) error {
		if err := txn.SetBalance("stable", "alice", big.NewInt(999)); err != nil {
			return err
		}
		if err := txn.LendingAddSupportedAsset("stable"); err != nil {
			return err
		}
		// The overlay already sees the uncommitted write.
		balance, err := txn.BalanceOf("stable", "alice")
		if err != nil {
			return err
		}
		if balance.Cmp(big.NewInt(999)) != 0 {
			t.Fatalf("overlay balance = %s, want 999", balance)
		}
		return failure
	})
	if err != failure {
		t.Fatalf("update error = %v, want the handler's error", err)
	}

	err = manager.View(func(txn *Txn) error {
		balance, err := txn.BalanceOf("stable", "alice")
		if err != nil {
			return err
		}
		if balance.Cmp(big.NewInt(100)) != 0 {
			t.Fatalf("balance = %s, want 100 after rollback", balance)
		}
		assets, err := txn.LendingSupportedAssets()
		if err != nil {
			return err
		}
		if len(assets) != 0 {
			t.Fatalf("assets = %v, want none after rollback", assets)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestViewWritesAreDiscarded(t *testing.T) {
	manager := newTestManager()
	err := manager.View(func(txn *Txn) error {
		return txn.SetBalance("stable", "alice", big.NewInt(42))
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	err = manager.View(func(txn *Txn) error {
		balance, err := txn.BalanceOf("stable", "alice")
		if err != nil {
			return err
		}
		if balance.Sign() != 0 {
			t.Fatalf("balance = %s, want 0", balance)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
