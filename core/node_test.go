package core

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"lendledger/core/events"
	"lendledger/core/state"
	"lendledger/native/common"
	"lendledger/native/lending"
	"lendledger/storage"
)

const (
	govPrincipal = "ops@ledger"
	testAsset    = "stable"
	oneYear      = 31_536_000
)

type manualClock struct {
	now uint64
}

func (c *manualClock) Now() uint64 { return c.now }

func newTestNode(t *testing.T) (*Node, *manualClock) {
	t.Helper()
	clock := &manualClock{now: 1_700_000_000}
	node := NewNode(state.NewManager(storage.NewMemDB()),
		WithAuthorizer(lending.NewStaticAuthorizer(govPrincipal)),
		WithClock(clock),
	)
	require.NoError(t, node.AddSupportedAsset(govPrincipal, testAsset))
	require.NoError(t, node.FundAccount(govPrincipal, VaultAccount, testAsset, big.NewInt(100_000)))
	require.NoError(t, node.FundAccount(govPrincipal, "alice", testAsset, big.NewInt(10_000)))
	require.NoError(t, node.FundAccount(govPrincipal, "bob", testAsset, big.NewInt(10_000)))
	return node, clock
}

func balance(t *testing.T, node *Node, account string) *big.Int {
	t.Helper()
	got, err := node.BalanceOf(testAsset, account)
	require.NoError(t, err)
	return got
}

func totalSupply(t *testing.T, node *Node) *big.Int {
	t.Helper()
	total := new(big.Int)
	for _, account := range []string{VaultAccount, "alice", "bob"} {
		total.Add(total, balance(t, node, account))
	}
	return total
}

func TestNodeLendingLifecycle(t *testing.T) {
	node, clock := newTestNode(t)
	supplyBefore := totalSupply(t, node)

	require.NoError(t, node.Deposit("alice", testAsset, big.NewInt(1_500)))
	require.NoError(t, node.Borrow("alice", testAsset, big.NewInt(1_000)))

	clock.now += oneYear

	position, err := node.GetPosition("alice", testAsset)
	require.NoError(t, err)
	require.Equal(t, "1000", position.BorrowedAmount.String())
	require.Equal(t, "50", position.InterestAccrued.String())
	require.Equal(t, "1050", position.TotalDebt().String())

	// Overpay; only the outstanding 1050 is pulled.
	before := balance(t, node, "alice")
	require.NoError(t, node.Repay("alice", testAsset, big.NewInt(9_999)))
	paid := new(big.Int).Sub(before, balance(t, node, "alice"))
	require.Equal(t, "1050", paid.String())

	require.NoError(t, node.Withdraw("alice", testAsset, big.NewInt(1_500)))

	position, err = node.GetPosition("alice", testAsset)
	require.NoError(t, err)
	require.True(t, position.IsZero())

	liquidity, err := node.GetAssetLiquidity(testAsset)
	require.NoError(t, err)
	require.Zero(t, liquidity.TotalCollateral.Sign())
	require.Zero(t, liquidity.TotalBorrowed.Sign())

	// No value was created or destroyed across the whole lifecycle.
	require.Equal(t, supplyBefore.String(), totalSupply(t, node).String())
	// Alice is poorer by exactly the 50 of interest, which sits in the vault.
	require.Equal(t, "9950", balance(t, node, "alice").String())
}

func TestNodeRejectsUnknownAsset(t *testing.T) {
	node, _ := newTestNode(t)
	err := node.Deposit("alice", "unlisted", big.NewInt(100))
	require.ErrorIs(t, err, lending.ErrAssetNotSupported)
}

func TestNodeGovernanceGate(t *testing.T) {
	node, _ := newTestNode(t)

	err := node.SetParams("mallory", lending.DefaultParams())
	require.ErrorIs(t, err, lending.ErrUnauthorized)
	err = node.AddSupportedAsset("mallory", "other")
	require.ErrorIs(t, err, lending.ErrUnauthorized)
	err = node.FundAccount("mallory", "mallory", testAsset, big.NewInt(1))
	require.ErrorIs(t, err, lending.ErrUnauthorized)
	err = node.SetPaused("mallory", true)
	require.ErrorIs(t, err, lending.ErrUnauthorized)

	// Invalid parameter orderings are rejected at mutation time.
	bad := lending.DefaultParams()
	bad.LiquidationThresholdBps = bad.CollateralRatioBps
	require.Error(t, node.SetParams(govPrincipal, bad))

	updated := lending.DefaultParams()
	updated.InterestRateBps = 750
	require.NoError(t, node.SetParams(govPrincipal, updated))
	stored, err := node.Params()
	require.NoError(t, err)
	require.Equal(t, updated, stored)
}

func TestNodePauseFlag(t *testing.T) {
	node, _ := newTestNode(t)

	require.NoError(t, node.SetPaused(govPrincipal, true))
	err := node.Deposit("alice", testAsset, big.NewInt(100))
	require.ErrorIs(t, err, common.ErrModulePaused)

	// Reads remain available while paused.
	_, err = node.GetPosition("alice", testAsset)
	require.NoError(t, err)

	require.NoError(t, node.SetPaused(govPrincipal, false))
	require.NoError(t, node.Deposit("alice", testAsset, big.NewInt(100)))
}

func TestNodeFlashCreditRollsBackAtomically(t *testing.T) {
	node, _ := newTestNode(t)
	vaultBefore := balance(t, node, VaultAccount)
	aliceBefore := balance(t, node, "alice")

	// The handler keeps the principal. The borrowed amount was pushed to alice
	// inside the transaction, so the rollback must also take it back.
	err := node.FlashBorrow("alice", testAsset, big.NewInt(50_000),
		lending.FlashHandlerFunc(func(credit *lending.FlashCredit) error {
			return nil
		}), nil)
	require.ErrorIs(t, err, lending.ErrFlashCreditUnrepaid)

	require.Equal(t, vaultBefore.String(), balance(t, node, VaultAccount).String())
	require.Equal(t, aliceBefore.String(), balance(t, node, "alice").String())
}

func TestNodeFlashCallbackNestedCallRejected(t *testing.T) {
	node, _ := newTestNode(t)

	err := node.FlashBorrow("alice", testAsset, big.NewInt(10_000),
		lending.FlashHandlerFunc(func(credit *lending.FlashCredit) error {
			// The handler runs inside the open transaction. Calls back into the
			// node must fail fast instead of waiting on the ledger lock they
			// can never acquire.
			require.ErrorIs(t, node.Deposit("alice", testAsset, big.NewInt(1)), lending.ErrReentrancy)
			require.ErrorIs(t, node.SetPaused(govPrincipal, true), lending.ErrReentrancy)
			_, queryErr := node.GetPosition("alice", testAsset)
			require.ErrorIs(t, queryErr, lending.ErrReentrancy)
			return credit.Repay(new(big.Int).Add(credit.Amount, credit.Fee))
		}), nil)
	require.NoError(t, err)

	// The gate lifts once the callback returns.
	require.NoError(t, node.Deposit("alice", testAsset, big.NewInt(100)))
}

func TestNodeFlashCreditSettles(t *testing.T) {
	node, _ := newTestNode(t)
	vaultBefore := balance(t, node, VaultAccount)

	err := node.FlashBorrow("alice", testAsset, big.NewInt(50_000),
		lending.FlashHandlerFunc(func(credit *lending.FlashCredit) error {
			require.Equal(t, "45", credit.Fee.String())
			return credit.Repay(new(big.Int).Add(credit.Amount, credit.Fee))
		}), nil)
	require.NoError(t, err)

	vaultAfter := balance(t, node, VaultAccount)
	require.Equal(t, new(big.Int).Add(vaultBefore, big.NewInt(45)).String(), vaultAfter.String())
	require.Equal(t, "9955", balance(t, node, "alice").String())
}

func TestNodeLiquidationAfterAccrual(t *testing.T) {
	node, clock := newTestNode(t)

	require.NoError(t, node.Deposit("alice", testAsset, big.NewInt(1_500)))
	require.NoError(t, node.Borrow("alice", testAsset, big.NewInt(1_000)))

	info, err := node.LiquidationInfo("alice", testAsset)
	require.NoError(t, err)
	require.False(t, info.Liquidatable)
	require.NotZero(t, info.SecondsToEligibility)

	// One second before the predicted horizon the liquidation is rejected.
	clock.now += info.SecondsToEligibility - 1
	err = node.Liquidate("bob", "alice", testAsset)
	require.ErrorIs(t, err, lending.ErrNotLiquidatable)

	clock.now++
	require.ErrorIs(t, node.Liquidate("alice", "alice", testAsset), lending.ErrSelfLiquidation)
	require.NoError(t, node.Liquidate("bob", "alice", testAsset))

	position, err := node.GetPosition("alice", testAsset)
	require.NoError(t, err)
	require.True(t, position.IsZero())

	liquidity, err := node.GetAssetLiquidity(testAsset)
	require.NoError(t, err)
	require.Zero(t, liquidity.TotalCollateral.Sign())
	require.Zero(t, liquidity.TotalBorrowed.Sign())
}

func TestNodeEventJournal(t *testing.T) {
	node, _ := newTestNode(t)

	require.NoError(t, node.Deposit("alice", testAsset, big.NewInt(1_500)))
	require.NoError(t, node.Borrow("alice", testAsset, big.NewInt(500)))
	require.NoError(t, node.Repay("alice", testAsset, big.NewInt(500)))

	records := node.Events().Recent(3)
	require.Len(t, records, 3)
	require.Equal(t, events.TypeCollateralDeposited, records[0].Type)
	require.Equal(t, events.TypeLoanBorrowed, records[1].Type)
	require.Equal(t, events.TypeLoanRepaid, records[2].Type)
	require.Equal(t, "500", records[2].Attributes["principal"])
	require.Equal(t, "0", records[2].Attributes["interest"])
	for _, record := range records {
		require.NotEmpty(t, record.ID)
		require.Equal(t, testAsset, record.Attributes["asset"])
	}
}

func TestNodeRejectedOperationEmitsNoEvent(t *testing.T) {
	node, _ := newTestNode(t)
	journalBefore := len(node.Events().Recent(0))

	err := node.Borrow("alice", testAsset, big.NewInt(1_000))
	require.ErrorIs(t, err, lending.ErrSolvencyViolation)
	require.Len(t, node.Events().Recent(0), journalBefore)
}

// flakyDB wraps a working backend and fails batch commits on demand.
type flakyDB struct {
	storage.Database
	failCommits bool
}

var errDiskFull = errors.New("disk full")

func (db *flakyDB) WriteBatch(entries []storage.BatchEntry) error {
	if db.failCommits {
		return errDiskFull
	}
	return db.Database.WriteBatch(entries)
}

func TestNodeFailedCommitEmitsNoEvent(t *testing.T) {
	db := &flakyDB{Database: storage.NewMemDB()}
	node := NewNode(state.NewManager(db),
		WithAuthorizer(lending.NewStaticAuthorizer(govPrincipal)),
		WithClock(&manualClock{now: 1_700_000_000}),
	)
	require.NoError(t, node.AddSupportedAsset(govPrincipal, testAsset))
	require.NoError(t, node.FundAccount(govPrincipal, "alice", testAsset, big.NewInt(1_000)))
	journalBefore := len(node.Events().Recent(0))

	// The state mutation and its audit record must fail together.
	db.failCommits = true
	err := node.Deposit("alice", testAsset, big.NewInt(100))
	require.ErrorIs(t, err, errDiskFull)
	require.Len(t, node.Events().Recent(0), journalBefore)

	db.failCommits = false
	require.NoError(t, node.Deposit("alice", testAsset, big.NewInt(100)))
	require.Len(t, node.Events().Recent(0), journalBefore+1)
}

func TestNodeInitParams(t *testing.T) {
	node, _ := newTestNode(t)

	seeded := lending.DefaultParams()
	seeded.InterestRateBps = 900
	require.NoError(t, node.InitParams(seeded))
	stored, err := node.Params()
	require.NoError(t, err)
	require.Equal(t, seeded, stored)

	// A populated store wins over later init attempts.
	other := lending.DefaultParams()
	other.InterestRateBps = 100
	require.NoError(t, node.InitParams(other))
	stored, err = node.Params()
	require.NoError(t, err)
	require.Equal(t, seeded, stored)
}

func TestApplySeed(t *testing.T) {
	node := NewNode(state.NewManager(storage.NewMemDB()))
	seed := &Seed{
		Assets:   []string{"stable", "gold"},
		Balances: []SeedBalance{{Account: "alice", Asset: "stable", Amount: "250"}},
	}

	require.NoError(t, node.ApplySeed(seed))
	// Seeding twice is additive.
	require.NoError(t, node.ApplySeed(seed))

	assets, err := node.SupportedAssets()
	require.NoError(t, err)
	require.Equal(t, []string{"gold", "stable"}, assets)

	got, err := node.BalanceOf("stable", "alice")
	require.NoError(t, err)
	require.Equal(t, "500", got.String())
}
