package lending

import "math/big"

// Settle folds the simple interest accrued since the position's last
// checkpoint into InterestAccrued and advances the checkpoint to now. It must
// be called, and its result committed, before any read or mutation that
// depends on the position's debt.
//
// The accrual formula truncates toward zero:
//
//	interest = floor(borrowed * rateBps * elapsed / (secondsPerYear * 10000))
//
// Calling Settle twice at the same timestamp is a no-op on the second call.
func Settle(p *Position, now uint64, rateBps uint64) {
	if p == nil {
		return
	}
	p.EnsureDefaults()
	if p.BorrowedAmount.Sign() == 0 || p.LastAccrualTime == 0 {
		p.LastAccrualTime = now
		return
	}
	if now <= p.LastAccrualTime {
		return
	}
	interest := accrue(p.BorrowedAmount, rateBps, now-p.LastAccrualTime)
	if interest.Sign() > 0 {
		p.InterestAccrued = new(big.Int).Add(p.InterestAccrued, interest)
	}
	p.LastAccrualTime = now
}

// AccruedSince computes the interest Settle would add at the given timestamp
// without mutating the position. Used for quote-style queries.
func AccruedSince(p *Position, now uint64, rateBps uint64) *big.Int {
	if p == nil || p.BorrowedAmount == nil || p.BorrowedAmount.Sign() == 0 {
		return big.NewInt(0)
	}
	if p.LastAccrualTime == 0 || now <= p.LastAccrualTime {
		return big.NewInt(0)
	}
	return accrue(p.BorrowedAmount, rateBps, now-p.LastAccrualTime)
}

// ProjectedDebt returns the position's total debt including unsettled interest
// at the given timestamp.
func ProjectedDebt(p *Position, now uint64, rateBps uint64) *big.Int {
	debt := p.TotalDebt()
	return debt.Add(debt, AccruedSince(p, now, rateBps))
}

func accrue(principal *big.Int, rateBps uint64, elapsed uint64) *big.Int {
	if principal == nil || principal.Sign() == 0 || rateBps == 0 || elapsed == 0 {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(principal, new(big.Int).SetUint64(rateBps))
	interest.Mul(interest, new(big.Int).SetUint64(elapsed))
	divisor := new(big.Int).Mul(big.NewInt(secondsPerYear), basisPoints)
	return interest.Quo(interest, divisor)
}
