package lending

import "math/big"

var basisPoints = big.NewInt(10_000)

const secondsPerYear = 31_536_000

// bpsMul computes amount * bps / 10000 with floor division. Dust from the
// truncation is lost to the protocol, never minted.
func bpsMul(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() == 0 || bps == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return out.Quo(out, basisPoints)
}

// bpsDiv computes amount * 10000 / bps with floor division.
func bpsDiv(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() == 0 || bps == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, basisPoints)
	return out.Quo(out, new(big.Int).SetUint64(bps))
}

// ceilDiv computes ceil(a / b) for positive operands.
func ceilDiv(a, b *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 {
		return big.NewInt(0)
	}
	quo, rem := new(big.Int).QuoRem(a, b, new(big.Int))
	if rem.Sign() > 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
