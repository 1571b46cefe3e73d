package liquify

import (
	"math/big"
)

var (
	feeNumerator   = big.NewInt(997)
	feeDenominator = big.NewInt(1000)
	maxUint64      = new(big.Int).SetUint64(^uint64(0))
)

// toUint64 narrows a non-negative big value to the native width, truncating
// high bits the way the original narrows its 128-bit intermediates.
func toUint64(v *big.Int) uint64 {
	return new(big.Int).And(v, maxUint64).Uint64()
}

// integerSqrt computes floor(sqrt(n)) by Newton's method. sqrt(0) = 0.
func integerSqrt(n *big.Int) *big.Int {
	if n.Sign() == 0 {
		return new(big.Int)
	}
	one := big.NewInt(1)
	two := big.NewInt(2)
	x := new(big.Int).Set(n)
	// y = (x + 1) / 2
	y := new(big.Int).Div(new(big.Int).Add(x, one), two)
	for y.Cmp(x) < 0 {
		x.Set(y)
		// y = (x + n/x) / 2
		y = new(big.Int).Div(new(big.Int).Add(x, new(big.Int).Div(n, x)), two)
	}
	return x
}

// swapOutput prices a swap on the constant-product curve with the 0.3% fee
// taken on the input side:
//
//	out = reserveOut * (in*997) / (reserveIn*1000 + in*997)
//
// The fee stays in the reserves; there is no separate fee account.
func swapOutput(amountIn uint64, reserveIn uint64, reserveOut uint64) (uint64, error) {
	amountInWithFee := new(big.Int).Mul(new(big.Int).SetUint64(amountIn), feeNumerator)
	numerator := new(big.Int).Mul(new(big.Int).SetUint64(reserveOut), amountInWithFee)
	denominator := new(big.Int).Add(
		new(big.Int).Mul(new(big.Int).SetUint64(reserveIn), feeDenominator),
		amountInWithFee,
	)
	if denominator.Sign() == 0 {
		return 0, ErrArithmetic
	}
	return toUint64(new(big.Int).Div(numerator, denominator)), nil
}

// depositMint prices a deposit in claim tokens. The first deposit mints the
// geometric mean of the two amounts; every later deposit is priced strictly
// off the asset-A ratio and ignores amountB.
func depositMint(amountA uint64, amountB uint64, supply uint64, reserveA uint64) (uint64, error) {
	if supply == 0 {
		product := new(big.Int).Mul(new(big.Int).SetUint64(amountA), new(big.Int).SetUint64(amountB))
		return toUint64(integerSqrt(product)), nil
	}
	if reserveA == 0 {
		return 0, ErrArithmetic
	}
	share := new(big.Int).Div(
		new(big.Int).Mul(new(big.Int).SetUint64(amountA), new(big.Int).SetUint64(supply)),
		new(big.Int).SetUint64(reserveA),
	)
	return toUint64(share), nil
}

// withdrawAmounts prices a redemption: each side pays out the claim's
// proportional share of the reserve, floored.
func withdrawAmounts(lpAmount uint64, reserveA uint64, reserveB uint64, supply uint64) (uint64, uint64, error) {
	if supply == 0 {
		return 0, 0, ErrArithmetic
	}
	lp := new(big.Int).SetUint64(lpAmount)
	total := new(big.Int).SetUint64(supply)
	amountA := new(big.Int).Div(new(big.Int).Mul(lp, new(big.Int).SetUint64(reserveA)), total)
	amountB := new(big.Int).Div(new(big.Int).Mul(lp, new(big.Int).SetUint64(reserveB)), total)
	return toUint64(amountA), toUint64(amountB), nil
}
