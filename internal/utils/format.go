package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// FloatToWei converts an amount in whole coins to Wei. decimal keeps 0.1 as 0.1,
// so it does not turn into 99999999999999999 wei.
func FloatToWei(amount float64) (*big.Int, error) {
	d := decimal.NewFromFloat(amount)
	if d.IsNegative() {
		return nil, fmt.Errorf("отрицательная сумма %v", amount)
	}
	return d.Shift(etherDecimals).Truncate(0).BigInt(), nil
}

// FromWei converts a *big.Int (Wei) to a decimal string (Ether).
func FromWei(weiAmount *big.Int) string {
	if weiAmount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(weiAmount, -etherDecimals).String()
}

// MulPercent returns v * percent / 100, rounding down.
func MulPercent(v *big.Int, percent int64) *big.Int {
	if v == nil {
		return nil
	}
	out := new(big.Int).Mul(v, big.NewInt(percent))
	return out.Div(out, big.NewInt(100))
}
