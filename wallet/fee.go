package wallet

import "math/big"

const (
	// baseExecuteGas covers signature verification and a contract call
	// that touches a handful of storage entries.
	baseExecuteGas = uint64(150_000)
	gasPerFund     = uint64(25_000)
)

// gasAdjustment is applied to simulated gas before signing.
var gasAdjustment = big.NewRat(13, 10)

// EstimateExecuteGas estimates the gas limit of a MsgExecuteContract that
// sends numFunds coins along with the call.
func EstimateExecuteGas(numFunds int) uint64 {
	if numFunds < 0 {
		numFunds = 0
	}
	return baseExecuteGas + gasPerFund*uint64(numFunds)
}

// AdjustGas scales a simulated gas amount by 1.3, rounding up.
func AdjustGas(simulated uint64) uint64 {
	adjusted := new(big.Rat).Mul(new(big.Rat).SetUint64(simulated), gasAdjustment)
	return ceil(adjusted).Uint64()
}

// CalculateFee is the fee paid for gasLimit at price, rounded up to the
// smallest unit.
func CalculateFee(gasLimit uint64, price GasPrice) Coin {
	if price.Amount == nil {
		return Coin{Denom: price.Denom, Amount: "0"}
	}
	total := new(big.Rat).Mul(new(big.Rat).SetUint64(gasLimit), price.Amount)
	return Coin{Denom: price.Denom, Amount: ceil(total).String()}
}

// EstimateFee is CalculateFee for an execute call at the client's gas price.
func (c *SigningClient) EstimateFee(numFunds int) (uint64, Coin) {
	gas := EstimateExecuteGas(numFunds)
	return gas, CalculateFee(gas, c.gasPrice)
}

func (c Coin) String() string {
	return c.Amount + c.Denom
}

func ceil(r *big.Rat) *big.Int {
	q, m := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
