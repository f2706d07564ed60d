package wallet

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// MsgExecuteContractTypeURL is the Any type URL of a CosmWasm execute message.
const MsgExecuteContractTypeURL = "/cosmwasm.wasm.v1.MsgExecuteContract"

var gasPriceRe = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)([a-zA-Z][a-zA-Z0-9/:._-]{2,127})$`)

type GasPrice struct {
	Amount *big.Rat
	Denom  string
}

// ParseGasPrice parses strings such as "0.0025ujuno".
func ParseGasPrice(s string) (GasPrice, error) {
	m := gasPriceRe.FindStringSubmatch(s)
	if m == nil {
		return GasPrice{}, fmt.Errorf("invalid gas price %q", s)
	}
	amount, ok := new(big.Rat).SetString(m[1])
	if !ok {
		return GasPrice{}, fmt.Errorf("invalid gas price amount %q", m[1])
	}
	return GasPrice{Amount: amount, Denom: m[2]}, nil
}

func (g GasPrice) String() string {
	if g.Amount == nil {
		return ""
	}
	return exactDecimal(g.Amount) + g.Denom
}

// exactDecimal renders a terminating rational without rounding or
// trailing zeros.
func exactDecimal(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	prec := 0
	for d := new(big.Int).Set(r.Denom()); prec < 64; prec++ {
		if d.Cmp(big.NewInt(1)) == 0 {
			break
		}
		switch {
		case new(big.Int).Mod(d, big.NewInt(10)).Sign() == 0:
			d.Quo(d, big.NewInt(10))
		case new(big.Int).Mod(d, big.NewInt(2)).Sign() == 0:
			d.Quo(d, big.NewInt(2))
		case new(big.Int).Mod(d, big.NewInt(5)).Sign() == 0:
			d.Quo(d, big.NewInt(5))
		default:
			prec = 64
		}
	}
	s := r.FloatString(prec)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// Coin is an amount of a denom in the smallest unit.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// SigningClient is the signing handle exposed by a connected wallet.
type SigningClient struct {
	account  *Account
	chainID  string
	gasPrice GasPrice
}

func NewSigningClient(account *Account, chainID string, gasPrice GasPrice) *SigningClient {
	return &SigningClient{account: account, chainID: chainID, gasPrice: gasPrice}
}

func (c *SigningClient) Address() string {
	return c.account.Address
}

func (c *SigningClient) PubKey() []byte {
	return c.account.PubKey
}

func (c *SigningClient) ChainID() string {
	return c.chainID
}

func (c *SigningClient) GasPrice() GasPrice {
	return c.gasPrice
}

func (c *SigningClient) Sign(signBytes []byte) ([]byte, error) {
	return c.account.Sign(signBytes)
}

// ExecuteContractMsg encodes a MsgExecuteContract from this wallet as a
// protobuf Any, ready to be placed in a transaction body.
func (c *SigningClient) ExecuteContractMsg(contract string, msg interface{}, funds []Coin) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execute msg: %w", err)
	}

	// MsgExecuteContract{sender = 1, contract = 2, msg = 3, funds = 5}
	var inner []byte
	inner = protowire.AppendTag(inner, 1, protowire.BytesType)
	inner = protowire.AppendString(inner, c.account.Address)
	inner = protowire.AppendTag(inner, 2, protowire.BytesType)
	inner = protowire.AppendString(inner, contract)
	inner = protowire.AppendTag(inner, 3, protowire.BytesType)
	inner = protowire.AppendBytes(inner, raw)
	for _, coin := range funds {
		var cb []byte
		cb = protowire.AppendTag(cb, 1, protowire.BytesType)
		cb = protowire.AppendString(cb, coin.Denom)
		cb = protowire.AppendTag(cb, 2, protowire.BytesType)
		cb = protowire.AppendString(cb, coin.Amount)
		inner = protowire.AppendTag(inner, 5, protowire.BytesType)
		inner = protowire.AppendBytes(inner, cb)
	}

	// Any{type_url = 1, value = 2}
	var wrapped []byte
	wrapped = protowire.AppendTag(wrapped, 1, protowire.BytesType)
	wrapped = protowire.AppendString(wrapped, MsgExecuteContractTypeURL)
	wrapped = protowire.AppendTag(wrapped, 2, protowire.BytesType)
	wrapped = protowire.AppendBytes(wrapped, inner)
	return wrapped, nil
}
