package chain

import (
	"fmt"
	"math/big"

	"google.golang.org/protobuf/encoding/protowire"
)

// gRPC query routes served over abci_query.
const (
	balanceQueryPath = "/cosmos.bank.v1beta1.Query/Balance"
	smartQueryPath   = "/cosmwasm.wasm.v1.Query/SmartContractState"
)

// QueryBalanceRequest{address = 1, denom = 2}
func encodeBalanceRequest(address, denom string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, address)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, denom)
	return b
}

// QueryBalanceResponse{balance Coin = 1}, Coin{denom = 1, amount = 2}.
// A missing coin means a zero balance.
func decodeBalanceResponse(b []byte) (string, *big.Int, error) {
	var (
		denom  string
		amount = new(big.Int)
	)
	err := walkBytesFields(b, func(num protowire.Number, v []byte) error {
		if num != 1 {
			return nil
		}
		return walkBytesFields(v, func(num protowire.Number, v []byte) error {
			switch num {
			case 1:
				denom = string(v)
			case 2:
				if _, ok := amount.SetString(string(v), 10); !ok {
					return fmt.Errorf("%w: coin amount %q", ErrMalformedResp, v)
				}
			}
			return nil
		})
	})
	if err != nil {
		return "", nil, err
	}
	return denom, amount, nil
}

// QuerySmartContractStateRequest{address = 1, query_data = 2}
func encodeSmartQueryRequest(contract string, query []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, contract)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, query)
	return b
}

// QuerySmartContractStateResponse{data = 1}
func decodeSmartQueryResponse(b []byte) ([]byte, error) {
	var data []byte
	err := walkBytesFields(b, func(num protowire.Number, v []byte) error {
		if num == 1 {
			data = v
		}
		return nil
	})
	return data, err
}

// walkBytesFields calls fn for every length-delimited field and skips the rest.
func walkBytesFields(b []byte, fn func(num protowire.Number, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedResp, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return fmt.Errorf("%w: %v", ErrMalformedResp, protowire.ParseError(m))
			}
			b = b[m:]
			continue
		}

		v, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedResp, protowire.ParseError(m))
		}
		if err := fn(num, v); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}
