package chain

import (
	"context"
	"errors"
	"math/big"
)

var (
	ErrABCIQuery     = errors.New("abci query failed")
	ErrMalformedResp = errors.New("malformed response")
)

// Client is the read-only view of the chain used by the contract derivations.
type Client interface {
	// Height returns the latest block height known to the node.
	Height(ctx context.Context) (int64, error)
	// Balance returns the bank balance of address in denom, in the smallest unit.
	Balance(ctx context.Context, address, denom string) (*big.Int, error)
	// QueryContractSmart runs a CosmWasm smart query and decodes the JSON
	// response into out.
	QueryContractSmart(ctx context.Context, contract string, query interface{}, out interface{}) error
	Close()
}
