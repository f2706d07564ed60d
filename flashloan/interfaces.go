package flashloan

import (
	"context"

	"github.com/michaelpento.lv/cwflash/wallet"
)

// Executor submits a loan transaction signed by client.
type Executor interface {
	ExecuteLoan(ctx context.Context, client *wallet.SigningClient, req LoanRequest) (*Result, error)
}

// Wallet is the part of the wallet manager needed to submit a loan.
type Wallet interface {
	SigningClient() *wallet.SigningClient
	Address() string
}

// UnimplementedExecutor always fails with ErrNotImplemented.
type UnimplementedExecutor struct{}

func (UnimplementedExecutor) ExecuteLoan(context.Context, *wallet.SigningClient, LoanRequest) (*Result, error) {
	return nil, ErrNotImplemented
}
