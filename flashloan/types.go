package flashloan

import (
	"errors"
	"math/big"

	"github.com/michaelpento.lv/cwflash/contract"
)

// WalletNotConnectedMessage is the toast shown when submitting without a wallet.
const WalletNotConnectedMessage = "Wallet not connected."

var (
	ErrValidation         = errors.New("loan form is invalid")
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrInProgress         = errors.New("loan submission already in progress")
	// ErrNotImplemented is returned by the default executor. The loan
	// transaction is not built yet.
	ErrNotImplemented = errors.New("TODO: Implement execute call")
)

// LoanRequest is a validated loan ready for execution.
type LoanRequest struct {
	Contract string
	Sender   string
	Receiver string
	// Amount is in the smallest unit of the loan denom.
	Amount *big.Int
}

// Msg is the contract ExecuteMsg for the request:
//
//	{"loan":{"receiver":"juno1...","amount":"1000000"}}
func (r LoanRequest) Msg() contract.ExecuteMsg {
	amount := "0"
	if r.Amount != nil {
		amount = r.Amount.String()
	}
	return contract.ExecuteMsg{Loan: &contract.LoanMsg{
		Receiver: r.Receiver,
		Amount:   amount,
	}}
}

// Result describes a broadcast loan transaction.
type Result struct {
	TxHash  string `json:"tx_hash"`
	Height  int64  `json:"height,omitempty"`
	GasUsed int64  `json:"gas_used,omitempty"`
}
