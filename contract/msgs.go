package contract

// QueryMsg mirrors the flash loan contract's QueryMsg enum. Exactly one
// variant is set.
type QueryMsg struct {
	GetConfig *struct{}      `json:"get_config,omitempty"`
	Provided  *ProvidedQuery `json:"provided,omitempty"`
}

type ProvidedQuery struct {
	Address string `json:"address"`
}

// ConfigResponse is returned by get_config. Fee is a cosmwasm Decimal.
type ConfigResponse struct {
	Admin     string `json:"admin,omitempty"`
	Fee       string `json:"fee"`
	LoanDenom string `json:"loan_denom,omitempty"`
}

// ExecuteMsg is the loan entry point. Amount is a Uint128 string in the
// smallest unit.
type ExecuteMsg struct {
	Loan *LoanMsg `json:"loan,omitempty"`
}

type LoanMsg struct {
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

func GetConfigQuery() QueryMsg {
	return QueryMsg{GetConfig: &struct{}{}}
}

func ProvidedQueryFor(address string) QueryMsg {
	return QueryMsg{Provided: &ProvidedQuery{Address: address}}
}
