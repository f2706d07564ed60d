package form

import (
	"math"
	"math/big"
	"sync"

	"github.com/michaelpento.lv/cwflash/contract"
)

// Form is the loan form state. Field errors are only populated after a
// submission attempt and are recomputed whenever an input or the TVL changes.
type Form struct {
	prefix   string
	exponent int

	mu          sync.Mutex
	amount      float64
	receiver    string
	tvl         contract.Loadable[*big.Int]
	validate    bool
	amountErr   string
	receiverErr string
	loading     bool
}

// View is a copy of the form state for rendering.
type View struct {
	Amount        float64 `json:"-"`
	AmountText    string  `json:"amount"`
	Receiver      string  `json:"receiver"`
	AmountError   string  `json:"amount_error,omitempty"`
	ReceiverError string  `json:"receiver_error,omitempty"`
	Loading       bool    `json:"loading"`
	Validate      bool    `json:"validate"`
	TVLState      string  `json:"tvl_state"`
}

func New(prefix string, exponent int) *Form {
	return &Form{
		prefix:   prefix,
		exponent: exponent,
		tvl:      contract.Pending[*big.Int](),
	}
}

func (f *Form) SetAmount(amount float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.amount = amount
	f.recompute()
}

// SetAmountInput sets the amount from raw field text.
func (f *Form) SetAmountInput(s string) {
	f.SetAmount(ParseAmount(s))
}

func (f *Form) SetReceiver(receiver string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiver = receiver
	f.recompute()
}

func (f *Form) SetTVL(tvl contract.Loadable[*big.Int]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tvl = tvl
	f.recompute()
}

func (f *Form) Amount() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.amount
}

func (f *Form) Receiver() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receiver
}

// Invalid runs both validators regardless of whether errors are shown.
func (f *Form) Invalid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ValidateReceiver(f.receiver, f.prefix) != "" ||
		ValidateAmount(f.amount, f.tvl, f.exponent) != ""
}

// ShowErrors turns on error display after a rejected submission.
func (f *Form) ShowErrors() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validate = true
	f.recompute()
}

// BeginSubmit sets the loading flag. It returns false if a submission is
// already running.
func (f *Form) BeginSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loading {
		return false
	}
	f.loading = true
	return true
}

// EndSubmit clears the loading flag and hides errors again.
func (f *Form) EndSubmit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	f.validate = false
	f.recompute()
}

func (f *Form) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// CanExecute reports whether the execute action is enabled.
func (f *Form) CanExecute(connected bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return connected &&
		f.amountErr == "" &&
		f.receiverErr == "" &&
		!f.loading &&
		f.tvl.Loaded()
}

func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := View{
		Amount:        f.amount,
		Receiver:      f.receiver,
		AmountError:   f.amountErr,
		ReceiverError: f.receiverErr,
		Loading:       f.loading,
		Validate:      f.validate,
		TVLState:      f.tvl.State.String(),
	}
	if !math.IsNaN(f.amount) {
		v.AmountText = formatInput(f.amount)
	}
	return v
}

// recompute must be called with f.mu held.
func (f *Form) recompute() {
	if !f.validate {
		f.amountErr, f.receiverErr = "", ""
		return
	}
	f.amountErr = ValidateAmount(f.amount, f.tvl, f.exponent)
	f.receiverErr = ValidateReceiver(f.receiver, f.prefix)
}
