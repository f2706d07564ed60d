package form

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/btcsuite/btcutil/bech32"

	"github.com/michaelpento.lv/cwflash/contract"
	cwmath "github.com/michaelpento.lv/cwflash/utils/math"
)

const (
	ErrUnspecified       = "Unspecified"
	ErrGreaterThanTVL    = "Greater than TVL."
	ErrNotPositive       = "Not positive."
	ErrNotContractAddr   = "Not a contract address."
	contractAddressBytes = 32
)

// ValidateAmount checks a loan amount in display units. The TVL bound is
// only applied once the TVL has loaded; +Inf exceeds any TVL.
func ValidateAmount(amount float64, tvl contract.Loadable[*big.Int], exponent int) string {
	if math.IsNaN(amount) {
		return ErrUnspecified
	}
	if math.IsInf(amount, 1) {
		return ErrGreaterThanTVL
	}
	if tvl.Loaded() && amount > cwmath.MicroToFloat(tvl.Contents, exponent) {
		return ErrGreaterThanTVL
	}
	if amount <= 0 {
		return ErrNotPositive
	}
	return ""
}

func ValidateReceiver(receiver, prefix string) string {
	if !IsValidContractAddress(receiver, prefix) {
		return ErrNotContractAddr
	}
	return ""
}

// IsValidContractAddress reports whether addr is a bech32 address with the
// given prefix and a 32 byte payload, the length of CosmWasm contract
// addresses.
func IsValidContractAddress(addr, prefix string) bool {
	raw, ok := decodeAddress(addr, prefix)
	return ok && len(raw) == contractAddressBytes
}

// IsValidAddress accepts both account (20 byte) and contract addresses.
func IsValidAddress(addr, prefix string) bool {
	raw, ok := decodeAddress(addr, prefix)
	return ok && (len(raw) == 20 || len(raw) == contractAddressBytes)
}

func decodeAddress(addr, prefix string) ([]byte, bool) {
	if addr == "" || prefix == "" {
		return nil, false
	}
	hrp, data, err := bech32.Decode(addr)
	if err != nil || hrp != prefix {
		return nil, false
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// ParseAmount reads a numeric input field. Anything that is not a number,
// including an empty field, becomes NaN.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func formatInput(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
